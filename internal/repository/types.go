package repository

import "time"

// PaymentListFilter 查询支付列表的过滤条件
type PaymentListFilter struct {
	Page          int
	PageSize      int
	UserID        uint
	OrderID       uint
	TransactionNo string
	Method        string
	Status        string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}
