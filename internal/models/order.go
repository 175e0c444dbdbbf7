package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表
//
// 订单由订单模块维护，支付核心只读取订单并在支付成功后
// 请求一次 confirmed 状态变更。
type Order struct {
	ID             uint           `gorm:"primarykey" json:"id"`                 // 主键
	OrderNo        string         `gorm:"uniqueIndex;not null" json:"order_no"` // 订单编号
	UserID         uint           `gorm:"index;not null" json:"user_id"`        // 用户ID
	Status         string         `gorm:"index;not null" json:"status"`         // 订单状态
	TotalAmountFen int64          `gorm:"not null" json:"total_amount_fen"`     // 实付金额（分）
	PaidAt         *time.Time     `gorm:"index" json:"paid_at"`                 // 支付时间
	CancelledAt    *time.Time     `gorm:"index" json:"cancelled_at"`            // 取消时间
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`              // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`              // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                       // 软删除时间
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
