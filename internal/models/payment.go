package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment 支付记录
type Payment struct {
	ID                   uint           `gorm:"primarykey" json:"id"`                           // 主键
	TransactionNo        string         `gorm:"uniqueIndex;not null" json:"transaction_no"`     // 商户交易号（创建后不变）
	GatewayTransactionID string         `gorm:"index" json:"gateway_transaction_id"`            // 网关流水号（网关确认后才有值）
	UserID               uint           `gorm:"index;not null" json:"user_id"`                  // 用户ID
	OrderID              uint           `gorm:"index;not null" json:"order_id"`                 // 订单ID
	AmountFen            int64          `gorm:"not null" json:"amount_fen"`                     // 支付金额（分）
	Method               string         `gorm:"not null" json:"method"`                         // 支付方式（wechat/alipay/card）
	Status               string         `gorm:"index;not null" json:"status"`                   // 支付状态
	PrepayID             string         `gorm:"type:varchar(128)" json:"prepay_id,omitempty"`   // 网关预支付单号
	GatewayResponse      JSON           `gorm:"type:json" json:"gateway_response,omitempty"`    // 下单应答报文
	CallbackData         JSON           `gorm:"type:json" json:"callback_data,omitempty"`       // 回调报文
	FailureReason        string         `gorm:"type:varchar(128)" json:"failure_reason,omitempty"` // 失败原因
	RefundFen            int64          `gorm:"not null;default:0" json:"refund_fen"`           // 已退款金额（分）
	PaidAt               *time.Time     `gorm:"index" json:"paid_at"`                           // 支付时间（仅 success/refunded 有值）
	CreatedAt            time.Time      `gorm:"index" json:"created_at"`                        // 创建时间
	UpdatedAt            time.Time      `gorm:"index" json:"updated_at"`                        // 更新时间
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`                                 // 软删除时间
}

// TableName 指定表名
func (Payment) TableName() string {
	return "payments"
}

// AmountYuan 返回元为单位的展示金额
func (p Payment) AmountYuan() Money {
	return MoneyFromFen(p.AmountFen)
}
