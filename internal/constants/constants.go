package constants

// 订单状态常量
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusConfirmed      = "confirmed"
	OrderStatusCancelled      = "cancelled"
)

// 支付状态常量
const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusSuccess    = "success"
	PaymentStatusFailed     = "failed"
	PaymentStatusCancelled  = "cancelled"
	PaymentStatusRefunded   = "refunded"
)

// 支付方式常量
const (
	PaymentMethodWechat = "wechat"
	PaymentMethodAlipay = "alipay"
	PaymentMethodCard   = "card"
)

// 支付失败原因常量
const (
	PaymentFailureTimeout         = "timeout"
	PaymentFailureGatewayDeclined = "gateway_declined"
)

// 网关交易状态常量
const (
	GatewayTradeStateSuccess    = "SUCCESS"
	GatewayTradeStateRefund     = "REFUND"
	GatewayTradeStateNotPay     = "NOTPAY"
	GatewayTradeStateUserPaying = "USERPAYING"
	GatewayTradeStateClosed     = "CLOSED"
	GatewayTradeStateRevoked    = "REVOKED"
	GatewayTradeStatePayError   = "PAYERROR"
)

// 网关回调应答常量
const (
	GatewayCallbackSuccess = "SUCCESS"
	GatewayCallbackFail    = "FAIL"
)

// 签名算法常量
const (
	SignTypeHMACSHA256 = "HMAC-SHA256"
	SignTypeRSASHA256  = "RSA-SHA256"
)

// 队列常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务名称常量
const (
	TaskPaymentTimeoutCheck = "payment:timeout_check"
	TaskOrderConfirmRetry   = "order:confirm_retry"
)

// 分页常量
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// 交易号常量
const (
	TransactionNoPrefix     = "PAY"
	TransactionNoRandDigits = 6
)
