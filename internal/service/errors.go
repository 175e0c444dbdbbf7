package service

import "errors"

// 订单相关错误
var (
	ErrOrderNotFound      = errors.New("订单不存在")
	ErrOrderAlreadyPaid   = errors.New("订单已支付")
	ErrOrderFetchFailed   = errors.New("订单查询失败")
	ErrOrderUpdateFailed  = errors.New("订单更新失败")
	ErrOrderStatusInvalid = errors.New("订单状态不允许该操作")
)

// 支付相关错误
var (
	ErrPaymentInvalid                = errors.New("支付参数无效")
	ErrPaymentNotFound               = errors.New("支付记录不存在")
	ErrPaymentCreateFailed           = errors.New("支付创建失败")
	ErrPaymentUpdateFailed           = errors.New("支付更新失败")
	ErrPaymentStatusInvalid          = errors.New("支付状态不允许该操作")
	ErrPaymentGatewayUnavailable     = errors.New("支付网关不可用")
	ErrPaymentGatewayResponseInvalid = errors.New("支付网关应答无效")
	ErrSignatureInvalid              = errors.New("回调签名验证失败")
	ErrAmountMismatch                = errors.New("回调金额与支付金额不一致")
	ErrRefundExceedsOriginal         = errors.New("退款金额超过原支付金额")
)

// 认证相关错误
var (
	ErrInvalidCredentials = errors.New("用户名或密码错误")
)
