package queue

import (
	"encoding/json"

	"github.com/minimall-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskPaymentTimeoutCheck 支付超时检查任务
	TaskPaymentTimeoutCheck = constants.TaskPaymentTimeoutCheck
	// TaskOrderConfirmRetry 订单确认补偿任务
	TaskOrderConfirmRetry = constants.TaskOrderConfirmRetry
)

// PaymentTimeoutCheckPayload 支付超时检查任务载荷
type PaymentTimeoutCheckPayload struct {
	PaymentID uint `json:"payment_id"`
}

// OrderConfirmRetryPayload 订单确认补偿任务载荷
type OrderConfirmRetryPayload struct {
	PaymentID uint `json:"payment_id"`
	OrderID   uint `json:"order_id"`
}

// NewPaymentTimeoutCheckTask 创建支付超时检查任务
func NewPaymentTimeoutCheckTask(payload PaymentTimeoutCheckPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentTimeoutCheck, body), nil
}

// NewOrderConfirmRetryTask 创建订单确认补偿任务
func NewOrderConfirmRetryTask(payload OrderConfirmRetryPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderConfirmRetry, body), nil
}
