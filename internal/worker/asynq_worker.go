package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/minimall-next/internal/constants"
	"github.com/minimall-next/internal/logger"
	"github.com/minimall-next/internal/provider"
	"github.com/minimall-next/internal/queue"
	"github.com/minimall-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(constants.TaskPaymentTimeoutCheck, c.handlePaymentTimeoutCheck)
	mux.HandleFunc(constants.TaskOrderConfirmRetry, c.handleOrderConfirmRetry)
}

func (c *Consumer) handlePaymentTimeoutCheck(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_payment_timeout_check_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.PaymentTimeoutCheckPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_payment_timeout_check_unmarshal_failed", "error", err)
		return err
	}
	if payload.PaymentID == 0 {
		logger.Debugw("worker_payment_timeout_check_skip_invalid_payload", "payment_id", payload.PaymentID)
		return nil
	}
	if c.PaymentService == nil {
		logger.Warnw("worker_payment_timeout_check_skip_payment_service_nil", "payment_id", payload.PaymentID)
		return nil
	}
	if err := c.PaymentService.CheckPaymentTimeout(payload.PaymentID, time.Now()); err != nil {
		logger.Warnw("worker_payment_timeout_check_failed", "payment_id", payload.PaymentID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleOrderConfirmRetry(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_confirm_retry_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderConfirmRetryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_confirm_retry_unmarshal_failed", "error", err)
		return err
	}
	if payload.PaymentID == 0 {
		logger.Debugw("worker_order_confirm_retry_skip_invalid_payload", "payment_id", payload.PaymentID)
		return nil
	}
	if c.PaymentService == nil {
		logger.Warnw("worker_order_confirm_retry_skip_payment_service_nil", "payment_id", payload.PaymentID)
		return nil
	}
	err := c.PaymentService.RetryOrderConfirm(payload.PaymentID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			logger.Debugw("worker_order_confirm_retry_skip_order_not_found", "payment_id", payload.PaymentID, "order_id", payload.OrderID)
			return nil
		case errors.Is(err, service.ErrOrderStatusInvalid):
			logger.Debugw("worker_order_confirm_retry_skip_invalid_status", "payment_id", payload.PaymentID, "order_id", payload.OrderID)
			return nil
		default:
			logger.Warnw("worker_order_confirm_retry_failed", "payment_id", payload.PaymentID, "order_id", payload.OrderID, "error", err)
			return err
		}
	}
	return nil
}
