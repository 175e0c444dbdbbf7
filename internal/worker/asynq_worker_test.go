package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/minimall-next/internal/constants"
	"github.com/minimall-next/internal/models"
	"github.com/minimall-next/internal/provider"
	"github.com/minimall-next/internal/queue"
	"github.com/minimall-next/internal/repository"
	"github.com/minimall-next/internal/service"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupConsumerTest(t *testing.T) (*Consumer, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:worker_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Order{}, &models.Payment{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	paymentRepo := repository.NewPaymentRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	orderSvc := service.NewOrderService(orderRepo)
	paymentSvc := service.NewPaymentService(paymentRepo, orderRepo, orderSvc, nil, nil, nil, 15)
	container := &provider.Container{
		PaymentService: paymentSvc,
		OrderService:   orderSvc,
		PaymentRepo:    paymentRepo,
		OrderRepo:      orderRepo,
	}
	return NewConsumer(container), db
}

func TestHandlePaymentTimeoutCheckMarksExpiredPending(t *testing.T) {
	consumer, db := setupConsumerTest(t)

	order := models.Order{ID: 42, OrderNo: "ORD42", UserID: 7, Status: constants.OrderStatusPendingPayment, TotalAmountFen: 9900}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	payment := models.Payment{
		TransactionNo: "PAY42TIMEOUT",
		OrderID:       order.ID,
		UserID:        7,
		AmountFen:     9900,
		Method:        constants.PaymentMethodWechat,
		Status:        constants.PaymentStatusPending,
		CreatedAt:     time.Now().Add(-time.Hour),
	}
	if err := db.Create(&payment).Error; err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	task, err := queue.NewPaymentTimeoutCheckTask(queue.PaymentTimeoutCheckPayload{PaymentID: payment.ID})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := consumer.handlePaymentTimeoutCheck(context.Background(), task); err != nil {
		t.Fatalf("handle task failed: %v", err)
	}

	var stored models.Payment
	if err := db.First(&stored, payment.ID).Error; err != nil {
		t.Fatalf("reload payment failed: %v", err)
	}
	if stored.Status != constants.PaymentStatusFailed {
		t.Fatalf("expected failed status, got %s", stored.Status)
	}
	if stored.FailureReason != constants.PaymentFailureTimeout {
		t.Fatalf("expected timeout reason, got %s", stored.FailureReason)
	}
}

func TestHandlePaymentTimeoutCheckLeavesFreshPending(t *testing.T) {
	consumer, db := setupConsumerTest(t)

	order := models.Order{ID: 42, OrderNo: "ORD42", UserID: 7, Status: constants.OrderStatusPendingPayment, TotalAmountFen: 9900}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	payment := models.Payment{
		TransactionNo: "PAY42FRESH",
		OrderID:       order.ID,
		UserID:        7,
		AmountFen:     9900,
		Method:        constants.PaymentMethodWechat,
		Status:        constants.PaymentStatusPending,
		CreatedAt:     time.Now(),
	}
	if err := db.Create(&payment).Error; err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	task, err := queue.NewPaymentTimeoutCheckTask(queue.PaymentTimeoutCheckPayload{PaymentID: payment.ID})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := consumer.handlePaymentTimeoutCheck(context.Background(), task); err != nil {
		t.Fatalf("handle task failed: %v", err)
	}

	var stored models.Payment
	if err := db.First(&stored, payment.ID).Error; err != nil {
		t.Fatalf("reload payment failed: %v", err)
	}
	if stored.Status != constants.PaymentStatusPending {
		t.Fatalf("fresh pending payment must not be touched, got %s", stored.Status)
	}
}

func TestHandleOrderConfirmRetryConfirmsOrder(t *testing.T) {
	consumer, db := setupConsumerTest(t)

	order := models.Order{ID: 42, OrderNo: "ORD42", UserID: 7, Status: constants.OrderStatusPendingPayment, TotalAmountFen: 9900}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	now := time.Now()
	payment := models.Payment{
		TransactionNo: "PAY42RETRY",
		OrderID:       order.ID,
		UserID:        7,
		AmountFen:     9900,
		Method:        constants.PaymentMethodWechat,
		Status:        constants.PaymentStatusSuccess,
		PaidAt:        &now,
	}
	if err := db.Create(&payment).Error; err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	task, err := queue.NewOrderConfirmRetryTask(queue.OrderConfirmRetryPayload{PaymentID: payment.ID, OrderID: order.ID})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := consumer.handleOrderConfirmRetry(context.Background(), task); err != nil {
		t.Fatalf("handle task failed: %v", err)
	}

	var stored models.Order
	if err := db.First(&stored, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if stored.Status != constants.OrderStatusConfirmed {
		t.Fatalf("expected confirmed order, got %s", stored.Status)
	}
}

func TestHandleOrderConfirmRetrySkipsNonSuccessPayment(t *testing.T) {
	consumer, db := setupConsumerTest(t)

	order := models.Order{ID: 42, OrderNo: "ORD42", UserID: 7, Status: constants.OrderStatusPendingPayment, TotalAmountFen: 9900}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	payment := models.Payment{
		TransactionNo: "PAY42SKIP",
		OrderID:       order.ID,
		UserID:        7,
		AmountFen:     9900,
		Method:        constants.PaymentMethodWechat,
		Status:        constants.PaymentStatusPending,
	}
	if err := db.Create(&payment).Error; err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	task, err := queue.NewOrderConfirmRetryTask(queue.OrderConfirmRetryPayload{PaymentID: payment.ID, OrderID: order.ID})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := consumer.handleOrderConfirmRetry(context.Background(), task); err != nil {
		t.Fatalf("handle task failed: %v", err)
	}

	var stored models.Order
	if err := db.First(&stored, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if stored.Status != constants.OrderStatusPendingPayment {
		t.Fatalf("order must stay pending, got %s", stored.Status)
	}
}
