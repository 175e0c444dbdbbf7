package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/minimall-next/internal/constants"
	"github.com/minimall-next/internal/logger"
	"github.com/minimall-next/internal/models"
	"github.com/minimall-next/internal/payment/gateway"
	"github.com/minimall-next/internal/payment/sign"
	"github.com/minimall-next/internal/queue"
	"github.com/minimall-next/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GatewayAPI 网关客户端接口
type GatewayAPI interface {
	UnifiedOrder(ctx context.Context, input gateway.UnifiedOrderInput) (*gateway.UnifiedOrderResult, error)
	QueryOrder(ctx context.Context, transactionNo string) (*gateway.QueryOrderResult, error)
	Refund(ctx context.Context, transactionNo, refundNo string, refundFen, totalFen int64) (*gateway.RefundResult, error)
}

// PaymentService 支付服务
type PaymentService struct {
	paymentRepo   repository.PaymentRepository
	orderRepo     repository.OrderRepository
	orderSvc      *OrderService
	gatewayClient GatewayAPI
	signEngine    *sign.Engine
	queueClient   *queue.Client
	expireMinutes int
}

// NewPaymentService 创建支付服务
func NewPaymentService(paymentRepo repository.PaymentRepository, orderRepo repository.OrderRepository, orderSvc *OrderService, gatewayClient GatewayAPI, signEngine *sign.Engine, queueClient *queue.Client, expireMinutes int) *PaymentService {
	if expireMinutes <= 0 {
		expireMinutes = 15
	}
	return &PaymentService{
		paymentRepo:   paymentRepo,
		orderRepo:     orderRepo,
		orderSvc:      orderSvc,
		gatewayClient: gatewayClient,
		signEngine:    signEngine,
		queueClient:   queueClient,
		expireMinutes: expireMinutes,
	}
}

// CreatePaymentInput 创建支付请求
type CreatePaymentInput struct {
	UserID      uint
	OrderID     uint
	AmountFen   int64
	Method      string
	Description string
	ClientIP    string
	Context     context.Context
}

// CreatePaymentResult 创建支付结果
type CreatePaymentResult struct {
	Payment       *models.Payment
	PrepayID      string
	CodeURL       string
	ClientPayload map[string]string
}

func paymentLogger(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}

func isSupportedMethod(method string) bool {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case constants.PaymentMethodWechat, constants.PaymentMethodAlipay, constants.PaymentMethodCard:
		return true
	default:
		return false
	}
}

// CreatePayment 创建支付单。
// 网关下单失败时不回滚本地待支付记录，重试会按订单复用同一笔。
func (s *PaymentService) CreatePayment(input CreatePaymentInput) (*CreatePaymentResult, error) {
	if input.OrderID == 0 || input.AmountFen <= 0 {
		return nil, ErrPaymentInvalid
	}
	method := strings.ToLower(strings.TrimSpace(input.Method))
	if !isSupportedMethod(method) {
		return nil, ErrPaymentInvalid
	}
	ctx := input.Context
	if ctx == nil {
		ctx = context.Background()
	}

	log := paymentLogger(
		"order_id", input.OrderID,
		"user_id", input.UserID,
		"amount_fen", input.AmountFen,
		"method", method,
	)

	order, err := s.orderRepo.GetByID(input.OrderID)
	if err != nil {
		log.Errorw("payment_create_order_fetch_failed", "error", err)
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		log.Warnw("payment_create_order_not_found")
		return nil, ErrOrderNotFound
	}
	if order.Status == constants.OrderStatusConfirmed {
		log.Infow("payment_create_order_already_paid")
		return nil, ErrOrderAlreadyPaid
	}
	if order.Status != constants.OrderStatusPendingPayment {
		log.Warnw("payment_create_order_status_invalid", "order_status", order.Status)
		return nil, ErrOrderStatusInvalid
	}
	if order.TotalAmountFen != input.AmountFen {
		log.Warnw("payment_create_amount_mismatch",
			"order_amount_fen", order.TotalAmountFen,
		)
		return nil, ErrPaymentInvalid
	}

	success, err := s.paymentRepo.GetSuccessByOrderID(order.ID)
	if err != nil {
		log.Errorw("payment_create_success_lookup_failed", "error", err)
		return nil, ErrPaymentCreateFailed
	}
	if success != nil {
		log.Infow("payment_create_order_already_paid", "transaction_no", success.TransactionNo)
		return nil, ErrOrderAlreadyPaid
	}

	// 复用已有待支付记录，保持交易号不变
	payment, err := s.paymentRepo.GetLatestByOrderID(order.ID)
	if err != nil {
		log.Errorw("payment_create_latest_lookup_failed", "error", err)
		return nil, ErrPaymentCreateFailed
	}
	if payment == nil || payment.Status != constants.PaymentStatusPending || payment.Method != method {
		now := time.Now()
		payment = &models.Payment{
			TransactionNo: AllocateTransactionNo(order.ID),
			UserID:        input.UserID,
			OrderID:       order.ID,
			AmountFen:     input.AmountFen,
			Method:        method,
			Status:        constants.PaymentStatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.paymentRepo.Create(payment); err != nil {
			log.Errorw("payment_create_failed", "error", err)
			return nil, ErrPaymentCreateFailed
		}
		if err := s.queueClient.EnqueuePaymentTimeoutCheck(queue.PaymentTimeoutCheckPayload{PaymentID: payment.ID}, time.Duration(s.expireMinutes)*time.Minute); err != nil {
			log.Warnw("payment_timeout_check_enqueue_failed", "payment_id", payment.ID, "error", err)
		}
		log.Infow("payment_created", "payment_id", payment.ID, "transaction_no", payment.TransactionNo)
	} else {
		log.Infow("payment_pending_reused", "payment_id", payment.ID, "transaction_no", payment.TransactionNo)
	}

	result, err := s.gatewayClient.UnifiedOrder(ctx, gateway.UnifiedOrderInput{
		TransactionNo: payment.TransactionNo,
		AmountFen:     payment.AmountFen,
		Method:        payment.Method,
		Description:   buildPaymentDescription(input.Description, order.OrderNo),
		ClientIP:      input.ClientIP,
	})
	if err != nil {
		// 待支付记录保留，交易号不变，等待重试
		log.Warnw("payment_gateway_order_failed",
			"payment_id", payment.ID,
			"transaction_no", payment.TransactionNo,
			"error", err,
		)
		return nil, mapGatewayError(err)
	}

	payment.PrepayID = result.PrepayID
	payment.GatewayResponse = models.JSON(result.Raw)
	payment.UpdatedAt = time.Now()
	if err := s.paymentRepo.Update(payment); err != nil {
		log.Errorw("payment_prepay_persist_failed", "payment_id", payment.ID, "error", err)
		return nil, ErrPaymentUpdateFailed
	}

	clientPayload, err := s.buildClientPayload(payment)
	if err != nil {
		log.Errorw("payment_client_payload_sign_failed", "payment_id", payment.ID, "error", err)
		return nil, ErrPaymentCreateFailed
	}
	return &CreatePaymentResult{
		Payment:       payment,
		PrepayID:      result.PrepayID,
		CodeURL:       result.CodeURL,
		ClientPayload: clientPayload,
	}, nil
}

// GetPaymentByOrder 获取订单最新支付记录
func (s *PaymentService) GetPaymentByOrder(orderID uint) (*models.Payment, error) {
	if orderID == 0 {
		return nil, ErrPaymentInvalid
	}
	payment, err := s.paymentRepo.GetLatestByOrderID(orderID)
	if err != nil {
		return nil, ErrPaymentUpdateFailed
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

// QueryPaymentStatus 查询支付状态。
// 超时的待支付记录被置为 failed(timeout)；仍在等待的会向网关查询一次，
// 网关侧已成功的在这里补齐状态。
func (s *PaymentService) QueryPaymentStatus(ctx context.Context, transactionNo string) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByTransactionNo(transactionNo)
	if err != nil {
		return nil, ErrPaymentUpdateFailed
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if payment.Status != constants.PaymentStatusPending {
		return payment, nil
	}

	if s.isExpired(payment, time.Now()) {
		return s.markTimeout(payment)
	}

	result, err := s.gatewayClient.QueryOrder(ctx, payment.TransactionNo)
	if err != nil {
		// 网关查询失败时结果未知，保持 pending
		paymentLogger("payment_id", payment.ID, "transaction_no", payment.TransactionNo).
			Warnw("payment_query_gateway_failed", "error", err)
		return payment, nil
	}

	status, ok := gateway.ToPaymentStatus(result.TradeState)
	if !ok {
		paymentLogger("payment_id", payment.ID, "trade_state", result.TradeState).
			Warnw("payment_query_unknown_trade_state")
		return payment, nil
	}
	switch status {
	case constants.PaymentStatusSuccess:
		if result.AmountFen != payment.AmountFen {
			paymentLogger(
				"payment_id", payment.ID,
				"stored_amount_fen", payment.AmountFen,
				"gateway_amount_fen", result.AmountFen,
			).Errorw("payment_query_amount_mismatch")
			return nil, ErrAmountMismatch
		}
		return s.applySuccess(payment, result.GatewayTransactionID, models.JSON(result.Raw), time.Now())
	case constants.PaymentStatusRefunded:
		return s.markRefunded(payment, result.GatewayTransactionID, models.JSON(result.Raw))
	case constants.PaymentStatusFailed:
		return s.markFailed(payment, constants.PaymentFailureGatewayDeclined)
	default:
		return payment, nil
	}
}

// SweepExpiredPayments 批量扫描超时的待支付记录
func (s *PaymentService) SweepExpiredPayments(now time.Time, limit int) (int, error) {
	cutoff := now.Add(-time.Duration(s.expireMinutes) * time.Minute)
	expired, err := s.paymentRepo.ListExpiredPending(cutoff, limit)
	if err != nil {
		return 0, ErrPaymentUpdateFailed
	}
	swept := 0
	for i := range expired {
		if _, err := s.markTimeout(&expired[i]); err != nil {
			paymentLogger("payment_id", expired[i].ID).Warnw("payment_timeout_sweep_failed", "error", err)
			continue
		}
		swept++
	}
	return swept, nil
}

// CheckPaymentTimeout 检查单笔支付是否超时
func (s *PaymentService) CheckPaymentTimeout(paymentID uint, now time.Time) error {
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return ErrPaymentUpdateFailed
	}
	if payment == nil || payment.Status != constants.PaymentStatusPending {
		return nil
	}
	if !s.isExpired(payment, now) {
		return nil
	}
	_, err = s.markTimeout(payment)
	return err
}

// RefundInput 退款请求
type RefundInput struct {
	PaymentID uint
	RefundFen int64
	Context   context.Context
}

// Refund 对已成功的支付发起退款
func (s *PaymentService) Refund(input RefundInput) (*models.Payment, error) {
	if input.PaymentID == 0 {
		return nil, ErrPaymentInvalid
	}
	ctx := input.Context
	if ctx == nil {
		ctx = context.Background()
	}

	payment, err := s.paymentRepo.GetByID(input.PaymentID)
	if err != nil {
		return nil, ErrPaymentUpdateFailed
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}

	log := paymentLogger(
		"payment_id", payment.ID,
		"transaction_no", payment.TransactionNo,
		"refund_fen", input.RefundFen,
	)

	if payment.Status != constants.PaymentStatusSuccess {
		log.Warnw("payment_refund_status_invalid", "current_status", payment.Status)
		return nil, ErrPaymentStatusInvalid
	}
	if input.RefundFen <= 0 || input.RefundFen > payment.AmountFen {
		log.Warnw("payment_refund_amount_invalid", "amount_fen", payment.AmountFen)
		return nil, ErrRefundExceedsOriginal
	}

	refundNo := fmt.Sprintf("RF%s", payment.TransactionNo)
	result, err := s.gatewayClient.Refund(ctx, payment.TransactionNo, refundNo, input.RefundFen, payment.AmountFen)
	if err != nil {
		log.Errorw("payment_refund_gateway_failed", "error", err)
		return nil, mapGatewayError(err)
	}

	updated, err := s.paymentRepo.UpdateStatusIf(payment.ID,
		[]string{constants.PaymentStatusSuccess},
		map[string]interface{}{
			"status":     constants.PaymentStatusRefunded,
			"refund_fen": input.RefundFen,
			"updated_at": time.Now(),
		},
	)
	if err != nil {
		log.Errorw("payment_refund_persist_failed", "error", err)
		return nil, ErrPaymentUpdateFailed
	}
	if !updated {
		log.Warnw("payment_refund_status_conflict")
		return nil, ErrPaymentStatusInvalid
	}
	log.Infow("payment_refunded", "refund_id", result.RefundID)
	return s.paymentRepo.GetByID(payment.ID)
}

// ListPayments 管理端支付列表
func (s *PaymentService) ListPayments(filter repository.PaymentListFilter) ([]models.Payment, int64, error) {
	return s.paymentRepo.ListAdmin(filter)
}

// GetPayment 获取支付记录
func (s *PaymentService) GetPayment(id uint) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(id)
	if err != nil {
		return nil, ErrPaymentUpdateFailed
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

func (s *PaymentService) isExpired(payment *models.Payment, now time.Time) bool {
	return payment.CreatedAt.Add(time.Duration(s.expireMinutes) * time.Minute).Before(now)
}

func (s *PaymentService) markTimeout(payment *models.Payment) (*models.Payment, error) {
	updated, err := s.paymentRepo.UpdateStatusIf(payment.ID,
		[]string{constants.PaymentStatusPending},
		map[string]interface{}{
			"status":         constants.PaymentStatusFailed,
			"failure_reason": constants.PaymentFailureTimeout,
			"updated_at":     time.Now(),
		},
	)
	if err != nil {
		return nil, ErrPaymentUpdateFailed
	}
	if updated {
		paymentLogger("payment_id", payment.ID, "transaction_no", payment.TransactionNo).
			Infow("payment_timeout_marked_failed")
	}
	return s.paymentRepo.GetByID(payment.ID)
}

func (s *PaymentService) markFailed(payment *models.Payment, reason string) (*models.Payment, error) {
	updated, err := s.paymentRepo.UpdateStatusIf(payment.ID,
		[]string{constants.PaymentStatusPending, constants.PaymentStatusProcessing},
		map[string]interface{}{
			"status":         constants.PaymentStatusFailed,
			"failure_reason": reason,
			"updated_at":     time.Now(),
		},
	)
	if err != nil {
		return nil, ErrPaymentUpdateFailed
	}
	if !updated {
		paymentLogger("payment_id", payment.ID).Warnw("payment_mark_failed_status_conflict", "reason", reason)
	}
	return s.paymentRepo.GetByID(payment.ID)
}

// markRefunded 处理网关侧已退款的通知，pending/success 都允许收敛到 refunded
func (s *PaymentService) markRefunded(payment *models.Payment, gatewayTransactionID string, callbackData models.JSON) (*models.Payment, error) {
	updates := map[string]interface{}{
		"status":     constants.PaymentStatusRefunded,
		"updated_at": time.Now(),
	}
	if strings.TrimSpace(gatewayTransactionID) != "" {
		updates["gateway_transaction_id"] = strings.TrimSpace(gatewayTransactionID)
	}
	if callbackData != nil {
		updates["callback_data"] = callbackData
	}

	updated, err := s.paymentRepo.UpdateStatusIf(payment.ID,
		[]string{constants.PaymentStatusPending, constants.PaymentStatusProcessing, constants.PaymentStatusSuccess},
		updates,
	)
	if err != nil {
		return nil, ErrPaymentUpdateFailed
	}
	current, err := s.paymentRepo.GetByID(payment.ID)
	if err != nil || current == nil {
		return nil, ErrPaymentUpdateFailed
	}
	if !updated {
		if current.Status == constants.PaymentStatusRefunded {
			return current, nil
		}
		paymentLogger("payment_id", payment.ID, "current_status", current.Status).
			Warnw("payment_refund_notify_status_conflict")
		return nil, ErrPaymentStatusInvalid
	}
	return current, nil
}

// applySuccess 把支付推进到 success 并请求订单确认。
// 订单确认失败不回滚已成功的支付，由补偿任务重试。
func (s *PaymentService) applySuccess(payment *models.Payment, gatewayTransactionID string, callbackData models.JSON, paidAt time.Time) (*models.Payment, error) {
	updates := map[string]interface{}{
		"status":     constants.PaymentStatusSuccess,
		"paid_at":    paidAt,
		"updated_at": paidAt,
	}
	if strings.TrimSpace(gatewayTransactionID) != "" {
		updates["gateway_transaction_id"] = strings.TrimSpace(gatewayTransactionID)
	}
	if callbackData != nil {
		updates["callback_data"] = callbackData
	}

	updated, err := s.paymentRepo.UpdateStatusIf(payment.ID,
		[]string{constants.PaymentStatusPending, constants.PaymentStatusProcessing},
		updates,
	)
	if err != nil {
		return nil, ErrPaymentUpdateFailed
	}
	current, err := s.paymentRepo.GetByID(payment.ID)
	if err != nil || current == nil {
		return nil, ErrPaymentUpdateFailed
	}
	if !updated {
		// 并发回调下另一次迁移已经落库
		if current.Status == constants.PaymentStatusSuccess || current.Status == constants.PaymentStatusRefunded {
			return current, nil
		}
		paymentLogger("payment_id", payment.ID, "current_status", current.Status).
			Warnw("payment_success_status_conflict")
		return nil, ErrPaymentStatusInvalid
	}

	s.confirmOrder(current)
	return current, nil
}

// confirmOrder 请求订单确认，失败时推入补偿任务
func (s *PaymentService) confirmOrder(payment *models.Payment) {
	if s.orderSvc == nil {
		return
	}
	paidAt := time.Now()
	if payment.PaidAt != nil {
		paidAt = *payment.PaidAt
	}
	if err := s.orderSvc.MarkConfirmed(payment.OrderID, paidAt); err != nil {
		paymentLogger(
			"payment_id", payment.ID,
			"order_id", payment.OrderID,
		).Errorw("payment_order_confirm_partial_failure", "error", err)
		if enqueueErr := s.queueClient.EnqueueOrderConfirmRetry(queue.OrderConfirmRetryPayload{
			PaymentID: payment.ID,
			OrderID:   payment.OrderID,
		}); enqueueErr != nil {
			paymentLogger("payment_id", payment.ID).
				Errorw("payment_order_confirm_retry_enqueue_failed", "error", enqueueErr)
		}
	}
}

// RetryOrderConfirm 补偿任务入口：对已成功支付重试订单确认
func (s *PaymentService) RetryOrderConfirm(paymentID uint) error {
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return ErrPaymentUpdateFailed
	}
	if payment == nil {
		return nil
	}
	if payment.Status != constants.PaymentStatusSuccess && payment.Status != constants.PaymentStatusRefunded {
		return nil
	}
	paidAt := time.Now()
	if payment.PaidAt != nil {
		paidAt = *payment.PaidAt
	}
	return s.orderSvc.MarkConfirmed(payment.OrderID, paidAt)
}

func (s *PaymentService) buildClientPayload(payment *models.Payment) (map[string]string, error) {
	if s.signEngine == nil || payment.PrepayID == "" {
		return nil, nil
	}
	timestamp := time.Now().Unix()
	nonce := strings.ReplaceAll(uuid.New().String(), "-", "")
	pkg := "prepay_id=" + payment.PrepayID
	paySign, err := s.signEngine.SignClientPayload(timestamp, nonce, pkg)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"timeStamp": fmt.Sprintf("%d", timestamp),
		"nonceStr":  nonce,
		"package":   pkg,
		"signType":  s.signEngine.Signer().Type(),
		"paySign":   paySign,
	}, nil
}

func buildPaymentDescription(description, orderNo string) string {
	description = strings.TrimSpace(description)
	if description != "" {
		return description
	}
	return fmt.Sprintf("订单 %s", orderNo)
}

func mapGatewayError(err error) error {
	switch {
	case errors.Is(err, gateway.ErrResponseInvalid):
		return ErrPaymentGatewayResponseInvalid
	case errors.Is(err, gateway.ErrRequestFailed), errors.Is(err, gateway.ErrConfigInvalid):
		return ErrPaymentGatewayUnavailable
	default:
		return ErrPaymentGatewayUnavailable
	}
}
