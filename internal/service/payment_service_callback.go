package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/minimall-next/internal/constants"
	"github.com/minimall-next/internal/models"
	"github.com/minimall-next/internal/payment/gateway"

	"go.uber.org/zap"
)

// CallbackEnvelope 网关异步通知
type CallbackEnvelope struct {
	OutTradeNo    string `json:"out_trade_no"`
	TransactionID string `json:"transaction_id"`
	TradeState    string `json:"trade_state"`
	TotalAmount   int64  `json:"total_amount"`
	Timestamp     string `json:"timestamp"`
	Nonce         string `json:"nonce"`
	Sign          string `json:"sign"`
}

func (e CallbackEnvelope) signFields() map[string]string {
	return map[string]string{
		"out_trade_no":   e.OutTradeNo,
		"transaction_id": e.TransactionID,
		"trade_state":    e.TradeState,
		"total_amount":   strconv.FormatInt(e.TotalAmount, 10),
		"timestamp":      e.Timestamp,
		"nonce":          e.Nonce,
	}
}

func (e CallbackEnvelope) asJSON() models.JSON {
	return models.JSON{
		"out_trade_no":   e.OutTradeNo,
		"transaction_id": e.TransactionID,
		"trade_state":    e.TradeState,
		"total_amount":   e.TotalAmount,
		"timestamp":      e.Timestamp,
		"nonce":          e.Nonce,
	}
}

// HandleCallback 处理网关异步通知。
// 验签不通过时不触碰任何记录；未知交易号只记录不报错，
// 避免给网关制造无意义的重试风暴。
func (s *PaymentService) HandleCallback(envelope CallbackEnvelope) error {
	log := paymentLogger(
		"transaction_no", envelope.OutTradeNo,
		"trade_state", envelope.TradeState,
	)

	if s.signEngine == nil || !s.signEngine.VerifyCallback(envelope.signFields(), envelope.Sign) {
		log.Warnw("payment_callback_signature_rejected")
		return ErrSignatureInvalid
	}

	transactionNo := strings.TrimSpace(envelope.OutTradeNo)
	if transactionNo == "" {
		log.Warnw("payment_callback_transaction_no_missing")
		return ErrPaymentInvalid
	}

	payment, err := s.paymentRepo.GetByTransactionNo(transactionNo)
	if err != nil {
		log.Errorw("payment_callback_lookup_failed", "error", err)
		return ErrPaymentUpdateFailed
	}
	if payment == nil {
		// 不属于本系统的交易号，吞掉即可
		log.Warnw("payment_callback_unknown_transaction_no")
		return nil
	}

	log = paymentLogger(
		"payment_id", payment.ID,
		"transaction_no", payment.TransactionNo,
		"trade_state", envelope.TradeState,
	)

	if envelope.TotalAmount != payment.AmountFen {
		log.Errorw("payment_callback_amount_mismatch",
			"stored_amount_fen", payment.AmountFen,
			"callback_amount_fen", envelope.TotalAmount,
		)
		return ErrAmountMismatch
	}

	status, ok := gateway.ToPaymentStatus(envelope.TradeState)
	if !ok {
		log.Warnw("payment_callback_unknown_trade_state")
		return ErrPaymentStatusInvalid
	}

	switch status {
	case constants.PaymentStatusSuccess:
		return s.handleCallbackSuccess(payment, envelope, log)
	case constants.PaymentStatusRefunded:
		return s.handleCallbackRefund(payment, envelope, log)
	case constants.PaymentStatusFailed:
		return s.handleCallbackFailure(payment, log)
	default:
		// USERPAYING 等中间态不落终态
		log.Infow("payment_callback_non_terminal_ignored")
		return nil
	}
}

func (s *PaymentService) handleCallbackSuccess(payment *models.Payment, envelope CallbackEnvelope, log *zap.SugaredLogger) error {
	switch payment.Status {
	case constants.PaymentStatusSuccess, constants.PaymentStatusRefunded:
		// 回调重放，保持幂等
		log.Infow("payment_callback_replay_ignored", "current_status", payment.Status)
		s.healOrderConfirm(payment)
		return nil
	case constants.PaymentStatusFailed, constants.PaymentStatusCancelled:
		log.Warnw("payment_callback_terminal_conflict", "current_status", payment.Status)
		return ErrPaymentStatusInvalid
	}

	paidAt := parseCallbackTimestamp(envelope.Timestamp)
	if _, err := s.applySuccess(payment, envelope.TransactionID, envelope.asJSON(), paidAt); err != nil {
		log.Errorw("payment_callback_apply_failed", "error", err)
		return err
	}
	log.Infow("payment_callback_success_applied")
	return nil
}

func (s *PaymentService) handleCallbackRefund(payment *models.Payment, envelope CallbackEnvelope, log *zap.SugaredLogger) error {
	switch payment.Status {
	case constants.PaymentStatusRefunded:
		log.Infow("payment_callback_replay_ignored", "current_status", payment.Status)
		return nil
	case constants.PaymentStatusFailed, constants.PaymentStatusCancelled:
		log.Warnw("payment_callback_terminal_conflict", "current_status", payment.Status)
		return ErrPaymentStatusInvalid
	}
	if _, err := s.markRefunded(payment, envelope.TransactionID, envelope.asJSON()); err != nil {
		log.Errorw("payment_callback_apply_failed", "error", err)
		return err
	}
	log.Infow("payment_callback_refund_applied")
	return nil
}

func (s *PaymentService) handleCallbackFailure(payment *models.Payment, log *zap.SugaredLogger) error {
	switch payment.Status {
	case constants.PaymentStatusFailed, constants.PaymentStatusCancelled:
		log.Infow("payment_callback_replay_ignored", "current_status", payment.Status)
		return nil
	case constants.PaymentStatusSuccess, constants.PaymentStatusRefunded:
		log.Warnw("payment_callback_terminal_conflict", "current_status", payment.Status)
		return ErrPaymentStatusInvalid
	}
	if _, err := s.markFailed(payment, constants.PaymentFailureGatewayDeclined); err != nil {
		return err
	}
	log.Infow("payment_callback_failure_applied")
	return nil
}

// healOrderConfirm 重放时顺带补一次订单确认，修复此前的部分失败
func (s *PaymentService) healOrderConfirm(payment *models.Payment) {
	if s.orderSvc == nil {
		return
	}
	order, err := s.orderRepo.GetByID(payment.OrderID)
	if err != nil || order == nil {
		return
	}
	if order.Status == constants.OrderStatusPendingPayment {
		s.confirmOrder(payment)
	}
}

func parseCallbackTimestamp(raw string) time.Time {
	if seconds, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil && seconds > 0 {
		return time.Unix(seconds, 0)
	}
	return time.Now()
}
