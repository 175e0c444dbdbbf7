package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minimall-next/internal/models"
)

const paymentStateCacheTTL = 30 * time.Second

// PaymentState 支付状态快照
// 只服务高频的状态轮询，终态以数据库为准
type PaymentState struct {
	PaymentID     uint   `json:"payment_id"`
	TransactionNo string `json:"transaction_no"`
	OrderID       uint   `json:"order_id"`
	Status        string `json:"status"`
	AmountFen     int64  `json:"amount_fen"`
	PaidAt        int64  `json:"paid_at"`
	UpdatedAt     int64  `json:"updated_at"`
}

func paymentStateKey(transactionNo string) string {
	return fmt.Sprintf("payment:state:%s", strings.TrimSpace(transactionNo))
}

// BuildPaymentState 从支付模型构建状态快照
func BuildPaymentState(payment *models.Payment) *PaymentState {
	if payment == nil {
		return nil
	}
	state := &PaymentState{
		PaymentID:     payment.ID,
		TransactionNo: payment.TransactionNo,
		OrderID:       payment.OrderID,
		Status:        payment.Status,
		AmountFen:     payment.AmountFen,
		UpdatedAt:     time.Now().Unix(),
	}
	if payment.PaidAt != nil {
		state.PaidAt = payment.PaidAt.Unix()
	}
	return state
}

// GetPaymentState 获取支付状态快照
func GetPaymentState(ctx context.Context, transactionNo string) (*PaymentState, bool, error) {
	if strings.TrimSpace(transactionNo) == "" {
		return nil, false, nil
	}
	var state PaymentState
	hit, err := GetJSON(ctx, paymentStateKey(transactionNo), &state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &state, true, nil
}

// SetPaymentState 写入支付状态快照
func SetPaymentState(ctx context.Context, state *PaymentState) error {
	if state == nil || strings.TrimSpace(state.TransactionNo) == "" {
		return nil
	}
	return SetJSON(ctx, paymentStateKey(state.TransactionNo), state, paymentStateCacheTTL)
}

// DelPaymentState 删除支付状态快照
func DelPaymentState(ctx context.Context, transactionNo string) error {
	if strings.TrimSpace(transactionNo) == "" {
		return nil
	}
	return Del(ctx, paymentStateKey(transactionNo))
}
