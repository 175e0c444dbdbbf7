package public

import (
	"strconv"
	"strings"
	"time"

	"github.com/minimall-next/internal/cache"
	"github.com/minimall-next/internal/http/response"
	"github.com/minimall-next/internal/models"
	"github.com/minimall-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreatePaymentRequest 创建支付请求
type CreatePaymentRequest struct {
	OrderID     uint   `json:"order_id" binding:"required"`
	UserID      uint   `json:"user_id"`
	AmountFen   int64  `json:"amount_fen" binding:"required"`
	Method      string `json:"method" binding:"required"`
	Description string `json:"description"`
}

// PaymentView 支付记录响应结构
type PaymentView struct {
	ID                   uint          `json:"id"`
	TransactionNo        string        `json:"transaction_no"`
	OrderID              uint          `json:"order_id"`
	AmountFen            int64         `json:"amount_fen"`
	Amount               *models.Money `json:"amount"`
	Method               string        `json:"method"`
	Status               string        `json:"status"`
	FailureReason        string        `json:"failure_reason,omitempty"`
	GatewayTransactionID string        `json:"gateway_transaction_id,omitempty"`
	RefundFen            int64         `json:"refund_fen,omitempty"`
	PaidAt               *time.Time    `json:"paid_at,omitempty"`
	CreatedAt            time.Time     `json:"created_at"`
}

func buildPaymentView(payment *models.Payment) PaymentView {
	amount := payment.AmountYuan()
	return PaymentView{
		ID:                   payment.ID,
		TransactionNo:        payment.TransactionNo,
		OrderID:              payment.OrderID,
		AmountFen:            payment.AmountFen,
		Amount:               &amount,
		Method:               payment.Method,
		Status:               payment.Status,
		FailureReason:        payment.FailureReason,
		GatewayTransactionID: payment.GatewayTransactionID,
		RefundFen:            payment.RefundFen,
		PaidAt:               payment.PaidAt,
		CreatedAt:            payment.CreatedAt,
	}
}

// CreatePayment 创建支付单
func (h *Handler) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	result, err := h.PaymentService.CreatePayment(service.CreatePaymentInput{
		UserID:      req.UserID,
		OrderID:     req.OrderID,
		AmountFen:   req.AmountFen,
		Method:      req.Method,
		Description: req.Description,
		ClientIP:    c.ClientIP(),
		Context:     c.Request.Context(),
	})
	if err != nil {
		respondPaymentCreateError(c, err)
		return
	}

	resp := gin.H{
		"payment":   buildPaymentView(result.Payment),
		"prepay_id": result.PrepayID,
	}
	if result.CodeURL != "" {
		resp["code_url"] = result.CodeURL
	}
	if result.ClientPayload != nil {
		resp["client_payload"] = result.ClientPayload
	}
	response.Success(c, resp)
}

// GetPaymentByOrder 查询订单最新支付记录
func (h *Handler) GetPaymentByOrder(c *gin.Context) {
	orderID, err := strconv.ParseUint(c.Param("order_id"), 10, 64)
	if err != nil || orderID == 0 {
		respondError(c, response.CodeBadRequest, "订单号无效", nil)
		return
	}

	payment, getErr := h.PaymentService.GetPaymentByOrder(uint(orderID))
	if getErr != nil {
		respondPaymentQueryError(c, getErr)
		return
	}
	response.Success(c, buildPaymentView(payment))
}

// GetPaymentStatus 按交易号轮询支付状态
// 终态命中快照直接返回，避免反复打到网关
func (h *Handler) GetPaymentStatus(c *gin.Context) {
	transactionNo := strings.TrimSpace(c.Param("transaction_no"))
	if transactionNo == "" {
		respondError(c, response.CodeBadRequest, "交易号无效", nil)
		return
	}

	ctx := c.Request.Context()
	if state, hit, err := cache.GetPaymentState(ctx, transactionNo); err == nil && hit {
		response.Success(c, gin.H{
			"transaction_no": state.TransactionNo,
			"order_id":       state.OrderID,
			"status":         state.Status,
			"amount_fen":     state.AmountFen,
			"paid_at":        state.PaidAt,
		})
		return
	}

	payment, err := h.PaymentService.QueryPaymentStatus(ctx, transactionNo)
	if err != nil {
		respondPaymentQueryError(c, err)
		return
	}

	if err := cache.SetPaymentState(ctx, cache.BuildPaymentState(payment)); err != nil {
		requestLog(c).Warnw("payment_state_cache_write_failed", "transaction_no", transactionNo, "error", err)
	}
	response.Success(c, buildPaymentView(payment))
}
