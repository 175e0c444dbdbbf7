package admin

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/minimall-next/internal/http/response"
	"github.com/minimall-next/internal/models"
	"github.com/minimall-next/internal/repository"
	"github.com/minimall-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminPaymentView 管理端支付响应结构
type AdminPaymentView struct {
	ID                   uint          `json:"id"`
	TransactionNo        string        `json:"transaction_no"`
	OrderID              uint          `json:"order_id"`
	UserID               uint          `json:"user_id"`
	AmountFen            int64         `json:"amount_fen"`
	Amount               *models.Money `json:"amount"`
	Method               string        `json:"method"`
	Status               string        `json:"status"`
	FailureReason        string        `json:"failure_reason,omitempty"`
	GatewayTransactionID string        `json:"gateway_transaction_id,omitempty"`
	RefundFen            int64         `json:"refund_fen"`
	PaidAt               *time.Time    `json:"paid_at,omitempty"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

func buildAdminPaymentView(payment *models.Payment) AdminPaymentView {
	amount := payment.AmountYuan()
	return AdminPaymentView{
		ID:                   payment.ID,
		TransactionNo:        payment.TransactionNo,
		OrderID:              payment.OrderID,
		UserID:               payment.UserID,
		AmountFen:            payment.AmountFen,
		Amount:               &amount,
		Method:               payment.Method,
		Status:               payment.Status,
		FailureReason:        payment.FailureReason,
		GatewayTransactionID: payment.GatewayTransactionID,
		RefundFen:            payment.RefundFen,
		PaidAt:               payment.PaidAt,
		CreatedAt:            payment.CreatedAt,
		UpdatedAt:            payment.UpdatedAt,
	}
}

// GetAdminPayments 获取支付列表 (Admin)
func (h *Handler) GetAdminPayments(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.PaymentListFilter{
		Page:          page,
		PageSize:      pageSize,
		TransactionNo: strings.TrimSpace(c.Query("transaction_no")),
		Method:        strings.TrimSpace(c.Query("method")),
		Status:        strings.TrimSpace(c.Query("status")),
	}
	if userID, err := strconv.ParseUint(c.Query("user_id"), 10, 64); err == nil {
		filter.UserID = uint(userID)
	}
	if orderID, err := strconv.ParseUint(c.Query("order_id"), 10, 64); err == nil {
		filter.OrderID = uint(orderID)
	}
	if from, err := time.Parse(time.RFC3339, c.Query("created_from")); err == nil {
		filter.CreatedFrom = &from
	}
	if to, err := time.Parse(time.RFC3339, c.Query("created_to")); err == nil {
		filter.CreatedTo = &to
	}

	payments, total, err := h.PaymentService.ListPayments(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "查询支付列表失败", err)
		return
	}

	views := make([]AdminPaymentView, 0, len(payments))
	for i := range payments {
		views = append(views, buildAdminPaymentView(&payments[i]))
	}
	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, views, pagination)
}

// GetAdminPayment 获取支付详情 (Admin)
func (h *Handler) GetAdminPayment(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "支付记录编号无效", nil)
		return
	}

	payment, getErr := h.PaymentService.GetPayment(uint(id))
	if getErr != nil {
		if errors.Is(getErr, service.ErrPaymentNotFound) {
			respondError(c, response.CodeNotFound, "支付记录不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "查询支付记录失败", getErr)
		return
	}
	response.Success(c, buildAdminPaymentView(payment))
}

// RefundPaymentRequest 退款请求
type RefundPaymentRequest struct {
	RefundFen int64 `json:"refund_fen" binding:"required"`
}

// RefundPayment 对支付发起退款 (Admin)
func (h *Handler) RefundPayment(c *gin.Context) {
	adminID, ok := currentAdminID(c)
	if !ok {
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "支付记录编号无效", nil)
		return
	}

	var req RefundPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	payment, refundErr := h.PaymentService.Refund(service.RefundInput{
		PaymentID: uint(id),
		RefundFen: req.RefundFen,
		Context:   c.Request.Context(),
	})
	if refundErr != nil {
		switch {
		case errors.Is(refundErr, service.ErrPaymentNotFound):
			respondError(c, response.CodeNotFound, "支付记录不存在", nil)
		case errors.Is(refundErr, service.ErrPaymentStatusInvalid):
			respondError(c, response.CodeBadRequest, "支付状态不允许退款", nil)
		case errors.Is(refundErr, service.ErrRefundExceedsOriginal):
			respondError(c, response.CodeBadRequest, "退款金额超出原支付金额", nil)
		case errors.Is(refundErr, service.ErrPaymentGatewayUnavailable):
			respondError(c, response.CodeBadRequest, "支付网关暂不可用", refundErr)
		case errors.Is(refundErr, service.ErrPaymentGatewayResponseInvalid):
			respondError(c, response.CodeBadRequest, "支付网关响应异常", refundErr)
		default:
			respondError(c, response.CodeInternal, "退款失败", refundErr)
		}
		return
	}

	requestLog(c).Infow("admin_payment_refunded",
		"admin_id", adminID,
		"payment_id", payment.ID,
		"transaction_no", payment.TransactionNo,
		"refund_fen", req.RefundFen,
	)
	response.Success(c, buildAdminPaymentView(payment))
}
