package public

import (
	"context"
	"errors"
	"net/http"

	"github.com/minimall-next/internal/cache"
	"github.com/minimall-next/internal/constants"
	"github.com/minimall-next/internal/service"

	"github.com/gin-gonic/gin"
)

// HandlePaymentCallback 处理网关异步通知
func (h *Handler) HandlePaymentCallback(c *gin.Context) {
	log := requestLog(c)

	var envelope service.CallbackEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		log.Warnw("payment_callback_body_invalid", "error", err)
		respondPaymentCallback(c, false)
		return
	}

	log.Infow("payment_callback_received",
		"transaction_no", envelope.OutTradeNo,
		"trade_state", envelope.TradeState,
		"client_ip", c.ClientIP(),
	)

	if err := h.PaymentService.HandleCallback(envelope); err != nil {
		log.Warnw("payment_callback_handle_failed",
			"transaction_no", envelope.OutTradeNo,
			"error", err,
		)
		if errors.Is(err, service.ErrSignatureInvalid) {
			log.Errorw("payment_callback_signature_invalid",
				"transaction_no", envelope.OutTradeNo,
				"client_ip", c.ClientIP(),
			)
		}
		respondPaymentCallback(c, false)
		return
	}

	// 状态已变化，旧快照作废
	if err := cache.DelPaymentState(context.Background(), envelope.OutTradeNo); err != nil {
		log.Warnw("payment_state_cache_evict_failed", "transaction_no", envelope.OutTradeNo, "error", err)
	}
	respondPaymentCallback(c, true)
}

func respondPaymentCallback(c *gin.Context, success bool) {
	if success {
		c.JSON(http.StatusOK, gin.H{
			"code":    constants.GatewayCallbackSuccess,
			"message": "成功",
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"code":    constants.GatewayCallbackFail,
		"message": "失败",
	})
}
