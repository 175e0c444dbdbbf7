package public

import (
	"errors"

	"github.com/minimall-next/internal/http/response"
	"github.com/minimall-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

var paymentCreateErrorRules = []mappedHandlerError{
	{target: service.ErrPaymentInvalid, code: response.CodeBadRequest, msg: "支付参数无效"},
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, msg: "订单不存在"},
	{target: service.ErrOrderAlreadyPaid, code: response.CodeBadRequest, msg: "订单已支付"},
	{target: service.ErrOrderStatusInvalid, code: response.CodeBadRequest, msg: "订单状态不允许支付"},
	{target: service.ErrPaymentGatewayUnavailable, code: response.CodeBadRequest, msg: "支付网关暂不可用"},
	{target: service.ErrPaymentGatewayResponseInvalid, code: response.CodeBadRequest, msg: "支付网关响应异常"},
}

var paymentQueryErrorRules = []mappedHandlerError{
	{target: service.ErrPaymentInvalid, code: response.CodeBadRequest, msg: "支付参数无效"},
	{target: service.ErrPaymentNotFound, code: response.CodeNotFound, msg: "支付记录不存在"},
	{target: service.ErrAmountMismatch, code: response.CodeBadRequest, msg: "支付金额不一致"},
}

func respondPaymentCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, paymentCreateErrorRules, response.CodeInternal, "创建支付失败")
}

func respondPaymentQueryError(c *gin.Context, err error) {
	respondWithMappedError(c, err, paymentQueryErrorRules, response.CodeInternal, "查询支付失败")
}
