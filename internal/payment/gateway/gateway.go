package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/minimall-next/internal/constants"
	"github.com/minimall-next/internal/payment/sign"

	"github.com/google/uuid"
)

var (
	ErrConfigInvalid   = errors.New("gateway config invalid")
	ErrRequestFailed   = errors.New("gateway request failed")
	ErrResponseInvalid = errors.New("gateway response invalid")
)

const defaultTimeoutSeconds = 10

// Config 网关客户端配置
type Config struct {
	BaseURL        string
	NotifyURL      string
	TimeoutSeconds int
	MerchantID     string
	AppID          string
}

// Client 支付网关客户端。所有请求带签名 Authorization 头，
// 支付方式通过请求路径区分，不区分客户端实例。
type Client struct {
	cfg        Config
	engine     *sign.Engine
	httpClient *http.Client
}

// NewClient 创建网关客户端
func NewClient(cfg Config, engine *sign.Engine) (*Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" || strings.TrimSpace(cfg.MerchantID) == "" {
		return nil, ErrConfigInvalid
	}
	if engine == nil {
		return nil, ErrConfigInvalid
	}
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = defaultTimeoutSeconds
	}
	return &Client{
		cfg:    cfg,
		engine: engine,
		httpClient: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
	}, nil
}

// UnifiedOrderInput 统一下单输入
type UnifiedOrderInput struct {
	TransactionNo string
	AmountFen     int64
	Method        string
	Description   string
	ClientIP      string
}

// UnifiedOrderResult 统一下单返回
type UnifiedOrderResult struct {
	PrepayID string
	CodeURL  string
	Raw      map[string]interface{}
}

// QueryOrderResult 订单查询返回
type QueryOrderResult struct {
	TransactionNo        string
	GatewayTransactionID string
	TradeState           string
	AmountFen            int64
	Raw                  map[string]interface{}
}

// RefundResult 退款返回
type RefundResult struct {
	RefundID string
	Status   string
	Raw      map[string]interface{}
}

// UnifiedOrder 统一下单
func (c *Client) UnifiedOrder(ctx context.Context, input UnifiedOrderInput) (*UnifiedOrderResult, error) {
	if strings.TrimSpace(input.TransactionNo) == "" || input.AmountFen <= 0 {
		return nil, fmt.Errorf("%w: invalid unified order input", ErrConfigInvalid)
	}
	payload := map[string]interface{}{
		"mchid":        c.cfg.MerchantID,
		"appid":        c.cfg.AppID,
		"out_trade_no": input.TransactionNo,
		"description":  input.Description,
		"notify_url":   c.cfg.NotifyURL,
		"amount": map[string]interface{}{
			"total": input.AmountFen,
		},
	}
	if ip := strings.TrimSpace(input.ClientIP); ip != "" {
		payload["payer_client_ip"] = ip
	}

	raw, err := c.doJSON(ctx, http.MethodPost, c.transactionsPath(input.Method), payload)
	if err != nil {
		return nil, err
	}
	result := &UnifiedOrderResult{
		PrepayID: readString(raw, "prepay_id"),
		CodeURL:  readString(raw, "code_url"),
		Raw:      raw,
	}
	if result.PrepayID == "" && result.CodeURL == "" {
		return nil, fmt.Errorf("%w: missing prepay_id", ErrResponseInvalid)
	}
	return result, nil
}

// QueryOrder 按商户交易号查询网关订单
func (c *Client) QueryOrder(ctx context.Context, transactionNo string) (*QueryOrderResult, error) {
	transactionNo = strings.TrimSpace(transactionNo)
	if transactionNo == "" {
		return nil, fmt.Errorf("%w: transaction no is empty", ErrConfigInvalid)
	}
	path := fmt.Sprintf("/v3/pay/transactions/out-trade-no/%s?mchid=%s", transactionNo, c.cfg.MerchantID)
	raw, err := c.doJSON(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	tradeState := strings.ToUpper(readString(raw, "trade_state"))
	if tradeState == "" {
		return nil, fmt.Errorf("%w: missing trade_state", ErrResponseInvalid)
	}
	amountFen, _ := readInt64(raw, "amount", "total")
	return &QueryOrderResult{
		TransactionNo:        pickFirstNonEmpty(readString(raw, "out_trade_no"), transactionNo),
		GatewayTransactionID: readString(raw, "transaction_id"),
		TradeState:           tradeState,
		AmountFen:            amountFen,
		Raw:                  raw,
	}, nil
}

// Refund 请求网关退款
func (c *Client) Refund(ctx context.Context, transactionNo, refundNo string, refundFen, totalFen int64) (*RefundResult, error) {
	if strings.TrimSpace(transactionNo) == "" || strings.TrimSpace(refundNo) == "" {
		return nil, fmt.Errorf("%w: invalid refund input", ErrConfigInvalid)
	}
	if refundFen <= 0 || refundFen > totalFen {
		return nil, fmt.Errorf("%w: invalid refund amount", ErrConfigInvalid)
	}
	payload := map[string]interface{}{
		"out_trade_no":  transactionNo,
		"out_refund_no": refundNo,
		"amount": map[string]interface{}{
			"refund": refundFen,
			"total":  totalFen,
		},
	}
	raw, err := c.doJSON(ctx, http.MethodPost, "/v3/refund/domestic/refunds", payload)
	if err != nil {
		return nil, err
	}
	return &RefundResult{
		RefundID: readString(raw, "refund_id"),
		Status:   strings.ToUpper(readString(raw, "status")),
		Raw:      raw,
	}, nil
}

// ToPaymentStatus 把网关交易状态映射为本地支付状态。
func ToPaymentStatus(tradeState string) (string, bool) {
	state := strings.ToUpper(strings.TrimSpace(tradeState))
	switch state {
	case constants.GatewayTradeStateSuccess:
		return constants.PaymentStatusSuccess, true
	case constants.GatewayTradeStateRefund:
		return constants.PaymentStatusRefunded, true
	case constants.GatewayTradeStateNotPay, constants.GatewayTradeStateUserPaying:
		return constants.PaymentStatusPending, true
	case constants.GatewayTradeStateClosed, constants.GatewayTradeStateRevoked, constants.GatewayTradeStatePayError:
		return constants.PaymentStatusFailed, true
	default:
		return "", false
	}
}

func (c *Client) transactionsPath(method string) string {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case constants.PaymentMethodAlipay:
		return "/v3/pay/alipay/transactions"
	case constants.PaymentMethodCard:
		return "/v3/pay/card/transactions"
	default:
		return "/v3/pay/transactions/jsapi"
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload map[string]interface{}) (map[string]interface{}, error) {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: encode request failed", ErrRequestFailed)
		}
		body = encoded
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.Header.Set("Accept", "application/json")
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	signPath := path
	if idx := strings.Index(signPath, "?"); idx >= 0 {
		signPath = signPath[:idx]
	}
	nonce := strings.ReplaceAll(uuid.New().String(), "-", "")
	authorization, err := c.engine.SignRequest(method, signPath, body, time.Now().Unix(), nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: sign request failed", ErrRequestFailed)
	}
	req.Header.Set("Authorization", authorization)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// 超时或网络错误都视为结果未知，由调用方保持 pending
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, fmt.Errorf("%w: read response failed", ErrResponseInvalid)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(respBody) > 0 {
			return nil, fmt.Errorf("%w: status %d body %s", ErrResponseInvalid, resp.StatusCode, strings.TrimSpace(string(respBody)))
		}
		return nil, fmt.Errorf("%w: status %d", ErrResponseInvalid, resp.StatusCode)
	}
	if len(respBody) == 0 {
		return nil, fmt.Errorf("%w: empty response body", ErrResponseInvalid)
	}

	raw := map[string]interface{}{}
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode response failed", ErrResponseInvalid)
	}
	return raw, nil
}

func readString(raw map[string]interface{}, keys ...string) string {
	if len(keys) == 0 {
		return ""
	}
	var current interface{} = raw
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			return ""
		}
		mapValue, ok := current.(map[string]interface{})
		if !ok {
			return ""
		}
		next, ok := mapValue[key]
		if !ok {
			return ""
		}
		current = next
	}
	switch value := current.(type) {
	case string:
		return strings.TrimSpace(value)
	default:
		return ""
	}
}

func readInt64(raw map[string]interface{}, keys ...string) (int64, bool) {
	if len(keys) == 0 {
		return 0, false
	}
	var current interface{} = raw
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			return 0, false
		}
		mapValue, ok := current.(map[string]interface{})
		if !ok {
			return 0, false
		}
		next, ok := mapValue[key]
		if !ok {
			return 0, false
		}
		current = next
	}
	switch value := current.(type) {
	case float64:
		return int64(value), true
	case int64:
		return value, true
	case json.Number:
		parsed, err := value.Int64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func pickFirstNonEmpty(values ...string) string {
	for _, val := range values {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
