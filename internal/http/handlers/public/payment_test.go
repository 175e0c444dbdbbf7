package public

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/minimall-next/internal/constants"
	"github.com/minimall-next/internal/models"
	"github.com/minimall-next/internal/payment/gateway"
	"github.com/minimall-next/internal/payment/sign"
	"github.com/minimall-next/internal/provider"
	"github.com/minimall-next/internal/repository"
	"github.com/minimall-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type fakeGateway struct {
	unifiedOrderFn func(ctx context.Context, input gateway.UnifiedOrderInput) (*gateway.UnifiedOrderResult, error)
	queryOrderFn   func(ctx context.Context, transactionNo string) (*gateway.QueryOrderResult, error)
}

func (f *fakeGateway) UnifiedOrder(ctx context.Context, input gateway.UnifiedOrderInput) (*gateway.UnifiedOrderResult, error) {
	if f.unifiedOrderFn != nil {
		return f.unifiedOrderFn(ctx, input)
	}
	return &gateway.UnifiedOrderResult{
		PrepayID: "prepay-" + input.TransactionNo,
		Raw:      map[string]interface{}{"prepay_id": "prepay-" + input.TransactionNo},
	}, nil
}

func (f *fakeGateway) QueryOrder(ctx context.Context, transactionNo string) (*gateway.QueryOrderResult, error) {
	if f.queryOrderFn != nil {
		return f.queryOrderFn(ctx, transactionNo)
	}
	return &gateway.QueryOrderResult{
		TransactionNo: transactionNo,
		TradeState:    constants.GatewayTradeStateNotPay,
	}, nil
}

func (f *fakeGateway) Refund(ctx context.Context, transactionNo, refundNo string, refundFen, totalFen int64) (*gateway.RefundResult, error) {
	return &gateway.RefundResult{RefundID: "refund-" + transactionNo, Status: "SUCCESS"}, nil
}

type publicHandlerFixture struct {
	handler *Handler
	engine  *sign.Engine
	db      *gorm.DB
}

func setupPublicPaymentHandlerTest(t *testing.T) *publicHandlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:public_payment_handler_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Order{}, &models.Payment{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	engine, err := sign.NewEngine(sign.Config{
		MerchantID: "1900000001",
		AppID:      "wx-test-app",
		APIKey:     "test-api-key-0123456789abcdef",
		SignType:   constants.SignTypeHMACSHA256,
	})
	if err != nil {
		t.Fatalf("new sign engine failed: %v", err)
	}

	paymentRepo := repository.NewPaymentRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	paymentService := service.NewPaymentService(paymentRepo, orderRepo, service.NewOrderService(orderRepo), &fakeGateway{}, engine, nil, 15)

	h := New(&provider.Container{
		PaymentRepo:    paymentRepo,
		OrderRepo:      orderRepo,
		PaymentService: paymentService,
	})
	return &publicHandlerFixture{handler: h, engine: engine, db: db}
}

func (f *publicHandlerFixture) createOrder(t *testing.T, order models.Order) models.Order {
	t.Helper()
	if order.OrderNo == "" {
		order.OrderNo = fmt.Sprintf("ORD%d", time.Now().UnixNano())
	}
	if order.Status == "" {
		order.Status = constants.OrderStatusPendingPayment
	}
	if err := f.db.Create(&order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

func postJSON(t *testing.T, path, body string) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return w, c
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) (int, map[string]interface{}) {
	t.Helper()
	var resp struct {
		StatusCode int             `json:"status_code"`
		Msg        string          `json:"msg"`
		Data       json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	var data map[string]interface{}
	if len(resp.Data) > 0 {
		_ = json.Unmarshal(resp.Data, &data)
	}
	return resp.StatusCode, data
}

func TestCreatePaymentHandlerReturnsClientPayload(t *testing.T) {
	f := setupPublicPaymentHandlerTest(t)
	order := f.createOrder(t, models.Order{ID: 42, UserID: 7, TotalAmountFen: 9900})

	w, c := postJSON(t, "/api/v1/payments", fmt.Sprintf(`{"order_id":%d,"user_id":7,"amount_fen":9900,"method":"wechat"}`, order.ID))
	f.handler.CreatePayment(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	code, data := decodeEnvelope(t, w)
	if code != 0 {
		t.Fatalf("expected status_code 0, got %d: %s", code, w.Body.String())
	}
	payment, ok := data["payment"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected payment object in response, got %v", data)
	}
	transactionNo, _ := payment["transaction_no"].(string)
	if !strings.HasPrefix(transactionNo, constants.TransactionNoPrefix) {
		t.Fatalf("unexpected transaction_no %q", transactionNo)
	}
	if prepayID, _ := data["prepay_id"].(string); prepayID == "" {
		t.Fatalf("expected prepay_id in response")
	}
	payload, ok := data["client_payload"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected client_payload in response, got %v", data)
	}
	for _, key := range []string{"timeStamp", "nonceStr", "package", "signType", "paySign"} {
		if value, _ := payload[key].(string); value == "" {
			t.Fatalf("expected client_payload key %q", key)
		}
	}
}

func TestCreatePaymentHandlerRejectsInvalidBody(t *testing.T) {
	f := setupPublicPaymentHandlerTest(t)

	w, c := postJSON(t, "/api/v1/payments", `{"order_id":1}`)
	f.handler.CreatePayment(c)

	code, _ := decodeEnvelope(t, w)
	if code != 400 {
		t.Fatalf("expected status_code 400, got %d", code)
	}
}

func TestCreatePaymentHandlerOrderNotFound(t *testing.T) {
	f := setupPublicPaymentHandlerTest(t)

	w, c := postJSON(t, "/api/v1/payments", `{"order_id":9999,"user_id":7,"amount_fen":9900,"method":"wechat"}`)
	f.handler.CreatePayment(c)

	code, _ := decodeEnvelope(t, w)
	if code != 404 {
		t.Fatalf("expected status_code 404, got %d", code)
	}
}

func TestGetPaymentByOrderHandler(t *testing.T) {
	f := setupPublicPaymentHandlerTest(t)
	order := f.createOrder(t, models.Order{ID: 42, UserID: 7, TotalAmountFen: 9900})
	if err := f.db.Create(&models.Payment{
		TransactionNo: "PAY42HANDLER0001",
		OrderID:       order.ID,
		UserID:        7,
		AmountFen:     9900,
		Method:        constants.PaymentMethodWechat,
		Status:        constants.PaymentStatusPending,
	}).Error; err != nil {
		t.Fatalf("seed payment failed: %v", err)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/payments/order/42", nil)
	c.Params = gin.Params{{Key: "order_id", Value: strconv.FormatUint(uint64(order.ID), 10)}}
	f.handler.GetPaymentByOrder(c)

	code, data := decodeEnvelope(t, w)
	if code != 0 {
		t.Fatalf("expected status_code 0, got %d: %s", code, w.Body.String())
	}
	if got, _ := data["transaction_no"].(string); got != "PAY42HANDLER0001" {
		t.Fatalf("expected transaction_no PAY42HANDLER0001, got %q", got)
	}
}

func TestGetPaymentByOrderHandlerRejectsBadID(t *testing.T) {
	f := setupPublicPaymentHandlerTest(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/payments/order/abc", nil)
	c.Params = gin.Params{{Key: "order_id", Value: "abc"}}
	f.handler.GetPaymentByOrder(c)

	code, _ := decodeEnvelope(t, w)
	if code != 400 {
		t.Fatalf("expected status_code 400, got %d", code)
	}
}

func TestGetPaymentStatusHandlerKeepsPendingWhenGatewaySaysNotPay(t *testing.T) {
	f := setupPublicPaymentHandlerTest(t)
	order := f.createOrder(t, models.Order{ID: 42, UserID: 7, TotalAmountFen: 9900})
	if err := f.db.Create(&models.Payment{
		TransactionNo: "PAY42STATUS0001",
		OrderID:       order.ID,
		UserID:        7,
		AmountFen:     9900,
		Method:        constants.PaymentMethodWechat,
		Status:        constants.PaymentStatusPending,
	}).Error; err != nil {
		t.Fatalf("seed payment failed: %v", err)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/payments/PAY42STATUS0001/status", nil)
	c.Params = gin.Params{{Key: "transaction_no", Value: "PAY42STATUS0001"}}
	f.handler.GetPaymentStatus(c)

	code, data := decodeEnvelope(t, w)
	if code != 0 {
		t.Fatalf("expected status_code 0, got %d: %s", code, w.Body.String())
	}
	if got, _ := data["status"].(string); got != constants.PaymentStatusPending {
		t.Fatalf("expected pending status, got %q", got)
	}
}

func TestGetPaymentStatusHandlerUnknownTransactionNo(t *testing.T) {
	f := setupPublicPaymentHandlerTest(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/payments/PAYUNKNOWN/status", nil)
	c.Params = gin.Params{{Key: "transaction_no", Value: "PAYUNKNOWN"}}
	f.handler.GetPaymentStatus(c)

	code, _ := decodeEnvelope(t, w)
	if code != 404 {
		t.Fatalf("expected status_code 404, got %d", code)
	}
}
