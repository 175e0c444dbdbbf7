package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/minimall-next/internal/constants"
	"github.com/minimall-next/internal/payment/sign"
)

func buildTestEngine(t *testing.T) *sign.Engine {
	t.Helper()
	engine, err := sign.NewEngine(sign.Config{
		MerchantID: "mch-001",
		AppID:      "app-001",
		APIKey:     "test-api-key",
	})
	if err != nil {
		t.Fatalf("create engine failed: %v", err)
	}
	return engine
}

func buildTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BaseURL:    baseURL,
		NotifyURL:  "https://shop.example.com/api/v1/payments/callback",
		MerchantID: "mch-001",
		AppID:      "app-001",
	}, buildTestEngine(t))
	if err != nil {
		t.Fatalf("create client failed: %v", err)
	}
	return client
}

func TestUnifiedOrderSignsRequestAndParsesPrepayID(t *testing.T) {
	var gotAuthorization string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuthorization = r.Header.Get("Authorization")
		if r.URL.Path != "/v3/pay/transactions/jsapi" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"prepay_id":"prepay-42"}`))
	}))
	defer server.Close()

	client := buildTestClient(t, server.URL)
	result, err := client.UnifiedOrder(context.Background(), UnifiedOrderInput{
		TransactionNo: "PAY42TEST001",
		AmountFen:     9900,
		Method:        constants.PaymentMethodWechat,
		Description:   "order 42",
	})
	if err != nil {
		t.Fatalf("unified order failed: %v", err)
	}
	if result.PrepayID != "prepay-42" {
		t.Fatalf("unexpected prepay id: %s", result.PrepayID)
	}
	if !strings.Contains(gotAuthorization, `mchid="mch-001"`) {
		t.Fatalf("expected signed authorization header, got %s", gotAuthorization)
	}
}

func TestUnifiedOrderErrorStatusSurfacesResponseInvalid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":"SYSTEM_ERROR"}`))
	}))
	defer server.Close()

	client := buildTestClient(t, server.URL)
	_, err := client.UnifiedOrder(context.Background(), UnifiedOrderInput{
		TransactionNo: "PAY42TEST002",
		AmountFen:     9900,
		Method:        constants.PaymentMethodWechat,
	})
	if !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("expected ErrResponseInvalid, got %v", err)
	}
}

func TestUnifiedOrderNetworkErrorSurfacesRequestFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := buildTestClient(t, server.URL)
	_, err := client.UnifiedOrder(context.Background(), UnifiedOrderInput{
		TransactionNo: "PAY42TEST003",
		AmountFen:     9900,
		Method:        constants.PaymentMethodWechat,
	})
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}
}

func TestQueryOrderParsesTradeStateAndAmount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v3/pay/transactions/out-trade-no/PAY42TEST004") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"out_trade_no": "PAY42TEST004",
			"transaction_id": "GW-004",
			"trade_state": "SUCCESS",
			"amount": {"total": 9900}
		}`))
	}))
	defer server.Close()

	client := buildTestClient(t, server.URL)
	result, err := client.QueryOrder(context.Background(), "PAY42TEST004")
	if err != nil {
		t.Fatalf("query order failed: %v", err)
	}
	if result.TradeState != constants.GatewayTradeStateSuccess {
		t.Fatalf("unexpected trade state: %s", result.TradeState)
	}
	if result.GatewayTransactionID != "GW-004" {
		t.Fatalf("unexpected gateway transaction id: %s", result.GatewayTransactionID)
	}
	if result.AmountFen != 9900 {
		t.Fatalf("unexpected amount: %d", result.AmountFen)
	}
}

func TestRefundRejectsInvalidAmounts(t *testing.T) {
	client := buildTestClient(t, "https://gateway.example.com")

	if _, err := client.Refund(context.Background(), "PAY42TEST005", "RF001", 0, 9900); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected zero refund to be rejected, got %v", err)
	}
	if _, err := client.Refund(context.Background(), "PAY42TEST005", "RF001", 10000, 9900); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected oversized refund to be rejected, got %v", err)
	}
}

func TestToPaymentStatusMapping(t *testing.T) {
	cases := []struct {
		tradeState string
		status     string
		ok         bool
	}{
		{"SUCCESS", constants.PaymentStatusSuccess, true},
		{"REFUND", constants.PaymentStatusRefunded, true},
		{"NOTPAY", constants.PaymentStatusPending, true},
		{"USERPAYING", constants.PaymentStatusPending, true},
		{"CLOSED", constants.PaymentStatusFailed, true},
		{"REVOKED", constants.PaymentStatusFailed, true},
		{"PAYERROR", constants.PaymentStatusFailed, true},
		{"UNKNOWN", "", false},
	}
	for _, tc := range cases {
		status, ok := ToPaymentStatus(tc.tradeState)
		if status != tc.status || ok != tc.ok {
			t.Fatalf("trade state %s: got (%s, %v), expected (%s, %v)", tc.tradeState, status, ok, tc.status, tc.ok)
		}
	}
}
