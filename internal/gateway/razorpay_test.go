package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-api/internal/gateway"
)

func newClient(t *testing.T, handler http.HandlerFunc) *gateway.Razorpay {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return gateway.NewRazorpay("rzp_test_key", "secret", srv.URL, time.Second)
}

func TestCreateOrder(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/orders", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "rzp_test_key", user)
		require.Equal(t, "secret", pass)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.EqualValues(t, 100, body["amount"])
		require.Equal(t, "INR", body["currency"])
		require.EqualValues(t, 1, body["payment_capture"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":       "order_abc",
			"amount":   100,
			"currency": "INR",
			"receipt":  body["receipt"],
			"status":   "created",
		})
	})

	order, err := client.CreateOrder(context.Background(), gateway.CreateOrderRequest{
		Amount:      100,
		Currency:    "INR",
		Receipt:     "rcpt_1",
		AutoCapture: true,
	})
	require.NoError(t, err)
	require.Equal(t, "order_abc", order.ID)
	require.Equal(t, int64(100), order.Amount)
	require.Equal(t, gateway.StatusCreated, order.Status)
}

func TestFetchPayment(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/v1/payments/pay_123", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":       "pay_123",
			"order_id": "order_abc",
			"amount":   100,
			"currency": "INR",
			"status":   "authorized",
			"captured": false,
			"method":   "card",
		})
	})

	pay, err := client.FetchPayment(context.Background(), "pay_123")
	require.NoError(t, err)
	require.Equal(t, "pay_123", pay.ID)
	require.Equal(t, "order_abc", pay.OrderID)
	require.Equal(t, gateway.StatusAuthorized, pay.Status)
	require.False(t, pay.Captured)
	require.Equal(t, "card", pay.Method)
}

func TestCapturePayment(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/payments/pay_123/capture", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.EqualValues(t, 100, body["amount"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":       "pay_123",
			"order_id": "order_abc",
			"amount":   100,
			"currency": "INR",
			"status":   "captured",
			"captured": true,
			"method":   "card",
		})
	})

	pay, err := client.CapturePayment(context.Background(), "pay_123", 100, "INR")
	require.NoError(t, err)
	require.True(t, pay.Captured)
	require.Equal(t, gateway.StatusCaptured, pay.Status)
}

func TestCaptureAlreadyCaptured(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"code":        "BAD_REQUEST_ERROR",
				"description": "This payment has already been captured",
			},
		})
	})

	_, err := client.CapturePayment(context.Background(), "pay_123", 100, "INR")
	require.ErrorIs(t, err, gateway.ErrAlreadyCaptured)
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		kind   gateway.Kind
	}{
		{"auth", http.StatusUnauthorized, gateway.KindAuth},
		{"invalid", http.StatusBadRequest, gateway.KindInvalid},
		{"gateway", http.StatusInternalServerError, gateway.KindGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"code": "E", "description": "upstream says no"},
				})
			})

			_, err := client.FetchPayment(context.Background(), "pay_123")
			require.Error(t, err)
			var gwErr *gateway.Error
			require.ErrorAs(t, err, &gwErr)
			require.Equal(t, tc.kind, gwErr.Kind)
			require.Equal(t, tc.status, gwErr.HTTPStatus)
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := gateway.NewRazorpay("rzp_test_key", "secret", url, time.Second)
	_, err := client.FetchPayment(context.Background(), "pay_123")
	require.Error(t, err)
	var gwErr *gateway.Error
	require.ErrorAs(t, err, &gwErr)
	require.Equal(t, gateway.KindNetwork, gwErr.Kind)
}

func TestSanitizeNeverLeaksUpstreamDetail(t *testing.T) {
	err := &gateway.Error{Kind: gateway.KindInvalid, Code: "E", Message: "secret internal detail"}
	require.NotContains(t, gateway.Sanitize(err), "secret internal detail")
}
