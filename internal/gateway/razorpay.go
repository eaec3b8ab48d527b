package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultBaseURL = "https://api.razorpay.com"

// Razorpay is an HTTP client for the Razorpay REST API.
type Razorpay struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	HTTP      *http.Client
}

// NewRazorpay constructs a Razorpay client with an instrumented transport.
func NewRazorpay(keyID, keySecret, baseURL string, timeout time.Duration) *Razorpay {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Razorpay{
		KeyID:     keyID,
		KeySecret: keySecret,
		BaseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTP: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type orderWire struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type paymentWire struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Captured bool   `json:"captured"`
	Method   string `json:"method"`
}

type errorWire struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder opens a new order with the gateway.
func (c *Razorpay) CreateOrder(ctx context.Context, req CreateOrderRequest) (Order, error) {
	capture := 0
	if req.AutoCapture {
		capture = 1
	}
	body := map[string]any{
		"amount":          req.Amount,
		"currency":        req.Currency,
		"receipt":         req.Receipt,
		"payment_capture": capture,
	}
	var wire orderWire
	if err := c.do(ctx, http.MethodPost, "/v1/orders", body, &wire); err != nil {
		return Order{}, err
	}
	return Order{
		ID:       wire.ID,
		Amount:   wire.Amount,
		Currency: wire.Currency,
		Receipt:  wire.Receipt,
		Status:   wire.Status,
	}, nil
}

// FetchPayment retrieves the authoritative state of a payment.
func (c *Razorpay) FetchPayment(ctx context.Context, paymentID string) (Payment, error) {
	var wire paymentWire
	path := "/v1/payments/" + url.PathEscape(paymentID)
	if err := c.do(ctx, http.MethodGet, path, nil, &wire); err != nil {
		return Payment{}, err
	}
	return paymentFromWire(wire), nil
}

// CapturePayment finalises an authorized payment for the given amount.
// A capture the gateway rejects as already performed returns ErrAlreadyCaptured.
func (c *Razorpay) CapturePayment(ctx context.Context, paymentID string, amount int64, currency string) (Payment, error) {
	body := map[string]any{
		"amount":   amount,
		"currency": currency,
	}
	var wire paymentWire
	path := "/v1/payments/" + url.PathEscape(paymentID) + "/capture"
	if err := c.do(ctx, http.MethodPost, path, body, &wire); err != nil {
		return Payment{}, err
	}
	return paymentFromWire(wire), nil
}

func paymentFromWire(wire paymentWire) Payment {
	return Payment{
		ID:       wire.ID,
		OrderID:  wire.OrderID,
		Amount:   wire.Amount,
		Currency: wire.Currency,
		Status:   wire.Status,
		Captured: wire.Captured,
		Method:   wire.Method,
	}
}

func (c *Razorpay) do(ctx context.Context, method, path string, body, out any) error {
	base := c.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindInvalid, Message: "encode request", Err: err}
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, base+path, reader)
	if err != nil {
		return &Error{Kind: KindInvalid, Message: "build request", Err: err}
	}
	req.SetBasicAuth(c.KeyID, c.KeySecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Message: "gateway call failed", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return c.classify(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Kind: KindGateway, Message: "decode response", HTTPStatus: resp.StatusCode, Err: err}
		}
	}
	return nil
}

func (c *Razorpay) classify(resp *http.Response) error {
	var wire errorWire
	_ = json.NewDecoder(resp.Body).Decode(&wire)
	code := wire.Error.Code
	desc := strings.TrimSpace(wire.Error.Description)
	if desc == "" {
		desc = http.StatusText(resp.StatusCode)
	}
	if isAlreadyCaptured(desc) {
		return fmt.Errorf("%w: %s", ErrAlreadyCaptured, desc)
	}
	kind := KindGateway
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		kind = KindAuth
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		kind = KindInvalid
	}
	return &Error{Kind: kind, Code: code, Message: desc, HTTPStatus: resp.StatusCode}
}

func isAlreadyCaptured(description string) bool {
	lower := strings.ToLower(description)
	return strings.Contains(lower, "already") && strings.Contains(lower, "captured")
}
