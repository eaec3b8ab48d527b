package gateway

import (
	"context"
	"errors"
	"fmt"
)

// Payment statuses reported by the gateway.
const (
	StatusCreated    = "created"
	StatusAuthorized = "authorized"
	StatusCaptured   = "captured"
	StatusRefunded   = "refunded"
	StatusFailed     = "failed"
)

// CreateOrderRequest captures the information required to open an order with the gateway.
type CreateOrderRequest struct {
	Amount      int64
	Currency    string
	Receipt     string
	AutoCapture bool
}

// Order represents a gateway-side record of an amount the user is expected to pay.
type Order struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
	Status   string
}

// Payment is the authoritative state of a payment attempt as reported by the gateway.
type Payment struct {
	ID       string
	OrderID  string
	Amount   int64
	Currency string
	Status   string
	Captured bool
	Method   string
}

// Client abstracts the operations required from the upstream payment gateway.
type Client interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (Order, error)
	FetchPayment(ctx context.Context, paymentID string) (Payment, error)
	CapturePayment(ctx context.Context, paymentID string, amount int64, currency string) (Payment, error)
}

// Kind classifies gateway errors for branching without string matching.
type Kind string

// Gateway error kinds.
const (
	KindNetwork Kind = "network"
	KindAuth    Kind = "auth"
	KindInvalid Kind = "invalid"
	KindGateway Kind = "gateway"
)

// ErrAlreadyCaptured marks a capture the gateway rejected because the payment
// is already captured. Callers treat it as a successful no-op.
var ErrAlreadyCaptured = errors.New("gateway: payment already captured")

// Error carries the classified failure of a gateway call.
type Error struct {
	Kind       Kind
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("gateway: %s (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("gateway: %s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying transport error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Sanitized returns a client-safe description that never leaks upstream detail.
func (e *Error) Sanitized() string {
	if e == nil {
		return "payment gateway error"
	}
	switch e.Kind {
	case KindNetwork:
		return "payment gateway unreachable"
	case KindAuth:
		return "payment gateway rejected credentials"
	case KindInvalid:
		return "payment gateway rejected the request"
	default:
		return "payment gateway error"
	}
}

// Sanitize produces a client-safe message for any gateway call failure.
func Sanitize(err error) string {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Sanitized()
	}
	return "payment gateway error"
}
