package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/checkout-api/internal/common"
	"github.com/noah-isme/checkout-api/internal/gateway"
	"github.com/noah-isme/checkout-api/internal/obs"
)

var validate = validator.New()

// Callback is the untrusted client-submitted confirmation of a payment attempt.
// Field names mirror the wire contract with the gateway's checkout library.
type Callback struct {
	OrderID   string `validate:"required"`
	PaymentID string `validate:"required"`
	Signature string `validate:"required"`
}

// Wire names for callback form fields, used when enumerating missing inputs.
var callbackFieldNames = map[string]string{
	"OrderID":   "razorpay_order_id",
	"PaymentID": "razorpay_payment_id",
	"Signature": "razorpay_signature",
}

func (cb Callback) missingFields() []string {
	err := validate.Struct(cb)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"callback"}
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name, ok := callbackFieldNames[fe.Field()]
		if !ok {
			name = fe.Field()
		}
		missing = append(missing, name)
	}
	return missing
}

// Outcome is the classified result of reconciling one callback submission.
type Outcome struct {
	Success   bool
	PaymentID string
	OrderID   string
	Amount    int64
	Method    string
	Status    string
	Reason    string
}

// Service coordinates order issuance and callback reconciliation.
type Service struct {
	Gateway  gateway.Client
	KeyID    string
	Secret   string
	Amount   int64
	Currency string
	Logger   zerolog.Logger
}

// CreateOrder opens a gateway order for the configured fixed amount with
// auto-capture enabled. The call is never retried; a failed create is
// propagated to the caller for display.
func (s *Service) CreateOrder(ctx context.Context) (gateway.Order, error) {
	var zero gateway.Order
	if s == nil || s.Gateway == nil {
		return zero, errors.New("payment service not configured")
	}
	ctx, span := otel.Tracer("payment.Service").Start(ctx, "PaymentService.CreateOrder")
	defer span.End()

	result := "error"
	defer func() {
		span.SetAttributes(attribute.String("payment.order.result", result))
		if obs.PaymentOrderTotal != nil {
			obs.PaymentOrderTotal.WithLabelValues(result).Inc()
		}
	}()

	if s.Amount <= 0 {
		return zero, common.NewAppError("PAYMENT_MISCONFIGURED", fmt.Sprintf("invalid payment amount %d", s.Amount), http.StatusInternalServerError, nil)
	}
	if strings.TrimSpace(s.Currency) == "" {
		return zero, common.NewAppError("PAYMENT_MISCONFIGURED", "payment currency not configured", http.StatusInternalServerError, nil)
	}
	order, err := s.Gateway.CreateOrder(ctx, gateway.CreateOrderRequest{
		Amount:      s.Amount,
		Currency:    s.Currency,
		Receipt:     "rcpt_" + uuid.NewString(),
		AutoCapture: true,
	})
	if err != nil {
		span.RecordError(err)
		return zero, err
	}
	result = "success"
	span.SetAttributes(attribute.String("order.id", order.ID))
	return order, nil
}

// Reconcile verifies a callback and confirms the claimed payment against the
// gateway. It performs exactly one status fetch and at most one capture per
// invocation; the capture completes before the final classification.
func (s *Service) Reconcile(ctx context.Context, cb Callback) Outcome {
	if s == nil || s.Gateway == nil {
		return failure("payment service not configured")
	}
	ctx, span := otel.Tracer("payment.Service").Start(ctx, "PaymentService.Reconcile")
	defer span.End()

	result := "failure"
	defer func() {
		span.SetAttributes(attribute.String("payment.verify.result", result))
		if obs.PaymentVerifyTotal != nil {
			obs.PaymentVerifyTotal.WithLabelValues(result).Inc()
		}
	}()

	if missing := cb.missingFields(); len(missing) > 0 {
		return failure("missing required parameters: " + strings.Join(missing, ", "))
	}
	if !VerifySignature(cb.OrderID, cb.PaymentID, cb.Signature, s.Secret) {
		s.Logger.Warn().
			Str("order_id", cb.OrderID).
			Str("payment_id", cb.PaymentID).
			Msg("callback signature mismatch, possible tampering")
		return failure("signature verification failed")
	}
	span.SetAttributes(
		attribute.String("order.id", cb.OrderID),
		attribute.String("payment.id", cb.PaymentID),
	)

	pay, err := s.Gateway.FetchPayment(ctx, cb.PaymentID)
	if err != nil {
		span.RecordError(err)
		s.Logger.Error().Err(err).Str("payment_id", cb.PaymentID).Msg("fetch payment failed")
		return failure(gateway.Sanitize(err))
	}

	if pay.Status == gateway.StatusAuthorized && !pay.Captured {
		captured, err := s.Gateway.CapturePayment(ctx, cb.PaymentID, pay.Amount, pay.Currency)
		switch {
		case err == nil:
			pay = captured
		case errors.Is(err, gateway.ErrAlreadyCaptured):
			pay.Captured = true
			pay.Status = gateway.StatusCaptured
		default:
			span.RecordError(err)
			s.Logger.Error().Err(err).Str("payment_id", cb.PaymentID).Msg("capture failed")
			return failure(gateway.Sanitize(err))
		}
	}

	switch pay.Status {
	case gateway.StatusCaptured, gateway.StatusAuthorized:
		result = "success"
		paymentID := pay.ID
		if paymentID == "" {
			paymentID = cb.PaymentID
		}
		return Outcome{
			Success:   true,
			PaymentID: paymentID,
			OrderID:   cb.OrderID,
			Amount:    pay.Amount,
			Method:    pay.Method,
			Status:    pay.Status,
		}
	default:
		return Outcome{
			Status: pay.Status,
			Reason: fmt.Sprintf("payment not successful: status %s", pay.Status),
		}
	}
}

func failure(reason string) Outcome {
	return Outcome{Reason: reason}
}
