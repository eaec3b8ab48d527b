package payment

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/checkout-api/internal/common"
	"github.com/noah-isme/checkout-api/internal/gateway"
	"github.com/noah-isme/checkout-api/internal/session"
)

// Handler exposes the checkout, verification, and confirmation endpoints.
type Handler struct {
	Svc      *Service
	Sessions session.Store
	Logger   zerolog.Logger
}

// Checkout returns the data the gateway's client-side SDK needs to open the
// checkout form.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "payment handler unavailable", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"key_id":   h.Svc.KeyID,
		"amount":   h.Svc.Amount,
		"currency": h.Svc.Currency,
	})
}

// CreateOrder issues a gateway order for the configured amount. Failures are
// reported in the body with HTTP 200 so the entry form can render them inline.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "payment handler unavailable", nil)
		return
	}
	if _, ok := common.UserID(r.Context()); !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "login required", nil)
		return
	}
	order, err := h.Svc.CreateOrder(r.Context())
	if err != nil {
		h.Logger.Error().Err(err).Msg("order creation failed")
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
			return
		}
		common.JSON(w, http.StatusOK, map[string]any{
			"error": "order creation failed: " + gateway.Sanitize(err),
		})
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"order_id": order.ID,
		"amount":   order.Amount,
		"currency": order.Currency,
		"key_id":   h.Svc.KeyID,
	})
}

// Verify reconciles the client-submitted callback. The response is always
// HTTP 200; callers inspect the status field, matching the contract of the
// gateway's checkout handler.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil || h.Sessions == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "payment handler unavailable", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok || strings.TrimSpace(userID) == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "login required", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		common.JSON(w, http.StatusOK, map[string]string{
			"status": "failure",
			"error":  "invalid form payload",
		})
		return
	}
	cb := Callback{
		OrderID:   strings.TrimSpace(r.PostFormValue("razorpay_order_id")),
		PaymentID: strings.TrimSpace(r.PostFormValue("razorpay_payment_id")),
		Signature: strings.TrimSpace(r.PostFormValue("razorpay_signature")),
	}
	outcome := h.Svc.Reconcile(r.Context(), cb)
	if !outcome.Success {
		common.JSON(w, http.StatusOK, map[string]string{
			"status": "failure",
			"error":  outcome.Reason,
		})
		return
	}
	rec := session.Record{
		PaymentID: outcome.PaymentID,
		OrderID:   outcome.OrderID,
		Amount:    outcome.Amount,
		Method:    outcome.Method,
	}
	if err := h.Sessions.Record(r.Context(), userID, rec); err != nil {
		h.Logger.Error().Err(err).Str("payment_id", outcome.PaymentID).Msg("record session projection failed")
		common.JSON(w, http.StatusOK, map[string]string{
			"status": "failure",
			"error":  "session store unavailable",
		})
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"status":         "success",
		"payment_id":     outcome.PaymentID,
		"order_id":       outcome.OrderID,
		"payment_status": outcome.Status,
		"message":        "payment verified successfully",
	})
}

// Success renders the confirmation details exactly once. Without a pending
// record the caller is sent back to the checkout entry point.
func (h *Handler) Success(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Sessions == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "payment handler unavailable", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok || strings.TrimSpace(userID) == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "login required", nil)
		return
	}
	rec, err := h.Sessions.Consume(r.Context(), userID)
	if errors.Is(err, session.ErrNotFound) {
		http.Redirect(w, r, "/payment", http.StatusSeeOther)
		return
	}
	if err != nil {
		h.Logger.Error().Err(err).Msg("consume session projection failed")
		common.JSONError(w, http.StatusInternalServerError, "SESSION_ERROR", "session store unavailable", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"payment_id": rec.PaymentID,
		"order_id":   rec.OrderID,
		"amount":     rec.Amount,
		"method":     rec.Method,
	})
}

// Failure reports a static failure message.
func (h *Handler) Failure(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, map[string]string{
		"status":  "failure",
		"message": "payment failed, please try again",
	})
}
