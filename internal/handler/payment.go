package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/payment"
)

const maxWebhookBytes = 64 << 10

type PaymentHandler struct {
	Payments *payment.Service
	Log      *zap.Logger
}

func NewPaymentHandler(svc *payment.Service, log *zap.Logger) *PaymentHandler {
	if svc == nil {
		panic("nil service passed to NewPaymentHandler")
	}
	return &PaymentHandler{Payments: svc, Log: log}
}

// Checkout starts a hosted checkout for ?booking_id, returning to
// ?origin_url afterwards.
func (h *PaymentHandler) Checkout(c echo.Context) error {
	bookingID := c.QueryParam("booking_id")
	if bookingID == "" {
		return badRequest(c, "booking_id required")
	}
	sess, err := h.Payments.Checkout(c.Request().Context(), middleware.Identity(c), bookingID, c.QueryParam("origin_url"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"url": sess.URL, "session_id": sess.ID})
}

func (h *PaymentHandler) Status(c echo.Context) error {
	tx, err := h.Payments.Status(c.Request().Context(), middleware.Identity(c), c.Param("session_id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, tx)
}

// Webhook receives provider notifications. The raw body is needed for
// signature verification, so it is read before any binding.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBytes))
	if err != nil {
		return badRequest(c, "unreadable body")
	}
	if err := h.Payments.HandleWebhook(c.Request().Context(), body, c.Request().Header.Get("Stripe-Signature")); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "success"})
}
