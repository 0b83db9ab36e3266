package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/middleware"
)

// RegisterBookings registers the seat map and the authenticated booking
// endpoints. limit throttles booking creation and cancellation.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	e.GET("/api/shows/:id/seats", h.SeatMap)

	g := e.Group("/api/bookings", middleware.JWTAuth(jwtSecret))
	g.POST("", h.Create, limit)
	g.GET("/my", h.Mine)
	g.GET("/:id", h.Get)
	g.POST("/:id/cancel", h.Cancel, limit)
}

// RegisterPayments registers checkout, status polling and the provider
// webhook. The webhook is authenticated by its signature, not a token.
func RegisterPayments(e *echo.Echo, h *handler.PaymentHandler, jwtSecret string) {
	g := e.Group("/api/payments", middleware.JWTAuth(jwtSecret))
	g.POST("/checkout", h.Checkout)
	g.GET("/status/:session_id", h.Status)
	e.POST("/api/webhook/stripe", h.Webhook)
}

// RegisterRealtime registers the seat update stream.
func RegisterRealtime(e *echo.Echo, s *handler.SeatStream) {
	e.GET("/ws/seats/:show_id", s.Serve)
}
