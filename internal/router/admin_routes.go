package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
)

// RegisterAdmin registers catalog management and reporting under
// /api/admin. Every route requires the admin role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/api/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.POST("/movies", h.CreateMovie)
	g.PUT("/movies/:id", h.UpdateMovie)
	g.DELETE("/movies/:id", h.DeleteMovie)

	g.POST("/theaters", h.CreateTheater)
	g.PUT("/theaters/:id", h.UpdateTheater)
	g.DELETE("/theaters/:id", h.DeleteTheater)

	g.POST("/shows", h.CreateShow)
	g.PUT("/shows/:id", h.UpdateShow)
	g.DELETE("/shows/:id", h.DeleteShow)

	g.GET("/bookings", h.ListBookings)
	g.GET("/analytics", h.Analytics)
}
