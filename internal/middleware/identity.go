package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// Identity returns the caller authenticated by JWTAuth. Outside an
// authenticated route it is the zero Identity.
func Identity(c echo.Context) model.Identity {
	id, _ := c.Get(CtxUserID).(string)
	role, _ := c.Get(CtxRole).(string)
	return model.Identity{UserID: id, Role: role}
}

// subject is the rate limit and log key for the caller, "anon" when
// unauthenticated.
func subject(c echo.Context) string {
	if id := Identity(c).UserID; id != "" {
		return id
	}
	return "anon"
}
