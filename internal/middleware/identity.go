package middleware

import "github.com/labstack/echo/v4"

// UserID returns the authenticated subject stored by JWTAuth, or "anon"
// when the request carries no identity.
func UserID(c echo.Context) string {
	if s, ok := c.Get(ctxUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}

// Role returns the role stored by JWTAuth, or "".
func Role(c echo.Context) string {
	s, _ := c.Get(ctxRole).(string)
	return s
}
