// Package middleware holds the Echo middleware shared by the floor routes:
// bearer-token authentication, role checks, rate limiting and request
// logging.
package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// JWTAuth validates a Bearer access token signed with secret (HS256) and
// stores the subject and role claims in the request context under
// "user_id" and "role".
func JWTAuth(secret string) echo.MiddlewareFunc {
	// The outer function runs once when the middleware is registered; the
	// inner one runs for every request.
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Require an "Authorization: Bearer <token>" header.
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			// Strip the scheme to get the raw token.
			raw := strings.TrimPrefix(auth, "Bearer ")

			// Parse and verify the signature.  Only HMAC keys are accepted
			// and the algorithm is pinned to HS256, so a token cannot pick
			// a weaker one.  Expiry is checked by the parser.
			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			// MapClaims is the default claims type of jwt.Parse.
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			// numeric subjects decode as float64; keep everything as string
			switch sub := claims["sub"].(type) {
			case string:
				c.Set(ctxUserID, sub)
			case float64:
				c.Set(ctxUserID, fmt.Sprintf("%.0f", sub))
			}
			// A token without a role passes authentication but fails
			// every RequireRole check.
			if role, ok := claims["role"].(string); ok {
				c.Set(ctxRole, role)
			}
			// Hand over to the next handler in the chain.
			return next(c)
		}
	}
}
