package api

import (
	"StockCast/internal/service/ratelimit"
	xhttp "StockCast/pkg/http"

	"github.com/labstack/echo/v4"
)

// RateLimit rejects clients that ran out of tokens, keyed by real IP.
// A nil limiter disables the check.
func RateLimit(l *ratelimit.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if l != nil && !l.Allow(c.RealIP()) {
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError())
			}
			return next(c)
		}
	}
}
