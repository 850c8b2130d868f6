package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout bounds each request, including the related-record lookups
// a validation performs. A handler still running at the deadline gets a
// 504 naming the CRF it was working on.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			form := c.Param("form")
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			done := make(chan error, 1)
			go func() {
				done <- next(c)
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return ctx.Err()
				}
				return echo.NewHTTPError(http.StatusGatewayTimeout, timeoutMessage(form, timeout))
			}
		}
	}
}

func timeoutMessage(form string, timeout time.Duration) string {
	if form == "" {
		return fmt.Sprintf("request did not finish within %s", timeout)
	}
	return fmt.Sprintf("%s record was not validated within %s; it has not been stored", form, timeout)
}
