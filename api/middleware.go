package api

import (
	"compress/gzip"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// DecompressRequests inflates gzip-encoded request bodies before they reach
// the JSON decoders. A body that claims gzip but is not readable as gzip is
// rejected up front.
func DecompressRequests() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !strings.Contains(strings.ToLower(req.Header.Get(echo.HeaderContentEncoding)), "gzip") {
				return next(c)
			}
			zr, err := gzip.NewReader(req.Body)
			if err != nil {
				return respondError(c, http.StatusBadRequest, "Validation failed", "Invalid gzip body")
			}
			defer zr.Close()
			req.Body = zr
			req.Header.Del(echo.HeaderContentEncoding)
			req.ContentLength = -1
			return next(c)
		}
	}
}
