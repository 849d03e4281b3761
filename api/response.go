package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

// successBody is the envelope every successful response carries. The HTTP
// status of the response always mirrors StatusCode.
type successBody struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
}

// errorBody is the envelope for failures. Errors holds per-field validation
// messages and is omitted for plain failures.
type errorBody struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors,omitempty"`
}

func respond(c echo.Context, status int, data any, message string) error {
	return c.JSON(status, successBody{StatusCode: status, Data: data, Message: message})
}

func respondError(c echo.Context, status int, message string, details ...string) error {
	return c.JSON(status, errorBody{StatusCode: status, Message: message, Errors: details})
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrTaskNotFound)
}

// respondDomainError maps service errors onto the wire taxonomy. A missing
// task, including one referenced by a stale mutation, surfaces as 404;
// everything else is an opaque 500.
func respondDomainError(c echo.Context, logger *log.Logger, err error) error {
	if errors.Is(err, domain.ErrTaskNotFound) {
		return respondError(c, http.StatusNotFound, "Task not found")
	}
	logger.Errorf("%s %s failed: %v", c.Request().Method, c.Path(), err)
	return respondError(c, http.StatusInternalServerError, "Internal server error")
}
