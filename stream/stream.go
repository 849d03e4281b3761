// Package stream exposes board change notifications over server-sent events.
package stream

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard-api/events"
)

// Register wires the SSE endpoint on the given Echo instance. Clients pick a
// board with the board query parameter; defaultBoard is used when absent.
func Register(e *echo.Echo, broker *events.Broker, defaultBoard string, logger *log.Logger) {
	e.GET("/api/stream", streamEvents(broker, defaultBoard, logger))
}

func streamEvents(broker *events.Broker, defaultBoard string, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		board := c.QueryParam("board")
		if board == "" {
			board = defaultBoard
		}

		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}
		c.Response().WriteHeader(http.StatusOK)
		flusher.Flush()

		ch := broker.Subscribe(board)
		defer broker.Unsubscribe(board, ch)
		logger.Debugf("stream: observer joined board %s", board)

		ctx := c.Request().Context()
		for {
			select {
			case <-ctx.Done():
				logger.Debugf("stream: observer left board %s", board)
				return nil
			case env := <-ch:
				if _, err := fmt.Fprintf(c.Response(), "event: %s\ndata: %s\n\n", env.Event, env.Data); err != nil {
					logger.Debugf("stream: write to observer failed: %v", err)
					return nil
				}
				flusher.Flush()
			}
		}
	}
}
