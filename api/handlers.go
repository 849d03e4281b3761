package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

var startedAt = time.Now()

// Register mounts the task routes and the health endpoint on e.
func Register(e *echo.Echo, b Board, s Seeder, auth Authenticator, logger *log.Logger) {
	e.GET("/health", healthHandler())

	g := e.Group("/api/tasks")
	g.GET("", listTasksHandler(b, logger))
	g.POST("", createTaskHandler(b, auth, logger))
	g.PATCH("/move", moveTaskHandler(b, logger))
	g.POST("/seed", seedHandler(s, logger))
	g.DELETE("/seed", clearHandler(s, logger))
	g.GET("/:id", getTaskHandler(b, logger))
	g.PUT("/:id", updateTaskHandler(b, logger))
	g.DELETE("/:id", deleteTaskHandler(b, logger))
}

func healthHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"success":   true,
			"message":   "Server is running",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"uptime":    time.Since(startedAt).Seconds(),
		})
	}
}

func listTasksHandler(b Board, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		columns, err := b.ListBoard(c.Request().Context())
		if err != nil {
			return respondDomainError(c, logger, err)
		}
		return respond(c, http.StatusOK, columns, "Tasks retrieved successfully")
	}
}

func createTaskHandler(b Board, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createTaskRequest
		if err := decodeBody(c.Request(), &req); err != nil {
			return respondError(c, http.StatusBadRequest, "Validation failed", "Invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return respondError(c, http.StatusBadRequest, "Validation failed", fieldMessages(err)...)
		}
		userID := ""
		if auth != nil {
			id, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				logger.Debugf("create: anonymous request: %v", err)
			} else {
				userID = id
			}
		}
		in, err := req.toInput(userID)
		if err != nil {
			return respondError(c, http.StatusBadRequest, "Validation failed", err.Error())
		}
		task, err := b.Create(c.Request().Context(), in)
		if err != nil {
			return respondDomainError(c, logger, err)
		}
		return respond(c, http.StatusCreated, task, "Task created successfully")
	}
}

func getTaskHandler(b Board, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		task, err := b.Get(c.Request().Context(), c.Param("id"))
		if err != nil {
			return respondDomainError(c, logger, err)
		}
		return respond(c, http.StatusOK, task, "Task retrieved successfully")
	}
}

func updateTaskHandler(b Board, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req updateTaskRequest
		if err := decodeBody(c.Request(), &req); err != nil {
			return respondError(c, http.StatusBadRequest, "Validation failed", "Invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return respondError(c, http.StatusBadRequest, "Validation failed", fieldMessages(err)...)
		}
		patch, err := req.toPatch()
		if err != nil {
			return respondError(c, http.StatusBadRequest, "Validation failed", err.Error())
		}
		task, err := b.Update(c.Request().Context(), c.Param("id"), patch)
		if err != nil {
			return respondDomainError(c, logger, err)
		}
		return respond(c, http.StatusOK, task, "Task updated successfully")
	}
}

func deleteTaskHandler(b Board, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := b.Delete(c.Request().Context(), c.Param("id")); err != nil {
			return respondDomainError(c, logger, err)
		}
		return respond(c, http.StatusOK, nil, "Task deleted successfully")
	}
}

func moveTaskHandler(b Board, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		metrics, ctx := newMoveRequestMetrics(c.Request().Context(), logger)

		decodeStart := time.Now()
		var req moveTaskRequest
		if err := decodeBody(c.Request(), &req); err != nil {
			metrics.SetErrorStage("decode")
			metrics.Log(http.StatusBadRequest, err)
			return respondError(c, http.StatusBadRequest, "Validation failed", "Invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			metrics.SetErrorStage("validate")
			metrics.Log(http.StatusBadRequest, err)
			return respondError(c, http.StatusBadRequest, "Validation failed", fieldMessages(err)...)
		}
		metrics.ObserveDecode(time.Since(decodeStart))
		metrics.SetMove(req.SourceColumnID, req.DestinationColumnID, *req.NewIndex)

		reconcileStart := time.Now()
		task, err := b.Move(ctx, req.TaskID,
			domain.ColumnID(req.SourceColumnID), domain.ColumnID(req.DestinationColumnID), *req.NewIndex)
		metrics.ObserveReconcile(time.Since(reconcileStart))
		if err != nil {
			metrics.SetErrorStage("reconcile")
			if isNotFound(err) {
				metrics.Log(http.StatusNotFound, err)
				return respondError(c, http.StatusNotFound, "Task not found")
			}
			metrics.Log(http.StatusInternalServerError, err)
			logger.Errorf("move %s failed: %v", req.TaskID, err)
			return respondError(c, http.StatusInternalServerError, "Failed to move task")
		}

		metrics.Log(http.StatusOK, nil)
		return respond(c, http.StatusOK, map[string]any{
			"task":    task,
			"message": "Task moved successfully",
		}, "Task moved successfully")
	}
}

func seedHandler(s Seeder, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		summary, err := s.Seed(c.Request().Context())
		if err != nil {
			return respondDomainError(c, logger, err)
		}
		return respond(c, http.StatusCreated, summary, "Database seeded successfully")
	}
}

func clearHandler(s Seeder, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := s.Clear(c.Request().Context()); err != nil {
			return respondDomainError(c, logger, err)
		}
		return respond(c, http.StatusOK, nil, "Database cleared successfully")
	}
}
