package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard-api/board"
	"taskboard-api/domain"
)

type stubBoard struct {
	columns map[domain.ColumnID]domain.ColumnView
	task    domain.Task
	err     error

	lastCreate board.CreateTask
	lastPatch  board.UpdateTask
	lastMove   struct {
		taskID   string
		src, dst domain.ColumnID
		index    int
	}
	deleted []string
}

func (s *stubBoard) ListBoard(context.Context) (map[domain.ColumnID]domain.ColumnView, error) {
	return s.columns, s.err
}

func (s *stubBoard) Create(_ context.Context, in board.CreateTask) (domain.Task, error) {
	s.lastCreate = in
	return s.task, s.err
}

func (s *stubBoard) Get(context.Context, string) (domain.Task, error) {
	return s.task, s.err
}

func (s *stubBoard) Update(_ context.Context, _ string, patch board.UpdateTask) (domain.Task, error) {
	s.lastPatch = patch
	return s.task, s.err
}

func (s *stubBoard) Delete(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return s.err
}

func (s *stubBoard) Move(_ context.Context, taskID string, src, dst domain.ColumnID, index int) (domain.Task, error) {
	s.lastMove.taskID = taskID
	s.lastMove.src = src
	s.lastMove.dst = dst
	s.lastMove.index = index
	return s.task, s.err
}

type stubSeeder struct {
	summary domain.SeedSummary
	err     error
	cleared bool
}

func (s *stubSeeder) Seed(context.Context) (domain.SeedSummary, error) { return s.summary, s.err }
func (s *stubSeeder) Clear(context.Context) error {
	s.cleared = true
	return s.err
}

func newJSONContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeSuccess(t *testing.T, rec *httptest.ResponseRecorder) successBody {
	t.Helper()
	var body successBody
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return body
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return body
}

func TestListTasksEnvelope(t *testing.T) {
	store := &stubBoard{columns: map[domain.ColumnID]domain.ColumnView{
		domain.ColumnTodo:       {ID: domain.ColumnTodo, Title: "To Do", Tasks: []domain.Task{{ID: "t1"}}},
		domain.ColumnInProgress: {ID: domain.ColumnInProgress, Title: "In Progress", Tasks: []domain.Task{}},
		domain.ColumnDone:       {ID: domain.ColumnDone, Title: "Done", Tasks: []domain.Task{}},
	}}
	c, rec := newJSONContext(http.MethodGet, "/api/tasks", "")

	if err := listTasksHandler(store, log.New())(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeSuccess(t, rec)
	if body.StatusCode != http.StatusOK || body.Message != "Tasks retrieved successfully" {
		t.Fatalf("unexpected envelope: %#v", body)
	}
	columns, ok := body.Data.(map[string]any)
	if !ok || len(columns) != 3 {
		t.Fatalf("expected 3 columns in data, got %#v", body.Data)
	}
}

func TestListTasksInternalError(t *testing.T) {
	store := &stubBoard{err: errors.New("table offline")}
	c, rec := newJSONContext(http.MethodGet, "/api/tasks", "")

	if err := listTasksHandler(store, log.New())(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	body := decodeError(t, rec)
	if body.Message != "Internal server error" {
		t.Fatalf("internal details must not leak, got %q", body.Message)
	}
	if strings.Contains(rec.Body.String(), "table offline") {
		t.Fatal("internal error text leaked to the client")
	}
}

func TestCreateTask(t *testing.T) {
	store := &stubBoard{task: domain.Task{ID: "t1", Title: "hello"}}
	c, rec := newJSONContext(http.MethodPost, "/api/tasks",
		`{"title":"hello","priority":"high","columnId":"todo","tags":["a","b"]}`)

	if err := createTaskHandler(store, NewAuth(nil, "", ""), log.New())(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	body := decodeSuccess(t, rec)
	if body.StatusCode != http.StatusCreated || body.Message != "Task created successfully" {
		t.Fatalf("unexpected envelope: %#v", body)
	}
	if store.lastCreate.Title != "hello" || store.lastCreate.Priority != domain.PriorityHigh {
		t.Fatalf("unexpected input: %#v", store.lastCreate)
	}
	if store.lastCreate.CreatedBy != "" {
		t.Fatalf("expected anonymous creator, got %q", store.lastCreate.CreatedBy)
	}
}

func TestCreateTaskAlreadyCompleted(t *testing.T) {
	store := &stubBoard{task: domain.Task{ID: "t1", Title: "done already", IsCompleted: true}}
	c, rec := newJSONContext(http.MethodPost, "/api/tasks",
		`{"title":"done already","isCompleted":true}`)

	if err := createTaskHandler(store, NewAuth(nil, "", ""), log.New())(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if !store.lastCreate.IsCompleted {
		t.Fatalf("completed flag was dropped: %#v", store.lastCreate)
	}
}

func TestCreateTaskIgnoresLegacyStatusField(t *testing.T) {
	store := &stubBoard{task: domain.Task{ID: "t1", Title: "x"}}
	c, rec := newJSONContext(http.MethodPost, "/api/tasks",
		`{"title":"x","status":"inProgress"}`)

	if err := createTaskHandler(store, NewAuth(nil, "", ""), log.New())(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if store.lastCreate.ColumnID != "" {
		t.Fatalf("status must not select a column, got %q", store.lastCreate.ColumnID)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	cases := map[string]struct {
		body    string
		message string
	}{
		"missing_title":  {`{"description":"x"}`, "Task title is required"},
		"title_too_long": {`{"title":"` + strings.Repeat("a", 101) + `"}`, "Task title cannot exceed 100 characters"},
		"bad_priority":   {`{"title":"x","priority":"urgent"}`, "Priority must be one of low, medium, high"},
		"bad_column":     {`{"title":"x","columnId":"backlog"}`, "Column ID must be one of todo, inProgress, done"},
		"too_many_tags":  {`{"title":"x","tags":["1","2","3","4","5","6"]}`, "Tags cannot exceed 5 items"},
		"unknown_field":  {`{"title":"x","bogus":true}`, "Invalid request body"},
		"bad_due_date":   {`{"title":"x","dueDate":"tomorrow"}`, "Due date must be a valid ISO 8601 timestamp"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			store := &stubBoard{}
			c, rec := newJSONContext(http.MethodPost, "/api/tasks", tc.body)

			if err := createTaskHandler(store, NewAuth(nil, "", ""), log.New())(c); err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			body := decodeError(t, rec)
			if body.Message != "Validation failed" {
				t.Fatalf("unexpected message %q", body.Message)
			}
			found := false
			for _, detail := range body.Errors {
				if detail == tc.message {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected detail %q in %v", tc.message, body.Errors)
			}
		})
	}
}

func TestGetTaskNotFound(t *testing.T) {
	store := &stubBoard{err: domain.ErrTaskNotFound}
	c, rec := newJSONContext(http.MethodGet, "/api/tasks/missing", "")
	c.SetParamNames("id")
	c.SetParamValues("missing")

	if err := getTaskHandler(store, log.New())(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	body := decodeError(t, rec)
	if body.StatusCode != http.StatusNotFound || body.Message != "Task not found" {
		t.Fatalf("unexpected envelope: %#v", body)
	}
}

func TestUpdateTaskRejectsOrderingFields(t *testing.T) {
	store := &stubBoard{}
	c, rec := newJSONContext(http.MethodPut, "/api/tasks/t1", `{"columnId":"done"}`)
	c.SetParamNames("id")
	c.SetParamValues("t1")

	if err := updateTaskHandler(store, log.New())(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for ordering field in update, got %d", rec.Code)
	}
}

func TestUpdateTaskPatch(t *testing.T) {
	store := &stubBoard{task: domain.Task{ID: "t1", Title: "renamed"}}
	c, rec := newJSONContext(http.MethodPut, "/api/tasks/t1", `{"title":"renamed","dueDate":""}`)
	c.SetParamNames("id")
	c.SetParamValues("t1")

	if err := updateTaskHandler(store, log.New())(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if store.lastPatch.Title == nil || *store.lastPatch.Title != "renamed" {
		t.Fatalf("title patch missing: %#v", store.lastPatch)
	}
	if !store.lastPatch.ClearDue {
		t.Fatal("empty dueDate should clear the due date")
	}
}

func TestUpdateTaskIgnoresLegacyStatusField(t *testing.T) {
	store := &stubBoard{task: domain.Task{ID: "t1"}}
	c, rec := newJSONContext(http.MethodPut, "/api/tasks/t1", `{"status":"done"}`)
	c.SetParamNames("id")
	c.SetParamValues("t1")

	if err := updateTaskHandler(store, log.New())(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if store.lastPatch.Title != nil || store.lastPatch.Priority != nil ||
		store.lastPatch.IsCompleted != nil || store.lastPatch.Tags != nil || store.lastPatch.ClearDue {
		t.Fatalf("status must not patch anything, got %#v", store.lastPatch)
	}
}

func TestDeleteTask(t *testing.T) {
	store := &stubBoard{}
	c, rec := newJSONContext(http.MethodDelete, "/api/tasks/t1", "")
	c.SetParamNames("id")
	c.SetParamValues("t1")

	if err := deleteTaskHandler(store, log.New())(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeSuccess(t, rec)
	if body.Message != "Task deleted successfully" {
		t.Fatalf("unexpected message %q", body.Message)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "t1" {
		t.Fatalf("unexpected deletes: %v", store.deleted)
	}
}

func TestMoveTask(t *testing.T) {
	store := &stubBoard{task: domain.Task{ID: "t1", ColumnID: domain.ColumnDone, Position: 1}}
	c, rec := newJSONContext(http.MethodPatch, "/api/tasks/move",
		`{"taskId":"t1","sourceColumnId":"todo","destinationColumnId":"done","newIndex":5}`)

	if err := moveTaskHandler(store, log.New())(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if store.lastMove.taskID != "t1" || store.lastMove.src != domain.ColumnTodo ||
		store.lastMove.dst != domain.ColumnDone || store.lastMove.index != 5 {
		t.Fatalf("unexpected move call: %#v", store.lastMove)
	}
	body := decodeSuccess(t, rec)
	data, ok := body.Data.(map[string]any)
	if !ok {
		t.Fatalf("expected object data, got %#v", body.Data)
	}
	if data["message"] != "Task moved successfully" {
		t.Fatalf("unexpected data message: %#v", data)
	}
	if _, ok := data["task"]; !ok {
		t.Fatalf("expected task in data, got %#v", data)
	}
}

func TestMoveTaskValidation(t *testing.T) {
	cases := map[string]struct {
		body    string
		message string
	}{
		"missing_task_id":  {`{"sourceColumnId":"todo","destinationColumnId":"done","newIndex":0}`, "Task ID is required"},
		"missing_index":    {`{"taskId":"t1","sourceColumnId":"todo","destinationColumnId":"done"}`, "New index is required"},
		"negative_index":   {`{"taskId":"t1","sourceColumnId":"todo","destinationColumnId":"done","newIndex":-1}`, "New index must be a non-negative integer"},
		"bad_source":       {`{"taskId":"t1","sourceColumnId":"nope","destinationColumnId":"done","newIndex":0}`, "Source column ID must be one of todo, inProgress, done"},
		"bad_destination":  {`{"taskId":"t1","sourceColumnId":"todo","destinationColumnId":"nope","newIndex":0}`, "Destination column ID must be one of todo, inProgress, done"},
		"malformed_fields": {`{"taskId":"t1","somewhere":"else"}`, "Invalid request body"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			store := &stubBoard{}
			c, rec := newJSONContext(http.MethodPatch, "/api/tasks/move", tc.body)

			if err := moveTaskHandler(store, log.New())(c); err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			body := decodeError(t, rec)
			found := false
			for _, detail := range body.Errors {
				if detail == tc.message {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected detail %q in %v", tc.message, body.Errors)
			}
			if store.lastMove.taskID != "" {
				t.Fatal("service must not be called when validation fails")
			}
		})
	}
}

func TestMoveTaskNotFound(t *testing.T) {
	store := &stubBoard{err: domain.ErrTaskNotFound}
	c, rec := newJSONContext(http.MethodPatch, "/api/tasks/move",
		`{"taskId":"nope","sourceColumnId":"todo","destinationColumnId":"done","newIndex":0}`)

	if err := moveTaskHandler(store, log.New())(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestMoveTaskStorageFailure(t *testing.T) {
	store := &stubBoard{err: errors.New("write failed")}
	c, rec := newJSONContext(http.MethodPatch, "/api/tasks/move",
		`{"taskId":"t1","sourceColumnId":"todo","destinationColumnId":"done","newIndex":0}`)

	if err := moveTaskHandler(store, log.New())(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	body := decodeError(t, rec)
	if body.Message != "Failed to move task" {
		t.Fatalf("unexpected message %q", body.Message)
	}
}

func TestSeedHandlers(t *testing.T) {
	seeder := &stubSeeder{summary: domain.SeedSummary{Tasks: 10}}

	c, rec := newJSONContext(http.MethodPost, "/api/tasks/seed", "")
	if err := seedHandler(seeder, log.New())(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	body := decodeSuccess(t, rec)
	if body.Message != "Database seeded successfully" {
		t.Fatalf("unexpected message %q", body.Message)
	}

	c, rec = newJSONContext(http.MethodDelete, "/api/tasks/seed", "")
	if err := clearHandler(seeder, log.New())(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !seeder.cleared {
		t.Fatal("clear was not invoked")
	}
}

func TestHealthHandler(t *testing.T) {
	c, rec := newJSONContext(http.MethodGet, "/health", "")
	if err := healthHandler()(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Server is running") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestDecompressRequests(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(`{"title":"compressed"}`)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderContentEncoding, "gzip")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	store := &stubBoard{task: domain.Task{ID: "t1"}}
	handler := DecompressRequests()(createTaskHandler(store, NewAuth(nil, "", ""), log.New()))
	if err := handler(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if store.lastCreate.Title != "compressed" {
		t.Fatalf("body was not inflated: %#v", store.lastCreate)
	}
}

func TestDecompressRequestsRejectsBadGzip(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader("plain text"))
	req.Header.Set(echo.HeaderContentEncoding, "gzip")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := DecompressRequests()(func(echo.Context) error { return nil })
	if err := handler(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
