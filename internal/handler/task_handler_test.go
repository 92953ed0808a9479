package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"taskmanagerx/internal/model"
	"taskmanagerx/internal/service/task"
)

// fakeTaskAPI scripts the service layer and records the arguments it saw.
type fakeTaskAPI struct {
	page *task.Page
	err  error

	gotFilter   model.TaskFilter
	gotPage     int
	gotPageSize int
	gotTitle    string
	gotPatch    model.TaskPatch
	gotDone     *bool
}

func (f *fakeTaskAPI) ListPage(_ context.Context, _ int, filter model.TaskFilter, page, pageSize int) (*task.Page, error) {
	f.gotFilter = filter
	f.gotPage = page
	f.gotPageSize = pageSize
	return f.page, f.err
}

func (f *fakeTaskAPI) Create(_ context.Context, userID int, title, description string, dueDate *time.Time) (*model.Task, error) {
	f.gotTitle = title
	if strings.TrimSpace(title) == "" {
		return nil, task.ErrEmptyTitle
	}
	if f.err != nil {
		return nil, f.err
	}
	return &model.Task{ID: 1, UserID: userID, Title: title, Description: description, DueDate: dueDate}, nil
}

func (f *fakeTaskAPI) Update(_ context.Context, userID, taskID int, patch model.TaskPatch) (*model.Task, error) {
	f.gotPatch = patch
	if f.err != nil {
		return nil, f.err
	}
	return &model.Task{ID: taskID, UserID: userID}, nil
}

func (f *fakeTaskAPI) Delete(_ context.Context, _, _ int) error {
	return f.err
}

func (f *fakeTaskAPI) SetDone(_ context.Context, userID, taskID int, done bool) (*model.Task, error) {
	f.gotDone = &done
	if f.err != nil {
		return nil, f.err
	}
	return &model.Task{ID: taskID, UserID: userID, IsDone: done}, nil
}

func newTaskTest(api *fakeTaskAPI, userID int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewTaskHandler(api, zap.NewNop())
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	})
	r.GET("/tasks", h.ListTasks)
	r.POST("/tasks", h.CreateTask)
	r.PATCH("/tasks/:id", h.UpdateTask)
	r.DELETE("/tasks/:id", h.DeleteTask)
	r.POST("/tasks/:id/toggle", h.ToggleTask)
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListTasksDefaults(t *testing.T) {
	api := &fakeTaskAPI{page: &task.Page{Page: 1, TotalPages: 1, PageSize: 5}}
	r := newTaskTest(api, 1)

	w := doRequest(t, r, http.MethodGet, "/tasks", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if api.gotFilter != model.FilterAll || api.gotPage != 1 || api.gotPageSize != 5 {
		t.Fatalf("defaults: filter=%s page=%d page_size=%d", api.gotFilter, api.gotPage, api.gotPageSize)
	}
}

func TestListTasksInvalidFilter(t *testing.T) {
	r := newTaskTest(&fakeTaskAPI{}, 1)

	w := doRequest(t, r, http.MethodGet, "/tasks?filter=bogus", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestListTasksRejectsUnregistered(t *testing.T) {
	// A verified-but-unregistered session has user_id 0.
	r := newTaskTest(&fakeTaskAPI{}, 0)

	w := doRequest(t, r, http.MethodGet, "/tasks", "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestCreateTask(t *testing.T) {
	api := &fakeTaskAPI{}
	r := newTaskTest(api, 1)

	w := doRequest(t, r, http.MethodPost, "/tasks", `{"title": "buy milk", "due_date": "2026-09-15"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", w.Code, w.Body.String())
	}

	var created model.Task
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Title != "buy milk" || created.DueDate == nil {
		t.Fatalf("created = %+v", created)
	}
}

func TestCreateTaskEmptyTitle(t *testing.T) {
	r := newTaskTest(&fakeTaskAPI{}, 1)

	w := doRequest(t, r, http.MethodPost, "/tasks", `{"title": "  "}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCreateTaskBadDueDate(t *testing.T) {
	r := newTaskTest(&fakeTaskAPI{}, 1)

	w := doRequest(t, r, http.MethodPost, "/tasks", `{"title": "x", "due_date": "next tuesday"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestUpdateTaskNotFound(t *testing.T) {
	api := &fakeTaskAPI{err: pgx.ErrNoRows}
	r := newTaskTest(api, 1)

	w := doRequest(t, r, http.MethodPatch, "/tasks/99", `{"title": "renamed"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestUpdateTaskRejectsBlankTitle(t *testing.T) {
	r := newTaskTest(&fakeTaskAPI{}, 1)

	w := doRequest(t, r, http.MethodPatch, "/tasks/1", `{"title": ""}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestDeleteTask(t *testing.T) {
	r := newTaskTest(&fakeTaskAPI{}, 1)

	w := doRequest(t, r, http.MethodDelete, "/tasks/3", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestDeleteTaskInvalidID(t *testing.T) {
	r := newTaskTest(&fakeTaskAPI{}, 1)

	w := doRequest(t, r, http.MethodDelete, "/tasks/abc", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestToggleTaskNegatesClientValue(t *testing.T) {
	api := &fakeTaskAPI{}
	r := newTaskTest(api, 1)

	// The client sends the state it last saw; the server stores the opposite.
	w := doRequest(t, r, http.MethodPost, "/tasks/3/toggle", `{"is_done": false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if api.gotDone == nil || *api.gotDone != true {
		t.Fatalf("service received done = %v, want true", api.gotDone)
	}
}
