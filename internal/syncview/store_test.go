package syncview

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"taskmanagerx/internal/feed"
	"taskmanagerx/internal/model"
)

// fakeSource is an in-memory Source backed by a task slice. Hooks allow
// individual tests to inject failures or interleave refetches.
type fakeSource struct {
	tasks []model.Task

	countErr error
	fetchErr error

	onFetch func()

	fetchCalls  int
	createCalls int
	lastDone    *bool
}

func (f *fakeSource) filtered(filter model.TaskFilter) []model.Task {
	var out []model.Task
	for _, t := range f.tasks {
		switch filter {
		case model.FilterCompleted:
			if !t.IsDone {
				continue
			}
		case model.FilterPending:
			if t.IsDone {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

func (f *fakeSource) CountTasks(_ context.Context, filter model.TaskFilter) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return len(f.filtered(filter)), nil
}

func (f *fakeSource) FetchTasks(_ context.Context, filter model.TaskFilter, offset, limit int) ([]model.Task, error) {
	f.fetchCalls++
	if f.onFetch != nil {
		f.onFetch()
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	matching := f.filtered(filter)
	if offset >= len(matching) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matching) {
		end = len(matching)
	}
	return matching[offset:end], nil
}

func (f *fakeSource) CreateTask(_ context.Context, title, description string, dueDate *time.Time) error {
	f.createCalls++
	f.tasks = append(f.tasks, model.Task{
		ID:          len(f.tasks) + 1,
		Title:       title,
		Description: description,
		DueDate:     dueDate,
	})
	return nil
}

func (f *fakeSource) UpdateTask(_ context.Context, taskID int, patch model.TaskPatch) error {
	for i := range f.tasks {
		if f.tasks[i].ID == taskID {
			if patch.Title != nil {
				f.tasks[i].Title = *patch.Title
			}
			if patch.IsDone != nil {
				f.tasks[i].IsDone = *patch.IsDone
			}
			return nil
		}
	}
	return errors.New("no such task")
}

func (f *fakeSource) DeleteTask(_ context.Context, taskID int) error {
	for i := range f.tasks {
		if f.tasks[i].ID == taskID {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return errors.New("no such task")
}

func (f *fakeSource) SetTaskDone(_ context.Context, taskID int, done bool) error {
	f.lastDone = &done
	return f.UpdateTask(context.Background(), taskID, model.TaskPatch{IsDone: &done})
}

func seedTasks(n int) []model.Task {
	tasks := make([]model.Task, 0, n)
	for i := 1; i <= n; i++ {
		tasks = append(tasks, model.Task{ID: i, Title: fmt.Sprintf("task %d", i)})
	}
	return tasks
}

func newTestStore(src *fakeSource, notify func(string)) *Store {
	return NewStore(src, 5, notify, zap.NewNop())
}

func TestRefreshPaginates(t *testing.T) {
	src := &fakeSource{tasks: seedTasks(12)}
	store := newTestStore(src, nil)
	ctx := context.Background()

	store.Refresh(ctx)
	snap := store.Snapshot()
	if snap.TotalPages != 3 {
		t.Fatalf("TotalPages = %d, want 3", snap.TotalPages)
	}
	if len(snap.Tasks) != 5 {
		t.Fatalf("page 1 has %d tasks, want 5", len(snap.Tasks))
	}

	store.SetPage(ctx, 3)
	snap = store.Snapshot()
	if snap.Page != 3 {
		t.Fatalf("Page = %d, want 3", snap.Page)
	}
	if len(snap.Tasks) != 2 {
		t.Fatalf("last page has %d tasks, want 2", len(snap.Tasks))
	}
}

func TestEmptySourceHasOnePage(t *testing.T) {
	src := &fakeSource{}
	store := newTestStore(src, nil)

	store.Refresh(context.Background())
	snap := store.Snapshot()
	if snap.TotalPages != 1 || snap.Page != 1 {
		t.Fatalf("got page %d/%d, want 1/1", snap.Page, snap.TotalPages)
	}
	if len(snap.Tasks) != 0 {
		t.Fatalf("got %d tasks, want 0", len(snap.Tasks))
	}
}

func TestSetPageClamps(t *testing.T) {
	src := &fakeSource{tasks: seedTasks(7)}
	store := newTestStore(src, nil)
	ctx := context.Background()

	store.SetPage(ctx, 99)
	if snap := store.Snapshot(); snap.Page != 2 {
		t.Fatalf("Page = %d, want clamp to 2", snap.Page)
	}

	store.SetPage(ctx, -3)
	if snap := store.Snapshot(); snap.Page != 1 {
		t.Fatalf("Page = %d, want clamp to 1", snap.Page)
	}
}

func TestSetPageAdvancesBeforeInitialLoad(t *testing.T) {
	src := &fakeSource{tasks: seedTasks(7)}
	store := newTestStore(src, nil)

	// No refetch has run yet, so the cached total is still the initial 1. The
	// upper bound must come from the fresh count, not the cached value.
	store.SetPage(context.Background(), 2)
	snap := store.Snapshot()
	if snap.Page != 2 || snap.TotalPages != 2 {
		t.Fatalf("got page %d/%d, want 2/2", snap.Page, snap.TotalPages)
	}
	if len(snap.Tasks) != 2 {
		t.Fatalf("page 2 has %d tasks, want 2", len(snap.Tasks))
	}
}

func TestDeleteLastTaskOnLastPageClampsDown(t *testing.T) {
	src := &fakeSource{tasks: seedTasks(6)}
	store := newTestStore(src, nil)
	ctx := context.Background()

	store.SetPage(ctx, 2)
	snap := store.Snapshot()
	if snap.Page != 2 || len(snap.Tasks) != 1 {
		t.Fatalf("setup: page %d with %d tasks, want page 2 with 1", snap.Page, len(snap.Tasks))
	}

	if err := store.DeleteTask(ctx, snap.Tasks[0].ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	snap = store.Snapshot()
	if snap.Page != 1 || snap.TotalPages != 1 {
		t.Fatalf("after delete: page %d/%d, want 1/1", snap.Page, snap.TotalPages)
	}
	if len(snap.Tasks) != 5 {
		t.Fatalf("after delete: %d tasks, want 5", len(snap.Tasks))
	}
}

func TestToggleUnderPendingFilterRemovesTask(t *testing.T) {
	src := &fakeSource{tasks: seedTasks(3)}
	store := newTestStore(src, nil)
	ctx := context.Background()

	store.SetFilter(ctx, model.FilterPending)
	snap := store.Snapshot()
	if len(snap.Tasks) != 3 {
		t.Fatalf("pending view has %d tasks, want 3", len(snap.Tasks))
	}

	if err := store.ToggleCompletion(ctx, 2, false); err != nil {
		t.Fatalf("ToggleCompletion: %v", err)
	}
	if src.lastDone == nil || *src.lastDone != true {
		t.Fatalf("source received done = %v, want true", src.lastDone)
	}

	snap = store.Snapshot()
	if len(snap.Tasks) != 2 {
		t.Fatalf("pending view has %d tasks after toggle, want 2", len(snap.Tasks))
	}
	for _, task := range snap.Tasks {
		if task.ID == 2 {
			t.Fatal("completed task still visible under pending filter")
		}
	}
}

func TestSetFilterResetsToPageOne(t *testing.T) {
	src := &fakeSource{tasks: seedTasks(12)}
	store := newTestStore(src, nil)
	ctx := context.Background()

	store.SetPage(ctx, 3)
	store.SetFilter(ctx, model.FilterPending)
	if snap := store.Snapshot(); snap.Page != 1 {
		t.Fatalf("Page = %d after filter change, want 1", snap.Page)
	}
}

func TestAddTaskRejectsEmptyTitle(t *testing.T) {
	var msgs []string
	src := &fakeSource{}
	store := newTestStore(src, func(m string) { msgs = append(msgs, m) })

	err := store.AddTask(context.Background(), "   ", "", nil)
	if !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("err = %v, want ErrEmptyTitle", err)
	}
	if src.createCalls != 0 {
		t.Fatalf("CreateTask called %d times, want 0", src.createCalls)
	}
	if len(msgs) != 1 || msgs[0] != "Title is required!" {
		t.Fatalf("notify messages = %v", msgs)
	}
}

func TestFetchErrorLeavesViewStale(t *testing.T) {
	var msgs []string
	src := &fakeSource{tasks: seedTasks(4)}
	store := newTestStore(src, func(m string) { msgs = append(msgs, m) })
	ctx := context.Background()

	store.Refresh(ctx)
	before := store.Snapshot()

	src.fetchErr = errors.New("connection refused")
	store.Refresh(ctx)

	after := store.Snapshot()
	if len(after.Tasks) != len(before.Tasks) {
		t.Fatalf("cached tasks changed on failed refetch: %d -> %d", len(before.Tasks), len(after.Tasks))
	}
	if after.Loading {
		t.Fatal("loading flag stuck after failed refetch")
	}
	if len(msgs) != 1 || msgs[0] != "Error fetching tasks!" {
		t.Fatalf("notify messages = %v", msgs)
	}
}

func TestStaleFetchResultDiscarded(t *testing.T) {
	src := &fakeSource{tasks: seedTasks(3)}
	store := newTestStore(src, nil)
	ctx := context.Background()

	// While the first refetch is between network calls, a newer one runs to
	// completion against 4 tasks; the first then answers with the old 3-task
	// state. The older result must not win.
	stale := append([]model.Task(nil), src.tasks...)
	interleaved := false
	src.onFetch = func() {
		if interleaved {
			return
		}
		interleaved = true
		src.tasks = append(src.tasks, model.Task{ID: 4, Title: "task 4"})
		store.Refresh(ctx)
		src.tasks = stale
	}

	store.Refresh(ctx)
	snap := store.Snapshot()
	if len(snap.Tasks) != 4 {
		t.Fatalf("view has %d tasks, want 4 from the newer fetch", len(snap.Tasks))
	}
}

// fakeFeed hands out a pre-filled event channel and records stop calls.
type fakeFeed struct {
	events  chan feed.Event
	stopped bool
}

func (f *fakeFeed) Subscribe(context.Context, int) (<-chan feed.Event, func(), error) {
	return f.events, func() { f.stopped = true }, nil
}

func TestRunRefetchesOnEvents(t *testing.T) {
	var msgs []string
	src := &fakeSource{tasks: seedTasks(2)}
	store := newTestStore(src, func(m string) { msgs = append(msgs, m) })

	fd := &fakeFeed{events: make(chan feed.Event, 2)}
	fd.events <- feed.Event{Type: "INSERT"}
	fd.events <- feed.Event{Type: "DELETE"}
	close(fd.events)

	if err := store.Run(context.Background(), fd, 1); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Initial load plus one refetch per event.
	if src.fetchCalls != 3 {
		t.Fatalf("fetchCalls = %d, want 3", src.fetchCalls)
	}
	if len(msgs) != 2 || msgs[0] != "Task added" || msgs[1] != "Task deleted" {
		t.Fatalf("notify messages = %v", msgs)
	}
	if !fd.stopped {
		t.Fatal("subscription not released after Run returned")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	src := &fakeSource{}
	store := newTestStore(src, nil)
	fd := &fakeFeed{events: make(chan feed.Event)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- store.Run(ctx, fd, 1) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if !fd.stopped {
		t.Fatal("subscription not released after cancel")
	}
}
