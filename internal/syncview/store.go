// Package syncview maintains a materialized, paginated, filtered view of one
// user's tasks and keeps it consistent with the remote store.
//
// The reconciliation policy is full refetch on every signal: the realtime
// stream delivers single-row deltas that cannot be merged into an arbitrary
// page/filter view without knowing the order of all other rows, so the server
// is treated as ground truth and the view resynchronizes on every trigger.
// Duplicate or out-of-order delivery is therefore harmless.
package syncview

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"taskmanagerx/internal/feed"
	"taskmanagerx/internal/model"
)

// ErrEmptyTitle rejects an AddTask with no title before it reaches the remote
// store.
var ErrEmptyTitle = errors.New("title must not be empty")

// Source is the remote store the view reads from and mutates through. All
// operations are scoped to the authenticated user.
type Source interface {
	CountTasks(ctx context.Context, filter model.TaskFilter) (int, error)
	FetchTasks(ctx context.Context, filter model.TaskFilter, offset, limit int) ([]model.Task, error)
	CreateTask(ctx context.Context, title, description string, dueDate *time.Time) error
	UpdateTask(ctx context.Context, taskID int, patch model.TaskPatch) error
	DeleteTask(ctx context.Context, taskID int) error
	SetTaskDone(ctx context.Context, taskID int, done bool) error
}

// Snapshot is an immutable copy of the visible view state.
type Snapshot struct {
	Tasks      []model.Task
	Filter     model.TaskFilter
	Page       int
	TotalPages int
	Loading    bool
}

// Store is the task synchronization store. Remote errors surface through the
// notify callback and leave the cached view stale-but-consistent; state only
// changes once confirmed by a refetch.
type Store struct {
	source   Source
	pageSize int
	logger   *zap.Logger
	notify   func(msg string)

	mu         sync.Mutex
	filter     model.TaskFilter
	page       int
	totalPages int
	tasks      []model.Task
	loading    bool
	// fetchSeq is the token of the most recently issued refetch. A response
	// carrying an older token is discarded, so a slow stale read can never
	// overwrite the result of a newer one.
	fetchSeq uint64
}

// NewStore creates a store showing page 1 of the unfiltered list. notify
// receives transient user-visible messages and may be nil.
func NewStore(source Source, pageSize int, notify func(msg string), logger *zap.Logger) *Store {
	if pageSize < 1 {
		pageSize = 1
	}
	return &Store{
		source:     source,
		pageSize:   pageSize,
		logger:     logger,
		notify:     notify,
		filter:     model.FilterAll,
		page:       1,
		totalPages: 1,
	}
}

func (s *Store) report(msg string) {
	if s.notify != nil {
		s.notify(msg)
	}
}

// Snapshot returns a copy of the current view state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := make([]model.Task, len(s.tasks))
	copy(tasks, s.tasks)
	return Snapshot{
		Tasks:      tasks,
		Filter:     s.filter,
		Page:       s.page,
		TotalPages: s.totalPages,
		Loading:    s.loading,
	}
}

// SetFilter switches the active filter, resets to page 1 and refetches.
func (s *Store) SetFilter(ctx context.Context, f model.TaskFilter) {
	if !f.Valid() {
		s.report("Unknown filter")
		return
	}
	s.mu.Lock()
	s.filter = f
	s.page = 1
	s.mu.Unlock()
	s.Refresh(ctx)
}

// SetPage moves to page n and refetches. Only the lower bound is clamped
// here; the upper bound comes from the fresh count inside Refresh, never from
// the cached total, which may be stale.
func (s *Store) SetPage(ctx context.Context, n int) {
	s.mu.Lock()
	if n < 1 {
		n = 1
	}
	s.page = n
	s.mu.Unlock()
	s.Refresh(ctx)
}

// Refresh recomputes the matching count and the current page slice from the
// source. The page is clamped downward when the total shrank, so the view is
// never left on a past-the-end empty page.
func (s *Store) Refresh(ctx context.Context) {
	s.mu.Lock()
	s.fetchSeq++
	seq := s.fetchSeq
	filter := s.filter
	page := s.page
	s.loading = true
	s.mu.Unlock()

	count, err := s.source.CountTasks(ctx, filter)
	if err != nil {
		s.logger.Warn("Failed to fetch task count", zap.Error(err))
		s.report("Error fetching task count!")
		s.finish(seq)
		return
	}

	totalPages := (count + s.pageSize - 1) / s.pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}

	tasks, err := s.source.FetchTasks(ctx, filter, (page-1)*s.pageSize, s.pageSize)
	if err != nil {
		s.logger.Warn("Failed to fetch tasks", zap.Error(err))
		s.report("Error fetching tasks!")
		s.finish(seq)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.fetchSeq {
		// A newer refetch was issued while this one was in flight.
		s.logger.Debug("Discarding stale fetch result",
			zap.Uint64("seq", seq),
			zap.Uint64("latest", s.fetchSeq),
		)
		return
	}
	s.page = page
	s.totalPages = totalPages
	s.tasks = tasks
	s.loading = false
}

// finish clears the loading flag unless a newer refetch took over.
func (s *Store) finish(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq == s.fetchSeq {
		s.loading = false
	}
}

// AddTask inserts a task and refetches. An empty title or a remote failure is
// reported and leaves the view untouched.
func (s *Store) AddTask(ctx context.Context, title, description string, dueDate *time.Time) error {
	if strings.TrimSpace(title) == "" {
		s.report("Title is required!")
		return ErrEmptyTitle
	}

	if err := s.source.CreateTask(ctx, title, description, dueDate); err != nil {
		s.logger.Warn("Failed to add task", zap.Error(err))
		s.report("Error adding task!")
		return err
	}
	s.Refresh(ctx)
	return nil
}

// EditTask applies a partial update and refetches. There is no optimistic
// merge; the view reflects the update once the refetch confirms it.
func (s *Store) EditTask(ctx context.Context, taskID int, patch model.TaskPatch) error {
	if err := s.source.UpdateTask(ctx, taskID, patch); err != nil {
		s.logger.Warn("Failed to update task", zap.Int("task_id", taskID), zap.Error(err))
		s.report("Error updating task!")
		return err
	}
	s.Refresh(ctx)
	return nil
}

// DeleteTask removes a task and refetches; Refresh clamps the page downward
// when the last task of the last page is gone.
func (s *Store) DeleteTask(ctx context.Context, taskID int) error {
	if err := s.source.DeleteTask(ctx, taskID); err != nil {
		s.logger.Warn("Failed to delete task", zap.Int("task_id", taskID), zap.Error(err))
		s.report("Error deleting task!")
		return err
	}
	s.Refresh(ctx)
	return nil
}

// ToggleCompletion flips the completion flag given the value currently shown.
func (s *Store) ToggleCompletion(ctx context.Context, taskID int, currentValue bool) error {
	if err := s.source.SetTaskDone(ctx, taskID, !currentValue); err != nil {
		s.logger.Warn("Failed to toggle task", zap.Int("task_id", taskID), zap.Error(err))
		s.report("Error updating task status!")
		return err
	}
	s.Refresh(ctx)
	return nil
}

var eventMessages = map[string]string{
	"INSERT": "Task added",
	"UPDATE": "Task updated",
	"DELETE": "Task deleted",
}

// Run performs the initial load, subscribes to the change feed and refetches
// on every event for this user. The subscription is released on every exit
// path. Blocks until ctx is cancelled or the feed ends.
func (s *Store) Run(ctx context.Context, fd feed.Feed, userID int) error {
	events, stop, err := fd.Subscribe(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to subscribe to change feed", zap.Error(err))
		s.report("Error subscribing to updates!")
		return err
	}
	defer stop()

	s.Refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.Refresh(ctx)
			if msg, known := eventMessages[ev.Type]; known {
				s.report(msg)
			}
		}
	}
}
