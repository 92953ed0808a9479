package task

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	mqcontracts "taskmanagerx/internal/contracts/mq"
	"taskmanagerx/internal/model"
	"taskmanagerx/internal/repository"
	"taskmanagerx/pkg/metrics"
)

var ErrEmptyTitle = errors.New("title must not be empty")

// EventPublisher publishes change events to the events exchange.
// *mq.Publisher satisfies it.
type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

// Service owns task CRUD for one tenant-scoped API and feeds the realtime
// change stream. Mutations stand even when event publication fails; the
// stream is a convergence signal, not the source of truth.
type Service struct {
	repo      *repository.TaskRepository
	publisher EventPublisher
	logger    *zap.Logger
}

func NewService(repo *repository.TaskRepository, publisher EventPublisher, logger *zap.Logger) *Service {
	return &Service{repo: repo, publisher: publisher, logger: logger}
}

// Page is one materialized slice of a user's filtered task list.
type Page struct {
	Tasks      []model.Task `json:"tasks"`
	Count      int          `json:"count"`
	Page       int          `json:"page"`
	TotalPages int          `json:"total_pages"`
	PageSize   int          `json:"page_size"`
}

// ListPage computes the count and page slice for a filter. The requested page
// is clamped to [1, totalPages] so a caller is never handed a past-the-end
// empty page.
func (s *Service) ListPage(ctx context.Context, userID int, filter model.TaskFilter, page, pageSize int) (*Page, error) {
	count, err := s.repo.CountByFilter(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	totalPages := (count + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	tasks, err := s.repo.ListPage(ctx, userID, filter, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}

	return &Page{
		Tasks:      tasks,
		Count:      count,
		Page:       page,
		TotalPages: totalPages,
		PageSize:   pageSize,
	}, nil
}

func (s *Service) Create(ctx context.Context, userID int, title, description string, dueDate *time.Time) (*model.Task, error) {
	if title == "" {
		return nil, ErrEmptyTitle
	}

	t, err := s.repo.Insert(ctx, userID, title, description, dueDate)
	if err != nil {
		return nil, err
	}

	metrics.IncrementTaskMutation("insert")
	s.publishChange(mqcontracts.EventInsert, t, nil)
	return t, nil
}

func (s *Service) Update(ctx context.Context, userID, taskID int, patch model.TaskPatch) (*model.Task, error) {
	if patch.Empty() {
		return s.repo.FindByID(ctx, userID, taskID)
	}

	old, err := s.repo.FindByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	t, err := s.repo.Update(ctx, userID, taskID, patch)
	if err != nil {
		return nil, err
	}

	metrics.IncrementTaskMutation("update")
	s.publishChange(mqcontracts.EventUpdate, t, old)
	return t, nil
}

func (s *Service) Delete(ctx context.Context, userID, taskID int) error {
	old, err := s.repo.Delete(ctx, userID, taskID)
	if err != nil {
		return err
	}

	metrics.IncrementTaskMutation("delete")
	s.publishChange(mqcontracts.EventDelete, nil, old)
	return nil
}

func (s *Service) SetDone(ctx context.Context, userID, taskID int, done bool) (*model.Task, error) {
	old, err := s.repo.FindByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	t, err := s.repo.SetDone(ctx, userID, taskID, done)
	if err != nil {
		return nil, err
	}

	metrics.IncrementTaskMutation("toggle")
	s.publishChange(mqcontracts.EventUpdate, t, old)
	return t, nil
}

func (s *Service) publishChange(eventType string, newTask, oldTask *model.Task) {
	payload := mqcontracts.TaskChangedPayload{
		EventType: eventType,
		New:       newTask,
		Old:       oldTask,
	}
	if err := s.publisher.Publish(mqcontracts.RoutingKeyTaskChanged, payload); err != nil {
		s.logger.Error("Failed to publish task.changed event",
			zap.String("event_type", eventType),
			zap.Int("user_id", payload.OwnerID()),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("Published task.changed event",
		zap.String("event_type", eventType),
		zap.Int("user_id", payload.OwnerID()),
	)
}
