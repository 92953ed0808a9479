package reminder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	mqcontracts "taskmanagerx/internal/contracts/mq"
	"taskmanagerx/internal/repository"
)

// Publisher publishes notification requests to the events exchange.
type Publisher interface {
	Publish(routingKey string, payload any) error
}

// Orchestrator periodically scans for pending tasks approaching their due
// date and asks the push relay to notify.
type Orchestrator struct {
	taskRepo  *repository.TaskRepository
	publisher Publisher
	window    time.Duration
	logger    *zap.Logger
}

func NewOrchestrator(taskRepo *repository.TaskRepository, publisher Publisher, window time.Duration, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		taskRepo:  taskRepo,
		publisher: publisher,
		window:    window,
		logger:    logger,
	}
}

// CheckDueSoon publishes one notification.request per task due within the
// window. Publish failures are logged per task and do not abort the sweep.
func (o *Orchestrator) CheckDueSoon(ctx context.Context) error {
	o.logger.Info("Checking for tasks due soon...")

	tasks, err := o.taskRepo.ListDueWithin(ctx, o.window)
	if err != nil {
		o.logger.Error("Failed to list due tasks", zap.Error(err))
		return err
	}

	if len(tasks) == 0 {
		o.logger.Debug("No tasks due soon")
		return nil
	}

	for _, t := range tasks {
		payload := mqcontracts.NotificationRequestPayload{
			Title:   "Task Due Soon",
			Message: fmt.Sprintf("Task: %s is due on %s!", t.Title, t.DueDate.Format("Jan 2")),
		}
		if err := o.publisher.Publish(mqcontracts.RoutingKeyNotificationRequest, payload); err != nil {
			o.logger.Error("Failed to publish notification.request",
				zap.Int("task_id", t.ID),
				zap.Error(err),
			)
			continue
		}
		o.logger.Info("Published due-soon reminder",
			zap.Int("task_id", t.ID),
			zap.Int("user_id", t.UserID),
		)
	}

	o.logger.Info("Due-soon check completed", zap.Int("due_count", len(tasks)))
	return nil
}

// Run sweeps immediately and then on every tick until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration) {
	if err := o.CheckDueSoon(ctx); err != nil {
		o.logger.Error("Initial due-soon check failed", zap.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("Reminder orchestrator stopping")
			return
		case <-ticker.C:
			if err := o.CheckDueSoon(ctx); err != nil {
				o.logger.Error("Due-soon check failed", zap.Error(err))
			}
		}
	}
}
