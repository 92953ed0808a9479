package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"taskmanagerx/internal/model"
	"taskmanagerx/pkg/metrics"
)

type TaskRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTaskRepository(db *pgxpool.Pool, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{db: db, logger: logger}
}

const taskColumns = "id, user_id, title, description, due_date, is_done, created_at, updated_at"

func scanTask(row pgx.Row) (*model.Task, error) {
	var t model.Task
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Title,
		&t.Description,
		&t.DueDate,
		&t.IsDone,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// filterClause returns the is_done predicate for a filter, or "" for all.
func filterClause(filter model.TaskFilter) string {
	switch filter {
	case model.FilterCompleted:
		return " AND is_done = TRUE"
	case model.FilterPending:
		return " AND is_done = FALSE"
	}
	return ""
}

// CountByFilter returns the number of a user's tasks matching the filter.
func (r *TaskRepository) CountByFilter(ctx context.Context, userID int, filter model.TaskFilter) (int, error) {
	start := time.Now()
	query := "SELECT COUNT(*) FROM tasks WHERE user_id = $1" + filterClause(filter)

	var count int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		r.logger.Error("Failed to count tasks",
			zap.Int("user_id", userID),
			zap.String("filter", string(filter)),
			zap.Error(err),
		)
		return 0, err
	}
	metrics.RecordDBQueryDuration("count", "tasks", time.Since(start))
	return count, nil
}

// ListPage returns one page of a user's tasks matching the filter, ordered by
// due date ascending with undated tasks last.
func (r *TaskRepository) ListPage(ctx context.Context, userID int, filter model.TaskFilter, offset, limit int) ([]model.Task, error) {
	start := time.Now()
	query := fmt.Sprintf(`
        SELECT %s
        FROM tasks
        WHERE user_id = $1%s
        ORDER BY due_date ASC NULLS LAST, id ASC
        LIMIT $2 OFFSET $3
    `, taskColumns, filterClause(filter))

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to query tasks",
			zap.Int("user_id", userID),
			zap.String("filter", string(filter)),
			zap.Error(err),
		)
		return nil, err
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.Title,
			&t.Description,
			&t.DueDate,
			&t.IsDone,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			r.logger.Error("Failed to scan task row",
				zap.Int("user_id", userID),
				zap.Error(err),
			)
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	metrics.RecordDBQueryDuration("list_page", "tasks", time.Since(start))
	r.logger.Debug("Tasks page listed",
		zap.Int("user_id", userID),
		zap.String("filter", string(filter)),
		zap.Int("count", len(tasks)),
	)
	return tasks, nil
}

// FindByID returns a task owned by the user, or pgx.ErrNoRows.
func (r *TaskRepository) FindByID(ctx context.Context, userID, taskID int) (*model.Task, error) {
	query := fmt.Sprintf("SELECT %s FROM tasks WHERE id = $1 AND user_id = $2", taskColumns)
	return scanTask(r.db.QueryRow(ctx, query, taskID, userID))
}

// Insert creates a task and returns the stored row.
func (r *TaskRepository) Insert(ctx context.Context, userID int, title, description string, dueDate *time.Time) (*model.Task, error) {
	r.logger.Debug("Inserting task",
		zap.Int("user_id", userID),
		zap.String("title", title),
	)
	query := fmt.Sprintf(`
        INSERT INTO tasks (user_id, title, description, due_date)
        VALUES ($1, $2, $3, $4)
        RETURNING %s
    `, taskColumns)

	t, err := scanTask(r.db.QueryRow(ctx, query, userID, title, description, dueDate))
	if err != nil {
		r.logger.Error("Failed to insert task",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		return nil, err
	}
	r.logger.Info("Task inserted successfully",
		zap.Int("task_id", t.ID),
		zap.Int("user_id", userID),
	)
	return t, nil
}

// Update applies a partial update and returns the updated row. Returns
// pgx.ErrNoRows when the task does not exist or is not owned by the user.
func (r *TaskRepository) Update(ctx context.Context, userID, taskID int, patch model.TaskPatch) (*model.Task, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{taskID, userID}

	appendSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Title != nil {
		appendSet("title", *patch.Title)
	}
	if patch.Description != nil {
		appendSet("description", *patch.Description)
	}
	if patch.DueDate != nil {
		appendSet("due_date", *patch.DueDate)
	}
	if patch.IsDone != nil {
		appendSet("is_done", *patch.IsDone)
	}

	query := fmt.Sprintf(`
        UPDATE tasks
        SET %s
        WHERE id = $1 AND user_id = $2
        RETURNING %s
    `, strings.Join(sets, ", "), taskColumns)

	t, err := scanTask(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		r.logger.Error("Failed to update task",
			zap.Int("task_id", taskID),
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		return nil, err
	}
	r.logger.Info("Task updated successfully",
		zap.Int("task_id", t.ID),
		zap.Int("user_id", userID),
	)
	return t, nil
}

// Delete removes a task and returns the deleted row. Returns pgx.ErrNoRows
// when the task does not exist or is not owned by the user.
func (r *TaskRepository) Delete(ctx context.Context, userID, taskID int) (*model.Task, error) {
	query := fmt.Sprintf(`
        DELETE FROM tasks
        WHERE id = $1 AND user_id = $2
        RETURNING %s
    `, taskColumns)

	t, err := scanTask(r.db.QueryRow(ctx, query, taskID, userID))
	if err != nil {
		r.logger.Error("Failed to delete task",
			zap.Int("task_id", taskID),
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		return nil, err
	}
	r.logger.Info("Task deleted successfully",
		zap.Int("task_id", taskID),
		zap.Int("user_id", userID),
	)
	return t, nil
}

// SetDone sets the completion flag and returns the updated row.
func (r *TaskRepository) SetDone(ctx context.Context, userID, taskID int, done bool) (*model.Task, error) {
	query := fmt.Sprintf(`
        UPDATE tasks
        SET is_done = $3, updated_at = NOW()
        WHERE id = $1 AND user_id = $2
        RETURNING %s
    `, taskColumns)

	t, err := scanTask(r.db.QueryRow(ctx, query, taskID, userID, done))
	if err != nil {
		r.logger.Error("Failed to set task completion",
			zap.Int("task_id", taskID),
			zap.Int("user_id", userID),
			zap.Bool("done", done),
			zap.Error(err),
		)
		return nil, err
	}
	r.logger.Info("Task completion updated",
		zap.Int("task_id", taskID),
		zap.Int("user_id", userID),
		zap.Bool("done", done),
	)
	return t, nil
}

// ListDueWithin returns pending tasks due within the window from now.
func (r *TaskRepository) ListDueWithin(ctx context.Context, window time.Duration) ([]model.Task, error) {
	query := fmt.Sprintf(`
        SELECT %s
        FROM tasks
        WHERE is_done = FALSE
        AND due_date IS NOT NULL
        AND due_date >= NOW()
        AND due_date < NOW() + $1::interval
        ORDER BY due_date ASC
    `, taskColumns)

	interval := fmt.Sprintf("%d seconds", int(window.Seconds()))
	rows, err := r.db.Query(ctx, query, interval)
	if err != nil {
		r.logger.Error("Failed to list due tasks", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.Title,
			&t.Description,
			&t.DueDate,
			&t.IsDone,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
