package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskflow/internal/logger"
	"taskflow/internal/models/task"
	repo "taskflow/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type TaskRepo struct {
	pool *pgxpool.Pool
}

const taskColumns = `uuid,
				title,
				description,
				created_by,
				assigned_users,
				start_date,
				end_date,
				status,
				priority,
				auto_progress,
				manual_progress,
				stop_logs,
				comments,
				is_active,
				created_at,
				updated_at,
				version`

func scanTask(row pgx.Row) (*task.Task, error) {
	t := &task.Task{}
	err := row.Scan(
		&t.UUID,
		&t.Title,
		&t.Description,
		&t.CreatedBy,
		&t.AssignedUsers,
		&t.StartDate,
		&t.EndDate,
		&t.Status,
		&t.Priority,
		&t.AutoProgress,
		&t.ManualProgress,
		&t.StopLogs,
		&t.Comments,
		&t.IsActive,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.Version,
	)
	return t, err
}

// pgx пишет nil-срезы как NULL, а колонки NOT NULL
func normalizeTask(t *task.Task) {
	if t.AssignedUsers == nil {
		t.AssignedUsers = []uuid.UUID{}
	}
	if t.StopLogs == nil {
		t.StopLogs = []task.StopLog{}
	}
	if t.Comments == nil {
		t.Comments = []task.Comment{}
	}
	for i := range t.Comments {
		if t.Comments[i].Mentions == nil {
			t.Comments[i].Mentions = []uuid.UUID{}
		}
	}
}

func (r *TaskRepo) HealthCheck(ctx context.Context) error {
	err := r.pool.Ping(ctx)
	if err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	logger.Debug("Repository: Соединение стабильно")
	return nil
}

func (r *TaskRepo) Create(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()
	normalizeTask(taskToCreate)

	if taskToCreate.CreatedAt.IsZero() {
		taskToCreate.CreatedAt = time.Now()
	}

	query := `INSERT INTO tasks
				(uuid, title, description, created_by, assigned_users, start_date, end_date,
				 status, priority, auto_progress, manual_progress, stop_logs, comments,
				 is_active, created_at, version)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, TRUE, $14, 1)
				RETURNING is_active, version`

	err := r.pool.QueryRow(ctx, query,
		taskToCreate.UUID,
		taskToCreate.Title,
		taskToCreate.Description,
		taskToCreate.CreatedBy,
		taskToCreate.AssignedUsers,
		taskToCreate.StartDate,
		taskToCreate.EndDate,
		taskToCreate.Status,
		taskToCreate.Priority,
		taskToCreate.AutoProgress,
		taskToCreate.ManualProgress,
		taskToCreate.StopLogs,
		taskToCreate.Comments,
		taskToCreate.CreatedAt,
	).Scan(&taskToCreate.IsActive, &taskToCreate.Version)

	if err != nil {
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("добавление задачи: %w", translate(err))
	}

	slowQuery("task.create", start, 50*time.Millisecond)
	return nil
}

// Update сохраняет задачу при совпадении версии
func (r *TaskRepo) Update(ctx context.Context, taskToUpdate *task.Task) error {
	start := time.Now()

	err := updateTask(ctx, r.pool, taskToUpdate)
	if err != nil {
		if errors.Is(err, repo.ErrVersionConflict) {
			return err
		}
		logger.Error("Repository: Не удалось обновить задачу", err)
		return fmt.Errorf("обновление задачи: %w", err)
	}

	slowQuery("task.update", start, 100*time.Millisecond)
	return nil
}

// querier - общий интерфейс пула и транзакции
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func updateTask(ctx context.Context, q querier, taskToUpdate *task.Task) error {
	normalizeTask(taskToUpdate)

	query := `UPDATE tasks
			SET title = $1,
				description = $2,
				assigned_users = $3,
				start_date = $4,
				end_date = $5,
				status = $6,
				priority = $7,
				auto_progress = $8,
				manual_progress = $9,
				stop_logs = $10,
				comments = $11,
				is_active = $12,
				version = version + 1,
				updated_at = NOW()
			WHERE uuid = $13 AND version = $14
			RETURNING updated_at, version`

	err := q.QueryRow(ctx, query,
		taskToUpdate.Title,
		taskToUpdate.Description,
		taskToUpdate.AssignedUsers,
		taskToUpdate.StartDate,
		taskToUpdate.EndDate,
		taskToUpdate.Status,
		taskToUpdate.Priority,
		taskToUpdate.AutoProgress,
		taskToUpdate.ManualProgress,
		taskToUpdate.StopLogs,
		taskToUpdate.Comments,
		taskToUpdate.IsActive,
		taskToUpdate.UUID,
		taskToUpdate.Version,
	).Scan(&taskToUpdate.UpdatedAt, &taskToUpdate.Version)

	if errors.Is(err, pgx.ErrNoRows) {
		logger.Warn("Repository: Конфликт версий при обновлении задачи",
			zap.String("task_id", taskToUpdate.UUID.String()),
			zap.Int("expected_version", taskToUpdate.Version))
		return repo.ErrVersionConflict
	}
	return err
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	start := time.Now()

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE uuid = $1`

	t, err := scanTask(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задачи: %w", err)
	}

	slowQuery("task.get", start, 100*time.Millisecond)
	return t, nil
}

var sortColumns = map[repo.SortField]string{
	repo.SortByCreatedAt: "created_at",
	repo.SortByEndDate:   "end_date",
	repo.SortByTitle:     "LOWER(title)",
	repo.SortByPriority: `CASE priority
				WHEN 'low' THEN 0
				WHEN 'medium' THEN 1
				WHEN 'high' THEN 2
				WHEN 'critical' THEN 3 END`,
}

func buildListQuery(filter repo.TaskFilter) (string, []any) {
	conds := []string{"is_active = $1"}
	args := []any{!filter.Deleted}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Assigned != nil {
		args = append(args, *filter.Assigned)
		conds = append(conds, fmt.Sprintf("$%d = ANY(assigned_users)", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = sortColumns[repo.SortByCreatedAt]
	}
	order := "DESC"
	if filter.SortOrder == repo.SortAsc {
		order = "ASC"
	}

	query := `SELECT ` + taskColumns + ` FROM tasks
				WHERE ` + strings.Join(conds, " AND ") + `
				ORDER BY ` + column + ` ` + order + `, created_at ` + order

	return query, args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *TaskRepo) List(ctx context.Context, filter repo.TaskFilter) ([]*task.Task, error) {
	start := time.Now()

	query, args := buildListQuery(filter)
	tasks, err := r.queryTasks(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	slowQuery("task.list", start, 50*time.Millisecond+time.Millisecond*time.Duration(len(tasks)))
	return tasks, nil
}

// ListDeadlineCandidates - активные незавершённые задачи со сроком до before,
// по (end_date, uuid) строго после after
func (r *TaskRepo) ListDeadlineCandidates(ctx context.Context, before time.Time, after *repo.DeadlineCursor, limit int) ([]*task.Task, error) {
	start := time.Now()

	query := `SELECT ` + taskColumns + ` FROM tasks
              WHERE is_active
                AND status <> 'completed'
                AND end_date < $1`
	args := []any{before}

	if after != nil {
		query += ` AND (end_date, uuid) > ($2, $3)`
		args = append(args, after.EndDate, after.UUID)
	}
	query += fmt.Sprintf(` ORDER BY end_date, uuid LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	tasks, err := r.queryTasks(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	slowQuery("task.deadline_candidates", start, 50*time.Millisecond+time.Millisecond*10*time.Duration(limit))
	return tasks, nil
}

func (r *TaskRepo) queryTasks(ctx context.Context, query string, args ...any) ([]*task.Task, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err)
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Warn("Repository: Ошибка сканирования задачи", zap.Error(err))
			continue
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return tasks, nil
}
