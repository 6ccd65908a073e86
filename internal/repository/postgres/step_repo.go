package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"taskflow/internal/logger"
	"taskflow/internal/models/task"
	repo "taskflow/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type StepRepo struct {
	pool *pgxpool.Pool
}

const stepColumns = `uuid,
				task_id,
				step_number,
				title,
				description,
				assigned_users,
				status,
				start_date,
				end_date,
				is_active,
				completed_at,
				completed_by,
				created_at,
				updated_at,
				version`

func scanStep(row pgx.Row) (*task.Step, error) {
	s := &task.Step{}
	err := row.Scan(
		&s.UUID,
		&s.TaskID,
		&s.StepNumber,
		&s.Title,
		&s.Description,
		&s.AssignedUsers,
		&s.Status,
		&s.StartDate,
		&s.EndDate,
		&s.IsActive,
		&s.CompletedAt,
		&s.CompletedBy,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.Version,
	)
	return s, err
}

func (r *StepRepo) GetByID(ctx context.Context, id uuid.UUID) (*task.Step, error) {
	start := time.Now()

	query := `SELECT ` + stepColumns + ` FROM steps WHERE uuid = $1`

	step, err := scanStep(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить шаг", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение шага: %w", err)
	}

	slowQuery("step.get", start, 100*time.Millisecond)
	return step, nil
}

func (r *StepRepo) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*task.Step, error) {
	start := time.Now()

	query := `SELECT ` + stepColumns + ` FROM steps WHERE task_id = $1 ORDER BY step_number`

	steps, err := r.querySteps(ctx, query, taskID)
	if err != nil {
		return nil, err
	}

	slowQuery("step.list", start, 50*time.Millisecond)
	return steps, nil
}

func (r *StepRepo) ListActiveByTasks(ctx context.Context, taskIDs []uuid.UUID) (map[uuid.UUID]*task.Step, error) {
	res := make(map[uuid.UUID]*task.Step)
	if len(taskIDs) == 0 {
		return res, nil
	}

	query := `SELECT ` + stepColumns + ` FROM steps WHERE is_active AND task_id = ANY($1)`

	steps, err := r.querySteps(ctx, query, taskIDs)
	if err != nil {
		return nil, err
	}
	for _, s := range steps {
		res[s.TaskID] = s
	}
	return res, nil
}

func (r *StepRepo) querySteps(ctx context.Context, query string, args ...any) ([]*task.Step, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось получить шаги", err)
		return nil, fmt.Errorf("получение шагов: %w", err)
	}
	defer rows.Close()

	steps := []*task.Step{}
	for rows.Next() {
		s, err := scanStep(rows)
		if err != nil {
			logger.Warn("Repository: Ошибка сканирования шага", zap.Error(err))
			continue
		}
		steps = append(steps, s)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return steps, nil
}

// Commit пишет задачу и шаги одной транзакцией.
// Уникальный индекс на активный шаг проверяется после каждого запроса, поэтому
// удаления и снятия активности идут раньше, чем новая активация.
func (r *StepRepo) Commit(ctx context.Context, cs repo.Changeset) error {
	start := time.Now()

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if cs.Task != nil {
			if err := updateTask(ctx, tx, cs.Task); err != nil {
				return err
			}
		}

		if len(cs.Deleted) > 0 {
			tag, err := tx.Exec(ctx, `DELETE FROM steps WHERE uuid = ANY($1)`, cs.Deleted)
			if err != nil {
				return fmt.Errorf("удаление шагов: %w", err)
			}
			if int(tag.RowsAffected()) != len(cs.Deleted) {
				return repo.ErrNotFound
			}
		}

		updated := slices.Clone(cs.Updated)
		slices.SortStableFunc(updated, func(a, b *task.Step) int {
			return boolRank(a.IsActive) - boolRank(b.IsActive)
		})
		for _, step := range updated {
			if err := updateStep(ctx, tx, step); err != nil {
				return err
			}
		}

		for _, step := range cs.Created {
			if err := insertStep(ctx, tx, step); err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		err = translate(err)
		if errors.Is(err, repo.ErrVersionConflict) || errors.Is(err, repo.ErrNotFound) {
			return err
		}
		// гонка за номер шага или активный шаг между процессами
		if errors.Is(err, repo.ErrAlreadyExists) {
			logger.Warn("Repository: Нарушение уникальности при сохранении шагов", zap.Error(err))
			return repo.ErrVersionConflict
		}
		logger.Error("Repository: Не удалось сохранить шаги", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("сохранение шагов: %w", err)
	}

	slowQuery("step.commit", start, 100*time.Millisecond)
	return nil
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func normalizeStep(s *task.Step) {
	if s.AssignedUsers == nil {
		s.AssignedUsers = []uuid.UUID{}
	}
}

func insertStep(ctx context.Context, tx pgx.Tx, step *task.Step) error {
	normalizeStep(step)
	if step.CreatedAt.IsZero() {
		step.CreatedAt = time.Now()
	}

	query := `INSERT INTO steps
				(uuid, task_id, step_number, title, description, assigned_users, status,
				 start_date, end_date, is_active, completed_at, completed_by, created_at, version)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1)
				RETURNING version`

	err := tx.QueryRow(ctx, query,
		step.UUID,
		step.TaskID,
		step.StepNumber,
		step.Title,
		step.Description,
		step.AssignedUsers,
		step.Status,
		step.StartDate,
		step.EndDate,
		step.IsActive,
		step.CompletedAt,
		step.CompletedBy,
		step.CreatedAt,
	).Scan(&step.Version)
	if err != nil {
		return fmt.Errorf("добавление шага: %w", err)
	}
	return nil
}

func updateStep(ctx context.Context, tx pgx.Tx, step *task.Step) error {
	normalizeStep(step)

	query := `UPDATE steps
			SET title = $1,
				description = $2,
				assigned_users = $3,
				status = $4,
				start_date = $5,
				end_date = $6,
				is_active = $7,
				completed_at = $8,
				completed_by = $9,
				version = version + 1,
				updated_at = NOW()
			WHERE uuid = $10 AND version = $11
			RETURNING updated_at, version`

	err := tx.QueryRow(ctx, query,
		step.Title,
		step.Description,
		step.AssignedUsers,
		step.Status,
		step.StartDate,
		step.EndDate,
		step.IsActive,
		step.CompletedAt,
		step.CompletedBy,
		step.UUID,
		step.Version,
	).Scan(&step.UpdatedAt, &step.Version)

	if errors.Is(err, pgx.ErrNoRows) {
		logger.Warn("Repository: Конфликт версий шага",
			zap.String("step_id", step.UUID.String()),
			zap.Int("expected_version", step.Version))
		return repo.ErrVersionConflict
	}
	if err != nil {
		return fmt.Errorf("обновление шага: %w", err)
	}
	return nil
}
