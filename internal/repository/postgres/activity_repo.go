package postgres

import (
	"context"
	"fmt"
	"time"

	"taskflow/internal/logger"
	"taskflow/internal/models/activity"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type ActivityRepo struct {
	pool *pgxpool.Pool
}

func (r *ActivityRepo) Create(ctx context.Context, a *activity.Activity) error {
	start := time.Now()

	if a.Metadata == nil {
		a.Metadata = map[string]any{}
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	query := `INSERT INTO activities
				(uuid, task_id, user_id, action, description, metadata, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		a.UUID,
		a.TaskID,
		a.UserID,
		a.Action,
		a.Description,
		a.Metadata,
		a.CreatedAt,
	)
	if err != nil {
		logger.Error("Repository: Не удалось записать активность", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("добавление активности: %w", err)
	}

	slowQuery("activity.create", start, 50*time.Millisecond)
	return nil
}

func (r *ActivityRepo) ListByTask(ctx context.Context, taskID uuid.UUID, limit int) ([]*activity.Activity, error) {
	start := time.Now()

	query := `SELECT uuid, task_id, user_id, action, description, metadata, created_at
				FROM activities
				WHERE task_id = $1
				ORDER BY created_at DESC`
	args := []any{taskID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось получить активность", err)
		return nil, fmt.Errorf("получение активности: %w", err)
	}
	defer rows.Close()

	res := []*activity.Activity{}
	for rows.Next() {
		a := &activity.Activity{}
		if err := rows.Scan(&a.UUID, &a.TaskID, &a.UserID, &a.Action, &a.Description, &a.Metadata, &a.CreatedAt); err != nil {
			logger.Warn("Repository: Ошибка сканирования активности", zap.Error(err))
			continue
		}
		res = append(res, a)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	slowQuery("activity.list", start, 50*time.Millisecond)
	return res, nil
}
