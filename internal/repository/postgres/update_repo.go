package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskflow/internal/logger"
	"taskflow/internal/models/update"
	repo "taskflow/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const updateColumns = `uuid, task_id, user_id, update_text, update_date, created_at`

type UpdateRepo struct {
	pool *pgxpool.Pool
}

func (r *UpdateRepo) Create(ctx context.Context, u *update.Update) error {
	start := time.Now()

	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO task_updates (`+updateColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		u.UUID, u.TaskID, u.UserID, u.Text, u.UpdateDate, u.CreatedAt)
	if err != nil {
		err = translate(err)
		if errors.Is(err, repo.ErrAlreadyExists) {
			return err
		}
		logger.Error("Repository: Не удалось добавить запись хода работ", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("добавление записи хода работ: %w", err)
	}

	slowQuery("update.create", start, 50*time.Millisecond)
	return nil
}

func (r *UpdateRepo) GetByID(ctx context.Context, id uuid.UUID) (*update.Update, error) {
	u := &update.Update{}
	err := r.pool.QueryRow(ctx, `SELECT `+updateColumns+` FROM task_updates WHERE uuid = $1`, id).
		Scan(&u.UUID, &u.TaskID, &u.UserID, &u.Text, &u.UpdateDate, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить запись хода работ", err)
		return nil, fmt.Errorf("получение записи хода работ: %w", err)
	}
	return u, nil
}

func (r *UpdateRepo) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*update.Update, error) {
	start := time.Now()

	rows, err := r.pool.Query(ctx,
		`SELECT `+updateColumns+` FROM task_updates
              WHERE task_id = $1
              ORDER BY update_date DESC, created_at DESC`, taskID)
	if err != nil {
		logger.Error("Repository: Не удалось получить записи хода работ", err)
		return nil, fmt.Errorf("получение записей хода работ: %w", err)
	}
	defer rows.Close()

	res := []*update.Update{}
	for rows.Next() {
		u := &update.Update{}
		if err := rows.Scan(&u.UUID, &u.TaskID, &u.UserID, &u.Text, &u.UpdateDate, &u.CreatedAt); err != nil {
			logger.Warn("Repository: Ошибка сканирования записи хода работ", zap.Error(err))
			continue
		}
		res = append(res, u)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	slowQuery("update.list", start, 50*time.Millisecond)
	return res, nil
}

func (r *UpdateRepo) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()

	tag, err := r.pool.Exec(ctx, `DELETE FROM task_updates WHERE uuid = $1`, id)
	if err != nil {
		logger.Error("Repository: Не удалось удалить запись хода работ", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("удаление записи хода работ: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}

	slowQuery("update.delete", start, 50*time.Millisecond)
	return nil
}
