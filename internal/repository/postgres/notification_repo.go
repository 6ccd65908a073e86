package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskflow/internal/logger"
	"taskflow/internal/models/notification"
	repo "taskflow/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type NotificationRepo struct {
	pool *pgxpool.Pool
}

const notificationColumns = `uuid, user_id, type, title, message, task_id, step_id,
				related_user_id, is_read, read_at, metadata, created_at`

func scanNotification(row pgx.Row) (*notification.Notification, error) {
	n := &notification.Notification{}
	err := row.Scan(
		&n.UUID,
		&n.UserID,
		&n.Type,
		&n.Title,
		&n.Message,
		&n.TaskID,
		&n.StepID,
		&n.RelatedUserID,
		&n.IsRead,
		&n.ReadAt,
		&n.Metadata,
		&n.CreatedAt,
	)
	return n, err
}

// CreateMany вставляет пачку уведомлений одним batch
func (r *NotificationRepo) CreateMany(ctx context.Context, items []*notification.Notification) error {
	if len(items) == 0 {
		return nil
	}
	start := time.Now()

	query := `INSERT INTO notifications
				(uuid, user_id, type, title, message, task_id, step_id, related_user_id,
				 is_read, read_at, metadata, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	batch := &pgx.Batch{}
	for _, n := range items {
		if n.Metadata == nil {
			n.Metadata = map[string]any{}
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now()
		}
		batch.Queue(query,
			n.UUID, n.UserID, n.Type, n.Title, n.Message, n.TaskID, n.StepID, n.RelatedUserID,
			n.IsRead, n.ReadAt, n.Metadata, n.CreatedAt)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		logger.Error("Repository: Не удалось сохранить уведомления", err, zap.Int("count", len(items)))
		return fmt.Errorf("добавление уведомлений: %w", err)
	}

	slowQuery("notification.create_many", start, 50*time.Millisecond+time.Millisecond*time.Duration(len(items)))
	return nil
}

func (r *NotificationRepo) ListByUser(ctx context.Context, userID uuid.UUID, filter repo.NotificationFilter) ([]*notification.Notification, error) {
	start := time.Now()

	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1`
	args := []any{userID}
	if filter.UnreadOnly {
		query += ` AND NOT is_read`
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $2`
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось получить уведомления", err)
		return nil, fmt.Errorf("получение уведомлений: %w", err)
	}
	defer rows.Close()

	res := []*notification.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			logger.Warn("Repository: Ошибка сканирования уведомления", zap.Error(err))
			continue
		}
		res = append(res, n)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	slowQuery("notification.list", start, 50*time.Millisecond)
	return res, nil
}

func (r *NotificationRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read`, userID).Scan(&count)
	if err != nil {
		logger.Error("Repository: Не удалось посчитать уведомления", err)
		return 0, fmt.Errorf("подсчёт уведомлений: %w", err)
	}
	return count, nil
}

// MarkRead отмечает уведомление владельца прочитанным, повторная отметка не меняет read_at
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) (*notification.Notification, error) {
	query := `UPDATE notifications
				SET is_read = TRUE,
					read_at = COALESCE(read_at, $3)
				WHERE uuid = $1 AND user_id = $2
				RETURNING ` + notificationColumns

	n, err := scanNotification(r.pool.QueryRow(ctx, query, id, userID, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось отметить уведомление", err)
		return nil, fmt.Errorf("отметка уведомления: %w", err)
	}
	return n, nil
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE, read_at = $2 WHERE user_id = $1 AND NOT is_read`,
		userID, at)
	if err != nil {
		logger.Error("Repository: Не удалось отметить уведомления", err)
		return 0, fmt.Errorf("отметка уведомлений: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *NotificationRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE uuid = $1 AND user_id = $2`, id, userID)
	if err != nil {
		logger.Error("Repository: Не удалось удалить уведомление", err)
		return fmt.Errorf("удаление уведомления: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *NotificationRepo) ExistsForTask(ctx context.Context, taskID, userID uuid.UUID, typ notification.Type) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM notifications WHERE task_id = $1 AND user_id = $2 AND type = $3)`,
		taskID, userID, typ).Scan(&exists)
	if err != nil {
		logger.Error("Repository: Не удалось проверить уведомления", err)
		return false, fmt.Errorf("проверка уведомлений: %w", err)
	}
	return exists, nil
}
