package service

import (
	"context"
	"fmt"
	"slices"

	"taskflow/internal/errs"
	"taskflow/internal/logger"
	"taskflow/internal/models/notification"
	repo "taskflow/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultNotificationLimit = 50

type NotificationService struct {
	repo  NotificationRepository
	clock Clock
}

func NewNotificationService(repo NotificationRepository, clock Clock) *NotificationService {
	return &NotificationService{repo: repo, clock: clock}
}

// NotifyUsers создаёт по уведомлению каждому получателю, кроме exclude.
// Ошибка хранилища только логируется.
func (s *NotificationService) NotifyUsers(ctx context.Context, userIDs []uuid.UUID, exclude uuid.UUID, typ notification.Type, title, message string, nctx notification.Context) {
	now := s.clock.Now()

	var items []*notification.Notification
	var seen []uuid.UUID
	for _, id := range userIDs {
		if id == exclude || id == uuid.Nil || slices.Contains(seen, id) {
			continue
		}
		seen = append(seen, id)

		metadata := nctx.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		items = append(items, &notification.Notification{
			UUID:          uuid.New(),
			UserID:        id,
			Type:          typ,
			Title:         title,
			Message:       message,
			TaskID:        nctx.TaskID,
			StepID:        nctx.StepID,
			RelatedUserID: nctx.RelatedUserID,
			Metadata:      metadata,
			CreatedAt:     now,
		})
	}

	if len(items) == 0 {
		return
	}

	if err := s.repo.CreateMany(ctx, items); err != nil {
		logger.Error("Service: Не удалось создать уведомления", err,
			zap.String("type", string(typ)),
			zap.Int("recipients", len(items)))
	}
}

// AlreadyNotified нужен воркеру, чтобы не слать одно и то же уведомление повторно
func (s *NotificationService) AlreadyNotified(ctx context.Context, taskID, userID uuid.UUID, typ notification.Type) (bool, error) {
	exists, err := s.repo.ExistsForTask(ctx, taskID, userID, typ)
	if err != nil {
		return false, fmt.Errorf("проверка уведомлений: %w", err)
	}
	return exists, nil
}

func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*notification.Notification, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	items, err := s.repo.ListByUser(ctx, userID, repo.NotificationFilter{UnreadOnly: unreadOnly, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("получение уведомлений: %w", err)
	}
	return items, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("подсчёт уведомлений: %w", err)
	}
	return count, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id uuid.UUID) (*notification.Notification, error) {
	n, err := s.repo.MarkRead(ctx, id, userID, s.clock.Now())
	if err != nil {
		return nil, storageError(err, errs.ResourceNotification, id, "отметка уведомления")
	}
	return n, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := s.repo.MarkAllRead(ctx, userID, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("отметка уведомлений: %w", err)
	}
	return count, nil
}

func (s *NotificationService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return storageError(err, errs.ResourceNotification, id, "удаление уведомления")
	}
	return nil
}
