package service

import (
	"context"
	"fmt"

	"taskflow/internal/logger"
	"taskflow/internal/models/activity"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ActivityService struct {
	repo  ActivityRepository
	clock Clock
}

func NewActivityService(repo ActivityRepository, clock Clock) *ActivityService {
	return &ActivityService{repo: repo, clock: clock}
}

// Record пишет событие в ленту задачи. Ошибка только логируется.
func (s *ActivityService) Record(ctx context.Context, taskID, userID uuid.UUID, action activity.Action, description string, metadata map[string]any) {
	if metadata == nil {
		metadata = map[string]any{}
	}

	a := &activity.Activity{
		UUID:        uuid.New(),
		TaskID:      taskID,
		UserID:      userID,
		Action:      action,
		Description: description,
		Metadata:    metadata,
		CreatedAt:   s.clock.Now(),
	}

	if err := s.repo.Create(ctx, a); err != nil {
		logger.Error("Service: Не удалось записать активность", err,
			zap.String("task_id", taskID.String()),
			zap.String("action", string(action)))
	}
}

func (s *ActivityService) ListByTask(ctx context.Context, taskID uuid.UUID, limit int) ([]*activity.Activity, error) {
	items, err := s.repo.ListByTask(ctx, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("получение активности: %w", err)
	}
	return items, nil
}
