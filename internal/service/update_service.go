package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taskflow/internal/errs"
	"taskflow/internal/logger"
	"taskflow/internal/models/activity"
	"taskflow/internal/models/update"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UpdateService ведёт журнал хода работ по задаче
type UpdateService struct {
	tasks    TaskRepository
	updates  UpdateRepository
	dir      *directory
	activity *ActivityService
	clock    Clock
}

func (s *UpdateService) List(ctx context.Context, actor, taskID uuid.UUID) ([]*update.Update, error) {
	t, err := loadActiveTask(ctx, s.tasks, taskID)
	if err != nil {
		return nil, err
	}
	if !t.IsParticipant(actor) && !s.dir.isAdmin(ctx, actor) {
		return nil, errs.NewForbidden("журнал доступен только участникам задачи")
	}

	items, err := s.updates.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("получение записей хода работ: %w", err)
	}
	return items, nil
}

// Create добавляет запись; без даты берётся текущий момент
func (s *UpdateService) Create(ctx context.Context, actor, taskID uuid.UUID, text string, date *time.Time) (*update.Update, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errs.NewValidationError("update_text", "текст записи не может быть пустым")
	}

	t, err := loadActiveTask(ctx, s.tasks, taskID)
	if err != nil {
		return nil, err
	}
	if !t.IsParticipant(actor) && !s.dir.isAdmin(ctx, actor) {
		return nil, errs.NewForbidden("добавлять записи могут только участники задачи")
	}

	now := s.clock.Now()
	at := now
	if date != nil {
		if date.Before(t.StartDate) || date.After(t.EndDate) {
			return nil, errs.NewValidationError("update_date", "дата должна быть в пределах сроков задачи")
		}
		at = *date
	}

	u := &update.Update{
		UUID:       uuid.New(),
		TaskID:     taskID,
		UserID:     actor,
		Text:       text,
		UpdateDate: at,
		CreatedAt:  now,
	}
	if err := s.updates.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("добавление записи хода работ: %w", err)
	}

	s.activity.Record(ctx, taskID, actor, activity.ActionUpdateAdded, "Добавлена запись о ходе работ",
		map[string]any{"update_id": u.UUID, "update_date": at})

	logger.Info("Service: Запись хода работ добавлена",
		zap.String("task_id", taskID.String()), zap.String("update_id", u.UUID.String()))
	return u, nil
}

// Delete разрешён автору записи, создателю задачи и администратору
func (s *UpdateService) Delete(ctx context.Context, actor, id uuid.UUID) error {
	u, err := s.updates.GetByID(ctx, id)
	if err != nil {
		return storageError(err, errs.ResourceUpdate, id, "получение записи хода работ")
	}

	t, err := loadActiveTask(ctx, s.tasks, u.TaskID)
	if err != nil {
		return err
	}
	if u.UserID != actor && t.CreatedBy != actor && !s.dir.isAdmin(ctx, actor) {
		return errs.NewForbidden("удалить запись может только её автор или создатель задачи")
	}

	if err := s.updates.Delete(ctx, id); err != nil {
		return storageError(err, errs.ResourceUpdate, id, "удаление записи хода работ")
	}

	s.activity.Record(ctx, u.TaskID, actor, activity.ActionUpdateDeleted, "Удалена запись о ходе работ",
		map[string]any{"update_id": id})
	return nil
}
