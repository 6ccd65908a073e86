package service

import (
	"errors"
	"fmt"

	"taskflow/internal/errs"
	"taskflow/internal/logger"
	repo "taskflow/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// здесь ошибки хранилища превращаются в ошибки бизнес-логики

func storageError(err error, resource errs.Resource, id uuid.UUID, op string) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		logger.Info("Service: Запись не найдена", zap.String("resource", string(resource)), zap.String("target_id", id.String()))
		return errs.NewNotFound(resource, id.String())
	case errors.Is(err, repo.ErrVersionConflict):
		return errs.NewVersionConflict(resource, id.String(), err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func taskDeleted(id uuid.UUID) *errs.BusinessError {
	return errs.NewBusinessError(errs.CodeTaskDeleted, "задача удалена", errs.ToDetail("id", id.String()))
}
