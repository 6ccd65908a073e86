package handlers

import (
	"net/http"
	"time"

	"taskflow/internal/handlers/dto"
	"taskflow/internal/logger"

	"go.uber.org/zap"
)

type UpdateHandler struct {
	UpdateService UpdateService
}

func NewUpdateHandler(updateService UpdateService) UpdateHandler {
	return UpdateHandler{
		UpdateService: updateService,
	}
}

func (s *UpdateHandler) GetUpdates(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	actor, ok := caller(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "taskID")
	if !ok {
		return
	}

	items, err := s.UpdateService.List(r.Context(), actor, taskID)
	if err != nil {
		serviceError(w, r, err, "list_updates")
		return
	}

	writeJSON(w, http.StatusOK, dto.OrEmpty(items))
}

func (s *UpdateHandler) PostUpdate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	actor, ok := caller(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "taskID")
	if !ok {
		return
	}

	var request dto.CreateTaskUpdateRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	u, err := s.UpdateService.Create(r.Context(), actor, taskID, request.UpdateText, request.UpdateDate)
	if err != nil {
		serviceError(w, r, err, "create_update")
		return
	}

	logger.Info("HTTP_OUT: Запись хода работ добавлена",
		zap.String("task_id", taskID.String()),
		zap.String("update_id", u.UUID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	writeJSON(w, http.StatusCreated, u)
}

func (s *UpdateHandler) DeleteUpdate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	actor, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := s.UpdateService.Delete(r.Context(), actor, id); err != nil {
		serviceError(w, r, err, "delete_update")
		return
	}

	logger.Info("HTTP_OUT: Запись хода работ удалена",
		zap.String("update_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusNoContent))

	w.WriteHeader(http.StatusNoContent)
}
