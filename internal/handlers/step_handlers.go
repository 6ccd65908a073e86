package handlers

import (
	"context"
	"net/http"
	"time"

	"taskflow/internal/handlers/dto"
	"taskflow/internal/logger"
	"taskflow/internal/service"
	"taskflow/internal/workflow"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type StepHandler struct {
	StepService StepService
}

func NewStepHandler(stepService StepService) StepHandler {
	return StepHandler{
		StepService: stepService,
	}
}

func (s *StepHandler) GetSteps(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	steps, err := s.StepService.List(r.Context(), taskID)
	if err != nil {
		serviceError(w, r, err, "list_steps")
		return
	}

	writeJSON(w, http.StatusOK, dto.OrEmpty(steps))
}

func (s *StepHandler) PostStep(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	actor, ok := caller(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var request dto.CreateStepRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	res, err := s.StepService.Create(r.Context(), actor, taskID, workflow.StepFields{
		Title:         request.Title,
		Description:   request.Description,
		AssignedUsers: request.AssignedUsers,
		StartDate:     request.StartDate,
		EndDate:       request.EndDate,
	})
	if err != nil {
		serviceError(w, r, err, "create_step")
		return
	}

	logger.Info("HTTP_OUT: Шаг создан",
		zap.String("task_id", taskID.String()),
		zap.String("step_id", res.Step.UUID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	writeJSON(w, http.StatusCreated, dto.FromStepResult(res))
}

func (s *StepHandler) UpdateStep(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	actor, ok := caller(w, r)
	if !ok {
		return
	}
	stepID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var request dto.UpdateStepRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	in := service.UpdateStepInput{
		Title:         request.Title,
		Description:   request.Description,
		AssignedUsers: request.AssignedUsers,
		StartDate:     request.StartDate,
		EndDate:       request.EndDate,
	}
	if request.Status != nil {
		in.Status = *request.Status
	}

	res, err := s.StepService.Update(r.Context(), actor, stepID, in)
	if err != nil {
		serviceError(w, r, err, "update_step")
		return
	}

	logger.Info("HTTP_OUT: Шаг обновлён",
		zap.String("step_id", stepID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	writeJSON(w, http.StatusOK, dto.FromStepResult(res))
}

func (s *StepHandler) DeleteStep(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "delete_step", "HTTP_OUT: Шаг удалён", s.StepService.Delete)
}

func (s *StepHandler) ActivateStep(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "activate_step", "HTTP_OUT: Шаг активирован", s.StepService.Activate)
}

func (s *StepHandler) CompleteStep(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "complete_step", "HTTP_OUT: Шаг завершён", s.StepService.Complete)
}

type stepAction func(ctx context.Context, actor, stepID uuid.UUID) (*service.StepResult, error)

// transition - общий код операций над шагом без тела запроса
func (s *StepHandler) transition(w http.ResponseWriter, r *http.Request, operation, done string, action stepAction) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	actor, ok := caller(w, r)
	if !ok {
		return
	}
	stepID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	res, err := action(r.Context(), actor, stepID)
	if err != nil {
		serviceError(w, r, err, operation)
		return
	}

	fields := []zap.Field{
		zap.String("step_id", stepID.String()),
		zap.Bool("task_completed", res.TaskCompleted),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK),
	}
	if res.Activated != nil {
		fields = append(fields, zap.String("activated_step", res.Activated.UUID.String()))
	}
	logger.Info(done, fields...)

	writeJSON(w, http.StatusOK, dto.FromStepResult(res))
}
