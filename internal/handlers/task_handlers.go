package handlers

import (
	"math"
	"net/http"
	"time"

	"taskflow/internal/handlers/dto"
	"taskflow/internal/logger"
	"taskflow/internal/models/task"
	"taskflow/internal/repository"
	"taskflow/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TaskHandler struct {
	TaskService TaskService
}

func NewTaskHandler(taskService TaskService) TaskHandler {
	return TaskHandler{
		TaskService: taskService,
	}
}

func (s *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: Health check")

	if err := s.TaskService.HealthCheck(r.Context()); err != nil {
		logger.Error("HTTP: Хранилище недоступно", err)
		responseWithJSON(w, http.StatusServiceUnavailable,
			toPayload("status", "unavailable"),
			toPayload("service", "taskflow"))
		return
	}

	responseWithJSON(w, http.StatusOK,
		toPayload("status", "ok"),
		toPayload("service", "taskflow"))
}

// GetTasks - список с фильтрами: status, search, assigned (uuid или me), sort_by, sort_order
func (s *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	q := r.URL.Query()
	in := service.ListTasksInput{
		Status:    task.Status(q.Get("status")),
		Search:    q.Get("search"),
		SortBy:    repository.SortField(q.Get("sort_by")),
		SortOrder: repository.SortOrder(q.Get("sort_order")),
	}

	switch assigned := q.Get("assigned"); assigned {
	case "":
	case "me":
		id, ok := caller(w, r)
		if !ok {
			return
		}
		in.Assigned = &id
	default:
		id, err := uuid.Parse(assigned)
		if err != nil {
			logger.Warn("HTTP: Неверное значение параметра",
				zap.String("query", "assigned"),
				zap.String("value", assigned),
				zap.String("client_ip", r.RemoteAddr))
			responseWithError(w, http.StatusBadRequest, "неверное значение assigned")
			return
		}
		in.Assigned = &id
	}

	views, err := s.TaskService.List(r.Context(), in)
	if err != nil {
		serviceError(w, r, err, "list_tasks")
		return
	}

	logger.Info("HTTP_OUT: Задачи получены",
		zap.Int("count", len(views)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	writeJSON(w, http.StatusOK, dto.FromViews(views))
}

func (s *TaskHandler) PostTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	actor, ok := caller(w, r)
	if !ok {
		return
	}

	var request dto.CreateTaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	view, err := s.TaskService.Create(r.Context(), actor, service.CreateTaskInput{
		Title:         request.Title,
		Description:   request.Description,
		StartDate:     request.StartDate,
		EndDate:       request.EndDate,
		Priority:      request.Priority,
		AssignedUsers: request.AssignedUsers,
	})
	if err != nil {
		serviceError(w, r, err, "create_task")
		return
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.String("task_id", view.Task.UUID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	writeJSON(w, http.StatusCreated, dto.FromView(view))
}

func (s *TaskHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	view, err := s.TaskService.Get(r.Context(), id)
	if err != nil {
		serviceError(w, r, err, "get_task")
		return
	}

	logger.Info("HTTP_OUT: Задача получена",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	writeJSON(w, http.StatusOK, dto.FromView(view))
}

func (s *TaskHandler) UpdateTaskByID(w http.ResponseWriter, r *http.Request) {
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

	var request dto.UpdateTaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	in := service.UpdateTaskInput{
		Title:         request.Title,
		Description:   request.Description,
		StartDate:     request.StartDate,
		EndDate:       request.EndDate,
		AssignedUsers: request.AssignedUsers,
		Version:       request.Version,
	}
	if request.Status != nil {
		in.Status = *request.Status
	}
	if request.Priority != nil {
		in.Priority = *request.Priority
	}

	view, err := s.TaskService.Update(r.Context(), actor, id, in)
	if err != nil {
		serviceError(w, r, err, "update_task")
		return
	}

	logger.Info("HTTP_OUT: Задача обновлена",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	writeJSON(w, http.StatusOK, dto.FromView(view))
}

func (s *TaskHandler) DeleteTaskByID(w http.ResponseWriter, r *http.Request) {
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

	if err := s.TaskService.Delete(r.Context(), actor, id); err != nil {
		serviceError(w, r, err, "delete_task")
		return
	}

	logger.Info("HTTP_OUT: Задача удалена",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusNoContent))

	w.WriteHeader(http.StatusNoContent)
}

func (s *TaskHandler) StopWork(w http.ResponseWriter, r *http.Request) {
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

	var request dto.StopWorkRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	view, err := s.TaskService.StopWork(r.Context(), actor, id, request.Reason)
	if err != nil {
		serviceError(w, r, err, "stop_work")
		return
	}

	logger.Info("HTTP_OUT: Работа остановлена",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	writeJSON(w, http.StatusOK, dto.FromView(view))
}

func (s *TaskHandler) ResumeWork(w http.ResponseWriter, r *http.Request) {
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

	view, err := s.TaskService.ResumeWork(r.Context(), actor, id)
	if err != nil {
		serviceError(w, r, err, "resume_work")
		return
	}

	logger.Info("HTTP_OUT: Работа возобновлена",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	writeJSON(w, http.StatusOK, dto.FromView(view))
}

func (s *TaskHandler) SetProgress(w http.ResponseWriter, r *http.Request) {
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

	var request dto.ProgressRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	if request.Progress == nil || !isWholePercent(*request.Progress) {
		logger.Warn("HTTP: Ошибка валидации",
			zap.String("field", "progress"),
			zap.String("error", "not_integer"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "progress должен быть целым числом от 0 до 100")
		return
	}

	view, err := s.TaskService.SetProgress(r.Context(), actor, id, int(*request.Progress), request.Comment)
	if err != nil {
		serviceError(w, r, err, "set_progress")
		return
	}

	logger.Info("HTTP_OUT: Прогресс обновлён",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	writeJSON(w, http.StatusOK, dto.FromView(view))
}

func (s *TaskHandler) RequestHelp(w http.ResponseWriter, r *http.Request) {
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

	var request dto.HelpRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	if err := s.TaskService.RequestHelp(r.Context(), actor, id, request.Message); err != nil {
		serviceError(w, r, err, "request_help")
		return
	}

	logger.Info("HTTP_OUT: Запрос помощи отправлен",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("message", "запрос помощи отправлен"))
}

func (s *TaskHandler) GetComments(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	comments, err := s.TaskService.Comments(r.Context(), id)
	if err != nil {
		serviceError(w, r, err, "list_comments")
		return
	}
	if comments == nil {
		comments = []task.Comment{}
	}

	writeJSON(w, http.StatusOK, comments)
}

func (s *TaskHandler) PostComment(w http.ResponseWriter, r *http.Request) {
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

	var request dto.CommentRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	comment, err := s.TaskService.AddComment(r.Context(), actor, id, request.Text)
	if err != nil {
		serviceError(w, r, err, "add_comment")
		return
	}

	logger.Info("HTTP_OUT: Комментарий добавлен",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	writeJSON(w, http.StatusCreated, comment)
}

func (s *TaskHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
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
	commentID, ok := pathID(w, r, "commentID")
	if !ok {
		return
	}

	var request dto.CommentRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	comment, err := s.TaskService.UpdateComment(r.Context(), actor, id, commentID, request.Text)
	if err != nil {
		serviceError(w, r, err, "update_comment")
		return
	}

	logger.Info("HTTP_OUT: Комментарий изменён",
		zap.String("task_id", id.String()),
		zap.String("comment_id", commentID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	writeJSON(w, http.StatusOK, comment)
}

func (s *TaskHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
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
	commentID, ok := pathID(w, r, "commentID")
	if !ok {
		return
	}

	if err := s.TaskService.DeleteComment(r.Context(), actor, id, commentID); err != nil {
		serviceError(w, r, err, "delete_comment")
		return
	}

	logger.Info("HTTP_OUT: Комментарий удалён",
		zap.String("task_id", id.String()),
		zap.String("comment_id", commentID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusNoContent))

	w.WriteHeader(http.StatusNoContent)
}

func (s *TaskHandler) GetActivities(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}

	items, err := s.TaskService.Activities(r.Context(), id, limit)
	if err != nil {
		serviceError(w, r, err, "list_activities")
		return
	}

	writeJSON(w, http.StatusOK, dto.OrEmpty(items))
}

func (s *TaskHandler) GetDeletedTasks(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	views, err := s.TaskService.ListDeleted(r.Context())
	if err != nil {
		serviceError(w, r, err, "list_deleted")
		return
	}

	writeJSON(w, http.StatusOK, dto.FromViews(views))
}

func (s *TaskHandler) RestoreTask(w http.ResponseWriter, r *http.Request) {
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

	view, err := s.TaskService.Restore(r.Context(), actor, id)
	if err != nil {
		serviceError(w, r, err, "restore_task")
		return
	}

	logger.Info("HTTP_OUT: Задача восстановлена",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	writeJSON(w, http.StatusOK, dto.FromView(view))
}

// isWholePercent отсекает дробные и заведомо вне int значения, диапазон проверяет сервис
func isWholePercent(v float64) bool {
	return v == math.Trunc(v) && math.Abs(v) <= 1000
}
