package handlers

import (
	"net/http"

	"taskflow/internal/handlers/dto"
	"taskflow/internal/logger"

	"go.uber.org/zap"
)

// NotificationHandler работает только с лентой вызывающего пользователя
type NotificationHandler struct {
	NotificationService NotificationService
}

func NewNotificationHandler(notificationService NotificationService) NotificationHandler {
	return NotificationHandler{
		NotificationService: notificationService,
	}
}

func (s *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := caller(w, r)
	if !ok {
		return
	}
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	unreadOnly := r.URL.Query().Get("unread") == "true"

	items, err := s.NotificationService.List(r.Context(), userID, unreadOnly, limit)
	if err != nil {
		serviceError(w, r, err, "list_notifications")
		return
	}

	writeJSON(w, http.StatusOK, dto.OrEmpty(items))
}

func (s *NotificationHandler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := caller(w, r)
	if !ok {
		return
	}

	count, err := s.NotificationService.UnreadCount(r.Context(), userID)
	if err != nil {
		serviceError(w, r, err, "unread_count")
		return
	}

	responseWithJSON(w, http.StatusOK, toPayload("count", count))
}

func (s *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	n, err := s.NotificationService.MarkRead(r.Context(), userID, id)
	if err != nil {
		serviceError(w, r, err, "mark_read")
		return
	}

	writeJSON(w, http.StatusOK, n)
}

func (s *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := caller(w, r)
	if !ok {
		return
	}

	count, err := s.NotificationService.MarkAllRead(r.Context(), userID)
	if err != nil {
		serviceError(w, r, err, "mark_all_read")
		return
	}

	logger.Info("HTTP_OUT: Уведомления прочитаны",
		zap.String("user_id", userID.String()),
		zap.Int("count", count))

	responseWithJSON(w, http.StatusOK, toPayload("updated", count))
}

func (s *NotificationHandler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := s.NotificationService.Delete(r.Context(), userID, id); err != nil {
		serviceError(w, r, err, "delete_notification")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
