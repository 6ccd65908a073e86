package handlers

import (
	"net/http"
	"time"

	"taskflow/internal/handlers/dto"
	"taskflow/internal/logger"
	"taskflow/internal/models/user"
	"taskflow/internal/service"

	"go.uber.org/zap"
)

type UserHandler struct {
	UserService UserService
}

func NewUserHandler(userService UserService) UserHandler {
	return UserHandler{
		UserService: userService,
	}
}

func (s *UserHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	users, err := s.UserService.List(r.Context())
	if err != nil {
		serviceError(w, r, err, "list_users")
		return
	}

	writeJSON(w, http.StatusOK, dto.OrEmpty(users))
}

func (s *UserHandler) GetUserByID(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	u, err := s.UserService.Get(r.Context(), id)
	if err != nil {
		serviceError(w, r, err, "get_user")
		return
	}

	writeJSON(w, http.StatusOK, u)
}

func (s *UserHandler) PostUser(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.CreateUserRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	u, err := s.UserService.Create(r.Context(), request.Name, request.Email, user.Role(request.Role))
	if err != nil {
		serviceError(w, r, err, "create_user")
		return
	}

	logger.Info("HTTP_OUT: Пользователь создан",
		zap.String("user_id", u.UUID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	writeJSON(w, http.StatusCreated, u)
}

func (s *UserHandler) PutUser(w http.ResponseWriter, r *http.Request) {
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

	var request dto.UpdateUserRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	u, err := s.UserService.Update(r.Context(), actor, id, service.UpdateUserInput{
		Name:   request.Name,
		Avatar: request.Avatar,
	})
	if err != nil {
		serviceError(w, r, err, "update_user")
		return
	}

	logger.Info("HTTP_OUT: Профиль обновлён",
		zap.String("user_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	writeJSON(w, http.StatusOK, u)
}
