package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"taskflow/internal/errs"
	"taskflow/internal/logger"
	"taskflow/internal/models/user"
	repo "taskflow/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserService struct {
	repo  UserRepository
	clock Clock
}

func NewUserService(repo UserRepository, clock Clock) *UserService {
	return &UserService{repo: repo, clock: clock}
}

type UpdateUserInput struct {
	Name   *string
	Avatar *string
}

func (s *UserService) Create(ctx context.Context, name, email string, role user.Role) (*user.User, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}

	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, errs.NewValidationError("email", "некорректный адрес")
	}

	if role == "" {
		role = user.RoleUser
	}
	if !role.Valid() {
		return nil, errs.NewValidationError("role", "неизвестная роль")
	}

	u := &user.User{
		UUID:      uuid.New(),
		Name:      name,
		Email:     addr.Address,
		Role:      role,
		CreatedAt: s.clock.Now(),
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			return nil, errs.NewValidationError("email", "адрес уже используется")
		}
		return nil, fmt.Errorf("создание пользователя: %w", err)
	}

	logger.Info("Service: Пользователь создан", zap.String("user_id", u.UUID.String()))
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storageError(err, errs.ResourceUser, id, "получение пользователя")
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context) ([]*user.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение пользователей: %w", err)
	}
	return users, nil
}

// Update меняет имя и аватар; свой профиль или любой для администратора
func (s *UserService) Update(ctx context.Context, actor, id uuid.UUID, in UpdateUserInput) (*user.User, error) {
	if actor != id {
		a, err := s.repo.GetByID(ctx, actor)
		if err != nil || !a.Role.IsAdmin() {
			return nil, errs.NewForbidden("можно менять только свой профиль")
		}
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storageError(err, errs.ResourceUser, id, "получение пользователя")
	}

	if in.Name != nil {
		name, err := validateName(*in.Name)
		if err != nil {
			return nil, err
		}
		u.Name = name
	}
	if in.Avatar != nil {
		u.Avatar = strings.TrimSpace(*in.Avatar)
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, storageError(err, errs.ResourceUser, id, "обновление пользователя")
	}

	logger.Info("Service: Профиль обновлён", zap.String("user_id", id.String()))
	return u, nil
}

// validateName - имя используется в @упоминаниях, поэтому без пробелов и @
func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errs.NewValidationError("name", "имя не может быть пустым")
	}
	if strings.ContainsAny(name, " \t@") {
		return "", errs.NewValidationError("name", "имя не должно содержать пробелы и @")
	}
	return name, nil
}
