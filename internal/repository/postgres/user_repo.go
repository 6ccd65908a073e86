package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskflow/internal/logger"
	"taskflow/internal/models/user"
	repo "taskflow/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	start := time.Now()

	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (uuid, name, email, role, avatar, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		u.UUID, u.Name, u.Email, u.Role, u.Avatar, u.CreatedAt)
	if err != nil {
		err = translate(err)
		if errors.Is(err, repo.ErrAlreadyExists) {
			return err
		}
		logger.Error("Repository: Не удалось добавить пользователя", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("добавление пользователя: %w", err)
	}

	slowQuery("user.create", start, 50*time.Millisecond)
	return nil
}

// Update меняет профиль: имя и аватар
func (r *UserRepo) Update(ctx context.Context, u *user.User) error {
	start := time.Now()

	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET name = $2, avatar = $3 WHERE uuid = $1`,
		u.UUID, u.Name, u.Avatar)
	if err != nil {
		logger.Error("Repository: Не удалось обновить пользователя", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("обновление пользователя: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}

	slowQuery("user.update", start, 50*time.Millisecond)
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u := &user.User{}
	err := r.pool.QueryRow(ctx,
		`SELECT uuid, name, email, role, avatar, created_at FROM users WHERE uuid = $1`, id).
		Scan(&u.UUID, &u.Name, &u.Email, &u.Role, &u.Avatar, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить пользователя", err)
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	return u, nil
}

func (r *UserRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*user.User, error) {
	if len(ids) == 0 {
		return []*user.User{}, nil
	}
	return r.queryUsers(ctx,
		`SELECT uuid, name, email, role, avatar, created_at FROM users WHERE uuid = ANY($1) ORDER BY created_at`, ids)
}

// GetByNames сравнивает имена без учёта регистра
func (r *UserRepo) GetByNames(ctx context.Context, names []string) ([]*user.User, error) {
	if len(names) == 0 {
		return []*user.User{}, nil
	}
	lowered := make([]string, len(names))
	for i, n := range names {
		lowered[i] = strings.ToLower(n)
	}
	return r.queryUsers(ctx,
		`SELECT uuid, name, email, role, avatar, created_at FROM users WHERE LOWER(name) = ANY($1) ORDER BY created_at`, lowered)
}

func (r *UserRepo) List(ctx context.Context) ([]*user.User, error) {
	return r.queryUsers(ctx, `SELECT uuid, name, email, role, avatar, created_at FROM users ORDER BY created_at`)
}

func (r *UserRepo) queryUsers(ctx context.Context, query string, args ...any) ([]*user.User, error) {
	start := time.Now()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось получить пользователей", err)
		return nil, fmt.Errorf("получение пользователей: %w", err)
	}
	defer rows.Close()

	res := []*user.User{}
	for rows.Next() {
		u := &user.User{}
		if err := rows.Scan(&u.UUID, &u.Name, &u.Email, &u.Role, &u.Avatar, &u.CreatedAt); err != nil {
			logger.Warn("Repository: Ошибка сканирования пользователя", zap.Error(err))
			continue
		}
		res = append(res, u)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	slowQuery("user.list", start, 50*time.Millisecond)
	return res, nil
}
