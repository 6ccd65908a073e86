package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskflow/internal/logger"
	repo "taskflow/internal/repository"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PoolConfig - размеры пула, нули заменяются значениями по умолчанию
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnIdleTime time.Duration
}

type Storage struct {
	pool *pgxpool.Pool

	Tasks         *TaskRepo
	Steps         *StepRepo
	Activities    *ActivityRepo
	Notifications *NotificationRepo
	Users         *UserRepo
	Updates       *UpdateRepo
}

func New(ctx context.Context, connString string, poolCfg PoolConfig) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: Ошибка загрузки конфига", err)
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = time.Minute * 5
	if poolCfg.MaxConns > 0 {
		config.MaxConns = poolCfg.MaxConns
	}
	if poolCfg.MinConns > 0 {
		config.MinConns = poolCfg.MinConns
	}
	if poolCfg.MaxConnIdleTime > 0 {
		config.MaxConnIdleTime = poolCfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: Ошибка создания пула", err)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	logger.Info("Repository: Успешное создание подключения к PostgreSQL")
	return &Storage{
		pool:          pool,
		Tasks:         &TaskRepo{pool: pool},
		Steps:         &StepRepo{pool: pool},
		Activities:    &ActivityRepo{pool: pool},
		Notifications: &NotificationRepo{pool: pool},
		Users:         &UserRepo{pool: pool},
		Updates:       &UpdateRepo{pool: pool},
	}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: Закрытие всех соединений PostgreSQL")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	return s.Tasks.HealthCheck(ctx)
}

// slowQuery пишет предупреждение, если запрос шёл дольше limit
func slowQuery(op string, start time.Time, limit time.Duration) {
	if elapsed := time.Since(start); elapsed > limit {
		logger.Warn("Repository: Медленный запрос", zap.String("op", op), zap.Duration("ms", elapsed))
	}
}

// translate приводит ошибки драйвера к ошибкам хранилища
func translate(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repo.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return repo.ErrAlreadyExists
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return repo.ErrVersionConflict
	}
	return err
}
