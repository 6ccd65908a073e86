package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"taskflow/internal/config"
	"taskflow/internal/handlers"
	"taskflow/internal/logger"
	"taskflow/internal/mailer"
	"taskflow/internal/middleware"
	"taskflow/internal/repository/inmemory"
	"taskflow/internal/repository/postgres"
	"taskflow/internal/service"
	"taskflow/internal/worker"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config    *config.Config
	server    *http.Server
	router    *chi.Mux
	services  *service.Services
	worker    *worker.DeadlineWorker
	shutdowns []func() // функции для graceful shutdown, вызываются в обратном порядке
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

func (a *App) Init(ctx context.Context) error {
	if err := logger.Init(a.config.Logging.Development, a.config.Logging.Level); err != nil {
		return fmt.Errorf("инициализация логгера: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	deps, err := a.initStorage(ctx)
	if err != nil {
		a.Close()
		return err
	}

	deps.Mailer, err = a.initMailer()
	if err != nil {
		a.Close()
		return err
	}

	a.services = service.New(deps)
	a.initRouter()
	a.initServer()

	if !a.config.Worker.Disabled {
		wc := a.config.Worker
		a.worker = worker.NewDeadlineWorker(deps.Tasks, a.services.Notifications, deps.Clock,
			&wc.Schedule, &wc.DueSoon, &wc.BatchSize)
	}

	logger.Info("App: Инициализация завершена",
		zap.String("repository", a.config.Repository.Type),
		zap.Bool("smtp", a.config.Mail.Enabled()),
		zap.Bool("worker", a.worker != nil))
	return nil
}

func (a *App) initStorage(ctx context.Context) (service.Deps, error) {
	switch a.config.Repository.Type {
	case config.RepositoryPostgres:
		db := a.config.Database
		if !db.SkipMigrations {
			if err := postgres.MigrateUp(db.URL); err != nil {
				return service.Deps{}, fmt.Errorf("миграции: %w", err)
			}
		}

		store, err := postgres.New(ctx, db.URL, postgres.PoolConfig{
			MaxConns:        db.MaxConnections,
			MinConns:        db.MinConnections,
			MaxConnIdleTime: db.IdleTimeout,
		})
		if err != nil {
			return service.Deps{}, fmt.Errorf("подключение к postgres: %w", err)
		}
		a.shutdowns = append(a.shutdowns, store.Close)

		return service.Deps{
			Tasks:         store.Tasks,
			Steps:         store.Steps,
			Activities:    store.Activities,
			Notifications: store.Notifications,
			Users:         store.Users,
			Updates:       store.Updates,
			Clock:         service.SystemClock{},
		}, nil

	default:
		store := inmemory.New()
		a.shutdowns = append(a.shutdowns, store.Close)

		return service.Deps{
			Tasks:         store.Tasks,
			Steps:         store.Steps,
			Activities:    store.Activities,
			Notifications: store.Notifications,
			Users:         store.Users,
			Updates:       store.Updates,
			Clock:         service.SystemClock{},
		}, nil
	}
}

func (a *App) initMailer() (service.Mailer, error) {
	if !a.config.Mail.Enabled() {
		logger.Warn("App: SMTP не настроен, письма пишутся в лог")
		return mailer.LogMailer{}, nil
	}

	m, err := mailer.NewSMTP(a.config.Mail.Mailer())
	if err != nil {
		return nil, fmt.Errorf("инициализация почты: %w", err)
	}
	return m, nil
}

func (a *App) initRouter() {
	srv := a.config.Server
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: srv.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", middleware.UserHeader, "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Remaining"},
		MaxAge:         300,
	}))
	r.Use(middleware.Timeout(srv.RequestTimeout))
	r.Use(middleware.RateLimit(srv.RateLimit))

	handlers.New(a.services.Tasks, a.services.Steps, a.services.Notifications, a.services.Users, a.services.Updates).Routes(r)
	a.router = r
}

func (a *App) initServer() {
	srv := a.config.Server
	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      otelhttp.NewHandler(a.router, "taskflow"),
		ReadTimeout:  srv.ReadTimeout,
		WriteTimeout: srv.WriteTimeout,
		IdleTimeout:  srv.IdleTimeout,
	}
}

// Handler - корневой обработчик, используется и в тестах
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run обслуживает запросы до отмены ctx, затем корректно останавливает сервер и воркер
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Server started", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http сервер: %w", err)
		}
		return nil
	})

	if a.worker != nil {
		g.Go(func() error {
			return a.worker.Start(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("App: Остановка сервера...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("остановка сервера: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func (a *App) shutdownTimeout() time.Duration {
	if t := a.config.Server.ShutdownTimeout; t > 0 {
		return t
	}
	return 10 * time.Second
}

func (a *App) Close() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	a.shutdowns = nil
}
