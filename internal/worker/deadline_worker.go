package worker

import (
	"context"
	"fmt"
	"time"

	"taskflow/internal/logger"
	"taskflow/internal/models/notification"
	"taskflow/internal/models/task"
	"taskflow/internal/progress"
	"taskflow/internal/repository"
	"taskflow/internal/service"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	defaultSchedule  = "@every 1h"
	defaultDueSoon   = 24 * time.Hour
	defaultBatchSize = 100
)

type TaskSource interface {
	ListDeadlineCandidates(ctx context.Context, before time.Time, after *repository.DeadlineCursor, limit int) ([]*task.Task, error)
}

type Notifier interface {
	AlreadyNotified(ctx context.Context, taskID, userID uuid.UUID, typ notification.Type) (bool, error)
	NotifyUsers(ctx context.Context, userIDs []uuid.UUID, exclude uuid.UUID, typ notification.Type, title, message string, nctx notification.Context)
}

// DeadlineWorker по расписанию предупреждает участников о просроченных и скорых дедлайнах.
// Каждый тип уведомления по задаче уходит пользователю один раз.
type DeadlineWorker struct {
	tasks     TaskSource
	notifier  Notifier
	clock     service.Clock
	schedule  string
	dueSoon   time.Duration
	batchSize int
}

// Result - итог одного прохода
type Result struct {
	Checked  int
	Overdue  int
	DueSoon  int
	Notified int
}

func NewDeadlineWorker(tasks TaskSource, notifier Notifier, clock service.Clock, schedule *string, dueSoon *time.Duration, batchSize *int) *DeadlineWorker {
	w := &DeadlineWorker{
		tasks:     tasks,
		notifier:  notifier,
		clock:     clock,
		schedule:  defaultSchedule,
		dueSoon:   defaultDueSoon,
		batchSize: defaultBatchSize,
	}
	if clock == nil {
		w.clock = service.SystemClock{}
	}
	if schedule != nil && *schedule != "" {
		w.schedule = *schedule
	}
	if dueSoon != nil && *dueSoon > 0 {
		w.dueSoon = *dueSoon
	}
	if batchSize != nil && *batchSize > 0 {
		w.batchSize = *batchSize
	}
	return w
}

// Start блокируется до отмены ctx и ждёт завершения текущего прохода
func (w *DeadlineWorker) Start(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	if _, err := c.AddFunc(w.schedule, func() { w.Check(ctx) }); err != nil {
		return fmt.Errorf("расписание воркера %q: %w", w.schedule, err)
	}

	logger.Info("Worker: Проверка дедлайнов запущена", zap.String("schedule", w.schedule))
	c.Start()

	<-ctx.Done()
	logger.Info("Worker: Проверка дедлайнов останавливается")
	<-c.Stop().Done()
	return nil
}

func (w *DeadlineWorker) Check(ctx context.Context) Result {
	start := time.Now()
	now := w.clock.Now()

	var res Result
	var after *repository.DeadlineCursor

	// обходим кандидатов страницами, пока не придёт неполная
	for ctx.Err() == nil {
		tasks, err := w.tasks.ListDeadlineCandidates(ctx, now.Add(w.dueSoon), after, w.batchSize)
		if err != nil {
			logger.Warn("Worker: ошибка получения задач", zap.Error(err))
			break
		}
		res.Checked += len(tasks)

		for _, t := range tasks {
			if ctx.Err() != nil {
				break
			}
			w.process(ctx, t, now, &res)
		}

		if len(tasks) < w.batchSize {
			break
		}
		after = repository.CursorAfter(tasks[len(tasks)-1])
	}

	logger.Info(
		"Worker: Завершение проверки дедлайнов",
		zap.Duration("ms", time.Since(start)),
		zap.Int("checked", res.Checked),
		zap.Int("overdue", res.Overdue),
		zap.Int("due_soon", res.DueSoon),
		zap.Int("notified", res.Notified),
	)
	return res
}

func (w *DeadlineWorker) process(ctx context.Context, t *task.Task, now time.Time, res *Result) {
	typ, title, message := w.describe(t, now)
	if typ == notification.TypeTaskOverdue {
		res.Overdue++
	} else {
		res.DueSoon++
	}

	fresh := w.notNotified(ctx, t, typ)
	if len(fresh) == 0 {
		return
	}

	w.notifier.NotifyUsers(ctx, fresh, uuid.Nil, typ, title, message, notification.Context{
		TaskID:   &t.UUID,
		Metadata: map[string]any{"end_date": t.EndDate},
	})
	res.Notified += len(fresh)
}

func (w *DeadlineWorker) describe(t *task.Task, now time.Time) (notification.Type, string, string) {
	if now.After(t.EndDate) {
		days := -progress.DaysRemaining(t.EndDate, now)
		return notification.TypeTaskOverdue, "Задача просрочена",
			fmt.Sprintf("Срок задачи \"%s\" истёк %d дн. назад", t.Title, max(days, 1))
	}

	hours := int(t.EndDate.Sub(now).Hours())
	return notification.TypeTaskDueSoon, "Скоро дедлайн",
		fmt.Sprintf("До срока задачи \"%s\" осталось %d ч.", t.Title, hours)
}

// notNotified - участники, которым уведомление typ по задаче ещё не отправлялось
func (w *DeadlineWorker) notNotified(ctx context.Context, t *task.Task, typ notification.Type) []uuid.UUID {
	var fresh []uuid.UUID
	for _, id := range t.Participants() {
		if id == uuid.Nil {
			continue
		}

		sent, err := w.notifier.AlreadyNotified(ctx, t.UUID, id, typ)
		if err != nil {
			logger.Warn("Worker: Не удалось проверить уведомления",
				zap.String("task_id", t.UUID.String()),
				zap.Error(err))
			continue
		}
		if !sent {
			fresh = append(fresh, id)
		}
	}
	return fresh
}
