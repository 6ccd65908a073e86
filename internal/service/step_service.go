package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"taskflow/internal/errs"
	"taskflow/internal/logger"
	"taskflow/internal/models/activity"
	"taskflow/internal/models/notification"
	"taskflow/internal/models/task"
	repo "taskflow/internal/repository"
	"taskflow/internal/workflow"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type StepService struct {
	tasks    TaskRepository
	steps    StepRepository
	dir      *directory
	activity *ActivityService
	notifier *NotificationService
	mailer   Mailer
	clock    Clock
	locks    *taskLocks
}

// StepResult - шаг после операции и то, что случилось с цепочкой
type StepResult struct {
	Step          *task.Step
	Activated     *task.Step
	ActiveStep    *task.Step
	Task          *task.Task
	Display       workflow.Display
	TaskCompleted bool
}

type UpdateStepInput struct {
	Title         *string
	Description   *string
	Status        task.StepStatus
	AssignedUsers []uuid.UUID
	StartDate     *time.Time
	EndDate       *time.Time
}

type changeKind int

const (
	stepCreated changeKind = iota
	stepUpdated
	stepDeleted
)

type stepOp func(t *task.Task, steps []*task.Step, now time.Time) (*workflow.Outcome, error)

// applied - зафиксированный результат операции над цепочкой
type applied struct {
	task   *task.Task
	out    *workflow.Outcome
	active *task.Step
}

func (s *StepService) List(ctx context.Context, taskID uuid.UUID) ([]*task.Step, error) {
	if _, err := loadActiveTask(ctx, s.tasks, taskID); err != nil {
		return nil, err
	}

	steps, err := s.steps.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("получение шагов: %w", err)
	}
	return steps, nil
}

func (s *StepService) Create(ctx context.Context, actor, taskID uuid.UUID, fields workflow.StepFields) (*StepResult, error) {
	fields.AssignedUsers = uniqueIDs(fields.AssignedUsers)
	if err := s.dir.ensureExist(ctx, "assigned_users", fields.AssignedUsers); err != nil {
		return nil, err
	}

	a, err := s.apply(ctx, taskID, stepCreated, func(t *task.Task, steps []*task.Step, now time.Time) (*workflow.Outcome, error) {
		return workflow.CreateStep(t, steps, fields, now)
	})
	if err != nil {
		return nil, err
	}
	t, out := a.task, a.out

	step := out.Step
	logger.Info("Service: Шаг создан",
		zap.String("task_id", taskID.String()),
		zap.String("step_id", step.UUID.String()),
		zap.Int("step_number", step.StepNumber))

	s.activity.Record(ctx, taskID, actor, activity.ActionUpdated,
		fmt.Sprintf("Добавлен шаг %d \"%s\"", step.StepNumber, step.Title),
		map[string]any{"step_id": step.UUID, "step_number": step.StepNumber})
	s.notifyStepAssigned(ctx, t, step, step.AssignedUsers, actor)

	// исполнители первого шага уже получили step_assigned
	if out.Activated != nil && out.Activated != step {
		s.notifyActivated(ctx, t, out.Activated, actor)
	}

	return s.result(a), nil
}

func (s *StepService) Update(ctx context.Context, actor, stepID uuid.UUID, in UpdateStepInput) (*StepResult, error) {
	var title string
	if in.Title != nil {
		title = strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, errs.NewValidationError("title", "название шага не может быть пустым")
		}
	}
	if in.Status != "" && !in.Status.Valid() {
		return nil, errs.NewValidationError("status", "неизвестный статус шага")
	}

	var assigned []uuid.UUID
	if in.AssignedUsers != nil {
		assigned = uniqueIDs(in.AssignedUsers)
		if err := s.dir.ensureExist(ctx, "assigned_users", assigned); err != nil {
			return nil, err
		}
	}

	taskID, err := s.taskOf(ctx, stepID)
	if err != nil {
		return nil, err
	}

	var before []uuid.UUID
	a, err := s.apply(ctx, taskID, stepUpdated, func(t *task.Task, steps []*task.Step, now time.Time) (*workflow.Outcome, error) {
		for _, st := range steps {
			if st.UUID == stepID {
				before = st.AssignedUsers
			}
		}
		return workflow.UpdateStep(t, steps, stepID, now,
			task.WithStepTitle(title),
			task.WithStepDescription(in.Description),
			task.WithStepStatus(in.Status),
			task.WithStepDates(in.StartDate, in.EndDate),
			task.WithStepAssignedUsers(assigned),
		)
	})
	if err != nil {
		return nil, err
	}
	t, out := a.task, a.out

	step := out.Step
	logger.Info("Service: Шаг обновлён", zap.String("step_id", stepID.String()))

	s.activity.Record(ctx, taskID, actor, activity.ActionUpdated,
		fmt.Sprintf("Изменён шаг %d \"%s\"", step.StepNumber, step.Title),
		map[string]any{"step_id": step.UUID, "status": step.Status})

	added, _ := diffIDs(before, step.AssignedUsers)
	s.notifyStepAssigned(ctx, t, step, added, actor)
	if out.Activated != nil {
		s.notifyActivated(ctx, t, out.Activated, actor)
	}

	return s.result(a), nil
}

func (s *StepService) Delete(ctx context.Context, actor, stepID uuid.UUID) (*StepResult, error) {
	taskID, err := s.taskOf(ctx, stepID)
	if err != nil {
		return nil, err
	}

	a, err := s.apply(ctx, taskID, stepDeleted, func(t *task.Task, steps []*task.Step, now time.Time) (*workflow.Outcome, error) {
		return workflow.DeleteStep(t, steps, stepID, now)
	})
	if err != nil {
		return nil, err
	}
	t, out := a.task, a.out

	logger.Info("Service: Шаг удалён", zap.String("step_id", stepID.String()))
	s.activity.Record(ctx, taskID, actor, activity.ActionUpdated,
		fmt.Sprintf("Удалён шаг %d \"%s\"", out.Step.StepNumber, out.Step.Title),
		map[string]any{"step_id": stepID})

	if out.Activated != nil {
		s.notifyActivated(ctx, t, out.Activated, actor)
	}

	return s.result(a), nil
}

func (s *StepService) Activate(ctx context.Context, actor, stepID uuid.UUID) (*StepResult, error) {
	taskID, err := s.taskOf(ctx, stepID)
	if err != nil {
		return nil, err
	}

	a, err := s.apply(ctx, taskID, stepUpdated, func(t *task.Task, steps []*task.Step, now time.Time) (*workflow.Outcome, error) {
		return workflow.ActivateStep(t, steps, stepID, now)
	})
	if err != nil {
		return nil, err
	}
	t, out := a.task, a.out

	logger.Info("Service: Шаг активирован", zap.String("step_id", stepID.String()))
	s.activity.Record(ctx, taskID, actor, activity.ActionUpdated,
		fmt.Sprintf("Активирован шаг %d \"%s\"", out.Step.StepNumber, out.Step.Title),
		map[string]any{"step_id": stepID})
	s.notifyActivated(ctx, t, out.Activated, actor)

	return s.result(a), nil
}

// Complete закрывает шаг и передаёт работу следующему или завершает задачу
func (s *StepService) Complete(ctx context.Context, actor, stepID uuid.UUID) (*StepResult, error) {
	taskID, err := s.taskOf(ctx, stepID)
	if err != nil {
		return nil, err
	}

	var statusBefore task.Status
	a, err := s.apply(ctx, taskID, stepUpdated, func(t *task.Task, steps []*task.Step, now time.Time) (*workflow.Outcome, error) {
		statusBefore = t.Status
		return workflow.CompleteStep(t, steps, stepID, actor, now)
	})
	if err != nil {
		return nil, err
	}
	t, out := a.task, a.out

	logger.Info("Service: Шаг завершён",
		zap.String("step_id", stepID.String()),
		zap.Bool("task_completed", out.TaskCompleted))

	s.activity.Record(ctx, taskID, actor, activity.ActionUpdated,
		fmt.Sprintf("Завершён шаг %d \"%s\"", out.Step.StepNumber, out.Step.Title),
		map[string]any{"step_id": stepID})

	if out.Activated != nil {
		s.notifyActivated(ctx, t, out.Activated, actor)
	}
	if out.TaskCompleted {
		s.activity.Record(ctx, taskID, actor, activity.ActionStatusChanged,
			fmt.Sprintf("Статус изменён: %s -> %s", statusBefore, t.Status),
			map[string]any{"old": statusBefore, "new": t.Status})
		s.notifier.NotifyUsers(ctx, t.Participants(), actor, notification.TypeTaskCompleted,
			"Задача завершена",
			fmt.Sprintf("Все шаги задачи \"%s\" выполнены", t.Title),
			notification.Context{TaskID: &t.UUID, RelatedUserID: &actor})
	}

	return s.result(a), nil
}

// apply - общий путь всех изменений: блокировка, загрузка, переходы, одна фиксация.
// Задача сохраняется всегда, её версия служит замком на всю цепочку шагов.
func (s *StepService) apply(ctx context.Context, taskID uuid.UUID, kind changeKind, op stepOp) (*applied, error) {
	unlock := s.locks.lock(taskID)
	defer unlock()

	t, err := loadActiveTask(ctx, s.tasks, taskID)
	if err != nil {
		return nil, err
	}

	steps, err := s.steps.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("получение шагов: %w", err)
	}

	now := s.clock.Now()
	out, err := op(t, steps, now)
	if err != nil {
		return nil, err
	}
	workflow.RefreshAutoProgress(t, now)

	cs := repo.Changeset{Task: t, Updated: out.Changed}
	switch kind {
	case stepCreated:
		cs.Created = []*task.Step{out.Step}
		steps = append(steps, out.Step)
	case stepDeleted:
		cs.Deleted = []uuid.UUID{out.Step.UUID}
		steps = slices.DeleteFunc(steps, func(st *task.Step) bool { return st == out.Step })
	default:
		cs.Updated = append([]*task.Step{out.Step}, out.Changed...)
	}

	if err := s.steps.Commit(ctx, cs); err != nil {
		logger.Warn("Service: Не удалось сохранить шаги", zap.Error(err), zap.String("task_id", taskID.String()))
		return nil, storageError(err, errs.ResourceTask, taskID, "сохранение шагов")
	}
	return &applied{task: t, out: out, active: workflow.ActiveStep(steps)}, nil
}

func (s *StepService) taskOf(ctx context.Context, stepID uuid.UUID) (uuid.UUID, error) {
	step, err := s.steps.GetByID(ctx, stepID)
	if err != nil {
		return uuid.Nil, storageError(err, errs.ResourceStep, stepID, "получение шага")
	}
	return step.TaskID, nil
}

func (s *StepService) result(a *applied) *StepResult {
	return &StepResult{
		Step:          a.out.Step,
		Activated:     a.out.Activated,
		ActiveStep:    a.active,
		Task:          a.task,
		Display:       workflow.ComputeDisplay(a.task, s.clock.Now()),
		TaskCompleted: a.out.TaskCompleted,
	}
}

func (s *StepService) notifyStepAssigned(ctx context.Context, t *task.Task, step *task.Step, ids []uuid.UUID, actor uuid.UUID) {
	if len(ids) == 0 {
		return
	}

	s.notifier.NotifyUsers(ctx, ids, actor, notification.TypeStepAssigned,
		"Новый шаг",
		fmt.Sprintf("Вам назначен шаг %d \"%s\" задачи \"%s\"", step.StepNumber, step.Title, t.Title),
		notification.Context{TaskID: &t.UUID, StepID: &step.UUID, RelatedUserID: &actor})

	recipients := s.dir.recipients(ctx, ids, actor)
	if len(recipients) == 0 {
		return
	}
	if err := s.mailer.SendStepAssignmentEmail(ctx, recipients, t, step, s.dir.actor(ctx, actor)); err != nil {
		logger.Error("Service: Не удалось отправить письмо о шаге", err, zap.String("step_id", step.UUID.String()))
	}
}

// notifyActivated сообщает исполнителям шага, а без них - исполнителям задачи
func (s *StepService) notifyActivated(ctx context.Context, t *task.Task, step *task.Step, actor uuid.UUID) {
	if step == nil {
		return
	}

	ids := step.AssignedUsers
	if len(ids) == 0 {
		ids = t.Participants()
	}
	s.notifier.NotifyUsers(ctx, ids, actor, notification.TypeStepActivated,
		"Шаг в работе",
		fmt.Sprintf("Шаг %d \"%s\" задачи \"%s\" стал активным", step.StepNumber, step.Title, t.Title),
		notification.Context{TaskID: &t.UUID, StepID: &step.UUID, RelatedUserID: &actor})
}
