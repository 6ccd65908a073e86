package service_test

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"taskflow/internal/errs"
	"taskflow/internal/models/notification"
	"taskflow/internal/models/task"
	"taskflow/internal/models/user"
	"taskflow/internal/repository/inmemory"
	"taskflow/internal/service"
	"taskflow/internal/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stepFixture struct {
	store  *inmemory.Storage
	svc    *service.Services
	mailer *MockMailer
	owner  *user.User
	worker *user.User
	taskID uuid.UUID
}

func newStepFixture(t *testing.T) *stepFixture {
	t.Helper()
	ctx := context.Background()

	store := inmemory.New()
	mailer := new(MockMailer)
	mailer.On("SendAssignmentEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	mailer.On("SendStepAssignmentEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	svc := service.New(service.Deps{
		Tasks:         store.Tasks,
		Steps:         store.Steps,
		Activities:    store.Activities,
		Notifications: store.Notifications,
		Users:         store.Users,
		Updates:       store.Updates,
		Mailer:        mailer,
		Clock:         fixedClock{now: now},
	})

	owner, err := svc.Users.Create(ctx, "alice", "alice@example.com", user.RoleAdmin)
	require.NoError(t, err)
	worker, err := svc.Users.Create(ctx, "bob", "bob@example.com", "")
	require.NoError(t, err)

	view, err := svc.Tasks.Create(ctx, owner.UUID, service.CreateTaskInput{
		Title:     "Релиз",
		StartDate: now.Add(-48 * time.Hour),
		EndDate:   now.Add(72 * time.Hour),
	})
	require.NoError(t, err)

	return &stepFixture{store: store, svc: svc, mailer: mailer, owner: owner, worker: worker, taskID: view.Task.UUID}
}

func (f *stepFixture) addSteps(t *testing.T, titles ...string) []*task.Step {
	t.Helper()
	var res []*task.Step
	for _, title := range titles {
		r, err := f.svc.Steps.Create(context.Background(), f.owner.UUID, f.taskID, workflow.StepFields{Title: title})
		require.NoError(t, err)
		res = append(res, r.Step)
	}
	return res
}

func (f *stepFixture) countActive(t *testing.T) int {
	t.Helper()
	steps, err := f.store.Steps.ListByTask(context.Background(), f.taskID)
	require.NoError(t, err)
	active := 0
	for _, s := range steps {
		if s.IsActive {
			active++
		}
	}
	return active
}

func TestStepService_Flow(t *testing.T) {
	ctx := context.Background()

	t.Run("success - first step starts the task", func(t *testing.T) {
		f := newStepFixture(t)

		r, err := f.svc.Steps.Create(ctx, f.owner.UUID, f.taskID, workflow.StepFields{
			Title:         "Сборка",
			AssignedUsers: []uuid.UUID{f.worker.UUID},
		})
		require.NoError(t, err)

		assert.Equal(t, 1, r.Step.StepNumber)
		assert.True(t, r.Step.IsActive)
		assert.Equal(t, task.StepInProgress, r.Step.Status)
		assert.Equal(t, task.StatusInProgress, r.Task.Status)

		items, err := f.svc.Notifications.List(ctx, f.worker.UUID, false, 0)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, notification.TypeStepAssigned, items[0].Type)
		f.mailer.AssertCalled(t, "SendStepAssignmentEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("success - completion cascades and skips blocked", func(t *testing.T) {
		f := newStepFixture(t)
		steps := f.addSteps(t, "Сборка", "Тесты", "Выкладка")

		blocked := task.StepBlocked
		_, err := f.svc.Steps.Update(ctx, f.owner.UUID, steps[2].UUID, service.UpdateStepInput{Status: blocked})
		require.NoError(t, err)

		r, err := f.svc.Steps.Complete(ctx, f.worker.UUID, steps[0].UUID)
		require.NoError(t, err)
		require.NotNil(t, r.Activated)
		assert.Equal(t, steps[1].UUID, r.Activated.UUID)
		assert.False(t, r.TaskCompleted)
		assert.Equal(t, 1, f.countActive(t))

		r, err = f.svc.Steps.Complete(ctx, f.worker.UUID, steps[1].UUID)
		require.NoError(t, err)
		assert.Nil(t, r.Activated)
		assert.True(t, r.TaskCompleted)
		assert.Equal(t, task.StatusCompleted, r.Task.Status)
		assert.Equal(t, 100, r.Display.DisplayProgress)
		assert.Equal(t, 0, f.countActive(t))

		stored, err := f.store.Tasks.GetByID(ctx, f.taskID)
		require.NoError(t, err)
		assert.Equal(t, task.StatusCompleted, stored.Status)
		require.NotNil(t, stored.ManualProgress)
		assert.Equal(t, 100, *stored.ManualProgress)

		items, err := f.svc.Notifications.List(ctx, f.owner.UUID, true, 0)
		require.NoError(t, err)
		assert.True(t, slices.ContainsFunc(items, func(n *notification.Notification) bool {
			return n.Type == notification.TypeTaskCompleted
		}))
	})

	t.Run("success - deleting active step hands over", func(t *testing.T) {
		f := newStepFixture(t)
		steps := f.addSteps(t, "Сборка", "Тесты")

		r, err := f.svc.Steps.Delete(ctx, f.owner.UUID, steps[0].UUID)
		require.NoError(t, err)
		require.NotNil(t, r.Activated)
		assert.Equal(t, steps[1].UUID, r.Activated.UUID)

		left, err := f.svc.Steps.List(ctx, f.taskID)
		require.NoError(t, err)
		require.Len(t, left, 1)
		assert.Equal(t, 2, left[0].StepNumber)
		assert.True(t, left[0].IsActive)
	})

	t.Run("success - manual activation moves the single active step", func(t *testing.T) {
		f := newStepFixture(t)
		steps := f.addSteps(t, "Сборка", "Тесты", "Выкладка")

		r, err := f.svc.Steps.Activate(ctx, f.owner.UUID, steps[2].UUID)
		require.NoError(t, err)
		assert.True(t, r.Step.IsActive)
		assert.Equal(t, 1, f.countActive(t))

		view, err := f.svc.Tasks.Get(ctx, f.taskID)
		require.NoError(t, err)
		require.NotNil(t, view.ActiveStep)
		assert.Equal(t, steps[2].UUID, view.ActiveStep.UUID)
	})

	t.Run("error - step status cannot jump to completed", func(t *testing.T) {
		f := newStepFixture(t)
		steps := f.addSteps(t, "Сборка")

		_, err := f.svc.Steps.Update(ctx, f.owner.UUID, steps[0].UUID, service.UpdateStepInput{Status: task.StepCompleted})
		require.Error(t, err)
		assert.True(t, errs.HasCode(err, errs.CodeValidation))

		stored, err := f.store.Steps.GetByID(ctx, steps[0].UUID)
		require.NoError(t, err)
		assert.Equal(t, task.StepInProgress, stored.Status)
	})

	t.Run("error - steps of deleted task are frozen", func(t *testing.T) {
		f := newStepFixture(t)
		steps := f.addSteps(t, "Сборка")

		require.NoError(t, f.svc.Tasks.Delete(ctx, f.owner.UUID, f.taskID))

		_, err := f.svc.Steps.Complete(ctx, f.owner.UUID, steps[0].UUID)
		require.Error(t, err)
		assert.True(t, errs.HasCode(err, errs.CodeTaskDeleted))
	})

	t.Run("error - unknown assignee", func(t *testing.T) {
		f := newStepFixture(t)

		_, err := f.svc.Steps.Create(ctx, f.owner.UUID, f.taskID, workflow.StepFields{
			Title:         "Сборка",
			AssignedUsers: []uuid.UUID{uuid.New()},
		})
		require.Error(t, err)
		assert.True(t, errs.HasCode(err, errs.CodeValidation))
	})
}

// параллельные завершения одного шага не должны дать два активных шага
func TestStepService_ConcurrentComplete(t *testing.T) {
	ctx := context.Background()
	f := newStepFixture(t)
	steps := f.addSteps(t, "Сборка", "Тесты", "Выкладка")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.svc.Steps.Complete(ctx, f.worker.UUID, steps[0].UUID)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, f.countActive(t), 1)

	stored, err := f.store.Tasks.GetByID(ctx, f.taskID)
	require.NoError(t, err)
	assert.NotEqual(t, task.StatusCompleted, stored.Status)
}
