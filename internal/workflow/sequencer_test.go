package workflow_test

import (
	"testing"
	"time"

	"taskflow/internal/errs"
	"taskflow/internal/models/task"
	"taskflow/internal/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)

func newTask(status task.Status) *task.Task {
	return &task.Task{
		UUID:      uuid.New(),
		Title:     "Release",
		CreatedBy: uuid.New(),
		StartDate: now.Add(-48 * time.Hour),
		EndDate:   now.Add(72 * time.Hour),
		Status:    status,
		Priority:  task.PriorityMedium,
		IsActive:  true,
	}
}

func newStep(t *task.Task, number int, status task.StepStatus, active bool) *task.Step {
	return &task.Step{
		UUID:       uuid.New(),
		TaskID:     t.UUID,
		StepNumber: number,
		Title:      "step",
		Status:     status,
		IsActive:   active,
	}
}

func activeCount(steps []*task.Step) int {
	n := 0
	for _, s := range steps {
		if s.IsActive {
			n++
		}
	}
	return n
}

func TestCreateStep(t *testing.T) {
	t.Run("success - first step is activated and starts the task", func(t *testing.T) {
		tk := newTask(task.StatusNotStarted)

		out, err := workflow.CreateStep(tk, nil, workflow.StepFields{Title: "Design"}, now)

		require.NoError(t, err)
		assert.Equal(t, 1, out.Step.StepNumber)
		assert.True(t, out.Step.IsActive)
		assert.Equal(t, task.StepInProgress, out.Step.Status)
		assert.Equal(t, out.Step, out.Activated)
		assert.True(t, out.TaskChanged)
		assert.Equal(t, task.StatusInProgress, tk.Status)
		assert.Equal(t, tk.UUID, out.Step.TaskID)
		assert.NotNil(t, out.Step.AssignedUsers)
	})

	t.Run("success - first step keeps paused status", func(t *testing.T) {
		tk := newTask(task.StatusPaused)

		out, err := workflow.CreateStep(tk, nil, workflow.StepFields{Title: "Design"}, now)

		require.NoError(t, err)
		assert.True(t, out.Step.IsActive)
		assert.False(t, out.TaskChanged)
		assert.Equal(t, task.StatusPaused, tk.Status)
	})

	t.Run("success - next step is pending and numbered after max", func(t *testing.T) {
		tk := newTask(task.StatusInProgress)
		steps := []*task.Step{
			newStep(tk, 1, task.StepInProgress, true),
			newStep(tk, 4, task.StepPending, false),
		}

		out, err := workflow.CreateStep(tk, steps, workflow.StepFields{Title: "Build"}, now)

		require.NoError(t, err)
		assert.Equal(t, 5, out.Step.StepNumber)
		assert.False(t, out.Step.IsActive)
		assert.Equal(t, task.StepPending, out.Step.Status)
		assert.Nil(t, out.Activated)
		assert.False(t, out.TaskChanged)
		assert.Empty(t, out.Changed)
	})

	t.Run("error - empty title", func(t *testing.T) {
		tk := newTask(task.StatusNotStarted)

		_, err := workflow.CreateStep(tk, nil, workflow.StepFields{Title: "   "}, now)

		assert.True(t, errs.HasCode(err, errs.CodeValidation))
		assert.Equal(t, task.StatusNotStarted, tk.Status)
	})

	t.Run("error - end before start", func(t *testing.T) {
		tk := newTask(task.StatusNotStarted)
		start, end := now, now.Add(-time.Hour)

		_, err := workflow.CreateStep(tk, nil, workflow.StepFields{Title: "x", StartDate: &start, EndDate: &end}, now)

		assert.True(t, errs.HasCode(err, errs.CodeValidation))
	})

	t.Run("error - existing chain already broken", func(t *testing.T) {
		tk := newTask(task.StatusInProgress)
		steps := []*task.Step{
			newStep(tk, 1, task.StepInProgress, true),
			newStep(tk, 2, task.StepInProgress, true),
		}

		_, err := workflow.CreateStep(tk, steps, workflow.StepFields{Title: "x"}, now)

		assert.True(t, errs.HasCode(err, errs.CodeInvalidState))
	})
}

func TestActivateStep(t *testing.T) {
	tk := newTask(task.StatusInProgress)
	other := newTask(task.StatusInProgress)

	tests := []struct {
		name       string
		steps      func() []*task.Step
		target     func(steps []*task.Step) uuid.UUID
		wantCode   string
		wantStatus task.StepStatus
		wantOff    int
	}{
		{
			name: "success - switches the active step",
			steps: func() []*task.Step {
				return []*task.Step{newStep(tk, 1, task.StepInProgress, true), newStep(tk, 2, task.StepPending, false)}
			},
			target:     func(s []*task.Step) uuid.UUID { return s[1].UUID },
			wantStatus: task.StepInProgress,
			wantOff:    1,
		},
		{
			name: "success - activating the active step is a no-op",
			steps: func() []*task.Step {
				return []*task.Step{newStep(tk, 1, task.StepInProgress, true)}
			},
			target:     func(s []*task.Step) uuid.UUID { return s[0].UUID },
			wantStatus: task.StepInProgress,
		},
		{
			name: "success - blocked step keeps its status",
			steps: func() []*task.Step {
				return []*task.Step{newStep(tk, 1, task.StepBlocked, false)}
			},
			target:     func(s []*task.Step) uuid.UUID { return s[0].UUID },
			wantStatus: task.StepBlocked,
		},
		{
			name: "error - step not found",
			steps: func() []*task.Step {
				return []*task.Step{newStep(tk, 1, task.StepPending, false)}
			},
			target:   func(s []*task.Step) uuid.UUID { return uuid.New() },
			wantCode: errs.CodeNotFound,
		},
		{
			name: "error - step of another task",
			steps: func() []*task.Step {
				return []*task.Step{newStep(other, 1, task.StepPending, false)}
			},
			target:   func(s []*task.Step) uuid.UUID { return s[0].UUID },
			wantCode: errs.CodeInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps := tt.steps()
			id := tt.target(steps)

			out, err := workflow.ActivateStep(tk, steps, id, now)

			if tt.wantCode != "" {
				assert.True(t, errs.HasCode(err, tt.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, id, out.Step.UUID)
			assert.True(t, out.Step.IsActive)
			assert.Equal(t, tt.wantStatus, out.Step.Status)
			assert.Len(t, out.Changed, tt.wantOff)
			assert.Equal(t, 1, activeCount(steps))
		})
	}
}

func TestCompleteStep(t *testing.T) {
	by := uuid.New()

	t.Run("success - only step completes the task", func(t *testing.T) {
		tk := newTask(task.StatusInProgress)
		steps := []*task.Step{newStep(tk, 1, task.StepInProgress, true)}

		out, err := workflow.CompleteStep(tk, steps, steps[0].UUID, by, now)

		require.NoError(t, err)
		assert.Equal(t, task.StepCompleted, steps[0].Status)
		assert.False(t, steps[0].IsActive)
		assert.Equal(t, now, *steps[0].CompletedAt)
		assert.Equal(t, by, *steps[0].CompletedBy)
		assert.Nil(t, out.Activated)
		assert.True(t, out.TaskCompleted)
		assert.True(t, out.TaskChanged)
		assert.Equal(t, task.StatusCompleted, tk.Status)
		require.NotNil(t, tk.ManualProgress)
		assert.Equal(t, 100, *tk.ManualProgress)
	})

	t.Run("success - next pending step is activated", func(t *testing.T) {
		tk := newTask(task.StatusInProgress)
		steps := []*task.Step{
			newStep(tk, 1, task.StepInProgress, true),
			newStep(tk, 2, task.StepPending, false),
			newStep(tk, 3, task.StepPending, false),
		}

		out, err := workflow.CompleteStep(tk, steps, steps[0].UUID, by, now)

		require.NoError(t, err)
		assert.Equal(t, steps[1], out.Activated)
		assert.True(t, steps[1].IsActive)
		assert.Equal(t, task.StepInProgress, steps[1].Status)
		assert.False(t, steps[2].IsActive)
		assert.Equal(t, []*task.Step{steps[1]}, out.Changed)
		assert.False(t, out.TaskChanged)
		assert.Equal(t, task.StatusInProgress, tk.Status)
		assert.Nil(t, tk.ManualProgress)
	})

	t.Run("success - blocked step is skipped", func(t *testing.T) {
		tk := newTask(task.StatusInProgress)
		steps := []*task.Step{
			newStep(tk, 1, task.StepInProgress, true),
			newStep(tk, 2, task.StepBlocked, false),
			newStep(tk, 3, task.StepPending, false),
		}

		out, err := workflow.CompleteStep(tk, steps, steps[0].UUID, by, now)

		require.NoError(t, err)
		assert.Equal(t, steps[2], out.Activated)
		assert.False(t, steps[1].IsActive)
		assert.Equal(t, task.StepBlocked, steps[1].Status)
	})

	t.Run("success - only blocked steps left completes the task", func(t *testing.T) {
		tk := newTask(task.StatusInProgress)
		steps := []*task.Step{
			newStep(tk, 1, task.StepInProgress, true),
			newStep(tk, 2, task.StepBlocked, false),
		}

		out, err := workflow.CompleteStep(tk, steps, steps[0].UUID, by, now)

		require.NoError(t, err)
		assert.Nil(t, out.Activated)
		assert.True(t, out.TaskCompleted)
		assert.Equal(t, task.StatusCompleted, tk.Status)
	})

	t.Run("success - pending step before the completed one is not picked", func(t *testing.T) {
		tk := newTask(task.StatusInProgress)
		steps := []*task.Step{
			newStep(tk, 1, task.StepPending, false),
			newStep(tk, 2, task.StepInProgress, true),
		}

		out, err := workflow.CompleteStep(tk, steps, steps[1].UUID, by, now)

		require.NoError(t, err)
		assert.Nil(t, out.Activated)
		assert.True(t, out.TaskCompleted)
	})

	t.Run("success - completing the last inactive step completes the task", func(t *testing.T) {
		tk := newTask(task.StatusInProgress)
		steps := []*task.Step{
			newStep(tk, 1, task.StepInProgress, true),
			newStep(tk, 2, task.StepPending, false),
		}

		out, err := workflow.CompleteStep(tk, steps, steps[1].UUID, by, now)

		require.NoError(t, err)
		assert.Nil(t, out.Activated)
		assert.True(t, out.TaskChanged)
		assert.True(t, out.TaskCompleted)
		assert.Equal(t, task.StatusCompleted, tk.Status)
		require.NotNil(t, tk.ManualProgress)
		assert.Equal(t, 100, *tk.ManualProgress)
		assert.True(t, steps[0].IsActive)
		assert.Equal(t, task.StepCompleted, steps[1].Status)
	})

	t.Run("success - completing an inactive step keeps the active one", func(t *testing.T) {
		tk := newTask(task.StatusInProgress)
		steps := []*task.Step{
			newStep(tk, 1, task.StepPending, false),
			newStep(tk, 2, task.StepInProgress, true),
			newStep(tk, 3, task.StepPending, false),
		}

		out, err := workflow.CompleteStep(tk, steps, steps[0].UUID, by, now)

		require.NoError(t, err)
		assert.Nil(t, out.Activated)
		assert.False(t, out.TaskChanged)
		assert.True(t, steps[1].IsActive)
		assert.False(t, steps[2].IsActive)
		assert.Equal(t, task.StatusInProgress, tk.Status)
		assert.Equal(t, 1, activeCount(steps))
	})

	t.Run("success - completing an already completed step is allowed", func(t *testing.T) {
		tk := newTask(task.StatusCompleted)
		steps := []*task.Step{newStep(tk, 1, task.StepCompleted, false)}

		out, err := workflow.CompleteStep(tk, steps, steps[0].UUID, by, now)

		require.NoError(t, err)
		assert.True(t, out.TaskCompleted)
	})

	t.Run("error - step not found", func(t *testing.T) {
		tk := newTask(task.StatusInProgress)

		_, err := workflow.CompleteStep(tk, nil, uuid.New(), by, now)

		assert.True(t, errs.HasCode(err, errs.CodeNotFound))
	})
}

func TestUpdateStep(t *testing.T) {
	t.Run("success - edits fields", func(t *testing.T) {
		tk := newTask(task.StatusInProgress)
		steps := []*task.Step{newStep(tk, 1, task.StepInProgress, true)}
		desc := "новое описание"
		users := []uuid.UUID{uuid.New()}

		out, err := workflow.UpdateStep(tk, steps, steps[0].UUID, now,
			task.WithStepTitle("Renamed"),
			task.WithStepDescription(&desc),
			task.WithStepAssignedUsers(users),
			task.WithStepStatus(""),
		)

		require.NoError(t, err)
		assert.Equal(t, "Renamed", out.Step.Title)
		assert.Equal(t, desc, out.Step.Description)
		assert.Equal(t, users, out.Step.AssignedUsers)
		assert.True(t, out.Step.IsActive)
		assert.Nil(t, out.Activated)
	})

	t.Run("success - blocking the active step hands over", func(t *testing.T) {
		tk := newTask(task.StatusInProgress)
		steps := []*task.Step{
			newStep(tk, 1, task.StepInProgress, true),
			newStep(tk, 2, task.StepPending, false),
		}

		out, err := workflow.UpdateStep(tk, steps, steps[0].UUID, now, task.WithStepStatus(task.StepBlocked))

		require.NoError(t, err)
		assert.False(t, steps[0].IsActive)
		assert.Equal(t, task.StepBlocked, steps[0].Status)
		assert.Equal(t, steps[1], out.Activated)
		assert.Equal(t, 1, activeCount(steps))
	})

	t.Run("success - moving the active step back to pending picks another step", func(t *testing.T) {
		tk := newTask(task.StatusInProgress)
		steps := []*task.Step{
			newStep(tk, 1, task.StepPending, false),
			newStep(tk, 2, task.StepInProgress, true),
		}

		out, err := workflow.UpdateStep(tk, steps, steps[1].UUID, now, task.WithStepStatus(task.StepPending))

		require.NoError(t, err)
		assert.Equal(t, steps[0], out.Activated)
		assert.False(t, steps[1].IsActive)
	})

	t.Run("success - unblocking with nothing active activates the step", func(t *testing.T) {
		tk := newTask(task.StatusInProgress)
		steps := []*task.Step{
			newStep(tk, 1, task.StepCompleted, false),
			newStep(tk, 2, task.StepBlocked, false),
		}

		out, err := workflow.UpdateStep(tk, steps, steps[1].UUID, now, task.WithStepStatus(task.StepPending))

		require.NoError(t, err)
		assert.Equal(t, steps[1], out.Activated)
		assert.Equal(t, task.StepInProgress, steps[1].Status)
		assert.True(t, steps[1].IsActive)
	})

	t.Run("success - reopening a completed step clears completion", func(t *testing.T) {
		tk := newTask(task.StatusInProgress)
		by := uuid.New()
		done := newStep(tk, 1, task.StepCompleted, false)
		done.CompletedAt = &now
		done.CompletedBy = &by
		steps := []*task.Step{done, newStep(tk, 2, task.StepInProgress, true)}

		out, err := workflow.UpdateStep(tk, steps, done.UUID, now, task.WithStepStatus(task.StepPending))

		require.NoError(t, err)
		assert.Nil(t, out.Activated)
		assert.Equal(t, task.StepPending, done.Status)
		assert.Nil(t, done.CompletedAt)
		assert.Nil(t, done.CompletedBy)
		assert.True(t, steps[1].IsActive)
	})

	t.Run("error - status completed is rejected and step is restored", func(t *testing.T) {
		tk := newTask(task.StatusInProgress)
		steps := []*task.Step{newStep(tk, 1, task.StepInProgress, true)}

		_, err := workflow.UpdateStep(tk, steps, steps[0].UUID, now,
			task.WithStepTitle("Changed"),
			task.WithStepStatus(task.StepCompleted))

		assert.True(t, errs.HasCode(err, errs.CodeValidation))
		assert.Equal(t, "step", steps[0].Title)
		assert.Equal(t, task.StepInProgress, steps[0].Status)
	})

	t.Run("error - end before start", func(t *testing.T) {
		tk := newTask(task.StatusInProgress)
		steps := []*task.Step{newStep(tk, 1, task.StepPending, false)}
		start, end := now, now.Add(-time.Hour)

		_, err := workflow.UpdateStep(tk, steps, steps[0].UUID, now, task.WithStepDates(&start, &end))

		assert.True(t, errs.HasCode(err, errs.CodeValidation))
		assert.Nil(t, steps[0].StartDate)
	})
}

func TestDeleteStep(t *testing.T) {
	tests := []struct {
		name         string
		statuses     []task.StepStatus
		active       int
		remove       int
		wantActivate int
	}{
		{
			name:         "success - active step replaced by next pending",
			statuses:     []task.StepStatus{task.StepCompleted, task.StepInProgress, task.StepPending, task.StepPending},
			active:       1,
			remove:       1,
			wantActivate: 2,
		},
		{
			name:         "success - falls back to lowest pending",
			statuses:     []task.StepStatus{task.StepPending, task.StepCompleted, task.StepInProgress},
			active:       2,
			remove:       2,
			wantActivate: 0,
		},
		{
			name:         "success - nothing pending leaves no active step",
			statuses:     []task.StepStatus{task.StepCompleted, task.StepInProgress, task.StepBlocked},
			active:       1,
			remove:       1,
			wantActivate: -1,
		},
		{
			name:         "success - inactive step removed without side effects",
			statuses:     []task.StepStatus{task.StepInProgress, task.StepPending},
			active:       0,
			remove:       1,
			wantActivate: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := newTask(task.StatusInProgress)
			var steps []*task.Step
			for i, st := range tt.statuses {
				steps = append(steps, newStep(tk, i+1, st, i == tt.active))
			}

			out, err := workflow.DeleteStep(tk, steps, steps[tt.remove].UUID, now)

			require.NoError(t, err)
			assert.Equal(t, steps[tt.remove], out.Step)
			assert.False(t, out.TaskChanged)
			assert.Equal(t, task.StatusInProgress, tk.Status)
			if tt.wantActivate < 0 {
				assert.Nil(t, out.Activated)
				return
			}
			assert.Equal(t, steps[tt.wantActivate], out.Activated)
			assert.Equal(t, task.StepInProgress, steps[tt.wantActivate].Status)
		})
	}

	t.Run("error - step not found", func(t *testing.T) {
		tk := newTask(task.StatusInProgress)

		_, err := workflow.DeleteStep(tk, nil, uuid.New(), now)

		assert.True(t, errs.HasCode(err, errs.CodeNotFound))
	})
}

func TestActiveStep(t *testing.T) {
	tk := newTask(task.StatusInProgress)
	steps := []*task.Step{newStep(tk, 1, task.StepPending, false), newStep(tk, 2, task.StepInProgress, true)}

	assert.Equal(t, steps[1], workflow.ActiveStep(steps))
	assert.Nil(t, workflow.ActiveStep(steps[:1]))
}
