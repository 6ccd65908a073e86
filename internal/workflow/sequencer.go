// Package workflow holds the step state machine of a task and the task-level
// lifecycle actions. It works on loaded entities only and never touches storage.
package workflow

import (
	"slices"
	"strings"
	"time"

	"taskflow/internal/errs"
	"taskflow/internal/models/task"

	"github.com/google/uuid"
)

// StepFields - данные для нового шага
type StepFields struct {
	Title         string
	Description   string
	AssignedUsers []uuid.UUID
	StartDate     *time.Time
	EndDate       *time.Time
}

// Outcome describes what a sequencer operation touched.
// Step is the target of the operation (the new step for CreateStep, the removed one
// for DeleteStep). Changed lists the other existing steps that were modified and must
// be persisted together with the task when TaskChanged is set.
type Outcome struct {
	Step          *task.Step
	Activated     *task.Step
	Changed       []*task.Step
	TaskChanged   bool
	TaskCompleted bool
}

func (o *Outcome) touch(step *task.Step) {
	if step == o.Step || slices.Contains(o.Changed, step) {
		return
	}
	o.Changed = append(o.Changed, step)
}

// CreateStep appends a step numbered after the current maximum.
// The first step of a task is activated right away.
func CreateStep(t *task.Task, steps []*task.Step, fields StepFields, now time.Time) (*Outcome, error) {
	title := strings.TrimSpace(fields.Title)
	if title == "" {
		return nil, errs.NewValidationError("title", "название шага не может быть пустым")
	}
	if fields.StartDate != nil && fields.EndDate != nil && fields.EndDate.Before(*fields.StartDate) {
		return nil, errs.NewValidationError("end_date", "дата окончания раньше даты начала")
	}

	assigned := fields.AssignedUsers
	if assigned == nil {
		assigned = []uuid.UUID{}
	}

	step := &task.Step{
		UUID:          uuid.New(),
		TaskID:        t.UUID,
		StepNumber:    nextStepNumber(steps),
		Title:         title,
		Description:   fields.Description,
		AssignedUsers: assigned,
		Status:        task.StepPending,
		StartDate:     fields.StartDate,
		EndDate:       fields.EndDate,
		CreatedAt:     now,
	}

	out := &Outcome{Step: step}

	if len(steps) == 0 {
		step.IsActive = true
		step.Status = task.StepInProgress
		out.Activated = step

		if t.Status == task.StatusNotStarted {
			t.Status = task.StatusInProgress
			out.TaskChanged = true
		}
	}

	if err := checkSingleActive(t, append(slices.Clone(steps), step)); err != nil {
		return nil, err
	}
	return out, nil
}

// ActivateStep makes stepID the only active step of the task.
func ActivateStep(t *task.Task, steps []*task.Step, stepID uuid.UUID, now time.Time) (*Outcome, error) {
	step, err := findStep(t, steps, stepID)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Step: step}
	for _, s := range steps {
		if s != step && s.IsActive {
			s.IsActive = false
			s.UpdatedAt = &now
			out.touch(s)
		}
	}

	step.IsActive = true
	if step.Status == task.StepPending {
		step.Status = task.StepInProgress
	}
	step.UpdatedAt = &now
	out.Activated = step

	if err := checkSingleActive(t, steps); err != nil {
		return nil, err
	}
	return out, nil
}

// CompleteStep closes the step and hands the chain over to the next pending step.
// Blocked steps are skipped. When no pending step follows, the task is completed.
// If some other step is still active nothing is activated.
func CompleteStep(t *task.Task, steps []*task.Step, stepID uuid.UUID, by uuid.UUID, now time.Time) (*Outcome, error) {
	step, err := findStep(t, steps, stepID)
	if err != nil {
		return nil, err
	}

	step.Status = task.StepCompleted
	step.IsActive = false
	step.CompletedAt = &now
	step.CompletedBy = &by
	step.UpdatedAt = &now

	out := &Outcome{Step: step}

	next := nextPendingAfter(steps, step.StepNumber)
	switch {
	case next == nil:
		completeTask(t)
		out.TaskChanged = true
		out.TaskCompleted = true
	case activeStep(steps) == nil:
		activate(next, now)
		out.Activated = next
		out.touch(next)
	}

	if err := checkSingleActive(t, steps); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStep edits the step. Status may only be moved between pending and blocked here,
// activation and completion have their own operations. Taking the active step out of
// the chain hands activity over the same way DeleteStep does; releasing a step while
// nothing is active makes it the active one.
func UpdateStep(t *task.Task, steps []*task.Step, stepID uuid.UUID, now time.Time, opts ...task.StepOption) (*Outcome, error) {
	step, err := findStep(t, steps, stepID)
	if err != nil {
		return nil, err
	}

	before := *step
	for _, opt := range opts {
		if opt != nil {
			opt(step)
		}
	}

	if strings.TrimSpace(step.Title) == "" {
		*step = before
		return nil, errs.NewValidationError("title", "название шага не может быть пустым")
	}
	if step.StartDate != nil && step.EndDate != nil && step.EndDate.Before(*step.StartDate) {
		*step = before
		return nil, errs.NewValidationError("end_date", "дата окончания раньше даты начала")
	}

	out := &Outcome{Step: step}

	if step.Status != before.Status {
		switch step.Status {
		case task.StepPending, task.StepBlocked:
		default:
			*step = before
			return nil, errs.NewValidationError("status", "шаг можно перевести только в pending или blocked")
		}
		if before.Status == task.StepCompleted {
			step.CompletedAt = nil
			step.CompletedBy = nil
		}

		switch {
		case before.IsActive:
			step.IsActive = false
			others := slices.DeleteFunc(slices.Clone(steps), func(s *task.Step) bool { return s == step })
			if next := replacement(others, step.StepNumber); next != nil {
				activate(next, now)
				out.Activated = next
				out.touch(next)
			}
		case step.Status == task.StepPending && activeStep(steps) == nil && t.Status != task.StatusCompleted:
			activate(step, now)
			out.Activated = step
		}
	}
	step.UpdatedAt = &now

	if err := checkSingleActive(t, steps); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteStep removes the step without renumbering the rest. When the active step goes,
// the next pending step after it (or the lowest pending one) takes over.
func DeleteStep(t *task.Task, steps []*task.Step, stepID uuid.UUID, now time.Time) (*Outcome, error) {
	step, err := findStep(t, steps, stepID)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Step: step}
	rest := slices.DeleteFunc(slices.Clone(steps), func(s *task.Step) bool { return s == step })

	if step.IsActive {
		if next := replacement(rest, step.StepNumber); next != nil {
			activate(next, now)
			out.Activated = next
			out.touch(next)
		}
	}

	if err := checkSingleActive(t, rest); err != nil {
		return nil, err
	}
	return out, nil
}

// ActiveStep returns the active step or nil.
func ActiveStep(steps []*task.Step) *task.Step {
	return activeStep(steps)
}

func findStep(t *task.Task, steps []*task.Step, stepID uuid.UUID) (*task.Step, error) {
	for _, s := range steps {
		if s.UUID != stepID {
			continue
		}
		if s.TaskID != t.UUID {
			return nil, errs.NewInvalidState("шаг принадлежит другой задаче",
				errs.ToDetail("step_id", stepID.String()),
				errs.ToDetail("task_id", t.UUID.String()))
		}
		return s, nil
	}
	return nil, errs.NewNotFound(errs.ResourceStep, stepID.String())
}

func nextStepNumber(steps []*task.Step) int {
	last := 0
	for _, s := range steps {
		if s.StepNumber > last {
			last = s.StepNumber
		}
	}
	return last + 1
}

func activeStep(steps []*task.Step) *task.Step {
	for _, s := range steps {
		if s.IsActive {
			return s
		}
	}
	return nil
}

func nextPendingAfter(steps []*task.Step, number int) *task.Step {
	var next *task.Step
	for _, s := range steps {
		if s.Status != task.StepPending || s.StepNumber <= number {
			continue
		}
		if next == nil || s.StepNumber < next.StepNumber {
			next = s
		}
	}
	return next
}

func replacement(steps []*task.Step, number int) *task.Step {
	if next := nextPendingAfter(steps, number); next != nil {
		return next
	}
	return nextPendingAfter(steps, 0)
}

func activate(step *task.Step, now time.Time) {
	step.IsActive = true
	step.Status = task.StepInProgress
	step.UpdatedAt = &now
}

func completeTask(t *task.Task) {
	full := 100
	t.Status = task.StatusCompleted
	t.ManualProgress = &full
}

func checkSingleActive(t *task.Task, steps []*task.Step) error {
	active := 0
	for _, s := range steps {
		if s.IsActive {
			active++
		}
	}
	if active > 1 {
		return errs.NewInvalidState("у задачи больше одного активного шага",
			errs.ToDetail("task_id", t.UUID.String()),
			errs.ToDetail("active_steps", active))
	}
	return nil
}
