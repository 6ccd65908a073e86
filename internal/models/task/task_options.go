package task

import (
	"time"

	"github.com/google/uuid"
)

// TaskOption - функция обновления задачи, nil означает "поле не передано"
type TaskOption func(*Task)

func WithTitle(title string) TaskOption {
	if title == "" {
		return nil
	}
	return func(task *Task) {
		task.Title = title
	}
}

func WithDescription(description *string) TaskOption {
	if description == nil {
		return nil
	}
	return func(task *Task) {
		task.Description = *description
	}
}

func WithStatus(status Status) TaskOption {
	if status == "" {
		return nil
	}
	return func(task *Task) {
		task.Status = status
	}
}

func WithPriority(priority Priority) TaskOption {
	if priority == "" {
		return nil
	}
	return func(task *Task) {
		task.Priority = priority
	}
}

func WithStartDate(start time.Time) TaskOption {
	if start.IsZero() {
		return nil
	}
	return func(task *Task) {
		task.StartDate = start
	}
}

func WithEndDate(end time.Time) TaskOption {
	if end.IsZero() {
		return nil
	}
	return func(task *Task) {
		task.EndDate = end
	}
}

func WithAssignedUsers(users []uuid.UUID) TaskOption {
	if users == nil {
		return nil
	}
	return func(task *Task) {
		task.AssignedUsers = users
	}
}

// StepOption - то же самое для шагов
type StepOption func(*Step)

func WithStepTitle(title string) StepOption {
	if title == "" {
		return nil
	}
	return func(step *Step) {
		step.Title = title
	}
}

func WithStepDescription(description *string) StepOption {
	if description == nil {
		return nil
	}
	return func(step *Step) {
		step.Description = *description
	}
}

func WithStepStatus(status StepStatus) StepOption {
	if status == "" {
		return nil
	}
	return func(step *Step) {
		step.Status = status
	}
}

func WithStepDates(start, end *time.Time) StepOption {
	if start == nil && end == nil {
		return nil
	}
	return func(step *Step) {
		if start != nil {
			step.StartDate = start
		}
		if end != nil {
			step.EndDate = end
		}
	}
}

func WithStepAssignedUsers(users []uuid.UUID) StepOption {
	if users == nil {
		return nil
	}
	return func(step *Step) {
		step.AssignedUsers = users
	}
}
