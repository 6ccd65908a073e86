package workflow

import (
	"strings"
	"time"

	"taskflow/internal/errs"
	"taskflow/internal/models/task"
	"taskflow/internal/progress"

	"github.com/google/uuid"
)

// Display - производные поля задачи, считаются заново при каждом чтении
type Display struct {
	AutoProgress    int            `json:"auto_progress"`
	DisplayProgress int            `json:"display_progress"`
	DaysRemaining   int            `json:"days_remaining"`
	TotalDays       int            `json:"total_days"`
	ProgressColor   progress.Color `json:"progress_color"`
	Overdue         bool           `json:"is_overdue"`
}

// StopWork pauses the task and records why.
func StopWork(t *task.Task, reason string, userID uuid.UUID, now time.Time) (*task.StopLog, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, errs.NewValidationError("reason", "причина остановки обязательна")
	}

	entry := task.StopLog{
		ID:        uuid.New(),
		UserID:    userID,
		Reason:    reason,
		Timestamp: now,
	}
	t.StopLogs = append(t.StopLogs, entry)
	t.Status = task.StatusPaused

	return &entry, nil
}

func ResumeWork(t *task.Task) {
	t.Status = task.StatusInProgress
}

// SetManualProgress overrides the displayed progress and returns the previous override.
func SetManualProgress(t *task.Task, value int, comment string, now time.Time) (*int, error) {
	if value < 0 || value > 100 {
		return nil, errs.NewValidationError("progress", "значение должно быть от 0 до 100")
	}
	if strings.TrimSpace(comment) == "" {
		return nil, errs.NewValidationError("comment", "комментарий обязателен")
	}

	old := t.ManualProgress
	t.ManualProgress = &value

	switch {
	case value == 100:
		t.Status = task.StatusCompleted
	case t.Status == task.StatusNotStarted && value > 0:
		t.Status = task.StatusInProgress
	}

	RefreshAutoProgress(t, now)
	return old, nil
}

// RefreshAutoProgress updates the cached time-based value stored with the task.
func RefreshAutoProgress(t *task.Task, now time.Time) {
	t.AutoProgress = progress.AutoProgress(t.StartDate, t.EndDate, now)
}

func ComputeDisplay(t *task.Task, now time.Time) Display {
	auto := progress.AutoProgress(t.StartDate, t.EndDate, now)

	return Display{
		AutoProgress:    auto,
		DisplayProgress: progress.DisplayProgress(auto, t.ManualProgress),
		DaysRemaining:   progress.DaysRemaining(t.EndDate, now),
		TotalDays:       progress.TotalDays(t.StartDate, t.EndDate),
		ProgressColor:   progress.ProgressColor(t.StartDate, t.EndDate, now),
		Overdue:         progress.IsOverdue(t.EndDate, now),
	}
}
