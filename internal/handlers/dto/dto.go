package dto

import (
	"time"

	"taskflow/internal/models/task"
	"taskflow/internal/progress"
	"taskflow/internal/service"

	"github.com/google/uuid"
)

type CreateTaskRequest struct {
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	StartDate     time.Time     `json:"start_date"`
	EndDate       time.Time     `json:"end_date"`
	Priority      task.Priority `json:"priority"`
	AssignedUsers []uuid.UUID   `json:"assigned_users"`
}

// UpdateTaskRequest - отсутствующее поле не меняется, assigned_users: [] снимает всех
type UpdateTaskRequest struct {
	Title         *string        `json:"title,omitempty"`
	Description   *string        `json:"description,omitempty"`
	Status        *task.Status   `json:"status,omitempty"`
	Priority      *task.Priority `json:"priority,omitempty"`
	StartDate     *time.Time     `json:"start_date,omitempty"`
	EndDate       *time.Time     `json:"end_date,omitempty"`
	AssignedUsers []uuid.UUID    `json:"assigned_users,omitempty"`
	Version       *int           `json:"version,omitempty"`
}

type StopWorkRequest struct {
	Reason string `json:"reason"`
}

// ProgressRequest - число приходит как float, чтобы отличать 50 от 50.5
type ProgressRequest struct {
	Progress *float64 `json:"progress"`
	Comment  string   `json:"comment"`
}

type HelpRequest struct {
	Message string `json:"message"`
}

type CommentRequest struct {
	Text string `json:"text"`
}

type CreateStepRequest struct {
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	AssignedUsers []uuid.UUID `json:"assigned_users"`
	StartDate     *time.Time  `json:"start_date,omitempty"`
	EndDate       *time.Time  `json:"end_date,omitempty"`
}

type UpdateStepRequest struct {
	Title         *string          `json:"title,omitempty"`
	Description   *string          `json:"description,omitempty"`
	Status        *task.StepStatus `json:"status,omitempty"`
	AssignedUsers []uuid.UUID      `json:"assigned_users,omitempty"`
	StartDate     *time.Time       `json:"start_date,omitempty"`
	EndDate       *time.Time       `json:"end_date,omitempty"`
}

type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UpdateUserRequest - отсутствующее поле не меняется
type UpdateUserRequest struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
}

type CreateTaskUpdateRequest struct {
	UpdateText string     `json:"update_text"`
	UpdateDate *time.Time `json:"update_date"`
}

type TaskResponse struct {
	UUID            uuid.UUID      `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	CreatedBy       uuid.UUID      `json:"created_by"`
	AssignedUsers   []uuid.UUID    `json:"assigned_users"`
	StartDate       time.Time      `json:"start_date"`
	EndDate         time.Time      `json:"end_date"`
	Status          task.Status    `json:"status"`
	Priority        task.Priority  `json:"priority"`
	ManualProgress  *int           `json:"manual_progress"`
	AutoProgress    int            `json:"auto_progress"`
	DisplayProgress int            `json:"display_progress"`
	DaysRemaining   int            `json:"days_remaining"`
	TotalDays       int            `json:"total_days"`
	ProgressColor   progress.Color `json:"progress_color"`
	IsOverdue       bool           `json:"is_overdue"`
	StopLogs        []task.StopLog `json:"stop_logs"`
	CommentsCount   int            `json:"comments_count"`
	ActiveStep      *task.Step     `json:"active_step"`
	IsActive        bool           `json:"is_active"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       *time.Time     `json:"updated_at,omitempty"`
	Version         int            `json:"version"`
}

func FromView(v *service.TaskView) TaskResponse {
	t := v.Task
	return TaskResponse{
		UUID:            t.UUID,
		Title:           t.Title,
		Description:     t.Description,
		CreatedBy:       t.CreatedBy,
		AssignedUsers:   OrEmpty(t.AssignedUsers),
		StartDate:       t.StartDate,
		EndDate:         t.EndDate,
		Status:          t.Status,
		Priority:        t.Priority,
		ManualProgress:  t.ManualProgress,
		AutoProgress:    v.Display.AutoProgress,
		DisplayProgress: v.Display.DisplayProgress,
		DaysRemaining:   v.Display.DaysRemaining,
		TotalDays:       v.Display.TotalDays,
		ProgressColor:   v.Display.ProgressColor,
		IsOverdue:       v.Display.Overdue,
		StopLogs:        OrEmpty(t.StopLogs),
		CommentsCount:   len(t.Comments),
		ActiveStep:      v.ActiveStep,
		IsActive:        t.IsActive,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		Version:         t.Version,
	}
}

func FromViews(views []*service.TaskView) []TaskResponse {
	result := make([]TaskResponse, len(views))
	for i, v := range views {
		result[i] = FromView(v)
	}
	return result
}

// StepResponse - шаг и последствия операции для цепочки
type StepResponse struct {
	Step          *task.Step   `json:"step"`
	Activated     *task.Step   `json:"activated_step"`
	TaskCompleted bool         `json:"task_completed"`
	Task          TaskResponse `json:"task"`
}

func FromStepResult(r *service.StepResult) StepResponse {
	return StepResponse{
		Step:          r.Step,
		Activated:     r.Activated,
		TaskCompleted: r.TaskCompleted,
		Task:          FromView(&service.TaskView{Task: r.Task, Display: r.Display, ActiveStep: r.ActiveStep}),
	}
}

func OrEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
