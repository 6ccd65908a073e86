package handlers

import (
	"context"
	"time"

	"taskflow/internal/models/activity"
	"taskflow/internal/models/notification"
	"taskflow/internal/models/task"
	"taskflow/internal/models/update"
	"taskflow/internal/models/user"
	"taskflow/internal/service"
	"taskflow/internal/workflow"

	"github.com/google/uuid"
)

type TaskService interface {
	HealthCheck(context.Context) error
	Create(ctx context.Context, actor uuid.UUID, in service.CreateTaskInput) (*service.TaskView, error)
	Get(ctx context.Context, id uuid.UUID) (*service.TaskView, error)
	List(ctx context.Context, in service.ListTasksInput) ([]*service.TaskView, error)
	ListDeleted(ctx context.Context) ([]*service.TaskView, error)
	Update(ctx context.Context, actor, id uuid.UUID, in service.UpdateTaskInput) (*service.TaskView, error)
	Delete(ctx context.Context, actor, id uuid.UUID) error
	Restore(ctx context.Context, actor, id uuid.UUID) (*service.TaskView, error)
	StopWork(ctx context.Context, actor, id uuid.UUID, reason string) (*service.TaskView, error)
	ResumeWork(ctx context.Context, actor, id uuid.UUID) (*service.TaskView, error)
	SetProgress(ctx context.Context, actor, id uuid.UUID, value int, comment string) (*service.TaskView, error)
	RequestHelp(ctx context.Context, actor, id uuid.UUID, message string) error
	AddComment(ctx context.Context, actor, id uuid.UUID, text string) (*task.Comment, error)
	UpdateComment(ctx context.Context, actor, id, commentID uuid.UUID, text string) (*task.Comment, error)
	DeleteComment(ctx context.Context, actor, id, commentID uuid.UUID) error
	Comments(ctx context.Context, id uuid.UUID) ([]task.Comment, error)
	Activities(ctx context.Context, id uuid.UUID, limit int) ([]*activity.Activity, error)
}

type StepService interface {
	List(ctx context.Context, taskID uuid.UUID) ([]*task.Step, error)
	Create(ctx context.Context, actor, taskID uuid.UUID, fields workflow.StepFields) (*service.StepResult, error)
	Update(ctx context.Context, actor, stepID uuid.UUID, in service.UpdateStepInput) (*service.StepResult, error)
	Delete(ctx context.Context, actor, stepID uuid.UUID) (*service.StepResult, error)
	Activate(ctx context.Context, actor, stepID uuid.UUID) (*service.StepResult, error)
	Complete(ctx context.Context, actor, stepID uuid.UUID) (*service.StepResult, error)
}

type NotificationService interface {
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*notification.Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) (*notification.Notification, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type UserService interface {
	Create(ctx context.Context, name, email string, role user.Role) (*user.User, error)
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
	List(ctx context.Context) ([]*user.User, error)
	Update(ctx context.Context, actor, id uuid.UUID, in service.UpdateUserInput) (*user.User, error)
}

type UpdateService interface {
	List(ctx context.Context, actor, taskID uuid.UUID) ([]*update.Update, error)
	Create(ctx context.Context, actor, taskID uuid.UUID, text string, date *time.Time) (*update.Update, error)
	Delete(ctx context.Context, actor, id uuid.UUID) error
}

var (
	_ TaskService         = (*service.TaskService)(nil)
	_ StepService         = (*service.StepService)(nil)
	_ NotificationService = (*service.NotificationService)(nil)
	_ UserService         = (*service.UserService)(nil)
	_ UpdateService       = (*service.UpdateService)(nil)
)
