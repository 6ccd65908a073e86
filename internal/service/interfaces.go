package service

import (
	"context"
	"time"

	"taskflow/internal/models/activity"
	"taskflow/internal/models/notification"
	"taskflow/internal/models/task"
	"taskflow/internal/models/update"
	"taskflow/internal/models/user"
	"taskflow/internal/repository"

	"github.com/google/uuid"
)

type TaskRepository interface {
	Create(context.Context, *task.Task) error
	Update(context.Context, *task.Task) error
	GetByID(context.Context, uuid.UUID) (*task.Task, error)
	List(context.Context, repository.TaskFilter) ([]*task.Task, error)
	ListDeadlineCandidates(ctx context.Context, before time.Time, after *repository.DeadlineCursor, limit int) ([]*task.Task, error)
	HealthCheck(context.Context) error
}

type StepRepository interface {
	GetByID(context.Context, uuid.UUID) (*task.Step, error)
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*task.Step, error)
	ListActiveByTasks(ctx context.Context, taskIDs []uuid.UUID) (map[uuid.UUID]*task.Step, error)
	Commit(context.Context, repository.Changeset) error
}

type ActivityRepository interface {
	Create(context.Context, *activity.Activity) error
	ListByTask(ctx context.Context, taskID uuid.UUID, limit int) ([]*activity.Activity, error)
}

type NotificationRepository interface {
	CreateMany(context.Context, []*notification.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, filter repository.NotificationFilter) ([]*notification.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) (*notification.Notification, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
	ExistsForTask(ctx context.Context, taskID, userID uuid.UUID, typ notification.Type) (bool, error)
}

type UpdateRepository interface {
	Create(context.Context, *update.Update) error
	GetByID(context.Context, uuid.UUID) (*update.Update, error)
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*update.Update, error)
	Delete(context.Context, uuid.UUID) error
}

type UserRepository interface {
	Create(context.Context, *user.User) error
	Update(context.Context, *user.User) error
	GetByID(context.Context, uuid.UUID) (*user.User, error)
	GetByIDs(context.Context, []uuid.UUID) ([]*user.User, error)
	GetByNames(context.Context, []string) ([]*user.User, error)
	List(context.Context) ([]*user.User, error)
}

// Mailer - письма отправляются по возможности, ошибка не отменяет операцию
type Mailer interface {
	SendAssignmentEmail(ctx context.Context, recipients []*user.User, t *task.Task, assigner *user.User) error
	SendStepAssignmentEmail(ctx context.Context, recipients []*user.User, t *task.Task, step *task.Step, assigner *user.User) error
	SendHelpRequestEmail(ctx context.Context, recipients []*user.User, t *task.Task, requester *user.User, message string) error
	SendMentionEmail(ctx context.Context, recipients []*user.User, t *task.Task, author *user.User, text string) error
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
