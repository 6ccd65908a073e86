package inmemory

import (
	"context"
	"slices"
	"sync"

	"taskflow/internal/logger"
	"taskflow/internal/models/activity"
	"taskflow/internal/models/notification"
	"taskflow/internal/models/task"
	"taskflow/internal/models/update"
	"taskflow/internal/models/user"

	"github.com/google/uuid"
)

// state общий для всех хранилищ, чтобы Commit мог менять задачу и шаги под одной блокировкой
type state struct {
	mtx *sync.RWMutex

	tasks   map[uuid.UUID]*task.Task
	taskIDs []uuid.UUID

	steps map[uuid.UUID]*task.Step

	activities []*activity.Activity

	notifications map[uuid.UUID]*notification.Notification
	notifIDs      []uuid.UUID

	users   map[uuid.UUID]*user.User
	userIDs []uuid.UUID

	updates map[uuid.UUID]*update.Update
}

// Storage собирает все map-хранилища над одним состоянием
type Storage struct {
	Tasks         *TaskStorage
	Steps         *StepStorage
	Activities    *ActivityStorage
	Notifications *NotificationStorage
	Users         *UserStorage
	Updates       *UpdateStorage
}

func New() *Storage {
	st := &state{
		mtx:           &sync.RWMutex{},
		tasks:         make(map[uuid.UUID]*task.Task),
		taskIDs:       []uuid.UUID{},
		steps:         make(map[uuid.UUID]*task.Step),
		notifications: make(map[uuid.UUID]*notification.Notification),
		notifIDs:      []uuid.UUID{},
		users:         make(map[uuid.UUID]*user.User),
		userIDs:       []uuid.UUID{},
		updates:       make(map[uuid.UUID]*update.Update),
	}

	logger.Info("Repository: Используется in-memory хранилище")
	return &Storage{
		Tasks:         &TaskStorage{st: st},
		Steps:         &StepStorage{st: st},
		Activities:    &ActivityStorage{st: st},
		Notifications: &NotificationStorage{st: st},
		Users:         &UserStorage{st: st},
		Updates:       &UpdateStorage{st: st},
	}
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	return s.Tasks.HealthCheck(ctx)
}

func (s *Storage) Close() {
	logger.Info("Repository: In-memory хранилище закрыто")
}

// наружу отдаются только копии, иначе сервис менял бы хранимые объекты в обход версий

func cloneTask(t *task.Task) *task.Task {
	c := *t
	c.AssignedUsers = slices.Clone(t.AssignedUsers)
	c.StopLogs = slices.Clone(t.StopLogs)
	c.Comments = make([]task.Comment, len(t.Comments))
	for i, cm := range t.Comments {
		cm.Mentions = slices.Clone(cm.Mentions)
		c.Comments[i] = cm
	}
	if t.ManualProgress != nil {
		v := *t.ManualProgress
		c.ManualProgress = &v
	}
	return &c
}

func cloneStep(s *task.Step) *task.Step {
	c := *s
	c.AssignedUsers = slices.Clone(s.AssignedUsers)
	return &c
}

func cloneNotification(n *notification.Notification) *notification.Notification {
	c := *n
	return &c
}
