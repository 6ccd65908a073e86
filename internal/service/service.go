package service

import (
	"context"
	"fmt"
	"slices"

	"taskflow/internal/errs"
	"taskflow/internal/logger"
	"taskflow/internal/models/user"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Deps struct {
	Tasks         TaskRepository
	Steps         StepRepository
	Activities    ActivityRepository
	Notifications NotificationRepository
	Users         UserRepository
	Updates       UpdateRepository
	Mailer        Mailer
	Clock         Clock
}

type Services struct {
	Tasks         *TaskService
	Steps         *StepService
	Activities    *ActivityService
	Notifications *NotificationService
	Users         *UserService
	Updates       *UpdateService
}

// New собирает сервисы. Задачи и шаги делят одну таблицу блокировок.
func New(d Deps) *Services {
	if d.Clock == nil {
		d.Clock = SystemClock{}
	}

	locks := newTaskLocks()
	activities := NewActivityService(d.Activities, d.Clock)
	notifications := NewNotificationService(d.Notifications, d.Clock)
	dir := &directory{users: d.Users}

	return &Services{
		Tasks: &TaskService{
			tasks:    d.Tasks,
			steps:    d.Steps,
			dir:      dir,
			activity: activities,
			notifier: notifications,
			mailer:   d.Mailer,
			clock:    d.Clock,
			locks:    locks,
		},
		Steps: &StepService{
			tasks:    d.Tasks,
			steps:    d.Steps,
			dir:      dir,
			activity: activities,
			notifier: notifications,
			mailer:   d.Mailer,
			clock:    d.Clock,
			locks:    locks,
		},
		Activities:    activities,
		Notifications: notifications,
		Users:         NewUserService(d.Users, d.Clock),
		Updates: &UpdateService{
			tasks:    d.Tasks,
			updates:  d.Updates,
			dir:      dir,
			activity: activities,
			clock:    d.Clock,
		},
	}
}

// directory - поиск пользователей для писем и проверки назначений
type directory struct {
	users UserRepository
}

// ensureExist возвращает ошибку валидации, если кого-то из ids нет в справочнике
func (d *directory) ensureExist(ctx context.Context, field string, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	found, err := d.users.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("проверка пользователей: %w", err)
	}

	for _, id := range ids {
		if !slices.ContainsFunc(found, func(u *user.User) bool { return u.UUID == id }) {
			return errs.NewValidationError(field, fmt.Sprintf("пользователь %s не найден", id))
		}
	}
	return nil
}

// recipients - пользователи из ids кроме exclude; ошибки только логируются
func (d *directory) recipients(ctx context.Context, ids []uuid.UUID, exclude uuid.UUID) []*user.User {
	ids = slices.DeleteFunc(slices.Clone(ids), func(id uuid.UUID) bool { return id == exclude })
	if len(ids) == 0 {
		return nil
	}

	users, err := d.users.GetByIDs(ctx, ids)
	if err != nil {
		logger.Error("Service: Не удалось получить получателей", err, zap.Int("count", len(ids)))
		return nil
	}
	return users
}

// actor - автор действия; неизвестный пользователь подписывается своим id
func (d *directory) actor(ctx context.Context, id uuid.UUID) *user.User {
	u, err := d.users.GetByID(ctx, id)
	if err != nil {
		return &user.User{UUID: id, Name: id.String()}
	}
	return u
}

// isAdmin - неизвестный пользователь админом не считается
func (d *directory) isAdmin(ctx context.Context, id uuid.UUID) bool {
	u, err := d.users.GetByID(ctx, id)
	if err != nil {
		return false
	}
	return u.Role.IsAdmin()
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	res := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != uuid.Nil && !slices.Contains(res, id) {
			res = append(res, id)
		}
	}
	return res
}

// diffIDs - кто добавился и кто пропал
func diffIDs(before, after []uuid.UUID) (added, removed []uuid.UUID) {
	for _, id := range after {
		if !slices.Contains(before, id) {
			added = append(added, id)
		}
	}
	for _, id := range before {
		if !slices.Contains(after, id) {
			removed = append(removed, id)
		}
	}
	return added, removed
}
