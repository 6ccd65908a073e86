package service_test

import (
	"context"
	"time"

	"taskflow/internal/models/activity"
	"taskflow/internal/models/notification"
	"taskflow/internal/models/task"
	"taskflow/internal/models/user"
	"taskflow/internal/repository"
	"taskflow/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockTaskRepository - мок репозитория задач
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTaskRepository) Create(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) Update(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]*task.Task, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskRepository) ListDeadlineCandidates(ctx context.Context, before time.Time, after *repository.DeadlineCursor, limit int) ([]*task.Task, error) {
	args := m.Called(ctx, before, after, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

var _ service.TaskRepository = (*MockTaskRepository)(nil)

type MockStepRepository struct {
	mock.Mock
}

func (m *MockStepRepository) GetByID(ctx context.Context, id uuid.UUID) (*task.Step, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Step), args.Error(1)
}

func (m *MockStepRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*task.Step, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Step), args.Error(1)
}

func (m *MockStepRepository) ListActiveByTasks(ctx context.Context, taskIDs []uuid.UUID) (map[uuid.UUID]*task.Step, error) {
	args := m.Called(ctx, taskIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]*task.Step), args.Error(1)
}

func (m *MockStepRepository) Commit(ctx context.Context, cs repository.Changeset) error {
	args := m.Called(ctx, cs)
	return args.Error(0)
}

var _ service.StepRepository = (*MockStepRepository)(nil)

type MockActivityRepository struct {
	mock.Mock
}

func (m *MockActivityRepository) Create(ctx context.Context, a *activity.Activity) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockActivityRepository) ListByTask(ctx context.Context, taskID uuid.UUID, limit int) ([]*activity.Activity, error) {
	args := m.Called(ctx, taskID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*activity.Activity), args.Error(1)
}

var _ service.ActivityRepository = (*MockActivityRepository)(nil)

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) CreateMany(ctx context.Context, items []*notification.Notification) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *MockNotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter repository.NotificationFilter) ([]*notification.Notification, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*notification.Notification), args.Error(1)
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) (*notification.Notification, error) {
	args := m.Called(ctx, id, userID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Notification), args.Error(1)
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int, error) {
	args := m.Called(ctx, userID, at)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockNotificationRepository) ExistsForTask(ctx context.Context, taskID, userID uuid.UUID, typ notification.Type) (bool, error) {
	args := m.Called(ctx, taskID, userID, typ)
	return args.Bool(0), args.Error(1)
}

var _ service.NotificationRepository = (*MockNotificationRepository)(nil)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u *user.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, u *user.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*user.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*user.User), args.Error(1)
}

func (m *MockUserRepository) GetByNames(ctx context.Context, names []string) ([]*user.User, error) {
	args := m.Called(ctx, names)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*user.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]*user.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*user.User), args.Error(1)
}

var _ service.UserRepository = (*MockUserRepository)(nil)

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendAssignmentEmail(ctx context.Context, recipients []*user.User, t *task.Task, assigner *user.User) error {
	args := m.Called(ctx, recipients, t, assigner)
	return args.Error(0)
}

func (m *MockMailer) SendStepAssignmentEmail(ctx context.Context, recipients []*user.User, t *task.Task, step *task.Step, assigner *user.User) error {
	args := m.Called(ctx, recipients, t, step, assigner)
	return args.Error(0)
}

func (m *MockMailer) SendHelpRequestEmail(ctx context.Context, recipients []*user.User, t *task.Task, requester *user.User, message string) error {
	args := m.Called(ctx, recipients, t, requester, message)
	return args.Error(0)
}

func (m *MockMailer) SendMentionEmail(ctx context.Context, recipients []*user.User, t *task.Task, author *user.User, text string) error {
	args := m.Called(ctx, recipients, t, author, text)
	return args.Error(0)
}

var _ service.Mailer = (*MockMailer)(nil)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

// mocks - полный набор зависимостей сервиса
type mocks struct {
	tasks         *MockTaskRepository
	steps         *MockStepRepository
	activities    *MockActivityRepository
	notifications *MockNotificationRepository
	users         *MockUserRepository
	mailer        *MockMailer
}

func newMocks() *mocks {
	return &mocks{
		tasks:         new(MockTaskRepository),
		steps:         new(MockStepRepository),
		activities:    new(MockActivityRepository),
		notifications: new(MockNotificationRepository),
		users:         new(MockUserRepository),
		mailer:        new(MockMailer),
	}
}

// services собирает сервисы; побочные эффекты разрешены, но не обязательны
func (m *mocks) services(now time.Time) *service.Services {
	m.activities.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()
	m.notifications.On("CreateMany", mock.Anything, mock.Anything).Return(nil).Maybe()
	m.steps.On("ListActiveByTasks", mock.Anything, mock.Anything).Return(map[uuid.UUID]*task.Step{}, nil).Maybe()
	m.users.On("GetByID", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound).Maybe()

	return service.New(service.Deps{
		Tasks:         m.tasks,
		Steps:         m.steps,
		Activities:    m.activities,
		Notifications: m.notifications,
		Users:         m.users,
		Mailer:        m.mailer,
		Clock:         fixedClock{now: now},
	})
}

func (m *mocks) assert(t mock.TestingT) {
	m.tasks.AssertExpectations(t)
	m.steps.AssertExpectations(t)
	m.users.AssertExpectations(t)
	m.mailer.AssertExpectations(t)
}
