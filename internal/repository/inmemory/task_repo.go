package inmemory

import (
	"context"
	"slices"
	"time"

	"taskflow/internal/logger"
	"taskflow/internal/models/task"
	repo "taskflow/internal/repository"

	"github.com/google/uuid"
)

type TaskStorage struct {
	st *state
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	logger.Info("Repository: Соединение стабильно")
	return nil
}

func (s *TaskStorage) Create(ctx context.Context, taskToCreate *task.Task) error {
	s.st.mtx.Lock()
	defer s.st.mtx.Unlock()

	if _, ok := s.st.tasks[taskToCreate.UUID]; ok {
		return repo.ErrAlreadyExists
	}

	if taskToCreate.CreatedAt.IsZero() {
		taskToCreate.CreatedAt = time.Now()
	}
	taskToCreate.IsActive = true
	taskToCreate.Version = 1

	s.st.tasks[taskToCreate.UUID] = cloneTask(taskToCreate)
	s.st.taskIDs = append(s.st.taskIDs, taskToCreate.UUID)
	return nil
}

// Update сохраняет задачу, если её версия совпадает с хранимой
func (s *TaskStorage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	s.st.mtx.Lock()
	defer s.st.mtx.Unlock()

	return s.st.updateTask(taskToUpdate)
}

func (st *state) updateTask(taskToUpdate *task.Task) error {
	existed, ok := st.tasks[taskToUpdate.UUID]
	if !ok {
		return repo.ErrNotFound
	}
	if existed.Version != taskToUpdate.Version {
		logger.Warn("Repository: Конфликт версий при обновлении задачи")
		return repo.ErrVersionConflict
	}

	now := time.Now()
	taskToUpdate.UpdatedAt = &now
	taskToUpdate.Version++
	st.tasks[taskToUpdate.UUID] = cloneTask(taskToUpdate)

	return nil
}

func (s *TaskStorage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	s.st.mtx.RLock()
	defer s.st.mtx.RUnlock()

	taskToGet, ok := s.st.tasks[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return cloneTask(taskToGet), nil
}

func (s *TaskStorage) List(ctx context.Context, filter repo.TaskFilter) ([]*task.Task, error) {
	s.st.mtx.RLock()
	defer s.st.mtx.RUnlock()

	res := []*task.Task{}
	for _, id := range s.st.taskIDs {
		t := s.st.tasks[id]
		if !filter.Match(t) {
			continue
		}
		res = append(res, cloneTask(t))
	}

	repo.SortTasks(res, filter.SortBy, filter.SortOrder)
	return res, nil
}

// ListDeadlineCandidates - активные незавершённые задачи со сроком до before,
// по (end_date, uuid) строго после after
func (s *TaskStorage) ListDeadlineCandidates(ctx context.Context, before time.Time, after *repo.DeadlineCursor, limit int) ([]*task.Task, error) {
	s.st.mtx.RLock()
	defer s.st.mtx.RUnlock()

	var tasks []*task.Task
	for _, t := range s.st.tasks {
		if !t.IsActive || t.Status == task.StatusCompleted || !t.EndDate.Before(before) {
			continue
		}
		if after != nil && repo.CompareDeadline(*repo.CursorAfter(t), *after) <= 0 {
			continue
		}
		tasks = append(tasks, t)
	}

	slices.SortFunc(tasks, func(a, b *task.Task) int {
		return repo.CompareDeadline(*repo.CursorAfter(a), *repo.CursorAfter(b))
	})
	if len(tasks) > limit {
		tasks = tasks[:limit]
	}

	res := make([]*task.Task, len(tasks))
	for i, t := range tasks {
		res[i] = cloneTask(t)
	}
	return res, nil
}
