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

type StepStorage struct {
	st *state
}

func (s *StepStorage) GetByID(ctx context.Context, id uuid.UUID) (*task.Step, error) {
	s.st.mtx.RLock()
	defer s.st.mtx.RUnlock()

	step, ok := s.st.steps[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return cloneStep(step), nil
}

// ListByTask возвращает шаги задачи по возрастанию номера
func (s *StepStorage) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*task.Step, error) {
	s.st.mtx.RLock()
	defer s.st.mtx.RUnlock()

	res := []*task.Step{}
	for _, step := range s.st.steps {
		if step.TaskID == taskID {
			res = append(res, cloneStep(step))
		}
	}

	slices.SortFunc(res, func(a, b *task.Step) int { return a.StepNumber - b.StepNumber })
	return res, nil
}

// ListActiveByTasks - активный шаг для каждой задачи из списка, у кого он есть
func (s *StepStorage) ListActiveByTasks(ctx context.Context, taskIDs []uuid.UUID) (map[uuid.UUID]*task.Step, error) {
	s.st.mtx.RLock()
	defer s.st.mtx.RUnlock()

	res := make(map[uuid.UUID]*task.Step)
	for _, step := range s.st.steps {
		if step.IsActive && slices.Contains(taskIDs, step.TaskID) {
			res[step.TaskID] = cloneStep(step)
		}
	}
	return res, nil
}

// Commit применяет изменения целиком: сначала все проверки версий, потом запись
func (s *StepStorage) Commit(ctx context.Context, cs repo.Changeset) error {
	s.st.mtx.Lock()
	defer s.st.mtx.Unlock()

	if cs.Task != nil {
		existed, ok := s.st.tasks[cs.Task.UUID]
		if !ok {
			return repo.ErrNotFound
		}
		if existed.Version != cs.Task.Version {
			logger.Warn("Repository: Конфликт версий задачи при сохранении шагов")
			return repo.ErrVersionConflict
		}
	}
	for _, step := range cs.Created {
		if _, ok := s.st.steps[step.UUID]; ok {
			return repo.ErrAlreadyExists
		}
	}
	for _, step := range cs.Updated {
		existed, ok := s.st.steps[step.UUID]
		if !ok {
			return repo.ErrNotFound
		}
		if existed.Version != step.Version {
			logger.Warn("Repository: Конфликт версий шага")
			return repo.ErrVersionConflict
		}
	}
	for _, id := range cs.Deleted {
		if _, ok := s.st.steps[id]; !ok {
			return repo.ErrNotFound
		}
	}

	now := time.Now()
	if cs.Task != nil {
		if err := s.st.updateTask(cs.Task); err != nil {
			return err
		}
	}
	for _, step := range cs.Created {
		if step.CreatedAt.IsZero() {
			step.CreatedAt = now
		}
		step.Version = 1
		s.st.steps[step.UUID] = cloneStep(step)
	}
	for _, step := range cs.Updated {
		step.UpdatedAt = &now
		step.Version++
		s.st.steps[step.UUID] = cloneStep(step)
	}
	for _, id := range cs.Deleted {
		delete(s.st.steps, id)
	}

	return nil
}
