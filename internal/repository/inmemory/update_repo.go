package inmemory

import (
	"context"
	"slices"
	"time"

	"taskflow/internal/models/update"
	repo "taskflow/internal/repository"

	"github.com/google/uuid"
)

type UpdateStorage struct {
	st *state
}

func (s *UpdateStorage) Create(ctx context.Context, u *update.Update) error {
	s.st.mtx.Lock()
	defer s.st.mtx.Unlock()

	if _, exists := s.st.updates[u.UUID]; exists {
		return repo.ErrAlreadyExists
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}

	c := *u
	s.st.updates[u.UUID] = &c
	return nil
}

func (s *UpdateStorage) GetByID(ctx context.Context, id uuid.UUID) (*update.Update, error) {
	s.st.mtx.RLock()
	defer s.st.mtx.RUnlock()

	u, ok := s.st.updates[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	c := *u
	return &c, nil
}

// ListByTask - записи задачи, свежие по update_date первыми
func (s *UpdateStorage) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*update.Update, error) {
	s.st.mtx.RLock()
	defer s.st.mtx.RUnlock()

	res := []*update.Update{}
	for _, u := range s.st.updates {
		if u.TaskID == taskID {
			c := *u
			res = append(res, &c)
		}
	}

	slices.SortFunc(res, func(a, b *update.Update) int {
		if c := b.UpdateDate.Compare(a.UpdateDate); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return res, nil
}

func (s *UpdateStorage) Delete(ctx context.Context, id uuid.UUID) error {
	s.st.mtx.Lock()
	defer s.st.mtx.Unlock()

	if _, ok := s.st.updates[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.st.updates, id)
	return nil
}
