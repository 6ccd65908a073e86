package inmemory

import (
	"context"
	"slices"
	"strings"
	"time"

	"taskflow/internal/models/user"
	repo "taskflow/internal/repository"

	"github.com/google/uuid"
)

type UserStorage struct {
	st *state
}

func (s *UserStorage) Create(ctx context.Context, u *user.User) error {
	s.st.mtx.Lock()
	defer s.st.mtx.Unlock()

	for _, existed := range s.st.users {
		if strings.EqualFold(existed.Email, u.Email) {
			return repo.ErrAlreadyExists
		}
	}

	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}

	c := *u
	s.st.users[u.UUID] = &c
	s.st.userIDs = append(s.st.userIDs, u.UUID)
	return nil
}

func (s *UserStorage) Update(ctx context.Context, u *user.User) error {
	s.st.mtx.Lock()
	defer s.st.mtx.Unlock()

	stored, ok := s.st.users[u.UUID]
	if !ok {
		return repo.ErrNotFound
	}
	stored.Name = u.Name
	stored.Avatar = u.Avatar
	return nil
}

func (s *UserStorage) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	s.st.mtx.RLock()
	defer s.st.mtx.RUnlock()

	u, ok := s.st.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	c := *u
	return &c, nil
}

// GetByIDs пропускает неизвестные id
func (s *UserStorage) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*user.User, error) {
	s.st.mtx.RLock()
	defer s.st.mtx.RUnlock()

	res := []*user.User{}
	for _, id := range s.st.userIDs {
		if !slices.Contains(ids, id) {
			continue
		}
		c := *s.st.users[id]
		res = append(res, &c)
	}
	return res, nil
}

// GetByNames ищет без учёта регистра
func (s *UserStorage) GetByNames(ctx context.Context, names []string) ([]*user.User, error) {
	s.st.mtx.RLock()
	defer s.st.mtx.RUnlock()

	res := []*user.User{}
	for _, id := range s.st.userIDs {
		u := s.st.users[id]
		if slices.ContainsFunc(names, func(n string) bool { return strings.EqualFold(n, u.Name) }) {
			c := *u
			res = append(res, &c)
		}
	}
	return res, nil
}

func (s *UserStorage) List(ctx context.Context) ([]*user.User, error) {
	s.st.mtx.RLock()
	defer s.st.mtx.RUnlock()

	res := make([]*user.User, 0, len(s.st.userIDs))
	for _, id := range s.st.userIDs {
		c := *s.st.users[id]
		res = append(res, &c)
	}
	return res, nil
}
