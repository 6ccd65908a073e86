package inmemory

import (
	"context"
	"maps"
	"time"

	"taskflow/internal/models/activity"

	"github.com/google/uuid"
)

type ActivityStorage struct {
	st *state
}

func (s *ActivityStorage) Create(ctx context.Context, a *activity.Activity) error {
	s.st.mtx.Lock()
	defer s.st.mtx.Unlock()

	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	c := *a
	c.Metadata = maps.Clone(a.Metadata)
	s.st.activities = append(s.st.activities, &c)
	return nil
}

// ListByTask - лента задачи, новые записи первыми
func (s *ActivityStorage) ListByTask(ctx context.Context, taskID uuid.UUID, limit int) ([]*activity.Activity, error) {
	s.st.mtx.RLock()
	defer s.st.mtx.RUnlock()

	res := []*activity.Activity{}
	for i := len(s.st.activities) - 1; i >= 0; i-- {
		if limit > 0 && len(res) >= limit {
			break
		}
		a := s.st.activities[i]
		if a.TaskID != taskID {
			continue
		}
		c := *a
		res = append(res, &c)
	}
	return res, nil
}
