package inmemory

import (
	"context"
	"slices"
	"time"

	"taskflow/internal/models/notification"
	repo "taskflow/internal/repository"

	"github.com/google/uuid"
)

type NotificationStorage struct {
	st *state
}

func (s *NotificationStorage) CreateMany(ctx context.Context, items []*notification.Notification) error {
	s.st.mtx.Lock()
	defer s.st.mtx.Unlock()

	now := time.Now()
	for _, n := range items {
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		s.st.notifications[n.UUID] = cloneNotification(n)
		s.st.notifIDs = append(s.st.notifIDs, n.UUID)
	}
	return nil
}

// ListByUser - новые первыми
func (s *NotificationStorage) ListByUser(ctx context.Context, userID uuid.UUID, filter repo.NotificationFilter) ([]*notification.Notification, error) {
	s.st.mtx.RLock()
	defer s.st.mtx.RUnlock()

	res := []*notification.Notification{}
	for i := len(s.st.notifIDs) - 1; i >= 0; i-- {
		if filter.Limit > 0 && len(res) >= filter.Limit {
			break
		}
		n := s.st.notifications[s.st.notifIDs[i]]
		if n.UserID != userID || (filter.UnreadOnly && n.IsRead) {
			continue
		}
		res = append(res, cloneNotification(n))
	}
	return res, nil
}

func (s *NotificationStorage) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	s.st.mtx.RLock()
	defer s.st.mtx.RUnlock()

	count := 0
	for _, n := range s.st.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

// MarkRead - чужое уведомление считается ненайденным
func (s *NotificationStorage) MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) (*notification.Notification, error) {
	s.st.mtx.Lock()
	defer s.st.mtx.Unlock()

	n, ok := s.st.notifications[id]
	if !ok || n.UserID != userID {
		return nil, repo.ErrNotFound
	}
	if !n.IsRead {
		n.IsRead = true
		n.ReadAt = &at
	}
	return cloneNotification(n), nil
}

func (s *NotificationStorage) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int, error) {
	s.st.mtx.Lock()
	defer s.st.mtx.Unlock()

	count := 0
	for _, n := range s.st.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &at
			count++
		}
	}
	return count, nil
}

func (s *NotificationStorage) Delete(ctx context.Context, id, userID uuid.UUID) error {
	s.st.mtx.Lock()
	defer s.st.mtx.Unlock()

	n, ok := s.st.notifications[id]
	if !ok || n.UserID != userID {
		return repo.ErrNotFound
	}

	delete(s.st.notifications, id)
	s.st.notifIDs = slices.DeleteFunc(s.st.notifIDs, func(v uuid.UUID) bool { return v == id })
	return nil
}

func (s *NotificationStorage) ExistsForTask(ctx context.Context, taskID, userID uuid.UUID, typ notification.Type) (bool, error) {
	s.st.mtx.RLock()
	defer s.st.mtx.RUnlock()

	for _, n := range s.st.notifications {
		if n.UserID == userID && n.Type == typ && n.TaskID != nil && *n.TaskID == taskID {
			return true, nil
		}
	}
	return false, nil
}
