package repository

import (
	"bytes"
	"cmp"
	"slices"
	"strings"
	"time"

	"taskflow/internal/models/task"

	"github.com/google/uuid"
)

type SortField string
type SortOrder string

const (
	SortByCreatedAt SortField = "created_at"
	SortByEndDate   SortField = "end_date"
	SortByPriority  SortField = "priority"
	SortByTitle     SortField = "title"
)

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

func (f SortField) Valid() bool {
	switch f {
	case SortByCreatedAt, SortByEndDate, SortByPriority, SortByTitle:
		return true
	}
	return false
}

func (o SortOrder) Valid() bool {
	return o == SortAsc || o == SortDesc
}

// TaskFilter - параметры выборки списка задач.
// Deleted переключает выборку на мягко удалённые задачи.
type TaskFilter struct {
	Status    task.Status
	Search    string
	Assigned  *uuid.UUID
	Deleted   bool
	SortBy    SortField
	SortOrder SortOrder
}

func (f TaskFilter) Match(t *task.Task) bool {
	if t.IsActive == f.Deleted {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Assigned != nil && !t.IsAssigned(*f.Assigned) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			return false
		}
	}
	return true
}

// SortTasks сортирует на месте, по умолчанию новые задачи первыми
func SortTasks(tasks []*task.Task, by SortField, order SortOrder) {
	if by == "" {
		by = SortByCreatedAt
	}
	if order == "" {
		order = SortDesc
	}

	slices.SortStableFunc(tasks, func(a, b *task.Task) int {
		var res int
		switch by {
		case SortByEndDate:
			res = a.EndDate.Compare(b.EndDate)
		case SortByPriority:
			res = cmp.Compare(a.Priority.Rank(), b.Priority.Rank())
		case SortByTitle:
			res = strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		default:
			res = a.CreatedAt.Compare(b.CreatedAt)
		}
		if order == SortDesc {
			return -res
		}
		return res
	})
}

// NotificationFilter - выборка ленты уведомлений пользователя
type NotificationFilter struct {
	UnreadOnly bool
	Limit      int
}

// DeadlineCursor - позиция обхода кандидатов воркера в порядке (end_date, uuid)
type DeadlineCursor struct {
	EndDate time.Time
	UUID    uuid.UUID
}

func CursorAfter(t *task.Task) *DeadlineCursor {
	return &DeadlineCursor{EndDate: t.EndDate, UUID: t.UUID}
}

// CompareDeadline совпадает с ORDER BY end_date, uuid в postgres
func CompareDeadline(a, b DeadlineCursor) int {
	if c := a.EndDate.Compare(b.EndDate); c != 0 {
		return c
	}
	return bytes.Compare(a.UUID[:], b.UUID[:])
}
