package task

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type Task struct {
	UUID           uuid.UUID   `json:"uuid" db:"uuid"`
	Title          string      `json:"title" db:"title"`
	Description    string      `json:"description" db:"description"`
	CreatedBy      uuid.UUID   `json:"created_by" db:"created_by"`
	AssignedUsers  []uuid.UUID `json:"assigned_users" db:"assigned_users"`
	StartDate      time.Time   `json:"start_date" db:"start_date"`
	EndDate        time.Time   `json:"end_date" db:"end_date"`
	Status         Status      `json:"status" db:"status"`
	Priority       Priority    `json:"priority" db:"priority"`
	AutoProgress   int         `json:"auto_progress" db:"auto_progress"`
	ManualProgress *int        `json:"manual_progress,omitempty" db:"manual_progress"`
	StopLogs       []StopLog   `json:"stop_logs" db:"-"`
	Comments       []Comment   `json:"comments" db:"-"`
	IsActive       bool        `json:"is_active" db:"is_active"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      *time.Time  `json:"updated_at,omitempty" db:"updated_at,omitempty"`
	Version        int         `json:"version" db:"version"`
}

type Status string
type Priority string

const StatusNotStarted Status = "not-started"
const StatusInProgress Status = "in-progress"
const StatusPaused Status = "paused"
const StatusCompleted Status = "completed"

const PriorityLow Priority = "low"
const PriorityMedium Priority = "medium"
const PriorityHigh Priority = "high"
const PriorityCritical Priority = "critical"

func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusPaused, StatusCompleted:
		return true
	}
	return false
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Rank используется для сортировки по приоритету
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	case PriorityCritical:
		return 3
	}
	return -1
}

// StopLog - запись о приостановке работы, только добавляется
type StopLog struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Reason    string    `json:"reason" db:"reason"`
	Timestamp time.Time `json:"timestamp" db:"created_at"`
}

type Comment struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	UserID    uuid.UUID   `json:"user_id" db:"user_id"`
	Text      string      `json:"text" db:"text"`
	Mentions  []uuid.UUID `json:"mentions" db:"mentions"`
	Timestamp time.Time   `json:"timestamp" db:"created_at"`
	EditedAt  *time.Time  `json:"edited_at,omitempty" db:"edited_at"`
}

// IsParticipant - создатель или назначенный
func (t *Task) IsParticipant(userID uuid.UUID) bool {
	return t.CreatedBy == userID || t.IsAssigned(userID)
}

func (t *Task) IsAssigned(userID uuid.UUID) bool {
	return slices.Contains(t.AssignedUsers, userID)
}

// Participants - создатель и все назначенные пользователи без повторов
func (t *Task) Participants() []uuid.UUID {
	res := []uuid.UUID{t.CreatedBy}
	for _, id := range t.AssignedUsers {
		if !slices.Contains(res, id) {
			res = append(res, id)
		}
	}
	return res
}
