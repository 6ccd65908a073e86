package notification

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	UUID          uuid.UUID      `json:"uuid" db:"uuid"`
	UserID        uuid.UUID      `json:"user_id" db:"user_id"`
	Type          Type           `json:"type" db:"type"`
	Title         string         `json:"title" db:"title"`
	Message       string         `json:"message" db:"message"`
	TaskID        *uuid.UUID     `json:"task_id,omitempty" db:"task_id"`
	StepID        *uuid.UUID     `json:"step_id,omitempty" db:"step_id"`
	RelatedUserID *uuid.UUID     `json:"related_user_id,omitempty" db:"related_user_id"`
	IsRead        bool           `json:"is_read" db:"is_read"`
	ReadAt        *time.Time     `json:"read_at,omitempty" db:"read_at"`
	Metadata      map[string]any `json:"metadata" db:"metadata"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
}

type Type string

const TypeTaskAssigned Type = "task_assigned"
const TypeTaskMentioned Type = "task_mentioned"
const TypeTaskComment Type = "task_comment"
const TypeTaskUpdated Type = "task_updated"
const TypeTaskCompleted Type = "task_completed"
const TypeHelpRequest Type = "help_request"
const TypeStepAssigned Type = "step_assigned"
const TypeStepActivated Type = "step_activated"
const TypeTaskOverdue Type = "task_overdue"
const TypeTaskDueSoon Type = "task_due_soon"

// Context - необязательные ссылки, которые прикладываются к уведомлению
type Context struct {
	TaskID        *uuid.UUID
	StepID        *uuid.UUID
	RelatedUserID *uuid.UUID
	Metadata      map[string]any
}
