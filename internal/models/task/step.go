package task

import (
	"time"

	"github.com/google/uuid"
)

type Step struct {
	UUID          uuid.UUID   `json:"uuid" db:"uuid"`
	TaskID        uuid.UUID   `json:"task_id" db:"task_id"`
	StepNumber    int         `json:"step_number" db:"step_number"`
	Title         string      `json:"title" db:"title"`
	Description   string      `json:"description" db:"description"`
	AssignedUsers []uuid.UUID `json:"assigned_users" db:"assigned_users"`
	Status        StepStatus  `json:"status" db:"status"`
	StartDate     *time.Time  `json:"start_date,omitempty" db:"start_date"`
	EndDate       *time.Time  `json:"end_date,omitempty" db:"end_date"`
	IsActive      bool        `json:"is_active" db:"is_active"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
	CompletedBy   *uuid.UUID  `json:"completed_by,omitempty" db:"completed_by"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     *time.Time  `json:"updated_at,omitempty" db:"updated_at"`
	Version       int         `json:"version" db:"version"`
}

type StepStatus string

const StepPending StepStatus = "pending"
const StepInProgress StepStatus = "in-progress"
const StepCompleted StepStatus = "completed"
const StepBlocked StepStatus = "blocked"

func (s StepStatus) Valid() bool {
	switch s {
	case StepPending, StepInProgress, StepCompleted, StepBlocked:
		return true
	}
	return false
}
