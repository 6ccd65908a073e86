package activity

import (
	"time"

	"github.com/google/uuid"
)

type Activity struct {
	UUID        uuid.UUID      `json:"uuid" db:"uuid"`
	TaskID      uuid.UUID      `json:"task_id" db:"task_id"`
	UserID      uuid.UUID      `json:"user_id" db:"user_id"`
	Action      Action         `json:"action" db:"action"`
	Description string         `json:"description" db:"description"`
	Metadata    map[string]any `json:"metadata" db:"metadata"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}

type Action string

const ActionCreated Action = "created"
const ActionUpdated Action = "updated"
const ActionPaused Action = "paused"
const ActionResumed Action = "resumed"
const ActionProgressUpdated Action = "progress_updated"
const ActionCommented Action = "commented"
const ActionAssigned Action = "assigned"
const ActionUnassigned Action = "unassigned"
const ActionStatusChanged Action = "status_changed"
const ActionHelpRequested Action = "help_requested"
const ActionDeleted Action = "deleted"
const ActionRestored Action = "restored"
const ActionUpdateAdded Action = "update_added"
const ActionUpdateDeleted Action = "update_deleted"
