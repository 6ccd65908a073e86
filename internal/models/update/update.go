package update

import (
	"time"

	"github.com/google/uuid"
)

// Update - запись о ходе работ по задаче. UpdateDate лежит внутри срока задачи.
type Update struct {
	UUID       uuid.UUID `json:"uuid" db:"uuid"`
	TaskID     uuid.UUID `json:"task_id" db:"task_id"`
	UserID     uuid.UUID `json:"user_id" db:"user_id"`
	Text       string    `json:"update_text" db:"update_text"`
	UpdateDate time.Time `json:"update_date" db:"update_date"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
