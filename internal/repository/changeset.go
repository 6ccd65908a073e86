package repository

import (
	"taskflow/internal/models/task"

	"github.com/google/uuid"
)

// Changeset - всё, что одна операция над шагами меняет в задаче.
// Применяется целиком или не применяется вовсе.
type Changeset struct {
	Task    *task.Task
	Created []*task.Step
	Updated []*task.Step
	Deleted []uuid.UUID
}

func (c *Changeset) Empty() bool {
	return c.Task == nil && len(c.Created) == 0 && len(c.Updated) == 0 && len(c.Deleted) == 0
}
