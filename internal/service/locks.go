package service

import (
	"sync"

	"github.com/google/uuid"
)

// taskLocks сериализует изменения одной задачи внутри процесса
type taskLocks struct {
	mtx   sync.Mutex
	locks map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mtx  sync.Mutex
	refs int
}

func newTaskLocks() *taskLocks {
	return &taskLocks{locks: make(map[uuid.UUID]*lockEntry)}
}

// lock возвращает функцию разблокировки
func (l *taskLocks) lock(id uuid.UUID) func() {
	l.mtx.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &lockEntry{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mtx.Unlock()

	entry.mtx.Lock()

	return func() {
		entry.mtx.Unlock()

		l.mtx.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mtx.Unlock()
	}
}
