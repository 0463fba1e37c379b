package app

import "sync"

// auditLocks не даёт двум изменениям одного аудита идти параллельно в пределах процесса.
type auditLocks struct {
	mu   sync.Mutex
	byID map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func newAuditLocks() *auditLocks {
	return &auditLocks{byID: make(map[string]*entry)}
}

// lock возвращает функцию разблокировки; запись удаляется, когда ждущих не осталось.
func (l *auditLocks) lock(auditID string) func() {
	l.mu.Lock()
	e, ok := l.byID[auditID]
	if !ok {
		e = &entry{}
		l.byID[auditID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.byID, auditID)
		}
		l.mu.Unlock()
	}
}

func (l *auditLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byID)
}
