package settlement

import (
	"sync"

	"github.com/google/uuid"
)

// JarLocks is a process-local fast path that stops two concurrent payout
// requests for the same jar from both passing the pending-payout check. The
// database check stays authoritative; this only narrows the race window
// within one process.
type JarLocks struct {
	mu   sync.Mutex
	held map[uuid.UUID]struct{}
}

// NewJarLocks creates an empty lock table
func NewJarLocks() *JarLocks {
	return &JarLocks{held: make(map[uuid.UUID]struct{})}
}

// TryAcquire claims the jar if it is not already claimed. Never blocks.
func (l *JarLocks) TryAcquire(jarID uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.held[jarID]; taken {
		return false
	}
	l.held[jarID] = struct{}{}
	return true
}

// Release frees the jar. Releasing an unheld jar is a no-op.
func (l *JarLocks) Release(jarID uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, jarID)
}
