package settlement

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestJarLocks_TryAcquireRelease(t *testing.T) {
	locks := NewJarLocks()
	jarID := uuid.New()
	otherID := uuid.New()

	assert.True(t, locks.TryAcquire(jarID))
	assert.False(t, locks.TryAcquire(jarID), "second acquire on the same jar fails")
	assert.True(t, locks.TryAcquire(otherID), "locks are per jar")

	locks.Release(jarID)
	assert.True(t, locks.TryAcquire(jarID), "released jar can be re-acquired")

	// Releasing an unheld jar is a no-op
	locks.Release(uuid.New())
}

func TestJarLocks_ConcurrentAcquire(t *testing.T) {
	locks := NewJarLocks()
	jarID := uuid.New()

	const goroutines = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if locks.TryAcquire(jarID) {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners, "exactly one goroutine wins the lock")
}
