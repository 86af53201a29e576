package internal

import (
	"context"
	"sync"
)

// ConnectionManager runs the client's connect step once, even when Connect is
// called from several goroutines. For user-context sessions that step resolves
// the signed-in username; bearer sessions have nothing to resolve.
// A failed attempt is not cached; the next call retries.
type ConnectionManager struct {
	mu    sync.Mutex
	done  bool
	err   error
	ready chan struct{}
}

// NewConnectionManager creates a new ConnectionManager instance ready for use.
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{}
}

// Initialize runs fn unless a previous call succeeded. Concurrent callers wait
// for the attempt in progress and share its result.
func (cm *ConnectionManager) Initialize(ctx context.Context, fn func(context.Context) error) error {
	for {
		cm.mu.Lock()
		if cm.done {
			cm.mu.Unlock()
			return nil
		}
		if cm.ready != nil {
			ready := cm.ready
			cm.mu.Unlock()
			select {
			case <-ready:
				cm.mu.Lock()
				err, done := cm.err, cm.done
				cm.mu.Unlock()
				if done || err != nil {
					return err
				}
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		ready := make(chan struct{})
		cm.ready = ready
		cm.mu.Unlock()

		err := fn(ctx)

		cm.mu.Lock()
		cm.err = err
		cm.done = err == nil
		cm.ready = nil
		cm.mu.Unlock()
		close(ready)
		return err
	}
}

// Error returns the error of the last finished attempt, if any.
func (cm *ConnectionManager) Error() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.err
}

// IsInitialized reports whether an attempt has succeeded.
func (cm *ConnectionManager) IsInitialized() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.done
}
