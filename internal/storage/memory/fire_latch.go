package memory

import (
	"context"
	"sync"
)

// FireLatch records keys that have already fired. State is lost on restart.
type FireLatch struct {
	mu    sync.Mutex
	fired map[string]struct{}
}

// NewFireLatch constructs an empty FireLatch.
func NewFireLatch() *FireLatch {
	return &FireLatch{fired: make(map[string]struct{})}
}

// Acquire returns true the first time key is seen and false afterwards.
func (l *FireLatch) Acquire(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.fired[key]; ok {
		return false, nil
	}
	l.fired[key] = struct{}{}
	return true, nil
}

// Release forgets key so the next Acquire succeeds again.
func (l *FireLatch) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.fired, key)
	return nil
}
