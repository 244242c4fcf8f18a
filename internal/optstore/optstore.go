// Package optstore persists the walker option cache so a restarted server
// resumes with the options the panel last chose.
package optstore

import (
	"context"
	"sync"

	"github.com/dgallion1/layertree/internal/walker"
)

// Store loads and saves the option cache. Load reports false when nothing
// has been saved yet.
type Store interface {
	Load(ctx context.Context) (walker.Options, bool, error)
	Save(ctx context.Context, opts walker.Options) error
}

// Memory is a process-local Store.
type Memory struct {
	mu    sync.RWMutex
	opts  walker.Options
	saved bool
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(_ context.Context) (walker.Options, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.opts, m.saved, nil
}

func (m *Memory) Save(_ context.Context, opts walker.Options) error {
	m.mu.Lock()
	m.opts = opts
	m.saved = true
	m.mu.Unlock()
	return nil
}
