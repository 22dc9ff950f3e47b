// Package flagstore persists the single "contact captured" flag that gates
// playback.
package flagstore

import (
	"context"
	"sync"
)

// CapturedKey is the fixed key of the capture flag.
const CapturedKey = "email_captured"

// Store is a boolean key-value store. Set only ever writes true; nothing in
// the system clears a flag.
type Store interface {
	Get(ctx context.Context, key string) (bool, error)
	Set(ctx context.Context, key string) error
}

// Memory keeps flags for the lifetime of the process.
type Memory struct {
	mu    sync.Mutex
	flags map[string]bool
}

func NewMemory() *Memory {
	return &Memory{flags: make(map[string]bool)}
}

func (m *Memory) Get(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flags[key], nil
}

func (m *Memory) Set(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags[key] = true
	return nil
}
