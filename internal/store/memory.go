package store

import (
	"context"
	"fmt"
	"sync"
)

// Memory keeps the blob in process memory. A positive quota emulates the
// size limit of browser storage.
type Memory struct {
	mu    sync.Mutex
	data  []byte
	quota int64
}

// NewMemory returns an empty in-memory medium. quota <= 0 means unlimited.
func NewMemory(quota int64) *Memory {
	return &Memory{quota: quota}
}

func (m *Memory) Load(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		return nil, nil
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, nil
}

func (m *Memory) Save(_ context.Context, data []byte) error {
	if m.quota > 0 && int64(len(data)) > m.quota {
		return fmt.Errorf("%d bytes over %d byte limit: %w", len(data), m.quota, ErrQuotaExceeded)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make([]byte, len(data))
	copy(m.data, data)
	return nil
}

func (m *Memory) Type() string { return "memory" }

func (m *Memory) Close() error { return nil }
