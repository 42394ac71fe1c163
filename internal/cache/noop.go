package cache

import (
	"context"
	"time"
)

// NoopStore is a Store that never hits. It backs the service when no
// cache is configured or the configured backend is unreachable, so
// callers degrade to fetching everything fresh.
type NoopStore struct{}

// Ensure NoopStore implements the Store interface.
var _ Store = (*NoopStore)(nil)

// NewNoopStore returns a store that drops writes and always misses.
func NewNoopStore() *NoopStore {
	return &NoopStore{}
}

func (*NoopStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (*NoopStore) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (*NoopStore) Delete(context.Context, string) error { return nil }

func (*NoopStore) DeletePrefix(context.Context, string) (int, error) { return 0, nil }

func (*NoopStore) Close() error { return nil }
