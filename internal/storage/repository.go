// Package storage defines the database sink contract and a registry of
// backend factories keyed by kind.
//
// Backends register themselves in init(); import storage/all to make every
// built-in backend available.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Repository receives a processed table. Every column is stored as text.
type Repository interface {
	// EnsureTable creates the target table when it does not exist.
	EnsureTable(ctx context.Context, columns []string) error
	// CopyFrom inserts rows and reports how many were written.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind      string
	DSN       string
	Table     string
	BatchSize int
}

// Factory builds a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs f for kind, replacing any earlier registration.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New builds the Repository registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds in sorted order. The slice is a
// copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
