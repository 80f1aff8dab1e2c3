// Package storage provides pluggable off-chain content stores. Documents are
// addressed by URI; the adapter is selected by URI scheme.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrUnreachable marks failures of the underlying content store. Callers use
// errors.Is against it to classify per-record failures.
var ErrUnreachable = errors.New("off-chain storage unreachable")

// ErrUnknownScheme is returned when no adapter handles a URI scheme.
var ErrUnknownScheme = errors.New("unknown storage scheme")

// Pointer is a lazy reference to an off-chain document. Contents stays nil
// until the document has been fetched; a nil-Contents pointer must never be
// treated as resolved data.
type Pointer struct {
	Ref      string
	Contents map[string]any
}

// Resolved reports whether the pointer's document has been fetched.
func (p *Pointer) Resolved() bool { return p != nil && p.Contents != nil }

// Adapter fetches one off-chain document by URI.
type Adapter interface {
	Fetch(ctx context.Context, uri string) (map[string]any, error)
}

// Registry dispatches document fetches to scheme-specific adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry returns an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register installs an adapter for a URI scheme (e.g. "https", "in-memory").
func (r *Registry) Register(scheme string, a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[strings.ToLower(scheme)] = a
}

// Fetch resolves the adapter for the URI's scheme and fetches the document.
func (r *Registry) Fetch(ctx context.Context, uri string) (map[string]any, error) {
	scheme, _, found := strings.Cut(uri, "://")
	if !found || scheme == "" {
		return nil, fmt.Errorf("%w: no scheme in %q", ErrUnknownScheme, uri)
	}

	r.mu.RLock()
	adapter, ok := r.adapters[strings.ToLower(scheme)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
	return adapter.Fetch(ctx, uri)
}
