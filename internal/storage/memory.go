package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryAdapter serves documents from an in-process map. Used in tests and
// development mode.
type MemoryAdapter struct {
	mu   sync.RWMutex
	docs map[string]map[string]any
}

// NewMemoryAdapter returns an empty in-memory adapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{docs: make(map[string]map[string]any)}
}

// Store records a document under the given URI.
func (m *MemoryAdapter) Store(uri string, doc map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[uri] = doc
}

// Fetch returns a copy of the stored document.
func (m *MemoryAdapter) Fetch(_ context.Context, uri string) (map[string]any, error) {
	m.mu.RLock()
	doc, ok := m.docs[uri]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: document %q not found", ErrUnreachable, uri)
	}
	return copyDocument(doc), nil
}

func copyDocument(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyDocument(val)
	case []any:
		out := make([]any, len(val))
		for i, el := range val {
			out[i] = copyValue(el)
		}
		return out
	default:
		return v
	}
}
