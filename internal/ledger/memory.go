package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/TravelMesh/read_layer/internal/storage"
)

// Record seeds one in-memory directory entry.
type Record struct {
	Address string
	OnChain map[string]any
	DataURI string
}

// MemoryDirectory is an insertion-ordered in-memory directory.
type MemoryDirectory struct {
	mu       sync.RWMutex
	order    []string
	records  map[string]Record
	resolver *storage.Resolver
}

// NewMemoryDirectory creates a directory whose handles resolve their
// off-chain trees through the given resolver.
func NewMemoryDirectory(resolver *storage.Resolver) *MemoryDirectory {
	return &MemoryDirectory{
		records:  make(map[string]Record),
		resolver: resolver,
	}
}

// Add appends a record to the collection. Re-adding an address overwrites the
// record but keeps its original position.
func (d *MemoryDirectory) Add(rec Record) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.records[rec.Address]; !exists {
		d.order = append(d.order, rec.Address)
	}
	d.records[rec.Address] = rec
}

// GetAll returns handles for every record in insertion order.
func (d *MemoryDirectory) GetAll(_ context.Context) ([]Handle, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	handles := make([]Handle, 0, len(d.order))
	for _, addr := range d.order {
		handles = append(handles, &memoryHandle{rec: d.records[addr], resolver: d.resolver})
	}
	return handles, nil
}

// Get returns the handle for one address or ErrNotFound.
func (d *MemoryDirectory) Get(_ context.Context, address string) (Handle, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rec, ok := d.records[address]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, address)
	}
	return &memoryHandle{rec: rec, resolver: d.resolver}, nil
}

type memoryHandle struct {
	rec      Record
	resolver *storage.Resolver
}

func (h *memoryHandle) Address() string { return h.rec.Address }

func (h *memoryHandle) HasOnChain(attr string) bool {
	_, ok := h.rec.OnChain[attr]
	return ok
}

func (h *memoryHandle) OnChain(_ context.Context, attr string) (any, error) {
	v, ok := h.rec.OnChain[attr]
	if !ok {
		return nil, fmt.Errorf("%w: attribute %q not present on %s", ErrUnreachable, attr, h.rec.Address)
	}
	return v, nil
}

func (h *memoryHandle) ResolveDataTree(ctx context.Context, fields []string, maxDepth int) (*storage.Pointer, error) {
	return h.resolver.Resolve(ctx, h.rec.DataURI, fields, maxDepth)
}
