package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/TravelMesh/read_layer/internal/storage"
)

const (
	validAddr   = "NUhzTQ1KVUtR1W7LwXzUR2UZYbzjGzB7iS"
	invalidAddr = "NXV7ZhHiyM1aHXwpVsRZC6BEaDY7t6x6xD"
)

func TestValidAddress(t *testing.T) {
	if !ValidAddress(validAddr) {
		t.Fatalf("checksum-valid address rejected")
	}
	for _, s := range []string{invalidAddr, "", "not-an-address", "0x1234"} {
		if ValidAddress(s) {
			t.Fatalf("address %q accepted", s)
		}
	}
}

func TestCheckAddress(t *testing.T) {
	if err := CheckAddress(validAddr); err != nil {
		t.Fatalf("check: %v", err)
	}
	if err := CheckAddress(invalidAddr); err == nil {
		t.Fatalf("bad checksum accepted")
	}
}

func TestMemoryDirectory_InsertionOrder(t *testing.T) {
	reg := storage.NewRegistry()
	mem := storage.NewMemoryAdapter()
	mem.Store("in-memory://one", map[string]any{"name": "One"})
	reg.Register("in-memory", mem)
	dir := NewMemoryDirectory(storage.NewResolver(reg, nil, nil))

	dir.Add(Record{Address: "a3", DataURI: "in-memory://one"})
	dir.Add(Record{Address: "a1", DataURI: "in-memory://one"})
	dir.Add(Record{Address: "a2", DataURI: "in-memory://one"})
	// Re-adding keeps the original position.
	dir.Add(Record{Address: "a3", DataURI: "in-memory://one", OnChain: map[string]any{"owner": "x"}})

	handles, err := dir.GetAll(context.Background())
	if err != nil {
		t.Fatalf("getAll: %v", err)
	}
	got := make([]string, 0, len(handles))
	for _, h := range handles {
		got = append(got, h.Address())
	}
	want := []string{"a3", "a1", "a2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	if !handles[0].HasOnChain("owner") {
		t.Fatalf("re-add must overwrite the record")
	}
}

func TestMemoryDirectory_Get(t *testing.T) {
	dir := NewMemoryDirectory(nil)
	dir.Add(Record{Address: "a1"})

	if _, err := dir.Get(context.Background(), "a1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	_, err := dir.Get(context.Background(), "a2")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryHandle_ResolvesTree(t *testing.T) {
	reg := storage.NewRegistry()
	mem := storage.NewMemoryAdapter()
	mem.Store("in-memory://h1", map[string]any{"dataFormatVersion": "0.8.4"})
	reg.Register("in-memory", mem)
	dir := NewMemoryDirectory(storage.NewResolver(reg, nil, nil))
	dir.Add(Record{Address: validAddr, DataURI: "in-memory://h1"})

	h, err := dir.Get(context.Background(), validAddr)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	ptr, err := h.ResolveDataTree(context.Background(), nil, 0)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ptr.Contents["dataFormatVersion"] != "0.8.4" {
		t.Fatalf("unexpected tree: %#v", ptr.Contents)
	}

	_, err = h.OnChain(context.Background(), "owner")
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("missing attribute must map to ErrUnreachable, got %v", err)
	}
}
