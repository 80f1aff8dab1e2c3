// Package ledger exposes the directory index and record handles anchored on
// the ledger. The index itself is an external collaborator; this package
// defines its interface boundary plus an in-memory implementation used for
// development and tests.
package ledger

import (
	"context"
	"errors"
	"fmt"

	neoaddress "github.com/nspcc-dev/neo-go/pkg/encoding/address"

	"github.com/TravelMesh/read_layer/internal/storage"
)

// ErrNotFound is returned by Directory.Get for unknown addresses.
var ErrNotFound = errors.New("record not found")

// ErrUnreachable marks on-chain dependency failures. Callers use errors.Is
// against it to classify per-record failures.
var ErrUnreachable = errors.New("ledger unreachable")

// Handle is an opaque capability for one ledger-anchored organization record.
type Handle interface {
	// Address returns the record's ledger address.
	Address() string
	// HasOnChain reports whether the handle exposes the named attribute.
	HasOnChain(attr string) bool
	// OnChain fetches one on-chain attribute value.
	OnChain(ctx context.Context, attr string) (any, error)
	// ResolveDataTree fetches the record's off-chain document tree, following
	// storage pointers only as needed by the requested field paths.
	ResolveDataTree(ctx context.Context, fields []string, maxDepth int) (*storage.Pointer, error)
}

// Directory enumerates the records of one collection in insertion order.
type Directory interface {
	GetAll(ctx context.Context) ([]Handle, error)
	Get(ctx context.Context, address string) (Handle, error)
}

// ValidAddress reports whether s is a checksum-valid ledger address.
func ValidAddress(s string) bool {
	_, err := neoaddress.StringToUint160(s)
	return err == nil
}

// CheckAddress returns a descriptive error for checksum-invalid addresses.
func CheckAddress(s string) error {
	if _, err := neoaddress.StringToUint160(s); err != nil {
		return fmt.Errorf("address %q failed checksum: %w", s, err)
	}
	return nil
}
