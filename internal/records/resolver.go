package records

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/TravelMesh/read_layer/internal/fields"
	"github.com/TravelMesh/read_layer/internal/flatten"
	"github.com/TravelMesh/read_layer/internal/ledger"
	"github.com/TravelMesh/read_layer/internal/storage"
	"github.com/TravelMesh/read_layer/pkg/logger"
)

// Resolver shapes one record handle into the client-requested form. Every
// failure is converted into an error-shaped record so callers iterating a
// collection are never aborted by one bad item.
type Resolver struct {
	desc Descriptor
	log  *logger.Logger
}

// NewResolver creates a resolver for one record kind.
func NewResolver(desc Descriptor, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.NewDefault("records." + desc.Kind)
	}
	return &Resolver{desc: desc, log: log}
}

// Descriptor returns the kind descriptor this resolver runs.
func (r *Resolver) Descriptor() Descriptor { return r.desc }

// Resolve produces a shaped record for the handle, or an error-shaped record
// `{error, originalError, data: {id}}` when resolution fails.
func (r *Resolver) Resolve(ctx context.Context, h ledger.Handle, sel fields.Selection) map[string]any {
	rec, err := r.ResolveStrict(ctx, h, sel)
	if err != nil {
		return r.errorRecord(h.Address(), err)
	}
	return rec
}

// ResolveStrict is Resolve without the per-item error conversion, for callers
// serving a single record who map failures to HTTP statuses themselves.
func (r *Resolver) ResolveStrict(ctx context.Context, h ledger.Handle, sel fields.Selection) (map[string]any, error) {
	rec := make(map[string]any)

	// Off-chain fetches are expensive; skip them entirely when nothing
	// off-chain was requested.
	if len(sel.ToFlatten) > 0 {
		ptr, err := h.ResolveDataTree(ctx, sel.ToFlatten, r.desc.Depth(sel.ToFlatten))
		if err != nil {
			return nil, err
		}
		for k, v := range flatten.Flatten(ptr.Contents, sel.ToFlatten) {
			rec[k] = v
		}
	}

	for _, field := range sel.OnChain {
		attr, _, _ := strings.Cut(field, ".")
		if !h.HasOnChain(attr) {
			continue
		}
		v, err := h.OnChain(ctx, attr)
		if err != nil {
			return nil, err
		}
		if v != nil {
			rec[attr] = v
		}
	}

	for _, pp := range r.desc.PostProcess {
		pp.Apply(rec)
	}

	// The identifier always reflects the ledger address, even when the
	// off-chain document carries its own id-shaped field.
	rec["id"] = h.Address()
	return rec, nil
}

// Finalize returns a copy of the record without auto-added control fields.
func (r *Resolver) Finalize(rec map[string]any, sel fields.Selection) map[string]any {
	if len(sel.ToDrop) == 0 {
		return rec
	}
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	for _, drop := range sel.ToDrop {
		delete(out, drop)
	}
	return out
}

func (r *Resolver) errorRecord(address string, err error) map[string]any {
	msg := fmt.Sprintf("Cannot get data for %s %s", r.desc.Kind, address)
	switch {
	case errors.Is(err, ledger.ErrUnreachable):
		msg = fmt.Sprintf("Unable to reach the ledger for %s %s", r.desc.Kind, address)
	case errors.Is(err, storage.ErrUnreachable):
		msg = fmt.Sprintf("Unable to fetch off-chain data for %s %s", r.desc.Kind, address)
	}
	r.log.WithField("address", address).WithError(err).Warn("record resolution failed")
	return map[string]any{
		"error":         msg,
		"originalError": err.Error(),
		"data":          map[string]any{"id": address},
	}
}
