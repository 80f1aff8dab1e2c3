package storage

import (
	"context"
	"strings"

	"github.com/TravelMesh/read_layer/pkg/logger"
)

// Resolver fetches a document tree rooted at a URI, following storage
// pointers only as far as the requested field paths and depth bound require.
//
// Keys ending in "Uri" whose values are strings are treated as storage
// pointers to sub-documents, except for keys registered as plain link fields
// (service URLs such as bookingUri that point outside the content stores).
type Resolver struct {
	reg        *Registry
	plainLinks map[string]bool
	log        *logger.Logger
}

// NewResolver creates a resolver over the adapter registry. plainLinkKeys
// lists *Uri fields that must not be followed as sub-documents.
func NewResolver(reg *Registry, plainLinkKeys []string, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.NewDefault("storage.resolver")
	}
	links := make(map[string]bool, len(plainLinkKeys))
	for _, k := range plainLinkKeys {
		links[k] = true
	}
	return &Resolver{reg: reg, plainLinks: links, log: log}
}

// Resolve fetches the root document at uri and recursively resolves the
// storage pointers needed to satisfy the requested dotted field paths.
// A nil fields slice resolves every pointer up to maxDepth. maxDepth counts
// pointer fetches below the root; pointers beyond it stay unresolved.
func (r *Resolver) Resolve(ctx context.Context, uri string, fields []string, maxDepth int) (*Pointer, error) {
	doc, err := r.reg.Fetch(ctx, uri)
	if err != nil {
		return nil, err
	}
	r.convertPointers(doc)
	if err := r.resolveDoc(ctx, doc, fields, maxDepth); err != nil {
		return nil, err
	}
	return &Pointer{Ref: uri, Contents: doc}, nil
}

// convertPointers rewrites pointer-shaped string fields into *Pointer values.
func (r *Resolver) convertPointers(doc map[string]any) {
	for key, val := range doc {
		ref, ok := val.(string)
		if !ok || !strings.HasSuffix(key, "Uri") || r.plainLinks[key] {
			continue
		}
		if !strings.Contains(ref, "://") {
			continue
		}
		doc[key] = &Pointer{Ref: ref}
	}
}

func (r *Resolver) resolveDoc(ctx context.Context, doc map[string]any, fields []string, depth int) error {
	groups := groupPaths(fields)
	for key, val := range doc {
		sub, wanted := subPathsFor(groups, fields, key)
		if !wanted {
			continue
		}
		if err := r.resolveValue(ctx, val, sub, depth); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) resolveValue(ctx context.Context, val any, sub []string, depth int) error {
	switch v := val.(type) {
	case *Pointer:
		if depth <= 0 {
			return nil
		}
		contents, err := r.reg.Fetch(ctx, v.Ref)
		if err != nil {
			return err
		}
		r.convertPointers(contents)
		v.Contents = contents
		return r.resolveDoc(ctx, contents, sub, depth-1)
	case map[string]any:
		// Pointer-shaped strings can sit arbitrarily deep, e.g. inside the
		// elements of a flights item list.
		r.convertPointers(v)
		return r.resolveDoc(ctx, v, sub, depth)
	case []any:
		for _, el := range v {
			if err := r.resolveValue(ctx, el, sub, depth); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

// groupPaths splits dotted paths by first segment. A nil remainder list means
// the whole subtree is wanted.
func groupPaths(fields []string) map[string][]string {
	if fields == nil {
		return nil
	}
	groups := make(map[string][]string, len(fields))
	for _, f := range fields {
		head, rest, found := strings.Cut(f, ".")
		if !found {
			if _, exists := groups[head]; !exists {
				groups[head] = nil
			}
			continue
		}
		groups[head] = append(groups[head], rest)
	}
	return groups
}

// subPathsFor reports whether key is wanted and the paths to pursue under it.
// With a nil field set everything is wanted whole.
func subPathsFor(groups map[string][]string, fields []string, key string) ([]string, bool) {
	if fields == nil {
		return nil, true
	}
	sub, ok := groups[key]
	return sub, ok
}
