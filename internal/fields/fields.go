// Package fields parses a client field query and classifies each requested
// dotted field into on-chain, off-chain and pass-through groups. The
// public/internal name mappings and classification sets live in declarative
// tables so hotel, airline and ancillary variants share one selector.
package fields

import "strings"

// Table describes one record kind's field universe.
type Table struct {
	// Default is the public field list used when the query is absent.
	Default []string
	// Rename maps public path segments to internal storage segments
	// (e.g. ownerAddress -> owner, ratePlans -> ratePlansUri).
	Rename map[string]string
	// OnChain lists internal names readable directly from the record handle.
	OnChain map[string]bool
	// Description lists internal top-level names that live inside the
	// off-chain description document.
	Description map[string]bool
	// DataIndex lists internal pass-through fields of the root data document.
	DataIndex map[string]bool
	// DescriptionField is the root-document key holding the description
	// pointer, prefixed onto description-resident paths.
	DescriptionField string
	// AutoAdd names version/guarantee control fields appended to every
	// selection so validation can run; auto-added ones are dropped from the
	// final response.
	AutoAdd []string
	// ID is the public identifier field name.
	ID string
}

// Selection is the classified, ephemeral result of one field query.
type Selection struct {
	// Mapped holds the renamed fields in request order, duplicates preserved.
	Mapped []string
	// OnChain holds the subset of Mapped resolvable from the handle.
	OnChain []string
	// ToFlatten holds off-chain paths, description-resident ones rewritten
	// under the description prefix.
	ToFlatten []string
	// ToDrop tracks auto-added control fields absent from the client query.
	ToDrop []string
}

// OnlyID reports whether the client asked for nothing but the identifier.
func (s Selection) OnlyID(t Table) bool {
	for _, f := range s.Mapped {
		if contains(s.ToDrop, f) {
			continue
		}
		if f != t.ID {
			return false
		}
	}
	return true
}

// Select parses the raw field query (each entry possibly comma-joined) and
// classifies it against the table. Unknown fields are dropped silently.
func Select(query []string, t Table) Selection {
	requested := splitQuery(query)
	if len(requested) == 0 {
		requested = append([]string(nil), t.Default...)
	}

	var sel Selection
	for _, field := range requested {
		mapped := renamePath(field, t.Rename)
		sel.Mapped = append(sel.Mapped, mapped)
		classify(&sel, mapped, t)
	}

	for _, auto := range t.AutoAdd {
		if contains(sel.Mapped, auto) {
			continue
		}
		sel.Mapped = append(sel.Mapped, auto)
		sel.ToDrop = append(sel.ToDrop, auto)
		classify(&sel, auto, t)
	}
	return sel
}

func classify(sel *Selection, mapped string, t Table) {
	head, _, _ := strings.Cut(mapped, ".")
	switch {
	case t.OnChain[head]:
		sel.OnChain = append(sel.OnChain, mapped)
	case t.Description[head]:
		sel.ToFlatten = append(sel.ToFlatten, t.DescriptionField+"."+mapped)
	case t.DataIndex[head]:
		sel.ToFlatten = append(sel.ToFlatten, mapped)
	}
	// Anything else (including the bare identifier) needs no resolution;
	// unknown fields are not errors.
}

// renamePath applies the rename table to every segment of a dotted path.
func renamePath(field string, rename map[string]string) string {
	if len(rename) == 0 {
		return field
	}
	segments := strings.Split(field, ".")
	for i, seg := range segments {
		if internal, ok := rename[seg]; ok {
			segments[i] = internal
		}
	}
	return strings.Join(segments, ".")
}

func splitQuery(query []string) []string {
	var out []string
	for _, entry := range query {
		for _, field := range strings.Split(entry, ",") {
			field = strings.TrimSpace(field)
			if field != "" {
				out = append(out, field)
			}
		}
	}
	return out
}

func contains(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}
