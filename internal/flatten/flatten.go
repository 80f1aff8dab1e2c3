// Package flatten projects a resolved document tree onto a requested set of
// dotted field paths, producing a plain object with exactly the requested
// shape. Storage pointers are unwrapped to their contents and never leak into
// the output.
package flatten

import (
	"sort"
	"strings"

	"github.com/TravelMesh/read_layer/internal/storage"
)

// Flatten extracts the requested dotted paths from source. Fields that do not
// resolve to a defined value are silently omitted. The source is never
// mutated; an empty field set yields an empty object.
func Flatten(source any, fields []string) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}

	// Reverse lexicographic order puts "x.y" before "x", so a specific
	// sub-path constrains extraction instead of being shadowed by the bare
	// field. Forward order would break the specific-wins rule.
	sorted := append([]string(nil), fields...)
	sort.Sort(sort.Reverse(sort.StringSlice(sorted)))

	result := flattenValue(source, buildGroups(sorted))
	if m, ok := result.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// group is one first-segment bucket of requested paths. whole means the
// entire subtree is wanted.
type group struct {
	segment string
	subs    []string
	whole   bool
}

// buildGroups buckets reverse-sorted paths by first segment. Because the
// input is reverse-sorted, dotted paths for a segment always precede the bare
// segment, so a bare request never erases its own sub-paths.
func buildGroups(sorted []string) []group {
	var groups []group
	index := make(map[string]int, len(sorted))
	for _, field := range sorted {
		head, rest, dotted := strings.Cut(field, ".")
		i, seen := index[head]
		if !seen {
			index[head] = len(groups)
			groups = append(groups, group{segment: head})
			i = len(groups) - 1
		}
		if dotted {
			groups[i].subs = append(groups[i].subs, rest)
		} else if len(groups[i].subs) == 0 {
			groups[i].whole = true
		}
	}
	return groups
}

func flattenValue(source any, groups []group) any {
	switch src := source.(type) {
	case *storage.Pointer:
		if !src.Resolved() {
			return nil
		}
		return flattenValue(src.Contents, groups)
	case map[string]any:
		return flattenMap(src, groups)
	case []any:
		return flattenArray(src, groups)
	default:
		return nil
	}
}

func flattenMap(src map[string]any, groups []group) any {
	out := make(map[string]any)
	for _, g := range groups {
		if v, ok := src[g.segment]; ok {
			extractInto(out, g, v)
			continue
		}
		broadcastMap(out, src, g)
	}
	return out
}

func extractInto(out map[string]any, g group, v any) {
	if g.whole {
		if plain := plainValue(v); plain != nil {
			out[g.segment] = plain
		}
		return
	}
	child := flattenValue(v, buildGroups(g.subs))
	if child == nil {
		return
	}
	if m, ok := child.(map[string]any); ok && len(m) == 0 {
		return
	}
	out[g.segment] = child
}

// broadcastMap applies one requested field to every entry of a map of
// sub-entities (e.g. per-room-type entries), merging per-entry partial
// results into a structurally parallel output.
func broadcastMap(out map[string]any, src map[string]any, g group) {
	single := []group{g}
	for key, v := range src {
		res := flattenValue(v, single)
		switch r := res.(type) {
		case map[string]any:
			if len(r) > 0 {
				out[key] = mergeEntry(out[key], r)
			}
		case []any:
			out[key] = r
		}
	}
}

// mergeEntry folds a new partial object into whatever has accumulated for a
// broadcast key on a previous pass.
func mergeEntry(existing any, add map[string]any) any {
	prev, ok := existing.(map[string]any)
	if !ok {
		return add
	}
	for k, v := range add {
		prev[k] = v
	}
	return prev
}

func flattenArray(src []any, groups []group) any {
	out := make([]any, 0, len(src))
	for _, el := range src {
		res := flattenValue(el, groups)
		if res == nil {
			res = map[string]any{}
		}
		out = append(out, res)
	}
	return out
}

// plainValue deep-copies a whole subtree, unwrapping storage pointers to
// their contents. An unresolved pointer degrades to its bare ref string.
func plainValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case *storage.Pointer:
		if val == nil {
			return nil
		}
		if !val.Resolved() {
			return val.Ref
		}
		return plainValue(val.Contents)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if plain := plainValue(item); plain != nil {
				out[k] = plain
			}
		}
		return out
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			if plain := plainValue(item); plain != nil {
				out = append(out, plain)
			}
		}
		return out
	default:
		return v
	}
}
