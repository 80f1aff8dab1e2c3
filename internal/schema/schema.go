// Package schema validates shaped records against a versioned, JSON-schema
// style definitions document. The required-field lists of every reachable
// sub-schema are intersected with the fields the client actually requested,
// so omitted optional fields never produce spurious validation failures.
package schema

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/TravelMesh/read_layer/internal/apperr"
)

// Document is a parsed definitions file.
type Document struct {
	Definitions map[string]*Schema `yaml:"definitions"`
}

// Schema is one (sub-)schema node.
type Schema struct {
	Type       string             `yaml:"type"`
	Ref        string             `yaml:"$ref"`
	Required   []string           `yaml:"required"`
	Properties map[string]*Schema `yaml:"properties"`
	Items      *Schema            `yaml:"items"`
	AllOf      []*Schema          `yaml:"allOf"`
}

// Cache holds parsed definitions documents keyed by file path. Loads are
// guarded so concurrent population cannot corrupt the cache; a duplicate
// parse converging to identical content is acceptable.
type Cache struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// NewCache returns an empty schema cache.
func NewCache() *Cache {
	return &Cache{docs: make(map[string]*Document)}
}

// load returns the parsed document for path, reading it at most once.
func (c *Cache) load(path string) (*Document, error) {
	c.mu.RLock()
	doc, ok := c.docs[path]
	c.mu.RUnlock()
	if ok {
		return doc, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Configuration(fmt.Sprintf("cannot read schema file %s", path), err)
	}
	parsed := &Document{}
	if err := yaml.Unmarshal(raw, parsed); err != nil {
		return nil, apperr.Configuration(fmt.Sprintf("cannot parse schema file %s", path), err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.docs[path]; ok {
		return existing, nil
	}
	c.docs[path] = parsed
	return parsed, nil
}

// Load returns a deep clone of the definitions document with every required
// list reachable from modelName intersected against the requested fields.
// The clone keeps per-request intersection from mutating the shared cache.
// reverseRename maps public path segments back to the names the schema uses.
func (c *Cache) Load(path, modelName string, requestedFields []string, reverseRename map[string]string) (*Document, error) {
	cached, err := c.load(path)
	if err != nil {
		return nil, err
	}
	doc := cached.clone()
	root, ok := doc.Definitions[modelName]
	if !ok {
		return nil, apperr.Configuration(fmt.Sprintf("schema model %q not found in %s", modelName, path), nil)
	}
	intersectRequired(doc, root, normalizePaths(requestedFields, reverseRename))
	return doc, nil
}

// Resolve follows a $ref or returns the schema itself.
func (d *Document) Resolve(s *Schema) *Schema {
	if s == nil {
		return nil
	}
	if s.Ref == "" {
		return s
	}
	name := strings.TrimPrefix(s.Ref, "#/definitions/")
	if target, ok := d.Definitions[name]; ok {
		return target
	}
	return nil
}

func (d *Document) clone() *Document {
	out := &Document{Definitions: make(map[string]*Schema, len(d.Definitions))}
	for name, s := range d.Definitions {
		out.Definitions[name] = s.clone()
	}
	return out
}

func (s *Schema) clone() *Schema {
	if s == nil {
		return nil
	}
	out := &Schema{
		Type: s.Type,
		Ref:  s.Ref,
	}
	if s.Required != nil {
		out.Required = append([]string(nil), s.Required...)
	}
	if s.Properties != nil {
		out.Properties = make(map[string]*Schema, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = v.clone()
		}
	}
	out.Items = s.Items.clone()
	for _, sub := range s.AllOf {
		out.AllOf = append(out.AllOf, sub.clone())
	}
	return out
}

// normalizePaths rewrites public dotted paths segment-wise into schema names.
func normalizePaths(fields []string, reverseRename map[string]string) []string {
	if len(reverseRename) == 0 {
		return fields
	}
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		segments := strings.Split(f, ".")
		for i, seg := range segments {
			if mapped, ok := reverseRename[seg]; ok {
				segments[i] = mapped
			}
		}
		out = append(out, strings.Join(segments, "."))
	}
	return out
}

// intersectRequired narrows the required list of s and of every sub-schema
// named by a dotted request path. A field requested bare keeps its subtree's
// required lists untouched, because every nested field is then implicitly
// requested. Recursion follows the request paths, so it terminates even on
// recursive schema graphs.
func intersectRequired(doc *Document, s *Schema, requested []string) {
	s = doc.Resolve(s)
	if s == nil {
		return
	}

	heads := make(map[string][]string, len(requested))
	for _, path := range requested {
		head, rest, dotted := strings.Cut(path, ".")
		if dotted {
			heads[head] = append(heads[head], rest)
		} else if _, seen := heads[head]; !seen {
			heads[head] = nil
		}
	}

	narrowRequired(doc, s, heads, map[*Schema]bool{})

	for head, subs := range heads {
		if subs == nil {
			continue
		}
		child := propertySchema(doc, s, head)
		if child == nil {
			continue
		}
		// Array-valued properties carry their object schema on items; the
		// sub-request applies to every element.
		resolved := doc.Resolve(child)
		if resolved != nil && resolved.Items != nil {
			intersectRequired(doc, resolved.Items, subs)
			continue
		}
		intersectRequired(doc, child, subs)
	}
}

// narrowRequired intersects required lists on s and its allOf parts,
// following $ref composition. visited guards against reference cycles.
func narrowRequired(doc *Document, s *Schema, heads map[string][]string, visited map[*Schema]bool) {
	s = doc.Resolve(s)
	if s == nil || visited[s] {
		return
	}
	visited[s] = true

	if s.Required != nil {
		kept := make([]string, 0, len(s.Required))
		for _, name := range s.Required {
			if _, ok := heads[name]; ok {
				kept = append(kept, name)
			}
		}
		s.Required = kept
	}
	for _, part := range s.AllOf {
		narrowRequired(doc, part, heads, visited)
	}
}

// propertySchema finds the schema of a named property, looking through allOf
// composition.
func propertySchema(doc *Document, s *Schema, name string) *Schema {
	s = doc.Resolve(s)
	if s == nil {
		return nil
	}
	if child, ok := s.Properties[name]; ok {
		return child
	}
	for _, part := range s.AllOf {
		if child := propertySchema(doc, part, name); child != nil {
			return child
		}
	}
	return nil
}
