package schema

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ValidationError reports the outcome of validating one shaped record.
// Valid=true marks a warning-only outcome (stale but compatible data format);
// Valid=false marks a hard schema violation. Downstream list filling buckets
// on this flag, not on the error type.
type ValidationError struct {
	Valid    bool
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// Warning reports whether the record is still usable.
func (e *ValidationError) Warning() bool { return e.Valid }

// ValidateInput bundles the arguments of Validate.
type ValidateInput struct {
	Data            map[string]any
	ModelName       string
	Document        *Document
	DesiredVersions string
	DeclaredVersion string
	TypeLabel       string
	// IDOnly skips the version check: a client asking for nothing but the
	// identifier must never trip a data-format error.
	IDOnly bool
}

// Validate checks the record's declared data-format version against the
// accepted semver range and its structure against the (already
// required-intersected) schema. It returns nil, a warning-flagged
// ValidationError, or a hard ValidationError.
func Validate(in ValidateInput) error {
	if in.IDOnly {
		return nil
	}

	id, _ := in.Data["id"].(string)

	version := in.DeclaredVersion
	if version == "" {
		version, _ = in.Data["dataFormatVersion"].(string)
	}
	if version == "" {
		return &ValidationError{
			Valid:    false,
			Messages: []string{fmt.Sprintf("missing dataFormatVersion for %s %s", in.TypeLabel, id)},
		}
	}

	constraint, err := semver.NewConstraint(in.DesiredVersions)
	if err != nil {
		return &ValidationError{
			Valid:    false,
			Messages: []string{fmt.Sprintf("unusable desired version range %q: %v", in.DesiredVersions, err)},
		}
	}
	parsed, err := semver.NewVersion(version)
	if err != nil {
		return &ValidationError{
			Valid:    false,
			Messages: []string{fmt.Sprintf("unparsable dataFormatVersion %q for %s %s", version, in.TypeLabel, id)},
		}
	}
	if !constraint.Check(parsed) {
		// Present but outside the accepted range: the record is still
		// usable, so surface a warning instead of rejecting it.
		return &ValidationError{
			Valid: true,
			Messages: []string{fmt.Sprintf(
				"%s %s declares dataFormatVersion %s, expected %s", in.TypeLabel, id, version, in.DesiredVersions)},
		}
	}

	root, ok := in.Document.Definitions[in.ModelName]
	if !ok {
		return &ValidationError{
			Valid:    false,
			Messages: []string{fmt.Sprintf("schema model %q not found", in.ModelName)},
		}
	}
	if msgs := checkSchema(in.Document, root, in.Data, ""); len(msgs) > 0 {
		return &ValidationError{Valid: false, Messages: msgs}
	}
	return nil
}

// checkSchema validates value structurally against s, collecting field-scoped
// messages. Properties absent from the schema are allowed through.
func checkSchema(doc *Document, s *Schema, value any, path string) []string {
	s = doc.Resolve(s)
	if s == nil {
		return nil
	}

	var msgs []string
	for _, part := range s.AllOf {
		msgs = append(msgs, checkSchema(doc, part, value, path)...)
	}

	switch s.Type {
	case "object", "":
		if s.Properties == nil && s.Required == nil && s.Type == "" {
			return msgs
		}
		obj, ok := value.(map[string]any)
		if !ok {
			if s.Type == "object" {
				return append(msgs, fmt.Sprintf("%s: expected object", label(path)))
			}
			return msgs
		}
		for _, name := range s.Required {
			if _, present := obj[name]; !present {
				msgs = append(msgs, fmt.Sprintf("%s: missing required field %s", label(path), name))
			}
		}
		for name, child := range s.Properties {
			v, present := obj[name]
			if !present || v == nil {
				continue
			}
			msgs = append(msgs, checkSchema(doc, child, v, joinPath(path, name))...)
		}
	case "array":
		arr, ok := value.([]any)
		if !ok {
			return append(msgs, fmt.Sprintf("%s: expected array", label(path)))
		}
		if s.Items != nil {
			for i, el := range arr {
				msgs = append(msgs, checkSchema(doc, s.Items, el, fmt.Sprintf("%s[%d]", path, i))...)
			}
		}
	case "string":
		if _, ok := value.(string); !ok {
			msgs = append(msgs, fmt.Sprintf("%s: expected string", label(path)))
		}
	case "number":
		if !isNumber(value) {
			msgs = append(msgs, fmt.Sprintf("%s: expected number", label(path)))
		}
	case "integer":
		if !isInteger(value) {
			msgs = append(msgs, fmt.Sprintf("%s: expected integer", label(path)))
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			msgs = append(msgs, fmt.Sprintf("%s: expected boolean", label(path)))
		}
	}
	return msgs
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int32, int64:
		return true
	}
	return false
}

func isInteger(v any) bool {
	switch n := v.(type) {
	case int, int32, int64:
		return true
	case float64:
		return n == float64(int64(n))
	}
	return false
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func label(path string) string {
	if path == "" {
		return "(root)"
	}
	return path
}
