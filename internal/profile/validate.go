package profile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tradebooks/importer/internal/schema"
)

// ValidationError reports every violated profile invariant at once,
// keyed by the offending attribute. Validation deliberately does not
// short-circuit: an operator fixing a profile should see the whole
// actionable list in one response rather than a fix-one-see-the-next
// loop.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// Validate checks the profile invariants against the schema descriptor.
// It runs whenever a profile is created or updated, not at parse time.
// All violations are accumulated into a single ValidationError.
func (p *FormatProfile) Validate(desc schema.Descriptor) error {
	ve := &ValidationError{}

	if strings.TrimSpace(p.Name) == "" {
		ve.add("name", "name is required")
	}

	typeKnown := p.RecordType.Valid()
	if !typeKnown {
		ve.add("record_type", fmt.Sprintf("unknown record type %q; must be %q or %q",
			p.RecordType, schema.RecordTypeSales, schema.RecordTypePurchase))
	}

	if len(p.FieldMappings) == 0 {
		ve.add("field_mappings", "field_mappings must be a non-empty mapping")
	}

	keys := make([]string, 0, len(p.FieldMappings))
	for k := range p.FieldMappings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	seen := make(map[int]string, len(keys))
	for _, key := range keys {
		idx, err := parseColumnIndex(key)
		if err != nil {
			ve.add("field_mappings", err.Error())
			continue
		}
		if first, dup := seen[idx]; dup {
			ve.add("field_mappings", (&DuplicateColumnError{Index: idx, Keys: [2]string{first, key}}).Error())
			continue
		}
		seen[idx] = key
	}

	// Field membership and required coverage need the descriptor; with an
	// unknown record type there is no field set to check against.
	if typeKnown && len(p.FieldMappings) > 0 {
		fields := desc.Describe(p.RecordType)

		valid := make(map[string]bool, len(fields))
		for _, f := range fields {
			valid[f.Name] = true
		}

		var invalid []string
		mapped := make(map[string]bool, len(p.FieldMappings))
		for _, field := range p.MappedFields() {
			mapped[field] = true
			if !valid[field] {
				invalid = append(invalid, field)
			}
		}
		if len(invalid) > 0 {
			ve.add("field_mappings", fmt.Sprintf(
				"invalid field name(s): %s; valid fields are: %s",
				strings.Join(invalid, ", "), strings.Join(schema.Names(fields), ", ")))
		}

		var missing []string
		for _, name := range schema.RequiredNames(fields) {
			if !mapped[name] {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			ve.add("field_mappings", fmt.Sprintf(
				"missing required field(s): %s; all required fields must appear among the mapped values",
				strings.Join(missing, ", ")))
		}
	}

	if len(ve.Fields) > 0 {
		return ve
	}
	return nil
}
