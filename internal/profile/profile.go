// Package profile defines the persisted CSV format profile: a named
// configuration describing how one external CSV layout maps onto the
// internal record schema. Profiles are created and edited by operators
// and validated against the schema descriptor before they can be used
// for an import.
package profile

import (
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tradebooks/importer/internal/schema"
)

// TabEscape is the two-character literal operators type into the
// delimiter field to mean a tab character.
const TabEscape = `\t`

// FormatProfile describes how to parse one external CSV layout.
// FieldMappings maps a source column index (as its decimal string) to an
// internal field name. The string keys match the persisted JSON shape;
// ColumnMappings performs the strict integer decode.
type FormatProfile struct {
	ID            uuid.UUID         `json:"id"`
	Name          string            `json:"name"`
	RecordType    schema.RecordType `json:"record_type"`
	Delimiter     string            `json:"delimiter"`
	DateFormat    string            `json:"date_format"`
	FieldMappings map[string]string `json:"field_mappings"`
	IsActive      bool              `json:"is_active"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// DelimiterRune returns the delimiter as a rune, translating the literal
// \t escape into an actual tab. An unset delimiter falls back to comma.
func (p *FormatProfile) DelimiterRune() rune {
	switch p.Delimiter {
	case "":
		return ','
	case TabEscape:
		return '\t'
	default:
		return []rune(p.Delimiter)[0]
	}
}

// ColumnMappings decodes FieldMappings into integer column indexes.
// Non-integer or negative keys are rejected, never silently coerced;
// profiles read back from storage go through the same strictness as
// freshly validated ones. Keys that decode to the same index ("1" and
// "01") are rejected too: letting one silently win would make the parse
// depend on map iteration order.
func (p *FormatProfile) ColumnMappings() (map[int]string, error) {
	keys := make([]string, 0, len(p.FieldMappings))
	for key := range p.FieldMappings {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make(map[int]string, len(keys))
	firstKey := make(map[int]string, len(keys))
	for _, key := range keys {
		idx, err := parseColumnIndex(key)
		if err != nil {
			return nil, err
		}
		if prev, dup := firstKey[idx]; dup {
			return nil, &DuplicateColumnError{Index: idx, Keys: [2]string{prev, key}}
		}
		firstKey[idx] = key
		out[idx] = p.FieldMappings[key]
	}
	return out, nil
}

// MappedFields returns the distinct mapped field names, sorted.
func (p *FormatProfile) MappedFields() []string {
	seen := make(map[string]bool, len(p.FieldMappings))
	for _, field := range p.FieldMappings {
		seen[field] = true
	}
	fields := make([]string, 0, len(seen))
	for field := range seen {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// Duplicate returns a copy of the profile with a fresh (unset) identity
// and an adjusted name. Format settings are preserved exactly; the copy
// shares no mutable state with the original.
func (p *FormatProfile) Duplicate() *FormatProfile {
	mappings := make(map[string]string, len(p.FieldMappings))
	for k, v := range p.FieldMappings {
		mappings[k] = v
	}
	return &FormatProfile{
		Name:          p.Name + " (copy)",
		RecordType:    p.RecordType,
		Delimiter:     p.Delimiter,
		DateFormat:    p.DateFormat,
		FieldMappings: mappings,
		IsActive:      p.IsActive,
	}
}

// parseColumnIndex parses a mapping key as a non-negative integer.
// Only plain decimal digits are accepted; "+1", "-1", "1.0" and the
// like are configuration mistakes, not indexes.
func parseColumnIndex(key string) (int, error) {
	if key == "" {
		return 0, &ColumnIndexError{Key: key}
	}
	for _, r := range key {
		if r < '0' || r > '9' {
			return 0, &ColumnIndexError{Key: key}
		}
	}
	idx, err := strconv.Atoi(key)
	if err != nil {
		return 0, &ColumnIndexError{Key: key}
	}
	return idx, nil
}

// ColumnIndexError reports a mapping key that is not a non-negative
// integer string.
type ColumnIndexError struct {
	Key string
}

func (e *ColumnIndexError) Error() string {
	return "key " + strconv.Quote(e.Key) + " is not a valid column index; keys must be non-negative integer strings (e.g. \"0\", \"1\", \"2\")"
}

// DuplicateColumnError reports two mapping keys that decode to the same
// column index.
type DuplicateColumnError struct {
	Index int
	Keys  [2]string
}

func (e *DuplicateColumnError) Error() string {
	return "keys " + strconv.Quote(e.Keys[0]) + " and " + strconv.Quote(e.Keys[1]) +
		" both map column index " + strconv.Itoa(e.Index)
}
