package profile

import (
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/tradebooks/importer/internal/schema"
)

func validProfile() *FormatProfile {
	return &FormatProfile{
		Name:       "Acme sales export",
		RecordType: schema.RecordTypeSales,
		Delimiter:  ",",
		DateFormat: "%Y-%m-%d",
		FieldMappings: map[string]string{
			"0": "date",
			"1": "item_name",
			"2": "quantity",
			"3": "unit_price",
			"4": "total_price",
			"5": "shipping_cost",
			"6": "post_code",
		},
		IsActive: true,
	}
}

func TestValidateOK(t *testing.T) {
	if err := validProfile().Validate(schema.Records); err != nil {
		t.Fatalf("Validate returned %v, want nil", err)
	}
}

func TestValidateEmptyMappings(t *testing.T) {
	p := validProfile()
	p.FieldMappings = nil

	err := p.Validate(schema.Records)
	if err == nil {
		t.Fatal("Validate returned nil for empty mappings")
	}

	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("Validate returned %T, want *ValidationError", err)
	}
	if msgs := ve.Fields["field_mappings"]; len(msgs) == 0 || !strings.Contains(msgs[0], "non-empty") {
		t.Errorf("field_mappings messages = %v, want non-empty mapping violation", msgs)
	}
}

func TestValidateBadColumnKeys(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"alphabetic key", "abc"},
		{"negative key", "-1"},
		{"signed key", "+2"},
		{"decimal key", "1.5"},
		{"empty key", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProfile()
			p.FieldMappings[tt.key] = "currency"

			err := p.Validate(schema.Records)
			if err == nil {
				t.Fatalf("Validate accepted key %q", tt.key)
			}
			if !strings.Contains(err.Error(), "not a valid column index") {
				t.Errorf("error = %q, want column index violation", err)
			}
		})
	}
}

func TestValidateUnknownFieldName(t *testing.T) {
	p := validProfile()
	p.FieldMappings["7"] = "warehouse"

	err := p.Validate(schema.Records)
	if err == nil {
		t.Fatal("Validate accepted unknown field name")
	}
	if !strings.Contains(err.Error(), "invalid field name(s): warehouse") {
		t.Errorf("error = %q, want invalid field name violation", err)
	}
	// The message should also tell the operator what is valid.
	if !strings.Contains(err.Error(), "valid fields are:") {
		t.Errorf("error = %q, want list of valid fields", err)
	}
}

func TestValidateMissingRequiredFields(t *testing.T) {
	p := validProfile()
	p.FieldMappings = map[string]string{
		"0": "date",
		"1": "item_name",
	}

	err := p.Validate(schema.Records)
	if err == nil {
		t.Fatal("Validate accepted mappings without required fields")
	}
	for _, want := range []string{"quantity", "unit_price", "total_price", "post_code"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not name missing field %q", err, want)
		}
	}
}

// All violations must surface together; an operator should never have to
// fix one problem to discover the next.
func TestValidateAccumulatesViolations(t *testing.T) {
	p := validProfile()
	p.Name = "  "
	p.RecordType = "ledger"
	p.FieldMappings = map[string]string{"x": "date"}

	err := p.Validate(schema.Records)
	if err == nil {
		t.Fatal("Validate returned nil")
	}

	ve := err.(*ValidationError)
	for _, field := range []string{"name", "record_type", "field_mappings"} {
		if len(ve.Fields[field]) == 0 {
			t.Errorf("expected violation keyed by %q, got %v", field, ve.Fields)
		}
	}
}

func TestColumnMappings(t *testing.T) {
	p := validProfile()
	got, err := p.ColumnMappings()
	if err != nil {
		t.Fatalf("ColumnMappings returned %v", err)
	}

	want := map[int]string{
		0: "date", 1: "item_name", 2: "quantity", 3: "unit_price",
		4: "total_price", 5: "shipping_cost", 6: "post_code",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ColumnMappings = %v, want %v", got, want)
	}
}

func TestColumnMappingsRejectsBadKeys(t *testing.T) {
	p := validProfile()
	p.FieldMappings["one"] = "currency"

	if _, err := p.ColumnMappings(); err == nil {
		t.Fatal("ColumnMappings accepted non-integer key")
	}
}

// "1" and "01" decode to the same index; letting one win by map
// iteration order would make parses non-repeatable.
func TestColumnMappingsRejectsDuplicateIndexes(t *testing.T) {
	p := validProfile()
	p.FieldMappings["01"] = "currency"

	_, err := p.ColumnMappings()
	if err == nil {
		t.Fatal("ColumnMappings accepted keys decoding to the same index")
	}
	if !strings.Contains(err.Error(), `"01" and "1" both map column index 1`) {
		t.Errorf("error = %q, want duplicate index violation", err)
	}
}

func TestValidateRejectsDuplicateIndexes(t *testing.T) {
	p := validProfile()
	p.FieldMappings["01"] = "currency"

	err := p.Validate(schema.Records)
	if err == nil {
		t.Fatal("Validate accepted keys decoding to the same index")
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("Validate returned %T, want *ValidationError", err)
	}
	found := false
	for _, msg := range ve.Fields["field_mappings"] {
		if strings.Contains(msg, "both map column index 1") {
			found = true
		}
	}
	if !found {
		t.Errorf("field_mappings messages = %v, want duplicate index violation", ve.Fields["field_mappings"])
	}
}

func TestDelimiterRune(t *testing.T) {
	tests := []struct {
		delimiter string
		want      rune
	}{
		{",", ','},
		{";", ';'},
		{"|", '|'},
		{TabEscape, '\t'},
		{"", ','},
	}

	for _, tt := range tests {
		p := &FormatProfile{Delimiter: tt.delimiter}
		if got := p.DelimiterRune(); got != tt.want {
			t.Errorf("DelimiterRune(%q) = %q, want %q", tt.delimiter, got, tt.want)
		}
	}
}

func TestDuplicate(t *testing.T) {
	p := validProfile()
	p.ID = uuid.New()
	dup := p.Duplicate()

	if dup.Name != "Acme sales export (copy)" {
		t.Errorf("duplicate name = %q", dup.Name)
	}
	if dup.ID != uuid.Nil {
		t.Errorf("duplicate retained identity %v", dup.ID)
	}
	if dup.Delimiter != p.Delimiter || dup.DateFormat != p.DateFormat || dup.RecordType != p.RecordType {
		t.Error("duplicate changed format settings")
	}
	if !reflect.DeepEqual(dup.FieldMappings, p.FieldMappings) {
		t.Errorf("duplicate mappings = %v, want %v", dup.FieldMappings, p.FieldMappings)
	}

	// No shared mutable state with the original.
	dup.FieldMappings["9"] = "currency"
	if _, leaked := p.FieldMappings["9"]; leaked {
		t.Error("duplicate shares field mappings with the original")
	}
}
