package core

import (
	"fmt"

	"github.com/tradebooks/importer/internal/profile"
)

const (
	maxPreviewRows   = 10
	maxPreviewErrors = 20
)

// ProfileTest is the result of a dry run of a profile against a sample
// file. Nothing is persisted; the caller gets enough to render a
// before/after table and the first batch of problems.
type ProfileTest struct {
	Headers          []string            `json:"headers"`
	HeaderFields     []string            `json:"header_fields"`
	Preview          []map[string]string `json:"preview"`
	TotalParsed      int                 `json:"total_parsed"`
	Errors           []string            `json:"errors"`
	RecordsTruncated bool                `json:"records_truncated"`
	ErrorsTruncated  bool                `json:"errors_truncated"`
}

// TestProfile parses the sample content with the profile and summarizes
// the outcome for display. Structural failures come back as an error;
// row failures are part of the summary. Headers pair each mapped field
// with the raw column name it reads from, in mapped column order.
// Preview rows are keyed by field name; HeaderFields carries the mapped
// column order for rendering them as a table.
func TestProfile(p *profile.FormatProfile, content string) (*ProfileTest, error) {
	mappings, err := p.ColumnMappings()
	if err != nil {
		return nil, fmt.Errorf("invalid field mappings: %w", err)
	}

	out := NewParser(p).Parse(content)
	if msg, ok := out.StructuralError(); ok {
		return nil, fmt.Errorf("%s", msg)
	}

	rows, err := readRows(content, p.DelimiterRune())
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV file: %w", err)
	}
	rawHeader := rows[0]

	cols := sortedColumns(mappings)
	test := &ProfileTest{
		Headers:      make([]string, 0, len(cols)),
		HeaderFields: make([]string, 0, len(cols)),
		TotalParsed:  len(out.Records),
	}
	for _, col := range cols {
		field := mappings[col]
		raw := ""
		if col < len(rawHeader) {
			raw = rawHeader[col]
		}
		test.Headers = append(test.Headers, fmt.Sprintf("%s (CSV: %s)", field, raw))
		test.HeaderFields = append(test.HeaderFields, field)
	}

	for _, rec := range out.Records {
		if len(test.Preview) == maxPreviewRows {
			test.RecordsTruncated = true
			break
		}
		row := make(map[string]string, len(cols))
		for _, col := range cols {
			field := mappings[col]
			row[field] = rec.FieldValue(field)
		}
		test.Preview = append(test.Preview, row)
	}

	test.Errors = out.Errors
	if len(test.Errors) > maxPreviewErrors {
		test.Errors = test.Errors[:maxPreviewErrors]
		test.ErrorsTruncated = true
	}
	return test, nil
}
