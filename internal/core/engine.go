package core

import (
	"encoding/csv"
	"fmt"
	"sort"
	"strings"

	"github.com/tradebooks/importer/internal/profile"
	"github.com/tradebooks/importer/internal/schema"
)

// Parser runs one of the two import modes. A nil profile selects header
// mode; otherwise the profile fixes the delimiter, date notation and
// column mapping for the whole parse.
type Parser struct {
	profile *profile.FormatProfile
	desc    schema.Descriptor
}

// NewParser builds a parser against the built-in record schema. Pass nil
// to parse by header names instead of an explicit profile.
func NewParser(p *profile.FormatProfile) *Parser {
	return NewParserWithDescriptor(p, schema.Records)
}

// NewParserWithDescriptor is NewParser with an explicit schema source,
// used by tests that exercise schema evolution.
func NewParserWithDescriptor(p *profile.FormatProfile, desc schema.Descriptor) *Parser {
	return &Parser{profile: p, desc: desc}
}

// Parse processes the full CSV content and returns every record and
// every error. It never fails partway: a structural problem yields an
// Outcome with zero records and a single explanatory error, anything
// else yields per-row results.
func (p *Parser) Parse(content string) Outcome {
	if p.profile != nil {
		return p.parseWithProfile(content)
	}
	return p.parseWithHeaders(content)
}

func (p *Parser) parseWithProfile(content string) Outcome {
	prof := p.profile
	if !prof.RecordType.Valid() {
		return structural(fmt.Sprintf("Unknown record type %q", string(prof.RecordType)))
	}

	mappings, err := prof.ColumnMappings()
	if err != nil {
		return structural("Invalid field mappings: " + err.Error())
	}
	if len(mappings) == 0 {
		return structural("Profile has no field mappings configured")
	}

	rows, err := readRows(content, prof.DelimiterRune())
	if err != nil {
		return structural("Failed to parse CSV file: " + err.Error())
	}
	if len(rows) == 0 {
		return structural("CSV file is empty or has no header row.")
	}
	if len(rows) == 1 {
		return structural("CSV file has headers but no data rows.")
	}

	if missing := p.missingRequiredMappings(mappings); len(missing) > 0 {
		return structural("Missing required field mappings: " + strings.Join(missing, ", "))
	}

	header := rows[0]
	cols := sortedColumns(mappings)
	for _, col := range cols {
		if col >= len(header) {
			return structural(fmt.Sprintf("Column %d out of range (file has %d columns)", col, len(header)))
		}
	}

	layouts := headerModeDateLayouts
	if prof.DateFormat != "" {
		layouts = []string{TranslateDateFormat(prof.DateFormat)}
	}
	return foldRows(rows, newRowCoercer(mappings, layouts))
}

func (p *Parser) parseWithHeaders(content string) Outcome {
	rows, err := readRows(content, ',')
	if err != nil {
		return structural("Failed to parse CSV file: " + err.Error())
	}
	if len(rows) == 0 {
		return structural("CSV file is empty or has no header row.")
	}

	// First occurrence wins when a header name repeats.
	index := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, seen := index[key]; !seen {
			index[key] = i
		}
	}

	var missing []string
	mappings := make(map[int]string, len(requiredHeaderFields)+1)
	for _, field := range requiredHeaderFields {
		col, ok := index[field]
		if !ok {
			missing = append(missing, field)
			continue
		}
		mappings[col] = field
	}
	if len(missing) > 0 {
		return structural("Missing required columns: " + strings.Join(missing, ", "))
	}
	if col, ok := index[FieldCurrency]; ok {
		mappings[col] = FieldCurrency
	}

	// Headers present but nothing underneath is an empty import, not an
	// error, in this mode.
	return foldRows(rows, newRowCoercer(mappings, headerModeDateLayouts))
}

// missingRequiredMappings returns, sorted, the required field names the
// profile leaves unmapped. Required status is read fresh from the schema
// on every parse.
func (p *Parser) missingRequiredMappings(mappings map[int]string) []string {
	mapped := make(map[string]bool, len(mappings))
	for _, field := range mappings {
		mapped[field] = true
	}
	var missing []string
	for _, name := range schema.RequiredNames(p.desc.Describe(p.profile.RecordType)) {
		if !mapped[name] {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// foldRows runs the coercer over every data row. Each row ends up in
// exactly one of the two output slices; a failed row's partial record is
// discarded. Row numbers count the header as row 1.
func foldRows(rows [][]string, c *rowCoercer) Outcome {
	var out Outcome
	for i, row := range rows[1:] {
		rec, errs := c.coerce(row)
		if len(errs) > 0 {
			out.Errors = append(out.Errors, fmt.Sprintf("Row %d: %s", i+2, strings.Join(errs, "; ")))
			continue
		}
		out.Records = append(out.Records, rec)
	}
	return out
}

// readRows decodes the raw content with the given delimiter. Ragged rows
// are allowed; width problems surface as per-cell errors with precise
// column numbers instead of a blanket reader failure.
func readRows(content string, comma rune) ([][]string, error) {
	content = strings.TrimPrefix(content, "\uFEFF")
	r := csv.NewReader(strings.NewReader(content))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

func structural(msg string) Outcome {
	return Outcome{Errors: []string{msg}}
}

func sortedColumns(mappings map[int]string) []int {
	cols := make([]int, 0, len(mappings))
	for col := range mappings {
		cols = append(cols, col)
	}
	sort.Ints(cols)
	return cols
}
