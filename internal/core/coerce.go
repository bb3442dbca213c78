package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// rowCoercer converts one raw row's cells into typed field values. It
// collects one error message per failed cell instead of aborting the row
// at the first problem, so the operator sees every defect in a row at
// once. Rows are independent: the coercer holds no per-row state.
type rowCoercer struct {
	mappings map[int]string
	columns  []int // mapping keys ascending, for deterministic output order
	layouts  []string
}

func newRowCoercer(mappings map[int]string, layouts []string) *rowCoercer {
	columns := make([]int, 0, len(mappings))
	for col := range mappings {
		columns = append(columns, col)
	}
	sort.Ints(columns)
	return &rowCoercer{mappings: mappings, columns: columns, layouts: layouts}
}

// coerce produces a partial record and the field-level errors for one
// row. A row with any error contributes only to the error list; the
// partial record is discarded by the caller.
func (c *rowCoercer) coerce(row []string) (ParsedRecord, []string) {
	rec := ParsedRecord{
		UnitPrice:    decimal.Zero,
		TotalPrice:   decimal.Zero,
		ShippingCost: decimal.Zero,
	}
	var errs []string

	for _, col := range c.columns {
		field := c.mappings[col]
		if col >= len(row) {
			// Skipped, not defaulted: a short row must not silently
			// acquire a zero value for the missing cell.
			errs = append(errs, fmt.Sprintf("Column %d out of range", col))
			continue
		}
		raw := strings.TrimSpace(row[col])

		switch field {
		case FieldDate:
			t, ok := parseDate(raw, c.layouts)
			if !ok {
				errs = append(errs, "invalid date format")
				continue
			}
			rec.Date = t

		case FieldItemName:
			if raw == "" {
				errs = append(errs, FieldItemName+" is required")
				continue
			}
			rec.ItemName = raw

		case FieldQuantity:
			n, err := strconv.Atoi(raw)
			if err != nil {
				errs = append(errs, "invalid "+FieldQuantity)
				continue
			}
			if n < 0 {
				errs = append(errs, FieldQuantity+" must be non-negative")
				continue
			}
			rec.Quantity = n

		case FieldUnitPrice, FieldTotalPrice:
			d, err := decimal.NewFromString(raw)
			if err != nil {
				errs = append(errs, "invalid "+field)
				continue
			}
			if field == FieldUnitPrice {
				rec.UnitPrice = d
			} else {
				rec.TotalPrice = d
			}

		case FieldShippingCost:
			// Blank shipping falls back to the schema default of zero;
			// only present-but-unparsable values are row errors.
			if raw == "" {
				continue
			}
			d, err := decimal.NewFromString(raw)
			if err != nil {
				errs = append(errs, "invalid "+FieldShippingCost)
				continue
			}
			rec.ShippingCost = d

		case FieldPostCode:
			if raw == "" {
				errs = append(errs, FieldPostCode+" is required")
				continue
			}
			rec.PostCode = ExtractPostcode(raw)

		case FieldCurrency:
			if raw != "" {
				rec.Currency = raw
			}
		}
	}

	if rec.Currency == "" {
		rec.Currency = DefaultCurrency
	}
	return rec, errs
}
