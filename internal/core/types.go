package core

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Internal field names that CSV columns map onto.
const (
	FieldDate         = "date"
	FieldItemName     = "item_name"
	FieldQuantity     = "quantity"
	FieldUnitPrice    = "unit_price"
	FieldTotalPrice   = "total_price"
	FieldShippingCost = "shipping_cost"
	FieldPostCode     = "post_code"
	FieldCurrency     = "currency"
)

// DefaultCurrency is applied when the currency field is unmapped or blank.
const DefaultCurrency = "GBP"

// requiredHeaderFields are the column names header mode insists on.
// currency is optional in both modes.
var requiredHeaderFields = []string{
	FieldDate,
	FieldItemName,
	FieldQuantity,
	FieldUnitPrice,
	FieldTotalPrice,
	FieldShippingCost,
	FieldPostCode,
}

// ParsedRecord is one successfully coerced CSV row. Monetary amounts are
// exact decimals; binary floating point would not round-trip financial
// values.
type ParsedRecord struct {
	Date         time.Time
	ItemName     string
	Quantity     int
	UnitPrice    decimal.Decimal
	TotalPrice   decimal.Decimal
	ShippingCost decimal.Decimal
	PostCode     string
	Currency     string
}

// FieldValue renders one field of the record as display text.
func (r ParsedRecord) FieldValue(field string) string {
	switch field {
	case FieldDate:
		return r.Date.Format("2006-01-02")
	case FieldItemName:
		return r.ItemName
	case FieldQuantity:
		return strconv.Itoa(r.Quantity)
	case FieldUnitPrice:
		return formatDecimal(r.UnitPrice)
	case FieldTotalPrice:
		return formatDecimal(r.TotalPrice)
	case FieldShippingCost:
		return formatDecimal(r.ShippingCost)
	case FieldPostCode:
		return r.PostCode
	case FieldCurrency:
		return r.Currency
	default:
		return ""
	}
}

// formatDecimal renders a decimal at the scale it was parsed with, so
// 3.50 stays "3.50" instead of collapsing to "3.5".
func formatDecimal(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

// Outcome is the result of one parse call. Records holds the successes
// in source row order; Errors holds human-readable failures. Row-scoped
// errors are prefixed "Row <n>: " where the header counts as row 1, so
// the first data row is row 2. A row never contributes to both slices.
type Outcome struct {
	Records []ParsedRecord
	Errors  []string
}

// StructuralError reports the configuration-level failure, if any: a
// parse that produced no records and whose errors are not row-scoped
// could not proceed at all.
func (o Outcome) StructuralError() (string, bool) {
	if len(o.Records) > 0 || len(o.Errors) == 0 {
		return "", false
	}
	for _, e := range o.Errors {
		if strings.HasPrefix(e, "Row ") {
			return "", false
		}
	}
	return strings.Join(o.Errors, "; "), true
}

// RowErrorCount counts the row-scoped errors in the outcome.
func (o Outcome) RowErrorCount() int {
	n := 0
	for _, e := range o.Errors {
		if strings.HasPrefix(e, "Row ") {
			n++
		}
	}
	return n
}
