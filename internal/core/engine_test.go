package core

import (
	"reflect"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tradebooks/importer/internal/profile"
	"github.com/tradebooks/importer/internal/schema"
)

func testProfile() *profile.FormatProfile {
	return &profile.FormatProfile{
		Name:       "Supplier export",
		RecordType: schema.RecordTypeSales,
		Delimiter:  ",",
		DateFormat: "%Y-%m-%d",
		FieldMappings: map[string]string{
			"0": FieldDate,
			"1": FieldItemName,
			"2": FieldQuantity,
			"3": FieldUnitPrice,
			"4": FieldTotalPrice,
			"5": FieldShippingCost,
			"6": FieldPostCode,
		},
	}
}

const profileHeader = "Date,Item,Qty,Price,Total,Shipping,Postcode\n"

func TestParseProfileMode(t *testing.T) {
	content := profileHeader +
		"2024-01-15,Widget A,10,5.00,50.00,3.50,SW1A 1AA\n"

	out := NewParser(testProfile()).Parse(content)
	if len(out.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", out.Errors)
	}
	if len(out.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(out.Records))
	}

	rec := out.Records[0]
	if got := rec.Date.Format("2006-01-02"); got != "2024-01-15" {
		t.Errorf("date = %s, want 2024-01-15", got)
	}
	if rec.ItemName != "Widget A" {
		t.Errorf("item_name = %q", rec.ItemName)
	}
	if rec.Quantity != 10 {
		t.Errorf("quantity = %d, want 10", rec.Quantity)
	}
	if !rec.UnitPrice.Equal(decimal.RequireFromString("5.00")) {
		t.Errorf("unit_price = %s, want 5.00", rec.UnitPrice)
	}
	if !rec.TotalPrice.Equal(decimal.RequireFromString("50.00")) {
		t.Errorf("total_price = %s, want 50.00", rec.TotalPrice)
	}
	if !rec.ShippingCost.Equal(decimal.RequireFromString("3.50")) {
		t.Errorf("shipping_cost = %s, want 3.50", rec.ShippingCost)
	}
	if rec.PostCode != "SW1A 1AA" {
		t.Errorf("post_code = %q", rec.PostCode)
	}
	if rec.Currency != DefaultCurrency {
		t.Errorf("currency = %q, want %q", rec.Currency, DefaultCurrency)
	}
}

func TestParseIsDeterministic(t *testing.T) {
	content := profileHeader +
		"2024-01-15,Widget A,10,5.00,50.00,3.50,SW1A 1AA\n" +
		"not-a-date,Widget B,2,1.00,2.00,,E1 6AN\n"

	p := NewParser(testProfile())
	first := p.Parse(content)
	second := p.Parse(content)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated parse differs:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestEveryDataRowLandsInExactlyOneBucket(t *testing.T) {
	content := profileHeader +
		"2024-01-15,Widget A,10,5.00,50.00,3.50,SW1A 1AA\n" +
		"not-a-date,Widget B,2,1.00,2.00,,E1 6AN\n" +
		"2024-01-17,Widget C,-1,1.00,2.00,,E1 6AN\n" +
		"2024-01-18,Widget D,1,1.00,1.00,,E1 6AN\n"

	out := NewParser(testProfile()).Parse(content)
	const dataRows = 4
	if got := len(out.Records) + out.RowErrorCount(); got != dataRows {
		t.Errorf("records(%d) + row errors(%d) = %d, want %d",
			len(out.Records), out.RowErrorCount(), got, dataRows)
	}
}

func TestMissingRequiredMappingAborts(t *testing.T) {
	p := testProfile()
	delete(p.FieldMappings, "0") // drop date

	out := NewParser(p).Parse(profileHeader + "2024-01-15,Widget A,10,5.00,50.00,3.50,SW1A 1AA\n")
	if len(out.Records) != 0 {
		t.Fatalf("got %d records, want 0", len(out.Records))
	}
	if len(out.Errors) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(out.Errors), out.Errors)
	}
	if !strings.Contains(out.Errors[0], "Missing required field mappings") {
		t.Errorf("error = %q", out.Errors[0])
	}
	if !strings.Contains(out.Errors[0], FieldDate) {
		t.Errorf("error does not name the missing field: %q", out.Errors[0])
	}
	if _, ok := out.StructuralError(); !ok {
		t.Error("expected a structural error")
	}
}

func TestMappedColumnBeyondHeaderWidthAborts(t *testing.T) {
	p := testProfile()
	p.FieldMappings["9"] = FieldCurrency

	out := NewParser(p).Parse(profileHeader + "2024-01-15,Widget A,10,5.00,50.00,3.50,SW1A 1AA\n")
	if len(out.Records) != 0 {
		t.Fatalf("got %d records, want 0", len(out.Records))
	}
	if len(out.Errors) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(out.Errors), out.Errors)
	}
	want := "Column 9 out of range (file has 7 columns)"
	if out.Errors[0] != want {
		t.Errorf("error = %q, want %q", out.Errors[0], want)
	}
}

func TestEmptyFileAborts(t *testing.T) {
	for _, mode := range []struct {
		name   string
		parser *Parser
	}{
		{"profile mode", NewParser(testProfile())},
		{"header mode", NewParser(nil)},
	} {
		t.Run(mode.name, func(t *testing.T) {
			out := mode.parser.Parse("")
			if len(out.Records) != 0 || len(out.Errors) != 1 {
				t.Fatalf("got %d records, %d errors", len(out.Records), len(out.Errors))
			}
			if !strings.Contains(out.Errors[0], "file is empty") {
				t.Errorf("error = %q", out.Errors[0])
			}
		})
	}
}

func TestHeadersWithoutDataRows(t *testing.T) {
	// Profile mode treats a data-less file as a configuration mistake;
	// header mode treats it as a valid empty import. The asymmetry is
	// intentional and load-bearing for callers that preview profiles.
	out := NewParser(testProfile()).Parse(profileHeader)
	if len(out.Errors) != 1 || !strings.Contains(out.Errors[0], "no data rows") {
		t.Errorf("profile mode: errors = %v", out.Errors)
	}

	out = NewParser(nil).Parse("date,item_name,quantity,unit_price,total_price,shipping_cost,post_code\n")
	if len(out.Errors) != 0 || len(out.Records) != 0 {
		t.Errorf("header mode: records = %d, errors = %v", len(out.Records), out.Errors)
	}
}

func TestParseHeaderMode(t *testing.T) {
	content := "date,item_name,quantity,unit_price,total_price,shipping_cost,post_code\n" +
		"2024-01-15,Widget A,10,5.00,50.00,3.50,SW1A 1AA\n"

	out := NewParser(nil).Parse(content)
	if len(out.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", out.Errors)
	}
	if len(out.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(out.Records))
	}
	rec := out.Records[0]
	if got := rec.Date.Format("2006-01-02"); got != "2024-01-15" {
		t.Errorf("date = %s", got)
	}
	if rec.Quantity != 10 {
		t.Errorf("quantity = %d", rec.Quantity)
	}
	if rec.Currency != "GBP" {
		t.Errorf("currency = %q, want GBP", rec.Currency)
	}
}

func TestHeaderModeNormalizesHeaderNames(t *testing.T) {
	content := " Date ,ITEM_NAME,quantity,unit_price,total_price,shipping_cost,post_code,Currency\n" +
		"15/01/2024,Widget A,1,2.00,2.00,,SW1A 1AA,USD\n"

	out := NewParser(nil).Parse(content)
	if len(out.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", out.Errors)
	}
	if out.Records[0].Currency != "USD" {
		t.Errorf("currency = %q, want USD", out.Records[0].Currency)
	}
}

func TestHeaderModeMissingColumnsAbort(t *testing.T) {
	content := "date,item_name,quantity\n2024-01-15,Widget A,10\n"

	out := NewParser(nil).Parse(content)
	if len(out.Records) != 0 {
		t.Fatalf("got %d records, want 0", len(out.Records))
	}
	if len(out.Errors) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(out.Errors), out.Errors)
	}
	if !strings.Contains(out.Errors[0], "Missing required columns") {
		t.Errorf("error = %q", out.Errors[0])
	}
	for _, field := range []string{FieldUnitPrice, FieldTotalPrice, FieldShippingCost, FieldPostCode} {
		if !strings.Contains(out.Errors[0], field) {
			t.Errorf("error does not name %s: %q", field, out.Errors[0])
		}
	}
}

func TestRowNumbersCountHeaderAsRowOne(t *testing.T) {
	content := profileHeader +
		"2024-01-15,Widget A,10,5.00,50.00,3.50,SW1A 1AA\n" +
		"not-a-date,Widget B,2,1.00,2.00,,E1 6AN\n" +
		"2024-01-17,Widget C,3,1.00,3.00,,E1 6AN\n"

	out := NewParser(testProfile()).Parse(content)
	if len(out.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(out.Records))
	}
	if len(out.Errors) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(out.Errors), out.Errors)
	}
	if !strings.HasPrefix(out.Errors[0], "Row 3: ") {
		t.Errorf("error = %q, want Row 3 prefix", out.Errors[0])
	}
	if !strings.Contains(out.Errors[0], "invalid date format") {
		t.Errorf("error = %q", out.Errors[0])
	}
}

func TestTabDelimiterProfile(t *testing.T) {
	p := testProfile()
	p.Delimiter = profile.TabEscape

	content := "Date\tItem\tQty\tPrice\tTotal\tShipping\tPostcode\n" +
		"2024-01-15\tWidget A\t10\t5.00\t50.00\t3.50\tSW1A 1AA\n"

	out := NewParser(p).Parse(content)
	if len(out.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", out.Errors)
	}
	if len(out.Records) != 1 || out.Records[0].ItemName != "Widget A" {
		t.Fatalf("records = %+v", out.Records)
	}
}

// A required field left blank in a mapped column is a row error; the
// same field absent from the mapping entirely is a structural error.
// The two cases must stay distinct.
func TestBlankMappedFieldVersusUnmappedField(t *testing.T) {
	blank := profileHeader + ",Widget A,10,5.00,50.00,3.50,SW1A 1AA\n"
	out := NewParser(testProfile()).Parse(blank)
	if len(out.Errors) != 1 || !strings.HasPrefix(out.Errors[0], "Row 2: ") {
		t.Fatalf("blank mapped date: errors = %v", out.Errors)
	}
	if !strings.Contains(out.Errors[0], "invalid date format") {
		t.Errorf("blank mapped date: error = %q", out.Errors[0])
	}

	p := testProfile()
	delete(p.FieldMappings, "0")
	out = NewParser(p).Parse(blank)
	if _, ok := out.StructuralError(); !ok {
		t.Fatalf("unmapped date: expected structural error, got %v", out.Errors)
	}
}

func TestRowLevelCoercionErrors(t *testing.T) {
	tests := []struct {
		name string
		row  string
		want []string
	}{
		{
			"negative quantity",
			"2024-01-15,Widget A,-3,5.00,50.00,,SW1A 1AA",
			[]string{"quantity must be non-negative"},
		},
		{
			"non-numeric quantity",
			"2024-01-15,Widget A,lots,5.00,50.00,,SW1A 1AA",
			[]string{"invalid quantity"},
		},
		{
			"non-numeric prices",
			"2024-01-15,Widget A,1,free,cheap,expensive,SW1A 1AA",
			[]string{"invalid unit_price", "invalid total_price", "invalid shipping_cost"},
		},
		{
			"blank item name and postcode",
			"2024-01-15,,1,5.00,5.00,,",
			[]string{"item_name is required", "post_code is required"},
		},
		{
			"multiple errors joined in column order",
			"bad,Widget A,-3,5.00,50.00,,SW1A 1AA",
			[]string{"invalid date format; quantity must be non-negative"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := NewParser(testProfile()).Parse(profileHeader + tt.row + "\n")
			if len(out.Records) != 0 {
				t.Fatalf("got %d records, want 0", len(out.Records))
			}
			if len(out.Errors) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(out.Errors), out.Errors)
			}
			for _, want := range tt.want {
				if !strings.Contains(out.Errors[0], want) {
					t.Errorf("error %q does not contain %q", out.Errors[0], want)
				}
			}
		})
	}
}

func TestShortRowReportsColumnOutOfRange(t *testing.T) {
	content := profileHeader +
		"2024-01-15,Widget A,10,5.00,50.00\n"

	out := NewParser(testProfile()).Parse(content)
	if len(out.Records) != 0 {
		t.Fatalf("got %d records, want 0", len(out.Records))
	}
	if len(out.Errors) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(out.Errors), out.Errors)
	}
	if !strings.Contains(out.Errors[0], "Column 5 out of range") ||
		!strings.Contains(out.Errors[0], "Column 6 out of range") {
		t.Errorf("error = %q", out.Errors[0])
	}
	if strings.Contains(out.Errors[0], "file has") {
		t.Errorf("row-level message must not carry the structural suffix: %q", out.Errors[0])
	}
}

func TestBlankShippingCostDefaultsToZero(t *testing.T) {
	content := profileHeader +
		"2024-01-15,Widget A,10,5.00,50.00,,SW1A 1AA\n"

	out := NewParser(testProfile()).Parse(content)
	if len(out.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", out.Errors)
	}
	if !out.Records[0].ShippingCost.IsZero() {
		t.Errorf("shipping_cost = %s, want 0", out.Records[0].ShippingCost)
	}
}

func TestMappedCurrencyOverridesDefault(t *testing.T) {
	p := testProfile()
	p.FieldMappings["7"] = FieldCurrency

	header := "Date,Item,Qty,Price,Total,Shipping,Postcode,Curr\n"
	out := NewParser(p).Parse(header +
		"2024-01-15,Widget A,10,5.00,50.00,3.50,SW1A 1AA,EUR\n" +
		"2024-01-16,Widget B,1,2.00,2.00,,E1 6AN,\n")
	if len(out.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", out.Errors)
	}
	if out.Records[0].Currency != "EUR" {
		t.Errorf("currency = %q, want EUR", out.Records[0].Currency)
	}
	if out.Records[1].Currency != "GBP" {
		t.Errorf("blank currency = %q, want GBP", out.Records[1].Currency)
	}
}

func TestProfileDateFormatIsStrict(t *testing.T) {
	p := testProfile()
	p.DateFormat = "%d/%m/%Y"

	content := profileHeader +
		"15/01/2024,Widget A,10,5.00,50.00,3.50,SW1A 1AA\n" +
		"2024-01-16,Widget B,1,2.00,2.00,,E1 6AN\n"

	out := NewParser(p).Parse(content)
	if len(out.Records) != 1 {
		t.Fatalf("got %d records, want 1: %v", len(out.Records), out.Errors)
	}
	if len(out.Errors) != 1 || !strings.Contains(out.Errors[0], "invalid date format") {
		t.Errorf("errors = %v", out.Errors)
	}
}

func TestInvalidMappingKeysAbort(t *testing.T) {
	p := testProfile()
	p.FieldMappings["abc"] = FieldCurrency

	out := NewParser(p).Parse(profileHeader + "2024-01-15,Widget A,10,5.00,50.00,3.50,SW1A 1AA\n")
	if len(out.Records) != 0 || len(out.Errors) != 1 {
		t.Fatalf("records = %d, errors = %v", len(out.Records), out.Errors)
	}
	if !strings.Contains(out.Errors[0], "not a valid column index") {
		t.Errorf("error = %q", out.Errors[0])
	}
}

func TestRequiredFieldsReadFreshFromSchema(t *testing.T) {
	out := NewParserWithDescriptor(testProfile(), currencyRequiredDescriptor{}).
		Parse(profileHeader + "2024-01-15,Widget A,10,5.00,50.00,3.50,SW1A 1AA\n")
	if len(out.Errors) != 1 || !strings.Contains(out.Errors[0], "Missing required field mappings: currency") {
		t.Errorf("errors = %v", out.Errors)
	}
}

// currencyRequiredDescriptor simulates a schema change that makes
// currency mandatory after the profile was created.
type currencyRequiredDescriptor struct{}

func (currencyRequiredDescriptor) Describe(rt schema.RecordType) []schema.Field {
	fields := schema.Records.Describe(rt)
	for i := range fields {
		if fields[i].Name == FieldCurrency {
			fields[i].Required = true
		}
	}
	return fields
}

func TestBOMStripped(t *testing.T) {
	content := "\uFEFF" + profileHeader +
		"2024-01-15,Widget A,10,5.00,50.00,3.50,SW1A 1AA\n"

	out := NewParser(testProfile()).Parse(content)
	if len(out.Errors) != 0 || len(out.Records) != 1 {
		t.Errorf("records = %d, errors = %v", len(out.Records), out.Errors)
	}
}
