package schema

import "fmt"

// columnDef mirrors one column of the record tables. A field is required
// when it has no default value and blank values are not allowed. Synthetic
// columns (identity, bookkeeping timestamps) are never mappable.
type columnDef struct {
	name       string
	kind       FieldKind
	hasDefault bool
	blank      bool
	synthetic  bool
}

// recordColumns is the canonical column layout shared by the sales and
// purchase record tables. Keep this in sync with the migrations.
var recordColumns = []columnDef{
	{name: "id", synthetic: true},
	{name: "date", kind: KindDate},
	{name: "item_name", kind: KindText},
	{name: "quantity", kind: KindInteger},
	{name: "unit_price", kind: KindDecimal},
	{name: "total_price", kind: KindDecimal},
	{name: "shipping_cost", kind: KindDecimal, hasDefault: true},
	{name: "post_code", kind: KindText},
	{name: "currency", kind: KindText, hasDefault: true, blank: true},
	{name: "created_at", synthetic: true},
}

type recordDescriptor struct{}

// Records is the built-in Descriptor backed by the record tables.
var Records Descriptor = recordDescriptor{}

// Describe returns the mappable fields for rt. Required status is derived
// fresh on each call from the column definitions, never cached.
func (recordDescriptor) Describe(rt RecordType) []Field {
	if !rt.Valid() {
		panic(fmt.Sprintf("schema: unknown record type %q", rt))
	}

	// Sales and purchase records share one layout; they differ only in
	// which table stores them.
	fields := make([]Field, 0, len(recordColumns))
	for _, col := range recordColumns {
		if col.synthetic {
			continue
		}
		fields = append(fields, Field{
			Name:     col.name,
			Required: !col.hasDefault && !col.blank,
			Kind:     col.kind,
		})
	}
	return fields
}

// TableFor returns the storage table name for a record type.
func TableFor(rt RecordType) string {
	switch rt {
	case RecordTypeSales:
		return "sales_records"
	case RecordTypePurchase:
		return "purchase_records"
	default:
		panic(fmt.Sprintf("schema: unknown record type %q", rt))
	}
}
