// Package schema describes the internal record shape that CSV imports
// target. It exposes which fields exist for a record type, which of them
// are required, and what primitive kind each field holds. Profile
// validation and UI hint rendering both consume this contract, so the
// import engine never reaches into the persistence layer directly.
package schema

// RecordType identifies one of the two record tables. Both share an
// identical field shape but are stored separately.
type RecordType string

const (
	RecordTypeSales    RecordType = "sales"
	RecordTypePurchase RecordType = "purchase"
)

// Valid reports whether rt is a known record type.
func (rt RecordType) Valid() bool {
	return rt == RecordTypeSales || rt == RecordTypePurchase
}

// FieldKind is the expected primitive kind of a record field.
type FieldKind int

const (
	KindText FieldKind = iota
	KindDate
	KindInteger
	KindDecimal
)

// String returns a human-readable name for the field kind.
func (k FieldKind) String() string {
	switch k {
	case KindDate:
		return "date"
	case KindInteger:
		return "integer"
	case KindDecimal:
		return "decimal"
	default:
		return "text"
	}
}

// Field describes one mappable record field.
type Field struct {
	Name     string    `json:"name"`
	Required bool      `json:"required"`
	Kind     FieldKind `json:"-"`
}

// Descriptor reports the fields of a record type. Implementations must
// recompute required status on every call rather than caching it, since
// the backing schema can evolve independently of the import engine.
// Describe panics on an unknown record type; that is a caller contract
// violation, not a runtime condition.
type Descriptor interface {
	Describe(rt RecordType) []Field
}

// Names returns the field names in order.
func Names(fields []Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

// RequiredNames returns the names of required fields in order.
func RequiredNames(fields []Field) []string {
	var out []string
	for _, f := range fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}
