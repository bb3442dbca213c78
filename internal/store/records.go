package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tradebooks/importer/internal/core"
	"github.com/tradebooks/importer/internal/schema"
)

// RecordStore bulk-inserts parsed records into the record tables.
type RecordStore struct {
	pool *pgxpool.Pool
}

// NewRecordStore creates a RecordStore backed by the given pool.
func NewRecordStore(pool *pgxpool.Pool) *RecordStore {
	return &RecordStore{pool: pool}
}

var recordColumns = []string{
	"date", "item_name", "quantity", "unit_price",
	"total_price", "shipping_cost", "post_code", "currency",
}

// Insert writes the records into the table for the record type using
// COPY and returns the number of rows written. The insert is all or
// nothing: a failure mid-copy rolls back the whole batch, so the caller
// can safely retry with the same records.
func (s *RecordStore) Insert(ctx context.Context, rt schema.RecordType, records []core.ParsedRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		unitPrice, err := toNumeric(rec.UnitPrice)
		if err != nil {
			return 0, fmt.Errorf("encode unit_price: %w", err)
		}
		totalPrice, err := toNumeric(rec.TotalPrice)
		if err != nil {
			return 0, fmt.Errorf("encode total_price: %w", err)
		}
		shippingCost, err := toNumeric(rec.ShippingCost)
		if err != nil {
			return 0, fmt.Errorf("encode shipping_cost: %w", err)
		}
		rows = append(rows, []any{
			pgtype.Date{Time: rec.Date, Valid: true},
			rec.ItemName,
			rec.Quantity,
			unitPrice,
			totalPrice,
			shippingCost,
			rec.PostCode,
			rec.Currency,
		})
	}

	n, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{schema.TableFor(rt)},
		recordColumns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("copy records into %s: %w", schema.TableFor(rt), err)
	}
	return n, nil
}

// Count returns the number of stored records for a record type.
func (s *RecordStore) Count(ctx context.Context, rt schema.RecordType) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, "SELECT count(*) FROM "+schema.TableFor(rt)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", schema.TableFor(rt), err)
	}
	return n, nil
}

// toNumeric converts an exact decimal into its pgtype representation.
func toNumeric(d decimal.Decimal) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}
