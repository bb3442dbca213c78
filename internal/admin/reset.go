// Package admin provides administrative operations for database management.
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ResetTimeout is the maximum duration for database reset operations.
const ResetTimeout = 30 * time.Second

// Reset truncates imported data and the upload history. Format profiles
// are kept; they are operator configuration, not imported data. This is
// a destructive operation intended for development and test databases.
type Reset struct {
	Pool *pgxpool.Pool
}

// All truncates every record table and the upload log.
func (r *Reset) All(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	for _, table := range []string{"sales_records", "purchase_records", "csv_uploads"} {
		if _, err := r.Pool.Exec(ctx, "TRUNCATE TABLE "+table); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}
