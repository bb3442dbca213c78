package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradebooks/importer/internal/schema"
)

// Upload is one entry in the import history: which file was imported,
// with which profile, and how it went.
type Upload struct {
	ID           uuid.UUID         `json:"id"`
	FileName     string            `json:"file_name"`
	RecordType   schema.RecordType `json:"record_type"`
	ProfileID    *uuid.UUID        `json:"profile_id,omitempty"`
	RowsImported int               `json:"rows_imported"`
	ErrorCount   int               `json:"error_count"`
	Errors       []string          `json:"errors"`
	CreatedAt    time.Time         `json:"created_at"`
}

// UploadStore persists import history.
type UploadStore struct {
	pool *pgxpool.Pool
}

// NewUploadStore creates an UploadStore backed by the given pool.
func NewUploadStore(pool *pgxpool.Pool) *UploadStore {
	return &UploadStore{pool: pool}
}

// Record stores one import's outcome and fills in the entry's identity
// and timestamp.
func (s *UploadStore) Record(ctx context.Context, u *Upload) error {
	if u.Errors == nil {
		u.Errors = []string{}
	}
	errList, err := json.Marshal(u.Errors)
	if err != nil {
		return fmt.Errorf("encode errors: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO csv_uploads (file_name, record_type, profile_id, rows_imported, error_count, errors)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		u.FileName, string(u.RecordType), u.ProfileID, u.RowsImported, u.ErrorCount, errList,
	)
	if err := row.Scan(&u.ID, &u.CreatedAt); err != nil {
		return fmt.Errorf("insert upload: %w", err)
	}
	return nil
}

const uploadColumns = "id, file_name, record_type, profile_id, rows_imported, error_count, errors, created_at"

// Get fetches one history entry by id, with its full error list.
func (s *UploadStore) Get(ctx context.Context, id uuid.UUID) (*Upload, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+uploadColumns+" FROM csv_uploads WHERE id = $1", id)
	u, err := scanUpload(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

// History returns the most recent uploads, newest first.
func (s *UploadStore) History(ctx context.Context, limit int) ([]Upload, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+uploadColumns+`
		FROM csv_uploads
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	var uploads []Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, *u)
	}
	return uploads, rows.Err()
}

func scanUpload(row pgx.Row) (*Upload, error) {
	var (
		u          Upload
		recordType string
		errList    []byte
	)
	err := row.Scan(&u.ID, &u.FileName, &recordType, &u.ProfileID,
		&u.RowsImported, &u.ErrorCount, &errList, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.RecordType = schema.RecordType(recordType)
	if err := json.Unmarshal(errList, &u.Errors); err != nil {
		return nil, fmt.Errorf("decode errors: %w", err)
	}
	return &u, nil
}
