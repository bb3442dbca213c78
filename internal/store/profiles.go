// Package store persists format profiles, imported records, and import
// history in PostgreSQL. It is the only package that talks to the
// database; the parsing engine stays free of storage concerns.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradebooks/importer/internal/profile"
	"github.com/tradebooks/importer/internal/schema"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ProfileStore persists format profiles.
type ProfileStore struct {
	pool *pgxpool.Pool
}

// NewProfileStore creates a ProfileStore backed by the given pool.
func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

const profileColumns = "id, name, record_type, delimiter, date_format, field_mappings, is_active, created_at, updated_at"

// Create inserts a new profile and fills in its generated identity and
// timestamps. The caller is expected to have validated the profile.
func (s *ProfileStore) Create(ctx context.Context, p *profile.FormatProfile) error {
	mappings, err := json.Marshal(p.FieldMappings)
	if err != nil {
		return fmt.Errorf("encode field mappings: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO format_profiles (name, record_type, delimiter, date_format, field_mappings, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		p.Name, string(p.RecordType), p.Delimiter, p.DateFormat, mappings, p.IsActive,
	)
	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// Get fetches one profile by id.
func (s *ProfileStore) Get(ctx context.Context, id uuid.UUID) (*profile.FormatProfile, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+profileColumns+" FROM format_profiles WHERE id = $1", id)
	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// List returns profiles, newest first. When recordType is non-empty only
// profiles for that type are returned; activeOnly excludes deactivated
// profiles, which stay readable for historical imports but must not be
// offered for new ones.
func (s *ProfileStore) List(ctx context.Context, recordType schema.RecordType, activeOnly bool) ([]*profile.FormatProfile, error) {
	query := "SELECT " + profileColumns + " FROM format_profiles WHERE 1=1"
	var args []any
	if recordType != "" {
		args = append(args, string(recordType))
		query += fmt.Sprintf(" AND record_type = $%d", len(args))
	}
	if activeOnly {
		query += " AND is_active"
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*profile.FormatProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// Update rewrites a profile's mutable attributes and bumps updated_at.
func (s *ProfileStore) Update(ctx context.Context, p *profile.FormatProfile) error {
	mappings, err := json.Marshal(p.FieldMappings)
	if err != nil {
		return fmt.Errorf("encode field mappings: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE format_profiles
		SET name = $2, record_type = $3, delimiter = $4, date_format = $5,
		    field_mappings = $6, is_active = $7, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Name, string(p.RecordType), p.Delimiter, p.DateFormat, mappings, p.IsActive,
	)
	if err := row.Scan(&p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// Delete removes a profile. Upload history rows keep their profile_id
// column nulled by the schema, so history survives deletion.
func (s *ProfileStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM format_profiles WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetActive flips a profile's is_active flag.
func (s *ProfileStore) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE format_profiles SET is_active = $2, updated_at = now() WHERE id = $1", id, active)
	if err != nil {
		return fmt.Errorf("set profile active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Duplicate copies an existing profile under an adjusted name and
// returns the stored copy.
func (s *ProfileStore) Duplicate(ctx context.Context, id uuid.UUID) (*profile.FormatProfile, error) {
	original, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	dup := original.Duplicate()
	if err := s.Create(ctx, dup); err != nil {
		return nil, err
	}
	return dup, nil
}

func scanProfile(row pgx.Row) (*profile.FormatProfile, error) {
	var (
		p          profile.FormatProfile
		recordType string
		mappings   []byte
	)
	err := row.Scan(&p.ID, &p.Name, &recordType, &p.Delimiter, &p.DateFormat,
		&mappings, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.RecordType = schema.RecordType(recordType)
	if err := json.Unmarshal(mappings, &p.FieldMappings); err != nil {
		return nil, fmt.Errorf("decode field mappings: %w", err)
	}
	return &p, nil
}
