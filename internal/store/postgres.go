package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"docbridge/api/internal/util"
)

var (
	// ErrNotFound is returned when no mapping matches the lookup.
	ErrNotFound = errors.New("mapping not found")
	// ErrMappingExists is returned when a mapping already exists for the
	// (project, organization) pair. Creation is a single conditional insert,
	// so two concurrent creates cannot both succeed.
	ErrMappingExists = errors.New("mapping already exists")
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const mappingColumns = `id, plane_project_id, outline_collection_id, organization_slug, sync_enabled, created_at, updated_at`

func (s *PostgresStore) FindMapping(ctx context.Context, projectID, organizationSlug string) (Mapping, error) {
	query := `SELECT ` + mappingColumns + ` FROM integration_mappings WHERE plane_project_id=$1 AND organization_slug=$2`
	mapping, err := scanMapping(s.db.QueryRowContext(ctx, query, projectID, organizationSlug))
	if errors.Is(err, sql.ErrNoRows) {
		return Mapping{}, ErrNotFound
	}
	if err != nil {
		return Mapping{}, fmt.Errorf("find mapping: %w", err)
	}
	return mapping, nil
}

// CreateMapping inserts a new mapping, or reports ErrMappingExists if the
// unique index on (plane_project_id, organization_slug) already holds a row.
func (s *PostgresStore) CreateMapping(ctx context.Context, projectID, collectionID, organizationSlug string) (Mapping, error) {
	query := `
		INSERT INTO integration_mappings (id, plane_project_id, outline_collection_id, organization_slug)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (plane_project_id, organization_slug) DO NOTHING
		RETURNING ` + mappingColumns
	mapping, err := scanMapping(s.db.QueryRowContext(ctx, query, util.NewID("int"), projectID, collectionID, organizationSlug))
	if errors.Is(err, sql.ErrNoRows) {
		return Mapping{}, ErrMappingExists
	}
	if err != nil {
		return Mapping{}, fmt.Errorf("create mapping: %w", err)
	}
	return mapping, nil
}

func (s *PostgresStore) DeleteMapping(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM integration_mappings WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete mapping: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetSyncEnabled(ctx context.Context, id string, enabled bool) (Mapping, error) {
	query := `
		UPDATE integration_mappings
		SET sync_enabled=$2, updated_at=NOW()
		WHERE id=$1
		RETURNING ` + mappingColumns
	mapping, err := scanMapping(s.db.QueryRowContext(ctx, query, id, enabled))
	if errors.Is(err, sql.ErrNoRows) {
		return Mapping{}, ErrNotFound
	}
	if err != nil {
		return Mapping{}, fmt.Errorf("set sync enabled: %w", err)
	}
	return mapping, nil
}

// ListMappings returns mappings newest-first. An empty organizationSlug
// returns every mapping.
func (s *PostgresStore) ListMappings(ctx context.Context, organizationSlug string) ([]Mapping, error) {
	query := `SELECT ` + mappingColumns + ` FROM integration_mappings`
	args := []any{}
	if organizationSlug != "" {
		query += ` WHERE organization_slug=$1`
		args = append(args, organizationSlug)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	defer rows.Close()

	var mappings []Mapping
	for rows.Next() {
		mapping, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		mappings = append(mappings, mapping)
	}
	return mappings, rows.Err()
}

func (s *PostgresStore) RecentMappings(ctx context.Context, limit int) ([]Mapping, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+mappingColumns+` FROM integration_mappings ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent mappings: %w", err)
	}
	defer rows.Close()

	var mappings []Mapping
	for rows.Next() {
		mapping, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		mappings = append(mappings, mapping)
	}
	return mappings, rows.Err()
}

func (s *PostgresStore) CountMappings(ctx context.Context) (int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM integration_mappings`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count mappings: %w", err)
	}
	return total, nil
}

func (s *PostgresStore) CountByOrganization(ctx context.Context) ([]OrgCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT organization_slug, COUNT(*)
		FROM integration_mappings
		GROUP BY organization_slug
		ORDER BY COUNT(*) DESC, organization_slug ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("count by organization: %w", err)
	}
	defer rows.Close()

	var counts []OrgCount
	for rows.Next() {
		var row OrgCount
		if err := rows.Scan(&row.OrganizationSlug, &row.Count); err != nil {
			return nil, fmt.Errorf("scan org count: %w", err)
		}
		counts = append(counts, row)
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMapping(row rowScanner) (Mapping, error) {
	var mapping Mapping
	err := row.Scan(
		&mapping.ID,
		&mapping.ProjectID,
		&mapping.CollectionID,
		&mapping.OrganizationSlug,
		&mapping.SyncEnabled,
		&mapping.CreatedAt,
		&mapping.UpdatedAt,
	)
	return mapping, err
}
