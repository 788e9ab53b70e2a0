package search

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"
)

// PgSearch implements Searcher against the mapping table directly, as the
// fallback when Meilisearch is down. It only sees identifiers and slugs, not
// the display names captured at index time.
type PgSearch struct {
	db *sql.DB
}

func NewPgSearch(db *sql.DB) *PgSearch {
	return &PgSearch{db: db}
}

// Healthy always returns true; if Postgres is down, the whole app is down.
func (p *PgSearch) Healthy() bool {
	return true
}

func (p *PgSearch) Search(ctx context.Context, q Query) ([]Record, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, plane_project_id, outline_collection_id, organization_slug, created_at,
			COUNT(*) OVER() AS total
		FROM integration_mappings
		WHERE (plane_project_id ILIKE $1 OR outline_collection_id ILIKE $1 OR organization_slug ILIKE $1)
	`
	args := []any{"%" + q.Text + "%"}
	if q.OrganizationSlug != "" {
		query += ` AND organization_slug = $2`
		args = append(args, q.OrganizationSlug)
	}
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []Record
	total := 0
	for rows.Next() {
		var rec Record
		var createdAt time.Time
		if err := rows.Scan(&rec.ID, &rec.ProjectID, &rec.CollectionID, &rec.OrganizationSlug, &createdAt, &total); err != nil {
			return nil, 0, err
		}
		rec.CreatedAt = createdAt.Format(time.RFC3339)
		records = append(records, rec)
	}
	return records, total, rows.Err()
}
