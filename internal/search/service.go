package search

import (
	"context"
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to
// querying the mapping table.
type Service struct {
	meili *Meili
	pg    *PgSearch
}

// NewService creates a search service. meili may be nil if Meilisearch is not
// configured.
func NewService(meili *Meili, pg *PgSearch) *Service {
	return &Service{meili: meili, pg: pg}
}

// Search tries Meilisearch if healthy, otherwise falls back to Postgres.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		records, total, err := s.meili.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(records), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to postgres: %v", err)
	}

	records, total, err := s.pg.Search(ctx, q)
	if err != nil {
		log.Printf("search: postgres fallback error: %v", err)
		return Response{Results: []Record{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(records), Total: total, Query: q.Text}
}

// IndexIntegration indexes a record (fire-and-forget to Meilisearch).
func (s *Service) IndexIntegration(rec Record) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexRecord(rec); err != nil {
			log.Printf("search: index integration %s: %v", rec.ID, err)
		}
	}()
}

// RemoveIntegration removes a record from the index (fire-and-forget).
func (s *Service) RemoveIntegration(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteRecord(id); err != nil {
			log.Printf("search: remove integration %s: %v", id, err)
		}
	}()
}

func nonNil(records []Record) []Record {
	if records == nil {
		return []Record{}
	}
	return records
}
