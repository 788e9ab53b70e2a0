package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const idxIntegrations = "docbridge_integrations"

// Meili implements Searcher via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the integrations
// index. The caller should proceed without search if the instance stays
// unreachable; the health loop reconfigures on recovery.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxIntegrations,
		PrimaryKey: "id",
	}); err != nil {
		log.Printf("search: create index %s (may already exist): %v", idxIntegrations, err)
	}

	index := m.client.Index(idxIntegrations)
	filterable := []interface{}{"organizationSlug"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("search: update filterable attrs for %s: %v", idxIntegrations, err)
	}
	searchable := []string{"projectName", "collectionName", "organizationSlug"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("search: update searchable attrs for %s: %v", idxIntegrations, err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries the integrations index.
func (m *Meili) Search(ctx context.Context, q Query) ([]Record, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit == 0 {
		limit = 20
	}

	request := &meili.SearchRequest{
		Limit:  limit,
		Offset: int64(q.Offset),
	}
	if q.OrganizationSlug != "" {
		request.Filter = fmt.Sprintf("organizationSlug = %q", q.OrganizationSlug)
	}

	resp, err := m.client.Index(idxIntegrations).SearchWithContext(ctx, q.Text, request)
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	var records []Record
	for _, hit := range resp.Hits {
		records = append(records, hitToRecord(hit))
	}
	return records, int(resp.EstimatedTotalHits), nil
}

func hitToRecord(hit meili.Hit) Record {
	return Record{
		ID:               decodeString(hit, "id"),
		ProjectID:        decodeString(hit, "projectId"),
		ProjectName:      decodeString(hit, "projectName"),
		CollectionID:     decodeString(hit, "collectionId"),
		CollectionName:   decodeString(hit, "collectionName"),
		OrganizationSlug: decodeString(hit, "organizationSlug"),
		CreatedAt:        decodeString(hit, "createdAt"),
	}
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

// IndexRecord adds or updates an integration in the search index.
func (m *Meili) IndexRecord(rec Record) error {
	_, err := m.client.Index(idxIntegrations).AddDocuments([]Record{rec}, nil)
	return err
}

// DeleteRecord removes an integration from the search index.
func (m *Meili) DeleteRecord(id string) error {
	_, err := m.client.Index(idxIntegrations).DeleteDocument(id, nil)
	return err
}
