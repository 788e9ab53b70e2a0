// Package sync orchestrates the documentation integration between Plane
// projects and Outline collections: linking, live reads, permission
// synchronization, unlinking, and aggregate statistics.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"docbridge/api/internal/outline"
	"docbridge/api/internal/plane"
	"docbridge/api/internal/search"
	"docbridge/api/internal/store"
)

var (
	// ErrAlreadyLinked is returned when a project already has documentation.
	ErrAlreadyLinked = errors.New("project already linked to a collection")
	// ErrNotLinked is returned when no mapping exists for the pair.
	ErrNotLinked = errors.New("project has no linked collection")
)

// MappingStore is the persistence contract for integration mappings.
// CreateMapping must be atomic insert-if-absent.
type MappingStore interface {
	FindMapping(ctx context.Context, projectID, organizationSlug string) (store.Mapping, error)
	CreateMapping(ctx context.Context, projectID, collectionID, organizationSlug string) (store.Mapping, error)
	DeleteMapping(ctx context.Context, id string) error
	SetSyncEnabled(ctx context.Context, id string, enabled bool) (store.Mapping, error)
	ListMappings(ctx context.Context, organizationSlug string) ([]store.Mapping, error)
	RecentMappings(ctx context.Context, limit int) ([]store.Mapping, error)
	CountMappings(ctx context.Context) (int, error)
	CountByOrganization(ctx context.Context) ([]store.OrgCount, error)
}

// ProjectAPI is the slice of the Plane adapter the service needs.
type ProjectAPI interface {
	GetProject(ctx context.Context, token, organizationSlug, projectID string) (plane.ProjectRef, error)
	ListProjectMembers(ctx context.Context, token, organizationSlug, projectID string) ([]plane.Member, error)
}

// WikiAPI is the slice of the Outline adapter the service needs.
type WikiAPI interface {
	CreateCollection(ctx context.Context, token string, input outline.CollectionInput) (outline.CollectionRef, error)
	GetCollection(ctx context.Context, token, collectionID string) (outline.CollectionRef, error)
	DeleteCollection(ctx context.Context, token, collectionID string) error
	CreateDocument(ctx context.Context, token string, input outline.DocumentInput) (outline.DocumentRef, error)
	UpsertMembership(ctx context.Context, token, collectionID, userID, permission string) error
}

// Indexer pushes integration records into the search index. Implementations
// must tolerate being called on every create/unlink; failures are their own
// to log.
type Indexer interface {
	IndexIntegration(rec search.Record)
	RemoveIntegration(id string)
}

// Archiver snapshots collection metadata before a destructive unlink.
type Archiver interface {
	ArchiveCollection(ctx context.Context, mapping store.Mapping, collection outline.CollectionRef) error
}

const defaultCollectionColor = "#4F46E5"

// Service implements the documentation sync workflow. Upstream calls that may
// legitimately drift are best-effort; the Warnings field on each result
// distinguishes fully consistent success from success with partial drift.
type Service struct {
	store       MappingStore
	plane       ProjectAPI
	outline     WikiAPI
	indexer     Indexer
	archiver    Archiver
	enrichLimit int
}

func New(mappings MappingStore, projects ProjectAPI, wiki WikiAPI) *Service {
	return &Service{
		store:       mappings,
		plane:       projects,
		outline:     wiki,
		enrichLimit: 4,
	}
}

// WithIndexer attaches a search indexer. May be nil.
func (s *Service) WithIndexer(indexer Indexer) *Service {
	s.indexer = indexer
	return s
}

// WithArchiver attaches a pre-delete archiver. May be nil.
func (s *Service) WithArchiver(archiver Archiver) *Service {
	s.archiver = archiver
	return s
}

// WithEnrichConcurrency bounds the fan-out used by ListByOrganization.
func (s *Service) WithEnrichConcurrency(limit int) *Service {
	if limit > 0 {
		s.enrichLimit = limit
	}
	return s
}

// MappingView is the JSON shape of a persisted mapping.
type MappingView struct {
	ID               string    `json:"id"`
	ProjectID        string    `json:"projectId"`
	CollectionID     string    `json:"collectionId"`
	OrganizationSlug string    `json:"organizationSlug"`
	SyncEnabled      bool      `json:"syncEnabled"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func viewOf(m store.Mapping) MappingView {
	return MappingView{
		ID:               m.ID,
		ProjectID:        m.ProjectID,
		CollectionID:     m.CollectionID,
		OrganizationSlug: m.OrganizationSlug,
		SyncEnabled:      m.SyncEnabled,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

type CreateResult struct {
	Collection  outline.CollectionRef `json:"collection"`
	Integration MappingView           `json:"integration"`
	Warnings    []string              `json:"warnings,omitempty"`
}

type ReadResult struct {
	Integration MappingView           `json:"integration"`
	Collection  outline.CollectionRef `json:"collection"`
}

type SyncResult struct {
	Synced   int      `json:"synced"`
	Failed   int      `json:"failed"`
	Skipped  bool     `json:"skipped,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

type UnlinkResult struct {
	CollectionDeleted bool     `json:"collectionDeleted"`
	Warnings          []string `json:"warnings,omitempty"`
}

// OrgIntegration is one row of an organization listing: the mapping plus
// best-effort live details from both upstreams.
type OrgIntegration struct {
	Integration MappingView            `json:"integration"`
	Project     *plane.ProjectRef      `json:"project,omitempty"`
	Collection  *outline.CollectionRef `json:"collection,omitempty"`
}

type OrgStat struct {
	OrganizationSlug string `json:"organizationSlug"`
	Count            int    `json:"count"`
}

type Statistics struct {
	TotalIntegrations            int           `json:"totalIntegrations"`
	DocumentationsByOrganization []OrgStat     `json:"documentationsByOrganization"`
	RecentIntegrations           []MappingView `json:"recentIntegrations"`
}

// Create links a project to a new private collection and seeds a welcome
// document. The welcome document is best-effort; its failure is reported as a
// warning, not an error.
func (s *Service) Create(ctx context.Context, token, projectID, organizationSlug, projectName string) (CreateResult, error) {
	if _, err := s.store.FindMapping(ctx, projectID, organizationSlug); err == nil {
		return CreateResult{}, ErrAlreadyLinked
	} else if !errors.Is(err, store.ErrNotFound) {
		return CreateResult{}, err
	}

	project, err := s.plane.GetProject(ctx, token, organizationSlug, projectID)
	if err != nil {
		return CreateResult{}, fmt.Errorf("verify project: %w", err)
	}

	color := project.Color
	if color == "" {
		color = defaultCollectionColor
	}
	collection, err := s.outline.CreateCollection(ctx, token, outline.CollectionInput{
		Name:        projectName + " Docs",
		Description: "Documentation for the " + projectName + " project",
		Color:       color,
		Permission:  PermissionReadWrite,
	})
	if err != nil {
		return CreateResult{}, fmt.Errorf("create collection: %w", err)
	}

	mapping, err := s.store.CreateMapping(ctx, projectID, collection.ID, organizationSlug)
	if errors.Is(err, store.ErrMappingExists) {
		// Lost a concurrent create. Compensate by removing the collection we
		// just made; the winner's collection stays.
		if deleteErr := s.outline.DeleteCollection(ctx, token, collection.ID); deleteErr != nil {
			log.Printf("sync: orphaned collection %s after create race: %v", collection.ID, deleteErr)
		}
		return CreateResult{}, ErrAlreadyLinked
	}
	if err != nil {
		return CreateResult{}, err
	}

	result := CreateResult{Collection: collection, Integration: viewOf(mapping)}

	if _, err := s.outline.CreateDocument(ctx, token, outline.DocumentInput{
		Title:        "Welcome to the Documentation",
		Text:         welcomeDocumentText(projectName),
		CollectionID: collection.ID,
	}); err != nil {
		log.Printf("sync: welcome document for collection %s: %v", collection.ID, err)
		result.Warnings = append(result.Warnings, "welcome document could not be created")
	}

	if s.indexer != nil {
		s.indexer.IndexIntegration(search.Record{
			ID:               mapping.ID,
			ProjectID:        mapping.ProjectID,
			ProjectName:      project.Name,
			CollectionID:     collection.ID,
			CollectionName:   collection.Name,
			OrganizationSlug: mapping.OrganizationSlug,
			CreatedAt:        mapping.CreatedAt.Format(time.RFC3339),
		})
	}

	return result, nil
}

// Get returns the mapping together with live collection details. A mapping
// whose remote collection vanished out-of-band surfaces the upstream error.
func (s *Service) Get(ctx context.Context, token, projectID, organizationSlug string) (ReadResult, error) {
	mapping, err := s.mappingFor(ctx, projectID, organizationSlug)
	if err != nil {
		return ReadResult{}, err
	}

	collection, err := s.outline.GetCollection(ctx, token, mapping.CollectionID)
	if err != nil {
		return ReadResult{}, fmt.Errorf("fetch collection: %w", err)
	}

	return ReadResult{Integration: viewOf(mapping), Collection: collection}, nil
}

// SyncPermissions pushes the project's current member roles onto the linked
// collection. Per-member failures are collected and skipped; synchronization
// is additive-only, so users no longer in the project keep their access.
func (s *Service) SyncPermissions(ctx context.Context, token, projectID, organizationSlug string) (SyncResult, error) {
	mapping, err := s.mappingFor(ctx, projectID, organizationSlug)
	if err != nil {
		return SyncResult{}, err
	}
	return s.syncMembers(ctx, token, mapping)
}

// SyncPermissionsForEvent is the webhook entry point: it honours the
// mapping's sync-enabled flag instead of failing.
func (s *Service) SyncPermissionsForEvent(ctx context.Context, token, projectID, organizationSlug string) (SyncResult, error) {
	mapping, err := s.mappingFor(ctx, projectID, organizationSlug)
	if err != nil {
		return SyncResult{}, err
	}
	if !mapping.SyncEnabled {
		return SyncResult{Skipped: true}, nil
	}
	return s.syncMembers(ctx, token, mapping)
}

func (s *Service) syncMembers(ctx context.Context, token string, mapping store.Mapping) (SyncResult, error) {
	members, err := s.plane.ListProjectMembers(ctx, token, mapping.OrganizationSlug, mapping.ProjectID)
	if err != nil {
		return SyncResult{}, fmt.Errorf("list project members: %w", err)
	}

	result := SyncResult{}
	for _, member := range members {
		permission := PermissionForRole(member.Role)
		if err := s.outline.UpsertMembership(ctx, token, mapping.CollectionID, member.UserID, permission); err != nil {
			log.Printf("sync: membership for user %s on collection %s: %v", member.UserID, mapping.CollectionID, err)
			result.Failed++
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("permission for user %s could not be applied", member.UserID))
			continue
		}
		result.Synced++
	}
	return result, nil
}

// Unlink removes the local mapping and, unless keepCollection is set, the
// remote collection too. The local delete happens regardless of remote
// failures; drift is reported through Warnings.
func (s *Service) Unlink(ctx context.Context, token, projectID, organizationSlug string, keepCollection bool) (UnlinkResult, error) {
	mapping, err := s.mappingFor(ctx, projectID, organizationSlug)
	if err != nil {
		return UnlinkResult{}, err
	}

	result := UnlinkResult{}
	if !keepCollection {
		if s.archiver != nil {
			if collection, err := s.outline.GetCollection(ctx, token, mapping.CollectionID); err == nil {
				if err := s.archiver.ArchiveCollection(ctx, mapping, collection); err != nil {
					log.Printf("sync: archive collection %s: %v", mapping.CollectionID, err)
					result.Warnings = append(result.Warnings, "collection snapshot could not be archived")
				}
			}
		}
		if err := s.outline.DeleteCollection(ctx, token, mapping.CollectionID); err != nil {
			log.Printf("sync: delete collection %s: %v", mapping.CollectionID, err)
			result.Warnings = append(result.Warnings, "remote collection could not be deleted")
		} else {
			result.CollectionDeleted = true
		}
	}

	if err := s.store.DeleteMapping(ctx, mapping.ID); err != nil {
		return UnlinkResult{}, err
	}
	if s.indexer != nil {
		s.indexer.RemoveIntegration(mapping.ID)
	}
	return result, nil
}

// SetSyncEnabled toggles automatic permission sync for a mapping.
func (s *Service) SetSyncEnabled(ctx context.Context, projectID, organizationSlug string, enabled bool) (MappingView, error) {
	mapping, err := s.mappingFor(ctx, projectID, organizationSlug)
	if err != nil {
		return MappingView{}, err
	}
	updated, err := s.store.SetSyncEnabled(ctx, mapping.ID, enabled)
	if err != nil {
		return MappingView{}, err
	}
	return viewOf(updated), nil
}

// ListByOrganization returns the organization's mappings enriched with live
// project and collection details. Enrichment runs concurrently with a bounded
// fan-out; a row whose upstream lookups fail degrades to the bare mapping.
func (s *Service) ListByOrganization(ctx context.Context, token, organizationSlug string) ([]OrgIntegration, error) {
	mappings, err := s.store.ListMappings(ctx, organizationSlug)
	if err != nil {
		return nil, err
	}

	rows := make([]OrgIntegration, len(mappings))
	semaphore := make(chan struct{}, s.enrichLimit)
	var wg sync.WaitGroup

	for i, mapping := range mappings {
		rows[i] = OrgIntegration{Integration: viewOf(mapping)}

		wg.Add(1)
		go func(i int, mapping store.Mapping) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if project, err := s.plane.GetProject(ctx, token, mapping.OrganizationSlug, mapping.ProjectID); err == nil {
				rows[i].Project = &project
			} else {
				log.Printf("sync: enrich project %s: %v", mapping.ProjectID, err)
			}
			if collection, err := s.outline.GetCollection(ctx, token, mapping.CollectionID); err == nil {
				rows[i].Collection = &collection
			} else {
				log.Printf("sync: enrich collection %s: %v", mapping.CollectionID, err)
			}
		}(i, mapping)
	}
	wg.Wait()

	return rows, nil
}

// Stats aggregates the mapping store: total count, per-organization counts
// (largest first), and the five most recent integrations.
func (s *Service) Stats(ctx context.Context) (Statistics, error) {
	total, err := s.store.CountMappings(ctx)
	if err != nil {
		return Statistics{}, err
	}
	counts, err := s.store.CountByOrganization(ctx)
	if err != nil {
		return Statistics{}, err
	}
	recent, err := s.store.RecentMappings(ctx, 5)
	if err != nil {
		return Statistics{}, err
	}

	stats := Statistics{
		TotalIntegrations:            total,
		DocumentationsByOrganization: make([]OrgStat, 0, len(counts)),
		RecentIntegrations:           make([]MappingView, 0, len(recent)),
	}
	for _, row := range counts {
		stats.DocumentationsByOrganization = append(stats.DocumentationsByOrganization, OrgStat{
			OrganizationSlug: row.OrganizationSlug,
			Count:            row.Count,
		})
	}
	for _, mapping := range recent {
		stats.RecentIntegrations = append(stats.RecentIntegrations, viewOf(mapping))
	}
	return stats, nil
}

func (s *Service) mappingFor(ctx context.Context, projectID, organizationSlug string) (store.Mapping, error) {
	mapping, err := s.store.FindMapping(ctx, projectID, organizationSlug)
	if errors.Is(err, store.ErrNotFound) {
		return store.Mapping{}, ErrNotLinked
	}
	if err != nil {
		return store.Mapping{}, err
	}
	return mapping, nil
}

func welcomeDocumentText(projectName string) string {
	return fmt.Sprintf(`# Welcome to the %s documentation

This is your project's documentation area. Here you can:

- Create and organize documents
- Collaborate with your team
- Keep all project documentation in one place

## Getting started

1. Create documents for specs, requirements, or guides
2. Organize them into a logical structure
3. Share them with your team

Happy documenting!`, projectName)
}
