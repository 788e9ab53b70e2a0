package search

import "context"

// Record is the data we index for one integration mapping. Project and
// collection names are captured at link time; the mapping store itself only
// holds identifiers.
type Record struct {
	ID               string `json:"id"`
	ProjectID        string `json:"projectId"`
	ProjectName      string `json:"projectName"`
	CollectionID     string `json:"collectionId"`
	CollectionName   string `json:"collectionName"`
	OrganizationSlug string `json:"organizationSlug"`
	CreatedAt        string `json:"createdAt"`
}

// Query describes a search request over integration records.
type Query struct {
	Text             string
	OrganizationSlug string // empty = all organizations
	Limit            int
	Offset           int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Record `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a search over integration records.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Record, int, error)
	Healthy() bool
}
