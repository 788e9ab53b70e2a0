package store

import "time"

// Mapping associates one Plane project with one Outline collection. At most
// one mapping may exist per (plane_project_id, organization_slug) pair.
type Mapping struct {
	ID               string
	ProjectID        string
	CollectionID     string
	OrganizationSlug string
	SyncEnabled      bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// OrgCount is one row of the per-organization integration tally.
type OrgCount struct {
	OrganizationSlug string
	Count            int
}
