// Package plane is the adapter for the Plane issue tracker's workspace API.
package plane

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"docbridge/api/internal/upstream"
)

// ProjectRef is the live project record, never cached beyond the request.
type ProjectRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Member is one (user, role) tuple from a project's member list. The role
// vocabulary is owned by Plane; unrecognized values are the caller's problem.
type Member struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type Client struct {
	http *upstream.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{http: upstream.NewClient("plane", baseURL, timeout)}
}

func (c *Client) GetProject(ctx context.Context, token, organizationSlug, projectID string) (ProjectRef, error) {
	var project ProjectRef
	path := fmt.Sprintf("/api/workspaces/%s/projects/%s",
		url.PathEscape(organizationSlug), url.PathEscape(projectID))
	if err := c.http.DoJSON(ctx, http.MethodGet, path, token, nil, &project); err != nil {
		return ProjectRef{}, err
	}
	return project, nil
}

// ListProjectMembers returns the full member list in one call. Plane does not
// paginate this endpoint.
func (c *Client) ListProjectMembers(ctx context.Context, token, organizationSlug, projectID string) ([]Member, error) {
	var members []Member
	path := fmt.Sprintf("/api/workspaces/%s/projects/%s/members",
		url.PathEscape(organizationSlug), url.PathEscape(projectID))
	if err := c.http.DoJSON(ctx, http.MethodGet, path, token, nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}
