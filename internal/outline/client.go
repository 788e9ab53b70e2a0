// Package outline is the adapter for the Outline wiki's collection and
// document API.
package outline

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"docbridge/api/internal/upstream"
)

// CollectionRef is a live collection record from Outline.
type CollectionRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
	Permission  string `json:"permission,omitempty"`
	Private     bool   `json:"private,omitempty"`
}

// DocumentRef is a live document record from Outline.
type DocumentRef struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	CollectionID string `json:"collectionId,omitempty"`
}

// CollectionInput describes a collection to create. Collections are always
// created private.
type CollectionInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
	Private     bool   `json:"private"`
	Permission  string `json:"permission"`
}

// DocumentInput describes a document to create. Documents are published
// immediately; Outline's draft state is not used.
type DocumentInput struct {
	Title        string `json:"title"`
	Text         string `json:"text"`
	CollectionID string `json:"collectionId"`
	ParentID     string `json:"parentDocumentId,omitempty"`
	Publish      bool   `json:"publish"`
}

type Client struct {
	http *upstream.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{http: upstream.NewClient("outline", baseURL, timeout)}
}

func (c *Client) CreateCollection(ctx context.Context, token string, input CollectionInput) (CollectionRef, error) {
	input.Private = true
	var collection CollectionRef
	if err := c.http.DoJSON(ctx, http.MethodPost, "/api/collections", token, input, &collection); err != nil {
		return CollectionRef{}, err
	}
	return collection, nil
}

func (c *Client) GetCollection(ctx context.Context, token, collectionID string) (CollectionRef, error) {
	var collection CollectionRef
	if err := c.http.DoJSON(ctx, http.MethodGet, "/api/collections/"+url.PathEscape(collectionID), token, nil, &collection); err != nil {
		return CollectionRef{}, err
	}
	return collection, nil
}

func (c *Client) DeleteCollection(ctx context.Context, token, collectionID string) error {
	return c.http.DoJSON(ctx, http.MethodDelete, "/api/collections/"+url.PathEscape(collectionID), token, nil, nil)
}

func (c *Client) CreateDocument(ctx context.Context, token string, input DocumentInput) (DocumentRef, error) {
	input.Publish = true
	var document DocumentRef
	if err := c.http.DoJSON(ctx, http.MethodPost, "/api/documents", token, input, &document); err != nil {
		return DocumentRef{}, err
	}
	return document, nil
}

// UpsertMembership sets a user's permission level on a collection. Outline
// exposes no removal here, so membership sync is additive-only.
func (c *Client) UpsertMembership(ctx context.Context, token, collectionID, userID, permission string) error {
	body := map[string]string{
		"collectionId": collectionID,
		"userId":       userID,
		"permission":   permission,
	}
	return c.http.DoJSON(ctx, http.MethodPost, "/api/collections.memberships", token, body, nil)
}
