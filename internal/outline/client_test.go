package outline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"docbridge/api/internal/upstream"
)

func TestCreateCollectionForcesPrivate(t *testing.T) {
	var got CollectionInput
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/collections" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(CollectionRef{ID: "col_1", Name: got.Name})
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	collection, err := client.CreateCollection(context.Background(), "tok", CollectionInput{
		Name:       "Portal Docs",
		Permission: "read_write",
		Private:    false,
	})
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if !got.Private {
		t.Error("collections must always be created private")
	}
	if collection.ID != "col_1" {
		t.Errorf("expected collection id col_1, got %q", collection.ID)
	}
}

func TestCreateDocumentAlwaysPublishes(t *testing.T) {
	var got DocumentInput
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(DocumentRef{ID: "doc_1", Title: got.Title})
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	_, err := client.CreateDocument(context.Background(), "tok", DocumentInput{
		Title:        "Welcome",
		Text:         "# Welcome",
		CollectionID: "col_1",
	})
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if !got.Publish {
		t.Error("documents must be published immediately")
	}
}

func TestDeleteCollectionPropagatesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("unexpected method %s", r.Method)
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	err := client.DeleteCollection(context.Background(), "tok", "col_1")
	status, ok := upstream.StatusOf(err)
	if !ok || status != http.StatusBadGateway {
		t.Errorf("expected upstream 502, got %v", err)
	}
}

func TestUpsertMembership(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/collections.memberships" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	if err := client.UpsertMembership(context.Background(), "tok", "col_1", "user_1", "read_write"); err != nil {
		t.Fatalf("UpsertMembership: %v", err)
	}
	if got["collectionId"] != "col_1" || got["userId"] != "user_1" || got["permission"] != "read_write" {
		t.Errorf("unexpected membership payload %v", got)
	}
}
