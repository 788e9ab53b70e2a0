package search

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// The fallback query must run under the caller's context so a cancelled
// request does not keep a database query alive.
func TestPgSearchHonorsCallerContext(t *testing.T) {
	db, err := sql.Open("pgx", "postgres://127.0.0.1:1/docbridge")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, _, err = NewPgSearch(db).Search(ctx, Query{Text: "apollo"})
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("search did not return promptly after cancellation: %v", elapsed)
	}
}

func TestPgSearchEmptyQueryShortCircuits(t *testing.T) {
	db, err := sql.Open("pgx", "postgres://127.0.0.1:1/docbridge")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	records, total, err := NewPgSearch(db).Search(context.Background(), Query{Text: "   "})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(records) != 0 || total != 0 {
		t.Fatalf("expected empty result, got %d records, total %d", len(records), total)
	}
}
