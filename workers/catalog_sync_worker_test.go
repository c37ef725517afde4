package workers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"quiz-match-service/models"
	"quiz-match-service/storage"
)

func newTestCatalog(t *testing.T) *storage.Catalog {
	t.Helper()
	db, err := storage.Open("sqlite", filepath.Join(t.TempDir(), "catalog.db")+"?_busy_timeout=5000")
	if err != nil {
		t.Fatal(err)
	}
	if err := storage.Migrate(db); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return storage.NewCatalog(db)
}

type feed struct {
	mu     sync.Mutex
	since  []string
	tokens []string
	cards  []RemoteFlashcard
	status int
}

func (f *feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.since = append(f.since, r.URL.Query().Get("since"))
	f.tokens = append(f.tokens, r.Header.Get("X-Service-Token"))
	if f.status != 0 {
		w.WriteHeader(f.status)
		w.Write([]byte("down"))
		return
	}
	json.NewEncoder(w).Encode(GetFlashcardChangesResponse{Flashcards: f.cards})
}

func TestCatalogSyncUpsertsAndAdvancesCursor(t *testing.T) {
	catalog := newTestCatalog(t)
	updated := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	f := &feed{cards: []RemoteFlashcard{
		{ID: "capital-of-italy", Question: "Capital of Italy?", Answer: "Rome", Options: []string{"Rome", "Milan"}, Tags: []string{"Geography"}, UpdatedAt: updated},
		{Question: "Largest desert?", Answer: "Antarctica", UpdatedAt: updated.Add(-time.Hour)},
		{ID: "broken", Question: "No answer"},
	}}
	srv := httptest.NewServer(f)
	defer srv.Close()

	w := NewCatalogSyncWorker(catalog, srv.URL, "/api/v1/flashcards", "svc-token", time.Minute)
	written, err := w.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if written != 2 {
		t.Fatalf("written = %d, want 2", written)
	}

	n, err := catalog.Count(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("count = %d, %v", n, err)
	}

	var card models.Flashcard
	if err := catalog.DB.First(&card, "id = ?", "capital-of-italy").Error; err != nil {
		t.Fatal(err)
	}
	if len(card.Tags) != 1 || card.Tags[0] != "geography" {
		t.Fatalf("tags not normalized: %v", card.Tags)
	}

	if _, err := w.SyncOnce(context.Background()); err != nil {
		t.Fatalf("second SyncOnce: %v", err)
	}
	if f.since[0] != "0001-01-01T00:00:00Z" || f.since[1] != updated.Format(time.RFC3339) {
		t.Fatalf("since params = %v", f.since)
	}
	if f.tokens[0] != "svc-token" {
		t.Fatalf("service token not sent: %v", f.tokens)
	}
}

func TestCatalogSyncReportsUpstreamFailure(t *testing.T) {
	catalog := newTestCatalog(t)
	srv := httptest.NewServer(&feed{status: http.StatusBadGateway})
	defer srv.Close()

	w := NewCatalogSyncWorker(catalog, srv.URL, "/api/v1/flashcards", "svc-token", 0)
	if _, err := w.SyncOnce(context.Background()); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
	if !w.since().IsZero() {
		t.Fatal("cursor must not move on failure")
	}
}
