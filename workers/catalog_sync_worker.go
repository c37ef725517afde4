// workers/catalog_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"quiz-match-service/models"
	"quiz-match-service/storage"
)

// RemoteFlashcard matches one entry of the content service's flashcard feed.
type RemoteFlashcard struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Options   []string  `json:"options,omitempty"`
	Answer    string    `json:"answer"`
	Tags      []string  `json:"tags,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type GetFlashcardChangesResponse struct {
	Flashcards []RemoteFlashcard `json:"flashcards"`
}

// CatalogSyncWorker pulls flashcard changes from the content service into the
// local catalog. Matches only ever read the local copy.
type CatalogSyncWorker struct {
	catalog      *storage.Catalog
	interval     time.Duration
	baseURL      string
	endpointPath string
	serviceToken string
	httpClient   *http.Client

	mu       sync.Mutex
	lastSeen time.Time
}

func NewCatalogSyncWorker(catalog *storage.Catalog, baseURL, endpointPath, serviceToken string, interval time.Duration) *CatalogSyncWorker {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &CatalogSyncWorker{
		catalog:      catalog,
		interval:     interval,
		baseURL:      baseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (w *CatalogSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Catalog Sync Worker (content service → flashcards)…")
	go w.run(ctx)
}

func (w *CatalogSyncWorker) run(ctx context.Context) {
	if _, err := w.SyncOnce(ctx); err != nil {
		log.Printf("⚠️ Initial catalog sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.SyncOnce(ctx); err != nil {
				log.Printf("❌ Catalog sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Catalog Sync Worker stopped")
			return
		}
	}
}

func (w *CatalogSyncWorker) since() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen
}

func (w *CatalogSyncWorker) advance(t time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t.After(w.lastSeen) {
		w.lastSeen = t
	}
}

// SyncOnce fetches everything changed since the newest card seen so far and
// upserts it. It returns the number of cards written.
func (w *CatalogSyncWorker) SyncOnce(ctx context.Context) (int, error) {
	since := w.since()
	sinceStr := since.UTC().Format(time.RFC3339)

	base, err := url.Parse(w.baseURL)
	if err != nil {
		return 0, fmt.Errorf("invalid catalog sync URL '%s': %w", w.baseURL, err)
	}
	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", sinceStr)
	endpointURL.RawQuery = q.Encode()
	finalURL := endpointURL.String()

	log.Printf("[CATALOG_SYNC] ➡️  GET %s", finalURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HTTP request to content service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Printf("[CATALOG_SYNC] ❌ Content service returned %d for %s: %s", resp.StatusCode, finalURL, body)
		return 0, fmt.Errorf("content service non-200 response: %d: %s", resp.StatusCode, body)
	}

	var response GetFlashcardChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return 0, fmt.Errorf("failed to decode content service response: %w", err)
	}
	if len(response.Flashcards) == 0 {
		log.Printf("[CATALOG_SYNC] ✅ No flashcard changes since %s", sinceStr)
		return 0, nil
	}

	cards := make([]models.Flashcard, 0, len(response.Flashcards))
	var latest time.Time
	for _, rc := range response.Flashcards {
		cards = append(cards, models.Flashcard{
			ID:       rc.ID,
			Question: rc.Question,
			Options:  rc.Options,
			Answer:   rc.Answer,
			Tags:     rc.Tags,
		})
		if rc.UpdatedAt.After(latest) {
			latest = rc.UpdatedAt
		}
	}

	written, err := w.catalog.Upsert(ctx, cards)
	if err != nil {
		return written, err
	}
	w.advance(latest)

	log.Printf("[CATALOG_SYNC] ✅ Synced %d flashcard(s) (%d written), latest update %s",
		len(response.Flashcards), written, latest.Format(time.RFC3339))
	return written, nil
}
