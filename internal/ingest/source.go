package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DocumentSource is the opaque collaborator that produces (bookId,
// rawBytes) pairs for ingestion. The upstream document archive's
// scraping/validation behavior is not modeled here; only the minimal
// shape the work queue's ingest function needs is.
type DocumentSource interface {
	Fetch(ctx context.Context, bookID int) ([]byte, error)
}

// GutenbergSource fetches a book's raw plain-text body from the public
// Gutenberg mirrors, trying each known URL pattern in turn.
type GutenbergSource struct {
	client *http.Client
}

// NewGutenbergSource builds a GutenbergSource with a bounded per-request
// timeout.
func NewGutenbergSource() *GutenbergSource {
	return &GutenbergSource{client: &http.Client{Timeout: 15 * time.Second}}
}

// Fetch tries each candidate URL for bookID in turn and returns the body
// of the first one that responds 200 OK.
func (g *GutenbergSource) Fetch(ctx context.Context, bookID int) ([]byte, error) {
	var lastErr error
	for _, url := range candidateURLs(bookID) {
		body, err := g.fetchOne(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("fetching book %d: %w", bookID, lastErr)
}

func (g *GutenbergSource) fetchOne(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "bookcluster-ingest/1.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func candidateURLs(bookID int) []string {
	return []string{
		fmt.Sprintf("https://www.gutenberg.org/cache/epub/%d/pg%d.txt", bookID, bookID),
		fmt.Sprintf("https://www.gutenberg.org/files/%d/%d-0.txt", bookID, bookID),
	}
}
