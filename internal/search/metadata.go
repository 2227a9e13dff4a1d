package search

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bookcluster/platform/pkg/postgres"
)

// BookMetadata is the external decoration attached to a search result:
// title/author/language/year, stored outside the distributed index since
// it is set once at catalog time rather than derived from document text.
//
// It requires a `books` table:
//
//	CREATE TABLE books (
//	    book_id  INTEGER PRIMARY KEY,
//	    title    TEXT NOT NULL,
//	    author   TEXT NOT NULL,
//	    language TEXT NOT NULL,
//	    year     INTEGER
//	);
type BookMetadata struct {
	BookID   int    `json:"bookId"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Language string `json:"language"`
	Year     int    `json:"year"`
}

// MetadataFilter narrows a decorated result set by author (case-insensitive
// substring), language (exact match or ISO-639 prefix match, both
// case-insensitive, so "en" matches a stored "en-US" or "eng"), and year
// (exact match). A zero value field means "no constraint on that field".
type MetadataFilter struct {
	Author   string
	Language string
	Year     int
}

// MetadataStore decorates bookIds with catalog metadata from Postgres.
type MetadataStore struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewMetadataStore builds a MetadataStore over an already-connected
// Postgres client.
func NewMetadataStore(db *postgres.Client) *MetadataStore {
	return &MetadataStore{
		db:     db,
		logger: slog.Default().With("component", "search-metadata"),
	}
}

// Decorate attaches BookMetadata to each result in order, dropping results
// whose bookId has no catalog row rather than returning a partial struct.
func (m *MetadataStore) Decorate(ctx context.Context, results []ScoredDoc) ([]DecoratedResult, error) {
	if len(results) == 0 {
		return nil, nil
	}
	ids := make([]int, len(results))
	for i, r := range results {
		ids[i] = r.BookID
	}
	byID, err := m.fetch(ctx, ids)
	if err != nil {
		return nil, err
	}

	decorated := make([]DecoratedResult, 0, len(results))
	for _, r := range results {
		meta, ok := byID[r.BookID]
		if !ok {
			continue
		}
		decorated = append(decorated, DecoratedResult{ScoredDoc: r, Metadata: meta})
	}
	return decorated, nil
}

// Filter applies a MetadataFilter over already-decorated results.
func Filter(results []DecoratedResult, f MetadataFilter) []DecoratedResult {
	if f.Author == "" && f.Language == "" && f.Year == 0 {
		return results
	}
	filtered := make([]DecoratedResult, 0, len(results))
	for _, r := range results {
		if f.Author != "" && !strings.Contains(strings.ToLower(r.Metadata.Author), strings.ToLower(f.Author)) {
			continue
		}
		if f.Language != "" && !languageMatches(r.Metadata.Language, f.Language) {
			continue
		}
		if f.Year != 0 && r.Metadata.Year != f.Year {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

// languageMatches reports whether stored (e.g. "en-US", "eng") satisfies a
// query language code (e.g. "en") by exact match or ISO-639 prefix match,
// both case-insensitive.
func languageMatches(stored, query string) bool {
	stored, query = strings.ToLower(stored), strings.ToLower(query)
	return stored == query || strings.HasPrefix(stored, query)
}

// DecoratedResult pairs a ranked score with its catalog metadata.
type DecoratedResult struct {
	ScoredDoc
	Metadata BookMetadata `json:"metadata"`
}

func (m *MetadataStore) fetch(ctx context.Context, bookIDs []int) (map[int]BookMetadata, error) {
	placeholders := make([]string, len(bookIDs))
	args := make([]any, len(bookIDs))
	for i, id := range bookIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(
		`SELECT book_id, title, author, language, year FROM books WHERE book_id IN (%s)`,
		strings.Join(placeholders, ","),
	)

	rows, err := m.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying book metadata: %w", err)
	}
	defer rows.Close()

	result := make(map[int]BookMetadata, len(bookIDs))
	for rows.Next() {
		var meta BookMetadata
		var year sql.NullInt64
		if err := rows.Scan(&meta.BookID, &meta.Title, &meta.Author, &meta.Language, &year); err != nil {
			return nil, fmt.Errorf("scanning book metadata row: %w", err)
		}
		meta.Year = int(year.Int64)
		result[meta.BookID] = meta
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating book metadata rows: %w", err)
	}
	return result, nil
}
