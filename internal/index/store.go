package index

import (
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring"

	"github.com/bookcluster/platform/pkg/proto"
)

// Store holds the terms this node owns (or backs up), one posting list per
// term keyed by bookId so re-indexing a document replaces its posting in
// O(1) rather than appending a duplicate.
type Store struct {
	mu sync.RWMutex
	// postings[term][bookId] = sorted term positions within that document.
	postings map[string]map[int][]int
	// docBitmaps[term] tracks which bookIds currently hold a posting for
	// term, for fast OR/AND candidate-set membership tests ahead of exact
	// scoring.
	docBitmaps map[string]*roaring.Bitmap
	// termLocks backs the advisory per-term lock exposed over RPC.
	termLocks map[string]bool

	processed map[string]bool

	totalDocuments map[int]bool

	// registry is only meaningful on the single node the ring routes the
	// fixed registry key to: the cluster-wide set of bookIds ever
	// indexed, used to answer stats.total_documents exactly regardless of
	// how postings are scattered across partitions.
	registry *roaring.Bitmap
}

// NewStore creates an empty local Store.
func NewStore() *Store {
	return &Store{
		postings:       make(map[string]map[int][]int),
		docBitmaps:     make(map[string]*roaring.Bitmap),
		termLocks:      make(map[string]bool),
		processed:      make(map[string]bool),
		totalDocuments: make(map[int]bool),
		registry:       roaring.New(),
	}
}

// GetAll returns the posting lists for terms that this store currently
// holds. Terms with no postings are omitted from the result, not returned
// as empty slices.
func (s *Store) GetAll(terms []string) map[string][]proto.Posting {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string][]proto.Posting, len(terms))
	for _, term := range terms {
		byBook, ok := s.postings[term]
		if !ok || len(byBook) == 0 {
			continue
		}
		postings := make([]proto.Posting, 0, len(byBook))
		for bookID, positions := range byBook {
			postings = append(postings, proto.Posting{BookID: bookID, Positions: positions})
		}
		sort.Slice(postings, func(i, j int) bool { return postings[i].BookID < postings[j].BookID })
		result[term] = postings
	}
	return result
}

// PutAll merges updates into the store. For each (term, posting), the
// posting for that bookId fully replaces any existing one: a document's
// term positions are never appended twice, even if the same index.request
// is redelivered.
func (s *Store) PutAll(updates map[string][]proto.Posting) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for term, postings := range updates {
		byBook, ok := s.postings[term]
		if !ok {
			byBook = make(map[int][]int)
			s.postings[term] = byBook
		}
		bitmap, ok := s.docBitmaps[term]
		if !ok {
			bitmap = roaring.New()
			s.docBitmaps[term] = bitmap
		}
		for _, p := range postings {
			byBook[p.BookID] = p.Positions
			bitmap.Add(uint32(p.BookID))
			s.totalDocuments[p.BookID] = true
		}
	}
}

// RemoveDocument removes bookId's posting from every term it currently
// appears in, returning the count of terms it was removed from.
func (s *Store) RemoveDocument(bookID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for term, byBook := range s.postings {
		if _, ok := byBook[bookID]; !ok {
			continue
		}
		delete(byBook, bookID)
		removed++
		if bitmap, ok := s.docBitmaps[term]; ok {
			bitmap.Remove(uint32(bookID))
		}
		if len(byBook) == 0 {
			delete(s.postings, term)
			delete(s.docBitmaps, term)
		}
	}
	delete(s.totalDocuments, bookID)
	return removed
}

// Lock acquires the advisory lock for term, returning false if it is
// already held.
func (s *Store) Lock(term string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.termLocks[term] {
		return false
	}
	s.termLocks[term] = true
	return true
}

// Unlock releases the advisory lock for term.
func (s *Store) Unlock(term string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.termLocks, term)
}

// IsProcessed reports whether idempotencyKey has already been marked.
func (s *Store) IsProcessed(idempotencyKey string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.processed[idempotencyKey]
}

// MarkProcessed records idempotencyKey as handled.
func (s *Store) MarkProcessed(idempotencyKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[idempotencyKey] = true
}

// Stats reports the distinct document and term counts currently held
// (not cumulative operation counts: a removed document's terms stop
// counting immediately).
func (s *Store) Stats() (totalDocuments int64, totalTerms int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.totalDocuments)), int64(len(s.postings))
}

// Clear wipes all locally held state.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.postings = make(map[string]map[int][]int)
	s.docBitmaps = make(map[string]*roaring.Bitmap)
	s.termLocks = make(map[string]bool)
	s.processed = make(map[string]bool)
	s.totalDocuments = make(map[int]bool)
	s.registry = roaring.New()
}

// RegisterDocument adds bookId to this Store's document registry. The Store
// does no ownership check; callers route through Client so that only the
// registry's owning node receives the call.
func (s *Store) RegisterDocument(bookID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry.Add(uint32(bookID))
}

// RegistryCount returns the cardinality of the global document registry.
func (s *Store) RegistryCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(s.registry.GetCardinality())
}

// Bitmap returns the document bitmap for term, or nil if term is unknown.
// Used by the query path for fast AND/OR candidate filtering before exact
// TF·IDF scoring.
func (s *Store) Bitmap(term string) *roaring.Bitmap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docBitmaps[term]
}

// DocumentFrequency returns the number of documents holding a posting for
// term.
func (s *Store) DocumentFrequency(term string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.postings[term])
}
