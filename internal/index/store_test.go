package index

import (
	"testing"

	"github.com/bookcluster/platform/pkg/proto"
)

func TestPutAllThenGetAllRoundTrips(t *testing.T) {
	s := NewStore()
	s.PutAll(map[string][]proto.Posting{
		"whale": {{BookID: 1, Positions: []int{0, 5}}},
	})

	got := s.GetAll([]string{"whale", "unknown-term"})
	if _, ok := got["unknown-term"]; ok {
		t.Fatal("expected no entry for a term with no postings")
	}
	postings, ok := got["whale"]
	if !ok || len(postings) != 1 || postings[0].BookID != 1 {
		t.Fatalf("unexpected postings: %+v", got)
	}
}

func TestPutAllReplacesPostingForSameBookID(t *testing.T) {
	s := NewStore()
	s.PutAll(map[string][]proto.Posting{"whale": {{BookID: 1, Positions: []int{0}}}})
	s.PutAll(map[string][]proto.Posting{"whale": {{BookID: 1, Positions: []int{0, 1, 2}}}})

	got := s.GetAll([]string{"whale"})
	postings := got["whale"]
	if len(postings) != 1 {
		t.Fatalf("expected exactly one posting for bookId 1 after re-indexing, got %d", len(postings))
	}
	if len(postings[0].Positions) != 3 {
		t.Fatalf("expected the later posting to fully replace the earlier one, got %+v", postings[0])
	}
}

func TestRemoveDocumentDropsItFromEveryTerm(t *testing.T) {
	s := NewStore()
	s.PutAll(map[string][]proto.Posting{
		"whale": {{BookID: 1, Positions: []int{0}}},
		"ship":  {{BookID: 1, Positions: []int{1}}, {BookID: 2, Positions: []int{0}}},
	})

	removed := s.RemoveDocument(1)
	if removed != 2 {
		t.Fatalf("RemoveDocument() = %d, want 2", removed)
	}

	got := s.GetAll([]string{"whale", "ship"})
	if _, ok := got["whale"]; ok {
		t.Fatal("expected whale to have no postings left")
	}
	if postings := got["ship"]; len(postings) != 1 || postings[0].BookID != 2 {
		t.Fatalf("expected only bookId 2 left under ship, got %+v", postings)
	}
}

func TestLockIsExclusive(t *testing.T) {
	s := NewStore()
	if !s.Lock("whale") {
		t.Fatal("expected the first lock to succeed")
	}
	if s.Lock("whale") {
		t.Fatal("expected a second lock on the same term to fail")
	}
	s.Unlock("whale")
	if !s.Lock("whale") {
		t.Fatal("expected the lock to be acquirable after Unlock")
	}
}

func TestProcessedTracksIdempotencyKeys(t *testing.T) {
	s := NewStore()
	if s.IsProcessed("42:abc") {
		t.Fatal("expected unmarked key to be unprocessed")
	}
	s.MarkProcessed("42:abc")
	if !s.IsProcessed("42:abc") {
		t.Fatal("expected marked key to be processed")
	}
}

func TestStatsReflectsDistinctCurrentState(t *testing.T) {
	s := NewStore()
	s.PutAll(map[string][]proto.Posting{
		"whale": {{BookID: 1, Positions: []int{0}}},
		"ship":  {{BookID: 1, Positions: []int{1}}},
	})
	docs, terms := s.Stats()
	if docs != 1 || terms != 2 {
		t.Fatalf("Stats() = (%d, %d), want (1, 2)", docs, terms)
	}

	s.RemoveDocument(1)
	docs, terms = s.Stats()
	if docs != 0 || terms != 0 {
		t.Fatalf("Stats() after removal = (%d, %d), want (0, 0)", docs, terms)
	}
}

func TestBitmapTracksDocumentMembership(t *testing.T) {
	s := NewStore()
	s.PutAll(map[string][]proto.Posting{"whale": {{BookID: 1}, {BookID: 2}}})
	bitmap := s.Bitmap("whale")
	if bitmap == nil || bitmap.GetCardinality() != 2 {
		t.Fatalf("unexpected bitmap: %v", bitmap)
	}
	if s.Bitmap("unknown") != nil {
		t.Fatal("expected nil bitmap for an unknown term")
	}
}

func TestClearWipesEverything(t *testing.T) {
	s := NewStore()
	s.PutAll(map[string][]proto.Posting{"whale": {{BookID: 1}}})
	s.MarkProcessed("k")
	s.Lock("term")

	s.Clear()

	if docs, terms := s.Stats(); docs != 0 || terms != 0 {
		t.Fatalf("expected empty stats after Clear, got (%d, %d)", docs, terms)
	}
	if s.IsProcessed("k") {
		t.Fatal("expected processed map to be cleared")
	}
	if !s.Lock("term") {
		t.Fatal("expected locks to be cleared")
	}
}
