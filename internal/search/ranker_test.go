package search

import (
	"math"
	"testing"

	"github.com/RoaringBitmap/roaring"

	"github.com/bookcluster/platform/pkg/proto"
)

func TestRankMatchesSingleTermWorkedExample(t *testing.T) {
	// One document, one query term, term frequency 2: idf = ln(2/2)+1 = 1,
	// score = (1+ln(2)) * 1 ~= 1.693.
	postings := map[string][]proto.Posting{
		"whale": {{BookID: 1, Positions: []int{0, 5}}},
	}
	got := Rank(postings, nil, RankParams{TotalDocuments: 1}, 10)
	if len(got) != 1 {
		t.Fatalf("expected exactly one scored document, got %d", len(got))
	}
	want := 1 + math.Log(2)
	if math.Abs(got[0].Score-want) > 1e-9 {
		t.Fatalf("Score = %v, want %v", got[0].Score, want)
	}
}

func TestRankOrdersByScoreDescendingThenBookIDAscending(t *testing.T) {
	postings := map[string][]proto.Posting{
		"whale": {
			{BookID: 3, Positions: []int{0}},
			{BookID: 1, Positions: []int{0, 1}},
			{BookID: 2, Positions: []int{0, 1}},
		},
	}
	got := Rank(postings, nil, RankParams{TotalDocuments: 3}, 10)
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	if got[0].BookID != 1 || got[1].BookID != 2 {
		t.Fatalf("expected the tf=2 books (1, 2) to rank ahead of tf=1, got %+v", got)
	}
	if got[0].BookID != 1 {
		t.Fatalf("expected book 1 to break the tie with book 2 by ascending bookId, got %+v", got)
	}
}

func TestRankRespectsLimit(t *testing.T) {
	postings := map[string][]proto.Posting{
		"whale": {
			{BookID: 1, Positions: []int{0}},
			{BookID: 2, Positions: []int{0}},
			{BookID: 3, Positions: []int{0}},
		},
	}
	got := Rank(postings, nil, RankParams{TotalDocuments: 3}, 2)
	if len(got) != 2 {
		t.Fatalf("expected limit to cap results at 2, got %d", len(got))
	}
}

func TestRankUsesFullPostingsForDocumentFrequencyDespiteCandidateRestriction(t *testing.T) {
	// cat: books 1, 2 (df=2). dog: books 2, 3 (df=2). Restricting scoring to
	// the AND-intersection {book 2} must not shrink df to 1 for either term.
	postings := map[string][]proto.Posting{
		"cat": {
			{BookID: 1, Positions: []int{0}},
			{BookID: 2, Positions: []int{0}},
		},
		"dog": {
			{BookID: 2, Positions: []int{0}},
			{BookID: 3, Positions: []int{0}},
		},
	}
	candidates := roaring.New()
	candidates.Add(2)

	got := Rank(postings, candidates, RankParams{TotalDocuments: 3}, 10)
	if len(got) != 1 || got[0].BookID != 2 {
		t.Fatalf("expected only book 2 scored, got %+v", got)
	}

	idf := computeIDF(3, 2) // true corpus-wide df for both terms is 2, not 1
	want := 2 * (1 + math.Log(1)) * idf
	if math.Abs(got[0].Score-want) > 1e-9 {
		t.Fatalf("Score = %v, want %v (df must be computed from the full, unfiltered posting lists)", got[0].Score, want)
	}
}
