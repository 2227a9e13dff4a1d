package search

import (
	"context"
	"fmt"

	"github.com/RoaringBitmap/roaring"

	"github.com/bookcluster/platform/internal/index"
	"github.com/bookcluster/platform/internal/tokenize"
	"github.com/bookcluster/platform/pkg/proto"
	"github.com/bookcluster/platform/pkg/tracing"
)

// Mode selects how query terms combine.
type Mode string

const (
	ModeAND Mode = "AND"
	ModeOR  Mode = "OR"
)

// Engine executes search(rawQuery, mode, limit) against the distributed
// index, per §4.8: tokenize, fetch postings once per term, build the
// candidate set via union/intersection, score candidates, sort, truncate.
type Engine struct {
	index *index.Client
	stats StatsSource
}

// StatsSource reports the corpus-wide document count used by idf.
type StatsSource interface {
	TotalDocuments(ctx context.Context) (int64, error)
}

// NewEngine builds a search Engine.
func NewEngine(idx *index.Client, stats StatsSource) *Engine {
	return &Engine{index: idx, stats: stats}
}

// Search tokenizes rawQuery with the same rule the indexer uses, fetches
// every distinct term's postings exactly once, intersects or unions their
// bookId sets depending on mode, and ranks the survivors.
func (e *Engine) Search(ctx context.Context, rawQuery string, mode Mode, limit int) ([]ScoredDoc, error) {
	ctx, span := tracing.StartSpan(ctx, "search.Search", fmt.Sprintf("query-%s", rawQuery))
	span.SetAttr("mode", string(mode))
	defer func() {
		span.End()
		span.Log()
	}()

	terms := dedupeTerms(tokenize.Terms(rawQuery))
	span.SetAttr("term_count", len(terms))
	if len(terms) == 0 {
		return nil, nil
	}

	postings, err := e.fetchPostings(ctx, terms)
	if err != nil {
		return nil, err
	}

	candidates := candidateSet(terms, postings, mode)
	if candidates == nil || candidates.IsEmpty() {
		return nil, nil
	}

	totalDocuments, err := e.stats.TotalDocuments(ctx)
	if err != nil {
		return nil, err
	}

	_, rankSpan := tracing.StartChildSpan(ctx, "search.Rank")
	defer rankSpan.End()
	// postings (not a candidate-restricted copy) feeds Rank so df(t) stays
	// the true corpus-wide document frequency; candidates only decides
	// which bookIds get scored, per the boolean-restriction-is-not-df
	// distinction in the ranking formula.
	return Rank(postings, candidates, RankParams{TotalDocuments: totalDocuments}, limit), nil
}

func (e *Engine) fetchPostings(ctx context.Context, terms []string) (map[string][]proto.Posting, error) {
	ctx, span := tracing.StartChildSpan(ctx, "search.fetchPostings")
	defer span.End()
	return e.index.GetAll(ctx, terms)
}

func dedupeTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	result := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		result = append(result, t)
	}
	return result
}

// candidateSet builds the union (OR) or intersection (AND) of each term's
// bookId set. For AND, a term with zero postings empties the whole result
// immediately (early exit, per invariant 6 and the boundary behavior for
// AND-with-zero-postings).
func candidateSet(terms []string, postings map[string][]proto.Posting, mode Mode) *roaring.Bitmap {
	var result *roaring.Bitmap
	for _, term := range terms {
		bitmap := bitmapOf(postings[term])
		if result == nil {
			result = bitmap
			if mode == ModeAND && result.IsEmpty() {
				return result
			}
			continue
		}
		if mode == ModeAND {
			result = roaring.And(result, bitmap)
			if result.IsEmpty() {
				return result
			}
		} else {
			result = roaring.Or(result, bitmap)
		}
	}
	return result
}

func bitmapOf(postings []proto.Posting) *roaring.Bitmap {
	bitmap := roaring.New()
	for _, p := range postings {
		bitmap.Add(uint32(p.BookID))
	}
	return bitmap
}
