// Package search implements the query path (C8): boolean term combination
// over the distributed index's posting lists, exact TF·IDF scoring,
// query-result caching, and external metadata decoration.
package search

import (
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring"

	"github.com/bookcluster/platform/pkg/proto"
)

// ScoredDoc is one ranked result: a bookId and its TF·IDF score.
type ScoredDoc struct {
	BookID int     `json:"bookId"`
	Score  float64 `json:"score"`
}

// RankParams carries the corpus-wide statistic the idf term needs.
type RankParams struct {
	TotalDocuments int64
}

// Rank scores every bookId in candidates against the query terms and
// returns the top limit results, sorted by score descending and bookId
// ascending on ties. postingsPerTerm must be each term's full, unfiltered
// posting list: df(t) is the corpus-wide document frequency, computed
// before any boolean (AND/OR) restriction narrows which documents survive,
// per the ranking formula's definition of idf. candidates selects which
// bookIds are actually scored; pass nil to score every bookId present in
// postingsPerTerm (used by direct single-term callers and tests).
//
// idf(t) = ln((N+1)/(df(t)+1)) + 1
// score(d) = sum over query terms t of (1 + ln(tf(t,d))) * idf(t)
func Rank(postingsPerTerm map[string][]proto.Posting, candidates *roaring.Bitmap, params RankParams, limit int) []ScoredDoc {
	scores := make(map[int]float64)
	for _, postings := range postingsPerTerm {
		docFreq := len(postings)
		idf := computeIDF(params.TotalDocuments, docFreq)
		for _, p := range postings {
			if candidates != nil && !candidates.Contains(uint32(p.BookID)) {
				continue
			}
			tf := len(p.Positions)
			if tf <= 0 {
				continue
			}
			scores[p.BookID] += (1 + math.Log(float64(tf))) * idf
		}
	}

	result := make([]ScoredDoc, 0, len(scores))
	for bookID, score := range scores {
		result = append(result, ScoredDoc{BookID: bookID, Score: score})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].BookID < result[j].BookID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func computeIDF(totalDocuments int64, documentFrequency int) float64 {
	return math.Log((float64(totalDocuments)+1)/(float64(documentFrequency)+1)) + 1
}
