package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/bookcluster/platform/internal/index"
	"github.com/bookcluster/platform/internal/search"
)

// BenchmarkTFIDFRank measures a single-term Engine.Search (posting fetch,
// candidate set, and Rank's scoring and sorting) for different
// posting-list sizes.
func BenchmarkTFIDFRank(b *testing.B) {
	sizes := []int{100, 1000, 10000}
	for _, numDocs := range sizes {
		b.Run(fmt.Sprintf("docs_%d", numDocs), func(b *testing.B) {
			ring := index.NewRing([]string{"self"}, 271)
			client := index.NewClient(ring, "self", index.NewStore(), 0)
			ctx := context.Background()
			for i := 0; i < numDocs; i++ {
				client.IndexDocument(ctx, i, map[string][]int{"search": {i % 10, (i % 10) + 5}})
			}
			engine := search.NewEngine(client, client)

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				results, err := engine.Search(ctx, "search", search.ModeOR, 10)
				if err != nil {
					b.Fatal(err)
				}
				_ = results
			}
		})
	}
}

// BenchmarkSearchMultiTerm measures search latency as the number of query
// terms grows, under both AND and OR combination.
func BenchmarkSearchMultiTerm(b *testing.B) {
	termCounts := []int{1, 3, 5, 10}
	for _, tc := range termCounts {
		b.Run(fmt.Sprintf("terms_%d", tc), func(b *testing.B) {
			ring := index.NewRing([]string{"self"}, 271)
			client := index.NewClient(ring, "self", index.NewStore(), 0)
			ctx := context.Background()

			terms := make([]string, tc)
			for t := 0; t < tc; t++ {
				terms[t] = fmt.Sprintf("term%d", t)
			}
			for i := 0; i < 500; i++ {
				docTerms := make(map[string][]int, tc)
				for _, t := range terms {
					docTerms[t] = []int{i % 5}
				}
				client.IndexDocument(ctx, i, docTerms)
			}
			engine := search.NewEngine(client, client)
			query := joinTerms(terms)

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				results, err := engine.Search(ctx, query, search.ModeAND, 10)
				if err != nil {
					b.Fatal(err)
				}
				_ = results
			}
		})
	}
}

// BenchmarkSearchParallel measures concurrent query throughput against a
// single shared Client.
func BenchmarkSearchParallel(b *testing.B) {
	ring := index.NewRing([]string{"self"}, 271)
	client := index.NewClient(ring, "self", index.NewStore(), 0)
	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		client.IndexDocument(ctx, i, map[string][]int{
			"distributed": {0},
			"search":      {1, 4},
		})
	}
	engine := search.NewEngine(client, client)

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			results, err := engine.Search(ctx, "distributed search", search.ModeOR, 10)
			if err != nil {
				b.Fatal(err)
			}
			_ = results
		}
	})
}

func joinTerms(terms []string) string {
	out := ""
	for i, t := range terms {
		if i > 0 {
			out += " "
		}
		out += t
	}
	return out
}
