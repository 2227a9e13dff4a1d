package search

import "testing"

func TestFilterLanguageMatchesExactAndPrefix(t *testing.T) {
	results := []DecoratedResult{
		{ScoredDoc: ScoredDoc{BookID: 1}, Metadata: BookMetadata{Language: "en-US"}},
		{ScoredDoc: ScoredDoc{BookID: 2}, Metadata: BookMetadata{Language: "eng"}},
		{ScoredDoc: ScoredDoc{BookID: 3}, Metadata: BookMetadata{Language: "fr"}},
	}

	got := Filter(results, MetadataFilter{Language: "en"})
	if len(got) != 2 {
		t.Fatalf("Filter(language=en) = %+v, want books 1 and 2 via ISO-639 prefix match", got)
	}
	ids := map[int]bool{got[0].BookID: true, got[1].BookID: true}
	if !ids[1] || !ids[2] {
		t.Fatalf("Filter(language=en) = %+v, want books 1 and 2", got)
	}
}

func TestFilterLanguageIsCaseInsensitive(t *testing.T) {
	results := []DecoratedResult{
		{ScoredDoc: ScoredDoc{BookID: 1}, Metadata: BookMetadata{Language: "EN-GB"}},
	}
	got := Filter(results, MetadataFilter{Language: "en"})
	if len(got) != 1 {
		t.Fatalf("Filter(language=en) = %+v, want book 1 to match EN-GB case-insensitively", got)
	}
}

func TestFilterLanguageRejectsNonPrefixMatch(t *testing.T) {
	results := []DecoratedResult{
		{ScoredDoc: ScoredDoc{BookID: 1}, Metadata: BookMetadata{Language: "fr-CA"}},
	}
	got := Filter(results, MetadataFilter{Language: "en"})
	if len(got) != 0 {
		t.Fatalf("Filter(language=en) = %+v, want no match against fr-CA", got)
	}
}

func TestFilterCombinesAuthorLanguageAndYear(t *testing.T) {
	results := []DecoratedResult{
		{ScoredDoc: ScoredDoc{BookID: 1}, Metadata: BookMetadata{Author: "Herman Melville", Language: "en", Year: 1851}},
		{ScoredDoc: ScoredDoc{BookID: 2}, Metadata: BookMetadata{Author: "Herman Melville", Language: "en", Year: 1855}},
		{ScoredDoc: ScoredDoc{BookID: 3}, Metadata: BookMetadata{Author: "Jane Austen", Language: "en", Year: 1851}},
	}
	got := Filter(results, MetadataFilter{Author: "melville", Year: 1851})
	if len(got) != 1 || got[0].BookID != 1 {
		t.Fatalf("Filter(author, year) = %+v, want exactly book 1", got)
	}
}
