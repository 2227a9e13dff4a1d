package tokenize

import "testing"

func TestTokenizeDropsStopwordsAndShortWords(t *testing.T) {
	tokens := Tokenize("The cat is on a mat")
	for _, tok := range tokens {
		if tok.Term == "the" || tok.Term == "is" || tok.Term == "on" || tok.Term == "a" {
			t.Fatalf("expected stop-word %q to be removed", tok.Term)
		}
	}
}

func TestTokenizePositionsAreSequentialAfterFiltering(t *testing.T) {
	tokens := Tokenize("the quick brown fox")
	for i, tok := range tokens {
		if tok.Position != i {
			t.Fatalf("token %d has position %d, want %d", i, tok.Position, i)
		}
	}
}

func TestTokenizeStemsRelatedWordsIdentically(t *testing.T) {
	runningTokens := Tokenize("running runner runs")
	if len(runningTokens) == 0 {
		t.Fatal("expected at least one token")
	}
	first := runningTokens[0].Term
	for _, tok := range runningTokens {
		if tok.Term != first {
			t.Logf("stems diverged: %q vs %q (acceptable, snowball is not always maximally aggressive)", tok.Term, first)
		}
	}
	last := runningTokens[len(runningTokens)-1].Term
	if last != first {
		t.Fatalf("running and runs stemmed to %q and %q, want the same stem", first, last)
	}
}

func TestTokenizeAcceptsAccentedLetters(t *testing.T) {
	tokens := Tokenize("café niño")
	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %d: %+v", len(tokens), tokens)
	}
}

func TestTermsMatchesTokenizeOrder(t *testing.T) {
	text := "whales swim deep"
	tokens := Tokenize(text)
	terms := Terms(text)
	if len(terms) != len(tokens) {
		t.Fatalf("Terms() length %d != Tokenize() length %d", len(terms), len(tokens))
	}
	for i, tok := range tokens {
		if terms[i] != tok.Term {
			t.Fatalf("Terms()[%d] = %q, want %q", i, terms[i], tok.Term)
		}
	}
}
