package workqueue

import "testing"

func TestSelectBookIDsSequentialRange(t *testing.T) {
	ids := selectBookIDs(5, false)
	want := []int{1, 2, 3, 4, 5}
	if len(ids) != len(want) {
		t.Fatalf("selectBookIDs(5, false) = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("selectBookIDs(5, false) = %v, want %v", ids, want)
		}
	}
}

func TestSelectBookIDsValidatedOnlyDrawsFromKnownList(t *testing.T) {
	ids := selectBookIDs(len(knownValidBookIDs)+2, true)
	if len(ids) != len(knownValidBookIDs)+2 {
		t.Fatalf("selectBookIDs() returned %d ids, want %d", len(ids), len(knownValidBookIDs)+2)
	}
	for _, id := range ids {
		found := false
		for _, valid := range knownValidBookIDs {
			if id == valid {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("selectBookIDs(validatedOnly=true) produced %d, not in the known-valid list", id)
		}
	}
}

func TestParseIntOrZeroHandlesEmptyAndInvalid(t *testing.T) {
	cases := map[string]int64{"": 0, "not-a-number": 0, "42": 42, "-3": -3}
	for input, want := range cases {
		if got := parseIntOrZero(input); got != want {
			t.Fatalf("parseIntOrZero(%q) = %d, want %d", input, got, want)
		}
	}
}
