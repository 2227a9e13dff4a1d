package index

import (
	"context"
	"testing"

	"github.com/bookcluster/platform/pkg/proto"
)

// A single-node ring routes every term to selfID, so these tests exercise
// the Client's local fast path without any network dependency.
func newLocalOnlyClient() (*Client, *Store) {
	store := NewStore()
	ring := NewRing([]string{"self"}, 271)
	return NewClient(ring, "self", store, 0), store
}

func TestClientPutAllThenGetAllLocalFastPath(t *testing.T) {
	client, _ := newLocalOnlyClient()
	ctx := context.Background()

	err := client.PutAll(ctx, map[string][]proto.Posting{
		"whale": {{BookID: 1, Positions: []int{0, 3}}},
	})
	if err != nil {
		t.Fatalf("PutAll() error = %v", err)
	}

	got, err := client.GetAll(ctx, []string{"whale", "absent"})
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if _, ok := got["absent"]; ok {
		t.Fatal("expected no entry for a term with no postings")
	}
	if postings := got["whale"]; len(postings) != 1 || postings[0].BookID != 1 {
		t.Fatalf("unexpected postings: %+v", got)
	}
}

func TestClientLockUnlockLocalFastPath(t *testing.T) {
	client, _ := newLocalOnlyClient()
	ctx := context.Background()

	acquired, err := client.Lock(ctx, "whale")
	if err != nil || !acquired {
		t.Fatalf("Lock() = %v, %v, want true, nil", acquired, err)
	}
	acquired, err = client.Lock(ctx, "whale")
	if err != nil || acquired {
		t.Fatalf("second Lock() = %v, %v, want false, nil", acquired, err)
	}
	if err := client.Unlock(ctx, "whale"); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	acquired, err = client.Lock(ctx, "whale")
	if err != nil || !acquired {
		t.Fatalf("Lock() after Unlock = %v, %v, want true, nil", acquired, err)
	}
}

func TestClientGroupByBackupMirrorsEachTermToItsBackupNodes(t *testing.T) {
	ring := NewRing([]string{"a", "b", "c"}, 271)
	client := NewClient(ring, "a", NewStore(), 1)

	terms := []string{"whale", "harpoon", "ocean"}
	grouped := client.groupByBackup(terms)

	total := 0
	for node, nodeTerms := range grouped {
		for _, term := range nodeTerms {
			owner := ring.OwnerOf(term)
			if node == owner {
				t.Fatalf("backup group for %q must exclude its own owner %s", term, owner)
			}
			backups := ring.BackupsOf(term, 1)
			found := false
			for _, b := range backups {
				if b == node {
					found = true
					break
				}
			}
			if !found {
				t.Fatalf("term %q grouped under %s, which is not one of its backups %v", term, node, backups)
			}
			total++
		}
	}
	if total != len(terms) {
		t.Fatalf("expected each of %d terms to appear exactly once across backup groups, got %d", len(terms), total)
	}
}

func TestClientGroupByBackupEmptyWhenBackupCountZero(t *testing.T) {
	ring := NewRing([]string{"a", "b", "c"}, 271)
	client := NewClient(ring, "a", NewStore(), 0)

	grouped := client.groupByBackup([]string{"whale"})
	if len(grouped) != 0 {
		t.Fatalf("expected no backup groups with backupCount=0, got %v", grouped)
	}
}

func TestClientProcessedTrackingLocalFastPath(t *testing.T) {
	client, _ := newLocalOnlyClient()
	ctx := context.Background()

	processed, err := client.IsProcessed(ctx, "42:abc")
	if err != nil || processed {
		t.Fatalf("IsProcessed() = %v, %v, want false, nil", processed, err)
	}
	if err := client.MarkProcessed(ctx, "42:abc"); err != nil {
		t.Fatalf("MarkProcessed() error = %v", err)
	}
	processed, err = client.IsProcessed(ctx, "42:abc")
	if err != nil || !processed {
		t.Fatalf("IsProcessed() after mark = %v, %v, want true, nil", processed, err)
	}
}
