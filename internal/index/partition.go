// Package index implements the distributed inverted index (C6): a
// partitioned key space over terms, each partition owned by exactly one
// node in the configured ring, with synchronous backup replicas.
package index

import (
	"github.com/cespare/xxhash/v2"
)

// Ring maps terms to their owning node via a stable hash, and backup nodes
// via consecutive ring slots, the same placement idiom C4 uses for books.
type Ring struct {
	nodes      []string
	partitions int
}

// NewRing builds a Ring over nodes with the given partition count.
func NewRing(nodes []string, partitions int) *Ring {
	if partitions <= 0 {
		partitions = 271
	}
	return &Ring{nodes: nodes, partitions: partitions}
}

// PartitionOf returns term's partition number in [0, partitions).
func (r *Ring) PartitionOf(term string) int {
	return int(xxhash.Sum64String(term) % uint64(r.partitions))
}

// OwnerOf returns the node responsible for term's primary copy.
func (r *Ring) OwnerOf(term string) string {
	if len(r.nodes) == 0 {
		return ""
	}
	partition := r.PartitionOf(term)
	return r.nodes[partition%len(r.nodes)]
}

// BackupsOf returns up to backupCount nodes holding synchronous backup
// replicas for term's partition: the backupCount ring slots following the
// owner, wrapping around, excluding the owner itself.
func (r *Ring) BackupsOf(term string, backupCount int) []string {
	if backupCount <= 0 || len(r.nodes) <= 1 {
		return nil
	}
	partition := r.PartitionOf(term)
	ownerIdx := partition % len(r.nodes)

	want := backupCount
	if want > len(r.nodes)-1 {
		want = len(r.nodes) - 1
	}
	backups := make([]string, 0, want)
	for i := 1; len(backups) < want && i <= len(r.nodes)-1; i++ {
		backups = append(backups, r.nodes[(ownerIdx+i)%len(r.nodes)])
	}
	return backups
}

// GroupByOwner buckets terms by their owning node, so a batch operation can
// issue one RPC per node rather than one per term.
func (r *Ring) GroupByOwner(terms []string) map[string][]string {
	grouped := make(map[string][]string)
	for _, term := range terms {
		owner := r.OwnerOf(term)
		grouped[owner] = append(grouped[owner], term)
	}
	return grouped
}
