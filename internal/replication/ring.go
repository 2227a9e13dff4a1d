// Package replication pushes a freshly-ingested book to the peers
// responsible for holding replicas of it, using a hash-ring slice of the
// configured node list.
package replication

// SelectPeers returns the replicationFactor-1 peers (besides the node that
// just ingested bookId) responsible for holding a replica, walking ring
// from bookId mod len(ring) and wrapping around, skipping selfID's slot if
// it falls in that walk. If
// replicationFactor is 1, or the ring has only one member, no peers are
// selected: a single-node ring cannot replicate.
//
// Grounded on ReplicationClient.selectPeersForBook: startIndex = bookId mod
// peerCount, then take up to count consecutive indices wrapping via modulo.
func SelectPeers(ring []string, selfID string, bookID, replicationFactor int) []string {
	if replicationFactor <= 1 || len(ring) <= 1 {
		return nil
	}

	peerCount := len(ring)
	startIndex := bookID % peerCount
	if startIndex < 0 {
		startIndex += peerCount
	}

	want := replicationFactor - 1
	if want > peerCount-1 {
		want = peerCount - 1
	}

	peers := make([]string, 0, want)
	for i := 0; len(peers) < want && i < peerCount; i++ {
		candidate := ring[(startIndex+i)%peerCount]
		if candidate == selfID {
			continue
		}
		peers = append(peers, candidate)
	}
	return peers
}
