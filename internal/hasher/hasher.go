// Package hasher implements the content fingerprint used for idempotency
// and deduplication across the datalake, replication, and message bus.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash computes the SHA-256 of content, returned as 64-char lowercase hex.
// Pure function; deterministic for identical bytes.
func Hash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// IdempotencyKey builds the key that guards against duplicate indexing on
// message redelivery: "<bookId>:<contentHash>".
func IdempotencyKey(bookID int, contentHash string) string {
	return fmt.Sprintf("%d:%s", bookID, contentHash)
}
