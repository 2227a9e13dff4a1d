// Package proto defines the message types exchanged between cluster nodes
// over the platform's lightweight JSON-over-TCP RPC layer (see pkg/grpc).
// These are hand-written, not generated, because no real gRPC/protobuf
// toolchain sits behind pkg/grpc — the wire format is newline-delimited
// JSON and these structs are what gets marshaled into it.
package proto

// ---------- Replication (C4) ----------

// ReplicationRequest is sent node-to-node to push a copy of a book's raw,
// header, and body bytes to a replica. Method: "Replication.Receive".
type ReplicationRequest struct {
	BookID        int    `json:"bookId"`
	SourceNodeID  string `json:"sourceNodeId"`
	RelativePath  string `json:"relativePath"`
	RawContent    []byte `json:"rawContent"`
	HeaderContent []byte `json:"headerContent"`
	BodyContent   []byte `json:"bodyContent"`
	ContentHash   string `json:"contentHash"`
}

// ReplicationResponse is the per-peer result of a ReplicationRequest.
type ReplicationResponse struct {
	Success bool   `json:"success"`
	NodeID  string `json:"nodeId"`
	BookID  int    `json:"bookId"`
	Message string `json:"message"`
}

// ---------- Distributed inverted index (C6) ----------

// Posting is one term's occurrence record within one document.
type Posting struct {
	BookID    int   `json:"bookId"`
	Positions []int `json:"positions"`
}

// GetAllRequest batch-fetches postings for a set of terms from the node
// that owns their partitions. Method: "Index.GetAll".
type GetAllRequest struct {
	Terms []string `json:"terms"`
}

// GetAllResponse maps each requested term to its posting list.
type GetAllResponse struct {
	Postings map[string][]Posting `json:"postings"`
}

// PutAllRequest batch-writes merged posting lists. Method: "Index.PutAll".
type PutAllRequest struct {
	Updates map[string][]Posting `json:"updates"`
}

// PutAllResponse acknowledges a PutAllRequest.
type PutAllResponse struct {
	Success bool `json:"success"`
}

// LockRequest/UnlockRequest implement the advisory per-term mutex.
// Method: "Index.Lock" / "Index.Unlock".
type LockRequest struct {
	Term string `json:"term"`
}

type LockResponse struct {
	Acquired bool `json:"acquired"`
}

// RemoveDocumentRequest removes a bookId's posting from every term it
// appears in on the owning node. Method: "Index.RemoveDocument".
type RemoveDocumentRequest struct {
	BookID int `json:"bookId"`
}

type RemoveDocumentResponse struct {
	TermsRemoved int `json:"termsRemoved"`
}

// StatsRequest/StatsResponse expose the index stats map.
// Method: "Index.Stats".
type StatsRequest struct{}

type StatsResponse struct {
	TotalDocuments    int64 `json:"totalDocuments"`
	TotalTermsIndexed int64 `json:"totalTermsIndexed"`
}

// IsProcessedRequest/MarkProcessedRequest back the processed-documents map.
type IsProcessedRequest struct {
	IdempotencyKey string `json:"idempotencyKey"`
}

type IsProcessedResponse struct {
	Processed bool `json:"processed"`
}

type MarkProcessedRequest struct {
	IdempotencyKey string `json:"idempotencyKey"`
}

type MarkProcessedResponse struct {
	Success bool `json:"success"`
}

// ClearRequest wipes a node's partition-owned index state.
// Method: "Index.Clear".
type ClearRequest struct{}

type ClearResponse struct {
	Success bool `json:"success"`
}

// RegisterDocumentRequest/TotalDocumentsRequest back the single-node global
// document registry used to compute stats.total_documents exactly, since
// any one node's local postings only cover the partitions it owns.
// Methods: "Index.RegisterDocument" / "Index.TotalDocuments".
type RegisterDocumentRequest struct {
	BookID int `json:"bookId"`
}

type RegisterDocumentResponse struct {
	Success bool `json:"success"`
}

type TotalDocumentsRequest struct{}

type TotalDocumentsResponse struct {
	Total int64 `json:"total"`
}
