package ingest

// Request is the JSON body accepted by the ingestion HTTP endpoint.
// RawContent carries the book's bytes exactly as fetched from the
// document source, base64-encoded over the wire via Go's default []byte
// JSON marshaling.
type Request struct {
	BookID     int    `json:"book_id"`
	RawContent []byte `json:"raw_content"`
}
