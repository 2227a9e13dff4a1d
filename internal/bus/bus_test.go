package bus

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/bookcluster/platform/pkg/kafka"
)

func TestIndexRequestRoundTripsThroughJSON(t *testing.T) {
	req := IndexRequest{
		BookID:         42,
		NodeID:         "node-a",
		DatalakePath:   "20260101/00/42",
		ContentHash:    "abc123",
		IdempotencyKey: "42:abc123",
		Timestamp:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	raw, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal error = %v", err)
	}

	got, err := kafka.DecodeJSON[IndexRequest](raw)
	if err != nil {
		t.Fatalf("DecodeJSON() error = %v", err)
	}
	if got != req {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, req)
	}
}

func TestDocIngestedRoundTripsThroughJSON(t *testing.T) {
	evt := DocIngested{BookID: 7, NodeID: "node-b", DatalakePath: "p", ContentHash: "h"}
	raw, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshal error = %v", err)
	}
	got, err := kafka.DecodeJSON[DocIngested](raw)
	if err != nil {
		t.Fatalf("DecodeJSON() error = %v", err)
	}
	if got.BookID != evt.BookID || got.NodeID != evt.NodeID {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, evt)
	}
}
