package index

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bookcluster/platform/pkg/grpc"
	"github.com/bookcluster/platform/pkg/proto"
)

// RegisterServer wires every Index.* RPC method into server, dispatching to
// store. One Store instance backs both the primary partitions this node
// owns and the backup partitions it replicates for its neighbors; the
// caller (the distributed Client) is responsible for addressing the
// correct node.
func RegisterServer(server *grpc.Server, store *Store) {
	server.Register("Index.GetAll", func(ctx context.Context, raw json.RawMessage) (any, error) {
		var req proto.GetAllRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("decoding GetAllRequest: %w", err)
		}
		return proto.GetAllResponse{Postings: store.GetAll(req.Terms)}, nil
	})

	server.Register("Index.PutAll", func(ctx context.Context, raw json.RawMessage) (any, error) {
		var req proto.PutAllRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("decoding PutAllRequest: %w", err)
		}
		store.PutAll(req.Updates)
		return proto.PutAllResponse{Success: true}, nil
	})

	server.Register("Index.Lock", func(ctx context.Context, raw json.RawMessage) (any, error) {
		var req proto.LockRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("decoding LockRequest: %w", err)
		}
		return proto.LockResponse{Acquired: store.Lock(req.Term)}, nil
	})

	server.Register("Index.Unlock", func(ctx context.Context, raw json.RawMessage) (any, error) {
		var req proto.LockRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("decoding LockRequest: %w", err)
		}
		store.Unlock(req.Term)
		return proto.LockResponse{Acquired: true}, nil
	})

	server.Register("Index.RemoveDocument", func(ctx context.Context, raw json.RawMessage) (any, error) {
		var req proto.RemoveDocumentRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("decoding RemoveDocumentRequest: %w", err)
		}
		return proto.RemoveDocumentResponse{TermsRemoved: store.RemoveDocument(req.BookID)}, nil
	})

	server.Register("Index.Stats", func(ctx context.Context, raw json.RawMessage) (any, error) {
		docs, terms := store.Stats()
		return proto.StatsResponse{TotalDocuments: docs, TotalTermsIndexed: terms}, nil
	})

	server.Register("Index.IsProcessed", func(ctx context.Context, raw json.RawMessage) (any, error) {
		var req proto.IsProcessedRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("decoding IsProcessedRequest: %w", err)
		}
		return proto.IsProcessedResponse{Processed: store.IsProcessed(req.IdempotencyKey)}, nil
	})

	server.Register("Index.MarkProcessed", func(ctx context.Context, raw json.RawMessage) (any, error) {
		var req proto.MarkProcessedRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("decoding MarkProcessedRequest: %w", err)
		}
		store.MarkProcessed(req.IdempotencyKey)
		return proto.MarkProcessedResponse{Success: true}, nil
	})

	server.Register("Index.Clear", func(ctx context.Context, raw json.RawMessage) (any, error) {
		store.Clear()
		return proto.ClearResponse{Success: true}, nil
	})

	server.Register("Index.RegisterDocument", func(ctx context.Context, raw json.RawMessage) (any, error) {
		var req proto.RegisterDocumentRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("decoding RegisterDocumentRequest: %w", err)
		}
		store.RegisterDocument(req.BookID)
		return proto.RegisterDocumentResponse{Success: true}, nil
	})

	server.Register("Index.TotalDocuments", func(ctx context.Context, raw json.RawMessage) (any, error) {
		return proto.TotalDocumentsResponse{Total: store.RegistryCount()}, nil
	})
}
