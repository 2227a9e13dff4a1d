// Package bus wraps the platform's Kafka producer/consumer with the
// reconnect-with-backoff behavior message buses need under partition loss,
// and defines the two payload types that flow across index.request and
// doc.ingested.
package bus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bookcluster/platform/pkg/config"
	"github.com/bookcluster/platform/pkg/kafka"
)

// IndexRequest is published once a book's body has landed on a datalake
// node and is ready to be tokenized and indexed.
type IndexRequest struct {
	BookID         int       `json:"bookId"`
	NodeID         string    `json:"nodeId"`
	DatalakePath   string    `json:"datalakePath"`
	ContentHash    string    `json:"contentHash"`
	IdempotencyKey string    `json:"idempotencyKey"`
	Timestamp      time.Time `json:"timestamp"`
}

// DocIngested is published after a book is durably stored (and, where
// applicable, replicated), independent of whether indexing has happened yet.
type DocIngested struct {
	BookID       int       `json:"bookId"`
	NodeID       string    `json:"nodeId"`
	DatalakePath string    `json:"datalakePath"`
	ContentHash  string    `json:"contentHash"`
	Timestamp    time.Time `json:"timestamp"`
}

// Publisher publishes domain events to the bus's two logical topics.
type Publisher struct {
	indexRequest *kafka.Producer
	docIngested  *kafka.Producer
	logger       *slog.Logger
}

// NewPublisher constructs producers for both topics named in cfg.Topics.
func NewPublisher(cfg config.BusConfig) *Publisher {
	return &Publisher{
		indexRequest: kafka.NewProducer(cfg, cfg.Topics.IndexRequest),
		docIngested:  kafka.NewProducer(cfg, cfg.Topics.DocIngested),
		logger:       slog.Default().With("component", "bus-publisher"),
	}
}

// PublishIndexRequest enqueues an IndexRequest keyed by its idempotency key
// so that retries and redeliveries of the same book/content pair land on
// the same partition.
func (p *Publisher) PublishIndexRequest(ctx context.Context, req IndexRequest) error {
	return p.indexRequest.Publish(ctx, kafka.Event{Key: req.IdempotencyKey, Value: req})
}

// PublishDocIngested enqueues a DocIngested event keyed by bookId.
func (p *Publisher) PublishDocIngested(ctx context.Context, evt DocIngested) error {
	return p.docIngested.Publish(ctx, kafka.Event{Key: fmt.Sprintf("%d", evt.BookID), Value: evt})
}

// Close closes both underlying producers.
func (p *Publisher) Close() error {
	if err := p.indexRequest.Close(); err != nil {
		return err
	}
	return p.docIngested.Close()
}

// IndexRequestHandler processes one IndexRequest. Returning an error leaves
// the message unacked, so at-least-once delivery redelivers it.
type IndexRequestHandler func(ctx context.Context, req IndexRequest) error

// ReconnectingConsumer wraps kafka.Consumer.Start with an exponential
// backoff loop: if Start returns (e.g. the broker connection dropped), it
// reconnects after a growing delay instead of exiting the process.
type ReconnectingConsumer struct {
	cfg     config.BusConfig
	topic   string
	handler IndexRequestHandler
	logger  *slog.Logger
}

// NewIndexRequestConsumer builds a reconnecting consumer for the
// index.request topic.
func NewIndexRequestConsumer(cfg config.BusConfig, handler IndexRequestHandler) *ReconnectingConsumer {
	return &ReconnectingConsumer{
		cfg:     cfg,
		topic:   cfg.Topics.IndexRequest,
		handler: handler,
		logger:  slog.Default().With("component", "bus-consumer", "topic", cfg.Topics.IndexRequest),
	}
}

// Run blocks, consuming until ctx is cancelled. On any consumer error it
// backs off (doubling from ReconnectInitialDelay up to ReconnectMaxDelay)
// and reconnects; after ReconnectCeiling consecutive failed attempts it
// gives up and returns an error.
func (r *ReconnectingConsumer) Run(ctx context.Context) error {
	initial := r.cfg.ReconnectInitialDelay
	if initial <= 0 {
		initial = time.Second
	}
	maxDelay := r.cfg.ReconnectMaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	delay := initial
	attempts := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		consumer := kafka.NewConsumer(r.cfg, r.topic, func(ctx context.Context, key, value []byte) error {
			req, err := kafka.DecodeJSON[IndexRequest](value)
			if err != nil {
				r.logger.Error("dropping unparseable message", "error", err)
				return nil
			}
			return r.handler(ctx, req)
		})

		err := consumer.Start(ctx)
		consumer.Close()
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			delay = initial
			attempts = 0
			continue
		}

		attempts++
		r.logger.Warn("consumer disconnected, reconnecting", "attempt", attempts, "delay", delay, "error", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil
		}
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
		if r.cfg.ReconnectCeiling > 0 && attempts >= r.cfg.ReconnectCeiling {
			return fmt.Errorf("bus consumer %s: exceeded %d reconnect attempts: %w", r.topic, r.cfg.ReconnectCeiling, err)
		}
	}
}
