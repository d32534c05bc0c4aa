package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/canopy-network/dao-indexer/internal/publisher"
	"github.com/redis/go-redis/v9"
)

// BlockIndexer indexes one block height.
type BlockIndexer interface {
	IndexBlock(ctx context.Context, height uint64) error
}

// Config configures the worker.
type Config struct {
	RedisClient   redis.UniversalClient
	Indexer       BlockIndexer
	Topic         string
	ConsumerGroup string

	// RetryDelay is slept before a failed block is NACKed (default: 5s).
	RetryDelay time.Duration
}

// QueueStats holds queue statistics.
type QueueStats struct {
	StreamLength int64 `json:"stream_length"`
	Pending      int64 `json:"pending"`
	Consumers    int64 `json:"consumers"`
}

// Worker consumes block heights from Redis Streams and indexes them.
type Worker struct {
	router        *message.Router
	indexer       BlockIndexer
	redisClient   redis.UniversalClient
	topic         string
	consumerGroup string
	retryDelay    time.Duration
}

// New creates a new Worker.
func New(cfg Config) (*Worker, error) {
	logger := watermill.NewSlogLogger(nil)

	sub, err := redisstream.NewSubscriber(
		redisstream.SubscriberConfig{
			Client:        cfg.RedisClient,
			ConsumerGroup: cfg.ConsumerGroup,
		},
		logger,
	)
	if err != nil {
		return nil, err
	}

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, err
	}

	w := newWorker(cfg)
	w.router = router

	router.AddNoPublisherHandler(
		"index-block",
		cfg.Topic,
		sub,
		w.handleBlock,
	)

	return w, nil
}

func newWorker(cfg Config) *Worker {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	return &Worker{
		indexer:       cfg.Indexer,
		redisClient:   cfg.RedisClient,
		topic:         cfg.Topic,
		consumerGroup: cfg.ConsumerGroup,
		retryDelay:    cfg.RetryDelay,
	}
}

// handleBlock processes a single block message.
func (w *Worker) handleBlock(msg *message.Message) error {
	start := time.Now()
	msgUUID := msg.UUID

	height, err := publisher.DecodeHeight(msg.Payload)
	if err != nil {
		slog.Warn("worker invalid payload",
			"msg_uuid", msgUUID,
			"err", err,
		)
		return nil // ack invalid messages to avoid infinite retry
	}

	slog.Debug("worker indexing start",
		"height", height,
		"msg_uuid", msgUUID,
	)

	ctx := msg.Context()
	if err := w.indexer.IndexBlock(ctx, height); err != nil {
		slog.Error("worker indexing failed",
			"height", height,
			"msg_uuid", msgUUID,
			"duration_ms", time.Since(start).Milliseconds(),
			"err", err,
		)
		// Delay before retry to avoid hammering on errors
		select {
		case <-ctx.Done():
		case <-time.After(w.retryDelay):
		}
		return err // will be redelivered
	}

	slog.Info("worker indexing done",
		"height", height,
		"msg_uuid", msgUUID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Run starts the worker. It blocks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	return w.router.Run(ctx)
}

// Close closes the worker.
func (w *Worker) Close() error {
	return w.router.Close()
}

// QueueStats returns current queue statistics.
func (w *Worker) QueueStats(ctx context.Context) (QueueStats, error) {
	var stats QueueStats

	// Get stream length
	length, err := w.redisClient.XLen(ctx, w.topic).Result()
	if err != nil {
		return stats, err
	}
	stats.StreamLength = length

	// Get consumer group info
	groups, err := w.redisClient.XInfoGroups(ctx, w.topic).Result()
	if err != nil {
		// Stream might not exist yet
		return stats, nil
	}

	for _, g := range groups {
		if g.Name == w.consumerGroup {
			stats.Pending = g.Pending
			stats.Consumers = g.Consumers
			break
		}
	}

	return stats, nil
}

// LogQueueStats logs current queue statistics.
func (w *Worker) LogQueueStats(ctx context.Context) {
	stats, err := w.QueueStats(ctx)
	if err != nil {
		slog.Warn("worker queue stats error", "err", err)
		return
	}

	slog.Info("worker queue stats",
		"stream_length", stats.StreamLength,
		"pending", stats.Pending,
		"consumers", stats.Consumers,
	)
}
