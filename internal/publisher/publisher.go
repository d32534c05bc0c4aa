package publisher

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
)

// HeightPayloadSize is the size of an encoded block height message.
const HeightPayloadSize = 8

// EncodeHeight encodes a block height as a message payload.
func EncodeHeight(height uint64) []byte {
	payload := make([]byte, HeightPayloadSize)
	binary.BigEndian.PutUint64(payload, height)
	return payload
}

// DecodeHeight decodes a payload produced by EncodeHeight.
func DecodeHeight(payload []byte) (uint64, error) {
	if len(payload) < HeightPayloadSize {
		return 0, fmt.Errorf("payload too short: %d bytes", len(payload))
	}
	return binary.BigEndian.Uint64(payload[:HeightPayloadSize]), nil
}

// Publisher publishes block heights to Redis Streams.
type Publisher struct {
	pub         message.Publisher
	redisClient redis.UniversalClient
	topic       string
}

// New creates a new Publisher.
func New(redisClient redis.UniversalClient, topic string) (*Publisher, error) {
	logger := watermill.NewSlogLogger(nil)

	pub, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		logger,
	)
	if err != nil {
		return nil, err
	}

	return &Publisher{
		pub:         pub,
		redisClient: redisClient,
		topic:       topic,
	}, nil
}

// PublishBlock publishes a block height to the queue.
func (p *Publisher) PublishBlock(ctx context.Context, height uint64) error {
	start := time.Now()

	msgUUID := watermill.NewUUID()
	msg := message.NewMessage(msgUUID, EncodeHeight(height))
	msg.SetContext(ctx)

	err := p.pub.Publish(p.topic, msg)
	duration := time.Since(start)

	if err != nil {
		slog.Error("redis publish failed",
			"height", height,
			"msg_uuid", msgUUID,
			"duration_ms", duration.Milliseconds(),
			"err", err,
		)
		return err
	}

	slog.Debug("redis publish ok",
		"height", height,
		"msg_uuid", msgUUID,
		"duration_ms", duration.Milliseconds(),
	)
	return nil
}

// Close closes the publisher.
func (p *Publisher) Close() error {
	return p.pub.Close()
}

// QueueLength returns the number of messages in the Redis stream.
func (p *Publisher) QueueLength(ctx context.Context) (int64, error) {
	return p.redisClient.XLen(ctx, p.topic).Result()
}

// Topic returns the Redis stream topic name.
func (p *Publisher) Topic() string {
	return p.topic
}
