package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ingsis/snippet-manager/internal/apperror"
)

// payloadField is the single field each stream entry carries.
const payloadField = "payload"

// RedisPublisher implements Publisher with XADD.
type RedisPublisher struct {
	client *redis.Client
	logger *slog.Logger
}

var _ Publisher = (*RedisPublisher)(nil)

// NewRedisPublisher creates a publisher on an existing Redis connection.
// The client is shared with the consumer; go-redis connections are safe for
// concurrent use.
func NewRedisPublisher(client *redis.Client, logger *slog.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, logger: logger}
}

// Publish appends the payload to the stream. Concurrent publishes rely on
// the backend's atomic append; no ordering is coordinated between callers.
func (p *RedisPublisher) Publish(ctx context.Context, stream string, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{payloadField: string(payload)},
	}).Err()
	if err != nil {
		p.logger.Error("stream publish failed",
			slog.String("stream", stream),
			slog.String("error", err.Error()),
		)
		return apperror.Unavailable("event stream", err)
	}

	p.logger.Debug("event published", slog.String("stream", stream))
	return nil
}

// Consumer reads a stream under a consumer group, so multiple instances of
// this service can split the result stream between them.
type Consumer struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
	poll     time.Duration
	logger   *slog.Logger
}

// NewConsumer creates a group consumer. poll is how long each read blocks
// waiting for new entries before looping (default 10s when zero): lower
// values cut result latency, higher values cut load on the backend.
func NewConsumer(client *redis.Client, streamName, group, consumerName string, poll time.Duration, logger *slog.Logger) *Consumer {
	if poll <= 0 {
		poll = 10 * time.Second
	}
	return &Consumer{
		client:   client,
		stream:   streamName,
		group:    group,
		consumer: consumerName,
		poll:     poll,
		logger:   logger,
	}
}

// Run consumes messages until ctx is cancelled.
//
// Per-message failure isolation: a handler error leaves that one message
// pending (no ack, so another consumer can claim it) and the loop moves on.
// A message whose payload cannot even be handed to the handler is acked
// anyway — redelivering garbage forever helps nobody.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	if err := c.ensureGroup(ctx); err != nil {
		return err
	}

	c.logger.Info("stream consumer started",
		slog.String("stream", c.stream),
		slog.String("group", c.group),
		slog.String("consumer", c.consumer),
	)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		entries, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.consumer,
			Streams:  []string{c.stream, ">"},
			Count:    16,
			Block:    c.poll,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // nothing new within the poll window
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			c.logger.Error("stream read failed",
				slog.String("stream", c.stream),
				slog.String("error", err.Error()),
			)
			// transient backend failure; back off briefly and retry
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.poll):
			}
			continue
		}

		for _, streamEntries := range entries {
			for _, msg := range streamEntries.Messages {
				c.handle(ctx, msg, handler)
			}
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg redis.XMessage, handler Handler) {
	raw, ok := msg.Values[payloadField].(string)
	if !ok {
		c.logger.Error("stream message missing payload field",
			slog.String("stream", c.stream),
			slog.String("id", msg.ID),
		)
		c.ack(ctx, msg.ID)
		return
	}

	if err := handler(ctx, []byte(raw)); err != nil {
		c.logger.Error("stream message handling failed",
			slog.String("stream", c.stream),
			slog.String("id", msg.ID),
			slog.String("error", err.Error()),
		)
		return // left pending for redelivery
	}

	c.ack(ctx, msg.ID)
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, c.stream, c.group, id).Err(); err != nil {
		c.logger.Error("stream ack failed",
			slog.String("stream", c.stream),
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
	}
}

// ensureGroup creates the consumer group at the start of the stream,
// creating the stream itself if needed. An already-existing group is fine.
func (c *Consumer) ensureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("stream: creating group %s on %s: %w", c.group, c.stream, err)
	}
	return nil
}
