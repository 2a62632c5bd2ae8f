package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"log/slog"
)

const (
	defaultDLQMaxAttempts = 3
	defaultDLQRetryWindow = 10 * time.Minute
)

type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error
}

type Consumer struct {
	group        sarama.ConsumerGroup
	logger       *slog.Logger
	dlqPublisher Publisher
	dlqTopic     string
}

func NewConsumer(brokers []string, groupID string, logger *slog.Logger) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers required")
	}
	if groupID == "" {
		return nil, fmt.Errorf("kafka consumer group required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_7_0_0
	cfg.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRange
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Group.Session.Timeout = 30 * time.Second
	cfg.Consumer.Group.Heartbeat.Interval = 3 * time.Second
	cfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer group: %w", err)
	}

	return &Consumer{
		group:  group,
		logger: logger,
	}, nil
}

// WithDLQ routes messages whose handler keeps failing to the dead-letter
// topic instead of skipping them. Must be called before Consume.
func (c *Consumer) WithDLQ(publisher Publisher, topic string) {
	c.dlqPublisher = publisher
	c.dlqTopic = topic
}

func (c *Consumer) Consume(ctx context.Context, topics []string, handler MessageHandler) error {
	if handler == nil {
		return fmt.Errorf("message handler required")
	}

	cgHandler := &consumerGroupHandler{
		handler:      handler,
		logger:       c.logger,
		dlqPublisher: c.dlqPublisher,
		dlqTopic:     c.dlqTopic,
	}
	if c.dlqPublisher != nil && c.dlqTopic != "" {
		cgHandler.retryTracker = newRetryTracker(defaultDLQMaxAttempts, defaultDLQRetryWindow)
	}

	for {
		if err := c.group.Consume(ctx, topics, cgHandler); err != nil {
			c.logger.Error("kafka consume error", "error", err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			time.Sleep(2 * time.Second)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	if c.group == nil {
		return nil
	}
	return c.group.Close()
}

type consumerGroupHandler struct {
	handler      MessageHandler
	logger       *slog.Logger
	dlqPublisher Publisher
	dlqTopic     string
	retryTracker *retryTracker
}

func (h *consumerGroupHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerGroupHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		err := h.handler.HandleMessage(session.Context(), msg)
		if err == nil {
			if h.retryTracker != nil {
				h.retryTracker.clear(msg)
			}
			session.MarkMessage(msg, "")
			continue
		}

		h.logger.Error("kafka message handler error", "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
		if h.dlqPublisher == nil || h.dlqTopic == "" {
			continue
		}

		attempts := 1
		if h.retryTracker != nil {
			attempts = h.retryTracker.fail(msg)
			if attempts < h.retryTracker.maxAttempts {
				// Leave the offset unmarked so the message is redelivered.
				continue
			}
		}

		var dlqErr *DLQError
		if !errors.As(err, &dlqErr) {
			dlqErr = &DLQError{Err: err}
		}
		payload := BuildDLQPayload(msg, dlqErr, attempts)
		if _, _, pubErr := h.dlqPublisher.PublishJSON(session.Context(), h.dlqTopic, string(msg.Key), payload); pubErr != nil {
			h.logger.Error("kafka dlq publish failed", "topic", msg.Topic, "offset", msg.Offset, "error", pubErr)
			continue
		}
		if h.retryTracker != nil {
			h.retryTracker.clear(msg)
		}
		session.MarkMessage(msg, "")
	}
	return nil
}

// retryTracker counts handler failures per message so a poison message is
// retried a bounded number of times before it is dead-lettered. Entries
// older than the window reset; a rebalance mid-count just grants the
// message extra attempts.
type retryTracker struct {
	mu          sync.Mutex
	maxAttempts int
	window      time.Duration
	seen        map[string]retryEntry
}

type retryEntry struct {
	attempts int
	last     time.Time
}

func newRetryTracker(maxAttempts int, window time.Duration) *retryTracker {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &retryTracker{
		maxAttempts: maxAttempts,
		window:      window,
		seen:        make(map[string]retryEntry),
	}
}

func messageKey(msg *sarama.ConsumerMessage) string {
	return fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
}

func (t *retryTracker) fail(msg *sarama.ConsumerMessage) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	entry := t.seen[messageKey(msg)]
	if t.window > 0 && !entry.last.IsZero() && now.Sub(entry.last) > t.window {
		entry = retryEntry{}
	}
	entry.attempts++
	entry.last = now
	t.seen[messageKey(msg)] = entry
	return entry.attempts
}

func (t *retryTracker) clear(msg *sarama.ConsumerMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.seen, messageKey(msg))
}
