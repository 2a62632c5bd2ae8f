// Package consumer applies executor outcomes from the distribution.results
// topic back onto vault state.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"log/slog"

	"github.com/guardiavault-oss/Paradexx-sub007/libs/kafka"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/service"
)

const resultsEventType = "distribution.results"

const (
	ResultConfirmed = "confirmed"
	ResultFailed    = "failed"
)

type DistributionResultEvent struct {
	kafka.Envelope
	DistributionID string `json:"distribution_id"`
	VaultID        string `json:"vault_id"`
	Status         string `json:"status"`
	Reason         string `json:"reason"`
	TxRef          string `json:"tx_ref"`
}

type Finalizer interface {
	ConfirmDistribution(ctx context.Context, eventID uuid.UUID) error
	FailDistribution(ctx context.Context, eventID uuid.UUID, reason string) error
}

type ResultConsumer struct {
	finalizer Finalizer
	logger    *slog.Logger
}

func NewResultConsumer(finalizer Finalizer, logger *slog.Logger) *ResultConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultConsumer{finalizer: finalizer, logger: logger}
}

// HandleMessage applies one executor result. Decode and validation failures
// return an error so the runner can route the message to the dead letter
// topic; an unknown distribution id is treated the same way.
func (c *ResultConsumer) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	if msg == nil || len(msg.Value) == 0 {
		return fmt.Errorf("empty kafka message")
	}

	var event DistributionResultEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("decode distribution result: %w", err)
	}
	if err := event.Validate(); err != nil {
		return err
	}

	distributionID, err := uuid.Parse(strings.TrimSpace(event.DistributionID))
	if err != nil {
		return fmt.Errorf("invalid distribution_id")
	}

	switch event.Status {
	case ResultConfirmed:
		err = c.finalizer.ConfirmDistribution(ctx, distributionID)
	case ResultFailed:
		err = c.finalizer.FailDistribution(ctx, distributionID, event.Reason)
	}
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.logger.Warn("result for unknown distribution", "distribution_id", distributionID, "event_id", event.EventID)
		}
		return fmt.Errorf("apply %s result: %w", event.Status, err)
	}

	c.logger.Info("distribution result applied",
		"distribution_id", distributionID,
		"status", event.Status,
		"event_id", event.EventID)
	return nil
}

func (e *DistributionResultEvent) Validate() error {
	if err := e.Envelope.Validate(); err != nil {
		return err
	}
	if e.EventType != resultsEventType {
		return fmt.Errorf("unexpected event_type: %s", e.EventType)
	}
	if strings.TrimSpace(e.DistributionID) == "" {
		return fmt.Errorf("distribution_id is required")
	}
	switch e.Status {
	case ResultConfirmed, ResultFailed:
	default:
		return fmt.Errorf("status must be confirmed or failed")
	}
	if e.Status == ResultFailed && strings.TrimSpace(e.Reason) == "" {
		return fmt.Errorf("reason is required for failed results")
	}
	return nil
}
