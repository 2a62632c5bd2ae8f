// Package notify emits vault lifecycle events for the external notification
// service. Delivery is best effort: a failed publish is logged and counted,
// never allowed to fail the state transition that produced it.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/guardiavault-oss/Paradexx-sub007/libs/kafka"
)

const (
	EventVaultCreated        = "vault.created"
	EventCheckInRecorded     = "vault.check_in_recorded"
	EventVaultWarning        = "vault.entered_warning"
	EventVaultReverted       = "vault.reverted_active"
	EventVaultMisconfigured  = "vault.misconfigured"
	EventGuardianInvited     = "guardian.invited"
	EventGuardianAccepted    = "guardian.accepted"
	EventGuardianDeclined    = "guardian.declined"
	EventGuardianRevoked     = "guardian.revoked"
	EventAttestationRecorded = "guardian.attestation_recorded"
	EventDistributionTrigger = "distribution.triggered"
	EventDistributionConfirm = "distribution.confirmed"
	EventDistributionFailed  = "distribution.failed"
	EventVaultCancelled      = "vault.cancelled"
)

type Event struct {
	kafka.Envelope
	VaultID    uuid.UUID         `json:"vault_id"`
	GuardianID *uuid.UUID        `json:"guardian_id,omitempty"`
	Cycle      int64             `json:"cycle_id"`
	Detail     map[string]string `json:"detail,omitempty"`
}

type Metrics struct {
	Emitted *prometheus.CounterVec
}

func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		Emitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vault_notifications_total",
				Help: "Total notification events emitted.",
			},
			[]string{"type", "status"},
		),
	}
	registry.MustRegister(m.Emitted)
	return m
}

type Notifier struct {
	publisher kafka.Publisher
	topic     string
	logger    *slog.Logger
	metrics   *Metrics
}

func New(publisher kafka.Publisher, topic string, logger *slog.Logger, metrics *Metrics) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		publisher: publisher,
		topic:     topic,
		logger:    logger,
		metrics:   metrics,
	}
}

func (n *Notifier) Emit(ctx context.Context, eventType string, vaultID uuid.UUID, cycle int64, guardianID *uuid.UUID, detail map[string]string) {
	if n == nil || n.publisher == nil {
		return
	}

	envelope, err := kafka.NewEnvelope(eventType, 1, "")
	if err != nil {
		n.logger.Error("notification envelope failed", "type", eventType, "error", err)
		return
	}
	envelope.Timestamp = time.Now().UTC()

	event := Event{
		Envelope:   envelope,
		VaultID:    vaultID,
		GuardianID: guardianID,
		Cycle:      cycle,
		Detail:     detail,
	}

	status := "success"
	if _, _, err := n.publisher.PublishJSON(ctx, n.topic, vaultID.String(), event); err != nil {
		status = "error"
		n.logger.Error("notification publish failed", "type", eventType, "vault_id", vaultID, "error", err)
	}
	if n.metrics != nil {
		n.metrics.Emitted.WithLabelValues(eventType, status).Inc()
	}
}
