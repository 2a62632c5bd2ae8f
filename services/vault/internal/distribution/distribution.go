// Package distribution creates the one distribution event per cycle and hands
// the finalized beneficiary snapshot to the external asset-transfer executor.
package distribution

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/guardiavault-oss/Paradexx-sub007/libs/kafka"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/storage"
)

type Metrics struct {
	Triggers      *prometheus.CounterVec
	Handoffs      *prometheus.CounterVec
	OpenEvents    prometheus.Gauge
	ReconcileRuns prometheus.Counter
}

func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		Triggers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "distribution_triggers_total",
				Help: "Distribution trigger calls by reason and result.",
			},
			[]string{"reason", "result"},
		),
		Handoffs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "distribution_handoffs_total",
				Help: "Executor hand-off publishes by status.",
			},
			[]string{"status"},
		),
		OpenEvents: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "distribution_open_events",
				Help: "Unfinalized distribution events awaiting executor confirmation.",
			},
		),
		ReconcileRuns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "distribution_reconcile_runs_total",
				Help: "Reconciliation sweep iterations.",
			},
		),
	}
	registry.MustRegister(m.Triggers, m.Handoffs, m.OpenEvents, m.ReconcileRuns)
	return m
}

type Trigger struct {
	publisher kafka.Publisher
	topic     string
	logger    *slog.Logger
	metrics   *Metrics
}

func NewTrigger(publisher kafka.Publisher, topic string, logger *slog.Logger, metrics *Metrics) *Trigger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trigger{
		publisher: publisher,
		topic:     topic,
		logger:    logger,
		metrics:   metrics,
	}
}

// Prepare moves the vault to distributing and records the distribution event
// for the current cycle. It must run inside the per-vault lock. Calling it
// again for the same cycle returns the existing event unchanged; the unique
// (vault_id, cycle_id) constraint backs this at the store level.
func (t *Trigger) Prepare(view *storage.VaultView, reason storage.TriggerReason, now time.Time) (*storage.DistributionEvent, *storage.Mutation, error) {
	if view.OpenDistribution != nil {
		if t.metrics != nil {
			t.metrics.Triggers.WithLabelValues(string(reason), "existing").Inc()
		}
		return view.OpenDistribution, nil, nil
	}

	event := &storage.DistributionEvent{
		ID:          uuid.New(),
		VaultID:     view.Vault.ID,
		CycleID:     view.Vault.CycleID,
		Reason:      reason,
		Snapshot:    Snapshot(view.Beneficiaries),
		TriggeredAt: now,
		Finalized:   false,
		Outcome:     storage.OutcomePending,
	}

	vault := view.Vault
	vault.Status = storage.VaultDistributing
	vault.UpdatedAt = now

	if t.metrics != nil {
		t.metrics.Triggers.WithLabelValues(string(reason), "created").Inc()
	}

	return event, &storage.Mutation{Vault: &vault, NewDistribution: event}, nil
}

// Snapshot copies the non-revoked beneficiary set at trigger time. Later edits
// to the vault never reach the executor.
func Snapshot(beneficiaries []storage.Beneficiary) []storage.BeneficiarySnapshot {
	out := make([]storage.BeneficiarySnapshot, 0, len(beneficiaries))
	for _, b := range beneficiaries {
		if b.Revoked {
			continue
		}
		fraction := decimal.NewFromInt(int64(b.AllocationBps)).Div(decimal.NewFromInt(10000))
		out = append(out, storage.BeneficiarySnapshot{
			BeneficiaryID: b.ID,
			Name:          b.Name,
			WalletAddress: b.WalletAddress,
			AllocationBps: b.AllocationBps,
			Fraction:      fraction.String(),
		})
	}
	return out
}

type HandoffPayload struct {
	kafka.Envelope
	DistributionID uuid.UUID                     `json:"distribution_id"`
	VaultID        uuid.UUID                     `json:"vault_id"`
	CycleID        int64                         `json:"cycle_id"`
	Reason         storage.TriggerReason         `json:"reason"`
	TriggeredAt    time.Time                     `json:"triggered_at"`
	Beneficiaries  []storage.BeneficiarySnapshot `json:"beneficiaries"`
}

// Handoff publishes the executor hand-off for an event. It runs outside the
// per-vault lock and is safe to repeat: the event id is deterministic per
// distribution, so the executor can dedupe.
func (t *Trigger) Handoff(ctx context.Context, event *storage.DistributionEvent) error {
	envelope, err := kafka.NewEnvelopeWithID(
		kafka.DeterministicEventID("distribution", event.VaultID.String(), event.ID.String()),
		"distribution.requested", 1, "")
	if err != nil {
		return err
	}

	payload := HandoffPayload{
		Envelope:       envelope,
		DistributionID: event.ID,
		VaultID:        event.VaultID,
		CycleID:        event.CycleID,
		Reason:         event.Reason,
		TriggeredAt:    event.TriggeredAt,
		Beneficiaries:  event.Snapshot,
	}

	_, _, err = t.publisher.PublishJSON(ctx, t.topic, event.VaultID.String(), payload)
	if t.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		t.metrics.Handoffs.WithLabelValues(status).Inc()
	}
	if err != nil {
		t.logger.Error("distribution handoff failed", "distribution_id", event.ID, "vault_id", event.VaultID, "error", err)
		return err
	}
	return nil
}
