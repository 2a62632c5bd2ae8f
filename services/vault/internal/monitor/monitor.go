// Package monitor drives the vault lifecycle on wall time: active vaults past
// their inactivity period enter warning, warning vaults distribute on quorum
// or when the bypass window elapses. Event-driven transitions (check-ins,
// attestations) happen synchronously in the service; the sweep exists to catch
// pure time-based expiry.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/semaphore"

	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/allocation"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/clock"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/consensus"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/distribution"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/notify"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/storage"
)

type Store interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	TryWithVaultUpdate(ctx context.Context, vaultID uuid.UUID, fn storage.UpdateFunc) (*storage.VaultView, error)
	MarkHandoff(ctx context.Context, eventID uuid.UUID, at time.Time) error
}

type Config struct {
	SweepInterval time.Duration
	SweepTimeout  time.Duration
	MaxConcurrent int64
	BatchSize     int
	BackoffBase   time.Duration
	BackoffMax    time.Duration
}

func (c *Config) normalize() {
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	if c.SweepTimeout <= 0 {
		c.SweepTimeout = 30 * time.Second
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 8
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 5 * time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 10 * time.Minute
	}
}

type Metrics struct {
	SweepDuration prometheus.Histogram
	Transitions   *prometheus.CounterVec
	SweepErrors   prometheus.Counter
}

func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		SweepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vault_sweep_duration_seconds",
				Help:    "Duration of monitor sweep iterations.",
				Buckets: prometheus.DefBuckets,
			},
		),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vault_transitions_total",
				Help: "Vault state transitions by from, to and reason.",
			},
			[]string{"from", "to", "reason"},
		),
		SweepErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vault_sweep_errors_total",
				Help: "Vault evaluations that failed and will be retried.",
			},
		),
	}
	registry.MustRegister(m.SweepDuration, m.Transitions, m.SweepErrors)
	return m
}

type backoffEntry struct {
	attempts int
	next     time.Time
}

type Monitor struct {
	store    Store
	trigger  *distribution.Trigger
	notifier *notify.Notifier
	clock    clock.Clock
	logger   *slog.Logger
	metrics  *Metrics
	cfg      Config

	mu      sync.Mutex
	backoff map[uuid.UUID]backoffEntry
}

func New(store Store, trigger *distribution.Trigger, notifier *notify.Notifier, clk clock.Clock, logger *slog.Logger, metrics *Metrics, cfg Config) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.System()
	}
	cfg.normalize()
	return &Monitor{
		store:    store,
		trigger:  trigger,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
		metrics:  metrics,
		cfg:      cfg,
		backoff:  make(map[uuid.UUID]backoffEntry),
	}
}

func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep processes every due vault once, bounded by MaxConcurrent, with at most
// one in-flight evaluation per vault (the store's per-vault lock enforces
// mutual exclusion with live check-ins and attestations).
func (m *Monitor) Sweep(ctx context.Context) {
	start := time.Now()
	sweepCtx, cancel := context.WithTimeout(ctx, m.cfg.SweepTimeout)
	defer cancel()

	now := m.clock.Now()
	ids, err := m.store.ListDue(sweepCtx, now, m.cfg.BatchSize)
	if err != nil {
		m.logger.Error("sweep list due failed", "error", err)
		if m.metrics != nil {
			m.metrics.SweepErrors.Inc()
		}
		return
	}

	sem := semaphore.NewWeighted(m.cfg.MaxConcurrent)
	var wg sync.WaitGroup
	for _, id := range ids {
		if err := sem.Acquire(sweepCtx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(vaultID uuid.UUID) {
			defer wg.Done()
			defer sem.Release(1)
			m.Evaluate(sweepCtx, vaultID)
		}(id)
	}
	wg.Wait()

	if m.metrics != nil {
		m.metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}
}

// Evaluate advances a single vault if its timers have expired. Errors are
// retried on later sweeps with exponential backoff; they are never dropped.
func (m *Monitor) Evaluate(ctx context.Context, vaultID uuid.UUID) {
	now := m.clock.Now()
	if m.deferred(vaultID, now) {
		return
	}

	var handoff *storage.DistributionEvent
	var transition string

	updated, err := m.store.TryWithVaultUpdate(ctx, vaultID, func(view *storage.VaultView) (*storage.Mutation, error) {
		mut, event, note, err := m.advance(view, now)
		handoff = event
		transition = note
		return mut, err
	})

	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			// A live check-in or attestation holds the lock and will
			// re-evaluate the vault itself.
			return
		}
		m.noteFailure(vaultID, now)
		if m.metrics != nil {
			m.metrics.SweepErrors.Inc()
		}
		m.logger.Error("vault evaluation failed", "vault_id", vaultID, "error", err)
		return
	}
	m.clearFailure(vaultID)

	var cycle int64
	if updated != nil {
		cycle = updated.Vault.CycleID
	}

	switch transition {
	case "warning":
		m.notifier.Emit(ctx, notify.EventVaultWarning, vaultID, cycle, nil, nil)
	case "misconfigured":
		m.notifier.Emit(ctx, notify.EventVaultMisconfigured, vaultID, cycle, nil, nil)
	}

	if handoff != nil {
		m.notifier.Emit(ctx, notify.EventDistributionTrigger, vaultID, handoff.CycleID, nil, map[string]string{"reason": string(handoff.Reason)})
		if err := m.trigger.Handoff(ctx, handoff); err == nil {
			if err := m.store.MarkHandoff(ctx, handoff.ID, m.clock.Now()); err != nil {
				m.logger.Error("mark handoff failed", "distribution_id", handoff.ID, "error", err)
			}
		}
	}
}

// advance holds the state machine proper. It runs under the per-vault lock.
func (m *Monitor) advance(view *storage.VaultView, now time.Time) (*storage.Mutation, *storage.DistributionEvent, string, error) {
	vault := view.Vault

	switch vault.Status {
	case storage.VaultActive:
		if now.Sub(vault.LastCheckInAt) <= vault.InactivityPeriod {
			return nil, nil, "", nil
		}
		// A vault must never enter warning, and from there distribution, with
		// an invalid allocation set. Flag it and hold in active instead.
		if err := allocation.Validate(allocation.FromBeneficiaries(view.Beneficiaries)); err != nil {
			if vault.Misconfigured {
				return nil, nil, "", nil
			}
			vault.Misconfigured = true
			vault.UpdatedAt = now
			m.countTransition("active", "active", "misconfigured")
			return &storage.Mutation{Vault: &vault}, nil, "misconfigured", nil
		}
		warningSince := now
		vault.Status = storage.VaultWarning
		vault.WarningSince = &warningSince
		vault.Misconfigured = false
		vault.UpdatedAt = now
		m.countTransition("active", "warning", "inactivity")
		return &storage.Mutation{Vault: &vault}, nil, "warning", nil

	case storage.VaultWarning:
		tally := consensus.Evaluate(view.Guardians, view.Attestations, vault.QuorumThresholdBps)
		if tally.QuorumMet {
			event, mut, err := m.trigger.Prepare(view, storage.ReasonQuorumMet, now)
			if err != nil {
				return nil, nil, "", err
			}
			m.countTransition("warning", "distributing", "quorum_met")
			return mut, event, "distributing", nil
		}
		if vault.WarningSince != nil && now.Sub(*vault.WarningSince) > vault.BypassWindow {
			event, mut, err := m.trigger.Prepare(view, storage.ReasonTimeoutBypass, now)
			if err != nil {
				return nil, nil, "", err
			}
			m.countTransition("warning", "distributing", "timeout_bypass")
			return mut, event, "distributing", nil
		}
		return nil, nil, "", nil

	default:
		// distributing, distributed and cancelled vaults are not the sweep's
		// business; the reconciler owns stuck distributions.
		return nil, nil, "", nil
	}
}

func (m *Monitor) countTransition(from, to, reason string) {
	if m.metrics != nil {
		m.metrics.Transitions.WithLabelValues(from, to, reason).Inc()
	}
}

func (m *Monitor) deferred(vaultID uuid.UUID, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.backoff[vaultID]
	return ok && now.Before(entry.next)
}

func (m *Monitor) noteFailure(vaultID uuid.UUID, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := m.backoff[vaultID]
	entry.attempts++
	delay := m.cfg.BackoffBase << (entry.attempts - 1)
	if delay > m.cfg.BackoffMax || delay <= 0 {
		delay = m.cfg.BackoffMax
	}
	entry.next = now.Add(delay)
	m.backoff[vaultID] = entry
}

func (m *Monitor) clearFailure(vaultID uuid.UUID) {
	m.mu.Lock()
	delete(m.backoff, vaultID)
	m.mu.Unlock()
}
