// Package service is the façade every other subsystem talks to. It enforces
// the vault invariants at the API boundary and is the only writer besides the
// background monitor; both go through the store's per-vault lock.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/allocation"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/clock"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/consensus"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/distribution"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/notify"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/storage"
)

type Store interface {
	CreateVault(ctx context.Context, vault storage.Vault, beneficiaries []storage.Beneficiary) (*storage.VaultView, error)
	GetVaultView(ctx context.Context, vaultID uuid.UUID) (*storage.VaultView, error)
	ListVaultsByOwner(ctx context.Context, ownerID uuid.UUID) ([]storage.Vault, error)
	WithVaultUpdate(ctx context.Context, vaultID uuid.UUID, fn storage.UpdateFunc) (*storage.VaultView, error)
	GetGuardian(ctx context.Context, guardianID uuid.UUID) (*storage.Guardian, error)
	GetDistributionEvent(ctx context.Context, eventID uuid.UUID) (*storage.DistributionEvent, error)
	MarkHandoff(ctx context.Context, eventID uuid.UUID, at time.Time) error
}

type Config struct {
	MaxAttempts         int
	RetryBackoff        time.Duration
	DefaultQuorumBps    int
	DefaultBypassWindow time.Duration
}

func (c *Config) normalize() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 100 * time.Millisecond
	}
	if c.DefaultQuorumBps <= 0 {
		c.DefaultQuorumBps = consensus.DefaultThresholdBps
	}
	if c.DefaultBypassWindow <= 0 {
		c.DefaultBypassWindow = 7 * 24 * time.Hour
	}
}

type Service struct {
	store    Store
	trigger  *distribution.Trigger
	notifier *notify.Notifier
	clock    clock.Clock
	logger   *slog.Logger
	metrics  *Metrics
	cfg      Config
}

func New(store Store, trigger *distribution.Trigger, notifier *notify.Notifier, clk clock.Clock, logger *slog.Logger, metrics *Metrics, cfg Config) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.System()
	}
	cfg.normalize()
	return &Service{
		store:    store,
		trigger:  trigger,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
		metrics:  metrics,
		cfg:      cfg,
	}
}

type CreateVaultInput struct {
	OwnerID            uuid.UUID
	Name               string
	InactivityPeriod   time.Duration
	BypassWindow       time.Duration
	QuorumThresholdBps int
	Beneficiaries      []BeneficiaryInput
}

type BeneficiaryInput struct {
	Name          string
	Contact       string
	WalletAddress string
	AllocationBps int
}

func (s *Service) CreateVault(ctx context.Context, input CreateVaultInput) (*storage.VaultView, error) {
	if input.OwnerID == uuid.Nil {
		return nil, fmt.Errorf("%w: owner required", ErrInvalidInput)
	}
	if input.InactivityPeriod <= 0 {
		return nil, fmt.Errorf("%w: inactivity period must be positive", ErrInvalidInput)
	}
	if input.BypassWindow < 0 {
		return nil, fmt.Errorf("%w: bypass window must be positive", ErrInvalidInput)
	}
	if input.BypassWindow == 0 {
		input.BypassWindow = s.cfg.DefaultBypassWindow
	}
	if input.QuorumThresholdBps == 0 {
		input.QuorumThresholdBps = s.cfg.DefaultQuorumBps
	}
	if input.QuorumThresholdBps < 0 || input.QuorumThresholdBps >= 10000 {
		return nil, fmt.Errorf("%w: quorum threshold out of range", ErrInvalidInput)
	}

	now := s.clock.Now()
	vaultID := uuid.New()

	beneficiaries := make([]storage.Beneficiary, 0, len(input.Beneficiaries))
	for _, b := range input.Beneficiaries {
		beneficiaries = append(beneficiaries, storage.Beneficiary{
			ID:            uuid.New(),
			VaultID:       vaultID,
			Name:          b.Name,
			Contact:       b.Contact,
			WalletAddress: b.WalletAddress,
			AllocationBps: b.AllocationBps,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}
	if err := allocation.Validate(allocation.FromBeneficiaries(beneficiaries)); err != nil {
		return nil, err
	}

	vault := storage.Vault{
		ID:                 vaultID,
		OwnerID:            input.OwnerID,
		Name:               input.Name,
		Status:             storage.VaultActive,
		InactivityPeriod:   input.InactivityPeriod,
		BypassWindow:       input.BypassWindow,
		QuorumThresholdBps: input.QuorumThresholdBps,
		CycleID:            1,
		LastCheckInAt:      now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	view, err := s.store.CreateVault(ctx, vault, beneficiaries)
	if err != nil {
		return nil, s.mapStoreError(err)
	}

	if s.metrics != nil {
		s.metrics.VaultsCreated.Inc()
	}
	s.notifier.Emit(ctx, notify.EventVaultCreated, vaultID, 1, nil, nil)
	return view, nil
}

// CheckIn appends a check-in record and synchronously re-evaluates the vault.
// Only the owner can check in; anyone else resetting the timer would defeat
// the switch. A check-in while in warning reverts the vault to active and
// invalidates the attestation cycle. Once a vault is distributing (or
// beyond), check-ins are refused with ErrTerminalState: distribution is a
// point of no return.
func (s *Service) CheckIn(ctx context.Context, vaultID, ownerID uuid.UUID, source storage.CheckInSource, note string) (*storage.VaultView, error) {
	var reverted bool

	view, err := s.withRetry(ctx, func() (*storage.VaultView, error) {
		reverted = false
		return s.store.WithVaultUpdate(ctx, vaultID, func(view *storage.VaultView) (*storage.Mutation, error) {
			vault := view.Vault
			if vault.OwnerID != ownerID {
				return nil, ErrUnauthorized
			}
			if vault.Status.Terminal() {
				return nil, ErrTerminalState
			}

			now := s.clock.Now()
			record := &storage.CheckInRecord{
				ID:      uuid.New(),
				VaultID: vaultID,
				At:      now,
				Source:  source,
				Note:    note,
			}

			vault.LastCheckInAt = now
			vault.UpdatedAt = now
			if vault.Status == storage.VaultWarning {
				vault.Status = storage.VaultActive
				vault.WarningSince = nil
				vault.CycleID++
				reverted = true
			}

			return &storage.Mutation{Vault: &vault, NewCheckIn: record}, nil
		})
	})
	if err != nil {
		if s.metrics != nil {
			label := "error"
			if errors.Is(err, ErrTerminalState) {
				label = "terminal"
			}
			s.metrics.CheckIns.WithLabelValues(string(source), label).Inc()
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.CheckIns.WithLabelValues(string(source), "ok").Inc()
		if reverted {
			s.metrics.CycleResets.Inc()
		}
	}
	s.notifier.Emit(ctx, notify.EventCheckInRecorded, vaultID, view.Vault.CycleID, nil, map[string]string{"source": string(source)})
	if reverted {
		s.notifier.Emit(ctx, notify.EventVaultReverted, vaultID, view.Vault.CycleID, nil, nil)
	}
	return view, nil
}

type GuardianInput struct {
	Name    string
	Contact string
	Weight  int
}

func (s *Service) InviteGuardian(ctx context.Context, vaultID, ownerID uuid.UUID, input GuardianInput) (*storage.Guardian, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: guardian name required", ErrInvalidInput)
	}
	weight := input.Weight
	if weight <= 0 {
		weight = 1
	}

	var created storage.Guardian
	_, err := s.withRetry(ctx, func() (*storage.VaultView, error) {
		return s.store.WithVaultUpdate(ctx, vaultID, func(view *storage.VaultView) (*storage.Mutation, error) {
			if view.Vault.OwnerID != ownerID {
				return nil, ErrUnauthorized
			}
			if view.Vault.Status.Terminal() {
				return nil, ErrTerminalState
			}

			now := s.clock.Now()
			created = storage.Guardian{
				ID:        uuid.New(),
				VaultID:   vaultID,
				Name:      input.Name,
				Contact:   input.Contact,
				Status:    storage.GuardianInvited,
				Weight:    weight,
				CreatedAt: now,
				UpdatedAt: now,
			}
			return &storage.Mutation{UpsertGuardian: &created}, nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Emit(ctx, notify.EventGuardianInvited, vaultID, 0, &created.ID, nil)
	return &created, nil
}

func (s *Service) AcceptGuardianInvite(ctx context.Context, guardianID uuid.UUID) (*storage.Guardian, error) {
	return s.answerInvite(ctx, guardianID, storage.GuardianAccepted, notify.EventGuardianAccepted)
}

func (s *Service) DeclineGuardianInvite(ctx context.Context, guardianID uuid.UUID) (*storage.Guardian, error) {
	return s.answerInvite(ctx, guardianID, storage.GuardianDeclined, notify.EventGuardianDeclined)
}

func (s *Service) answerInvite(ctx context.Context, guardianID uuid.UUID, status storage.GuardianStatus, event string) (*storage.Guardian, error) {
	guardian, err := s.store.GetGuardian(ctx, guardianID)
	if err != nil {
		return nil, s.mapStoreError(err)
	}

	var answered storage.Guardian
	_, err = s.withRetry(ctx, func() (*storage.VaultView, error) {
		return s.store.WithVaultUpdate(ctx, guardian.VaultID, func(view *storage.VaultView) (*storage.Mutation, error) {
			g := view.Guardian(guardianID)
			if g == nil {
				return nil, ErrNotFound
			}
			if view.Vault.Status == storage.VaultCancelled || view.Vault.Status == storage.VaultDistributed {
				return nil, ErrTerminalState
			}
			if g.Status == status {
				answered = *g
				return nil, nil
			}
			if g.Status != storage.GuardianInvited {
				return nil, ErrGuardianNotAuthorized
			}

			answered = *g
			answered.Status = status
			answered.UpdatedAt = s.clock.Now()
			return &storage.Mutation{UpsertGuardian: &answered}, nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Emit(ctx, event, guardian.VaultID, 0, &guardianID, nil)
	return &answered, nil
}

// RevokeGuardian removes a guardian from future quorum evaluation. If the
// current cycle already triggered a distribution, that result stands;
// attestations are immutable once their cycle is closed.
func (s *Service) RevokeGuardian(ctx context.Context, vaultID, guardianID, ownerID uuid.UUID) (*storage.Guardian, error) {
	var revoked storage.Guardian
	_, err := s.withRetry(ctx, func() (*storage.VaultView, error) {
		return s.store.WithVaultUpdate(ctx, vaultID, func(view *storage.VaultView) (*storage.Mutation, error) {
			if view.Vault.OwnerID != ownerID {
				return nil, ErrUnauthorized
			}
			g := view.Guardian(guardianID)
			if g == nil {
				return nil, ErrNotFound
			}
			if view.Vault.Status == storage.VaultCancelled || view.Vault.Status == storage.VaultDistributed {
				return nil, ErrTerminalState
			}

			revoked = *g
			revoked.Status = storage.GuardianRevoked
			revoked.UpdatedAt = s.clock.Now()
			return &storage.Mutation{UpsertGuardian: &revoked}, nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Emit(ctx, notify.EventGuardianRevoked, vaultID, 0, &guardianID, nil)
	return &revoked, nil
}

func (s *Service) AddBeneficiary(ctx context.Context, vaultID, ownerID uuid.UUID, input BeneficiaryInput) (*storage.VaultView, error) {
	now := s.clock.Now()
	candidate := storage.Beneficiary{
		ID:            uuid.New(),
		VaultID:       vaultID,
		Name:          input.Name,
		Contact:       input.Contact,
		WalletAddress: input.WalletAddress,
		AllocationBps: input.AllocationBps,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return s.mutateBeneficiary(ctx, vaultID, ownerID, candidate.ID, func(view *storage.VaultView) storage.Beneficiary {
		return candidate
	})
}

type AllocationUpdate struct {
	AllocationBps *int
	WalletAddress *string
	Contact       *string
}

func (s *Service) UpdateAllocation(ctx context.Context, vaultID, beneficiaryID, ownerID uuid.UUID, update AllocationUpdate) (*storage.VaultView, error) {
	return s.mutateBeneficiary(ctx, vaultID, ownerID, beneficiaryID, func(view *storage.VaultView) storage.Beneficiary {
		existing := view.Beneficiary(beneficiaryID)
		if existing == nil {
			return storage.Beneficiary{}
		}
		changed := *existing
		if update.AllocationBps != nil {
			changed.AllocationBps = *update.AllocationBps
		}
		if update.WalletAddress != nil {
			changed.WalletAddress = *update.WalletAddress
		}
		if update.Contact != nil {
			changed.Contact = *update.Contact
		}
		changed.UpdatedAt = s.clock.Now()
		return changed
	})
}

func (s *Service) RemoveBeneficiary(ctx context.Context, vaultID, beneficiaryID, ownerID uuid.UUID) (*storage.VaultView, error) {
	return s.mutateBeneficiary(ctx, vaultID, ownerID, beneficiaryID, func(view *storage.VaultView) storage.Beneficiary {
		existing := view.Beneficiary(beneficiaryID)
		if existing == nil {
			return storage.Beneficiary{}
		}
		removed := *existing
		removed.Revoked = true
		removed.UpdatedAt = s.clock.Now()
		return removed
	})
}

// mutateBeneficiary applies one beneficiary change and re-validates the whole
// allocation set before committing. An invalid result rejects the change
// atomically: prior state is untouched.
func (s *Service) mutateBeneficiary(ctx context.Context, vaultID, ownerID, beneficiaryID uuid.UUID, change func(*storage.VaultView) storage.Beneficiary) (*storage.VaultView, error) {
	return s.withRetry(ctx, func() (*storage.VaultView, error) {
		return s.store.WithVaultUpdate(ctx, vaultID, func(view *storage.VaultView) (*storage.Mutation, error) {
			if view.Vault.OwnerID != ownerID {
				return nil, ErrUnauthorized
			}
			if view.Vault.Status.Terminal() {
				return nil, ErrTerminalState
			}

			changed := change(view)
			if changed.ID == uuid.Nil {
				return nil, ErrNotFound
			}

			candidate := make([]storage.Beneficiary, 0, len(view.Beneficiaries)+1)
			replaced := false
			for _, b := range view.Beneficiaries {
				if b.ID == changed.ID {
					candidate = append(candidate, changed)
					replaced = true
					continue
				}
				candidate = append(candidate, b)
			}
			if !replaced {
				candidate = append(candidate, changed)
			}

			if err := allocation.Validate(allocation.FromBeneficiaries(candidate)); err != nil {
				return nil, err
			}

			mut := &storage.Mutation{UpsertBeneficiary: &changed}
			if view.Vault.Misconfigured {
				vault := view.Vault
				vault.Misconfigured = false
				vault.UpdatedAt = s.clock.Now()
				mut.Vault = &vault
			}
			return mut, nil
		})
	})
}

type AttestationResult struct {
	Tally     consensus.Tally
	CycleID   int64
	Triggered bool
}

// SubmitAttestation records a guardian's inactivity attestation for the
// current cycle (resubmission overwrites) and triggers distribution
// immediately if the new tally reaches quorum.
func (s *Service) SubmitAttestation(ctx context.Context, vaultID, guardianID uuid.UUID, attestedInactive bool) (*AttestationResult, error) {
	var result AttestationResult
	var handoff *storage.DistributionEvent

	_, err := s.withRetry(ctx, func() (*storage.VaultView, error) {
		result = AttestationResult{}
		handoff = nil
		return s.store.WithVaultUpdate(ctx, vaultID, func(view *storage.VaultView) (*storage.Mutation, error) {
			vault := view.Vault
			if vault.Status == storage.VaultCancelled || vault.Status == storage.VaultDistributed {
				return nil, ErrTerminalState
			}

			guardian := view.Guardian(guardianID)
			if guardian == nil || guardian.Status != storage.GuardianAccepted {
				return nil, ErrGuardianNotAuthorized
			}
			if vault.Status != storage.VaultWarning {
				return nil, ErrCycleClosed
			}

			now := s.clock.Now()
			att := &storage.Attestation{
				ID:               uuid.New(),
				VaultID:          vaultID,
				GuardianID:       guardianID,
				CycleID:          vault.CycleID,
				AttestedInactive: attestedInactive,
				At:               now,
			}

			// Tally with the new attestation applied.
			tallied := make([]storage.Attestation, 0, len(view.Attestations)+1)
			for _, existing := range view.Attestations {
				if existing.GuardianID == guardianID {
					continue
				}
				tallied = append(tallied, existing)
			}
			tallied = append(tallied, *att)

			tally := consensus.Evaluate(view.Guardians, tallied, vault.QuorumThresholdBps)
			result = AttestationResult{Tally: tally, CycleID: vault.CycleID}

			if !tally.QuorumMet {
				return &storage.Mutation{UpsertAttestation: att}, nil
			}

			event, mut, err := s.trigger.Prepare(view, storage.ReasonQuorumMet, now)
			if err != nil {
				return nil, err
			}
			if mut == nil {
				// Already distributing for this cycle; just record the vote.
				mut = &storage.Mutation{}
			}
			mut.UpsertAttestation = att
			handoff = event
			result.Triggered = true
			return mut, nil
		})
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.Attestations.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.Attestations.WithLabelValues("ok").Inc()
	}
	s.notifier.Emit(ctx, notify.EventAttestationRecorded, vaultID, result.CycleID, &guardianID, nil)

	if handoff != nil {
		s.notifier.Emit(ctx, notify.EventDistributionTrigger, vaultID, handoff.CycleID, nil, map[string]string{"reason": string(handoff.Reason)})
		if err := s.trigger.Handoff(ctx, handoff); err == nil {
			if err := s.store.MarkHandoff(ctx, handoff.ID, s.clock.Now()); err != nil {
				s.logger.Error("mark handoff failed", "distribution_id", handoff.ID, "error", err)
			}
		}
	}
	return &result, nil
}

func (s *Service) CancelVault(ctx context.Context, vaultID, ownerID uuid.UUID) (*storage.VaultView, error) {
	view, err := s.withRetry(ctx, func() (*storage.VaultView, error) {
		return s.store.WithVaultUpdate(ctx, vaultID, func(view *storage.VaultView) (*storage.Mutation, error) {
			if view.Vault.OwnerID != ownerID {
				return nil, ErrUnauthorized
			}
			if view.Vault.Status.Terminal() {
				return nil, ErrTerminalState
			}

			vault := view.Vault
			vault.Status = storage.VaultCancelled
			vault.UpdatedAt = s.clock.Now()
			return &storage.Mutation{Vault: &vault}, nil
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.Cancellations.Inc()
	}
	s.notifier.Emit(ctx, notify.EventVaultCancelled, vaultID, view.Vault.CycleID, nil, nil)
	return view, nil
}

type VaultStatusView struct {
	View  *storage.VaultView
	Tally consensus.Tally
}

// GetVault returns the full vault status. The view exposes beneficiary
// wallets and guardian contacts, so it is owner-only.
func (s *Service) GetVault(ctx context.Context, vaultID, ownerID uuid.UUID) (*VaultStatusView, error) {
	view, err := s.store.GetVaultView(ctx, vaultID)
	if err != nil {
		return nil, s.mapStoreError(err)
	}
	if view.Vault.OwnerID != ownerID {
		return nil, ErrUnauthorized
	}
	tally := consensus.Evaluate(view.Guardians, view.Attestations, view.Vault.QuorumThresholdBps)
	return &VaultStatusView{View: view, Tally: tally}, nil
}

func (s *Service) ListVaults(ctx context.Context, ownerID uuid.UUID) ([]storage.Vault, error) {
	vaults, err := s.store.ListVaultsByOwner(ctx, ownerID)
	if err != nil {
		return nil, s.mapStoreError(err)
	}
	return vaults, nil
}

// ConfirmDistribution is the external executor acknowledging the transfer.
// The vault becomes distributed and the event finalizes. Idempotent.
func (s *Service) ConfirmDistribution(ctx context.Context, eventID uuid.UUID) error {
	event, err := s.store.GetDistributionEvent(ctx, eventID)
	if err != nil {
		return s.mapStoreError(err)
	}

	_, err = s.withRetry(ctx, func() (*storage.VaultView, error) {
		return s.store.WithVaultUpdate(ctx, event.VaultID, func(view *storage.VaultView) (*storage.Mutation, error) {
			if view.OpenDistribution == nil || view.OpenDistribution.ID != eventID {
				if event.Finalized {
					return nil, nil
				}
				return nil, ErrNotFound
			}
			if view.OpenDistribution.Finalized {
				return nil, nil
			}

			now := s.clock.Now()
			finalized := *view.OpenDistribution
			finalized.Finalized = true
			finalized.Outcome = storage.OutcomeConfirmed

			vault := view.Vault
			vault.Status = storage.VaultDistributed
			vault.UpdatedAt = now
			return &storage.Mutation{Vault: &vault, FinalizeEvent: &finalized}, nil
		})
	})
	if err != nil {
		return err
	}

	s.notifier.Emit(ctx, notify.EventDistributionConfirm, event.VaultID, event.CycleID, nil, nil)
	return nil
}

// FailDistribution records an executor failure. The event stays open so the
// reconciliation sweep keeps retrying; the vault never silently reverts.
func (s *Service) FailDistribution(ctx context.Context, eventID uuid.UUID, reason string) error {
	event, err := s.store.GetDistributionEvent(ctx, eventID)
	if err != nil {
		return s.mapStoreError(err)
	}

	_, err = s.withRetry(ctx, func() (*storage.VaultView, error) {
		return s.store.WithVaultUpdate(ctx, event.VaultID, func(view *storage.VaultView) (*storage.Mutation, error) {
			if view.OpenDistribution == nil || view.OpenDistribution.ID != eventID {
				return nil, ErrNotFound
			}
			if view.OpenDistribution.Finalized {
				return nil, ErrTerminalState
			}

			failed := *view.OpenDistribution
			failed.Outcome = storage.OutcomeFailed
			failed.FailureReason = reason
			return &storage.Mutation{FinalizeEvent: &failed}, nil
		})
	})
	if err != nil {
		return err
	}

	s.logger.Warn("distribution failed by executor", "distribution_id", eventID, "reason", reason)
	s.notifier.Emit(ctx, notify.EventDistributionFailed, event.VaultID, event.CycleID, nil, map[string]string{"reason": reason})
	return nil
}

// withRetry retries transient store failures (lock contention, connection
// loss) with backoff; domain errors surface immediately. Exhausted retries
// surface as ErrUnavailable.
func (s *Service) withRetry(ctx context.Context, fn func() (*storage.VaultView, error)) (*storage.VaultView, error) {
	var lastErr error
	for attempt := 0; attempt < s.cfg.MaxAttempts; attempt++ {
		view, err := fn()
		if err == nil {
			return view, nil
		}
		mapped := s.mapStoreError(err)
		if !retryable(mapped) {
			return nil, mapped
		}
		lastErr = mapped

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.cfg.RetryBackoff << attempt):
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (s *Service) mapStoreError(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrGuardianNotAuthorized),
		errors.Is(err, ErrCycleClosed),
		errors.Is(err, ErrTerminalState),
		errors.Is(err, ErrInvalidInput):
		return false
	}
	var allocErr *allocation.InvalidAllocationError
	if errors.As(err, &allocErr) {
		return false
	}
	return true
}
