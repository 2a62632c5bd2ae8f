package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guardiavault-oss/Paradexx-sub007/services/testutil"
)

func integrationPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("RUN_DB_INTEGRATION") == "" {
		t.Skip("set RUN_DB_INTEGRATION=1 to run")
	}
	pool, err := testutil.SetupTestDB()
	if err != nil {
		t.Skipf("db connection failed: %v", err)
	}
	t.Cleanup(func() {
		_ = testutil.CleanupTestData(context.Background(), pool)
		pool.Close()
	})
	return pool
}

func testVault(ownerID uuid.UUID) (Vault, []Beneficiary) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	vaultID := uuid.New()
	vault := Vault{
		ID:                 vaultID,
		OwnerID:            ownerID,
		Name:               "integration-estate",
		Status:             VaultActive,
		InactivityPeriod:   30 * 24 * time.Hour,
		BypassWindow:       7 * 24 * time.Hour,
		QuorumThresholdBps: 5000,
		CycleID:            1,
		LastCheckInAt:      now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	beneficiaries := []Beneficiary{
		{ID: uuid.New(), VaultID: vaultID, Name: "heir-a", WalletAddress: "0xaaa", AllocationBps: 6000, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.New(), VaultID: vaultID, Name: "heir-b", WalletAddress: "0xbbb", AllocationBps: 4000, CreatedAt: now, UpdatedAt: now},
	}
	return vault, beneficiaries
}

func TestCreateVaultRoundTrip(t *testing.T) {
	pool := integrationPool(t)
	store := New(pool)
	ctx := context.Background()

	vault, beneficiaries := testVault(uuid.New())
	created, err := store.CreateVault(ctx, vault, beneficiaries)
	if err != nil {
		t.Fatalf("CreateVault: %v", err)
	}
	if created.Vault.ID != vault.ID || len(created.Beneficiaries) != 2 {
		t.Fatalf("unexpected created view: %+v", created)
	}

	view, err := store.GetVaultView(ctx, vault.ID)
	if err != nil {
		t.Fatalf("GetVaultView: %v", err)
	}
	if view.Vault.Status != VaultActive || view.Vault.CycleID != 1 {
		t.Fatalf("unexpected vault: %+v", view.Vault)
	}
	if !view.Vault.LastCheckInAt.Equal(vault.LastCheckInAt) {
		t.Fatalf("last check-in drifted: %s vs %s", view.Vault.LastCheckInAt, vault.LastCheckInAt)
	}

	owned, err := store.ListVaultsByOwner(ctx, vault.OwnerID)
	if err != nil {
		t.Fatalf("ListVaultsByOwner: %v", err)
	}
	if len(owned) != 1 || owned[0].ID != vault.ID {
		t.Fatalf("expected one owned vault, got %+v", owned)
	}
}

func TestWithVaultUpdateAppliesMutationAtomically(t *testing.T) {
	pool := integrationPool(t)
	store := New(pool)
	ctx := context.Background()

	vault, beneficiaries := testVault(uuid.New())
	if _, err := store.CreateVault(ctx, vault, beneficiaries); err != nil {
		t.Fatalf("CreateVault: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	guardian := Guardian{
		ID: uuid.New(), VaultID: vault.ID, Name: "guardian",
		Status: GuardianAccepted, Weight: 1, CreatedAt: now, UpdatedAt: now,
	}
	view, err := store.WithVaultUpdate(ctx, vault.ID, func(view *VaultView) (*Mutation, error) {
		changed := view.Vault
		changed.Status = VaultWarning
		changed.WarningSince = &now
		changed.UpdatedAt = now
		return &Mutation{Vault: &changed, UpsertGuardian: &guardian}, nil
	})
	if err != nil {
		t.Fatalf("WithVaultUpdate: %v", err)
	}
	if view.Vault.Status != VaultWarning || view.Vault.WarningSince == nil {
		t.Fatalf("warning transition not applied: %+v", view.Vault)
	}
	if view.Guardian(guardian.ID) == nil {
		t.Fatalf("guardian upsert not applied")
	}

	// An error from the update function must roll everything back.
	boom := errors.New("boom")
	_, err = store.WithVaultUpdate(ctx, vault.ID, func(view *VaultView) (*Mutation, error) {
		changed := view.Vault
		changed.Status = VaultCancelled
		return &Mutation{Vault: &changed}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected update error surfaced, got %v", err)
	}
	after, err := store.GetVaultView(ctx, vault.ID)
	if err != nil {
		t.Fatalf("GetVaultView: %v", err)
	}
	if after.Vault.Status != VaultWarning {
		t.Fatalf("failed update leaked a write: %s", after.Vault.Status)
	}
}

func TestOpenDistributionUniquePerCycle(t *testing.T) {
	pool := integrationPool(t)
	store := New(pool)
	ctx := context.Background()

	vault, beneficiaries := testVault(uuid.New())
	if _, err := store.CreateVault(ctx, vault, beneficiaries); err != nil {
		t.Fatalf("CreateVault: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	newEvent := func() *DistributionEvent {
		return &DistributionEvent{
			ID:      uuid.New(),
			VaultID: vault.ID,
			CycleID: vault.CycleID,
			Reason:  ReasonQuorumMet,
			Snapshot: []BeneficiarySnapshot{
				{BeneficiaryID: beneficiaries[0].ID, Name: "heir-a", AllocationBps: 6000, Fraction: "0.6"},
				{BeneficiaryID: beneficiaries[1].ID, Name: "heir-b", AllocationBps: 4000, Fraction: "0.4"},
			},
			TriggeredAt: now,
			Outcome:     OutcomePending,
		}
	}

	first := newEvent()
	if _, err := store.WithVaultUpdate(ctx, vault.ID, func(view *VaultView) (*Mutation, error) {
		return &Mutation{NewDistribution: first}, nil
	}); err != nil {
		t.Fatalf("first distribution insert: %v", err)
	}

	// Same cycle again: the conflict target swallows the insert.
	second := newEvent()
	view, err := store.WithVaultUpdate(ctx, vault.ID, func(view *VaultView) (*Mutation, error) {
		return &Mutation{NewDistribution: second}, nil
	})
	if err != nil {
		t.Fatalf("duplicate distribution insert: %v", err)
	}
	if view.OpenDistribution == nil || view.OpenDistribution.ID != first.ID {
		t.Fatalf("expected original event to survive, got %+v", view.OpenDistribution)
	}

	handoff := time.Now().UTC().Truncate(time.Microsecond)
	if err := store.MarkHandoff(ctx, first.ID, handoff); err != nil {
		t.Fatalf("MarkHandoff: %v", err)
	}
	event, err := store.GetDistributionEvent(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetDistributionEvent: %v", err)
	}
	if event.LastHandoffAt == nil || !event.LastHandoffAt.Equal(handoff) {
		t.Fatalf("handoff timestamp not recorded: %+v", event.LastHandoffAt)
	}
}

func TestTryWithVaultUpdateConflictsOnHeldLock(t *testing.T) {
	pool := integrationPool(t)
	store := New(pool)
	ctx := context.Background()

	vault, beneficiaries := testVault(uuid.New())
	if _, err := store.CreateVault(ctx, vault, beneficiaries); err != nil {
		t.Fatalf("CreateVault: %v", err)
	}

	// Hold the row lock in a separate transaction.
	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx, `SELECT id FROM vaults WHERE id = $1 FOR UPDATE`, vault.ID); err != nil {
		t.Fatalf("lock vault: %v", err)
	}

	_, err = store.TryWithVaultUpdate(ctx, vault.ID, func(view *VaultView) (*Mutation, error) {
		return nil, nil
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict against a held lock, got %v", err)
	}

	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if _, err := store.TryWithVaultUpdate(ctx, vault.ID, func(view *VaultView) (*Mutation, error) {
		return nil, nil
	}); err != nil {
		t.Fatalf("expected lock released after rollback, got %v", err)
	}
}
