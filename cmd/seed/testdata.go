package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	warningVaultID       = uuid.MustParse("00000000-0000-0000-0000-000000000102")
	misconfiguredVaultID = uuid.MustParse("00000000-0000-0000-0000-000000000103")
)

// seedTestData adds vaults in interesting states for end-to-end testing: one
// already in warning with a live attestation, one held back by an allocation
// gap.
func seedTestData(ctx context.Context, pool *pgxpool.Pool) error {
	now := time.Now()

	warningSince := now.Add(-24 * time.Hour)
	lastCheckIn := now.Add(-31 * 24 * time.Hour)
	_, err := pool.Exec(ctx, `
		INSERT INTO vaults (id, owner_id, name, status, misconfigured, inactivity_seconds, bypass_seconds,
			quorum_threshold_bps, cycle_id, last_check_in_at, warning_since, created_at, updated_at)
		VALUES ($1, $2, $3, 'warning', FALSE, $4, $5, 5000, 1, $6, $7, $8, $8)
		ON CONFLICT (id) DO UPDATE
		SET status = 'warning',
		    last_check_in_at = EXCLUDED.last_check_in_at,
		    warning_since = EXCLUDED.warning_since,
		    updated_at = EXCLUDED.updated_at
	`, warningVaultID, secondOwnerID, "warning estate",
		int64((30*24*time.Hour)/time.Second), int64((7*24*time.Hour)/time.Second),
		lastCheckIn, warningSince, now)
	if err != nil {
		return err
	}

	warningBeneficiaryID := uuid.MustParse("00000000-0000-0000-0000-000000000211")
	_, err = pool.Exec(ctx, `
		INSERT INTO beneficiaries (id, vault_id, name, contact, wallet_address, allocation_bps, revoked, created_at, updated_at)
		VALUES ($1, $2, 'sole-heir', '', '0x3333333333333333333333333333333333333333', 10000, FALSE, $3, $3)
		ON CONFLICT (id) DO NOTHING
	`, warningBeneficiaryID, warningVaultID, now)
	if err != nil {
		return err
	}

	warningGuardianID := uuid.MustParse("00000000-0000-0000-0000-000000000311")
	_, err = pool.Exec(ctx, `
		INSERT INTO guardians (id, vault_id, name, contact, status, weight, created_at, updated_at)
		VALUES ($1, $2, 'lone-guardian', '', 'accepted', 1, $3, $3)
		ON CONFLICT (id) DO NOTHING
	`, warningGuardianID, warningVaultID, now)
	if err != nil {
		return err
	}

	// A single dissenting vote keeps the quorum open so the bypass window can
	// be exercised.
	attestationID := uuid.MustParse("00000000-0000-0000-0000-000000000411")
	_, err = pool.Exec(ctx, `
		INSERT INTO guardian_attestations (id, vault_id, guardian_id, cycle_id, attested_inactive, at)
		VALUES ($1, $2, $3, 1, FALSE, $4)
		ON CONFLICT (vault_id, guardian_id, cycle_id)
		DO UPDATE SET attested_inactive = EXCLUDED.attested_inactive, at = EXCLUDED.at
	`, attestationID, warningVaultID, warningGuardianID, now)
	if err != nil {
		return err
	}

	// Allocation sums to 9000 bps: the sweep must hold this vault active and
	// flag it instead of entering warning.
	_, err = pool.Exec(ctx, `
		INSERT INTO vaults (id, owner_id, name, status, misconfigured, inactivity_seconds, bypass_seconds,
			quorum_threshold_bps, cycle_id, last_check_in_at, warning_since, created_at, updated_at)
		VALUES ($1, $2, $3, 'active', FALSE, $4, $5, 5000, 1, $6, NULL, $7, $7)
		ON CONFLICT (id) DO UPDATE
		SET status = 'active',
		    last_check_in_at = EXCLUDED.last_check_in_at,
		    updated_at = EXCLUDED.updated_at
	`, misconfiguredVaultID, secondOwnerID, "incomplete estate",
		int64((30*24*time.Hour)/time.Second), int64((7*24*time.Hour)/time.Second),
		now.Add(-31*24*time.Hour), now)
	if err != nil {
		return err
	}

	partialBeneficiaryID := uuid.MustParse("00000000-0000-0000-0000-000000000212")
	_, err = pool.Exec(ctx, `
		INSERT INTO beneficiaries (id, vault_id, name, contact, wallet_address, allocation_bps, revoked, created_at, updated_at)
		VALUES ($1, $2, 'partial-heir', '', '0x4444444444444444444444444444444444444444', 9000, FALSE, $3, $3)
		ON CONFLICT (id) DO NOTHING
	`, partialBeneficiaryID, misconfiguredVaultID, now)
	return err
}
