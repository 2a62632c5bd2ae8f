package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("vault update conflict")
)

const lockNotAvailable = "55P03"

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) CreateVault(ctx context.Context, vault Vault, beneficiaries []Beneficiary) (*VaultView, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin create vault: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO vaults (id, owner_id, name, status, misconfigured, inactivity_seconds, bypass_seconds,
			quorum_threshold_bps, cycle_id, last_check_in_at, warning_since, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, vault.ID, vault.OwnerID, vault.Name, vault.Status, vault.Misconfigured,
		int64(vault.InactivityPeriod/time.Second), int64(vault.BypassWindow/time.Second),
		vault.QuorumThresholdBps, vault.CycleID, vault.LastCheckInAt, vault.WarningSince,
		vault.CreatedAt, vault.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert vault: %w", err)
	}

	for _, b := range beneficiaries {
		if err := upsertBeneficiary(ctx, tx, b); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create vault: %w", err)
	}
	committed = true

	return s.GetVaultView(ctx, vault.ID)
}

func (s *Store) GetVaultView(ctx context.Context, vaultID uuid.UUID) (*VaultView, error) {
	vault, err := s.loadVault(ctx, s.pool, vaultID, "")
	if err != nil {
		return nil, err
	}
	return s.loadChildren(ctx, s.pool, vault)
}

func (s *Store) ListVaultsByOwner(ctx context.Context, ownerID uuid.UUID) ([]Vault, error) {
	rows, err := s.pool.Query(ctx, vaultColumns+` FROM vaults WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vaults []Vault
	for rows.Next() {
		vault, err := scanVault(rows)
		if err != nil {
			return nil, err
		}
		vaults = append(vaults, vault)
	}
	return vaults, rows.Err()
}

// WithVaultUpdate runs fn with the vault row locked FOR UPDATE and applies the
// returned mutation in the same transaction. The returned view reflects the
// state after the mutation.
func (s *Store) WithVaultUpdate(ctx context.Context, vaultID uuid.UUID, fn UpdateFunc) (*VaultView, error) {
	return s.update(ctx, vaultID, "FOR UPDATE", fn)
}

// TryWithVaultUpdate is the non-blocking variant: if another update holds the
// vault lock it fails immediately with ErrConflict instead of waiting.
func (s *Store) TryWithVaultUpdate(ctx context.Context, vaultID uuid.UUID, fn UpdateFunc) (*VaultView, error) {
	return s.update(ctx, vaultID, "FOR UPDATE NOWAIT", fn)
}

func (s *Store) update(ctx context.Context, vaultID uuid.UUID, lockClause string, fn UpdateFunc) (*VaultView, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin vault update: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	vault, err := s.loadVault(ctx, tx, vaultID, lockClause)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == lockNotAvailable {
			return nil, ErrConflict
		}
		return nil, err
	}

	view, err := s.loadChildren(ctx, tx, vault)
	if err != nil {
		return nil, err
	}

	mut, err := fn(view)
	if err != nil {
		return nil, err
	}
	if mut != nil {
		if err := s.apply(ctx, tx, mut); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit vault update: %w", err)
	}
	committed = true

	return s.GetVaultView(ctx, vaultID)
}

func (s *Store) apply(ctx context.Context, tx pgx.Tx, mut *Mutation) error {
	if mut.Vault != nil {
		v := mut.Vault
		_, err := tx.Exec(ctx, `
			UPDATE vaults
			SET name = $2, status = $3, misconfigured = $4, inactivity_seconds = $5, bypass_seconds = $6,
				quorum_threshold_bps = $7, cycle_id = $8, last_check_in_at = $9, warning_since = $10, updated_at = $11
			WHERE id = $1
		`, v.ID, v.Name, v.Status, v.Misconfigured,
			int64(v.InactivityPeriod/time.Second), int64(v.BypassWindow/time.Second),
			v.QuorumThresholdBps, v.CycleID, v.LastCheckInAt, v.WarningSince, v.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update vault: %w", err)
		}
	}

	if mut.NewCheckIn != nil {
		c := mut.NewCheckIn
		_, err := tx.Exec(ctx, `
			INSERT INTO check_ins (id, vault_id, at, source, note)
			VALUES ($1, $2, $3, $4, $5)
		`, c.ID, c.VaultID, c.At, c.Source, c.Note)
		if err != nil {
			return fmt.Errorf("insert check-in: %w", err)
		}
	}

	if mut.UpsertAttestation != nil {
		a := mut.UpsertAttestation
		_, err := tx.Exec(ctx, `
			INSERT INTO guardian_attestations (id, vault_id, guardian_id, cycle_id, attested_inactive, at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (vault_id, guardian_id, cycle_id)
			DO UPDATE SET attested_inactive = EXCLUDED.attested_inactive, at = EXCLUDED.at
		`, a.ID, a.VaultID, a.GuardianID, a.CycleID, a.AttestedInactive, a.At)
		if err != nil {
			return fmt.Errorf("upsert attestation: %w", err)
		}
	}

	if mut.UpsertGuardian != nil {
		g := mut.UpsertGuardian
		_, err := tx.Exec(ctx, `
			INSERT INTO guardians (id, vault_id, name, contact, status, weight, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id)
			DO UPDATE SET name = EXCLUDED.name, contact = EXCLUDED.contact, status = EXCLUDED.status,
				weight = EXCLUDED.weight, updated_at = EXCLUDED.updated_at
		`, g.ID, g.VaultID, g.Name, g.Contact, g.Status, g.Weight, g.CreatedAt, g.UpdatedAt)
		if err != nil {
			return fmt.Errorf("upsert guardian: %w", err)
		}
	}

	if mut.UpsertBeneficiary != nil {
		if err := upsertBeneficiary(ctx, tx, *mut.UpsertBeneficiary); err != nil {
			return err
		}
	}

	if mut.NewDistribution != nil {
		d := mut.NewDistribution
		snapshot, err := json.Marshal(d.Snapshot)
		if err != nil {
			return fmt.Errorf("marshal snapshot: %w", err)
		}
		// Unique (vault_id, cycle_id) makes the trigger idempotent: a second
		// insert for the same cycle is a no-op and the existing row wins.
		_, err = tx.Exec(ctx, `
			INSERT INTO distribution_events (id, vault_id, cycle_id, reason, snapshot, triggered_at, finalized, outcome, failure_reason, last_handoff_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (vault_id, cycle_id) DO NOTHING
		`, d.ID, d.VaultID, d.CycleID, d.Reason, snapshot, d.TriggeredAt, d.Finalized, d.Outcome, d.FailureReason, d.LastHandoffAt)
		if err != nil {
			return fmt.Errorf("insert distribution event: %w", err)
		}
	}

	if mut.FinalizeEvent != nil {
		d := mut.FinalizeEvent
		_, err := tx.Exec(ctx, `
			UPDATE distribution_events
			SET finalized = $2, outcome = $3, failure_reason = $4, last_handoff_at = $5
			WHERE id = $1
		`, d.ID, d.Finalized, d.Outcome, d.FailureReason, d.LastHandoffAt)
		if err != nil {
			return fmt.Errorf("finalize distribution event: %w", err)
		}
	}

	return nil
}

func upsertBeneficiary(ctx context.Context, tx pgx.Tx, b Beneficiary) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO beneficiaries (id, vault_id, name, contact, wallet_address, allocation_bps, revoked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id)
		DO UPDATE SET name = EXCLUDED.name, contact = EXCLUDED.contact, wallet_address = EXCLUDED.wallet_address,
			allocation_bps = EXCLUDED.allocation_bps, revoked = EXCLUDED.revoked, updated_at = EXCLUDED.updated_at
	`, b.ID, b.VaultID, b.Name, b.Contact, b.WalletAddress, b.AllocationBps, b.Revoked, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert beneficiary: %w", err)
	}
	return nil
}

// ListDue returns vaults whose inactivity period has elapsed while active, or
// whose bypass window has elapsed while in warning.
func (s *Store) ListDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id FROM vaults
		WHERE (status = 'active' AND last_check_in_at + make_interval(secs => inactivity_seconds) < $1)
		   OR (status = 'warning' AND warning_since + make_interval(secs => bypass_seconds) < $1)
		ORDER BY updated_at
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) GetDistributionEvent(ctx context.Context, eventID uuid.UUID) (*DistributionEvent, error) {
	row := s.pool.QueryRow(ctx, eventColumns+` FROM distribution_events WHERE id = $1`, eventID)
	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return ev, nil
}

// ListOpenDistributionEvents returns unfinalized events whose last hand-off is
// older than the cutoff, for the reconciliation sweep to republish.
func (s *Store) ListOpenDistributionEvents(ctx context.Context, olderThan time.Time, limit int) ([]DistributionEvent, error) {
	rows, err := s.pool.Query(ctx, eventColumns+`
		FROM distribution_events
		WHERE finalized = FALSE AND (last_handoff_at IS NULL OR last_handoff_at < $1)
		ORDER BY triggered_at
		LIMIT $2
	`, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []DistributionEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

func (s *Store) MarkHandoff(ctx context.Context, eventID uuid.UUID, at time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE distribution_events SET last_handoff_at = $2 WHERE id = $1`, eventID, at)
	return err
}

func (s *Store) GetGuardian(ctx context.Context, guardianID uuid.UUID) (*Guardian, error) {
	row := s.pool.QueryRow(ctx, guardianColumns+` FROM guardians WHERE id = $1`, guardianID)
	g, err := scanGuardian(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return g, nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const vaultColumns = `SELECT id, owner_id, name, status, misconfigured, inactivity_seconds, bypass_seconds,
	quorum_threshold_bps, cycle_id, last_check_in_at, warning_since, created_at, updated_at`

const guardianColumns = `SELECT id, vault_id, name, contact, status, weight, created_at, updated_at`

const eventColumns = `SELECT id, vault_id, cycle_id, reason, snapshot, triggered_at, finalized, outcome, failure_reason, last_handoff_at`

func (s *Store) loadVault(ctx context.Context, q queryer, vaultID uuid.UUID, lockClause string) (Vault, error) {
	sql := vaultColumns + ` FROM vaults WHERE id = $1 ` + lockClause
	vault, err := scanVault(q.QueryRow(ctx, sql, vaultID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Vault{}, ErrNotFound
		}
		return Vault{}, err
	}
	return vault, nil
}

func (s *Store) loadChildren(ctx context.Context, q queryer, vault Vault) (*VaultView, error) {
	view := &VaultView{Vault: vault}

	rows, err := q.Query(ctx, guardianColumns+` FROM guardians WHERE vault_id = $1 ORDER BY created_at`, vault.ID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		g, err := scanGuardian(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		view.Guardians = append(view.Guardians, *g)
	}
	rows.Close()
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	rows, err = q.Query(ctx, `
		SELECT id, vault_id, name, contact, wallet_address, allocation_bps, revoked, created_at, updated_at
		FROM beneficiaries WHERE vault_id = $1 ORDER BY created_at
	`, vault.ID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var b Beneficiary
		if err := rows.Scan(&b.ID, &b.VaultID, &b.Name, &b.Contact, &b.WalletAddress, &b.AllocationBps, &b.Revoked, &b.CreatedAt, &b.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		view.Beneficiaries = append(view.Beneficiaries, b)
	}
	rows.Close()
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	rows, err = q.Query(ctx, `
		SELECT id, vault_id, guardian_id, cycle_id, attested_inactive, at
		FROM guardian_attestations WHERE vault_id = $1 AND cycle_id = $2
	`, vault.ID, vault.CycleID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var a Attestation
		if err := rows.Scan(&a.ID, &a.VaultID, &a.GuardianID, &a.CycleID, &a.AttestedInactive, &a.At); err != nil {
			rows.Close()
			return nil, err
		}
		view.Attestations = append(view.Attestations, a)
	}
	rows.Close()
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	ev, err := scanEvent(q.QueryRow(ctx, eventColumns+` FROM distribution_events WHERE vault_id = $1 AND cycle_id = $2`, vault.ID, vault.CycleID))
	if err == nil {
		view.OpenDistribution = ev
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	return view, nil
}

func scanVault(row pgx.Row) (Vault, error) {
	var v Vault
	var inactivitySecs, bypassSecs int64
	err := row.Scan(&v.ID, &v.OwnerID, &v.Name, &v.Status, &v.Misconfigured, &inactivitySecs, &bypassSecs,
		&v.QuorumThresholdBps, &v.CycleID, &v.LastCheckInAt, &v.WarningSince, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return Vault{}, err
	}
	v.InactivityPeriod = time.Duration(inactivitySecs) * time.Second
	v.BypassWindow = time.Duration(bypassSecs) * time.Second
	return v, nil
}

func scanGuardian(row pgx.Row) (*Guardian, error) {
	var g Guardian
	if err := row.Scan(&g.ID, &g.VaultID, &g.Name, &g.Contact, &g.Status, &g.Weight, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

func scanEvent(row pgx.Row) (*DistributionEvent, error) {
	var ev DistributionEvent
	var snapshot []byte
	if err := row.Scan(&ev.ID, &ev.VaultID, &ev.CycleID, &ev.Reason, &snapshot, &ev.TriggeredAt, &ev.Finalized, &ev.Outcome, &ev.FailureReason, &ev.LastHandoffAt); err != nil {
		return nil, err
	}
	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &ev.Snapshot); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: %w", err)
		}
	}
	return &ev, nil
}
