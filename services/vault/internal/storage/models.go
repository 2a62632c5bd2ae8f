package storage

import (
	"time"

	"github.com/google/uuid"
)

type VaultStatus string

const (
	VaultActive       VaultStatus = "active"
	VaultWarning      VaultStatus = "warning"
	VaultDistributing VaultStatus = "distributing"
	VaultDistributed  VaultStatus = "distributed"
	VaultCancelled    VaultStatus = "cancelled"
)

// Terminal reports whether no further owner-driven mutation is allowed.
// Distributing counts as terminal for check-ins and cancellation: once a
// distribution is in flight there is no way back.
func (s VaultStatus) Terminal() bool {
	return s == VaultDistributing || s == VaultDistributed || s == VaultCancelled
}

type Vault struct {
	ID                 uuid.UUID
	OwnerID            uuid.UUID
	Name               string
	Status             VaultStatus
	Misconfigured      bool
	InactivityPeriod   time.Duration
	BypassWindow       time.Duration
	QuorumThresholdBps int
	CycleID            int64
	LastCheckInAt      time.Time
	WarningSince       *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type GuardianStatus string

const (
	GuardianInvited  GuardianStatus = "invited"
	GuardianAccepted GuardianStatus = "accepted"
	GuardianDeclined GuardianStatus = "declined"
	GuardianRevoked  GuardianStatus = "revoked"
)

type Guardian struct {
	ID        uuid.UUID
	VaultID   uuid.UUID
	Name      string
	Contact   string
	Status    GuardianStatus
	Weight    int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Beneficiary struct {
	ID            uuid.UUID
	VaultID       uuid.UUID
	Name          string
	Contact       string
	WalletAddress string
	AllocationBps int
	Revoked       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type CheckInSource string

const (
	CheckInManual  CheckInSource = "manual"
	CheckInOnChain CheckInSource = "on-chain-activity"
	CheckInAPI     CheckInSource = "api"
)

type CheckInRecord struct {
	ID      uuid.UUID
	VaultID uuid.UUID
	At      time.Time
	Source  CheckInSource
	Note    string
}

type Attestation struct {
	ID               uuid.UUID
	VaultID          uuid.UUID
	GuardianID       uuid.UUID
	CycleID          int64
	AttestedInactive bool
	At               time.Time
}

type TriggerReason string

const (
	ReasonQuorumMet     TriggerReason = "quorum_met"
	ReasonTimeoutBypass TriggerReason = "timeout_bypass"
)

type BeneficiarySnapshot struct {
	BeneficiaryID uuid.UUID `json:"beneficiary_id"`
	Name          string    `json:"name"`
	WalletAddress string    `json:"wallet_address,omitempty"`
	AllocationBps int       `json:"allocation_bps"`
	Fraction      string    `json:"fraction"`
}

type DistributionOutcome string

const (
	OutcomePending   DistributionOutcome = "pending"
	OutcomeConfirmed DistributionOutcome = "confirmed"
	OutcomeFailed    DistributionOutcome = "failed"
)

type DistributionEvent struct {
	ID            uuid.UUID
	VaultID       uuid.UUID
	CycleID       int64
	Reason        TriggerReason
	Snapshot      []BeneficiarySnapshot
	TriggeredAt   time.Time
	Finalized     bool
	Outcome       DistributionOutcome
	FailureReason string
	LastHandoffAt *time.Time
}

// VaultView is the consistent read handed to an update function while the
// per-vault lock is held. Attestations contains only the current cycle.
type VaultView struct {
	Vault            Vault
	Guardians        []Guardian
	Beneficiaries    []Beneficiary
	Attestations     []Attestation
	OpenDistribution *DistributionEvent
}

func (v *VaultView) Guardian(id uuid.UUID) *Guardian {
	for i := range v.Guardians {
		if v.Guardians[i].ID == id {
			return &v.Guardians[i]
		}
	}
	return nil
}

func (v *VaultView) Beneficiary(id uuid.UUID) *Beneficiary {
	for i := range v.Beneficiaries {
		if v.Beneficiaries[i].ID == id {
			return &v.Beneficiaries[i]
		}
	}
	return nil
}

// Mutation describes the writes an update function wants applied before the
// per-vault transaction commits. A nil field means no write for that entity.
// Either every write lands or none do.
type Mutation struct {
	Vault             *Vault
	NewCheckIn        *CheckInRecord
	UpsertAttestation *Attestation
	UpsertGuardian    *Guardian
	UpsertBeneficiary *Beneficiary
	NewDistribution   *DistributionEvent
	FinalizeEvent     *DistributionEvent
}

// UpdateFunc inspects a locked view and returns the writes to apply. Returning
// a nil mutation with a nil error commits nothing.
type UpdateFunc func(view *VaultView) (*Mutation, error)
