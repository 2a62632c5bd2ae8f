// Package allocation validates beneficiary allocation sets. Percentages are
// integer basis points (10000 = 100.00%) so sums are exact.
package allocation

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/storage"
)

const TotalBps = 10000

type Share struct {
	BeneficiaryID uuid.UUID
	AllocationBps int
	Revoked       bool
}

type InvalidAllocationError struct {
	Reason        string
	Sum           int
	BeneficiaryID uuid.UUID
}

func (e *InvalidAllocationError) Error() string {
	if e.BeneficiaryID != uuid.Nil {
		return fmt.Sprintf("invalid allocation: %s (beneficiary %s)", e.Reason, e.BeneficiaryID)
	}
	return fmt.Sprintf("invalid allocation: %s (sum %d)", e.Reason, e.Sum)
}

// Validate checks that every non-revoked share is within (0, 10000] and that
// the shares sum to exactly 10000. Revoked shares are ignored entirely.
func Validate(shares []Share) error {
	sum := 0
	count := 0
	for _, share := range shares {
		if share.Revoked {
			continue
		}
		count++
		if share.AllocationBps <= 0 || share.AllocationBps > TotalBps {
			return &InvalidAllocationError{
				Reason:        fmt.Sprintf("allocation %d bps out of range", share.AllocationBps),
				BeneficiaryID: share.BeneficiaryID,
			}
		}
		sum += share.AllocationBps
	}

	if count == 0 {
		return &InvalidAllocationError{Reason: "at least one beneficiary required"}
	}
	if sum != TotalBps {
		return &InvalidAllocationError{Reason: "allocations must sum to 10000 bps", Sum: sum}
	}
	return nil
}

func FromBeneficiaries(beneficiaries []storage.Beneficiary) []Share {
	shares := make([]Share, 0, len(beneficiaries))
	for _, b := range beneficiaries {
		shares = append(shares, Share{
			BeneficiaryID: b.ID,
			AllocationBps: b.AllocationBps,
			Revoked:       b.Revoked,
		})
	}
	return shares
}
