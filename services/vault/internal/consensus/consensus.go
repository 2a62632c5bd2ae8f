// Package consensus tallies guardian attestations of owner inactivity.
package consensus

import (
	"github.com/google/uuid"

	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/storage"
)

// DefaultThresholdBps is a strict majority of accepted guardian weight.
const DefaultThresholdBps = 5000

type Tally struct {
	QuorumMet   bool
	ForWeight   int
	TotalWeight int
}

// Evaluate tallies attested-inactive weight against the total weight of
// accepted guardians. Quorum requires the for-weight to strictly exceed
// thresholdBps of the total: with weights [2,1,1] and a 5000 bps threshold,
// 3 weight units meet quorum and 2 do not. A vault with no accepted guardians
// never reaches quorum.
func Evaluate(guardians []storage.Guardian, attestations []storage.Attestation, thresholdBps int) Tally {
	if thresholdBps <= 0 {
		thresholdBps = DefaultThresholdBps
	}

	weights := make(map[uuid.UUID]int, len(guardians))
	total := 0
	for _, g := range guardians {
		if g.Status != storage.GuardianAccepted {
			continue
		}
		weight := g.Weight
		if weight <= 0 {
			weight = 1
		}
		weights[g.ID] = weight
		total += weight
	}

	// At most one attestation per guardian per cycle; if duplicates slip in,
	// the last one wins.
	votes := make(map[uuid.UUID]bool, len(attestations))
	for _, a := range attestations {
		if _, accepted := weights[a.GuardianID]; !accepted {
			continue
		}
		votes[a.GuardianID] = a.AttestedInactive
	}

	forWeight := 0
	for id, inactive := range votes {
		if inactive {
			forWeight += weights[id]
		}
	}

	return Tally{
		QuorumMet:   total > 0 && forWeight*10000 > total*thresholdBps,
		ForWeight:   forWeight,
		TotalWeight: total,
	}
}
