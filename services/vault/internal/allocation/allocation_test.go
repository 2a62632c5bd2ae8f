package allocation

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		shares []Share
		valid  bool
	}{
		{
			name:   "single beneficiary full allocation",
			shares: []Share{{BeneficiaryID: uuid.New(), AllocationBps: 10000}},
			valid:  true,
		},
		{
			name: "three way split",
			shares: []Share{
				{BeneficiaryID: uuid.New(), AllocationBps: 3333},
				{BeneficiaryID: uuid.New(), AllocationBps: 3333},
				{BeneficiaryID: uuid.New(), AllocationBps: 3334},
			},
			valid: true,
		},
		{
			name: "sum below total",
			shares: []Share{
				{BeneficiaryID: uuid.New(), AllocationBps: 5000},
				{BeneficiaryID: uuid.New(), AllocationBps: 4999},
			},
			valid: false,
		},
		{
			name: "sum above total",
			shares: []Share{
				{BeneficiaryID: uuid.New(), AllocationBps: 5000},
				{BeneficiaryID: uuid.New(), AllocationBps: 5001},
			},
			valid: false,
		},
		{
			name:   "zero share rejected",
			shares: []Share{{BeneficiaryID: uuid.New(), AllocationBps: 0}, {BeneficiaryID: uuid.New(), AllocationBps: 10000}},
			valid:  false,
		},
		{
			name:   "negative share rejected",
			shares: []Share{{BeneficiaryID: uuid.New(), AllocationBps: -100}, {BeneficiaryID: uuid.New(), AllocationBps: 10100}},
			valid:  false,
		},
		{
			name:   "empty set rejected",
			shares: nil,
			valid:  false,
		},
		{
			name: "revoked shares ignored",
			shares: []Share{
				{BeneficiaryID: uuid.New(), AllocationBps: 10000},
				{BeneficiaryID: uuid.New(), AllocationBps: 2500, Revoked: true},
			},
			valid: true,
		},
		{
			name:   "all revoked rejected",
			shares: []Share{{BeneficiaryID: uuid.New(), AllocationBps: 10000, Revoked: true}},
			valid:  false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.shares)
			if tc.valid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.valid {
				if err == nil {
					t.Fatalf("expected invalid")
				}
				var allocErr *InvalidAllocationError
				if !errors.As(err, &allocErr) {
					t.Fatalf("expected InvalidAllocationError, got %T", err)
				}
			}
		})
	}
}

// Accepted sets always sum to exactly 10000 bps over their non-revoked shares.
func TestAcceptedSumsExact(t *testing.T) {
	splits := [][]int{
		{10000},
		{5000, 5000},
		{1, 9999},
		{2500, 2500, 2500, 2500},
		{3333, 3333, 3334},
	}
	for _, split := range splits {
		shares := make([]Share, 0, len(split))
		for _, bps := range split {
			shares = append(shares, Share{BeneficiaryID: uuid.New(), AllocationBps: bps})
		}
		if err := Validate(shares); err != nil {
			t.Fatalf("split %v: %v", split, err)
		}
		sum := 0
		for _, s := range shares {
			sum += s.AllocationBps
		}
		if sum != TotalBps {
			t.Fatalf("split %v sums to %d", split, sum)
		}
	}
}
