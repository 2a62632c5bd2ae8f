package consensus

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/storage"
)

func guardian(weight int, status storage.GuardianStatus) storage.Guardian {
	return storage.Guardian{ID: uuid.New(), Weight: weight, Status: status}
}

func attest(g storage.Guardian, inactive bool) storage.Attestation {
	return storage.Attestation{
		ID:               uuid.New(),
		GuardianID:       g.ID,
		AttestedInactive: inactive,
		At:               time.Now().UTC(),
	}
}

func TestWeightedMajority(t *testing.T) {
	heavy := guardian(2, storage.GuardianAccepted)
	one := guardian(1, storage.GuardianAccepted)
	two := guardian(1, storage.GuardianAccepted)
	guardians := []storage.Guardian{heavy, one, two}

	// 3 of 4 weight units attesting inactive meets a majority threshold.
	tally := Evaluate(guardians, []storage.Attestation{attest(heavy, true), attest(one, true)}, DefaultThresholdBps)
	if !tally.QuorumMet {
		t.Fatalf("expected quorum with 3/4 weight, got %+v", tally)
	}
	if tally.ForWeight != 3 || tally.TotalWeight != 4 {
		t.Fatalf("unexpected tally %+v", tally)
	}

	// Exactly half does not.
	tally = Evaluate(guardians, []storage.Attestation{attest(heavy, true)}, DefaultThresholdBps)
	if tally.QuorumMet {
		t.Fatalf("expected no quorum with 2/4 weight, got %+v", tally)
	}
}

func TestSplitVoteNoQuorum(t *testing.T) {
	a := guardian(1, storage.GuardianAccepted)
	b := guardian(1, storage.GuardianAccepted)

	tally := Evaluate([]storage.Guardian{a, b}, []storage.Attestation{attest(a, true), attest(b, false)}, DefaultThresholdBps)
	if tally.QuorumMet {
		t.Fatalf("expected split vote to miss quorum, got %+v", tally)
	}
	if tally.ForWeight != 1 || tally.TotalWeight != 2 {
		t.Fatalf("unexpected tally %+v", tally)
	}
}

func TestZeroAcceptedGuardiansNeverQuorum(t *testing.T) {
	invited := guardian(1, storage.GuardianInvited)
	declined := guardian(1, storage.GuardianDeclined)

	tally := Evaluate([]storage.Guardian{invited, declined}, nil, DefaultThresholdBps)
	if tally.QuorumMet || tally.TotalWeight != 0 {
		t.Fatalf("expected empty tally, got %+v", tally)
	}

	// Even a stray attestation from a non-accepted guardian is ignored.
	tally = Evaluate([]storage.Guardian{invited}, []storage.Attestation{attest(invited, true)}, DefaultThresholdBps)
	if tally.QuorumMet || tally.ForWeight != 0 {
		t.Fatalf("expected non-accepted attestation ignored, got %+v", tally)
	}
}

func TestResubmissionOverwrites(t *testing.T) {
	a := guardian(1, storage.GuardianAccepted)
	b := guardian(1, storage.GuardianAccepted)

	atts := []storage.Attestation{attest(a, true), attest(b, true)}
	tally := Evaluate([]storage.Guardian{a, b}, atts, DefaultThresholdBps)
	if !tally.QuorumMet {
		t.Fatalf("expected quorum, got %+v", tally)
	}

	// b flips to false; only the latest value per guardian counts.
	atts = append(atts, attest(b, false))
	tally = Evaluate([]storage.Guardian{a, b}, atts, DefaultThresholdBps)
	if tally.QuorumMet || tally.ForWeight != 1 {
		t.Fatalf("expected overwrite to drop quorum, got %+v", tally)
	}
}

func TestCustomThreshold(t *testing.T) {
	a := guardian(1, storage.GuardianAccepted)
	b := guardian(1, storage.GuardianAccepted)
	c := guardian(1, storage.GuardianAccepted)
	guardians := []storage.Guardian{a, b, c}

	// Two thirds at a 7500 bps threshold is not enough.
	atts := []storage.Attestation{attest(a, true), attest(b, true)}
	if tally := Evaluate(guardians, atts, 7500); tally.QuorumMet {
		t.Fatalf("expected 2/3 below 75%% threshold, got %+v", tally)
	}

	atts = append(atts, attest(c, true))
	if tally := Evaluate(guardians, atts, 7500); !tally.QuorumMet {
		t.Fatalf("expected 3/3 above 75%% threshold, got %+v", tally)
	}
}
