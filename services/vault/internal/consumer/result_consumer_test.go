package consumer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/guardiavault-oss/Paradexx-sub007/libs/kafka"
)

type fakeFinalizer struct {
	confirmed []uuid.UUID
	failed    []uuid.UUID
	reasons   []string
	err       error
}

func (f *fakeFinalizer) ConfirmDistribution(ctx context.Context, eventID uuid.UUID) error {
	f.confirmed = append(f.confirmed, eventID)
	return f.err
}

func (f *fakeFinalizer) FailDistribution(ctx context.Context, eventID uuid.UUID, reason string) error {
	f.failed = append(f.failed, eventID)
	f.reasons = append(f.reasons, reason)
	return f.err
}

func resultMessage(t *testing.T, event DistributionResultEvent) *sarama.ConsumerMessage {
	t.Helper()
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return &sarama.ConsumerMessage{Topic: "distribution.results", Value: payload}
}

func validEnvelope(t *testing.T) kafka.Envelope {
	t.Helper()
	env, err := kafka.NewEnvelope(resultsEventType, 1, "")
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	return env
}

func TestConfirmedResultApplied(t *testing.T) {
	finalizer := &fakeFinalizer{}
	c := NewResultConsumer(finalizer, nil)
	distributionID := uuid.New()

	msg := resultMessage(t, DistributionResultEvent{
		Envelope:       validEnvelope(t),
		DistributionID: distributionID.String(),
		Status:         ResultConfirmed,
		TxRef:          "0xabc",
	})

	if err := c.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(finalizer.confirmed) != 1 || finalizer.confirmed[0] != distributionID {
		t.Fatalf("expected confirm for %s, got %+v", distributionID, finalizer.confirmed)
	}
	if len(finalizer.failed) != 0 {
		t.Fatalf("unexpected fail calls: %+v", finalizer.failed)
	}
}

func TestFailedResultCarriesReason(t *testing.T) {
	finalizer := &fakeFinalizer{}
	c := NewResultConsumer(finalizer, nil)
	distributionID := uuid.New()

	msg := resultMessage(t, DistributionResultEvent{
		Envelope:       validEnvelope(t),
		DistributionID: distributionID.String(),
		Status:         ResultFailed,
		Reason:         "wallet unreachable",
	})

	if err := c.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(finalizer.failed) != 1 || finalizer.reasons[0] != "wallet unreachable" {
		t.Fatalf("expected fail with reason, got %+v %+v", finalizer.failed, finalizer.reasons)
	}
}

func TestFailedResultRequiresReason(t *testing.T) {
	finalizer := &fakeFinalizer{}
	c := NewResultConsumer(finalizer, nil)

	msg := resultMessage(t, DistributionResultEvent{
		Envelope:       validEnvelope(t),
		DistributionID: uuid.NewString(),
		Status:         ResultFailed,
	})

	if err := c.HandleMessage(context.Background(), msg); err == nil {
		t.Fatalf("expected validation error")
	}
	if len(finalizer.failed) != 0 {
		t.Fatalf("finalizer should not be called: %+v", finalizer.failed)
	}
}

func TestUnknownStatusRejected(t *testing.T) {
	c := NewResultConsumer(&fakeFinalizer{}, nil)

	msg := resultMessage(t, DistributionResultEvent{
		Envelope:       validEnvelope(t),
		DistributionID: uuid.NewString(),
		Status:         "partial",
	})

	if err := c.HandleMessage(context.Background(), msg); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestMalformedPayloadRejected(t *testing.T) {
	c := NewResultConsumer(&fakeFinalizer{}, nil)

	msg := &sarama.ConsumerMessage{Topic: "distribution.results", Value: []byte("{not json")}
	if err := c.HandleMessage(context.Background(), msg); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestWrongEventTypeRejected(t *testing.T) {
	c := NewResultConsumer(&fakeFinalizer{}, nil)

	env, err := kafka.NewEnvelope("vault.notifications", 1, "")
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	msg := resultMessage(t, DistributionResultEvent{
		Envelope:       env,
		DistributionID: uuid.NewString(),
		Status:         ResultConfirmed,
	})

	if err := c.HandleMessage(context.Background(), msg); err == nil {
		t.Fatalf("expected event_type error")
	}
}
