package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/guardiavault-oss/Paradexx-sub007/services/testutil"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/allocation"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/consensus"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/service"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/storage"
)

type fakeService struct {
	view        *storage.VaultView
	guardian    *storage.Guardian
	attestation *service.AttestationResult
	status      *service.VaultStatusView
	err         error

	lastCreate      *service.CreateVaultInput
	lastCheckIn     storage.CheckInSource
	lastCheckInBy   uuid.UUID
	lastStatusBy    uuid.UUID
	confirmedEvent  uuid.UUID
	failedEvent     uuid.UUID
	failedReason    string
	revokedGuardian uuid.UUID
}

func (f *fakeService) CreateVault(ctx context.Context, input service.CreateVaultInput) (*storage.VaultView, error) {
	f.lastCreate = &input
	return f.view, f.err
}

func (f *fakeService) CheckIn(ctx context.Context, vaultID, ownerID uuid.UUID, source storage.CheckInSource, note string) (*storage.VaultView, error) {
	f.lastCheckIn = source
	f.lastCheckInBy = ownerID
	return f.view, f.err
}

func (f *fakeService) InviteGuardian(ctx context.Context, vaultID, ownerID uuid.UUID, input service.GuardianInput) (*storage.Guardian, error) {
	return f.guardian, f.err
}

func (f *fakeService) AcceptGuardianInvite(ctx context.Context, guardianID uuid.UUID) (*storage.Guardian, error) {
	return f.guardian, f.err
}

func (f *fakeService) DeclineGuardianInvite(ctx context.Context, guardianID uuid.UUID) (*storage.Guardian, error) {
	return f.guardian, f.err
}

func (f *fakeService) RevokeGuardian(ctx context.Context, vaultID, guardianID, ownerID uuid.UUID) (*storage.Guardian, error) {
	f.revokedGuardian = guardianID
	return f.guardian, f.err
}

func (f *fakeService) AddBeneficiary(ctx context.Context, vaultID, ownerID uuid.UUID, input service.BeneficiaryInput) (*storage.VaultView, error) {
	return f.view, f.err
}

func (f *fakeService) UpdateAllocation(ctx context.Context, vaultID, beneficiaryID, ownerID uuid.UUID, update service.AllocationUpdate) (*storage.VaultView, error) {
	return f.view, f.err
}

func (f *fakeService) RemoveBeneficiary(ctx context.Context, vaultID, beneficiaryID, ownerID uuid.UUID) (*storage.VaultView, error) {
	return f.view, f.err
}

func (f *fakeService) SubmitAttestation(ctx context.Context, vaultID, guardianID uuid.UUID, attestedInactive bool) (*service.AttestationResult, error) {
	return f.attestation, f.err
}

func (f *fakeService) CancelVault(ctx context.Context, vaultID, ownerID uuid.UUID) (*storage.VaultView, error) {
	return f.view, f.err
}

func (f *fakeService) GetVault(ctx context.Context, vaultID, ownerID uuid.UUID) (*service.VaultStatusView, error) {
	f.lastStatusBy = ownerID
	return f.status, f.err
}

func (f *fakeService) ListVaults(ctx context.Context, ownerID uuid.UUID) ([]storage.Vault, error) {
	if f.view == nil {
		return nil, f.err
	}
	return []storage.Vault{f.view.Vault}, f.err
}

func (f *fakeService) ConfirmDistribution(ctx context.Context, eventID uuid.UUID) error {
	f.confirmedEvent = eventID
	return f.err
}

func (f *fakeService) FailDistribution(ctx context.Context, eventID uuid.UUID, reason string) error {
	f.failedEvent = eventID
	f.failedReason = reason
	return f.err
}

func demoView() *storage.VaultView {
	now := time.Now().UTC()
	vaultID := uuid.New()
	return &storage.VaultView{
		Vault: storage.Vault{
			ID:                 vaultID,
			OwnerID:            testutil.DemoOwnerID,
			Name:               "estate",
			Status:             storage.VaultActive,
			InactivityPeriod:   30 * 24 * time.Hour,
			BypassWindow:       7 * 24 * time.Hour,
			QuorumThresholdBps: 5000,
			CycleID:            1,
			LastCheckInAt:      now,
			CreatedAt:          now,
		},
		Beneficiaries: []storage.Beneficiary{
			{ID: uuid.New(), VaultID: vaultID, Name: "heir", AllocationBps: allocation.TotalBps},
		},
	}
}

func newRouter(t *testing.T, svc VaultService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := New(svc, nil, nil, "")
	h.Register(router, []byte("secret"))
	return router
}

func ownerToken(t *testing.T) string {
	t.Helper()
	token, err := testutil.GenerateJWT(testutil.DemoOwnerID, []byte("secret"), time.Hour, time.Now())
	if err != nil {
		t.Fatalf("jwt: %v", err)
	}
	return token
}

func TestCreateVaultUnauthorized(t *testing.T) {
	router := newRouter(t, &fakeService{})

	resp := testutil.MakeAPIRequest(router, http.MethodPost, "/vaults", map[string]any{"name": "estate"})
	testutil.AssertErrorCode(t, resp, testutil.ErrorCodeUnauthorized)
}

func TestCreateVaultCreated(t *testing.T) {
	svc := &fakeService{view: demoView()}
	router := newRouter(t, svc)

	resp := testutil.MakeAuthRequest(router, http.MethodPost, "/vaults", map[string]any{
		"name":              "estate",
		"inactivity_period": "720h",
		"bypass_window":     "168h",
		"beneficiaries": []map[string]any{
			{"name": "heir", "allocation_bps": 10000},
		},
	}, ownerToken(t))

	testutil.AssertHTTPStatus(t, resp, http.StatusCreated)
	if svc.lastCreate == nil {
		t.Fatalf("expected CreateVault to be called")
	}
	if svc.lastCreate.InactivityPeriod != 720*time.Hour {
		t.Fatalf("expected inactivity 720h, got %s", svc.lastCreate.InactivityPeriod)
	}
	if len(svc.lastCreate.Beneficiaries) != 1 || svc.lastCreate.Beneficiaries[0].AllocationBps != 10000 {
		t.Fatalf("beneficiaries not forwarded: %+v", svc.lastCreate.Beneficiaries)
	}
}

func TestCreateVaultRejectsBadDuration(t *testing.T) {
	router := newRouter(t, &fakeService{})

	resp := testutil.MakeAuthRequest(router, http.MethodPost, "/vaults", map[string]any{
		"name":              "estate",
		"inactivity_period": "soon",
	}, ownerToken(t))

	testutil.AssertErrorCode(t, resp, testutil.ErrorCodeInvalidRequest)
}

func TestCreateVaultInvalidAllocation(t *testing.T) {
	svc := &fakeService{err: &allocation.InvalidAllocationError{Reason: "sum", Sum: 9000}}
	router := newRouter(t, svc)

	resp := testutil.MakeAuthRequest(router, http.MethodPost, "/vaults", map[string]any{
		"name":              "estate",
		"inactivity_period": "720h",
		"beneficiaries": []map[string]any{
			{"name": "heir", "allocation_bps": 9000},
		},
	}, ownerToken(t))

	testutil.AssertErrorCode(t, resp, testutil.ErrorCodeInvalidAllocation)
}

func TestCheckInDefaultsToManual(t *testing.T) {
	svc := &fakeService{view: demoView()}
	router := newRouter(t, svc)

	resp := testutil.MakeAuthRequest(router, http.MethodPost, "/vaults/"+svc.view.Vault.ID.String()+"/checkins", nil, ownerToken(t))

	testutil.AssertHTTPStatus(t, resp, http.StatusOK)
	if svc.lastCheckIn != storage.CheckInManual {
		t.Fatalf("expected manual source, got %q", svc.lastCheckIn)
	}
	if svc.lastCheckInBy != testutil.DemoOwnerID {
		t.Fatalf("expected token subject forwarded as owner, got %s", svc.lastCheckInBy)
	}
}

func TestCheckInForeignVaultForbidden(t *testing.T) {
	svc := &fakeService{err: service.ErrUnauthorized}
	router := newRouter(t, svc)

	resp := testutil.MakeAuthRequest(router, http.MethodPost, "/vaults/"+uuid.NewString()+"/checkins", nil, ownerToken(t))

	testutil.AssertHTTPStatus(t, resp, http.StatusForbidden)
	testutil.AssertErrorCode(t, resp, "FORBIDDEN")
}

func TestGetVaultForwardsTokenSubject(t *testing.T) {
	view := demoView()
	svc := &fakeService{status: &service.VaultStatusView{View: view}}
	router := newRouter(t, svc)

	resp := testutil.MakeAuthRequest(router, http.MethodGet, "/vaults/"+view.Vault.ID.String(), nil, ownerToken(t))

	testutil.AssertHTTPStatus(t, resp, http.StatusOK)
	if svc.lastStatusBy != testutil.DemoOwnerID {
		t.Fatalf("expected token subject forwarded as owner, got %s", svc.lastStatusBy)
	}
}

func TestGetVaultForeignVaultForbidden(t *testing.T) {
	svc := &fakeService{err: service.ErrUnauthorized}
	router := newRouter(t, svc)

	resp := testutil.MakeAuthRequest(router, http.MethodGet, "/vaults/"+uuid.NewString(), nil, ownerToken(t))

	testutil.AssertHTTPStatus(t, resp, http.StatusForbidden)
	testutil.AssertErrorCode(t, resp, "FORBIDDEN")
}

func TestCheckInTerminalReportsState(t *testing.T) {
	svc := &fakeService{err: service.ErrTerminalState}
	router := newRouter(t, svc)

	resp := testutil.MakeAuthRequest(router, http.MethodPost, "/vaults/"+uuid.NewString()+"/checkins", map[string]any{"source": "manual"}, ownerToken(t))

	testutil.AssertHTTPStatus(t, resp, http.StatusOK)
	var body map[string]string
	decodeJSON(t, resp.Body.Bytes(), &body)
	if body["status"] != "terminal" {
		t.Fatalf("expected terminal status, got %+v", body)
	}
}

func TestCheckInRejectsUnknownSource(t *testing.T) {
	router := newRouter(t, &fakeService{view: demoView()})

	resp := testutil.MakeAuthRequest(router, http.MethodPost, "/vaults/"+uuid.NewString()+"/checkins", map[string]any{"source": "carrier-pigeon"}, ownerToken(t))

	testutil.AssertErrorCode(t, resp, testutil.ErrorCodeInvalidRequest)
}

func TestSubmitAttestationReturnsTally(t *testing.T) {
	svc := &fakeService{attestation: &service.AttestationResult{
		Tally:     consensus.Tally{QuorumMet: true, ForWeight: 3, TotalWeight: 4},
		CycleID:   2,
		Triggered: true,
	}}
	router := newRouter(t, svc)

	resp := testutil.MakeAPIRequest(router, http.MethodPost, "/vaults/"+uuid.NewString()+"/attestations", map[string]any{
		"guardian_id":       uuid.NewString(),
		"attested_inactive": true,
	})

	testutil.AssertHTTPStatus(t, resp, http.StatusOK)
	var body attestationResponse
	decodeJSON(t, resp.Body.Bytes(), &body)
	if !body.Triggered || !body.QuorumMet || body.CycleID != 2 {
		t.Fatalf("unexpected attestation response: %+v", body)
	}
}

func TestSubmitAttestationRequiresVote(t *testing.T) {
	router := newRouter(t, &fakeService{})

	resp := testutil.MakeAPIRequest(router, http.MethodPost, "/vaults/"+uuid.NewString()+"/attestations", map[string]any{
		"guardian_id": uuid.NewString(),
	})

	testutil.AssertErrorCode(t, resp, testutil.ErrorCodeInvalidRequest)
}

func TestSubmitAttestationCycleClosed(t *testing.T) {
	router := newRouter(t, &fakeService{err: service.ErrCycleClosed})

	resp := testutil.MakeAPIRequest(router, http.MethodPost, "/vaults/"+uuid.NewString()+"/attestations", map[string]any{
		"guardian_id":       uuid.NewString(),
		"attested_inactive": true,
	})

	testutil.AssertErrorCode(t, resp, testutil.ErrorCodeCycleClosed)
}

func TestGuardianNotAuthorized(t *testing.T) {
	router := newRouter(t, &fakeService{err: service.ErrGuardianNotAuthorized})

	resp := testutil.MakeAPIRequest(router, http.MethodPost, "/guardians/"+uuid.NewString()+"/accept", nil)

	testutil.AssertErrorCode(t, resp, testutil.ErrorCodeGuardianNotAuthorized)
}

func TestCancelVaultTerminalConflict(t *testing.T) {
	router := newRouter(t, &fakeService{err: service.ErrTerminalState})

	resp := testutil.MakeAuthRequest(router, http.MethodDelete, "/vaults/"+uuid.NewString(), nil, ownerToken(t))

	testutil.AssertErrorCode(t, resp, testutil.ErrorCodeTerminalState)
}

func TestDistributionCallbacksRequireKey(t *testing.T) {
	router := newRouter(t, &fakeService{})

	resp := testutil.MakeAPIRequest(router, http.MethodPost, "/distributions/"+uuid.NewString()+"/confirm", nil)
	testutil.AssertErrorCode(t, resp, testutil.ErrorCodeUnauthorized)
}

func TestDistributionConfirmWithKey(t *testing.T) {
	key, _, hash, err := testutil.GenerateExecutorKey("test")
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	svc := &fakeService{}
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := New(svc, nil, nil, hash)
	h.Register(router, []byte("secret"))

	eventID := uuid.New()
	resp := testutil.MakeKeyRequest(router, http.MethodPost, "/distributions/"+eventID.String()+"/confirm", nil, key)

	testutil.AssertHTTPStatus(t, resp, http.StatusOK)
	if svc.confirmedEvent != eventID {
		t.Fatalf("expected confirm for %s, got %s", eventID, svc.confirmedEvent)
	}
}

func TestDistributionFailForwardsReason(t *testing.T) {
	key, _, hash, err := testutil.GenerateExecutorKey("test")
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	svc := &fakeService{}
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := New(svc, nil, nil, hash)
	h.Register(router, []byte("secret"))

	eventID := uuid.New()
	resp := testutil.MakeKeyRequest(router, http.MethodPost, "/distributions/"+eventID.String()+"/fail", map[string]any{"reason": "chain unreachable"}, key)

	testutil.AssertHTTPStatus(t, resp, http.StatusOK)
	if svc.failedEvent != eventID || svc.failedReason != "chain unreachable" {
		t.Fatalf("fail not forwarded: %s %q", svc.failedEvent, svc.failedReason)
	}
}

func decodeJSON(t *testing.T, data []byte, out any) {
	t.Helper()
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestUnavailableMapsTo503(t *testing.T) {
	router := newRouter(t, &fakeService{err: service.ErrUnavailable})

	resp := testutil.MakeAuthRequest(router, http.MethodGet, "/vaults", nil, ownerToken(t))

	testutil.AssertErrorCode(t, resp, testutil.ErrorCodeUnavailable)
}
