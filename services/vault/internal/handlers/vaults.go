package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"log/slog"

	"github.com/guardiavault-oss/Paradexx-sub007/libs/apikey"
	"github.com/guardiavault-oss/Paradexx-sub007/libs/auth"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/allocation"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/rate"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/service"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/storage"
)

type VaultService interface {
	CreateVault(ctx context.Context, input service.CreateVaultInput) (*storage.VaultView, error)
	CheckIn(ctx context.Context, vaultID, ownerID uuid.UUID, source storage.CheckInSource, note string) (*storage.VaultView, error)
	InviteGuardian(ctx context.Context, vaultID, ownerID uuid.UUID, input service.GuardianInput) (*storage.Guardian, error)
	AcceptGuardianInvite(ctx context.Context, guardianID uuid.UUID) (*storage.Guardian, error)
	DeclineGuardianInvite(ctx context.Context, guardianID uuid.UUID) (*storage.Guardian, error)
	RevokeGuardian(ctx context.Context, vaultID, guardianID, ownerID uuid.UUID) (*storage.Guardian, error)
	AddBeneficiary(ctx context.Context, vaultID, ownerID uuid.UUID, input service.BeneficiaryInput) (*storage.VaultView, error)
	UpdateAllocation(ctx context.Context, vaultID, beneficiaryID, ownerID uuid.UUID, update service.AllocationUpdate) (*storage.VaultView, error)
	RemoveBeneficiary(ctx context.Context, vaultID, beneficiaryID, ownerID uuid.UUID) (*storage.VaultView, error)
	SubmitAttestation(ctx context.Context, vaultID, guardianID uuid.UUID, attestedInactive bool) (*service.AttestationResult, error)
	CancelVault(ctx context.Context, vaultID, ownerID uuid.UUID) (*storage.VaultView, error)
	GetVault(ctx context.Context, vaultID, ownerID uuid.UUID) (*service.VaultStatusView, error)
	ListVaults(ctx context.Context, ownerID uuid.UUID) ([]storage.Vault, error)
	ConfirmDistribution(ctx context.Context, eventID uuid.UUID) error
	FailDistribution(ctx context.Context, eventID uuid.UUID, reason string) error
}

type Handler struct {
	Service         VaultService
	Logger          *slog.Logger
	GuardianLimiter rate.Limiter
	ExecutorKeyHash string
}

func New(svc VaultService, logger *slog.Logger, limiter rate.Limiter, executorKeyHash string) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Service:         svc,
		Logger:          logger,
		GuardianLimiter: limiter,
		ExecutorKeyHash: executorKeyHash,
	}
}

func (h *Handler) Register(r *gin.Engine, jwtSecret []byte) {
	owner := r.Group("/", auth.Middleware(jwtSecret))
	owner.POST("/vaults", h.CreateVault)
	owner.GET("/vaults", h.ListVaults)
	owner.GET("/vaults/:id", h.GetVault)
	owner.DELETE("/vaults/:id", h.CancelVault)
	owner.POST("/vaults/:id/checkins", h.CheckIn)
	owner.POST("/vaults/:id/guardians", h.InviteGuardian)
	owner.DELETE("/vaults/:id/guardians/:guardianID", h.RevokeGuardian)
	owner.POST("/vaults/:id/beneficiaries", h.AddBeneficiary)
	owner.PUT("/vaults/:id/beneficiaries/:beneficiaryID", h.UpdateAllocation)
	owner.DELETE("/vaults/:id/beneficiaries/:beneficiaryID", h.RemoveBeneficiary)

	guardian := r.Group("/", h.rateLimit())
	guardian.POST("/guardians/:id/accept", h.AcceptInvite)
	guardian.POST("/guardians/:id/decline", h.DeclineInvite)
	guardian.POST("/vaults/:id/attestations", h.SubmitAttestation)

	executor := r.Group("/", h.executorAuth())
	executor.POST("/distributions/:id/confirm", h.ConfirmDistribution)
	executor.POST("/distributions/:id/fail", h.FailDistribution)
}

type beneficiaryRequest struct {
	Name          string `json:"name"`
	Contact       string `json:"contact"`
	WalletAddress string `json:"wallet_address"`
	AllocationBps int    `json:"allocation_bps"`
}

type createVaultRequest struct {
	Name               string               `json:"name"`
	InactivityPeriod   string               `json:"inactivity_period"`
	BypassWindow       string               `json:"bypass_window"`
	QuorumThresholdBps int                  `json:"quorum_threshold_bps"`
	Beneficiaries      []beneficiaryRequest `json:"beneficiaries"`
}

type guardianResponse struct {
	ID        string `json:"id"`
	VaultID   string `json:"vault_id"`
	Name      string `json:"name"`
	Contact   string `json:"contact,omitempty"`
	Status    string `json:"status"`
	Weight    int    `json:"weight"`
	CreatedAt string `json:"created_at"`
}

type beneficiaryResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Contact       string `json:"contact,omitempty"`
	WalletAddress string `json:"wallet_address,omitempty"`
	AllocationBps int    `json:"allocation_bps"`
	Revoked       bool   `json:"revoked,omitempty"`
}

type vaultResponse struct {
	ID               string                `json:"id"`
	OwnerID          string                `json:"owner_id"`
	Name             string                `json:"name"`
	Status           string                `json:"status"`
	Misconfigured    bool                  `json:"misconfigured,omitempty"`
	InactivityPeriod string                `json:"inactivity_period"`
	BypassWindow     string                `json:"bypass_window"`
	QuorumThreshold  int                   `json:"quorum_threshold_bps"`
	CycleID          int64                 `json:"cycle_id"`
	LastCheckInAt    string                `json:"last_check_in_at"`
	WarningSince     string                `json:"warning_since,omitempty"`
	CreatedAt        string                `json:"created_at"`
	Guardians        []guardianResponse    `json:"guardians,omitempty"`
	Beneficiaries    []beneficiaryResponse `json:"beneficiaries,omitempty"`
}

type cycleInfoResponse struct {
	CycleID     int64 `json:"cycle_id"`
	QuorumMet   bool  `json:"quorum_met"`
	ForWeight   int   `json:"for_weight"`
	TotalWeight int   `json:"total_weight"`
}

type attestationResponse struct {
	CycleID     int64 `json:"cycle_id"`
	QuorumMet   bool  `json:"quorum_met"`
	ForWeight   int   `json:"for_weight"`
	TotalWeight int   `json:"total_weight"`
	Triggered   bool  `json:"triggered"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) CreateVault(c *gin.Context) {
	ownerID, ok := ownerIDFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing user")
		return
	}

	var req createVaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid payload")
		return
	}

	inactivity, err := time.ParseDuration(req.InactivityPeriod)
	if err != nil || inactivity <= 0 {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid inactivity_period")
		return
	}
	var bypass time.Duration
	if req.BypassWindow != "" {
		bypass, err = time.ParseDuration(req.BypassWindow)
		if err != nil || bypass <= 0 {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid bypass_window")
			return
		}
	}

	input := service.CreateVaultInput{
		OwnerID:            ownerID,
		Name:               req.Name,
		InactivityPeriod:   inactivity,
		BypassWindow:       bypass,
		QuorumThresholdBps: req.QuorumThresholdBps,
	}
	for _, b := range req.Beneficiaries {
		input.Beneficiaries = append(input.Beneficiaries, service.BeneficiaryInput{
			Name:          b.Name,
			Contact:       b.Contact,
			WalletAddress: b.WalletAddress,
			AllocationBps: b.AllocationBps,
		})
	}

	view, err := h.Service.CreateVault(c.Request.Context(), input)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, vaultToResponse(view))
}

func (h *Handler) ListVaults(c *gin.Context) {
	ownerID, ok := ownerIDFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing user")
		return
	}

	vaults, err := h.Service.ListVaults(c.Request.Context(), ownerID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	items := make([]vaultResponse, 0, len(vaults))
	for i := range vaults {
		items = append(items, vaultSummary(&vaults[i]))
	}
	c.JSON(http.StatusOK, gin.H{"vaults": items})
}

func (h *Handler) GetVault(c *gin.Context) {
	ownerID, ok := ownerIDFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing user")
		return
	}
	vaultID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	status, err := h.Service.GetVault(c.Request.Context(), vaultID, ownerID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	resp := vaultToResponse(status.View)
	c.JSON(http.StatusOK, gin.H{
		"vault": resp,
		"cycle": cycleInfoResponse{
			CycleID:     status.View.Vault.CycleID,
			QuorumMet:   status.Tally.QuorumMet,
			ForWeight:   status.Tally.ForWeight,
			TotalWeight: status.Tally.TotalWeight,
		},
	})
}

func (h *Handler) CancelVault(c *gin.Context) {
	ownerID, ok := ownerIDFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing user")
		return
	}
	vaultID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	view, err := h.Service.CancelVault(c.Request.Context(), vaultID, ownerID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, vaultToResponse(view))
}

type checkInRequest struct {
	Source string `json:"source"`
	Note   string `json:"note"`
}

func (h *Handler) CheckIn(c *gin.Context) {
	ownerID, ok := ownerIDFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing user")
		return
	}
	vaultID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req checkInRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid payload")
			return
		}
	}

	source := storage.CheckInSource(req.Source)
	switch source {
	case storage.CheckInManual, storage.CheckInOnChain, storage.CheckInAPI:
	case "":
		source = storage.CheckInManual
	default:
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid source")
		return
	}

	view, err := h.Service.CheckIn(c.Request.Context(), vaultID, ownerID, source, req.Note)
	if err != nil {
		// A check-in against a finished vault is expected, not an error:
		// report the terminal state instead of failing the call.
		if errors.Is(err, service.ErrTerminalState) {
			c.JSON(http.StatusOK, gin.H{"status": "terminal"})
			return
		}
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, vaultToResponse(view))
}

type inviteGuardianRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Weight  int    `json:"weight"`
}

func (h *Handler) InviteGuardian(c *gin.Context) {
	ownerID, ok := ownerIDFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing user")
		return
	}
	vaultID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req inviteGuardianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid payload")
		return
	}

	guardian, err := h.Service.InviteGuardian(c.Request.Context(), vaultID, ownerID, service.GuardianInput{
		Name:    req.Name,
		Contact: req.Contact,
		Weight:  req.Weight,
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, guardianToResponse(guardian))
}

func (h *Handler) AcceptInvite(c *gin.Context) {
	h.answerInvite(c, h.Service.AcceptGuardianInvite)
}

func (h *Handler) DeclineInvite(c *gin.Context) {
	h.answerInvite(c, h.Service.DeclineGuardianInvite)
}

func (h *Handler) answerInvite(c *gin.Context, fn func(context.Context, uuid.UUID) (*storage.Guardian, error)) {
	guardianID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	guardian, err := fn(c.Request.Context(), guardianID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, guardianToResponse(guardian))
}

func (h *Handler) RevokeGuardian(c *gin.Context) {
	ownerID, ok := ownerIDFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing user")
		return
	}
	vaultID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	guardianID, ok := pathUUID(c, "guardianID")
	if !ok {
		return
	}

	guardian, err := h.Service.RevokeGuardian(c.Request.Context(), vaultID, guardianID, ownerID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, guardianToResponse(guardian))
}

func (h *Handler) AddBeneficiary(c *gin.Context) {
	ownerID, ok := ownerIDFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing user")
		return
	}
	vaultID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req beneficiaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid payload")
		return
	}

	view, err := h.Service.AddBeneficiary(c.Request.Context(), vaultID, ownerID, service.BeneficiaryInput{
		Name:          req.Name,
		Contact:       req.Contact,
		WalletAddress: req.WalletAddress,
		AllocationBps: req.AllocationBps,
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, vaultToResponse(view))
}

type updateAllocationRequest struct {
	AllocationBps *int    `json:"allocation_bps"`
	WalletAddress *string `json:"wallet_address"`
	Contact       *string `json:"contact"`
}

func (h *Handler) UpdateAllocation(c *gin.Context) {
	ownerID, ok := ownerIDFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing user")
		return
	}
	vaultID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	beneficiaryID, ok := pathUUID(c, "beneficiaryID")
	if !ok {
		return
	}

	var req updateAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid payload")
		return
	}

	view, err := h.Service.UpdateAllocation(c.Request.Context(), vaultID, beneficiaryID, ownerID, service.AllocationUpdate{
		AllocationBps: req.AllocationBps,
		WalletAddress: req.WalletAddress,
		Contact:       req.Contact,
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, vaultToResponse(view))
}

func (h *Handler) RemoveBeneficiary(c *gin.Context) {
	ownerID, ok := ownerIDFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing user")
		return
	}
	vaultID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	beneficiaryID, ok := pathUUID(c, "beneficiaryID")
	if !ok {
		return
	}

	view, err := h.Service.RemoveBeneficiary(c.Request.Context(), vaultID, beneficiaryID, ownerID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, vaultToResponse(view))
}

type attestationRequest struct {
	GuardianID       string `json:"guardian_id"`
	AttestedInactive *bool  `json:"attested_inactive"`
}

func (h *Handler) SubmitAttestation(c *gin.Context) {
	vaultID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req attestationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid payload")
		return
	}
	guardianID, err := uuid.Parse(req.GuardianID)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid guardian_id")
		return
	}
	if req.AttestedInactive == nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "attested_inactive required")
		return
	}

	result, err := h.Service.SubmitAttestation(c.Request.Context(), vaultID, guardianID, *req.AttestedInactive)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, attestationResponse{
		CycleID:     result.CycleID,
		QuorumMet:   result.Tally.QuorumMet,
		ForWeight:   result.Tally.ForWeight,
		TotalWeight: result.Tally.TotalWeight,
		Triggered:   result.Triggered,
	})
}

func (h *Handler) ConfirmDistribution(c *gin.Context) {
	eventID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.Service.ConfirmDistribution(c.Request.Context(), eventID); err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "confirmed"})
}

type failDistributionRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) FailDistribution(c *gin.Context) {
	eventID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req failDistributionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid payload")
			return
		}
	}

	if err := h.Service.FailDistribution(c.Request.Context(), eventID, req.Reason); err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "failed"})
}

func (h *Handler) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.GuardianLimiter == nil {
			c.Next()
			return
		}
		allowed, retryAfter, err := h.GuardianLimiter.Allow(c.Request.Context(), c.ClientIP(), time.Now())
		if err != nil {
			// Fail open: a broken limiter should not lock guardians out.
			h.Logger.Error("rate limiter error", "error", err)
			c.Next()
			return
		}
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Code: "RATE_LIMITED", Message: "too many requests"})
			return
		}
		c.Next()
	}
}

func (h *Handler) executorAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-Api-Key")
		if key == "" || h.ExecutorKeyHash == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "missing executor key"})
			return
		}
		if err := apikey.Verify(key, apikey.Record{KeyHash: h.ExecutorKeyHash}, c.ClientIP()); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "invalid executor key"})
			return
		}
		c.Next()
	}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	var allocErr *allocation.InvalidAllocationError
	switch {
	case errors.As(err, &allocErr):
		writeError(c, http.StatusUnprocessableEntity, "INVALID_ALLOCATION", allocErr.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(c, http.StatusNotFound, "NOT_FOUND", "not found")
	case errors.Is(err, service.ErrUnauthorized):
		writeError(c, http.StatusForbidden, "FORBIDDEN", "caller is not the vault owner")
	case errors.Is(err, service.ErrGuardianNotAuthorized):
		writeError(c, http.StatusForbidden, "GUARDIAN_NOT_AUTHORIZED", "guardian not accepted for this vault")
	case errors.Is(err, service.ErrCycleClosed):
		writeError(c, http.StatusConflict, "CYCLE_CLOSED", "attestation cycle closed")
	case errors.Is(err, service.ErrTerminalState):
		writeError(c, http.StatusConflict, "TERMINAL_STATE", "vault is in a terminal state")
	case errors.Is(err, service.ErrInvalidInput):
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, service.ErrUnavailable):
		writeError(c, http.StatusServiceUnavailable, "UNAVAILABLE", "temporarily unavailable")
	default:
		h.Logger.Error("unhandled service error", "error", err)
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{Code: code, Message: message})
}

func ownerIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	raw, ok := c.Get(auth.ContextUserIDKey)
	if !ok {
		return uuid.Nil, false
	}
	str, ok := raw.(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(str)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func vaultSummary(v *storage.Vault) vaultResponse {
	resp := vaultResponse{
		ID:               v.ID.String(),
		OwnerID:          v.OwnerID.String(),
		Name:             v.Name,
		Status:           string(v.Status),
		Misconfigured:    v.Misconfigured,
		InactivityPeriod: v.InactivityPeriod.String(),
		BypassWindow:     v.BypassWindow.String(),
		QuorumThreshold:  v.QuorumThresholdBps,
		CycleID:          v.CycleID,
		LastCheckInAt:    v.LastCheckInAt.UTC().Format(time.RFC3339),
		CreatedAt:        v.CreatedAt.UTC().Format(time.RFC3339),
	}
	if v.WarningSince != nil {
		resp.WarningSince = v.WarningSince.UTC().Format(time.RFC3339)
	}
	return resp
}

func vaultToResponse(view *storage.VaultView) vaultResponse {
	resp := vaultSummary(&view.Vault)
	for i := range view.Guardians {
		resp.Guardians = append(resp.Guardians, guardianToResponse(&view.Guardians[i]))
	}
	for _, b := range view.Beneficiaries {
		resp.Beneficiaries = append(resp.Beneficiaries, beneficiaryResponse{
			ID:            b.ID.String(),
			Name:          b.Name,
			Contact:       b.Contact,
			WalletAddress: b.WalletAddress,
			AllocationBps: b.AllocationBps,
			Revoked:       b.Revoked,
		})
	}
	return resp
}

func guardianToResponse(g *storage.Guardian) guardianResponse {
	return guardianResponse{
		ID:        g.ID.String(),
		VaultID:   g.VaultID.String(),
		Name:      g.Name,
		Contact:   g.Contact,
		Status:    string(g.Status),
		Weight:    g.Weight,
		CreatedAt: g.CreatedAt.UTC().Format(time.RFC3339),
	}
}
