// Package handler exposes the vault service over HTTP under /api/v1. The
// caller principal comes from the bearer token via the auth middleware and is
// passed explicitly into every service call.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"satvault/internal/vault/models"
	"satvault/internal/vault/service"
	dErrors "satvault/pkg/domain-errors"
	"satvault/pkg/platform/httputil"
	authmw "satvault/pkg/platform/middleware/auth"
	"satvault/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the vault operations the handler needs.
type Service interface {
	CreateVault(ctx context.Context, caller, primary, backup string, periodDays int) (*models.Vault, error)
	GetVault(ctx context.Context, caller string) (*service.VaultView, error)
	UpdateActivity(ctx context.Context, caller string) (*models.Vault, error)
	Deposit(ctx context.Context, caller string, amount uint64) (*models.Vault, error)
	GetActivityLogs(ctx context.Context, caller string) ([]*models.ActivityLogEntry, error)
	AddEncryptedMessage(ctx context.Context, caller, recipient string, ciphertext []byte) (*models.EncryptedMessage, error)
	GetEncryptedMessages(ctx context.Context, caller, owner string) ([]*models.EncryptedMessage, error)
	SealMessage(ctx context.Context, caller, recipient, recipientPublicKey string, plaintext []byte) (*models.EncryptedMessage, error)
	GetProfile(ctx context.Context, caller string) (*models.UserProfile, error)
	SaveProfile(ctx context.Context, caller, name string) (*models.UserProfile, error)
}

type Handler struct {
	logger       *slog.Logger
	vaults       Service
	jwtValidator authmw.JWTValidator
}

func New(vaults Service, logger *slog.Logger, jwtValidator authmw.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		vaults:       vaults,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the authenticated /api/v1 routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authmw.RequireAuth(h.jwtValidator, h.logger))

		r.Post("/vault", h.handleCreateVault)
		r.Get("/vault", h.handleGetVault)
		r.Post("/vault/activity", h.handleUpdateActivity)
		r.Post("/vault/deposit", h.handleDeposit)
		r.Get("/vault/logs", h.handleGetActivityLogs)
		r.Post("/vault/messages", h.handleAddMessage)
		r.Get("/vault/messages", h.handleGetOwnMessages)
		r.Get("/vaults/{owner}/messages", h.handleGetVaultMessages)
		r.Post("/seal", h.handleSealMessage)
		r.Get("/profile", h.handleGetProfile)
		r.Put("/profile", h.handleSaveProfile)
	})
}

func (h *Handler) handleCreateVault(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createVaultRequest
	if !h.decode(w, r, &req) {
		return
	}

	v, err := h.vaults.CreateVault(ctx, requestcontext.Principal(ctx), req.PrimaryAddress, req.BackupAddress, req.InactivityPeriodDays)
	if err != nil {
		h.writeError(ctx, w, "create vault", err)
		return
	}
	countdown := v.Countdown(requestcontext.Now(ctx))
	httputil.WriteJSON(w, http.StatusCreated, vaultResponse{Vault: v, Countdown: &countdown})
}

// handleGetVault answers 200 with {"vault": null} when the caller has none.
func (h *Handler) handleGetVault(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.vaults.GetVault(ctx, requestcontext.Principal(ctx))
	if err != nil {
		h.writeError(ctx, w, "get vault", err)
		return
	}
	if view == nil {
		httputil.WriteJSON(w, http.StatusOK, vaultResponse{})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, vaultResponse{Vault: view.Vault, Countdown: &view.Countdown})
}

func (h *Handler) handleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v, err := h.vaults.UpdateActivity(ctx, requestcontext.Principal(ctx))
	if err != nil {
		h.writeError(ctx, w, "update activity", err)
		return
	}
	h.writeVault(ctx, w, v)
}

func (h *Handler) handleDeposit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req depositRequest
	if !h.decode(w, r, &req) {
		return
	}

	v, err := h.vaults.Deposit(ctx, requestcontext.Principal(ctx), req.Amount)
	if err != nil {
		h.writeError(ctx, w, "deposit", err)
		return
	}
	h.writeVault(ctx, w, v)
}

func (h *Handler) handleGetActivityLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := h.vaults.GetActivityLogs(ctx, requestcontext.Principal(ctx))
	if err != nil {
		h.writeError(ctx, w, "list activity", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, activityLogResponse{Entries: entries})
}

func (h *Handler) handleAddMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req addMessageRequest
	if !h.decode(w, r, &req) {
		return
	}

	msg, err := h.vaults.AddEncryptedMessage(ctx, requestcontext.Principal(ctx), req.RecipientAddress, req.Ciphertext)
	if err != nil {
		h.writeError(ctx, w, "add message", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, messageResponse{Message: msg})
}

func (h *Handler) handleGetOwnMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Principal(ctx)
	h.writeMessages(ctx, w, caller, caller)
}

// handleGetVaultMessages is the heir path: the caller reads another owner's vault.
func (h *Handler) handleGetVaultMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := chi.URLParam(r, "owner")
	if owner == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "owner is required"))
		return
	}
	h.writeMessages(ctx, w, requestcontext.Principal(ctx), owner)
}

func (h *Handler) writeMessages(ctx context.Context, w http.ResponseWriter, caller, owner string) {
	msgs, err := h.vaults.GetEncryptedMessages(ctx, caller, owner)
	if err != nil {
		h.writeError(ctx, w, "list messages", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, messagesResponse{Owner: owner, Messages: msgs})
}

func (h *Handler) handleSealMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req sealMessageRequest
	if !h.decode(w, r, &req) {
		return
	}

	msg, err := h.vaults.SealMessage(ctx, requestcontext.Principal(ctx), req.RecipientAddress, req.RecipientPublicKey, []byte(req.Plaintext))
	if err != nil {
		h.writeError(ctx, w, "seal message", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, messageResponse{Message: msg})
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := h.vaults.GetProfile(ctx, requestcontext.Principal(ctx))
	if err != nil {
		h.writeError(ctx, w, "get profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profileResponse{Profile: p})
}

func (h *Handler) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req saveProfileRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.vaults.SaveProfile(ctx, requestcontext.Principal(ctx), req.Name)
	if err != nil {
		h.writeError(ctx, w, "save profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profileResponse{Profile: p})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httputil.DecodeJSON(r, dst); err != nil {
		h.logger.WarnContext(r.Context(), "invalid request body",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return false
	}
	trimStrings(dst)
	return true
}

func (h *Handler) writeVault(ctx context.Context, w http.ResponseWriter, v *models.Vault) {
	countdown := v.Countdown(requestcontext.Now(ctx))
	httputil.WriteJSON(w, http.StatusOK, vaultResponse{Vault: v, Countdown: &countdown})
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	attrs := []any{
		"op", op,
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error(),
	}
	if httputil.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "vault request failed", attrs...)
	} else {
		h.logger.WarnContext(ctx, "vault request rejected", attrs...)
	}
	httputil.WriteError(w, err)
}
