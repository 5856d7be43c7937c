package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"

	"github.com/go-chi/chi/v5"

	"github.com/dukerupert/tandem/internal/auth"
	"github.com/dukerupert/tandem/internal/model"
	"github.com/dukerupert/tandem/internal/store"
)

// InviteMailer notifies an invitee. It may be nil.
type InviteMailer interface {
	Configured() bool
	SendListInvite(ctx context.Context, toEmail, listName, inviter string) error
}

type InviteHandler struct {
	inviteStore *store.InviteStore
	listStore   *store.ListStore
	mailer      InviteMailer
	logger      *slog.Logger
}

func NewInviteHandler(is *store.InviteStore, ls *store.ListStore, mailer InviteMailer, logger *slog.Logger) *InviteHandler {
	return &InviteHandler{inviteStore: is, listStore: ls, mailer: mailer, logger: logger}
}

type createInviteRequest struct {
	Email string `json:"email"`
}

func (h *InviteHandler) Create(w http.ResponseWriter, r *http.Request) {
	l, m, ok := access(w, r, h.listStore, h.logger, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if !m.Role.CanWrite() {
		writeError(w, http.StatusForbidden, "viewers cannot invite", "forbidden")
		return
	}

	var req createInviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	addr, err := mail.ParseAddress(req.Email)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid email address", "validation_failed")
		return
	}

	inviter := auth.Email(r.Context())
	inv, err := h.inviteStore.Create(l.ID, addr.Address, auth.UserID(r.Context()))
	if errors.Is(err, model.ErrConflict) {
		writeConflict(w, `duplicate key value violates unique constraint "list_invites_list_id_email_key"`)
		return
	}
	if err != nil {
		serverError(w, h.logger, "create invite", err)
		return
	}

	if h.mailer != nil && h.mailer.Configured() {
		if err := h.mailer.SendListInvite(r.Context(), inv.Email, l.Name, inviter); err != nil {
			h.logger.Warn("send invite email", "invite_id", inv.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, inv)
}

// ListMine returns the pending invitations addressed to the caller.
func (h *InviteHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	invites, err := h.inviteStore.ListByEmail(auth.Email(r.Context()))
	if err != nil {
		serverError(w, h.logger, "list invites", err)
		return
	}
	if invites == nil {
		invites = []model.ListInvite{}
	}
	writeJSON(w, http.StatusOK, invites)
}

// Delete removes an invitation. Only the invitee or the inviter may do so.
func (h *InviteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	inv, err := h.inviteStore.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		serverError(w, h.logger, "get invite", err)
		return
	}
	if inv == nil {
		writeError(w, http.StatusNotFound, "invite not found", "not_found")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	if inv.Email != store.NormalizeEmail(ac.Email) && inv.InvitedBy != ac.UserID {
		writeError(w, http.StatusNotFound, "invite not found", "not_found")
		return
	}

	if err := h.inviteStore.Delete(inv.ID); err != nil {
		serverError(w, h.logger, fmt.Sprintf("delete invite %s", inv.ID), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
