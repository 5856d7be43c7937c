package handler

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dukerupert/tandem/internal/auth"
	"github.com/dukerupert/tandem/internal/model"
	"github.com/dukerupert/tandem/internal/realtime"
	"github.com/dukerupert/tandem/internal/store"
)

type ListHandler struct {
	listStore   *store.ListStore
	inviteStore *store.InviteStore
	pub         Publisher
	logger      *slog.Logger
}

func NewListHandler(ls *store.ListStore, is *store.InviteStore, pub Publisher, logger *slog.Logger) *ListHandler {
	return &ListHandler{listStore: ls, inviteStore: is, pub: pub, logger: logger}
}

// access loads a list and the caller's membership of it. Lists the caller
// does not belong to are reported as not found. It writes the error response
// and returns ok=false on failure.
func access(w http.ResponseWriter, r *http.Request, ls *store.ListStore, logger *slog.Logger, listID string) (*model.List, *model.ListMember, bool) {
	l, err := ls.GetByID(listID)
	if err != nil {
		serverError(w, logger, "get list", err)
		return nil, nil, false
	}
	var m *model.ListMember
	if l != nil {
		m, err = ls.GetMember(listID, auth.UserID(r.Context()))
		if err != nil {
			serverError(w, logger, "get member", err)
			return nil, nil, false
		}
	}
	if l == nil || m == nil {
		writeError(w, http.StatusNotFound, "list not found", "not_found")
		return nil, nil, false
	}
	return l, m, true
}

// audience returns the members who should see changes to listID.
func audience(ls *store.ListStore, logger *slog.Logger, listID string) realtime.Audience {
	ids, err := ls.MemberIDs(listID)
	if err != nil {
		logger.Error("list member ids", "list_id", listID, "error", err)
	}
	return realtime.Audience{ListID: listID, Members: ids}
}

func (h *ListHandler) List(w http.ResponseWriter, r *http.Request) {
	lists, err := h.listStore.ListForUser(auth.UserID(r.Context()))
	if err != nil {
		serverError(w, h.logger, "list lists", err)
		return
	}
	if lists == nil {
		lists = []model.List{}
	}
	writeJSON(w, http.StatusOK, lists)
}

type createListRequest struct {
	Name string `json:"name"`
}

func (h *ListHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createListRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name := cleanText(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required", "validation_failed")
		return
	}

	uid := auth.UserID(r.Context())
	l, err := h.listStore.Create(name, uid)
	if err != nil {
		serverError(w, h.logger, "create list", err)
		return
	}

	h.pub.Publish(model.TableLists, model.ChangeInsert, l, nil, realtime.Audience{ListID: l.ID, Members: []string{uid}})
	writeJSON(w, http.StatusCreated, l)
}

func (h *ListHandler) Get(w http.ResponseWriter, r *http.Request) {
	l, _, ok := access(w, r, h.listStore, h.logger, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *ListHandler) Update(w http.ResponseWriter, r *http.Request) {
	l, m, ok := access(w, r, h.listStore, h.logger, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if !m.Role.CanWrite() {
		writeError(w, http.StatusForbidden, "viewers cannot edit this list", "forbidden")
		return
	}

	var patch model.ListPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	cleanOptional(patch.Name)
	cleanOptional(patch.Notes)
	if patch.Name != nil && *patch.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", "validation_failed")
		return
	}
	if patch.Status != nil && !patch.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status", "validation_failed")
		return
	}

	updated, err := h.listStore.Update(l.ID, patch)
	if err != nil {
		serverError(w, h.logger, "update list", err)
		return
	}

	h.pub.Publish(model.TableLists, model.ChangeUpdate, updated, nil, audience(h.listStore, h.logger, l.ID))
	writeJSON(w, http.StatusOK, updated)
}

func (h *ListHandler) Delete(w http.ResponseWriter, r *http.Request) {
	l, m, ok := access(w, r, h.listStore, h.logger, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if m.Role != model.RoleOwner {
		writeError(w, http.StatusForbidden, "only the owner can delete this list", "forbidden")
		return
	}

	aud := audience(h.listStore, h.logger, l.ID)
	if err := h.listStore.Delete(l.ID); err != nil {
		serverError(w, h.logger, "delete list", err)
		return
	}

	h.pub.Publish(model.TableLists, model.ChangeDelete, nil, model.RowID{ID: l.ID}, aud)
	w.WriteHeader(http.StatusNoContent)
}

// DeleteOwned removes every list created by the caller. The created_by
// query parameter must name the caller.
func (h *ListHandler) DeleteOwned(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	if r.URL.Query().Get("created_by") != uid {
		writeError(w, http.StatusForbidden, "created_by must be the current user", "forbidden")
		return
	}

	owned, err := h.listStore.ListOwnedBy(uid)
	if err != nil {
		serverError(w, h.logger, "list owned lists", err)
		return
	}
	audiences := make([]realtime.Audience, len(owned))
	for i, l := range owned {
		audiences[i] = audience(h.listStore, h.logger, l.ID)
	}

	if _, err := h.listStore.DeleteOwnedBy(uid); err != nil {
		serverError(w, h.logger, "delete owned lists", err)
		return
	}

	for i, l := range owned {
		h.pub.Publish(model.TableLists, model.ChangeDelete, nil, model.RowID{ID: l.ID}, audiences[i])
	}
	w.WriteHeader(http.StatusNoContent)
}

// ByShareToken resolves a share token to the list's id and name. Any signed-in
// caller may do this; it is how a share link is redeemed.
func (h *ListHandler) ByShareToken(w http.ResponseWriter, r *http.Request) {
	l, err := h.listStore.GetByShareToken(chi.URLParam(r, "token"))
	if err != nil {
		serverError(w, h.logger, "get list by share token", err)
		return
	}
	if l == nil {
		writeError(w, http.StatusNotFound, "list not found", "not_found")
		return
	}
	writeJSON(w, http.StatusOK, model.ListRef{ID: l.ID, Name: l.Name})
}

func (h *ListHandler) GetMember(w http.ResponseWriter, r *http.Request) {
	listID := chi.URLParam(r, "id")
	userID := chi.URLParam(r, "user_id")
	caller := auth.UserID(r.Context())

	if userID != caller {
		self, err := h.listStore.GetMember(listID, caller)
		if err != nil {
			serverError(w, h.logger, "get member", err)
			return
		}
		if self == nil {
			writeError(w, http.StatusNotFound, "member not found", "not_found")
			return
		}
	}

	m, err := h.listStore.GetMember(listID, userID)
	if err != nil {
		serverError(w, h.logger, "get member", err)
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "member not found", "not_found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type joinRequest struct {
	Role       model.Role `json:"role"`
	ShareToken string     `json:"share_token"`
}

// Join adds the caller to a list. It requires either the list's share token
// or a pending invitation addressed to the caller's email.
func (h *ListHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Role != model.RoleEditor && req.Role != model.RoleViewer {
		writeError(w, http.StatusBadRequest, "role must be editor or viewer", "validation_failed")
		return
	}

	l, err := h.listStore.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		serverError(w, h.logger, "get list", err)
		return
	}
	if l == nil {
		writeError(w, http.StatusNotFound, "list not found", "not_found")
		return
	}

	allowed := req.ShareToken != "" &&
		subtle.ConstantTimeCompare([]byte(req.ShareToken), []byte(l.ShareToken)) == 1
	if !allowed {
		allowed, err = h.inviteStore.Pending(l.ID, auth.Email(r.Context()))
		if err != nil {
			serverError(w, h.logger, "check invite", err)
			return
		}
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "a share link or invitation is required", "forbidden")
		return
	}

	m, err := h.listStore.AddMember(l.ID, auth.UserID(r.Context()), req.Role)
	if errors.Is(err, model.ErrConflict) {
		writeConflict(w, `duplicate key value violates unique constraint "list_members_pkey"`)
		return
	}
	if err != nil {
		serverError(w, h.logger, "add member", err)
		return
	}

	h.logger.Info("member joined", "list_id", l.ID, "user_id", m.UserID, "role", m.Role)
	writeJSON(w, http.StatusCreated, m)
}

// DeleteMemberships removes every membership row of the caller. The user_id
// query parameter must name the caller.
func (h *ListHandler) DeleteMemberships(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	if r.URL.Query().Get("user_id") != uid {
		writeError(w, http.StatusForbidden, "user_id must be the current user", "forbidden")
		return
	}
	if _, err := h.listStore.RemoveMembershipsOf(uid); err != nil {
		serverError(w, h.logger, "remove memberships", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
