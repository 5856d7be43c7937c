package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/tandem/internal/auth"
	"github.com/dukerupert/tandem/internal/model"
	"github.com/dukerupert/tandem/internal/store"
)

type ProfileHandler struct {
	profileStore *store.ProfileStore
	logger       *slog.Logger
}

func NewProfileHandler(ps *store.ProfileStore, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profileStore: ps, logger: logger}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.profileStore.Get(auth.UserID(r.Context()))
	if err != nil {
		serverError(w, h.logger, "get profile", err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "profile not found", "not_found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch model.ProfilePatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	cleanOptional(patch.DisplayName)
	if patch.ThemePreference != nil {
		if _, ok := model.ParseTheme(string(*patch.ThemePreference)); !ok {
			writeError(w, http.StatusBadRequest, "theme_preference must be light, dark or system", "validation_failed")
			return
		}
	}

	p, err := h.profileStore.Update(auth.UserID(r.Context()), patch)
	if err != nil {
		serverError(w, h.logger, "update profile", err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "profile not found", "not_found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.profileStore.Delete(auth.UserID(r.Context())); err != nil {
		serverError(w, h.logger, "delete profile", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
