package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/dukerupert/tandem/internal/auth"
	"github.com/dukerupert/tandem/internal/model"
	"github.com/dukerupert/tandem/internal/store"
)

type AuthHandler struct {
	userStore    *store.UserStore
	sessionStore *store.SessionStore
	issuer       *auth.Issuer
	sessionTTL   time.Duration
	logger       *slog.Logger
}

func NewAuthHandler(us *store.UserStore, ss *store.SessionStore, issuer *auth.Issuer, sessionTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userStore:    us,
		sessionStore: ss,
		issuer:       issuer,
		sessionTTL:   sessionTTL,
		logger:       logger,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	addr := strings.TrimSpace(req.Email)
	if _, err := mail.ParseAddress(addr); err != nil {
		writeError(w, http.StatusBadRequest, "Unable to validate email address: invalid format", "validation_failed")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if errors.Is(err, auth.ErrWeakPassword) {
		writeError(w, http.StatusUnprocessableEntity, "Password should be at least 6 characters.", "weak_password")
		return
	}
	if err != nil {
		serverError(w, h.logger, "hash password", err)
		return
	}

	acct, err := h.userStore.Create(addr, hash)
	if errors.Is(err, model.ErrConflict) {
		writeError(w, http.StatusUnprocessableEntity, "User already registered", "user_already_exists")
		return
	}
	if err != nil {
		serverError(w, h.logger, "create user", err)
		return
	}

	h.logger.Info("user signed up", "user_id", acct.ID)
	h.startSession(w, http.StatusCreated, acct.User)
}

// Token exchanges email and password for an access token.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	acct, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		serverError(w, h.logger, "login lookup", err)
		return
	}
	if acct == nil || !auth.CheckPassword(acct.PasswordHash, req.Password) {
		writeError(w, http.StatusBadRequest, "Invalid login credentials", "invalid_credentials")
		return
	}

	h.startSession(w, http.StatusOK, acct.User)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, status int, u model.User) {
	sess, err := h.sessionStore.Create(u.ID, h.sessionTTL)
	if err != nil {
		serverError(w, h.logger, "create session", err)
		return
	}
	token, err := h.issuer.Issue(u.ID, u.Email, sess.ID, sess.ExpiresAt)
	if err != nil {
		serverError(w, h.logger, "issue token", err)
		return
	}
	writeJSON(w, status, model.AuthSession{
		AccessToken: token,
		ExpiresAt:   sess.ExpiresAt,
		User:        u,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if err := h.sessionStore.Delete(ac.SessionID); err != nil {
		serverError(w, h.logger, "delete session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) User(w http.ResponseWriter, r *http.Request) {
	acct, err := h.userStore.GetByID(auth.UserID(r.Context()))
	if err != nil {
		serverError(w, h.logger, "get user", err)
		return
	}
	if acct == nil {
		writeError(w, http.StatusNotFound, "User not found", "user_not_found")
		return
	}
	writeJSON(w, http.StatusOK, acct.User)
}

type updateUserRequest struct {
	Password string `json:"password"`
}

func (h *AuthHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if errors.Is(err, auth.ErrWeakPassword) {
		writeError(w, http.StatusUnprocessableEntity, "Password should be at least 6 characters.", "weak_password")
		return
	}
	if err != nil {
		serverError(w, h.logger, "hash password", err)
		return
	}

	uid := auth.UserID(r.Context())
	if err := h.userStore.UpdatePassword(uid, hash); err != nil {
		serverError(w, h.logger, "update password", err)
		return
	}
	h.User(w, r)
}
