package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dukerupert/tandem/internal/auth"
	"github.com/dukerupert/tandem/internal/model"
)

// SessionLookup finds a live session by id. Expired or deleted sessions
// yield (nil, nil).
type SessionLookup interface {
	GetByID(id string) (*model.Session, error)
}

// RequireAuth validates the bearer access token and the session it names,
// then populates Caller. Failures answer 401 with a JSON error body.
func RequireAuth(issuer *auth.Issuer, sessions SessionLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				unauthorized(w, "missing access token")
				return
			}

			claims, err := issuer.Parse(raw)
			if err != nil {
				unauthorized(w, "invalid access token")
				return
			}

			sess, err := sessions.GetByID(claims.SessionID)
			if err != nil || sess == nil || sess.UserID != claims.Subject {
				unauthorized(w, "session expired")
				return
			}

			ac := auth.Caller{
				UserID:    claims.Subject,
				Email:     claims.Email,
				SessionID: sess.ID,
			}

			ctx := auth.WithCaller(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": "not_authenticated"})
}
