package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dukerupert/tandem/internal/auth"
	"github.com/dukerupert/tandem/internal/email"
	"github.com/dukerupert/tandem/internal/handler"
	"github.com/dukerupert/tandem/internal/metrics"
	"github.com/dukerupert/tandem/internal/middleware"
	"github.com/dukerupert/tandem/internal/realtime"
	"github.com/dukerupert/tandem/internal/storage"
	"github.com/dukerupert/tandem/internal/store"
)

const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

// Deps are the external collaborators of the server.
type Deps struct {
	DB         *sql.DB
	JWTSecret  string
	SessionTTL time.Duration
	Objects    *storage.Store
	Mailer     *email.Client
	Registry   *prometheus.Registry
	Logger     *slog.Logger
}

type Server struct {
	hub          *realtime.Hub
	authH        *handler.AuthHandler
	listH        *handler.ListHandler
	itemH        *handler.ItemHandler
	inviteH      *handler.InviteHandler
	profileH     *handler.ProfileHandler
	storageH     *handler.StorageHandler
	realtimeH    *handler.RealtimeHandler
	issuer       *auth.Issuer
	sessionStore *store.SessionStore
	rateLimiter  *middleware.RateLimiter
	collector    *metrics.Collector
	registry     *prometheus.Registry
	logger       *slog.Logger
}

func New(d Deps) *Server {
	logger := d.Logger
	registry := d.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	collector := metrics.NewCollector(registry)
	hub := realtime.NewHub(logger.With("component", "realtime"), collector)

	userStore := store.NewUserStore(d.DB)
	sessionStore := store.NewSessionStore(d.DB)
	profileStore := store.NewProfileStore(d.DB)
	listStore := store.NewListStore(d.DB)
	itemStore := store.NewItemStore(d.DB)
	inviteStore := store.NewInviteStore(d.DB)

	issuer := auth.NewIssuer(d.JWTSecret)

	objects := d.Objects
	if objects == nil {
		objects = storage.New(storage.S3Config{})
	}

	// A nil *email.Client must not become a non-nil interface.
	var mailer handler.InviteMailer
	if d.Mailer != nil {
		mailer = d.Mailer
	}

	return &Server{
		hub:          hub,
		authH:        handler.NewAuthHandler(userStore, sessionStore, issuer, d.SessionTTL, logger.With("component", "auth")),
		listH:        handler.NewListHandler(listStore, inviteStore, hub, logger.With("component", "list")),
		itemH:        handler.NewItemHandler(itemStore, listStore, hub, logger.With("component", "item")),
		inviteH:      handler.NewInviteHandler(inviteStore, listStore, mailer, logger.With("component", "invite")),
		profileH:     handler.NewProfileHandler(profileStore, logger.With("component", "profile")),
		storageH:     handler.NewStorageHandler(objects, itemStore, listStore, collector, logger.With("component", "storage")),
		realtimeH:    handler.NewRealtimeHandler(hub, listStore, logger.With("component", "realtime")),
		issuer:       issuer,
		sessionStore: sessionStore,
		rateLimiter:  middleware.NewRateLimiter(authRateLimit, authRateWindow),
		collector:    collector,
		registry:     registry,
		logger:       logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Hub returns the change-feed hub.
func (s *Server) Hub() *realtime.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(s.logger.With("component", "http"), s.collector))

	r.Get("/health", s.healthHandler)
	r.Handle("/metrics", metrics.Handler(s.registry))

	requireAuth := middleware.RequireAuth(s.issuer, s.sessionStore)
	limitByIP := middleware.RateLimit(s.rateLimiter, middleware.RealIP)

	r.Route("/auth/v1", func(r chi.Router) {
		r.With(limitByIP).Post("/signup", s.authH.SignUp)
		r.With(limitByIP).Post("/token", s.authH.Token)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/logout", s.authH.Logout)
			r.Get("/user", s.authH.User)
			r.Put("/user", s.authH.UpdateUser)
		})
	})

	r.Route("/rest/v1", func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/lists", s.listH.List)
		r.Post("/lists", s.listH.Create)
		r.Delete("/lists", s.listH.DeleteOwned)
		r.Get("/lists/{id}", s.listH.Get)
		r.Patch("/lists/{id}", s.listH.Update)
		r.Delete("/lists/{id}", s.listH.Delete)

		r.Get("/shares/{token}", s.listH.ByShareToken)

		r.Get("/lists/{id}/members/{user_id}", s.listH.GetMember)
		r.Post("/lists/{id}/members", s.listH.Join)
		r.Delete("/members", s.listH.DeleteMemberships)

		r.Get("/lists/{id}/items", s.itemH.List)
		r.Post("/lists/{id}/items", s.itemH.Create)
		r.Patch("/items/{id}", s.itemH.Update)
		r.Delete("/items/{id}", s.itemH.Delete)

		r.Post("/lists/{id}/invites", s.inviteH.Create)
		r.Get("/invites", s.inviteH.ListMine)
		r.Delete("/invites/{id}", s.inviteH.Delete)

		r.Get("/profile", s.profileH.Get)
		r.Patch("/profile", s.profileH.Update)
		r.Delete("/profile", s.profileH.Delete)
	})

	r.Route("/storage/v1/object", func(r chi.Router) {
		r.Get("/public/{bucket}/*", s.storageH.Public)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/list/{bucket}", s.storageH.List)
			r.Post("/{bucket}/*", s.storageH.Upload)
			r.Delete("/{bucket}", s.storageH.Remove)
		})
	})

	r.With(requireAuth).Get("/realtime/v1/websocket", s.realtimeH.WebSocket())

	return r
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":           "ok",
		"realtime_clients": s.hub.ClientCount(),
	})
}
