package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/tandem/internal/auth"
	"github.com/dukerupert/tandem/internal/model"
	"github.com/dukerupert/tandem/internal/realtime"
	"github.com/dukerupert/tandem/internal/store"
)

type RealtimeHandler struct {
	hub       *realtime.Hub
	listStore *store.ListStore
	logger    *slog.Logger
}

func NewRealtimeHandler(hub *realtime.Hub, ls *store.ListStore, logger *slog.Logger) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, listStore: ls, logger: logger}
}

// Subscribe builds the caller's subscription from the table and list_id query
// parameters. Item subscriptions require membership of the list.
func (h *RealtimeHandler) Subscribe(r *http.Request) (realtime.Subscription, error) {
	q := r.URL.Query()
	sub := realtime.Subscription{
		UserID: auth.UserID(r.Context()),
		Table:  q.Get("table"),
		ListID: q.Get("list_id"),
	}
	if err := sub.Validate(); err != nil {
		return sub, err
	}
	if sub.Table == model.TableItems {
		m, err := h.listStore.GetMember(sub.ListID, sub.UserID)
		if err != nil {
			return sub, err
		}
		if m == nil {
			return sub, model.ErrForbidden
		}
	}
	return sub, nil
}

func (h *RealtimeHandler) WebSocket() http.HandlerFunc {
	return realtime.HandleWebSocket(h.hub, h.Subscribe, h.logger)
}
