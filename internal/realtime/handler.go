package realtime

import (
	"errors"
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/tandem/internal/model"
)

var ErrInvalidFilter = errors.New("invalid subscription filter")

// SubscribeFunc resolves the subscription for an incoming request. It returns
// ErrInvalidFilter for malformed filters and model.ErrForbidden when the
// caller may not listen on the requested rows.
type SubscribeFunc func(r *http.Request) (Subscription, error)

// HandleWebSocket returns an HTTP handler that authorizes the subscription,
// upgrades the connection and runs it as a Hub client.
func HandleWebSocket(hub *Hub, subscribe SubscribeFunc, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := subscribe(r)
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidFilter):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, model.ErrForbidden):
				http.Error(w, "Forbidden", http.StatusForbidden)
			default:
				logger.Error("resolve subscription", "error", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // clients authenticate with a bearer token, not cookies
		})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}
		defer conn.CloseNow()

		logger.Debug("subscribed", "user_id", sub.UserID, "table", sub.Table, "list_id", sub.ListID)
		NewClient(hub, conn, sub).Run(r.Context())
	}
}
