package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dukerupert/tandem/internal/model"
)

// Subscription is the single filter a connection listens on.
type Subscription struct {
	UserID string
	Table  string
	ListID string // items only
}

// Audience says who may see a published change. Only users in Members
// receive it; item changes additionally reach only subscribers of ListID.
type Audience struct {
	ListID  string
	Members []string
}

// Metrics receives per-frame delivery counts. Nil is allowed.
type Metrics interface {
	FrameSent(table string)
	FrameDropped(table string)
	ClientsConnected(n int)
}

// Hub maintains the set of active subscriptions and fans out row changes.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
	metrics Metrics
}

func NewHub(logger *slog.Logger, metrics Metrics) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
		metrics: metrics,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.ClientsConnected(n)
	}
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.ClientsConnected(n)
	}
}

// Publish encodes a change and queues it on every matching client. A client
// whose buffer is full misses the frame; publishing never blocks.
func (h *Hub) Publish(table string, typ model.ChangeType, newRow, oldRow any, aud Audience) {
	ev := model.ChangeEvent{
		Table:           table,
		Type:            typ,
		CommitTimestamp: time.Now().UTC(),
	}
	var err error
	if newRow != nil {
		if ev.New, err = json.Marshal(newRow); err != nil {
			h.logger.Error("marshal change", "table", table, "error", err)
			return
		}
	}
	if oldRow != nil {
		if ev.Old, err = json.Marshal(oldRow); err != nil {
			h.logger.Error("marshal change", "table", table, "error", err)
			return
		}
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal change", "table", table, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if !c.sub.matches(table, aud) {
			continue
		}
		select {
		case c.send <- data:
			if h.metrics != nil {
				h.metrics.FrameSent(table)
			}
		default:
			h.logger.Debug("change dropped", "table", table, "user_id", c.sub.UserID)
			if h.metrics != nil {
				h.metrics.FrameDropped(table)
			}
		}
	}
}

func (s Subscription) matches(table string, aud Audience) bool {
	if s.Table != table {
		return false
	}
	if table == model.TableItems && s.ListID != aud.ListID {
		return false
	}
	return slices.Contains(aud.Members, s.UserID)
}

// Validate checks that the subscription names a known table and, for items,
// a list.
func (s Subscription) Validate() error {
	switch s.Table {
	case model.TableLists:
		return nil
	case model.TableItems:
		if s.ListID == "" {
			return fmt.Errorf("%w: items subscription requires list_id", ErrInvalidFilter)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown table %q", ErrInvalidFilter, s.Table)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
