package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/tandem/internal/model"
)

// ErrSubscriptionClosed is returned by Next once the stream has ended.
var ErrSubscriptionClosed = errors.New("subscription closed")

// Filter selects the rows a subscription receives. Items subscriptions must
// name a list.
type Filter struct {
	Table  string
	ListID string
}

// Subscription is one open change-feed connection.
type Subscription struct {
	conn *ws.Conn
}

// Subscribe opens a change-feed connection for f. The connection lives until
// Close is called or ctx is cancelled.
func (c *Client) Subscribe(ctx context.Context, f Filter) (*Subscription, error) {
	token := c.Token()
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	q := url.Values{"table": {f.Table}}
	if f.ListID != "" {
		q.Set("list_id", f.ListID)
	}
	u := c.baseURL + "/realtime/v1/websocket?" + q.Encode()
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}

	conn, resp, err := ws.Dial(ctx, u, &ws.DialOptions{
		HTTPClient: c.httpClient,
		HTTPHeader: http.Header{"Authorization": {"Bearer " + token}},
	})
	if err != nil {
		if resp != nil && resp.StatusCode >= 400 {
			return nil, &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, fmt.Errorf("subscribe %s: %w", f.Table, err)
	}
	return &Subscription{conn: conn}, nil
}

// Next blocks until the next change arrives.
func (s *Subscription) Next(ctx context.Context) (model.ChangeEvent, error) {
	var ev model.ChangeEvent
	_, data, err := s.conn.Read(ctx)
	if err != nil {
		if ws.CloseStatus(err) != -1 {
			return ev, ErrSubscriptionClosed
		}
		return ev, err
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, fmt.Errorf("decode change: %w", err)
	}
	return ev, nil
}

func (s *Subscription) Close() error {
	return s.conn.Close(ws.StatusNormalClosure, "")
}
