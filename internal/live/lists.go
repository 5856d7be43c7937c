package live

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/tandem/internal/client"
	"github.com/dukerupert/tandem/internal/model"
	"github.com/dukerupert/tandem/internal/reconcile"
)

// DefaultListName names a list created without a name, e.g. "7 Mar, 09:05".
func DefaultListName(t time.Time) string {
	return fmt.Sprintf("%d %s, %02d:%02d", t.Day(), t.Format("Jan"), t.Hour(), t.Minute())
}

// Lists is every list the signed-in user belongs to, newest first.
type Lists struct {
	collection[model.List]
	client *client.Client
	logger *slog.Logger
	now    func() time.Time
}

func NewLists(c *client.Client) *Lists {
	return &Lists{
		collection: collection[model.List]{placement: reconcile.Prepend},
		client:     c,
		logger:     slog.Default().With("component", "lists"),
		now:        time.Now,
	}
}

func (l *Lists) Load(ctx context.Context) error {
	return l.load(func() ([]model.List, error) { return l.client.Lists(ctx) })
}

func (l *Lists) Refetch(ctx context.Context) error {
	return l.Load(ctx)
}

// Create makes a new list. A blank name is replaced by the current date and time.
func (l *Lists) Create(ctx context.Context, name string) (*model.List, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultListName(l.now())
	}
	created, err := l.client.CreateList(ctx, name)
	if err != nil {
		return nil, err
	}
	l.apply(reconcile.Insert(*created))
	return created, nil
}

func (l *Lists) Delete(ctx context.Context, id string) error {
	if err := l.client.DeleteList(ctx, id); err != nil {
		return err
	}
	l.apply(reconcile.Delete[model.List](id))
	return nil
}

// Watch applies list changes until ctx is cancelled or the stream drops.
func (l *Lists) Watch(ctx context.Context) error {
	return l.watch(ctx, l.client, client.Filter{Table: model.TableLists}, l.logger)
}
