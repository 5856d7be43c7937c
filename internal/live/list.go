package live

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/dukerupert/tandem/internal/client"
	"github.com/dukerupert/tandem/internal/model"
	"github.com/dukerupert/tandem/internal/reconcile"
)

// AlreadyInvitedError reports an invitation that already exists for the
// address on this list.
type AlreadyInvitedError struct {
	Email string
}

func (e *AlreadyInvitedError) Error() string {
	return e.Email + " has already been invited to this list"
}

// List is a single list by id.
type List struct {
	client *client.Client
	id     string

	mu       sync.Mutex
	list     *model.List
	loading  bool
	err      error
	onChange func()
}

func NewList(c *client.Client, id string) *List {
	return &List{client: c, id: id}
}

func (l *List) ID() string { return l.id }

func (l *List) OnChange(fn func()) {
	l.mu.Lock()
	l.onChange = fn
	l.mu.Unlock()
}

func (l *List) notify() {
	l.mu.Lock()
	fn := l.onChange
	l.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (l *List) set(list *model.List) {
	l.mu.Lock()
	l.list = list
	l.mu.Unlock()
	l.notify()
}

// Snapshot returns a copy of the cached list, or nil before a successful load.
func (l *List) Snapshot() *model.List {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.list == nil {
		return nil
	}
	cp := *l.list
	return &cp
}

func (l *List) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

func (l *List) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *List) Load(ctx context.Context) error {
	l.mu.Lock()
	l.loading = true
	l.err = nil
	l.mu.Unlock()

	got, err := l.client.List(ctx, l.id)

	l.mu.Lock()
	if err != nil {
		l.err = err
	} else {
		l.list = got
	}
	l.loading = false
	l.mu.Unlock()

	l.notify()
	return err
}

func (l *List) Refetch(ctx context.Context) error {
	return l.Load(ctx)
}

func (l *List) Update(ctx context.Context, patch model.ListPatch) (*model.List, error) {
	updated, err := l.client.UpdateList(ctx, l.id, patch)
	if err != nil {
		return nil, err
	}
	l.set(updated)
	return updated, nil
}

func (l *List) Archive(ctx context.Context) (*model.List, error) {
	s := model.ListArchived
	return l.Update(ctx, model.ListPatch{Status: &s})
}

func (l *List) Activate(ctx context.Context) (*model.List, error) {
	s := model.ListActive
	return l.Update(ctx, model.ListPatch{Status: &s})
}

// Invite invites an email address to the list.
func (l *List) Invite(ctx context.Context, email string) (*model.ListInvite, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	inv, err := l.client.CreateInvite(ctx, l.id, email)
	if client.IsConflict(err) {
		return nil, &AlreadyInvitedError{Email: email}
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// Watch follows changes to this list, such as a status derived from its
// items, until ctx is cancelled or the stream drops.
func (l *List) Watch(ctx context.Context) error {
	sub, err := l.client.Subscribe(ctx, client.Filter{Table: model.TableLists})
	if err != nil {
		return err
	}
	defer sub.Close()

	for {
		ev, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, client.ErrSubscriptionClosed) {
				return nil
			}
			return err
		}
		ch, err := reconcile.Decode[model.List](ev)
		if err != nil {
			continue
		}
		switch {
		case ch.Type == model.ChangeUpdate && ch.New.ID == l.id:
			row := ch.New
			l.set(&row)
		case ch.Type == model.ChangeDelete && ch.OldKey == l.id:
			l.set(nil)
		}
	}
}
