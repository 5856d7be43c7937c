package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dukerupert/tandem/internal/client"
	"github.com/dukerupert/tandem/internal/database"
	"github.com/dukerupert/tandem/internal/model"
	"github.com/dukerupert/tandem/internal/server"
)

type backend struct {
	srv *server.Server
	url string
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	srv := server.New(server.Deps{
		DB:         db,
		JWTSecret:  "live-test",
		SessionTTL: time.Hour,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return &backend{srv: srv, url: ts.URL}
}

func (b *backend) user(t *testing.T, email string) (*client.Client, string) {
	t.Helper()
	c := client.New(b.url)
	sess, err := c.SignUp(context.Background(), email, "secret1")
	require.NoError(t, err)
	return c, sess.User.ID
}

// waitSubscribers blocks until the hub has n change-feed connections.
func (b *backend) waitSubscribers(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return b.srv.Hub().ClientCount() >= n }, 2*time.Second, 5*time.Millisecond)
}

func TestNextPosition(t *testing.T) {
	tests := []struct {
		name      string
		positions []int
		want      int
	}{
		{"empty", nil, 0},
		{"gaps", []int{0, 2, 5}, 6},
		{"unordered", []int{5, 0, 2}, 6},
		{"single", []int{3}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]model.Item, len(tt.positions))
			for i, p := range tt.positions {
				items[i] = model.Item{Position: p}
			}
			require.Equal(t, tt.want, NextPosition(items))
		})
	}
}

func TestDefaultListName(t *testing.T) {
	ts := time.Date(2024, time.March, 7, 9, 5, 0, 0, time.Local)
	require.Equal(t, "7 Mar, 09:05", DefaultListName(ts))
}

func TestListsCreateDelete(t *testing.T) {
	b := newBackend(t)
	c, _ := b.user(t, "alice@example.com")
	ctx := context.Background()

	lists := NewLists(c)
	lists.now = func() time.Time { return time.Date(2024, time.December, 24, 18, 30, 0, 0, time.Local) }

	var changes int
	lists.OnChange(func() { changes++ })

	require.NoError(t, lists.Load(ctx))
	require.Empty(t, lists.Snapshot())
	require.False(t, lists.Loading())

	first, err := lists.Create(ctx, "Groceries")
	require.NoError(t, err)
	second, err := lists.Create(ctx, "   ")
	require.NoError(t, err)
	require.Equal(t, "24 Dec, 18:30", second.Name)

	snap := lists.Snapshot()
	require.Len(t, snap, 2)
	require.Equal(t, second.ID, snap[0].ID, "newest first")

	require.NoError(t, lists.Delete(ctx, first.ID))
	require.Len(t, lists.Snapshot(), 1)
	require.Equal(t, 4, changes)

	// A failed write leaves the cache alone.
	require.Error(t, lists.Delete(ctx, first.ID))
	require.Len(t, lists.Snapshot(), 1)

	require.NoError(t, lists.Refetch(ctx))
	require.Len(t, lists.Snapshot(), 1)
}

func TestNotSignedIn(t *testing.T) {
	b := newBackend(t)
	c := client.New(b.url)
	ctx := context.Background()

	lists := NewLists(c)
	_, err := lists.Create(ctx, "x")
	require.ErrorIs(t, err, client.ErrNotAuthenticated)
	require.Empty(t, lists.Snapshot())

	require.ErrorIs(t, lists.Load(ctx), client.ErrNotAuthenticated)
	require.ErrorIs(t, lists.Err(), client.ErrNotAuthenticated)
}

func TestItemsLifecycle(t *testing.T) {
	b := newBackend(t)
	c, uid := b.user(t, "alice@example.com")
	ctx := context.Background()

	l, err := c.CreateList(ctx, "Shop")
	require.NoError(t, err)

	items := NewItems(c, l.ID, nil)
	require.NoError(t, items.Load(ctx))

	milk, err := items.Add(ctx, "Milk", "2 l", "")
	require.NoError(t, err)
	require.Equal(t, 0, milk.Position)
	require.Nil(t, milk.Notes)
	require.Equal(t, uid, *milk.AddedBy)

	bread, err := items.Add(ctx, "Bread", "", "sliced")
	require.NoError(t, err)
	require.Equal(t, 1, bread.Position)

	_, err = items.Add(ctx, "  ", "", "")
	require.ErrorIs(t, err, ErrNameRequired)

	toggled, err := items.Toggle(ctx, milk.ID)
	require.NoError(t, err)
	require.True(t, toggled.Checked)

	_, err = items.Toggle(ctx, "missing")
	require.ErrorIs(t, err, ErrItemNotFound)

	require.NoError(t, items.Delete(ctx, milk.ID))

	// Positions are never reused.
	eggs, err := items.Add(ctx, "Eggs", "", "")
	require.NoError(t, err)
	require.Equal(t, 2, eggs.Position)

	snap := items.Snapshot()
	require.Len(t, snap, 2)
	require.Equal(t, bread.ID, snap[0].ID)
	require.Equal(t, eggs.ID, snap[1].ID)

	_, err = items.SetImage(ctx, bread.ID, strings.NewReader("x"))
	require.ErrorIs(t, err, ErrNoImageStore)
}

type fakeImages struct {
	mu       sync.Mutex
	calls    []string
	uploads  int
	failNext error
}

func (f *fakeImages) record(s string) {
	f.mu.Lock()
	f.calls = append(f.calls, s)
	f.mu.Unlock()
}

func (f *fakeImages) Upload(_ context.Context, itemID string, _ io.Reader) (string, error) {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return "", err
	}
	f.record("upload " + itemID)
	f.uploads++
	return fmt.Sprintf("http://img.test/item-images/%s/%d.jpg", itemID, f.uploads), nil
}

func (f *fakeImages) Delete(_ context.Context, url string) error {
	f.record("delete " + url)
	return nil
}

func (f *fakeImages) DeleteAll(_ context.Context, itemID string) error {
	f.record("delete-all " + itemID)
	return errors.New("storage down")
}

func TestItemsImages(t *testing.T) {
	b := newBackend(t)
	c, _ := b.user(t, "alice@example.com")
	ctx := context.Background()

	l, err := c.CreateList(ctx, "Photos")
	require.NoError(t, err)

	imgs := &fakeImages{}
	items := NewItems(c, l.ID, imgs)
	require.NoError(t, items.Load(ctx))

	item, err := items.Add(ctx, "Cheese", "", "")
	require.NoError(t, err)

	imgs.failNext = errors.New("upload failed")
	_, err = items.SetImage(ctx, item.ID, strings.NewReader("img"))
	require.Error(t, err)
	require.Nil(t, items.Snapshot()[0].ImageURL, "failed upload leaves the item unchanged")

	first, err := items.SetImage(ctx, item.ID, strings.NewReader("img"))
	require.NoError(t, err)
	require.NotNil(t, first.ImageURL)

	second, err := items.SetImage(ctx, item.ID, strings.NewReader("img"))
	require.NoError(t, err)
	require.NotEqual(t, *first.ImageURL, *second.ImageURL)
	require.Contains(t, imgs.calls, "delete "+*first.ImageURL, "replaced image is removed")

	cleared, err := items.RemoveImage(ctx, item.ID)
	require.NoError(t, err)
	require.Nil(t, cleared.ImageURL)
	require.Contains(t, imgs.calls, "delete "+*second.ImageURL)

	// Image cleanup failures do not block deleting the item.
	require.NoError(t, items.Delete(ctx, item.ID))
	require.Empty(t, items.Snapshot())
	require.Equal(t, "delete-all "+item.ID, imgs.calls[len(imgs.calls)-1])
}

func TestListUpdateAndInvite(t *testing.T) {
	b := newBackend(t)
	c, _ := b.user(t, "alice@example.com")
	ctx := context.Background()

	created, err := c.CreateList(ctx, "Trip")
	require.NoError(t, err)

	l := NewList(c, created.ID)
	require.Nil(t, l.Snapshot())
	require.NoError(t, l.Load(ctx))
	require.Equal(t, "Trip", l.Snapshot().Name)

	_, err = l.Archive(ctx)
	require.NoError(t, err)
	require.Equal(t, model.ListArchived, l.Snapshot().Status)

	_, err = l.Activate(ctx)
	require.NoError(t, err)
	require.Equal(t, model.ListActive, l.Snapshot().Status)

	_, err = l.Invite(ctx, "Bob@Example.com")
	require.NoError(t, err)
	_, err = l.Invite(ctx, "bob@example.com")
	var already *AlreadyInvitedError
	require.ErrorAs(t, err, &already)
	require.Equal(t, "bob@example.com has already been invited to this list", err.Error())

	missing := NewList(c, "00000000-0000-0000-0000-000000000000")
	require.Error(t, missing.Load(ctx))
	require.Error(t, missing.Err())
}

func TestItemsWatch(t *testing.T) {
	b := newBackend(t)
	alice, _ := b.user(t, "alice@example.com")
	bob, _ := b.user(t, "bob@example.com")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	l, err := alice.CreateList(ctx, "Shared")
	require.NoError(t, err)
	_, err = bob.Join(ctx, l.ID, model.RoleEditor, l.ShareToken)
	require.NoError(t, err)

	items := NewItems(alice, l.ID, nil)
	require.NoError(t, items.Load(ctx))

	watchCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- items.Watch(watchCtx) }()
	b.waitSubscribers(t, 1)

	// Alice's own insert arrives twice: once applied locally, once on the feed.
	mine, err := items.Add(ctx, "Apples", "", "")
	require.NoError(t, err)

	theirs, err := bob.CreateItem(ctx, l.ID, model.NewItem{Name: "Pears", Position: 1})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(items.Snapshot()) == 2 }, 2*time.Second, 10*time.Millisecond)

	checked := true
	_, err = bob.UpdateItem(ctx, mine.ID, model.ItemPatch{Checked: &checked})
	require.NoError(t, err)
	require.NoError(t, bob.DeleteItem(ctx, theirs.ID))

	require.Eventually(t, func() bool {
		snap := items.Snapshot()
		return len(snap) == 1 && snap[0].ID == mine.ID && snap[0].Checked
	}, 2*time.Second, 10*time.Millisecond)

	stop()
	require.NoError(t, <-done)
}

func TestListWatchSeesDerivedStatus(t *testing.T) {
	b := newBackend(t)
	c, _ := b.user(t, "alice@example.com")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	created, err := c.CreateList(ctx, "Status")
	require.NoError(t, err)

	l := NewList(c, created.ID)
	require.NoError(t, l.Load(ctx))

	watchCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- l.Watch(watchCtx) }()
	b.waitSubscribers(t, 1)

	item, err := c.CreateItem(ctx, created.ID, model.NewItem{Name: "Only"})
	require.NoError(t, err)
	checked := true
	_, err = c.UpdateItem(ctx, item.ID, model.ItemPatch{Checked: &checked})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s := l.Snapshot()
		return s != nil && s.Status == model.ListCompleted
	}, 2*time.Second, 10*time.Millisecond)

	stop()
	require.NoError(t, <-done)
}
