package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dukerupert/tandem/internal/database"
	"github.com/dukerupert/tandem/internal/prefs"
	"github.com/dukerupert/tandem/internal/server"
)

func withTmpConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("TANDEM_SERVER", "")
	return filepath.Join(dir, "tandem")
}

func newBackend(t *testing.T) string {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	srv := server.New(server.Deps{
		DB:         db,
		JWTSecret:  "cli-test",
		SessionTTL: time.Hour,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts.URL
}

// tandem runs one command and returns what it printed to stdout.
func tandem(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := run(context.Background(), args, &out, &errOut)
	return out.String() + errOut.String(), err
}

func mustTandem(t *testing.T, args ...string) string {
	t.Helper()
	out, err := tandem(t, args...)
	require.NoError(t, err, out)
	return out
}

// lastField returns the last word on the first line of s, where commands
// print the id they created.
func lastField(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	f := strings.Fields(line)
	return f[len(f)-1]
}

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestServerURLPrecedence(t *testing.T) {
	t.Setenv("TANDEM_SERVER", "")
	require.Equal(t, defaultServer, serverURL("", prefs.State{}))

	t.Setenv("TANDEM_SERVER", "http://env:1")
	require.Equal(t, "http://env:1", serverURL("", prefs.State{}))
	require.Equal(t, "http://saved:1", serverURL("", prefs.State{ServerURL: "http://saved:1"}))
	require.Equal(t, "http://flag:1", serverURL("http://flag:1", prefs.State{ServerURL: "http://saved:1"}))
}

func TestUsageErrors(t *testing.T) {
	withTmpConfig(t)
	base := newBackend(t)

	_, err := tandem(t)
	require.ErrorIs(t, err, errUsage)

	_, err = tandem(t, "-server", base, "frobnicate")
	require.ErrorIs(t, err, errUsage)

	_, err = tandem(t, "-server", base, "show")
	require.ErrorIs(t, err, errUsage)
	require.Contains(t, err.Error(), "show <list-id>")

	out := mustTandem(t, "-server", base, "help")
	require.Contains(t, out, "invite  <list-id> <email>")
}

func TestSignedOut(t *testing.T) {
	withTmpConfig(t)
	base := newBackend(t)

	_, err := tandem(t, "-server", base, "lists")
	require.ErrorIs(t, err, errNotSignedIn)

	out, err := tandem(t, "-server", base, "join", "sometoken")
	require.ErrorIs(t, err, errNotSignedIn)
	require.Contains(t, out, "tandem join sometoken")

	out = mustTandem(t, "-server", base, "logout")
	require.Contains(t, out, "Not signed in")
}

func TestShoppingFlow(t *testing.T) {
	withTmpConfig(t)
	base := newBackend(t)

	out := mustTandem(t, "-server", base, "register", "-email", "alice@example.com", "-password", "secret1")
	require.Contains(t, out, "Signed in as alice@example.com")

	// The server is remembered from here on.
	listID := lastField(mustTandem(t, "new", "Groceries"))
	require.Contains(t, mustTandem(t, "lists"), "Groceries")

	out = mustTandem(t, "add", listID, "-q", "2", "-n", "oat", "Milk")
	require.Contains(t, out, "[ ] Milk  (2)")
	milk := lastField(out)

	out = mustTandem(t, "check", listID, milk)
	require.Contains(t, out, "[x] Milk")
	require.Contains(t, out, "List is now completed")

	out = mustTandem(t, "add", listID, "Bread")
	require.Contains(t, out, "List is now active")
	bread := lastField(out)

	out = mustTandem(t, "edit", listID, bread, "-name", "Sourdough", "-q", "1")
	require.Contains(t, out, "Sourdough  (1)")

	_, err := tandem(t, "edit", listID, bread)
	require.ErrorIs(t, err, errUsage)

	out = mustTandem(t, "show", listID)
	require.Contains(t, out, "Groceries  [active]")
	require.Contains(t, out, "Checked (1)")
	require.Less(t, strings.Index(out, "Sourdough"), strings.Index(out, "Checked (1)"))

	out = mustTandem(t, "rm", listID, bread)
	require.Contains(t, out, "Item deleted")
	require.Contains(t, out, "List is now completed")

	out = mustTandem(t, "archive", listID)
	require.Contains(t, out, "Groceries is now archived")
	out = mustTandem(t, "restore", listID)
	require.Contains(t, out, "Groceries is now active")

	require.Contains(t, mustTandem(t, "rm-list", listID), "List deleted")
	require.Contains(t, mustTandem(t, "lists"), "No lists yet")
}

func TestImageUploadFailureKeepsItem(t *testing.T) {
	withTmpConfig(t)
	base := newBackend(t)
	mustTandem(t, "-server", base, "register", "-email", "alice@example.com", "-password", "secret1")
	listID := lastField(mustTandem(t, "new", "Hardware"))

	img := filepath.Join(t.TempDir(), "nails.jpg")
	require.NoError(t, os.WriteFile(img, []byte("not really a jpeg"), 0o600))

	out, err := tandem(t, "add", listID, "-image", img, "Nails")
	require.NoError(t, err)
	require.Contains(t, out, "[ ] Nails")
	require.Contains(t, out, "photo could not be uploaded")
	require.Contains(t, mustTandem(t, "show", listID), "Nails")
}

func TestShareAndJoin(t *testing.T) {
	withTmpConfig(t)
	base := newBackend(t)

	mustTandem(t, "-server", base, "register", "-email", "alice@example.com", "-password", "secret1")
	listID := lastField(mustTandem(t, "new", "Party"))
	out := mustTandem(t, "share", listID)
	token := lastField(strings.SplitN(out, "\n", 3)[2])
	require.Contains(t, out, "join "+token)

	mustTandem(t, "logout")
	mustTandem(t, "register", "-email", "bob@example.com", "-password", "secret1")

	out = mustTandem(t, "join", token)
	require.Contains(t, out, `You joined "Party"`)
	out = mustTandem(t, "join", token)
	require.Contains(t, out, "already part of")

	_, err := tandem(t, "join", "bogus")
	require.ErrorContains(t, err, "Invalid or expired share link")

	require.Contains(t, mustTandem(t, "lists"), "Party")
}

func TestInvite(t *testing.T) {
	withTmpConfig(t)
	base := newBackend(t)

	mustTandem(t, "-server", base, "register", "-email", "alice@example.com", "-password", "secret1")
	listID := lastField(mustTandem(t, "new", "Camping"))

	require.Contains(t, mustTandem(t, "invite", listID, "Bob@Example.com"), "Invited bob@example.com")
	require.Contains(t, mustTandem(t, "invite", listID, "bob@example.com"), "already been invited")

	mustTandem(t, "logout")
	mustTandem(t, "register", "-email", "bob@example.com", "-password", "secret1")
	require.Contains(t, mustTandem(t, "lists"), "Camping")
}

func TestSettings(t *testing.T) {
	withTmpConfig(t)
	base := newBackend(t)
	mustTandem(t, "-server", base, "register", "-email", "alice@example.com", "-password", "secret1")

	require.Contains(t, mustTandem(t, "settings", "name", "Alice", "B"), "Display name set to Alice B")
	require.Contains(t, mustTandem(t, "settings", "theme", "dark"), "Theme set to dark")
	_, err := tandem(t, "settings", "theme", "purple")
	require.Error(t, err)

	out := mustTandem(t, "settings")
	require.Contains(t, out, "Alice B")
	require.Contains(t, out, "Theme:        dark")

	_, err = tandem(t, "settings", "password", "-new", "abc", "-confirm", "abc")
	require.Error(t, err)
	mustTandem(t, "settings", "password", "-new", "secret2", "-confirm", "secret2")
	mustTandem(t, "logout")
	_, err = tandem(t, "login", "-email", "alice@example.com", "-password", "secret1")
	require.Error(t, err)
	mustTandem(t, "login", "-email", "alice@example.com", "-password", "secret2")

	mustTandem(t, "new", "Doomed")
	_, err = tandem(t, "settings", "delete-account")
	require.Error(t, err)
	require.Contains(t, mustTandem(t, "settings", "delete-account", "-yes"), "Account deleted")
	_, err = tandem(t, "lists")
	require.ErrorIs(t, err, errNotSignedIn)
}

func TestWatch(t *testing.T) {
	withTmpConfig(t)
	base := newBackend(t)
	mustTandem(t, "-server", base, "register", "-email", "alice@example.com", "-password", "secret1")
	listID := lastField(mustTandem(t, "new", "Live"))

	ctx, cancel := context.WithCancel(context.Background())
	var out syncBuffer
	done := make(chan error, 1)
	go func() { done <- run(ctx, []string{"watch", listID}, &out, io.Discard) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "No items yet")
	}, 5*time.Second, 20*time.Millisecond)

	// The subscription registers asynchronously; keep adding until one lands.
	require.Eventually(t, func() bool {
		mustTandem(t, "add", listID, "Apples")
		return strings.Contains(out.String(), "[ ] Apples")
	}, 5*time.Second, 100*time.Millisecond)

	// A derived status arrives on the lists stream.
	mustTandem(t, "add", listID, "Pears")
	for _, line := range strings.Split(mustTandem(t, "show", listID), "\n") {
		if strings.Contains(line, "[ ]") {
			mustTandem(t, "check", listID, lastField(line))
		}
	}
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Live  [completed]")
	}, 5*time.Second, 20*time.Millisecond)

	mustTandem(t, "rm-list", listID)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("watch did not stop after the list was deleted")
	}
	cancel()
	require.Contains(t, out.String(), "This list was deleted.")
}
