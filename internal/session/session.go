// Package session holds who is signed in, their profile and their theme.
//
// A Context is built once at startup and handed to every screen. Init
// restores a saved session; SignIn and SignOut change it and notify
// listeners registered with OnAuthChange.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/tandem/internal/auth"
	"github.com/dukerupert/tandem/internal/client"
	"github.com/dukerupert/tandem/internal/model"
	"github.com/dukerupert/tandem/internal/prefs"
)

type Event string

const (
	SignedIn    Event = "SIGNED_IN"
	SignedOut   Event = "SIGNED_OUT"
	UserUpdated Event = "USER_UPDATED"
)

var (
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", auth.MinPasswordLength)
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrInvalidTheme     = errors.New("theme must be light, dark or system")
)

type Listener func(Event, *model.User)

type Context struct {
	client *client.Client
	prefs  *prefs.Store
	logger *slog.Logger

	mu        sync.Mutex
	user      *model.User
	profile   *model.Profile
	theme     model.Theme
	listeners map[int]Listener
	nextID    int
}

// New returns a signed-out Context. The theme starts from the locally stored
// preference until a profile is loaded.
func New(c *client.Client, p *prefs.Store) *Context {
	s := &Context{
		client:    c,
		prefs:     p,
		logger:    slog.Default().With("component", "session"),
		theme:     model.ThemeSystem,
		listeners: make(map[int]Listener),
	}
	if st, err := p.Load(); err == nil {
		s.theme = st.ThemeOrDefault()
	} else {
		s.logger.Warn("load prefs", "error", err)
	}
	return s
}

func (s *Context) Client() *client.Client {
	return s.client
}

// OnAuthChange registers fn and returns a function that removes it.
func (s *Context) OnAuthChange(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Context) emit(ev Event) {
	s.mu.Lock()
	u := s.user
	fns := make([]Listener, 0, len(s.listeners))
	for i := 0; i < s.nextID; i++ {
		if fn, ok := s.listeners[i]; ok {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev, u)
	}
}

func (s *Context) User() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Context) Profile() *model.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

func (s *Context) SignedIn() bool {
	return s.User() != nil
}

// Init restores the saved session, if any. An expired or revoked token is
// forgotten and leaves the Context signed out.
func (s *Context) Init(ctx context.Context) error {
	st, err := s.prefs.Load()
	if err != nil {
		return err
	}
	token, ok := st.Token()
	if !ok {
		return nil
	}
	s.client.SetToken(token)

	u, err := s.client.User(ctx)
	var apiErr *client.Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		s.client.SetToken("")
		return s.forgetToken()
	}
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	s.mu.Lock()
	s.user = u
	s.mu.Unlock()

	s.loadProfile(ctx)
	if _, err := s.ProcessPendingInvites(ctx); err != nil {
		s.logger.Warn("process pending invites", "error", err)
	}
	return nil
}

func (s *Context) forgetToken() error {
	return s.prefs.Update(func(st *prefs.State) {
		st.AccessToken = ""
		st.ExpiresAt = time.Time{}
	})
}

// loadProfile fetches the profile and lets its stored theme override the
// local one. Failures leave the previous state.
func (s *Context) loadProfile(ctx context.Context) {
	p, err := s.client.Profile(ctx)
	if err != nil {
		s.logger.Warn("load profile", "error", err)
		return
	}
	s.mu.Lock()
	s.profile = p
	if t, ok := model.ParseTheme(string(p.ThemePreference)); ok {
		s.theme = t
	}
	s.mu.Unlock()
}

func (s *Context) adopt(ctx context.Context, sess *model.AuthSession) error {
	err := s.prefs.Update(func(st *prefs.State) {
		st.ServerURL = s.client.BaseURL()
		st.AccessToken = sess.AccessToken
		st.ExpiresAt = sess.ExpiresAt
	})
	if err != nil {
		return err
	}

	u := sess.User
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()

	s.loadProfile(ctx)
	s.emit(SignedIn)
	if _, err := s.ProcessPendingInvites(ctx); err != nil {
		s.logger.Warn("process pending invites", "error", err)
	}
	return nil
}

func (s *Context) SignUp(ctx context.Context, email, password string) error {
	sess, err := s.client.SignUp(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return err
	}
	return s.adopt(ctx, sess)
}

func (s *Context) SignIn(ctx context.Context, email, password string) error {
	sess, err := s.client.SignIn(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return err
	}
	return s.adopt(ctx, sess)
}

// SignOut ends the session locally even if the server cannot be reached.
func (s *Context) SignOut(ctx context.Context) error {
	err := s.client.SignOut(ctx)
	if ferr := s.forgetToken(); ferr != nil && err == nil {
		err = ferr
	}

	s.mu.Lock()
	s.user = nil
	s.profile = nil
	s.mu.Unlock()

	s.emit(SignedOut)
	return err
}

// ProcessPendingInvites turns every invitation addressed to the user into an
// editor membership, then deletes the invitation. It returns how many lists
// were joined. One failing invite does not stop the others.
func (s *Context) ProcessPendingInvites(ctx context.Context) (int, error) {
	u := s.User()
	if u == nil {
		return 0, client.ErrNotAuthenticated
	}
	invites, err := s.client.PendingInvites(ctx)
	if err != nil {
		return 0, fmt.Errorf("list invites: %w", err)
	}

	var joined int
	var errs []error
	for _, inv := range invites {
		m, err := s.client.Membership(ctx, inv.ListID, u.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("check membership of %s: %w", inv.ListID, err))
			continue
		}
		if m == nil {
			if _, err := s.client.Join(ctx, inv.ListID, model.RoleEditor, ""); err != nil && !client.IsConflict(err) {
				errs = append(errs, fmt.Errorf("join %s: %w", inv.ListID, err))
				continue
			}
			joined++
		}
		if err := s.client.DeleteInvite(ctx, inv.ID); err != nil {
			errs = append(errs, fmt.Errorf("delete invite %s: %w", inv.ID, err))
		}
	}
	return joined, errors.Join(errs...)
}

// UpdateProfile sets the display name. A blank name clears it.
func (s *Context) UpdateProfile(ctx context.Context, displayName string) (*model.Profile, error) {
	name := strings.TrimSpace(displayName)
	p, err := s.client.UpdateProfile(ctx, model.ProfilePatch{DisplayName: &name})
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.profile = p
	s.mu.Unlock()
	return p, nil
}

func (s *Context) UpdatePassword(ctx context.Context, password, confirm string) error {
	if len(password) < auth.MinPasswordLength {
		return ErrPasswordTooShort
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	u, err := s.client.UpdatePassword(ctx, password)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
	s.emit(UserUpdated)
	return nil
}

// DeleteAccount removes the user's lists, memberships and profile, then signs
// out. It stops at the first failing step and stays signed in.
func (s *Context) DeleteAccount(ctx context.Context) error {
	u := s.User()
	if u == nil {
		return client.ErrNotAuthenticated
	}
	if err := s.client.DeleteListsOwnedBy(ctx, u.ID); err != nil {
		return fmt.Errorf("delete lists: %w", err)
	}
	if err := s.client.DeleteMemberships(ctx, u.ID); err != nil {
		return fmt.Errorf("leave lists: %w", err)
	}
	if err := s.client.DeleteProfile(ctx); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return s.SignOut(ctx)
}
