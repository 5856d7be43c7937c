package session

import (
	"context"

	"github.com/dukerupert/tandem/internal/model"
	"github.com/dukerupert/tandem/internal/prefs"
)

func (s *Context) Theme() model.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// SetTheme stores the theme locally and, when signed in, on the profile.
func (s *Context) SetTheme(ctx context.Context, t model.Theme) error {
	if _, ok := model.ParseTheme(string(t)); !ok {
		return ErrInvalidTheme
	}

	s.mu.Lock()
	s.theme = t
	s.mu.Unlock()

	if err := s.prefs.Update(func(st *prefs.State) { st.Theme = t }); err != nil {
		return err
	}
	if !s.SignedIn() {
		return nil
	}

	p, err := s.client.UpdateProfile(ctx, model.ProfilePatch{ThemePreference: &t})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.profile = p
	s.mu.Unlock()
	return nil
}

// ResolvedTheme maps system to light or dark.
func (s *Context) ResolvedTheme(systemDark bool) model.Theme {
	t := s.Theme()
	if t != model.ThemeSystem {
		return t
	}
	if systemDark {
		return model.ThemeDark
	}
	return model.ThemeLight
}
