package model

import "time"

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// ParseTheme returns the theme named by s, or false if s is not a theme.
func ParseTheme(s string) (Theme, bool) {
	switch t := Theme(s); t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return t, true
	}
	return "", false
}

// User is an authenticated account as seen by clients.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Account is the stored form of a user, including the password hash.
type Account struct {
	User
	PasswordHash []byte `json:"-"`
}

type Profile struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	DisplayName     *string   `json:"display_name"`
	ThemePreference Theme     `json:"theme_preference"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ProfilePatch carries the optional fields of a profile update. An empty
// DisplayName clears it.
type ProfilePatch struct {
	DisplayName     *string `json:"display_name,omitempty"`
	ThemePreference *Theme  `json:"theme_preference,omitempty"`
}

type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthSession is what the auth endpoints hand back to a client.
type AuthSession struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        User      `json:"user"`
}
