package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/tandem/internal/model"
)

type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func scanProfile(row scanner) (*model.Profile, error) {
	var p model.Profile
	var displayName sql.NullString
	err := row.Scan(&p.ID, &p.Email, &displayName, &p.ThemePreference, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.DisplayName = stringPtr(displayName)
	return &p, nil
}

const profileCols = `id, email, display_name, theme_preference, created_at, updated_at`

func (s *ProfileStore) Get(id string) (*model.Profile, error) {
	row := s.db.QueryRow(`SELECT `+profileCols+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// Update applies the non-nil fields of patch. An empty display name is stored
// as NULL.
func (s *ProfileStore) Update(id string, patch model.ProfilePatch) (*model.Profile, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	if patch.DisplayName != nil {
		name := strings.TrimSpace(*patch.DisplayName)
		sets = append(sets, "display_name = ?")
		if name == "" {
			args = append(args, nil)
		} else {
			args = append(args, name)
		}
	}
	if patch.ThemePreference != nil {
		sets = append(sets, "theme_preference = ?")
		args = append(args, string(*patch.ThemePreference))
	}
	args = append(args, id)

	_, err := s.db.Exec(`UPDATE profiles SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.Get(id)
}

func (s *ProfileStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}
