package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/tandem/internal/model"
	"github.com/google/uuid"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanAccount(row scanner) (*model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

const userCols = `id, email, password_hash, created_at`

// NormalizeEmail lower-cases and trims an address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts the account and its profile in one transaction.
// A duplicate email yields model.ErrConflict.
func (s *UserStore) Create(email string, passwordHash []byte) (*model.Account, error) {
	email = NormalizeEmail(email)
	id := uuid.NewString()
	now := time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		id, email, passwordHash, now,
	); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert user: %w", model.ErrConflict)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO profiles (id, email, theme_preference, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, email, model.ThemeSystem, now, now,
	); err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit user: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id string) (*model.Account, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return a, nil
}

func (s *UserStore) GetByEmail(email string) (*model.Account, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, NormalizeEmail(email))
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return a, nil
}

func (s *UserStore) UpdatePassword(id string, passwordHash []byte) error {
	_, err := s.db.Exec(`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
