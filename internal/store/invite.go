package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/tandem/internal/model"
	"github.com/google/uuid"
)

type InviteStore struct {
	db *sql.DB
}

func NewInviteStore(db *sql.DB) *InviteStore {
	return &InviteStore{db: db}
}

func scanInvite(row scanner) (*model.ListInvite, error) {
	var inv model.ListInvite
	err := row.Scan(&inv.ID, &inv.ListID, &inv.Email, &inv.InvitedBy, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

const inviteCols = `id, list_id, email, invited_by, created_at`

// Create records a pending invitation. Inviting the same email to the same
// list twice yields model.ErrConflict.
func (s *InviteStore) Create(listID, email, invitedBy string) (*model.ListInvite, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO list_invites (id, list_id, email, invited_by, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, listID, NormalizeEmail(email), invitedBy, time.Now().UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert invite: %w", model.ErrConflict)
		}
		return nil, fmt.Errorf("insert invite: %w", err)
	}
	return s.GetByID(id)
}

func (s *InviteStore) GetByID(id string) (*model.ListInvite, error) {
	row := s.db.QueryRow(`SELECT `+inviteCols+` FROM list_invites WHERE id = ?`, id)
	inv, err := scanInvite(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invite: %w", err)
	}
	return inv, nil
}

// ListByEmail returns the pending invitations addressed to email, oldest first.
func (s *InviteStore) ListByEmail(email string) ([]model.ListInvite, error) {
	rows, err := s.db.Query(
		`SELECT `+inviteCols+` FROM list_invites WHERE email = ? ORDER BY created_at ASC`,
		NormalizeEmail(email),
	)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	defer rows.Close()

	var invites []model.ListInvite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invite: %w", err)
		}
		invites = append(invites, *inv)
	}
	return invites, rows.Err()
}

// Pending reports whether email has an outstanding invitation to the list.
func (s *InviteStore) Pending(listID, email string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM list_invites WHERE list_id = ? AND email = ?`,
		listID, NormalizeEmail(email),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check pending invite: %w", err)
	}
	return n > 0, nil
}

func (s *InviteStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM list_invites WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete invite: %w", err)
	}
	return nil
}
