package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/tandem/internal/model"
)

func scanMember(row scanner) (*model.ListMember, error) {
	var m model.ListMember
	err := row.Scan(&m.ListID, &m.UserID, &m.Role, &m.JoinedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

const memberCols = `list_id, user_id, role, joined_at`

// AddMember inserts a membership row. An existing row yields model.ErrConflict.
func (s *ListStore) AddMember(listID, userID string, role model.Role) (*model.ListMember, error) {
	_, err := s.db.Exec(
		`INSERT INTO list_members (list_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)`,
		listID, userID, role, time.Now().UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("add member: %w", model.ErrConflict)
		}
		return nil, fmt.Errorf("add member: %w", err)
	}
	return s.GetMember(listID, userID)
}

func (s *ListStore) GetMember(listID, userID string) (*model.ListMember, error) {
	row := s.db.QueryRow(
		`SELECT `+memberCols+` FROM list_members WHERE list_id = ? AND user_id = ?`,
		listID, userID,
	)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

// MemberIDs returns the user ids of every member of the list.
func (s *ListStore) MemberIDs(listID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT user_id FROM list_members WHERE list_id = ? ORDER BY joined_at ASC`, listID)
	if err != nil {
		return nil, fmt.Errorf("list member ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RemoveMembershipsOf deletes every membership row belonging to the user.
func (s *ListStore) RemoveMembershipsOf(userID string) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM list_members WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("remove memberships: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
