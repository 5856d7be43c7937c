package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/tandem/internal/model"
	"github.com/google/uuid"
)

const shareTokenBytes = 32

type ListStore struct {
	db *sql.DB
}

func NewListStore(db *sql.DB) *ListStore {
	return &ListStore{db: db}
}

func scanList(row scanner) (*model.List, error) {
	var l model.List
	var notes sql.NullString
	err := row.Scan(&l.ID, &l.Name, &notes, &l.Status, &l.CreatedBy, &l.CreatedAt, &l.ShareToken)
	if err != nil {
		return nil, err
	}
	l.Notes = stringPtr(notes)
	return &l, nil
}

const listCols = `id, name, notes, status, created_by, created_at, share_token`

func (s *ListStore) queryLists(query string, args ...any) ([]model.List, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lists []model.List
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		lists = append(lists, *l)
	}
	return lists, rows.Err()
}

// Create inserts a list with a fresh share token and makes ownerID its owner.
func (s *ListStore) Create(name, ownerID string) (*model.List, error) {
	token, err := randomToken(shareTokenBytes)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	now := time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO lists (id, name, status, created_by, created_at, share_token) VALUES (?, ?, ?, ?, ?, ?)`,
		id, name, model.ListActive, ownerID, now, token,
	); err != nil {
		return nil, fmt.Errorf("insert list: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO list_members (list_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)`,
		id, ownerID, model.RoleOwner, now,
	); err != nil {
		return nil, fmt.Errorf("insert owner: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit list: %w", err)
	}
	return s.GetByID(id)
}

func (s *ListStore) GetByID(id string) (*model.List, error) {
	row := s.db.QueryRow(`SELECT `+listCols+` FROM lists WHERE id = ?`, id)
	l, err := scanList(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get list: %w", err)
	}
	return l, nil
}

func (s *ListStore) GetByShareToken(token string) (*model.List, error) {
	row := s.db.QueryRow(`SELECT `+listCols+` FROM lists WHERE share_token = ?`, token)
	l, err := scanList(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get list by share token: %w", err)
	}
	return l, nil
}

// ListForUser returns every list the user is a member of, newest first.
func (s *ListStore) ListForUser(userID string) ([]model.List, error) {
	lists, err := s.queryLists(
		`SELECT l.id, l.name, l.notes, l.status, l.created_by, l.created_at, l.share_token
		 FROM lists l
		 JOIN list_members m ON m.list_id = l.id
		 WHERE m.user_id = ?
		 ORDER BY l.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list lists for user: %w", err)
	}
	return lists, nil
}

func (s *ListStore) ListOwnedBy(userID string) ([]model.List, error) {
	lists, err := s.queryLists(`SELECT `+listCols+` FROM lists WHERE created_by = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list owned lists: %w", err)
	}
	return lists, nil
}

// Update applies the non-nil fields of patch. Empty notes are stored as NULL.
func (s *ListStore) Update(id string, patch model.ListPatch) (*model.List, error) {
	var sets []string
	var args []any

	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Notes != nil {
		sets = append(sets, "notes = ?")
		if *patch.Notes == "" {
			args = append(args, nil)
		} else {
			args = append(args, *patch.Notes)
		}
	}
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if len(sets) == 0 {
		return s.GetByID(id)
	}
	args = append(args, id)

	_, err := s.db.Exec(`UPDATE lists SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update list: %w", err)
	}
	return s.GetByID(id)
}

func (s *ListStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM lists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	return nil
}

func (s *ListStore) DeleteOwnedBy(userID string) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM lists WHERE created_by = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete owned lists: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}

// SyncStatus derives a non-archived list's status from its items: completed
// once there is at least one item and all of them are checked, active
// otherwise. It reports whether the status changed.
func (s *ListStore) SyncStatus(id string) (*model.List, bool, error) {
	l, err := s.GetByID(id)
	if err != nil || l == nil {
		return l, false, err
	}
	if l.Status == model.ListArchived {
		return l, false, nil
	}

	var total, unchecked int
	err = s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN checked = 0 THEN 1 ELSE 0 END), 0) FROM items WHERE list_id = ?`,
		id,
	).Scan(&total, &unchecked)
	if err != nil {
		return nil, false, fmt.Errorf("count items: %w", err)
	}

	want := model.ListActive
	if total > 0 && unchecked == 0 {
		want = model.ListCompleted
	}
	if want == l.Status {
		return l, false, nil
	}

	if _, err := s.db.Exec(`UPDATE lists SET status = ? WHERE id = ?`, want, id); err != nil {
		return nil, false, fmt.Errorf("sync list status: %w", err)
	}
	l.Status = want
	return l, true, nil
}
