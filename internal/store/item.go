package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/tandem/internal/model"
	"github.com/google/uuid"
)

type ItemStore struct {
	db *sql.DB
}

func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

func scanItem(row scanner) (*model.Item, error) {
	var item model.Item
	var quantity, notes, addedBy, imageURL sql.NullString
	var checked int

	err := row.Scan(
		&item.ID, &item.ListID, &item.Name, &quantity, &notes, &checked,
		&addedBy, &item.Position, &item.CreatedAt, &item.UpdatedAt, &imageURL,
	)
	if err != nil {
		return nil, err
	}

	item.Checked = checked != 0
	item.Quantity = stringPtr(quantity)
	item.Notes = stringPtr(notes)
	item.AddedBy = stringPtr(addedBy)
	item.ImageURL = stringPtr(imageURL)
	return &item, nil
}

const itemCols = `id, list_id, name, quantity, notes, checked, added_by, position, created_at, updated_at, image_url`

func (s *ItemStore) Create(listID, addedBy string, in model.NewItem) (*model.Item, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO items (id, list_id, name, quantity, notes, added_by, position, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, listID, in.Name, nullString(in.Quantity), nullString(in.Notes), addedBy, in.Position, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	return s.GetByID(id)
}

func (s *ItemStore) GetByID(id string) (*model.Item, error) {
	row := s.db.QueryRow(`SELECT `+itemCols+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// ListByList returns the list's items ordered by position, then creation time.
func (s *ItemStore) ListByList(listID string) ([]model.Item, error) {
	rows, err := s.db.Query(
		`SELECT `+itemCols+` FROM items WHERE list_id = ? ORDER BY position ASC, created_at ASC`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// Update applies the non-nil fields of patch and bumps updated_at. Empty
// quantity or notes are stored as NULL.
func (s *ItemStore) Update(id string, patch model.ItemPatch) (*model.Item, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	optional := func(col string, v *string) {
		if v == nil {
			return
		}
		sets = append(sets, col+" = ?")
		if *v == "" {
			args = append(args, nil)
		} else {
			args = append(args, *v)
		}
	}

	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	optional("quantity", patch.Quantity)
	optional("notes", patch.Notes)
	if patch.Checked != nil {
		sets = append(sets, "checked = ?")
		if *patch.Checked {
			args = append(args, 1)
		} else {
			args = append(args, 0)
		}
	}
	if patch.ClearImage {
		sets = append(sets, "image_url = NULL")
	} else {
		optional("image_url", patch.ImageURL)
	}
	args = append(args, id)

	_, err := s.db.Exec(`UPDATE items SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	return s.GetByID(id)
}

func (s *ItemStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}
