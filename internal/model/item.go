package model

import "time"

type Item struct {
	ID        string    `json:"id"`
	ListID    string    `json:"list_id"`
	Name      string    `json:"name"`
	Quantity  *string   `json:"quantity"`
	Notes     *string   `json:"notes"`
	Checked   bool      `json:"checked"`
	AddedBy   *string   `json:"added_by"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ImageURL  *string   `json:"image_url"`
}

func (i Item) Key() string { return i.ID }

// NewItem is the payload for creating an item.
type NewItem struct {
	Name     string  `json:"name"`
	Quantity *string `json:"quantity,omitempty"`
	Notes    *string `json:"notes,omitempty"`
	Position int     `json:"position"`
}

// ItemPatch carries the optional fields of an item update. Nil means unchanged.
// ClearImage removes the image reference, since a nil ImageURL already means
// "leave as is".
type ItemPatch struct {
	Name       *string `json:"name,omitempty"`
	Quantity   *string `json:"quantity,omitempty"`
	Notes      *string `json:"notes,omitempty"`
	Checked    *bool   `json:"checked,omitempty"`
	ImageURL   *string `json:"image_url,omitempty"`
	ClearImage bool    `json:"clear_image,omitempty"`
}
