package model

import "time"

type ListStatus string

const (
	ListActive    ListStatus = "active"
	ListCompleted ListStatus = "completed"
	ListArchived  ListStatus = "archived"
)

// Valid reports whether s is one of the known list statuses.
func (s ListStatus) Valid() bool {
	switch s {
	case ListActive, ListCompleted, ListArchived:
		return true
	}
	return false
}

type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// CanWrite reports whether members with this role may change list contents.
func (r Role) CanWrite() bool {
	return r == RoleOwner || r == RoleEditor
}

type List struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Notes      *string    `json:"notes"`
	Status     ListStatus `json:"status"`
	CreatedBy  string     `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	ShareToken string     `json:"share_token"`
}

func (l List) Key() string { return l.ID }

// ListPatch carries the optional fields of a list update. Nil means unchanged.
type ListPatch struct {
	Name   *string     `json:"name,omitempty"`
	Notes  *string     `json:"notes,omitempty"`
	Status *ListStatus `json:"status,omitempty"`
}

// ListRef is the public view of a list resolved from its share token.
type ListRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ListMember struct {
	ListID   string    `json:"list_id"`
	UserID   string    `json:"user_id"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

type ListInvite struct {
	ID        string    `json:"id"`
	ListID    string    `json:"list_id"`
	Email     string    `json:"email"`
	InvitedBy string    `json:"invited_by"`
	CreatedAt time.Time `json:"created_at"`
}
