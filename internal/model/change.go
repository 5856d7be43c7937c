package model

import (
	"encoding/json"
	"time"
)

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

const (
	TableLists = "lists"
	TableItems = "items"
)

// ChangeEvent is one row change as delivered on the change feed. New holds
// the full row for INSERT and UPDATE; Old holds at least the id for DELETE.
type ChangeEvent struct {
	Table           string          `json:"table"`
	Type            ChangeType      `json:"type"`
	New             json.RawMessage `json:"new,omitempty"`
	Old             json.RawMessage `json:"old,omitempty"`
	CommitTimestamp time.Time       `json:"commit_timestamp"`
}

// RowID is the shape of Old on DELETE events.
type RowID struct {
	ID string `json:"id"`
}
