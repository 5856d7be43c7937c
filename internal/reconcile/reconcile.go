// Package reconcile merges change-feed notifications into a locally cached
// collection of rows.
//
// Apply is a pure reducer: it never mutates the slice it is given and has no
// network or clock dependency. Live collections run optimistic writes through
// the same reducer, so an optimistic insert followed by its own notification
// yields one row, not two.
//
// Field-level disagreement between an optimistic row and a later INSERT for
// the same key is not reconciled; the row already in the cache is kept.
package reconcile

import (
	"encoding/json"
	"fmt"

	"github.com/dukerupert/tandem/internal/model"
)

// Row is anything with a primary key.
type Row interface {
	Key() string
}

// Placement says where new rows go.
type Placement int

const (
	Append Placement = iota
	Prepend
)

// Change is one row-level change. New is set for INSERT and UPDATE; OldKey
// for DELETE.
type Change[T Row] struct {
	Type   model.ChangeType
	New    T
	OldKey string
}

func Insert[T Row](row T) Change[T] { return Change[T]{Type: model.ChangeInsert, New: row} }

func Update[T Row](row T) Change[T] { return Change[T]{Type: model.ChangeUpdate, New: row} }

func Delete[T Row](key string) Change[T] { return Change[T]{Type: model.ChangeDelete, OldKey: key} }

func indexOf[T Row](cache []T, key string) int {
	for i, r := range cache {
		if r.Key() == key {
			return i
		}
	}
	return -1
}

// Apply returns the cache with ch applied:
//
//   - INSERT of a key already present is discarded; otherwise the row is
//     appended or prepended per p.
//   - UPDATE replaces the matching row in place, or is dropped when absent.
//   - DELETE removes the matching row, if any.
func Apply[T Row](cache []T, ch Change[T], p Placement) []T {
	switch ch.Type {
	case model.ChangeInsert:
		if indexOf(cache, ch.New.Key()) >= 0 {
			return cache
		}
		out := make([]T, 0, len(cache)+1)
		if p == Prepend {
			out = append(out, ch.New)
			return append(out, cache...)
		}
		out = append(out, cache...)
		return append(out, ch.New)

	case model.ChangeUpdate:
		i := indexOf(cache, ch.New.Key())
		if i < 0 {
			return cache
		}
		out := make([]T, len(cache))
		copy(out, cache)
		out[i] = ch.New
		return out

	case model.ChangeDelete:
		i := indexOf(cache, ch.OldKey)
		if i < 0 {
			return cache
		}
		out := make([]T, 0, len(cache)-1)
		out = append(out, cache[:i]...)
		return append(out, cache[i+1:]...)
	}
	return cache
}

// Replay applies changes in order.
func Replay[T Row](cache []T, changes []Change[T], p Placement) []T {
	for _, ch := range changes {
		cache = Apply(cache, ch, p)
	}
	return cache
}

// Decode turns a change-feed event into a typed Change.
func Decode[T Row](ev model.ChangeEvent) (Change[T], error) {
	ch := Change[T]{Type: ev.Type}
	switch ev.Type {
	case model.ChangeInsert, model.ChangeUpdate:
		if err := json.Unmarshal(ev.New, &ch.New); err != nil {
			return ch, fmt.Errorf("decode %s %s row: %w", ev.Table, ev.Type, err)
		}
	case model.ChangeDelete:
		var old model.RowID
		if err := json.Unmarshal(ev.Old, &old); err != nil {
			return ch, fmt.Errorf("decode %s delete key: %w", ev.Table, err)
		}
		if old.ID == "" {
			return ch, fmt.Errorf("decode %s delete key: missing id", ev.Table)
		}
		ch.OldKey = old.ID
	default:
		return ch, fmt.Errorf("unknown change type %q", ev.Type)
	}
	return ch, nil
}
