// Package live keeps local copies of lists and items in step with the server.
//
// Each collection loads its rows once, applies the result of its own writes
// immediately and folds change-feed notifications in through the reconcile
// reducer. Collections are safe for concurrent use: a Watch goroutine and
// callers issuing writes may run at the same time.
package live

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/dukerupert/tandem/internal/client"
	"github.com/dukerupert/tandem/internal/reconcile"
)

// collection is the cache shared by Lists and Items.
type collection[T reconcile.Row] struct {
	mu        sync.Mutex
	rows      []T
	loading   bool
	err       error
	placement reconcile.Placement
	onChange  func()
}

func (c *collection[T]) OnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func (c *collection[T]) notify() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Snapshot returns a copy of the cached rows.
func (c *collection[T]) Snapshot() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.rows))
	copy(out, c.rows)
	return out
}

func (c *collection[T]) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Err returns the error of the last load, if it failed.
func (c *collection[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *collection[T]) load(fetch func() ([]T, error)) error {
	c.mu.Lock()
	c.loading = true
	c.err = nil
	c.mu.Unlock()

	rows, err := fetch()

	c.mu.Lock()
	if err != nil {
		c.err = err
	} else {
		c.rows = rows
	}
	c.loading = false
	c.mu.Unlock()

	c.notify()
	return err
}

func (c *collection[T]) apply(ch reconcile.Change[T]) {
	c.mu.Lock()
	c.rows = reconcile.Apply(c.rows, ch, c.placement)
	c.mu.Unlock()
	c.notify()
}

// watch feeds the subscription into the cache until the stream ends or ctx
// is cancelled. A lost stream is not resumed; callers reload and watch again.
func (c *collection[T]) watch(ctx context.Context, cl *client.Client, f client.Filter, logger *slog.Logger) error {
	sub, err := cl.Subscribe(ctx, f)
	if err != nil {
		return err
	}
	defer sub.Close()

	for {
		ev, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, client.ErrSubscriptionClosed) {
				return nil
			}
			return err
		}
		if ev.Table != f.Table {
			continue
		}
		ch, err := reconcile.Decode[T](ev)
		if err != nil {
			logger.Warn("skip change", "table", ev.Table, "error", err)
			continue
		}
		c.apply(ch)
	}
}

func findRow[T reconcile.Row](rows []T, key string) (T, bool) {
	for _, r := range rows {
		if r.Key() == key {
			return r, true
		}
	}
	var zero T
	return zero, false
}
