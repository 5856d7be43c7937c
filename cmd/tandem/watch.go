package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// reconnectDelay is how long watch waits before reloading after the realtime
// stream drops.
var reconnectDelay = 2 * time.Second

var errStreamEnded = errors.New("realtime stream ended")

func (a *app) watch(ctx context.Context, args []string) error {
	pos, _, err := positional(args, 1, "watch <list-id>")
	if err != nil {
		return err
	}
	l, items, err := a.openList(ctx, pos[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	draw := func() {
		mu.Lock()
		defer mu.Unlock()
		snap := l.Snapshot()
		if snap == nil {
			fmt.Fprintln(a.out, "This list was deleted.")
			cancel()
			return
		}
		fmt.Fprintf(a.out, "\n--- %s ---\n", time.Now().Format("15:04:05"))
		renderList(a.out, snap, items.Snapshot())
	}
	l.OnChange(draw)
	items.OnChange(draw)
	draw()

	for {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return streamEnded(gctx, items.Watch(gctx)) })
		g.Go(func() error { return streamEnded(gctx, l.Watch(gctx)) })
		err := g.Wait()
		if ctx.Err() != nil {
			return nil
		}
		if !errors.Is(err, errStreamEnded) {
			return err
		}

		fmt.Fprintln(a.errOut, "Connection lost, reloading...")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectDelay):
		}
		// Changes made while disconnected were never delivered.
		if err := l.Refetch(ctx); err != nil {
			return err
		}
		if err := items.Refetch(ctx); err != nil {
			return err
		}
	}
}

// streamEnded turns a clean end of stream into an error so the group
// tears down the other subscription as well.
func streamEnded(ctx context.Context, err error) error {
	if err == nil && ctx.Err() == nil {
		return errStreamEnded
	}
	return err
}
