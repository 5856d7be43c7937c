package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukerupert/tandem/internal/join"
	"github.com/dukerupert/tandem/internal/live"
)

func (a *app) lists(ctx context.Context) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	lists := live.NewLists(a.client)
	if err := lists.Load(ctx); err != nil {
		return err
	}
	renderLists(a.out, lists.Snapshot())
	return nil
}

func (a *app) newList(ctx context.Context, args []string) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	l, err := live.NewLists(a.client).Create(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created %q  %s\n", l.Name, l.ID)
	return nil
}

func (a *app) removeList(ctx context.Context, args []string) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	pos, _, err := positional(args, 1, "rm-list <list-id>")
	if err != nil {
		return err
	}
	if err := live.NewLists(a.client).Delete(ctx, pos[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "List deleted")
	return nil
}

func (a *app) join(ctx context.Context, args []string) error {
	pos, _, err := positional(args, 1, "join <share-token>")
	if err != nil {
		return err
	}
	if !a.sess.SignedIn() {
		fmt.Fprintln(a.out, "Sign in to join this shared list:")
		fmt.Fprintf(a.out, "  tandem login -email <email> -password <password> && tandem join %s\n", pos[0])
		return errNotSignedIn
	}

	flow := join.Flow{
		Client: a.client,
		UserID: a.sess.User().ID,
		Observe: func(s join.State) {
			if s == join.Joining {
				fmt.Fprintln(a.out, "Joining list...")
			}
		},
	}
	res := flow.Run(ctx, pos[0])
	switch res.State {
	case join.Success:
		fmt.Fprintf(a.out, "You joined %q. Open it with `tandem show %s`.\n", res.ListName, res.ListID)
	case join.AlreadyMember:
		fmt.Fprintf(a.out, "You're already part of %q. Open it with `tandem show %s`.\n", res.ListName, res.ListID)
	default:
		return fmt.Errorf("%s (see `tandem lists`)", res.Message)
	}
	return nil
}
