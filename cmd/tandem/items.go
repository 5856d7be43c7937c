package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dukerupert/tandem/internal/imaging"
	"github.com/dukerupert/tandem/internal/live"
	"github.com/dukerupert/tandem/internal/model"
)

// openList loads one list and its items.
func (a *app) openList(ctx context.Context, id string) (*live.List, *live.Items, error) {
	if err := a.requireSession(); err != nil {
		return nil, nil, err
	}
	l := live.NewList(a.client, id)
	if err := l.Load(ctx); err != nil {
		return nil, nil, err
	}
	items := live.NewItems(a.client, id, imaging.NewUploader(a.client))
	if err := items.Load(ctx); err != nil {
		return nil, nil, err
	}
	return l, items, nil
}

// reportStatus reloads the list and mentions a status the item change derived.
func (a *app) reportStatus(ctx context.Context, l *live.List) {
	before := l.Snapshot()
	if err := l.Refetch(ctx); err != nil {
		return
	}
	after := l.Snapshot()
	if before != nil && after != nil && before.Status != after.Status {
		fmt.Fprintf(a.out, "List is now %s\n", after.Status)
	}
}

func (a *app) show(ctx context.Context, args []string) error {
	pos, _, err := positional(args, 1, "show <list-id>")
	if err != nil {
		return err
	}
	l, items, err := a.openList(ctx, pos[0])
	if err != nil {
		return err
	}
	renderList(a.out, l.Snapshot(), items.Snapshot())
	return nil
}

func (a *app) add(ctx context.Context, args []string) error {
	pos, rest, err := positional(args, 1, "add <list-id> [-q quantity] [-n notes] [-image file] <name>")
	if err != nil {
		return err
	}
	fs := subFlags("add", a.errOut)
	qty := fs.String("q", "", "quantity")
	notes := fs.String("n", "", "notes")
	imagePath := fs.String("image", "", "photo to attach")
	if err := fs.Parse(rest); err != nil {
		return errUsage
	}
	name := strings.Join(fs.Args(), " ")

	l, items, err := a.openList(ctx, pos[0])
	if err != nil {
		return err
	}
	item, err := items.Add(ctx, name, *qty, *notes)
	if err != nil {
		return err
	}
	if *imagePath != "" {
		if updated, err := a.attachImage(ctx, items, item.ID, *imagePath); err != nil {
			fmt.Fprintf(a.errOut, "Item added, but the photo could not be uploaded: %v\n", err)
		} else {
			item = updated
		}
	}
	renderItem(a.out, *item)
	a.reportStatus(ctx, l)
	return nil
}

func (a *app) attachImage(ctx context.Context, items *live.Items, id, path string) (*model.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return items.SetImage(ctx, id, f)
}

func (a *app) check(ctx context.Context, args []string) error {
	pos, _, err := positional(args, 2, "check <list-id> <item-id>")
	if err != nil {
		return err
	}
	l, items, err := a.openList(ctx, pos[0])
	if err != nil {
		return err
	}
	item, err := items.Toggle(ctx, pos[1])
	if err != nil {
		return err
	}
	renderItem(a.out, *item)
	a.reportStatus(ctx, l)
	return nil
}

func (a *app) edit(ctx context.Context, args []string) error {
	pos, rest, err := positional(args, 2, "edit <list-id> <item-id> [-name name] [-q quantity] [-n notes]")
	if err != nil {
		return err
	}
	fs := subFlags("edit", a.errOut)
	name := fs.String("name", "", "new name")
	qty := fs.String("q", "", "quantity (empty clears)")
	notes := fs.String("n", "", "notes (empty clears)")
	if err := fs.Parse(rest); err != nil {
		return errUsage
	}

	var patch model.ItemPatch
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			patch.Name = name
		case "q":
			patch.Quantity = qty
		case "n":
			patch.Notes = notes
		}
	})
	if patch == (model.ItemPatch{}) {
		return fmt.Errorf("%w: nothing to change; pass -name, -q or -n", errUsage)
	}

	_, items, err := a.openList(ctx, pos[0])
	if err != nil {
		return err
	}
	item, err := items.Update(ctx, pos[1], patch)
	if err != nil {
		return err
	}
	renderItem(a.out, *item)
	return nil
}

func (a *app) removeItem(ctx context.Context, args []string) error {
	pos, _, err := positional(args, 2, "rm <list-id> <item-id>")
	if err != nil {
		return err
	}
	l, items, err := a.openList(ctx, pos[0])
	if err != nil {
		return err
	}
	if err := items.Delete(ctx, pos[1]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Item deleted")
	a.reportStatus(ctx, l)
	return nil
}

func (a *app) image(ctx context.Context, args []string) error {
	pos, rest, err := positional(args, 2, "image <list-id> <item-id> <file> | -remove")
	if err != nil {
		return err
	}
	fs := subFlags("image", a.errOut)
	remove := fs.Bool("remove", false, "remove the photo")
	if err := fs.Parse(rest); err != nil {
		return errUsage
	}
	if !*remove && fs.NArg() != 1 {
		return fmt.Errorf("%w: tandem image <list-id> <item-id> <file> | -remove", errUsage)
	}

	_, items, err := a.openList(ctx, pos[0])
	if err != nil {
		return err
	}
	if *remove {
		item, err := items.RemoveImage(ctx, pos[1])
		if err != nil {
			return err
		}
		renderItem(a.out, *item)
		return nil
	}
	item, err := a.attachImage(ctx, items, pos[1], fs.Arg(0))
	if err != nil {
		return fmt.Errorf("photo not uploaded: %w", err)
	}
	renderItem(a.out, *item)
	return nil
}

func (a *app) setStatus(ctx context.Context, args []string, archive bool) error {
	line := "restore <list-id>"
	if archive {
		line = "archive <list-id>"
	}
	pos, _, err := positional(args, 1, line)
	if err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	l := live.NewList(a.client, pos[0])
	var got *model.List
	if archive {
		got, err = l.Archive(ctx)
	} else {
		got, err = l.Activate(ctx)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s is now %s\n", got.Name, got.Status)
	return nil
}

func (a *app) share(ctx context.Context, args []string) error {
	pos, _, err := positional(args, 1, "share <list-id>")
	if err != nil {
		return err
	}
	l, _, err := a.openList(ctx, pos[0])
	if err != nil {
		return err
	}
	snap := l.Snapshot()
	fmt.Fprintf(a.out, "Anyone with this token can join %q as an editor:\n\n", snap.Name)
	fmt.Fprintf(a.out, "  %s\n\n", snap.ShareToken)
	fmt.Fprintf(a.out, "They run: tandem -server %s join %s\n", a.client.BaseURL(), snap.ShareToken)
	return nil
}

func (a *app) invite(ctx context.Context, args []string) error {
	pos, _, err := positional(args, 2, "invite <list-id> <email>")
	if err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	inv, err := live.NewList(a.client, pos[0]).Invite(ctx, pos[1])
	var already *live.AlreadyInvitedError
	if errors.As(err, &already) {
		fmt.Fprintln(a.out, already.Error())
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Invited %s. They join automatically the next time they sign in.\n", inv.Email)
	return nil
}
