package live

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/dukerupert/tandem/internal/client"
	"github.com/dukerupert/tandem/internal/model"
	"github.com/dukerupert/tandem/internal/reconcile"
)

var (
	ErrItemNotFound = errors.New("item not found")
	ErrNameRequired = errors.New("item name is required")
	ErrNoImageStore = errors.New("image storage not available")
)

// Images stores and removes item photos.
type Images interface {
	Upload(ctx context.Context, itemID string, r io.Reader) (string, error)
	Delete(ctx context.Context, imageURL string) error
	DeleteAll(ctx context.Context, itemID string) error
}

// NextPosition is one past the highest position in items, or 0 for none.
func NextPosition(items []model.Item) int {
	if len(items) == 0 {
		return 0
	}
	next := items[0].Position
	for _, it := range items[1:] {
		next = max(next, it.Position)
	}
	return next + 1
}

// Items is the items of one list in position order.
type Items struct {
	collection[model.Item]
	client *client.Client
	listID string
	images Images
	logger *slog.Logger
}

// NewItems returns the item collection for a list. images may be nil, in
// which case image operations fail with ErrNoImageStore.
func NewItems(c *client.Client, listID string, images Images) *Items {
	return &Items{
		collection: collection[model.Item]{placement: reconcile.Append},
		client:     c,
		listID:     listID,
		images:     images,
		logger:     slog.Default().With("component", "items", "list_id", listID),
	}
}

func (it *Items) Load(ctx context.Context) error {
	return it.load(func() ([]model.Item, error) { return it.client.Items(ctx, it.listID) })
}

func (it *Items) Refetch(ctx context.Context) error {
	return it.Load(ctx)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Add appends an item after every existing one.
func (it *Items) Add(ctx context.Context, name, quantity, notes string) (*model.Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	created, err := it.client.CreateItem(ctx, it.listID, model.NewItem{
		Name:     name,
		Quantity: optional(quantity),
		Notes:    optional(notes),
		Position: NextPosition(it.Snapshot()),
	})
	if err != nil {
		return nil, err
	}
	it.apply(reconcile.Insert(*created))
	return created, nil
}

func (it *Items) Update(ctx context.Context, id string, patch model.ItemPatch) (*model.Item, error) {
	updated, err := it.client.UpdateItem(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	it.apply(reconcile.Update(*updated))
	return updated, nil
}

// Toggle flips the checked state of a cached item.
func (it *Items) Toggle(ctx context.Context, id string) (*model.Item, error) {
	item, ok := findRow(it.Snapshot(), id)
	if !ok {
		return nil, ErrItemNotFound
	}
	checked := !item.Checked
	return it.Update(ctx, id, model.ItemPatch{Checked: &checked})
}

// Delete removes an item and every image stored for it. Image cleanup runs
// first, while the item still exists to authorize it; its failures are logged
// and do not stop the delete.
func (it *Items) Delete(ctx context.Context, id string) error {
	if it.images != nil {
		if err := it.images.DeleteAll(ctx, id); err != nil {
			it.logger.Warn("delete item images", "item_id", id, "error", err)
		}
	}
	if err := it.client.DeleteItem(ctx, id); err != nil {
		return err
	}
	it.apply(reconcile.Delete[model.Item](id))
	return nil
}

// SetImage uploads a photo for the item and points the item at it. When the
// upload fails the item is left as it was and the error is returned; callers
// treat that as non-fatal. A replaced photo is removed afterwards.
func (it *Items) SetImage(ctx context.Context, id string, r io.Reader) (*model.Item, error) {
	if it.images == nil {
		return nil, ErrNoImageStore
	}
	prev, _ := findRow(it.Snapshot(), id)

	url, err := it.images.Upload(ctx, id, r)
	if err != nil {
		return nil, err
	}
	updated, err := it.Update(ctx, id, model.ItemPatch{ImageURL: &url})
	if err != nil {
		return nil, err
	}
	if prev.ImageURL != nil && *prev.ImageURL != url {
		if err := it.images.Delete(ctx, *prev.ImageURL); err != nil {
			it.logger.Warn("delete replaced image", "item_id", id, "error", err)
		}
	}
	return updated, nil
}

// RemoveImage deletes the item's photo and clears its reference.
func (it *Items) RemoveImage(ctx context.Context, id string) (*model.Item, error) {
	item, ok := findRow(it.Snapshot(), id)
	if !ok {
		return nil, ErrItemNotFound
	}
	if item.ImageURL != nil && it.images != nil {
		if err := it.images.Delete(ctx, *item.ImageURL); err != nil {
			it.logger.Warn("delete item image", "item_id", id, "error", err)
		}
	}
	return it.Update(ctx, id, model.ItemPatch{ClearImage: true})
}

// Watch applies item changes for this list until ctx is cancelled or the
// stream drops.
func (it *Items) Watch(ctx context.Context) error {
	return it.watch(ctx, it.client, client.Filter{Table: model.TableItems, ListID: it.listID}, it.logger)
}
