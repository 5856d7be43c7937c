package store

import (
	"testing"

	"github.com/dukerupert/tandem/internal/model"
)

func setupItemTest(t *testing.T) (*ItemStore, *model.List, *model.Account) {
	t.Helper()
	db := setupTestDB(t)
	u := createTestUser(t, db, "alice@example.com")
	l, err := NewListStore(db).Create("Groceries", u.ID)
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	return NewItemStore(db), l, u
}

func TestItemCreate(t *testing.T) {
	is, l, u := setupItemTest(t)

	item, err := is.Create(l.ID, u.ID, model.NewItem{Name: "Eggs", Quantity: strPtr("12"), Position: 3})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if item.Name != "Eggs" {
		t.Errorf("name = %q, want Eggs", item.Name)
	}
	if item.Quantity == nil || *item.Quantity != "12" {
		t.Errorf("quantity = %v, want 12", item.Quantity)
	}
	if item.Notes != nil {
		t.Errorf("notes = %q, want nil", *item.Notes)
	}
	if item.Checked {
		t.Error("new item should be unchecked")
	}
	if item.AddedBy == nil || *item.AddedBy != u.ID {
		t.Errorf("added_by = %v, want %s", item.AddedBy, u.ID)
	}
	if item.Position != 3 {
		t.Errorf("position = %d, want 3", item.Position)
	}
}

func TestItemListOrder(t *testing.T) {
	is, l, u := setupItemTest(t)

	is.Create(l.ID, u.ID, model.NewItem{Name: "C", Position: 2})
	is.Create(l.ID, u.ID, model.NewItem{Name: "A", Position: 0})
	is.Create(l.ID, u.ID, model.NewItem{Name: "B", Position: 1})

	items, err := is.ListByList(l.ID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	for i, want := range []string{"A", "B", "C"} {
		if items[i].Name != want {
			t.Errorf("items[%d] = %q, want %q", i, items[i].Name, want)
		}
	}
}

func TestItemUpdate(t *testing.T) {
	is, l, u := setupItemTest(t)
	item, _ := is.Create(l.ID, u.ID, model.NewItem{Name: "Milk", Notes: strPtr("oat")})

	checked := true
	updated, err := is.Update(item.ID, model.ItemPatch{
		Name:     strPtr("Whole milk"),
		Checked:  &checked,
		Notes:    strPtr(""),
		ImageURL: strPtr("http://x/item-images/a.jpg"),
	})
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if updated.Name != "Whole milk" {
		t.Errorf("name = %q", updated.Name)
	}
	if !updated.Checked {
		t.Error("expected checked")
	}
	if updated.Notes != nil {
		t.Errorf("notes = %q, want nil", *updated.Notes)
	}
	if updated.ImageURL == nil {
		t.Fatal("expected image url")
	}
	if updated.UpdatedAt.Before(item.UpdatedAt) {
		t.Errorf("updated_at went backwards: %v < %v", updated.UpdatedAt, item.UpdatedAt)
	}

	cleared, err := is.Update(item.ID, model.ItemPatch{ClearImage: true})
	if err != nil {
		t.Fatalf("clear image: %v", err)
	}
	if cleared.ImageURL != nil {
		t.Errorf("image url = %q, want nil", *cleared.ImageURL)
	}
	if !cleared.Checked {
		t.Error("clearing image should not touch checked")
	}
}

func TestItemDelete(t *testing.T) {
	is, l, u := setupItemTest(t)
	item, _ := is.Create(l.ID, u.ID, model.NewItem{Name: "Milk"})

	if err := is.Delete(item.ID); err != nil {
		t.Fatalf("delete item: %v", err)
	}
	got, err := is.GetByID(item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got != nil {
		t.Error("expected item to be gone")
	}
}
