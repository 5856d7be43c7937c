package store

import (
	"errors"
	"testing"

	"github.com/dukerupert/tandem/internal/model"
)

func TestListCreate(t *testing.T) {
	db := setupTestDB(t)
	ls := NewListStore(db)
	owner := createTestUser(t, db, "owner@example.com")

	l, err := ls.Create("Weekly shop", owner.ID)
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	if l.Status != model.ListActive {
		t.Errorf("status = %q, want active", l.Status)
	}
	if l.CreatedBy != owner.ID {
		t.Errorf("created_by = %q, want %q", l.CreatedBy, owner.ID)
	}
	if len(l.ShareToken) != 43 { // 32 bytes, unpadded base64
		t.Errorf("share token length = %d, want 43", len(l.ShareToken))
	}

	m, err := ls.GetMember(l.ID, owner.ID)
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if m == nil || m.Role != model.RoleOwner {
		t.Fatalf("owner membership = %+v, want role owner", m)
	}

	byToken, err := ls.GetByShareToken(l.ShareToken)
	if err != nil {
		t.Fatalf("get by share token: %v", err)
	}
	if byToken == nil || byToken.ID != l.ID {
		t.Errorf("share token resolved to %+v", byToken)
	}
}

func TestListForUser(t *testing.T) {
	db := setupTestDB(t)
	ls := NewListStore(db)
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")

	first, _ := ls.Create("First", alice.ID)
	second, _ := ls.Create("Second", alice.ID)
	bobs, _ := ls.Create("Bob's", bob.ID)

	if _, err := ls.AddMember(bobs.ID, alice.ID, model.RoleEditor); err != nil {
		t.Fatalf("add member: %v", err)
	}

	lists, err := ls.ListForUser(alice.ID)
	if err != nil {
		t.Fatalf("list for user: %v", err)
	}
	if len(lists) != 3 {
		t.Fatalf("expected 3 lists, got %d", len(lists))
	}
	// Newest first.
	want := []string{bobs.ID, second.ID, first.ID}
	for i, id := range want {
		if lists[i].ID != id {
			t.Errorf("lists[%d] = %s, want %s", i, lists[i].Name, id)
		}
	}

	owned, err := ls.ListOwnedBy(alice.ID)
	if err != nil {
		t.Fatalf("list owned: %v", err)
	}
	if len(owned) != 2 {
		t.Errorf("expected 2 owned lists, got %d", len(owned))
	}
}

func TestListUpdate(t *testing.T) {
	db := setupTestDB(t)
	ls := NewListStore(db)
	u := createTestUser(t, db, "alice@example.com")
	l, _ := ls.Create("Groceries", u.ID)

	archived := model.ListArchived
	updated, err := ls.Update(l.ID, model.ListPatch{Name: strPtr("Party"), Notes: strPtr("bring ice"), Status: &archived})
	if err != nil {
		t.Fatalf("update list: %v", err)
	}
	if updated.Name != "Party" {
		t.Errorf("name = %q, want Party", updated.Name)
	}
	if updated.Notes == nil || *updated.Notes != "bring ice" {
		t.Errorf("notes = %v, want bring ice", updated.Notes)
	}
	if updated.Status != model.ListArchived {
		t.Errorf("status = %q, want archived", updated.Status)
	}

	cleared, err := ls.Update(l.ID, model.ListPatch{Notes: strPtr("")})
	if err != nil {
		t.Fatalf("clear notes: %v", err)
	}
	if cleared.Notes != nil {
		t.Errorf("notes = %q, want nil", *cleared.Notes)
	}
}

func TestListDeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	ls := NewListStore(db)
	is := NewItemStore(db)
	u := createTestUser(t, db, "alice@example.com")
	l, _ := ls.Create("Groceries", u.ID)
	item, _ := is.Create(l.ID, u.ID, model.NewItem{Name: "Milk"})

	if err := ls.Delete(l.ID); err != nil {
		t.Fatalf("delete list: %v", err)
	}
	got, err := is.GetByID(item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got != nil {
		t.Error("expected item to be deleted with its list")
	}
	m, _ := ls.GetMember(l.ID, u.ID)
	if m != nil {
		t.Error("expected membership to be deleted with its list")
	}
}

func TestListDeleteOwnedBy(t *testing.T) {
	db := setupTestDB(t)
	ls := NewListStore(db)
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")
	ls.Create("A1", alice.ID)
	ls.Create("A2", alice.ID)
	keep, _ := ls.Create("B1", bob.ID)

	n, err := ls.DeleteOwnedBy(alice.ID)
	if err != nil {
		t.Fatalf("delete owned: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d, want 2", n)
	}
	got, _ := ls.GetByID(keep.ID)
	if got == nil {
		t.Error("other user's list should survive")
	}
}

func TestListAddMemberConflict(t *testing.T) {
	db := setupTestDB(t)
	ls := NewListStore(db)
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")
	l, _ := ls.Create("Shared", alice.ID)

	if _, err := ls.AddMember(l.ID, bob.ID, model.RoleEditor); err != nil {
		t.Fatalf("add member: %v", err)
	}
	_, err := ls.AddMember(l.ID, bob.ID, model.RoleViewer)
	if !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	ids, err := ls.MemberIDs(l.ID)
	if err != nil {
		t.Fatalf("member ids: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 members, got %d", len(ids))
	}

	n, err := ls.RemoveMembershipsOf(bob.ID)
	if err != nil {
		t.Fatalf("remove memberships: %v", err)
	}
	if n != 1 {
		t.Errorf("removed %d, want 1", n)
	}
}

func TestListSyncStatus(t *testing.T) {
	db := setupTestDB(t)
	ls := NewListStore(db)
	is := NewItemStore(db)
	u := createTestUser(t, db, "alice@example.com")
	l, _ := ls.Create("Groceries", u.ID)

	// No items: stays active.
	_, changed, err := ls.SyncStatus(l.ID)
	if err != nil {
		t.Fatalf("sync status: %v", err)
	}
	if changed {
		t.Error("empty list should not change status")
	}

	milk, _ := is.Create(l.ID, u.ID, model.NewItem{Name: "Milk", Position: 0})
	bread, _ := is.Create(l.ID, u.ID, model.NewItem{Name: "Bread", Position: 1})
	checked := true
	is.Update(milk.ID, model.ItemPatch{Checked: &checked})

	got, changed, _ := ls.SyncStatus(l.ID)
	if changed || got.Status != model.ListActive {
		t.Errorf("partially checked: status = %q changed = %v", got.Status, changed)
	}

	is.Update(bread.ID, model.ItemPatch{Checked: &checked})
	got, changed, _ = ls.SyncStatus(l.ID)
	if !changed || got.Status != model.ListCompleted {
		t.Errorf("all checked: status = %q changed = %v, want completed true", got.Status, changed)
	}

	unchecked := false
	is.Update(bread.ID, model.ItemPatch{Checked: &unchecked})
	got, changed, _ = ls.SyncStatus(l.ID)
	if !changed || got.Status != model.ListActive {
		t.Errorf("unchecked again: status = %q changed = %v, want active true", got.Status, changed)
	}

	archived := model.ListArchived
	ls.Update(l.ID, model.ListPatch{Status: &archived})
	is.Update(bread.ID, model.ItemPatch{Checked: &checked})
	got, changed, _ = ls.SyncStatus(l.ID)
	if changed || got.Status != model.ListArchived {
		t.Errorf("archived: status = %q changed = %v, want archived false", got.Status, changed)
	}
}
