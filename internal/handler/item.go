package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dukerupert/tandem/internal/auth"
	"github.com/dukerupert/tandem/internal/model"
	"github.com/dukerupert/tandem/internal/store"
)

type ItemHandler struct {
	itemStore *store.ItemStore
	listStore *store.ListStore
	pub       Publisher
	logger    *slog.Logger
}

func NewItemHandler(is *store.ItemStore, ls *store.ListStore, pub Publisher, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{itemStore: is, listStore: ls, pub: pub, logger: logger}
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	l, _, ok := access(w, r, h.listStore, h.logger, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	items, err := h.itemStore.ListByList(l.ID)
	if err != nil {
		serverError(w, h.logger, "list items", err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	l, m, ok := access(w, r, h.listStore, h.logger, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if !m.Role.CanWrite() {
		writeError(w, http.StatusForbidden, "viewers cannot add items", "forbidden")
		return
	}

	var req model.NewItem
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = cleanText(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", "validation_failed")
		return
	}
	cleanOptional(req.Quantity)
	cleanOptional(req.Notes)
	if req.Quantity != nil && *req.Quantity == "" {
		req.Quantity = nil
	}
	if req.Notes != nil && *req.Notes == "" {
		req.Notes = nil
	}

	item, err := h.itemStore.Create(l.ID, auth.UserID(r.Context()), req)
	if err != nil {
		serverError(w, h.logger, "create item", err)
		return
	}

	h.changed(model.ChangeInsert, item, nil, l.ID)
	writeJSON(w, http.StatusCreated, item)
}

// itemAccess loads an item and checks that the caller may write to its list.
func (h *ItemHandler) itemAccess(w http.ResponseWriter, r *http.Request) (*model.Item, bool) {
	item, err := h.itemStore.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		serverError(w, h.logger, "get item", err)
		return nil, false
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found", "not_found")
		return nil, false
	}
	_, m, ok := access(w, r, h.listStore, h.logger, item.ListID)
	if !ok {
		return nil, false
	}
	if !m.Role.CanWrite() {
		writeError(w, http.StatusForbidden, "viewers cannot change items", "forbidden")
		return nil, false
	}
	return item, true
}

func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	item, ok := h.itemAccess(w, r)
	if !ok {
		return
	}

	var patch model.ItemPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	cleanOptional(patch.Name)
	cleanOptional(patch.Quantity)
	cleanOptional(patch.Notes)
	if patch.Name != nil && *patch.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", "validation_failed")
		return
	}

	updated, err := h.itemStore.Update(item.ID, patch)
	if err != nil {
		serverError(w, h.logger, "update item", err)
		return
	}

	h.changed(model.ChangeUpdate, updated, nil, item.ListID)
	writeJSON(w, http.StatusOK, updated)
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item, ok := h.itemAccess(w, r)
	if !ok {
		return
	}

	if err := h.itemStore.Delete(item.ID); err != nil {
		serverError(w, h.logger, "delete item", err)
		return
	}

	h.changed(model.ChangeDelete, nil, model.RowID{ID: item.ID}, item.ListID)
	w.WriteHeader(http.StatusNoContent)
}

// changed publishes an item change, then re-derives the list status and
// publishes the list when its status moved.
func (h *ItemHandler) changed(typ model.ChangeType, newRow, oldRow any, listID string) {
	aud := audience(h.listStore, h.logger, listID)
	h.pub.Publish(model.TableItems, typ, newRow, oldRow, aud)

	l, moved, err := h.listStore.SyncStatus(listID)
	if err != nil {
		h.logger.Error("sync list status", "list_id", listID, "error", err)
		return
	}
	if moved {
		h.pub.Publish(model.TableLists, model.ChangeUpdate, l, nil, aud)
	}
}
