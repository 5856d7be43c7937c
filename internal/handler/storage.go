package handler

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dukerupert/tandem/internal/model"
	"github.com/dukerupert/tandem/internal/storage"
	"github.com/dukerupert/tandem/internal/store"
)

const maxImageBytes = 10 << 20

// ImageCounter is told about every stored image. It may be nil.
type ImageCounter interface {
	ImageStored()
}

type StorageHandler struct {
	objects   *storage.Store
	itemStore *store.ItemStore
	listStore *store.ListStore
	counter   ImageCounter
	logger    *slog.Logger
}

func NewStorageHandler(objects *storage.Store, is *store.ItemStore, ls *store.ListStore, counter ImageCounter, logger *slog.Logger) *StorageHandler {
	return &StorageHandler{objects: objects, itemStore: is, listStore: ls, counter: counter, logger: logger}
}

// bucket validates the bucket path parameter and that storage is available.
func (h *StorageHandler) bucket(w http.ResponseWriter, r *http.Request) (string, bool) {
	b := chi.URLParam(r, "bucket")
	if b != storage.ItemImages {
		writeError(w, http.StatusNotFound, "Bucket not found", "not_found")
		return "", false
	}
	if !h.objects.Enabled() {
		writeError(w, http.StatusServiceUnavailable, storage.ErrDisabled.Error(), "storage_unavailable")
		return "", false
	}
	return b, true
}

// authorizeKey checks that the first segment of key names an item on a list
// the caller may write to.
func (h *StorageHandler) authorizeKey(w http.ResponseWriter, r *http.Request, key string, write bool) bool {
	itemID, _, _ := strings.Cut(key, "/")
	item, err := h.itemStore.GetByID(itemID)
	if err != nil {
		serverError(w, h.logger, "get item", err)
		return false
	}
	if item == nil {
		writeError(w, http.StatusForbidden, "object key must start with an item id you can access", "forbidden")
		return false
	}
	_, m, ok := access(w, r, h.listStore, h.logger, item.ListID)
	if !ok {
		return false
	}
	if write && !m.Role.CanWrite() {
		writeError(w, http.StatusForbidden, "viewers cannot change images", "forbidden")
		return false
	}
	return true
}

func (h *StorageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	bucket, ok := h.bucket(w, r)
	if !ok {
		return
	}
	key, err := storage.CleanKey(chi.URLParam(r, "*"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_key")
		return
	}
	if !h.authorizeKey(w, r, key, true) {
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	// The S3 client needs a seekable body of known length.
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImageBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "object too large", "payload_too_large")
		return
	}

	err = h.objects.Put(r.Context(), bucket, key, contentType, bytes.NewReader(data), int64(len(data)))
	if errors.Is(err, model.ErrConflict) {
		writeError(w, http.StatusConflict, "The resource already exists", "Duplicate")
		return
	}
	if err != nil {
		serverError(w, h.logger, "put object", err)
		return
	}

	if h.counter != nil {
		h.counter.ImageStored()
	}
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

func (h *StorageHandler) List(w http.ResponseWriter, r *http.Request) {
	bucket, ok := h.bucket(w, r)
	if !ok {
		return
	}
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		writeError(w, http.StatusBadRequest, "prefix is required", "invalid_key")
		return
	}
	if !h.authorizeKey(w, r, prefix, false) {
		return
	}

	objs, err := h.objects.List(r.Context(), bucket, prefix)
	if err != nil {
		serverError(w, h.logger, "list objects", err)
		return
	}
	if objs == nil {
		objs = []storage.Object{}
	}
	writeJSON(w, http.StatusOK, objs)
}

type removeObjectsRequest struct {
	Prefixes []string `json:"prefixes"`
}

func (h *StorageHandler) Remove(w http.ResponseWriter, r *http.Request) {
	bucket, ok := h.bucket(w, r)
	if !ok {
		return
	}
	var req removeObjectsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	keys := make([]string, 0, len(req.Prefixes))
	for _, p := range req.Prefixes {
		key, err := storage.CleanKey(p)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "invalid_key")
			return
		}
		if !h.authorizeKey(w, r, key, true) {
			return
		}
		keys = append(keys, key)
	}

	if err := h.objects.Remove(r.Context(), bucket, keys); err != nil {
		serverError(w, h.logger, "remove objects", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Public serves an object without authentication.
func (h *StorageHandler) Public(w http.ResponseWriter, r *http.Request) {
	bucket, ok := h.bucket(w, r)
	if !ok {
		return
	}
	key, err := storage.CleanKey(chi.URLParam(r, "*"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_key")
		return
	}

	body, contentType, err := h.objects.Get(r.Context(), bucket, key)
	if errors.Is(err, model.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Object not found", "not_found")
		return
	}
	if err != nil {
		serverError(w, h.logger, "get object", err)
		return
	}
	defer body.Close()

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("stream object", "key", key, "error", err)
	}
}
