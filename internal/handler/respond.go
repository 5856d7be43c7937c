package handler

import (
	"encoding/json"
	"errors"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/dukerupert/tandem/internal/model"
	"github.com/dukerupert/tandem/internal/realtime"
)

// conflictCode is the error code clients match to recognise a unique
// constraint violation.
const conflictCode = "23505"

const maxJSONBody = 1 << 20

// Publisher fans row changes out to change-feed subscribers.
type Publisher interface {
	Publish(table string, typ model.ChangeType, newRow, oldRow any, aud realtime.Audience)
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

func writeConflict(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusConflict, msg, conflictCode)
}

func serverError(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error", "")
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v as is.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON", "bad_json")
		return false
	}
	return true
}

var textPolicy = bluemonday.StrictPolicy()

// cleanText strips markup from user-entered text and trims it.
func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

// cleanOptional cleans *p in place when it is set.
func cleanOptional(p *string) {
	if p != nil {
		*p = cleanText(*p)
	}
}
