package audit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ebioscore/platform/internal/shared/errors"
	"github.com/go-chi/chi/v5"
)

// Handler provides read-only HTTP access to the audit trail
type Handler struct {
	recorder *Recorder
}

// NewHandler creates a new audit handler
func NewHandler(recorder *Recorder) *Handler {
	return &Handler{recorder: recorder}
}

// Routes registers the audit routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)

	return r
}

// List queries the audit trail
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		EventType: r.URL.Query().Get("type"),
		Source:    r.URL.Query().Get("source"),
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			writeFailure(w, errors.BadRequest("invalid limit"))
			return
		}
		filter.Limit = n
	}
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			writeFailure(w, errors.BadRequest("invalid from time, expected RFC 3339"))
			return
		}
		filter.From = t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			writeFailure(w, errors.BadRequest("invalid to time, expected RFC 3339"))
			return
		}
		filter.To = t
	}

	list, err := h.recorder.List(r.Context(), filter)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if list == nil {
		list = []Entry{}
	}

	writeResult(w, http.StatusOK, list)
}

func writeResult(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]any{"success": true}
	if data != nil {
		body["data"] = data
	}
	json.NewEncoder(w).Encode(body)
}

func writeFailure(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(errors.StatusFor(err))
	json.NewEncoder(w).Encode(map[string]any{
		"success":      false,
		"errorMessage": errors.MessageFor(err),
	})
}
