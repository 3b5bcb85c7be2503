package diagnosis

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ebioscore/platform/internal/shared/auth"
	"github.com/ebioscore/platform/internal/shared/errors"
	"github.com/ebioscore/platform/internal/shared/events"
	"github.com/ebioscore/platform/internal/shared/metrics"
	"github.com/go-chi/chi/v5"
)

// Handler provides HTTP handlers for the diagnosis master
type Handler struct {
	repo *Repository
	bus  events.EventBus
}

// NewHandler creates a new diagnosis handler
func NewHandler(repo *Repository, bus events.EventBus) *Handler {
	return &Handler{repo: repo, bus: bus}
}

// Routes registers the diagnosis routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Save)
	r.Get("/next-code", h.NextCode)
	r.Get("/{icdID}", h.Get)
	r.Put("/{icdID}/status", h.UpdateStatus)

	return r
}

// List lists diagnoses
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Search:          r.URL.Query().Get("search"),
		Version:         r.URL.Query().Get("version"),
		IncludeInactive: r.URL.Query().Get("includeInactive") == "true",
	}

	list, err := h.repo.List(r.Context(), filter)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if list == nil {
		list = []Diagnosis{}
	}

	writeResult(w, http.StatusOK, list)
}

// Get gets a diagnosis by ID
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "icdID"), 10, 64)
	if err != nil {
		writeFailure(w, errors.BadRequest("invalid diagnosis ID"))
		return
	}

	d, err := h.repo.Get(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeResult(w, http.StatusOK, d)
}

// Save creates or updates a diagnosis
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var d Diagnosis
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeFailure(w, errors.BadRequest("invalid request body"))
		return
	}

	if details := d.Validate(); details != nil {
		writeFailure(w, errors.Validation("validation failed", details))
		return
	}

	saved, err := h.repo.Save(r.Context(), &d)
	if err != nil {
		writeFailure(w, err)
		return
	}

	metrics.RecordMasterSaved("diagnosis")
	h.publish(r, "masterdata.saved", saved.ICDID, map[string]any{
		"icd_code": saved.Code,
	})

	writeResult(w, http.StatusOK, saved)
}

// UpdateStatus flips the active flag on a diagnosis
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "icdID"), 10, 64)
	if err != nil {
		writeFailure(w, errors.BadRequest("invalid diagnosis ID"))
		return
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, errors.BadRequest("invalid request body"))
		return
	}

	if err := h.repo.UpdateActiveStatus(r.Context(), id, req.Active); err != nil {
		writeFailure(w, err)
		return
	}

	if !req.Active {
		metrics.RecordMasterDeactivated("diagnosis")
		h.publish(r, "masterdata.deactivated", id, nil)
	} else {
		h.publish(r, "masterdata.reactivated", id, nil)
	}

	writeResult(w, http.StatusOK, nil)
}

// NextCode suggests the next diagnosis code
func (h *Handler) NextCode(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		prefix = "ICD"
	}
	width, _ := strconv.Atoi(r.URL.Query().Get("width"))
	if width <= 0 {
		width = 4
	}

	code, err := h.repo.NextCode(r.Context(), prefix, width)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeResult(w, http.StatusOK, code)
}

func (h *Handler) publish(r *http.Request, eventType string, id int64, data map[string]any) {
	if h.bus == nil {
		return
	}

	event := events.NewEvent(eventType, "diagnosis", data).
		WithEntity("diagnosis", fmt.Sprint(id))
	if user := auth.GetUser(r.Context()); user != nil {
		event = event.WithActor(user.ID, user.Name)
	}

	// Event publication is best effort; the save already committed.
	_ = h.bus.Publish(r.Context(), event)
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
