package patient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ebioscore/platform/internal/shared/auth"
	"github.com/ebioscore/platform/internal/shared/config"
	"github.com/ebioscore/platform/internal/shared/errors"
	"github.com/ebioscore/platform/internal/shared/events"
	"github.com/ebioscore/platform/internal/shared/metrics"
	"github.com/go-chi/chi/v5"
)

// Handler provides HTTP handlers for the patient master
type Handler struct {
	repo *Repository
	bus  events.EventBus
	cfg  config.CodesConfig
}

// NewHandler creates a new patient handler
func NewHandler(repo *Repository, bus events.EventBus, cfg config.CodesConfig) *Handler {
	return &Handler{repo: repo, bus: bus, cfg: cfg}
}

// Routes registers the patient routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Save)
	r.Get("/next-code", h.NextUHID)
	r.Get("/uhid/{uhid}", h.GetByUHID)
	r.Get("/{patID}", h.Get)
	r.Put("/{patID}/status", h.UpdateStatus)

	return r
}

// List lists patients
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Search:          r.URL.Query().Get("search"),
		IncludeInactive: r.URL.Query().Get("includeInactive") == "true",
	}

	list, err := h.repo.List(r.Context(), filter)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if list == nil {
		list = []Patient{}
	}

	writeResult(w, http.StatusOK, list)
}

// Get gets a patient by ID
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "patID"), 10, 64)
	if err != nil {
		writeFailure(w, errors.BadRequest("invalid patient ID"))
		return
	}

	p, err := h.repo.Get(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeResult(w, http.StatusOK, p)
}

// GetByUHID gets a patient by hospital identifier
func (h *Handler) GetByUHID(w http.ResponseWriter, r *http.Request) {
	p, err := h.repo.GetByUHID(r.Context(), chi.URLParam(r, "uhid"))
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeResult(w, http.StatusOK, p)
}

// Save registers a new patient or updates an existing one
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var p Patient
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeFailure(w, errors.BadRequest("invalid request body"))
		return
	}

	if details := p.Validate(); details != nil {
		writeFailure(w, errors.Validation("validation failed", details))
		return
	}

	isNew := p.IsNew()
	saved, err := h.repo.Save(r.Context(), &p, h.cfg.PatientPrefix, h.cfg.PatientWidth)
	if err != nil {
		writeFailure(w, err)
		return
	}

	if isNew {
		metrics.RecordPatientRegistered()
		h.publish(r, "patient.registered", saved.PatID, map[string]any{
			"uhid": saved.UHID,
		})
	} else {
		h.publish(r, "patient.updated", saved.PatID, nil)
	}

	writeResult(w, http.StatusOK, saved)
}

// UpdateStatus flips the active flag on a patient record
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "patID"), 10, 64)
	if err != nil {
		writeFailure(w, errors.BadRequest("invalid patient ID"))
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
		metrics.RecordMasterDeactivated("patient")
		h.publish(r, "patient.deactivated", id, nil)
	} else {
		h.publish(r, "patient.reactivated", id, nil)
	}

	writeResult(w, http.StatusOK, nil)
}

// NextUHID suggests the next hospital identifier
func (h *Handler) NextUHID(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		prefix = h.cfg.PatientPrefix
	}
	width, _ := strconv.Atoi(r.URL.Query().Get("width"))
	if width <= 0 {
		width = h.cfg.PatientWidth
	}

	uhid, err := h.repo.NextUHID(r.Context(), prefix, width)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeResult(w, http.StatusOK, uhid)
}

func (h *Handler) publish(r *http.Request, eventType string, id int64, data map[string]any) {
	if h.bus == nil {
		return
	}

	event := events.NewEvent(eventType, "patient", data).
		WithEntity("patient", fmt.Sprint(id))
	if user := auth.GetUser(r.Context()); user != nil {
		event = event.WithActor(user.ID, user.Name)
	}

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
