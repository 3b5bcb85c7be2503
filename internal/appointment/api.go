package appointment

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ebioscore/platform/internal/shared/auth"
	"github.com/ebioscore/platform/internal/shared/errors"
	"github.com/ebioscore/platform/internal/shared/events"
	"github.com/ebioscore/platform/internal/shared/metrics"
	"github.com/go-chi/chi/v5"
)

// Handler provides HTTP handlers for appointments
type Handler struct {
	repo *Repository
	bus  events.EventBus
}

// NewHandler creates a new appointment handler
func NewHandler(repo *Repository, bus events.EventBus) *Handler {
	return &Handler{repo: repo, bus: bus}
}

// Routes registers the appointment routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Save)
	r.Get("/{apptID}", h.Get)
	r.Put("/{apptID}/status", h.UpdateStatus)

	return r
}

// List lists appointments
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Provider:        r.URL.Query().Get("provider"),
		IncludeInactive: r.URL.Query().Get("includeInactive") == "true",
	}
	if pat := r.URL.Query().Get("patientId"); pat != "" {
		id, err := strconv.ParseInt(pat, 10, 64)
		if err != nil {
			writeFailure(w, errors.BadRequest("invalid patient ID"))
			return
		}
		filter.PatientID = id
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

	list, err := h.repo.List(r.Context(), filter)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if list == nil {
		list = []Appointment{}
	}

	writeResult(w, http.StatusOK, list)
}

// Get gets an appointment by ID
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "apptID"), 10, 64)
	if err != nil {
		writeFailure(w, errors.BadRequest("invalid appointment ID"))
		return
	}

	a, err := h.repo.Get(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeResult(w, http.StatusOK, a)
}

// Save books or reschedules an appointment
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var a Appointment
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeFailure(w, errors.BadRequest("invalid request body"))
		return
	}

	if details := a.Validate(); details != nil {
		writeFailure(w, errors.Validation("validation failed", details))
		return
	}

	isNew := a.IsNew()
	saved, err := h.repo.Save(r.Context(), &a)
	if err != nil {
		if errors.StatusFor(err) == http.StatusConflict {
			metrics.RecordAppointmentConflict()
		}
		writeFailure(w, err)
		return
	}

	if isNew {
		metrics.RecordAppointmentBooked(saved.ProviderName)
		h.publish(r, "appointment.booked", saved.ApptID, map[string]any{
			"provider":   saved.ProviderName,
			"start_time": saved.StartTime,
		})
	} else {
		h.publish(r, "appointment.rescheduled", saved.ApptID, nil)
	}

	writeResult(w, http.StatusOK, saved)
}

// UpdateStatus moves an appointment through its lifecycle
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "apptID"), 10, 64)
	if err != nil {
		writeFailure(w, errors.BadRequest("invalid appointment ID"))
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, errors.BadRequest("invalid request body"))
		return
	}

	a, err := h.repo.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		writeFailure(w, err)
		return
	}

	h.publish(r, "appointment."+req.Status, a.ApptID, nil)

	writeResult(w, http.StatusOK, a)
}

func (h *Handler) publish(r *http.Request, eventType string, id int64, data map[string]any) {
	if h.bus == nil {
		return
	}

	event := events.NewEvent(eventType, "appointment", data).
		WithEntity("appointment", fmt.Sprint(id))
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
