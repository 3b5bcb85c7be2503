package alert

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ebioscore/platform/internal/shared/auth"
	"github.com/ebioscore/platform/internal/shared/errors"
	"github.com/ebioscore/platform/internal/shared/events"
	"github.com/ebioscore/platform/internal/shared/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler provides HTTP handlers for patient alerts
type Handler struct {
	repo     *Repository
	bus      events.EventBus
	delivery *DeliveryService
	log      *zap.Logger
}

// NewHandler creates a new alert handler
func NewHandler(repo *Repository, bus events.EventBus, delivery *DeliveryService, log *zap.Logger) *Handler {
	return &Handler{repo: repo, bus: bus, delivery: delivery, log: log}
}

// Routes registers the alert routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Save)
	r.Get("/stats", h.Stats)
	r.Get("/{alertID}", h.Get)
	r.Put("/{alertID}/status", h.UpdateStatus)

	return r
}

// List lists alerts
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Severity:        r.URL.Query().Get("severity"),
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

	list, err := h.repo.List(r.Context(), filter)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if list == nil {
		list = []PatientAlert{}
	}

	writeResult(w, http.StatusOK, list)
}

// Get gets an alert by ID
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "alertID"))
	if err != nil {
		writeFailure(w, errors.BadRequest("invalid alert ID"))
		return
	}

	a, err := h.repo.Get(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeResult(w, http.StatusOK, a)
}

// Save creates or updates a patient alert. Critical alerts are handed
// to the delivery service after the save commits.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var a PatientAlert
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeFailure(w, errors.BadRequest("invalid request body"))
		return
	}

	if details := a.Validate(); details != nil {
		writeFailure(w, errors.Validation("validation failed", details))
		return
	}

	saved, err := h.repo.Save(r.Context(), &a)
	if err != nil {
		writeFailure(w, err)
		return
	}

	if saved.Severity == SeverityCritical && h.delivery != nil {
		if err := h.delivery.Submit(*saved); err != nil {
			h.log.Warn("critical alert not queued for delivery",
				zap.String("alert_id", saved.AlertID.String()),
				zap.Error(err))
		}
	}

	h.publish(r, "alert.raised", saved)

	writeResult(w, http.StatusOK, saved)
}

// UpdateStatus flips the active flag on an alert
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "alertID"))
	if err != nil {
		writeFailure(w, errors.BadRequest("invalid alert ID"))
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
		h.publish(r, "alert.cleared", &PatientAlert{AlertID: id})
	}

	writeResult(w, http.StatusOK, nil)
}

// Stats returns delivery counters
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.delivery == nil {
		writeFailure(w, errors.BadRequest("alert delivery is not enabled"))
		return
	}

	writeResult(w, http.StatusOK, h.delivery.Stats())
}

func (h *Handler) publish(r *http.Request, eventType string, a *PatientAlert) {
	if h.bus == nil {
		return
	}

	event := events.NewEvent(eventType, "alert", map[string]any{
		"severity": a.Severity,
		"category": a.Category,
	}).WithEntity("alert", a.AlertID.String())
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
