package medication

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

// Handler provides HTTP handlers for the medication masters
type Handler struct {
	repo *Repository
	bus  events.EventBus
}

// NewHandler creates a new medication handler
func NewHandler(repo *Repository, bus events.EventBus) *Handler {
	return &Handler{repo: repo, bus: bus}
}

// Routes registers the medication routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/routes", func(r chi.Router) {
		r.Get("/", h.ListRoutes)
		r.Post("/", h.SaveRoute)
		r.Get("/next-code", h.NextRouteCode)
		r.Get("/{routeID}", h.GetRoute)
		r.Put("/{routeID}/status", h.UpdateRouteStatus)
	})

	r.Route("/frequencies", func(r chi.Router) {
		r.Get("/", h.ListFrequencies)
		r.Post("/", h.SaveFrequency)
		r.Get("/{freqID}", h.GetFrequency)
		r.Put("/{freqID}/status", h.UpdateFrequencyStatus)
	})

	return r
}

func listFilter(r *http.Request) ListFilter {
	return ListFilter{
		Search:          r.URL.Query().Get("search"),
		IncludeInactive: r.URL.Query().Get("includeInactive") == "true",
	}
}

// --- Route Operations ---

// ListRoutes lists medication routes
func (h *Handler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.ListRoutes(r.Context(), listFilter(r))
	if err != nil {
		writeFailure(w, err)
		return
	}
	if list == nil {
		list = []Route{}
	}

	writeResult(w, http.StatusOK, list)
}

// GetRoute gets a medication route by ID
func (h *Handler) GetRoute(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "routeID"), 10, 64)
	if err != nil {
		writeFailure(w, errors.BadRequest("invalid route ID"))
		return
	}

	rt, err := h.repo.GetRoute(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeResult(w, http.StatusOK, rt)
}

// SaveRoute creates or updates a medication route
func (h *Handler) SaveRoute(w http.ResponseWriter, r *http.Request) {
	var rt Route
	if err := json.NewDecoder(r.Body).Decode(&rt); err != nil {
		writeFailure(w, errors.BadRequest("invalid request body"))
		return
	}

	if details := rt.Validate(); details != nil {
		writeFailure(w, errors.Validation("validation failed", details))
		return
	}

	saved, displaced, err := h.repo.SaveRoute(r.Context(), &rt)
	if err != nil {
		writeFailure(w, err)
		return
	}

	metrics.RecordMasterSaved("med_route")
	data := map[string]any{"route_code": saved.Code}
	if displaced != nil {
		data["displaced_route_code"] = displaced.Code
	}
	h.publish(r, "masterdata.saved", "route", saved.RouteID, data)

	writeResult(w, http.StatusOK, saved)
}

// UpdateRouteStatus flips the active flag on a route
func (h *Handler) UpdateRouteStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "routeID"), 10, 64)
	if err != nil {
		writeFailure(w, errors.BadRequest("invalid route ID"))
		return
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, errors.BadRequest("invalid request body"))
		return
	}

	if err := h.repo.UpdateRouteStatus(r.Context(), id, req.Active); err != nil {
		writeFailure(w, err)
		return
	}

	if !req.Active {
		metrics.RecordMasterDeactivated("med_route")
		h.publish(r, "masterdata.deactivated", "route", id, nil)
	} else {
		h.publish(r, "masterdata.reactivated", "route", id, nil)
	}

	writeResult(w, http.StatusOK, nil)
}

// NextRouteCode suggests the next route code
func (h *Handler) NextRouteCode(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		prefix = "RT"
	}
	width, _ := strconv.Atoi(r.URL.Query().Get("width"))
	if width <= 0 {
		width = 3
	}

	code, err := h.repo.NextRouteCode(r.Context(), prefix, width)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeResult(w, http.StatusOK, code)
}

// --- Frequency Operations ---

// ListFrequencies lists medication frequencies
func (h *Handler) ListFrequencies(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.ListFrequencies(r.Context(), listFilter(r))
	if err != nil {
		writeFailure(w, err)
		return
	}
	if list == nil {
		list = []Frequency{}
	}

	writeResult(w, http.StatusOK, list)
}

// GetFrequency gets a medication frequency by ID
func (h *Handler) GetFrequency(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "freqID"), 10, 64)
	if err != nil {
		writeFailure(w, errors.BadRequest("invalid frequency ID"))
		return
	}

	f, err := h.repo.GetFrequency(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeResult(w, http.StatusOK, f)
}

// SaveFrequency creates or updates a medication frequency
func (h *Handler) SaveFrequency(w http.ResponseWriter, r *http.Request) {
	var f Frequency
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeFailure(w, errors.BadRequest("invalid request body"))
		return
	}

	if details := f.Validate(); details != nil {
		writeFailure(w, errors.Validation("validation failed", details))
		return
	}

	saved, err := h.repo.SaveFrequency(r.Context(), &f)
	if err != nil {
		writeFailure(w, err)
		return
	}

	metrics.RecordMasterSaved("med_frequency")
	h.publish(r, "masterdata.saved", "frequency", saved.FreqID, map[string]any{
		"freq_code": saved.Code,
	})

	writeResult(w, http.StatusOK, saved)
}

// UpdateFrequencyStatus flips the active flag on a frequency
func (h *Handler) UpdateFrequencyStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "freqID"), 10, 64)
	if err != nil {
		writeFailure(w, errors.BadRequest("invalid frequency ID"))
		return
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, errors.BadRequest("invalid request body"))
		return
	}

	if err := h.repo.UpdateFrequencyStatus(r.Context(), id, req.Active); err != nil {
		writeFailure(w, err)
		return
	}

	if !req.Active {
		metrics.RecordMasterDeactivated("med_frequency")
		h.publish(r, "masterdata.deactivated", "frequency", id, nil)
	} else {
		h.publish(r, "masterdata.reactivated", "frequency", id, nil)
	}

	writeResult(w, http.StatusOK, nil)
}

func (h *Handler) publish(r *http.Request, eventType, entity string, id int64, data map[string]any) {
	if h.bus == nil {
		return
	}

	event := events.NewEvent(eventType, "medication", data).
		WithEntity(entity, fmt.Sprint(id))
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
