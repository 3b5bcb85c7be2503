package billing

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

// Handler provides HTTP handlers for advance receipts
type Handler struct {
	repo *Repository
	bus  events.EventBus
}

// NewHandler creates a new billing handler
func NewHandler(repo *Repository, bus events.EventBus) *Handler {
	return &Handler{repo: repo, bus: bus}
}

// Routes registers the billing routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/next-code", h.NextCode)
	r.Get("/{receiptID}", h.Get)
	r.Put("/{receiptID}/status", h.UpdateStatus)
	r.Post("/{receiptID}/adjust", h.Adjust)

	return r
}

// List lists receipts
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
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
		list = []Receipt{}
	}

	writeResult(w, http.StatusOK, list)
}

// Get gets a receipt with its payment details
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "receiptID"), 10, 64)
	if err != nil {
		writeFailure(w, errors.BadRequest("invalid receipt ID"))
		return
	}

	rc, err := h.repo.Get(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeResult(w, http.StatusOK, rc)
}

// Create records a new advance receipt
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var rc Receipt
	if err := json.NewDecoder(r.Body).Decode(&rc); err != nil {
		writeFailure(w, errors.BadRequest("invalid request body"))
		return
	}

	if details := rc.Validate(); details != nil {
		writeFailure(w, errors.Validation("validation failed", details))
		return
	}

	saved, err := h.repo.Create(r.Context(), &rc)
	if err != nil {
		writeFailure(w, err)
		return
	}

	metrics.RecordReceiptCreated()
	h.publish(r, "billing.receipt.created", saved.ReceiptID, map[string]any{
		"receipt_code": saved.Code,
		"amount":       saved.Amount,
	})

	writeResult(w, http.StatusCreated, saved)
}

// Adjust applies part of a receipt's balance against a bill
func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "receiptID"), 10, 64)
	if err != nil {
		writeFailure(w, errors.BadRequest("invalid receipt ID"))
		return
	}

	var req AdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, errors.BadRequest("invalid request body"))
		return
	}

	rc, err := h.repo.Adjust(r.Context(), id, req.Amount)
	if err != nil {
		writeFailure(w, err)
		return
	}

	metrics.RecordReceiptAdjusted()
	h.publish(r, "billing.receipt.adjusted", rc.ReceiptID, map[string]any{
		"receipt_code": rc.Code,
		"amount":       req.Amount,
		"balance":      rc.Balance(),
	})

	writeResult(w, http.StatusOK, rc)
}

// UpdateStatus flips the active flag on a receipt
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "receiptID"), 10, 64)
	if err != nil {
		writeFailure(w, errors.BadRequest("invalid receipt ID"))
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
		h.publish(r, "billing.receipt.cancelled", id, nil)
	}

	writeResult(w, http.StatusOK, nil)
}

// NextCode suggests the next receipt code
func (h *Handler) NextCode(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		prefix = "RCP"
	}
	width, _ := strconv.Atoi(r.URL.Query().Get("width"))
	if width <= 0 {
		width = 6
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

	event := events.NewEvent(eventType, "billing", data).
		WithEntity("receipt", fmt.Sprint(id))
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
