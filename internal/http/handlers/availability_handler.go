package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/slotline/slotline-api/internal/http/response"
	"github.com/slotline/slotline-api/internal/scheduling"
)

type AvailabilityHandler struct {
	Slots *scheduling.Service
}

func NewAvailabilityHandler(slots *scheduling.Service) *AvailabilityHandler {
	return &AvailabilityHandler{Slots: slots}
}

func (h *AvailabilityHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.availableSlots)
	return r
}

// GET /hosts/{hostID}/availability?date=2026-03-02&duration=30
func (h *AvailabilityHandler) availableSlots(w http.ResponseWriter, r *http.Request) {
	hostID, err := strconv.ParseInt(chi.URLParam(r, "hostID"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid host id")
		return
	}

	rawDate := r.URL.Query().Get("date")
	if rawDate == "" {
		response.BadRequest(w, "date is required")
		return
	}
	date, err := time.ParseInLocation("2006-01-02", rawDate, time.UTC)
	if err != nil {
		response.BadRequest(w, "date must be YYYY-MM-DD")
		return
	}

	duration := 0
	if v := r.URL.Query().Get("duration"); v != "" {
		duration, err = strconv.Atoi(v)
		if err != nil || duration <= 0 {
			response.BadRequest(w, "invalid duration")
			return
		}
	}

	slots, err := h.Slots.AvailableSlots(r.Context(), hostID, date, duration)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"host_id": hostID,
		"date":    rawDate,
		"slots":   slots,
	})
}
