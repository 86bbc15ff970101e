package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/slotline/slotline-api/internal/http/response"
	"github.com/slotline/slotline-api/internal/service"
)

// RequestsHandler exposes the public hold-then-confirm flow: a customer
// reserves a slot, receives an email link, and confirming the link turns the
// hold into a booking.
type RequestsHandler struct {
	Bookings *service.BookingService
}

func NewRequestsHandler(bookings *service.BookingService) *RequestsHandler {
	return &RequestsHandler{Bookings: bookings}
}

// CreateRoutes mounts under /hosts/{hostID}/requests.
func (h *RequestsHandler) CreateRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create)
	return r
}

// ConfirmRoutes mounts under /requests.
func (h *RequestsHandler) ConfirmRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/confirm", h.confirm) // POST ?token=...
	return r
}

func (h *RequestsHandler) create(w http.ResponseWriter, r *http.Request) {
	hostID, err := strconv.ParseInt(chi.URLParam(r, "hostID"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid host id")
		return
	}

	var in struct {
		CustomerName  string    `json:"customer_name"`
		CustomerEmail string    `json:"customer_email"`
		StartTime     time.Time `json:"start_time"`
		EndTime       time.Time `json:"end_time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	if in.CustomerName == "" || in.CustomerEmail == "" || in.StartTime.IsZero() || in.EndTime.IsZero() {
		response.BadRequest(w, "customer_name, customer_email, start_time and end_time are required")
		return
	}

	req, err := h.Bookings.CreateRequest(r.Context(), service.CreateRequestInput{
		HostID:        hostID,
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
	})
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"request_id": req.ID,
		"status":     req.Status,
		"expires_at": req.ExpiresAt,
	})
}

func (h *RequestsHandler) confirm(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		response.BadRequest(w, "token is required")
		return
	}

	booking, err := h.Bookings.ConfirmRequest(r.Context(), token)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"booking_id":   booking.ID,
		"manage_token": booking.ManageToken,
		"status":       booking.Status,
		"start_time":   booking.StartTime,
		"end_time":     booking.EndTime,
	})
}
