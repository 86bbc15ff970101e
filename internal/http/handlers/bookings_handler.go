package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/slotline/slotline-api/internal/http/middleware"
	"github.com/slotline/slotline-api/internal/http/response"
	"github.com/slotline/slotline-api/internal/service"
)

// BookingsHandler serves both booking surfaces: the public manage-token
// routes a customer reaches from their confirmation email, and the
// host-authenticated routes behind JWT.
type BookingsHandler struct {
	Bookings *service.BookingService
}

func NewBookingsHandler(bookings *service.BookingService) *BookingsHandler {
	return &BookingsHandler{Bookings: bookings}
}

// ManageRoutes mounts under /bookings: customer access via manage_token.
func (h *BookingsHandler) ManageRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{id}", h.getWithToken)
	r.Patch("/{id}", h.rescheduleWithToken)
	r.Delete("/{id}", h.cancelWithToken)
	return r
}

// HostRoutes mounts under /me/bookings behind RequireHost.
func (h *BookingsHandler) HostRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Patch("/{id}", h.reschedule)
	r.Delete("/{id}", h.cancel)
	r.Post("/bulk-cancel", h.bulkCancel)
	return r
}

func (h *BookingsHandler) getWithToken(w http.ResponseWriter, r *http.Request) {
	id, token, ok := manageParams(w, r)
	if !ok {
		return
	}
	b, err := h.Bookings.GetBookingByToken(r.Context(), id, token)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, b)
}

func (h *BookingsHandler) rescheduleWithToken(w http.ResponseWriter, r *http.Request) {
	id, token, ok := manageParams(w, r)
	if !ok {
		return
	}
	start, end, ok := decodeWindow(w, r)
	if !ok {
		return
	}
	b, err := h.Bookings.Reschedule(r.Context(), id, token, start, end)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, b)
}

func (h *BookingsHandler) cancelWithToken(w http.ResponseWriter, r *http.Request) {
	id, token, ok := manageParams(w, r)
	if !ok {
		return
	}
	if err := h.Bookings.CancelBooking(r.Context(), id, token, "customer_cancel"); err != nil {
		response.FromError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BookingsHandler) list(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)
	limit, offset, ok := pageParams(w, r)
	if !ok {
		return
	}
	bs, err := h.Bookings.ListBookings(r.Context(), claims.Sub, limit, offset)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, bs)
}

func (h *BookingsHandler) create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)
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
	if in.CustomerName == "" || in.CustomerEmail == "" {
		response.BadRequest(w, "customer_name and customer_email are required")
		return
	}

	b, err := h.Bookings.CreateBooking(r.Context(), service.CreateBookingInput{
		HostID:        claims.Sub,
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
	})
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, b)
}

func (h *BookingsHandler) reschedule(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if !h.ownedBy(w, r, id, claims.Sub) {
		return
	}
	start, end, ok := decodeWindow(w, r)
	if !ok {
		return
	}
	b, err := h.Bookings.Reschedule(r.Context(), id, "", start, end)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, b)
}

func (h *BookingsHandler) cancel(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if !h.ownedBy(w, r, id, claims.Sub) {
		return
	}
	if err := h.Bookings.CancelBooking(r.Context(), id, "", "host_cancel"); err != nil {
		response.FromError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BookingsHandler) bulkCancel(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)
	var in struct {
		BookingIDs []int64 `json:"booking_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || len(in.BookingIDs) == 0 {
		response.BadRequest(w, "booking_ids is required")
		return
	}
	if len(in.BookingIDs) > 100 {
		response.BadRequest(w, "at most 100 bookings per batch")
		return
	}

	results := h.Bookings.BulkCancel(r.Context(), claims.Sub, in.BookingIDs)
	response.WriteJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// ownedBy rejects host operations against another host's booking. Not-found
// and not-yours look the same to the caller.
func (h *BookingsHandler) ownedBy(w http.ResponseWriter, r *http.Request, bookingID, hostID int64) bool {
	b, err := h.Bookings.GetBooking(r.Context(), bookingID)
	if err != nil {
		response.FromError(w, err)
		return false
	}
	if b == nil || b.HostID != hostID {
		response.NotFound(w, "booking not found")
		return false
	}
	return true
}

func manageParams(w http.ResponseWriter, r *http.Request) (int64, string, bool) {
	id, ok := idParam(w, r)
	if !ok {
		return 0, "", false
	}
	token := r.URL.Query().Get("manage_token")
	if token == "" {
		response.Unauthorized(w, "manage_token is required")
		return 0, "", false
	}
	return id, token, true
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid id")
		return 0, false
	}
	return id, true
}

func pageParams(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	limit, offset = 20, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			response.BadRequest(w, "invalid limit")
			return 0, 0, false
		}
		if n > 100 {
			n = 100
		}
		limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			response.BadRequest(w, "invalid offset")
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}

func decodeWindow(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	var in struct {
		StartTime time.Time `json:"start_time"`
		EndTime   time.Time `json:"end_time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.StartTime.IsZero() || in.EndTime.IsZero() {
		response.BadRequest(w, "start_time and end_time are required")
		return time.Time{}, time.Time{}, false
	}
	return in.StartTime, in.EndTime, true
}
