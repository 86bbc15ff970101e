package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/slotline/slotline-api/internal/http/middleware"
	"github.com/slotline/slotline-api/internal/http/response"
	"github.com/slotline/slotline-api/internal/platform/cache"
	"github.com/slotline/slotline-api/internal/platform/calendar"
	"github.com/slotline/slotline-api/pkg/logger"
)

const oauthStateTTL = 10 * time.Minute

// ConnectionLister reports which providers a host has linked.
type ConnectionLister interface {
	Connected(ctx context.Context, hostID int64) ([]string, error)
}

// CalendarHandler drives the Google OAuth connect flow. The state parameter
// is a one-shot nonce bound to the host in Redis, so the callback cannot be
// replayed or pointed at someone else's account.
type CalendarHandler struct {
	Google      *calendar.GoogleProvider
	Connections ConnectionLister
	States      *cache.Store
}

func NewCalendarHandler(google *calendar.GoogleProvider, connections ConnectionLister, states *cache.Store) *CalendarHandler {
	return &CalendarHandler{Google: google, Connections: connections, States: states}
}

// HostRoutes mounts under /me/calendar behind RequireHost.
func (h *CalendarHandler) HostRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.listConnections)
	r.Post("/google/connect", h.googleConnect)
	return r
}

// CallbackRoutes mounts under /calendar, public.
func (h *CalendarHandler) CallbackRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/google/callback", h.googleCallback)
	return r
}

func (h *CalendarHandler) listConnections(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)
	providers, err := h.Connections.Connected(r.Context(), claims.Sub)
	if err != nil {
		response.FromError(w, err)
		return
	}
	if providers == nil {
		providers = []string{}
	}
	response.WriteJSON(w, http.StatusOK, map[string]interface{}{"connected": providers})
}

func (h *CalendarHandler) googleConnect(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)
	state := uuid.NewString()
	if err := h.States.Set(r.Context(), "oauthstate:"+state, strconv.FormatInt(claims.Sub, 10), oauthStateTTL); err != nil {
		logger.ErrorContext(r.Context(), "Failed to store oauth state", "error", err)
		response.InternalError(w, "could not start calendar connection")
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{
		"auth_url": h.Google.AuthCodeURL(state),
	})
}

func (h *CalendarHandler) googleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		response.BadRequest(w, "state and code are required")
		return
	}

	raw, err := h.States.Get(r.Context(), "oauthstate:"+state)
	if err != nil || raw == "" {
		response.Unauthorized(w, "unknown or expired state")
		return
	}
	hostID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		response.Unauthorized(w, "unknown or expired state")
		return
	}

	if err := h.Google.Exchange(r.Context(), hostID, code); err != nil {
		logger.ErrorContext(r.Context(), "Google token exchange failed", "error", err, "host_id", hostID)
		response.WriteError(w, http.StatusBadGateway, "calendar connection failed", response.CodeUpstream)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "google calendar connected"})
}
