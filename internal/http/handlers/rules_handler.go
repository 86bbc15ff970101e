package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/slotline/slotline-api/internal/domain"
	"github.com/slotline/slotline-api/internal/http/middleware"
	"github.com/slotline/slotline-api/internal/http/response"
)

// RuleAdminStore is the rule CRUD surface behind the host routes; the read
// path consumes rules through the scheduling interfaces instead.
type RuleAdminStore interface {
	ListAllRules(ctx context.Context, hostID int64) ([]domain.AvailabilityRule, error)
	CreateRule(ctx context.Context, rule *domain.AvailabilityRule) error
	UpdateRule(ctx context.Context, rule *domain.AvailabilityRule) (bool, error)
	DeleteRule(ctx context.Context, hostID, ruleID int64) (bool, error)
}

type SettingsAdminStore interface {
	GetHostSettings(ctx context.Context, hostID int64) (domain.HostSettings, error)
	UpsertHostSettings(ctx context.Context, s domain.HostSettings) error
}

type RulesHandler struct {
	Rules    RuleAdminStore
	Settings SettingsAdminStore
}

func NewRulesHandler(rules RuleAdminStore, settings SettingsAdminStore) *RulesHandler {
	return &RulesHandler{Rules: rules, Settings: settings}
}

// Routes mounts under /me behind RequireHost.
func (h *RulesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/rules", h.listRules)
	r.Post("/rules", h.createRule)
	r.Put("/rules/{id}", h.updateRule)
	r.Delete("/rules/{id}", h.deleteRule)
	r.Get("/settings", h.getSettings)
	r.Put("/settings", h.putSettings)
	return r
}

type ruleInput struct {
	DayOfWeek     int    `json:"day_of_week"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	BufferMinutes int    `json:"buffer_minutes"`
}

func (in *ruleInput) validate() string {
	if in.DayOfWeek < 0 || in.DayOfWeek > 6 {
		return "day_of_week must be 0 (Sunday) through 6 (Saturday)"
	}
	start, err := time.Parse("15:04", in.StartTime)
	if err != nil {
		return "start_time must be HH:MM"
	}
	end, err := time.Parse("15:04", in.EndTime)
	if err != nil {
		return "end_time must be HH:MM"
	}
	if !end.After(start) {
		return "end_time must be after start_time"
	}
	if in.BufferMinutes < 0 {
		return "buffer_minutes must not be negative"
	}
	return ""
}

func (h *RulesHandler) listRules(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)
	rules, err := h.Rules.ListAllRules(r.Context(), claims.Sub)
	if err != nil {
		response.FromError(w, err)
		return
	}
	if rules == nil {
		rules = []domain.AvailabilityRule{}
	}
	response.WriteJSON(w, http.StatusOK, rules)
}

func (h *RulesHandler) createRule(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)
	var in ruleInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	if msg := in.validate(); msg != "" {
		response.BadRequest(w, msg)
		return
	}

	rule := &domain.AvailabilityRule{
		HostID:        claims.Sub,
		DayOfWeek:     in.DayOfWeek,
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
		BufferMinutes: in.BufferMinutes,
	}
	if err := h.Rules.CreateRule(r.Context(), rule); err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, rule)
}

func (h *RulesHandler) updateRule(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in ruleInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	if msg := in.validate(); msg != "" {
		response.BadRequest(w, msg)
		return
	}

	rule := &domain.AvailabilityRule{
		ID:            id,
		HostID:        claims.Sub,
		DayOfWeek:     in.DayOfWeek,
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
		BufferMinutes: in.BufferMinutes,
	}
	updated, err := h.Rules.UpdateRule(r.Context(), rule)
	if err != nil {
		response.FromError(w, err)
		return
	}
	if !updated {
		response.NotFound(w, "rule not found")
		return
	}
	response.WriteJSON(w, http.StatusOK, rule)
}

func (h *RulesHandler) deleteRule(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	deleted, err := h.Rules.DeleteRule(r.Context(), claims.Sub, id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	if !deleted {
		response.NotFound(w, "rule not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RulesHandler) getSettings(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)
	settings, err := h.Settings.GetHostSettings(r.Context(), claims.Sub)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, settings)
}

func (h *RulesHandler) putSettings(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)
	var in struct {
		BookingHorizonDays            int `json:"booking_horizon_days"`
		DefaultMeetingDurationMinutes int `json:"default_meeting_duration_minutes"`
		BufferMinutes                 int `json:"buffer_minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	if in.BookingHorizonDays < 0 || in.BufferMinutes < 0 {
		response.BadRequest(w, "values must not be negative")
		return
	}
	if in.DefaultMeetingDurationMinutes != 0 &&
		(in.DefaultMeetingDurationMinutes < domain.MinDurationMinutes ||
			in.DefaultMeetingDurationMinutes > domain.MaxDurationMinutes) {
		response.BadRequest(w, "default_meeting_duration_minutes outside allowed range")
		return
	}

	settings := domain.HostSettings{
		HostID:                        claims.Sub,
		BookingHorizonDays:            in.BookingHorizonDays,
		DefaultMeetingDurationMinutes: in.DefaultMeetingDurationMinutes,
		BufferMinutes:                 in.BufferMinutes,
	}
	if err := h.Settings.UpsertHostSettings(r.Context(), settings); err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, settings)
}
