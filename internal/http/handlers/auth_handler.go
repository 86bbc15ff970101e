package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/slotline/slotline-api/internal/domain"
	"github.com/slotline/slotline-api/internal/http/response"
	"github.com/slotline/slotline-api/internal/platform/auth"
	"github.com/slotline/slotline-api/pkg/logger"
)

// HostStore is the account lookup surface the auth endpoints need.
type HostStore interface {
	CreateHost(ctx context.Context, h *domain.Host) error
	GetHostByEmail(ctx context.Context, email string) (*domain.Host, error)
	GetHostByID(ctx context.Context, id int64) (*domain.Host, error)
}

type AuthHandler struct {
	Hosts  HostStore
	Tokens *auth.Tokens
}

func NewAuthHandler(hosts HostStore, tokens *auth.Tokens) *AuthHandler {
	return &AuthHandler{Hosts: hosts, Tokens: tokens}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	return r
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil ||
		in.Name == "" || in.Email == "" || in.Password == "" {
		response.BadRequest(w, "name, email and password are required")
		return
	}
	if len(in.Password) < 8 {
		response.BadRequest(w, "password must be at least 8 characters")
		return
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	existing, err := h.Hosts.GetHostByEmail(r.Context(), email)
	if err != nil {
		logger.ErrorContext(r.Context(), "Host lookup failed", "error", err)
		response.InternalError(w, "registration failed")
		return
	}
	if existing != nil {
		response.BadRequest(w, "email already registered")
		return
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		response.InternalError(w, "registration failed")
		return
	}

	host := &domain.Host{Name: in.Name, Email: email, PasswordHash: hash}
	if err := h.Hosts.CreateHost(r.Context(), host); err != nil {
		logger.ErrorContext(r.Context(), "Host create failed", "error", err)
		response.InternalError(w, "registration failed")
		return
	}

	access, err := h.Tokens.NewAccessToken(host.ID, host.Email)
	if err != nil {
		response.InternalError(w, "token issue failed")
		return
	}

	response.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"access_token": access,
		"host": map[string]interface{}{
			"id": host.ID, "name": host.Name, "email": host.Email,
		},
	})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" || in.Password == "" {
		response.BadRequest(w, "email and password are required")
		return
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	host, err := h.Hosts.GetHostByEmail(r.Context(), email)
	if err != nil {
		logger.ErrorContext(r.Context(), "Host lookup failed", "error", err)
		response.InternalError(w, "login failed")
		return
	}
	if host == nil {
		response.Unauthorized(w, "invalid credentials")
		return
	}

	ok, _ := auth.VerifyPassword(in.Password, host.PasswordHash)
	if !ok {
		response.Unauthorized(w, "invalid credentials")
		return
	}

	access, err := h.Tokens.NewAccessToken(host.ID, host.Email)
	if err != nil {
		response.InternalError(w, "token issue failed")
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": access,
		"host": map[string]interface{}{
			"id": host.ID, "name": host.Name, "email": host.Email,
		},
	})
}
