package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/slotline/slotline-api/internal/domain"
	"github.com/slotline/slotline-api/internal/http/handlers"
	"github.com/slotline/slotline-api/internal/platform/auth"
)

type mockHostStore struct {
	nextID int64
	byID   map[int64]*domain.Host
}

func newMockHostStore() *mockHostStore {
	return &mockHostStore{nextID: 1, byID: make(map[int64]*domain.Host)}
}

func (m *mockHostStore) CreateHost(_ context.Context, h *domain.Host) error {
	h.ID = m.nextID
	m.nextID++
	h.CreatedAt = time.Now()
	cp := *h
	m.byID[h.ID] = &cp
	return nil
}

func (m *mockHostStore) GetHostByEmail(_ context.Context, email string) (*domain.Host, error) {
	for _, h := range m.byID {
		if h.Email == email {
			cp := *h
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockHostStore) GetHostByID(_ context.Context, id int64) (*domain.Host, error) {
	h, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *h
	return &cp, nil
}

func newAuthEnv(t *testing.T) (*testEnv, *mockHostStore) {
	t.Helper()
	env := newTestEnv(t)
	hosts := newMockHostStore()
	env.router.Mount("/auth", handlers.NewAuthHandler(hosts, env.tokens).Routes())
	return env, hosts
}

func TestRegisterThenLogin(t *testing.T) {
	env, _ := newAuthEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/register", map[string]string{
		"name": "Alex", "email": "Alex@Example.com", "password": "correct-horse",
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}

	var registered struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &registered); err != nil {
		t.Fatalf("decode register: %v", err)
	}
	if registered.AccessToken == "" {
		t.Fatal("register returned no access token")
	}

	// Email matching is case-insensitive on login.
	rec = env.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "alex@example.com", "password": "correct-horse",
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}

	var logged struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &logged); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	claims, err := env.tokens.Parse(logged.AccessToken)
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if claims.Email != "alex@example.com" {
		t.Fatalf("claims email = %q", claims.Email)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env, _ := newAuthEnv(t)

	body := map[string]string{"name": "Alex", "email": "a@example.com", "password": "correct-horse"}
	if rec := env.do(t, http.MethodPost, "/auth/register", body, ""); rec.Code != http.StatusCreated {
		t.Fatalf("first register status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/auth/register", body, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register status = %d, want 400", rec.Code)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	env, hosts := newAuthEnv(t)

	hash, err := auth.HashPassword("right-password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	hosts.byID[1] = &domain.Host{ID: 1, Email: "a@example.com", PasswordHash: hash}
	hosts.nextID = 2

	rec := env.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "a@example.com", "password": "wrong-password",
	}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "nobody@example.com", "password": "whatever",
	}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown email status = %d, want 401", rec.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	env, _ := newAuthEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/register", map[string]string{
		"name": "Alex", "email": "a@example.com", "password": "short",
	}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("short password status = %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/auth/register", map[string]string{
		"email": "a@example.com", "password": "long-enough-pass",
	}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing name status = %d, want 400", rec.Code)
	}
}
