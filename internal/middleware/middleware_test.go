package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"arremate-backend/internal/auth"
	"arremate-backend/internal/models"
	"arremate-backend/internal/repositories"
)

type stubUsers map[int]*models.User

func (s stubUsers) Get(ctx context.Context, id int) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, repositories.ErrNotFound
}

func newTestAuth() (*AuthMiddleware, *auth.JWTManager) {
	jwt := auth.NewJWTManager("segredo", "arremate-backend", 1)
	users := stubUsers{
		1: {ID: 1, Name: "Carla", Role: models.RoleSupervisor, IsActive: true},
		2: {ID: 2, Name: "Davi", Role: models.RoleSupervisor, IsActive: false},
		3: {ID: 3, Name: "Eva", Role: models.RoleAdmin, IsActive: true},
	}
	return NewAuthMiddleware(jwt, users), jwt
}

func bearer(t *testing.T, jwt *auth.JWTManager, id int) string {
	t.Helper()
	token, err := jwt.GenerateToken(&models.User{ID: id})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestAuthenticate(t *testing.T) {
	m, jwt := newTestAuth()
	var seen models.Actor
	h := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Token abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc", http.StatusUnauthorized},
		{"unknown user", bearer(t, jwt, 42), http.StatusUnauthorized},
		{"suspended user", bearer(t, jwt, 2), http.StatusForbidden},
		{"active user", bearer(t, jwt, 1), http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/arremates/fila", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
	assert.Equal(t, models.Actor{UserID: 1, Name: "Carla"}, seen)
}

func TestAuthenticateWebSocketQueryToken(t *testing.T) {
	m, jwt := newTestAuth()
	h := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	token := bearer(t, jwt, 1)[len("Bearer "):]

	req := httptest.NewRequest(http.MethodGet, "/ws/alertas?token="+token, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "query token only accepted on upgrades")

	req.Header.Set("Upgrade", "websocket")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireRole(t *testing.T) {
	m, jwt := newTestAuth()
	h := m.RequireRole(models.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for id, status := range map[int]int{1: http.StatusForbidden, 3: http.StatusNoContent} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", bearer(t, jwt, id))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, status, rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.5:5123"
	assert.Equal(t, "10.0.0.5", clientIP(req))

	req.Header.Set("X-Forwarded-For", "200.1.2.3, 10.0.0.1")
	assert.Equal(t, "200.1.2.3", clientIP(req))
}

func TestPanicRecovery(t *testing.T) {
	h := PanicRecovery(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":{"code":"INTERNAL","message":"erro interno"}}`, rec.Body.String())
}
