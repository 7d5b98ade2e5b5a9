package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"arremate-backend/internal/auth"
	"arremate-backend/internal/handlers"
	"arremate-backend/internal/health"
	"arremate-backend/internal/middleware"
	"arremate-backend/internal/models"
	"arremate-backend/internal/repositories"
)

type okPinger struct{}

func (okPinger) Ping(ctx context.Context) error { return nil }

type userTable map[int]*models.User

func (u userTable) Get(ctx context.Context, id int) (*models.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, repositories.ErrNotFound
}

type emptyQueue struct{}

func (emptyQueue) AvailableBalance(ctx context.Context, orderNumber int) (*models.PendingOrder, error) {
	return &models.PendingOrder{OrderNumber: orderNumber}, nil
}

func (emptyQueue) PendingOrders(ctx context.Context, productID int, variant string) ([]models.PendingOrder, error) {
	return nil, nil
}

func (emptyQueue) Queue(ctx context.Context, f models.QueueFilter) (*models.QueuePage, error) {
	return &models.QueuePage{Items: []models.QueueItem{}}, nil
}

func newTestRouter(t *testing.T) (*mux.Router, string) {
	t.Helper()
	jwtManager := auth.NewJWTManager("test-secret", "arremate-test", 1)
	user := &models.User{ID: 1, Name: "Carla", Email: "carla@fabrica", Role: models.RoleSupervisor, IsActive: true}
	token, err := jwtManager.GenerateToken(user)
	require.NoError(t, err)

	router := NewRouter(Handlers{
		Auth:    handlers.NewAuthHandler(nil),
		Session: handlers.NewSessionHandler(nil),
		Queue:   handlers.NewQueueHandler(emptyQueue{}),
		Ledger:  handlers.NewLedgerHandler(nil, nil),
		Worker:  handlers.NewWorkerHandler(nil, nil, nil),
		Alert:   handlers.NewAlertHandler(nil, nil),
		Health:  handlers.NewHealthHandler(health.NewHealthChecker(okPinger{})),
	}, middleware.NewAuthMiddleware(jwtManager, userTable{1: user}), zap.NewNop())
	return router, token
}

func TestRouterRegistersFinishingRoutes(t *testing.T) {
	router, _ := newTestRouter(t)

	registered := map[string]bool{}
	require.NoError(t, router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		tpl, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, _ := route.GetMethods()
		for _, m := range methods {
			registered[m+" "+tpl] = true
		}
		return nil
	}))

	for _, want := range []string{
		"POST /auth/login",
		"GET /api/arremates/fila",
		"GET /api/arremates/fila/{produto_id}/ops",
		"GET /api/arremates/saldo/{numero_op}",
		"POST /api/arremates/sessoes",
		"POST /api/arremates/sessoes/{id}/finalizar",
		"DELETE /api/arremates/sessoes/{id}",
		"POST /api/arremates/sessoes/{id}/estornar",
		"GET /api/arremates/lancamentos",
		"POST /api/arremates/lancamentos/{id}/estornar",
		"POST /api/arremates/perdas",
		"GET /api/tiktiks/status",
		"PUT /api/tiktiks/{id}/status",
		"GET /api/tiktiks/{id}/relatorio",
		"GET /api/alertas/verificar",
		"GET /ws/alertas",
		"GET /health",
		"GET /health/ready",
		"GET /health/detailed",
	} {
		assert.True(t, registered[want], want)
	}
}

func TestRouterAuthentication(t *testing.T) {
	router, token := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/arremates/fila", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"UNAUTHORIZED"`)

	req := httptest.NewRequest(http.MethodGet, "/api/arremates/fila", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterPublicEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/health", "/health/ready", "/metrics"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
