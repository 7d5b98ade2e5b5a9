package http

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"arremate-backend/internal/handlers"
	"arremate-backend/internal/middleware"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Auth    *handlers.AuthHandler
	Session *handlers.SessionHandler
	Queue   *handlers.QueueHandler
	Ledger  *handlers.LedgerHandler
	Worker  *handlers.WorkerHandler
	Alert   *handlers.AlertHandler
	Health  *handlers.HealthHandler
}

func NewRouter(h Handlers, authMiddleware *middleware.AuthMiddleware, log *zap.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.MetricsMiddleware)

	// Public API routes - Authentication
	r.HandleFunc("/auth/login", h.Auth.Login).Methods("POST")

	// Protected API routes - Finishing (arremate)
	arremateAPI := r.PathPrefix("/api/arremates").Subrouter()
	arremateAPI.Use(authMiddleware.Authenticate)
	arremateAPI.HandleFunc("/fila", h.Queue.Queue).Methods("GET")
	arremateAPI.HandleFunc("/fila/{produto_id}/ops", h.Queue.PendingOrders).Methods("GET")
	arremateAPI.HandleFunc("/saldo/{numero_op}", h.Queue.OrderBalance).Methods("GET")
	arremateAPI.HandleFunc("/sessoes", h.Session.Start).Methods("POST")
	arremateAPI.HandleFunc("/sessoes/{id}/finalizar", h.Session.Finish).Methods("POST")
	arremateAPI.HandleFunc("/sessoes/{id}", h.Session.Cancel).Methods("DELETE")
	arremateAPI.HandleFunc("/sessoes/{id}/estornar", h.Session.Reverse).Methods("POST")
	arremateAPI.HandleFunc("/lancamentos", h.Ledger.List).Methods("GET")
	arremateAPI.HandleFunc("/lancamentos/{id}/estornar", h.Ledger.Reverse).Methods("POST")
	arremateAPI.HandleFunc("/perdas", h.Ledger.RegisterLoss).Methods("POST")

	// Protected API routes - Workers (tiktiks)
	workersAPI := r.PathPrefix("/api/tiktiks").Subrouter()
	workersAPI.Use(authMiddleware.Authenticate)
	workersAPI.HandleFunc("/status", h.Worker.Status).Methods("GET")
	workersAPI.HandleFunc("/{id}/status", h.Worker.SetStatus).Methods("PUT")
	workersAPI.HandleFunc("/{id}/relatorio", h.Worker.Report).Methods("GET")

	// Protected API routes - Alerts
	alertsAPI := r.PathPrefix("/api/alertas").Subrouter()
	alertsAPI.Use(authMiddleware.Authenticate)
	alertsAPI.HandleFunc("/verificar", h.Alert.Check).Methods("GET")
	alertsAPI.HandleFunc("/recentes", h.Alert.Recent).Methods("GET")

	// Current user
	meAPI := r.PathPrefix("/api/me").Subrouter()
	meAPI.Use(authMiddleware.Authenticate)
	meAPI.HandleFunc("", h.Auth.Me).Methods("GET")

	// WebSocket alert feed (token via ?token= on upgrade)
	wsAPI := r.PathPrefix("/ws").Subrouter()
	wsAPI.Use(authMiddleware.Authenticate)
	wsAPI.HandleFunc("/alertas", h.Alert.Subscribe).Methods("GET")

	// Health endpoints (no auth required - for Kubernetes probes)
	r.HandleFunc("/health", h.Health.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", h.Health.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", h.Health.DetailedHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
