package monitoring

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"arremate-backend/internal/metrics"
	"arremate-backend/internal/models"
)

const (
	recentLimit  = 50
	writeTimeout = 5 * time.Second
)

// AlertHub fans emitted alerts out to dashboard websocket clients and keeps
// the latest ones for clients that connect later
type AlertHub struct {
	clients    map[*websocket.Conn]bool
	clientsMux sync.Mutex
	recent     []models.Alert
	recentMux  sync.RWMutex
	broadcast  chan []models.Alert
	upgrader   websocket.Upgrader
	log        *zap.Logger
}

func NewAlertHub(log *zap.Logger) *AlertHub {
	return &AlertHub{
		clients:   make(map[*websocket.Conn]bool),
		recent:    make([]models.Alert, 0, recentLimit),
		broadcast: make(chan []models.Alert, 16),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log.Named("alert_hub"),
	}
}

// Run delivers queued batches until ctx is done, then closes every client
func (h *AlertHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case batch := <-h.broadcast:
			h.send(batch)
		}
	}
}

// Publish queues a batch for delivery without blocking the caller
func (h *AlertHub) Publish(alerts []models.Alert) {
	if len(alerts) == 0 {
		return
	}
	h.remember(alerts)
	select {
	case h.broadcast <- alerts:
	default:
		h.log.Warn("alert broadcast queue full, dropping batch", zap.Int("alerts", len(alerts)))
	}
}

func (h *AlertHub) remember(alerts []models.Alert) {
	h.recentMux.Lock()
	defer h.recentMux.Unlock()
	h.recent = append(h.recent, alerts...)
	if over := len(h.recent) - recentLimit; over > 0 {
		h.recent = append(h.recent[:0], h.recent[over:]...)
	}
}

// Recent returns the latest published alerts, newest last
func (h *AlertHub) Recent() []models.Alert {
	h.recentMux.RLock()
	defer h.recentMux.RUnlock()
	out := make([]models.Alert, len(h.recent))
	copy(out, h.recent)
	return out
}

// ClientCount is the number of connected websocket clients
func (h *AlertHub) ClientCount() int {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and keeps the client registered until it
// disconnects
func (h *AlertHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.clientsMux.Lock()
	h.clients[conn] = true
	metrics.AlertSubscribers.Set(float64(len(h.clients)))
	h.clientsMux.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.drop(conn)
			return
		}
	}
}

func (h *AlertHub) send(batch []models.Alert) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	for client := range h.clients {
		client.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := client.WriteJSON(batch); err != nil {
			h.log.Debug("dropping websocket client", zap.Error(err))
			client.Close()
			delete(h.clients, client)
		}
	}
	metrics.AlertSubscribers.Set(float64(len(h.clients)))
}

func (h *AlertHub) drop(conn *websocket.Conn) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	delete(h.clients, conn)
	metrics.AlertSubscribers.Set(float64(len(h.clients)))
}

func (h *AlertHub) closeAll() {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	for client := range h.clients {
		client.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"),
			time.Now().Add(time.Second))
		client.Close()
		delete(h.clients, client)
	}
	metrics.AlertSubscribers.Set(0)
}
