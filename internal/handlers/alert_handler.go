package handlers

import (
	"context"
	"net/http"

	"arremate-backend/internal/models"
	"arremate-backend/pkg/utils"
)

// AlertChecker runs one alert evaluation pass
type AlertChecker interface {
	Check(ctx context.Context) ([]models.Alert, error)
}

// AlertFeed is the websocket side of alerts
type AlertFeed interface {
	Recent() []models.Alert
	ServeWS(w http.ResponseWriter, r *http.Request)
}

type AlertHandler struct {
	Checker AlertChecker
	Feed    AlertFeed
}

func NewAlertHandler(checker AlertChecker, feed AlertFeed) *AlertHandler {
	return &AlertHandler{Checker: checker, Feed: feed}
}

// Check is polled by dashboards; it returns and broadcasts the alerts due now
func (h *AlertHandler) Check(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.Checker.Check(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, alerts)
}

// Recent returns the latest broadcast alerts
func (h *AlertHandler) Recent(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, h.Feed.Recent())
}

// Subscribe upgrades to a websocket receiving every alert batch
func (h *AlertHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	h.Feed.ServeWS(w, r)
}
