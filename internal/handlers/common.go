package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"arremate-backend/internal/apperr"
	"arremate-backend/internal/middleware"
	"arremate-backend/internal/models"
	"arremate-backend/internal/timeutil"
)

// SessionOps is every ledger and session mutation exposed over HTTP
type SessionOps interface {
	Start(ctx context.Context, actor models.Actor, req models.StartSessionRequest) (*models.WorkSession, error)
	Finish(ctx context.Context, actor models.Actor, sessionID int, finishedQty *int) (*models.WorkSession, error)
	Cancel(ctx context.Context, actor models.Actor, sessionID int) error
	ReverseSession(ctx context.Context, actor models.Actor, sessionID int) ([]models.Arremate, error)
	ReverseEntry(ctx context.Context, actor models.Actor, entryID int) (*models.Arremate, error)
	RegisterLoss(ctx context.Context, actor models.Actor, req models.RegisterLossRequest) (*models.Arremate, error)
	SetWorkerStatus(ctx context.Context, actor models.Actor, workerID int, status models.WorkerStatus) error
}

func actorFrom(r *http.Request) (models.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return models.Actor{}, apperr.Unauthorized("autenticação necessária")
	}
	return actor, nil
}

func pathInt(r *http.Request, name string) (int, error) {
	raw := mux.Vars(r)[name]
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, apperr.Validation("%s inválido", name).WithDetail(name, raw)
	}
	return v, nil
}

// queryDate parses a YYYY-MM-DD query parameter as a factory-local day
func queryDate(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation(timeutil.DateLayout, raw, timeutil.Factory)
	if err != nil {
		return nil, apperr.Validation("data %s inválida, use AAAA-MM-DD", name).WithDetail(name, raw)
	}
	return &d, nil
}

// entryView is a ledger row as rendered in JSON, points fixed to two places
type entryView struct {
	models.Arremate
	Points string `json:"valor_pontos"`
}

func viewEntry(a models.Arremate) entryView {
	return entryView{Arremate: a, Points: a.Points.StringFixed(2)}
}

func viewEntries(rows []models.Arremate) []entryView {
	out := make([]entryView, 0, len(rows))
	for _, a := range rows {
		out = append(out, viewEntry(a))
	}
	return out
}

func sumPoints(rows []models.Arremate) decimal.Decimal {
	total := decimal.Zero
	for _, a := range rows {
		total = total.Add(a.Points)
	}
	return total
}
