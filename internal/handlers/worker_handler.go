package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"arremate-backend/internal/models"
	"arremate-backend/internal/timeutil"
	"arremate-backend/pkg/utils"
)

// StatusBoard builds the worker dashboard
type StatusBoard interface {
	StatusBoard(ctx context.Context) ([]models.WorkerStatusView, error)
}

// WorkerReports renders production slips
type WorkerReports interface {
	WorkerDayPDF(ctx context.Context, workerID int, day time.Time) ([]byte, error)
}

type WorkerHandler struct {
	Sessions SessionOps
	Board    StatusBoard
	Reports  WorkerReports
}

func NewWorkerHandler(sessions SessionOps, board StatusBoard, reports WorkerReports) *WorkerHandler {
	return &WorkerHandler{Sessions: sessions, Board: board, Reports: reports}
}

// Status lists every active worker with its effective status
func (h *WorkerHandler) Status(w http.ResponseWriter, r *http.Request) {
	views, err := h.Board.StatusBoard(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, views)
}

// SetStatus applies a supervisor override
func (h *WorkerHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		utils.Error(w, err)
		return
	}
	id, err := pathInt(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}
	var req models.SetWorkerStatusRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	if err := h.Sessions.SetWorkerStatus(r.Context(), actor, id, req.Status); err != nil {
		utils.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Report streams the worker's daily production slip; query: data (AAAA-MM-DD)
func (h *WorkerHandler) Report(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}
	day := timeutil.Now()
	if d, err := queryDate(r, "data"); err != nil {
		utils.Error(w, err)
		return
	} else if d != nil {
		day = *d
	}

	pdf, err := h.Reports.WorkerDayPDF(r.Context(), id, day)
	if err != nil {
		utils.Error(w, err)
		return
	}

	filename := fmt.Sprintf("arremate_tiktik_%d_%s.pdf", id, timeutil.FormatFactory(day, timeutil.DateLayout))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
