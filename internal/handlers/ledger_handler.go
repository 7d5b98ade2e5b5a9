package handlers

import (
	"context"
	"net/http"

	"arremate-backend/internal/apperr"
	"arremate-backend/internal/models"
	"arremate-backend/internal/timeutil"
	"arremate-backend/pkg/utils"
)

// EntryLister lists ledger rows
type EntryLister interface {
	ListEntries(ctx context.Context, f models.ArremateFilter) ([]models.Arremate, error)
}

type LedgerHandler struct {
	Sessions SessionOps
	Entries  EntryLister
}

func NewLedgerHandler(sessions SessionOps, entries EntryLister) *LedgerHandler {
	return &LedgerHandler{Sessions: sessions, Entries: entries}
}

// List returns ledger rows, newest first
// Query: op, tiktik, tipo, incluir_estornados, data_inicio, data_fim, limit, offset
func (h *LedgerHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := entryFilter(r)
	if err != nil {
		utils.Error(w, err)
		return
	}

	rows, err := h.Entries.ListEntries(r.Context(), f)
	if err != nil {
		utils.Error(w, apperr.Internal(err))
		return
	}
	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"rows":         viewEntries(rows),
		"total_pontos": sumPoints(rows).StringFixed(2),
	})
}

func entryFilter(r *http.Request) (models.ArremateFilter, error) {
	var f models.ArremateFilter
	var err error
	if f.OrderNumber, err = utils.QueryInt(r, "op", 0); err != nil {
		return f, err
	}
	if f.WorkerID, err = utils.QueryInt(r, "tiktik", 0); err != nil {
		return f, err
	}
	if f.Limit, err = utils.QueryInt(r, "limit", 0); err != nil {
		return f, err
	}
	if f.Offset, err = utils.QueryInt(r, "offset", 0); err != nil {
		return f, err
	}

	switch kind := models.ArremateKind(r.URL.Query().Get("tipo")); kind {
	case "", models.KindProducao, models.KindPerda, models.KindEstorno:
		f.Kind = kind
	default:
		return f, apperr.Validation("tipo de lançamento inválido").WithDetail("tipo", kind)
	}
	f.IncludeReversed = r.URL.Query().Get("incluir_estornados") == "true"

	if f.StartDate, err = queryDate(r, "data_inicio"); err != nil {
		return f, err
	}
	end, err := queryDate(r, "data_fim")
	if err != nil {
		return f, err
	}
	if end != nil {
		last := timeutil.EndOfDay(*end)
		f.EndDate = &last
	}
	return f, nil
}

// Reverse undoes one PRODUCAO or PERDA row
func (h *LedgerHandler) Reverse(w http.ResponseWriter, r *http.Request) {
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

	audit, err := h.Sessions.ReverseEntry(r.Context(), actor, id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, viewEntry(*audit))
}

// RegisterLoss writes off damaged units of an OP
func (h *LedgerHandler) RegisterLoss(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		utils.Error(w, err)
		return
	}
	var req models.RegisterLossRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	entry, err := h.Sessions.RegisterLoss(r.Context(), actor, req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, viewEntry(*entry))
}
