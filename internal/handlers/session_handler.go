package handlers

import (
	"net/http"

	"arremate-backend/internal/models"
	"arremate-backend/pkg/utils"
)

type SessionHandler struct {
	Sessions SessionOps
}

func NewSessionHandler(sessions SessionOps) *SessionHandler {
	return &SessionHandler{Sessions: sessions}
}

// Start hands pending units to a worker
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		utils.Error(w, err)
		return
	}
	var req models.StartSessionRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	session, err := h.Sessions.Start(r.Context(), actor, req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, session)
}

// Finish closes a running session with the finished quantity
func (h *SessionHandler) Finish(w http.ResponseWriter, r *http.Request) {
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
	var req models.FinishSessionRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	session, err := h.Sessions.Finish(r.Context(), actor, id, req.FinishedQuantity)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, session)
}

// Cancel discards a running session
func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
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

	if err := h.Sessions.Cancel(r.Context(), actor, id); err != nil {
		utils.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reverse undoes a finalized session
func (h *SessionHandler) Reverse(w http.ResponseWriter, r *http.Request) {
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

	audit, err := h.Sessions.ReverseSession(r.Context(), actor, id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"id_sessao": id,
		"estornos":  viewEntries(audit),
	})
}
