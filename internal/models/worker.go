package models

import (
	"time"

	"arremate-backend/internal/timeutil"
)

// Schedule is the worker's fixed daily schedule
type Schedule = timeutil.Schedule

// WorkerStatus is the status of a tiktik (finishing worker)
type WorkerStatus string

const (
	WorkerFree       WorkerStatus = "LIVRE"
	WorkerProducing  WorkerStatus = "PRODUZINDO"
	WorkerAbsent     WorkerStatus = "FALTOU"
	WorkerExternal   WorkerStatus = "ALOCADO_EXTERNO"
	WorkerFreeManual WorkerStatus = "LIVRE_MANUAL"
)

// Worker is a tiktik row. CurrentSessionID is the single-owner handle to the
// worker's running session.
type Worker struct {
	ID               int          `json:"id"`
	Name             string       `json:"nome"`
	Status           WorkerStatus `json:"status_atual"`
	StatusChangedAt  time.Time    `json:"data_ultima_mudanca_status"`
	Schedule         Schedule     `json:"horario"`
	CurrentSessionID *int         `json:"id_sessao_trabalho_atual,omitempty"`
	LastIdleAlertAt  *time.Time   `json:"ultimo_alerta_ociosidade_em,omitempty"`
	LastSlowAlertAt  *time.Time   `json:"ultimo_alerta_lentidao_em,omitempty"`
	Active           bool         `json:"ativo"`
}

// IsManualOverride reports whether the status was set by a supervisor
func (s WorkerStatus) IsManualOverride() bool {
	return s == WorkerAbsent || s == WorkerExternal || s == WorkerFreeManual
}

// Valid reports whether s is a known status
func (s WorkerStatus) Valid() bool {
	switch s {
	case WorkerFree, WorkerProducing, WorkerAbsent, WorkerExternal, WorkerFreeManual:
		return true
	}
	return false
}

// EffectiveStatus resolves manual overrides set on a previous day back to LIVRE
func (w *Worker) EffectiveStatus(now time.Time) WorkerStatus {
	if w.Status.IsManualOverride() && w.StatusChangedAt.Before(timeutil.StartOfDay(now)) {
		return WorkerFree
	}
	return w.Status
}

// EffectiveStatusChangedAt is the status-change instant matching EffectiveStatus
func (w *Worker) EffectiveStatusChangedAt(now time.Time) time.Time {
	dayStart := timeutil.StartOfDay(now)
	if w.Status.IsManualOverride() && w.StatusChangedAt.Before(dayStart) {
		return dayStart
	}
	return w.StatusChangedAt
}

// SetWorkerStatusRequest is a supervisor override of a worker's status
type SetWorkerStatusRequest struct {
	Status WorkerStatus `json:"status"`
}

// SessionSummary is the dashboard view of a worker's running task
type SessionSummary struct {
	SessionID          int       `json:"id_sessao"`
	ProductID          int       `json:"produto_id"`
	ProductName        string    `json:"produto_nome"`
	Variant            string    `json:"variante"`
	DeliveredQuantity  int       `json:"quantidade_entregue"`
	StartedAt          time.Time `json:"data_inicio"`
	ElapsedRealSeconds int       `json:"tempo_decorrido_real_segundos"`
	ExpectedSeconds    *int      `json:"tempo_esperado_segundos,omitempty"`
	ProgressRatio      *float64  `json:"progresso_tempo,omitempty"`
}

// WorkerStatusView is one row of the worker-status dashboard
type WorkerStatusView struct {
	WorkerID        int             `json:"id"`
	Name            string          `json:"nome"`
	Status          WorkerStatus    `json:"status"`
	StatusChangedAt time.Time       `json:"data_ultima_mudanca_status"`
	InWorkingWindow bool            `json:"em_horario_de_trabalho"`
	Session         *SessionSummary `json:"sessao,omitempty"`
}
