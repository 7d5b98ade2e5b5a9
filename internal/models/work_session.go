package models

import "time"

// SessionStatus is the lifecycle state of a work session
type SessionStatus string

const (
	SessionInProgress SessionStatus = "EM_ANDAMENTO"
	SessionFinished   SessionStatus = "FINALIZADA"
	SessionReversed   SessionStatus = "ESTORNADA"
)

// SourceOrder is one OP of a session snapshot and the quantity taken from it
type SourceOrder struct {
	OrderNumber int `json:"numero_op"`
	Quantity    int `json:"quantidade"`
}

// WorkSession is one worker's finishing task. SourceOrders is fixed at start.
type WorkSession struct {
	ID                int           `json:"id"`
	WorkerID          int           `json:"id_tiktik"`
	ProductID         int           `json:"produto_id"`
	Variant           string        `json:"variante"`
	DeliveredQuantity int           `json:"quantidade_entregue"`
	SourceOrders      []SourceOrder `json:"dados_ops"`
	StartedAt         time.Time     `json:"data_inicio"`
	EndedAt           *time.Time    `json:"data_fim,omitempty"`
	PausedSeconds     int           `json:"tempo_pausado_segundos"`
	RealSeconds       *int          `json:"tempo_real_segundos,omitempty"`
	FinishedQuantity  *int          `json:"quantidade_finalizada,omitempty"`
	FirstEntryID      *int          `json:"id_arremate,omitempty"`
	Status            SessionStatus `json:"status"`
	StartedBy         string        `json:"iniciado_por"`
}

// SnapshotTotal is the number of units the session can still place
func (s *WorkSession) SnapshotTotal() int {
	total := 0
	for _, o := range s.SourceOrders {
		total += o.Quantity
	}
	return total
}

// SessionOwner is a running session joined with its worker's schedule
type SessionOwner struct {
	SessionID  int
	WorkerID   int
	WorkerName string
	Schedule   Schedule
}

// RunningSession is an EM_ANDAMENTO session as seen by dashboards and alerts
type RunningSession struct {
	SessionID         int       `json:"id_sessao"`
	WorkerID          int       `json:"id_tiktik"`
	ProductID         int       `json:"produto_id"`
	ProductName       string    `json:"produto_nome"`
	Variant           string    `json:"variante"`
	DeliveredQuantity int       `json:"quantidade_entregue"`
	StartedAt         time.Time `json:"data_inicio"`
}

// StartSessionRequest hands pending work from one or more OPs to a worker
type StartSessionRequest struct {
	WorkerID     int    `json:"id_tiktik"`
	ProductID    int    `json:"produto_id"`
	Variant      string `json:"variante"`
	Quantity     int    `json:"quantidade_entregue"`
	OrderNumbers []int  `json:"numeros_op"`
}

// FinishSessionRequest closes a running session
type FinishSessionRequest struct {
	FinishedQuantity *int `json:"quantidade_finalizada"`
}
