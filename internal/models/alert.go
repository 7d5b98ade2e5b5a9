package models

import "time"

// Alert types with built-in evaluation rules
const (
	AlertIdleness = "OCIOSIDADE"
	AlertSlowness = "LENTIDAO_CRITICA"
)

// AlertConfig is one row of the alert configuration table
type AlertConfig struct {
	Type            string `json:"tipo_alerta"`
	Enabled         bool   `json:"ativo"`
	TriggerMinutes  int    `json:"gatilho_minutos"`
	RepeatMinutes   int    `json:"intervalo_repeticao_minutos"`
	NotifyDashboard bool   `json:"notificar_dashboard"`
	NotifyPopup     bool   `json:"notificar_popup"`
	Severity        string `json:"nivel_severidade"`
}

// SystemEvent is a queued event raised by other modules (e.g. reversals)
type SystemEvent struct {
	ID        int       `json:"id"`
	Type      string    `json:"tipo_evento"`
	Message   string    `json:"mensagem"`
	Severity  string    `json:"nivel_severidade"`
	Read      bool      `json:"lido"`
	CreatedAt time.Time `json:"data_criacao"`
}

// Alert is an emitted alert payload
type Alert struct {
	Type        string    `json:"tipo"`
	Message     string    `json:"mensagem"`
	Severity    string    `json:"nivel"`
	WorkerID    *int      `json:"id_tiktik,omitempty"`
	WorkerName  string    `json:"tiktik_nome,omitempty"`
	NotifyPopup bool      `json:"popup"`
	CreatedAt   time.Time `json:"data"`
}
