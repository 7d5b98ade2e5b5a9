package repositories

import (
	"context"
	"fmt"

	"arremate-backend/internal/models"
)

type AlertRepository struct {
	DB DBTX
}

func NewAlertRepository(db DBTX) *AlertRepository {
	return &AlertRepository{DB: db}
}

// ListAlertConfigs returns every alert configuration row
func (r *AlertRepository) ListAlertConfigs(ctx context.Context) ([]models.AlertConfig, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT tipo_alerta, ativo, gatilho_minutos, intervalo_repeticao_minutos,
		        notificar_dashboard, notificar_popup, nivel_severidade
		 FROM configuracoes_alertas
		 ORDER BY tipo_alerta`)
	if err != nil {
		return nil, fmt.Errorf("list alert configs: %w", err)
	}
	defer rows.Close()

	var configs []models.AlertConfig
	for rows.Next() {
		var c models.AlertConfig
		if err := rows.Scan(&c.Type, &c.Enabled, &c.TriggerMinutes, &c.RepeatMinutes,
			&c.NotifyDashboard, &c.NotifyPopup, &c.Severity); err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

type SystemEventRepository struct {
	DB DBTX
}

func NewSystemEventRepository(db DBTX) *SystemEventRepository {
	return &SystemEventRepository{DB: db}
}

// CreateSystemEvent queues an unread event
func (r *SystemEventRepository) CreateSystemEvent(ctx context.Context, e *models.SystemEvent) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO eventos_sistema(tipo_evento, mensagem, nivel_severidade)
		 VALUES($1, $2, $3)
		 RETURNING id, data_criacao`,
		e.Type, e.Message, e.Severity,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert system event: %w", err)
	}
	return nil
}

// ClaimUnreadEvents locks unread events of the given types, oldest first.
// Rows already claimed by a concurrent poll are skipped.
func (r *SystemEventRepository) ClaimUnreadEvents(ctx context.Context, types []string) ([]models.SystemEvent, error) {
	if len(types) == 0 {
		return nil, nil
	}
	rows, err := r.DB.Query(ctx,
		`SELECT id, tipo_evento, mensagem, nivel_severidade, lido, data_criacao
		 FROM eventos_sistema
		 WHERE lido = FALSE AND tipo_evento = ANY($1)
		 ORDER BY data_criacao, id
		 FOR UPDATE SKIP LOCKED`, types)
	if err != nil {
		return nil, fmt.Errorf("claim unread events: %w", err)
	}
	defer rows.Close()

	var events []models.SystemEvent
	for rows.Next() {
		var e models.SystemEvent
		if err := rows.Scan(&e.ID, &e.Type, &e.Message, &e.Severity, &e.Read, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// MarkEventsRead flags events as read
func (r *SystemEventRepository) MarkEventsRead(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.DB.Exec(ctx, `UPDATE eventos_sistema SET lido = TRUE WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("mark events read: %w", err)
	}
	return nil
}
