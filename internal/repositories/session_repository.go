package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"arremate-backend/internal/models"
)

type SessionRepository struct {
	DB DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{DB: db}
}

const sessionColumns = `id, id_tiktik, produto_id, COALESCE(variante, ''), quantidade_entregue, dados_ops,
	data_inicio, data_fim, tempo_pausado_segundos, tempo_real_segundos, quantidade_finalizada,
	id_arremate, status, iniciado_por`

func scanSession(row pgx.Row) (*models.WorkSession, error) {
	var s models.WorkSession
	var snapshot []byte
	err := row.Scan(&s.ID, &s.WorkerID, &s.ProductID, &s.Variant, &s.DeliveredQuantity, &snapshot,
		&s.StartedAt, &s.EndedAt, &s.PausedSeconds, &s.RealSeconds, &s.FinishedQuantity,
		&s.FirstEntryID, &s.Status, &s.StartedBy)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(snapshot, &s.SourceOrders); err != nil {
		return nil, fmt.Errorf("decode dados_ops of session %d: %w", s.ID, err)
	}
	return &s, nil
}

// CreateSession persists a new EM_ANDAMENTO session with its immutable snapshot
func (r *SessionRepository) CreateSession(ctx context.Context, s *models.WorkSession) error {
	snapshot, err := json.Marshal(s.SourceOrders)
	if err != nil {
		return fmt.Errorf("encode dados_ops: %w", err)
	}
	err = r.DB.QueryRow(ctx,
		`INSERT INTO sessoes_trabalho_arremate(id_tiktik, produto_id, variante, quantidade_entregue,
		                                       dados_ops, data_inicio, status, iniciado_por)
		 VALUES($1, $2, $3, $4, $5::jsonb, $6, $7, $8)
		 RETURNING id`,
		s.WorkerID, s.ProductID, nullableVariant(s.Variant), s.DeliveredQuantity,
		string(snapshot), s.StartedAt, string(models.SessionInProgress), s.StartedBy,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	s.Status = models.SessionInProgress
	return nil
}

// GetSessionForUpdate loads a session and locks its row
func (r *SessionRepository) GetSessionForUpdate(ctx context.Context, id int) (*models.WorkSession, error) {
	s, err := scanSession(r.DB.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessoes_trabalho_arremate WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

// FinalizeSession stores the outcome of a running session
func (r *SessionRepository) FinalizeSession(ctx context.Context, s *models.WorkSession) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE sessoes_trabalho_arremate
		 SET data_fim = $2, tempo_pausado_segundos = $3, tempo_real_segundos = $4,
		     quantidade_finalizada = $5, id_arremate = $6, status = 'FINALIZADA'
		 WHERE id = $1 AND status = 'EM_ANDAMENTO'`,
		s.ID, s.EndedAt, s.PausedSeconds, s.RealSeconds, s.FinishedQuantity, s.FirstEntryID)
	if err != nil {
		return fmt.Errorf("finalize session %d: %w", s.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}
	s.Status = models.SessionFinished
	return nil
}

// DeleteSession removes a running session
func (r *SessionRepository) DeleteSession(ctx context.Context, id int) error {
	tag, err := r.DB.Exec(ctx,
		`DELETE FROM sessoes_trabalho_arremate WHERE id = $1 AND status = 'EM_ANDAMENTO'`, id)
	if err != nil {
		return fmt.Errorf("delete session %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}
	return nil
}

// MarkSessionReversed moves a finalized session to ESTORNADA
func (r *SessionRepository) MarkSessionReversed(ctx context.Context, id int) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE sessoes_trabalho_arremate SET status = 'ESTORNADA'
		 WHERE id = $1 AND status = 'FINALIZADA'`, id)
	if err != nil {
		return fmt.Errorf("reverse session %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}
	return nil
}

// ListActiveSessionOwners returns running sessions for (product, variant)
// with their worker's schedule
func (r *SessionRepository) ListActiveSessionOwners(ctx context.Context, productID int, variant string) ([]models.SessionOwner, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT s.id, t.id, t.nome,
		        COALESCE(t.horario_entrada_1, ''), COALESCE(t.horario_saida_1, ''),
		        COALESCE(t.horario_entrada_2, ''), COALESCE(t.horario_saida_2, ''),
		        COALESCE(t.horario_entrada_3, ''), COALESCE(t.horario_saida_3, '')
		 FROM sessoes_trabalho_arremate s
		 JOIN tiktiks t ON t.id = s.id_tiktik
		 WHERE s.produto_id = $1
		   AND s.variante IS NOT DISTINCT FROM $2
		   AND s.status = 'EM_ANDAMENTO'`,
		productID, nullableVariant(variant))
	if err != nil {
		return nil, fmt.Errorf("list active session owners: %w", err)
	}
	defer rows.Close()

	var owners []models.SessionOwner
	for rows.Next() {
		var o models.SessionOwner
		sc := &o.Schedule
		if err := rows.Scan(&o.SessionID, &o.WorkerID, &o.WorkerName,
			&sc.Entry1, &sc.Exit1, &sc.Entry2, &sc.Exit2, &sc.Entry3, &sc.Exit3); err != nil {
			return nil, err
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}

// ListRunningSessions returns every EM_ANDAMENTO session with its product name
func (r *SessionRepository) ListRunningSessions(ctx context.Context) ([]models.RunningSession, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT s.id, s.id_tiktik, s.produto_id, COALESCE(p.nome, ''), COALESCE(s.variante, ''),
		        s.quantidade_entregue, s.data_inicio
		 FROM sessoes_trabalho_arremate s
		 LEFT JOIN produtos p ON p.id = s.produto_id
		 WHERE s.status = 'EM_ANDAMENTO'
		 ORDER BY s.data_inicio`)
	if err != nil {
		return nil, fmt.Errorf("list running sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.RunningSession
	for rows.Next() {
		var s models.RunningSession
		if err := rows.Scan(&s.SessionID, &s.WorkerID, &s.ProductID, &s.ProductName, &s.Variant,
			&s.DeliveredQuantity, &s.StartedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// AverageSecondsPerUnit is Σ real seconds / Σ finished units over finalized
// sessions with output, per product. Variant is ignored; products without
// history are absent from the map.
func (r *SessionRepository) AverageSecondsPerUnit(ctx context.Context, productIDs []int) (map[int]float64, error) {
	averages := make(map[int]float64)
	if len(productIDs) == 0 {
		return averages, nil
	}

	rows, err := r.DB.Query(ctx,
		`SELECT produto_id, SUM(tempo_real_segundos)::float8 / SUM(quantidade_finalizada)
		 FROM sessoes_trabalho_arremate
		 WHERE produto_id = ANY($1)
		   AND status = 'FINALIZADA'
		   AND quantidade_finalizada > 0
		   AND tempo_real_segundos IS NOT NULL
		 GROUP BY produto_id`, productIDs)
	if err != nil {
		return nil, fmt.Errorf("average seconds per unit: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var productID int
		var avg float64
		if err := rows.Scan(&productID, &avg); err != nil {
			return nil, err
		}
		averages[productID] = avg
	}
	return averages, rows.Err()
}

// LastFinishedAt returns, per worker, the latest session end at or after since
func (r *SessionRepository) LastFinishedAt(ctx context.Context, since time.Time) (map[int]time.Time, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id_tiktik, MAX(data_fim)
		 FROM sessoes_trabalho_arremate
		 WHERE data_fim >= $1 AND status IN ('FINALIZADA', 'ESTORNADA')
		 GROUP BY id_tiktik`, since)
	if err != nil {
		return nil, fmt.Errorf("last finished sessions: %w", err)
	}
	defer rows.Close()

	last := make(map[int]time.Time)
	for rows.Next() {
		var workerID int
		var at time.Time
		if err := rows.Scan(&workerID, &at); err != nil {
			return nil, err
		}
		last[workerID] = at
	}
	return last, rows.Err()
}

// ListWorkerSessions returns a worker's sessions started in [from, to)
func (r *SessionRepository) ListWorkerSessions(ctx context.Context, workerID int, from, to time.Time) ([]models.WorkSession, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM sessoes_trabalho_arremate
		 WHERE id_tiktik = $1 AND data_inicio >= $2 AND data_inicio < $3
		 ORDER BY data_inicio`, workerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list worker sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.WorkSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}
