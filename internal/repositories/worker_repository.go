package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"arremate-backend/internal/models"
)

type WorkerRepository struct {
	DB DBTX
}

func NewWorkerRepository(db DBTX) *WorkerRepository {
	return &WorkerRepository{DB: db}
}

const workerColumns = `id, nome, status_atual, data_ultima_mudanca_status,
	COALESCE(horario_entrada_1, ''), COALESCE(horario_saida_1, ''),
	COALESCE(horario_entrada_2, ''), COALESCE(horario_saida_2, ''),
	COALESCE(horario_entrada_3, ''), COALESCE(horario_saida_3, ''),
	id_sessao_trabalho_atual, ultimo_alerta_ociosidade_em, ultimo_alerta_lentidao_em, ativo`

func scanWorker(row pgx.Row) (*models.Worker, error) {
	var w models.Worker
	sc := &w.Schedule
	err := row.Scan(&w.ID, &w.Name, &w.Status, &w.StatusChangedAt,
		&sc.Entry1, &sc.Exit1, &sc.Entry2, &sc.Exit2, &sc.Entry3, &sc.Exit3,
		&w.CurrentSessionID, &w.LastIdleAlertAt, &w.LastSlowAlertAt, &w.Active)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetWorker loads one worker without locking
func (r *WorkerRepository) GetWorker(ctx context.Context, id int) (*models.Worker, error) {
	w, err := scanWorker(r.DB.QueryRow(ctx, `SELECT `+workerColumns+` FROM tiktiks WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return w, nil
}

// GetWorkerForUpdate loads one worker and holds its row lock until the tx ends
func (r *WorkerRepository) GetWorkerForUpdate(ctx context.Context, id int) (*models.Worker, error) {
	w, err := scanWorker(r.DB.QueryRow(ctx, `SELECT `+workerColumns+` FROM tiktiks WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return w, nil
}

// ListWorkers returns active workers ordered by name
func (r *WorkerRepository) ListWorkers(ctx context.Context) ([]models.Worker, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+workerColumns+` FROM tiktiks WHERE ativo ORDER BY nome`)
	if err != nil {
		return nil, fmt.Errorf("list tiktiks: %w", err)
	}
	defer rows.Close()

	var workers []models.Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, err
		}
		workers = append(workers, *w)
	}
	return workers, rows.Err()
}

// SetWorkerProducing links the worker to its new session
func (r *WorkerRepository) SetWorkerProducing(ctx context.Context, workerID, sessionID int, at time.Time) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE tiktiks
		 SET status_atual = 'PRODUZINDO', data_ultima_mudanca_status = $3, id_sessao_trabalho_atual = $2
		 WHERE id = $1 AND id_sessao_trabalho_atual IS NULL`, workerID, sessionID, at)
	if err != nil {
		return fmt.Errorf("set tiktik %d producing: %w", workerID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}
	return nil
}

// SetWorkerFree clears the worker's session link and sets LIVRE
func (r *WorkerRepository) SetWorkerFree(ctx context.Context, workerID int, at time.Time) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE tiktiks
		 SET status_atual = 'LIVRE', data_ultima_mudanca_status = $2, id_sessao_trabalho_atual = NULL
		 WHERE id = $1`, workerID, at)
	if err != nil {
		return fmt.Errorf("set tiktik %d free: %w", workerID, err)
	}
	return nil
}

// SetWorkerStatus applies a supervisor override
func (r *WorkerRepository) SetWorkerStatus(ctx context.Context, workerID int, status models.WorkerStatus, at time.Time) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE tiktiks SET status_atual = $2, data_ultima_mudanca_status = $3 WHERE id = $1`,
		workerID, string(status), at)
	if err != nil {
		return fmt.Errorf("set tiktik %d status: %w", workerID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// StampIdleAlert records an idleness alert unless one was stamped after notAfter.
// It reports whether this caller won the stamp.
func (r *WorkerRepository) StampIdleAlert(ctx context.Context, workerID int, at, notAfter time.Time) (bool, error) {
	tag, err := r.DB.Exec(ctx,
		`UPDATE tiktiks SET ultimo_alerta_ociosidade_em = $2
		 WHERE id = $1 AND (ultimo_alerta_ociosidade_em IS NULL OR ultimo_alerta_ociosidade_em <= $3)`,
		workerID, at, notAfter)
	if err != nil {
		return false, fmt.Errorf("stamp idle alert for tiktik %d: %w", workerID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// StampSlowAlert is StampIdleAlert for the slowness cooldown
func (r *WorkerRepository) StampSlowAlert(ctx context.Context, workerID int, at, notAfter time.Time) (bool, error) {
	tag, err := r.DB.Exec(ctx,
		`UPDATE tiktiks SET ultimo_alerta_lentidao_em = $2
		 WHERE id = $1 AND (ultimo_alerta_lentidao_em IS NULL OR ultimo_alerta_lentidao_em <= $3)`,
		workerID, at, notAfter)
	if err != nil {
		return false, fmt.Errorf("stamp slow alert for tiktik %d: %w", workerID, err)
	}
	return tag.RowsAffected() == 1, nil
}
