package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"arremate-backend/internal/models"
)

type ArremateRepository struct {
	DB DBTX
}

func NewArremateRepository(db DBTX) *ArremateRepository {
	return &ArremateRepository{DB: db}
}

const arremateColumns = `id, op_numero, produto_id, COALESCE(variante, ''), quantidade_arrematada,
	id_tiktik, usuario_tiktik, lancado_por, tipo_lancamento, id_arremate_origem,
	quantidade_ja_embalada, id_sessao, valor_pontos::text, COALESCE(observacao, ''),
	estornado_em, COALESCE(estornado_por, ''), data_lancamento`

func scanArremate(row pgx.Row) (*models.Arremate, error) {
	var a models.Arremate
	var points string
	err := row.Scan(&a.ID, &a.OrderNumber, &a.ProductID, &a.Variant, &a.Quantity,
		&a.WorkerID, &a.WorkerName, &a.RecordedBy, &a.Kind, &a.OriginEntryID,
		&a.AlreadyPackaged, &a.SessionID, &points, &a.Reason,
		&a.ReversedAt, &a.ReversedBy, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.Points, err = decimal.NewFromString(points)
	if err != nil {
		return nil, fmt.Errorf("parse valor_pontos %q: %w", points, err)
	}
	return &a, nil
}

// CreateEntry appends one ledger row
func (r *ArremateRepository) CreateEntry(ctx context.Context, a *models.Arremate) error {
	var reason *string
	if a.Reason != "" {
		reason = &a.Reason
	}
	err := r.DB.QueryRow(ctx,
		`INSERT INTO arremates(op_numero, produto_id, variante, quantidade_arrematada, id_tiktik,
		                       usuario_tiktik, lancado_por, tipo_lancamento, id_arremate_origem,
		                       id_sessao, valor_pontos, observacao)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::numeric, $12)
		 RETURNING id, data_lancamento`,
		a.OrderNumber, a.ProductID, nullableVariant(a.Variant), a.Quantity, a.WorkerID,
		a.WorkerName, a.RecordedBy, string(a.Kind), a.OriginEntryID,
		a.SessionID, a.Points.StringFixed(2), reason,
	).Scan(&a.ID, &a.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert arremate: %w", err)
	}
	return nil
}

// GetEntryForUpdate loads one ledger row and locks it
func (r *ArremateRepository) GetEntryForUpdate(ctx context.Context, id int) (*models.Arremate, error) {
	a, err := scanArremate(r.DB.QueryRow(ctx,
		`SELECT `+arremateColumns+` FROM arremates WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// ListSessionEntriesForUpdate locks the active PRODUCAO rows written by a session
func (r *ArremateRepository) ListSessionEntriesForUpdate(ctx context.Context, sessionID int) ([]models.Arremate, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+arremateColumns+`
		 FROM arremates
		 WHERE id_sessao = $1 AND tipo_lancamento = 'PRODUCAO' AND estornado_em IS NULL
		 ORDER BY id
		 FOR UPDATE`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session entries: %w", err)
	}
	defer rows.Close()

	var entries []models.Arremate
	for rows.Next() {
		a, err := scanArremate(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *a)
	}
	return entries, rows.Err()
}

// MarkEntryReversed tags an active row as reversed
func (r *ArremateRepository) MarkEntryReversed(ctx context.Context, id int, by string, at time.Time) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE arremates SET estornado_em = $2, estornado_por = $3
		 WHERE id = $1 AND estornado_em IS NULL`, id, at, by)
	if err != nil {
		return fmt.Errorf("mark arremate reversed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}
	return nil
}

// SumFinished is the quantity already finished for one (order, variant) pair.
// Only active PRODUCAO and PERDA rows count.
func (r *ArremateRepository) SumFinished(ctx context.Context, orderNumber int, variant string) (int, error) {
	var total int
	err := r.DB.QueryRow(ctx,
		`SELECT COALESCE(SUM(quantidade_arrematada), 0)
		 FROM arremates
		 WHERE op_numero = $1
		   AND variante IS NOT DISTINCT FROM $2
		   AND tipo_lancamento IN ('PRODUCAO', 'PERDA')
		   AND estornado_em IS NULL`,
		orderNumber, nullableVariant(variant),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum finished for op %d: %w", orderNumber, err)
	}
	return total, nil
}

// SumFinishedByOrder aggregates SumFinished for many orders at once
func (r *ArremateRepository) SumFinishedByOrder(ctx context.Context, orderNumbers []int) (map[models.OrderVariantKey]int, error) {
	totals := make(map[models.OrderVariantKey]int)
	if len(orderNumbers) == 0 {
		return totals, nil
	}

	rows, err := r.DB.Query(ctx,
		`SELECT op_numero, COALESCE(variante, ''), SUM(quantidade_arrematada)
		 FROM arremates
		 WHERE op_numero = ANY($1)
		   AND tipo_lancamento IN ('PRODUCAO', 'PERDA')
		   AND estornado_em IS NULL
		 GROUP BY op_numero, variante`, orderNumbers)
	if err != nil {
		return nil, fmt.Errorf("sum finished by order: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key models.OrderVariantKey
		var total int
		if err := rows.Scan(&key.OrderNumber, &key.Variant, &total); err != nil {
			return nil, err
		}
		totals[key] = total
	}
	return totals, rows.Err()
}

// ListEntries returns ledger rows, newest first
func (r *ArremateRepository) ListEntries(ctx context.Context, f models.ArremateFilter) ([]models.Arremate, error) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.OrderNumber > 0 {
		add("op_numero = $%d", f.OrderNumber)
	}
	if f.WorkerID > 0 {
		add("id_tiktik = $%d", f.WorkerID)
	}
	if f.Kind != "" {
		add("tipo_lancamento = $%d", string(f.Kind))
	}
	if f.StartDate != nil {
		add("data_lancamento >= $%d", *f.StartDate)
	}
	if f.EndDate != nil {
		add("data_lancamento <= $%d", *f.EndDate)
	}
	if !f.IncludeReversed {
		conds = append(conds, "estornado_em IS NULL")
	}

	query := `SELECT ` + arremateColumns + ` FROM arremates`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY data_lancamento DESC, id DESC"

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit, f.Offset)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list arremates: %w", err)
	}
	defer rows.Close()

	var entries []models.Arremate
	for rows.Next() {
		a, err := scanArremate(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *a)
	}
	return entries, rows.Err()
}
