package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"arremate-backend/internal/models"
)

// ProductionOrderRepository reads OPs owned by the production subsystem
type ProductionOrderRepository struct {
	DB DBTX
}

func NewProductionOrderRepository(db DBTX) *ProductionOrderRepository {
	return &ProductionOrderRepository{DB: db}
}

const orderColumns = `o.numero, o.produto_id, COALESCE(p.nome, ''), COALESCE(o.variante, ''),
	o.quantidade, o.etapas, o.status, o.data_criacao`

const orderFrom = ` FROM ordens_de_producao o LEFT JOIN produtos p ON p.id = o.produto_id`

func scanOrder(row pgx.Row) (*models.ProductionOrder, error) {
	var o models.ProductionOrder
	var stages []byte
	err := row.Scan(&o.Number, &o.ProductID, &o.ProductName, &o.Variant,
		&o.RequestedQuantity, &stages, &o.Status, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(stages) > 0 {
		if err := json.Unmarshal(stages, &o.Stages); err != nil {
			return nil, fmt.Errorf("decode etapas of op %d: %w", o.Number, err)
		}
	}
	return &o, nil
}

func collectOrders(rows pgx.Rows) ([]models.ProductionOrder, error) {
	defer rows.Close()
	var orders []models.ProductionOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// GetOrder loads one OP by number
func (r *ProductionOrderRepository) GetOrder(ctx context.Context, number int) (*models.ProductionOrder, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+orderFrom+` WHERE o.numero = $1`, number))
	if err != nil {
		return nil, notFound(err)
	}
	return o, nil
}

// GetOrders loads the given OPs, order number ascending
func (r *ProductionOrderRepository) GetOrders(ctx context.Context, numbers []int) ([]models.ProductionOrder, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+orderColumns+orderFrom+` WHERE o.numero = ANY($1) ORDER BY o.numero`, numbers)
	if err != nil {
		return nil, fmt.Errorf("get ops: %w", err)
	}
	return collectOrders(rows)
}

// ListOpenOrders returns non-cancelled OPs, optionally for one product
// (productID 0 means all), order number ascending
func (r *ProductionOrderRepository) ListOpenOrders(ctx context.Context, productID int) ([]models.ProductionOrder, error) {
	query := `SELECT ` + orderColumns + orderFrom + ` WHERE o.status <> 'cancelada'`
	var args []any
	if productID > 0 {
		query += ` AND o.produto_id = $1`
		args = append(args, productID)
	}
	query += ` ORDER BY o.numero`

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list open ops: %w", err)
	}
	return collectOrders(rows)
}
