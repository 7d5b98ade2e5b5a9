package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"arremate-backend/internal/cache"
)

// DefaultPointValue applies to products without a configured price
var DefaultPointValue = decimal.NewFromInt(1)

type PricingRepository struct {
	DB DBTX
}

func NewPricingRepository(db DBTX) *PricingRepository {
	return &PricingRepository{DB: db}
}

// PointValueFor returns the points earned per finished unit of a product
func (r *PricingRepository) PointValueFor(ctx context.Context, productID int) (decimal.Decimal, error) {
	key := cache.PointValueKey(productID)
	if data, ok := cache.GetCached(ctx, key); ok {
		if v, err := decimal.NewFromString(string(data)); err == nil {
			return v, nil
		}
	}

	var raw string
	err := r.DB.QueryRow(ctx,
		`SELECT valor_pontos::text FROM precos_pontos_arremate WHERE produto_id = $1`, productID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultPointValue, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("point value for product %d: %w", productID, err)
	}

	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse point value %q: %w", raw, err)
	}
	cache.SetCached(ctx, key, []byte(v.String()), cache.PointValueTTL)
	return v, nil
}
