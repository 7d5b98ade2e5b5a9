package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist
	ErrNotFound = errors.New("not found")
	// ErrStale is returned when a guarded update matched no row
	ErrStale = errors.New("row changed concurrently")
	// ErrDuplicate is returned on a unique constraint violation
	ErrDuplicate = errors.New("duplicate row")
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries bundles every repository over one connection or transaction
type Queries struct {
	*ArremateRepository
	*SessionRepository
	*WorkerRepository
	*ProductionOrderRepository
	*AlertRepository
	*SystemEventRepository
	*UserRepository
	*PricingRepository

	db DBTX
}

func newQueries(db DBTX) *Queries {
	return &Queries{
		ArremateRepository:        NewArremateRepository(db),
		SessionRepository:         NewSessionRepository(db),
		WorkerRepository:          NewWorkerRepository(db),
		ProductionOrderRepository: NewProductionOrderRepository(db),
		AlertRepository:           NewAlertRepository(db),
		SystemEventRepository:     NewSystemEventRepository(db),
		UserRepository:            NewUserRepository(db),
		PricingRepository:         NewPricingRepository(db),
		db:                        db,
	}
}

// Store owns the pool and runs units of work
type Store struct {
	Pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

// Queries returns repositories bound to the pool, outside any transaction
func (s *Store) Queries() *Queries {
	return newQueries(s.Pool)
}

// RunInTx runs fn inside one READ COMMITTED transaction. The transaction is
// committed only when fn returns nil; advisory locks taken inside are
// released at commit or rollback.
func (s *Store) RunInTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(newQueries(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// LockKey derives the advisory-lock key pair for a (product, variant) pair:
// the product id and the sum of the variant's character codes
func LockKey(productID int, variant string) (int32, int32) {
	var sum int32
	for _, r := range variant {
		sum += int32(r)
	}
	return int32(productID), sum
}

// TryLockProductVariant takes the transaction-scoped assignment lock without
// blocking. It reports false when another transaction holds it.
func (q *Queries) TryLockProductVariant(ctx context.Context, productID int, variant string) (bool, error) {
	k1, k2 := LockKey(productID, variant)
	var locked bool
	err := q.db.QueryRow(ctx, `SELECT pg_try_advisory_xact_lock($1::int4, $2::int4)`, k1, k2).Scan(&locked)
	if err != nil {
		return false, fmt.Errorf("try advisory lock: %w", err)
	}
	return locked, nil
}

// nullableVariant maps the empty-string sentinel to SQL NULL
func nullableVariant(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
