package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"arremate-backend/internal/apperr"
	"arremate-backend/internal/models"
	"arremate-backend/internal/repositories"
)

// SessionTx is the unit of work the session manager runs against
type SessionTx interface {
	TryLockProductVariant(ctx context.Context, productID int, variant string) (bool, error)

	GetWorkerForUpdate(ctx context.Context, id int) (*models.Worker, error)
	SetWorkerProducing(ctx context.Context, workerID, sessionID int, at time.Time) error
	SetWorkerFree(ctx context.Context, workerID int, at time.Time) error
	SetWorkerStatus(ctx context.Context, workerID int, status models.WorkerStatus, at time.Time) error

	GetOrder(ctx context.Context, number int) (*models.ProductionOrder, error)
	GetOrders(ctx context.Context, numbers []int) ([]models.ProductionOrder, error)
	SumFinished(ctx context.Context, orderNumber int, variant string) (int, error)

	CreateSession(ctx context.Context, s *models.WorkSession) error
	GetSessionForUpdate(ctx context.Context, id int) (*models.WorkSession, error)
	ListActiveSessionOwners(ctx context.Context, productID int, variant string) ([]models.SessionOwner, error)
	FinalizeSession(ctx context.Context, s *models.WorkSession) error
	DeleteSession(ctx context.Context, id int) error
	MarkSessionReversed(ctx context.Context, id int) error

	CreateEntry(ctx context.Context, a *models.Arremate) error
	GetEntryForUpdate(ctx context.Context, id int) (*models.Arremate, error)
	ListSessionEntriesForUpdate(ctx context.Context, sessionID int) ([]models.Arremate, error)
	MarkEntryReversed(ctx context.Context, id int, by string, at time.Time) error

	CreateSystemEvent(ctx context.Context, e *models.SystemEvent) error
}

// SessionStore opens session units of work
type SessionStore interface {
	RunInTx(ctx context.Context, fn func(tx SessionTx) error) error
}

// PermissionChecker is the permissions collaborator
type PermissionChecker interface {
	HasPermission(ctx context.Context, userID int, capability string) (bool, error)
}

// PointPricer is the pricing collaborator
type PointPricer interface {
	PointValueFor(ctx context.Context, productID int) (decimal.Decimal, error)
}

// BalanceReader is the read side of the ledger and the OP table
type BalanceReader interface {
	GetOrder(ctx context.Context, number int) (*models.ProductionOrder, error)
	ListOpenOrders(ctx context.Context, productID int) ([]models.ProductionOrder, error)
	SumFinished(ctx context.Context, orderNumber int, variant string) (int, error)
	SumFinishedByOrder(ctx context.Context, orderNumbers []int) (map[models.OrderVariantKey]int, error)
}

// EntryLister lists ledger rows
type EntryLister interface {
	ListEntries(ctx context.Context, f models.ArremateFilter) ([]models.Arremate, error)
}

// FloorReader is the read side of workers and running sessions
type FloorReader interface {
	GetWorker(ctx context.Context, id int) (*models.Worker, error)
	ListWorkers(ctx context.Context) ([]models.Worker, error)
	ListRunningSessions(ctx context.Context) ([]models.RunningSession, error)
	AverageSecondsPerUnit(ctx context.Context, productIDs []int) (map[int]float64, error)
	LastFinishedAt(ctx context.Context, since time.Time) (map[int]time.Time, error)
	ListWorkerSessions(ctx context.Context, workerID int, from, to time.Time) ([]models.WorkSession, error)
}

// EventQueue drains system events inside one transaction
type EventQueue interface {
	ClaimUnreadEvents(ctx context.Context, types []string) ([]models.SystemEvent, error)
	MarkEventsRead(ctx context.Context, ids []int) error
}

// AlertStore is everything the alert engine reads and stamps
type AlertStore interface {
	FloorReader
	ListAlertConfigs(ctx context.Context) ([]models.AlertConfig, error)
	StampIdleAlert(ctx context.Context, workerID int, at, notAfter time.Time) (bool, error)
	StampSlowAlert(ctx context.Context, workerID int, at, notAfter time.Time) (bool, error)
	RunEventTx(ctx context.Context, fn func(q EventQueue) error) error
}

// PostgresStore adapts repositories.Store to the service interfaces. Reads
// outside a transaction go through the embedded pool-bound Queries.
type PostgresStore struct {
	*repositories.Queries
	store *repositories.Store
}

func NewPostgresStore(store *repositories.Store) *PostgresStore {
	return &PostgresStore{Queries: store.Queries(), store: store}
}

func (p *PostgresStore) RunInTx(ctx context.Context, fn func(tx SessionTx) error) error {
	return p.store.RunInTx(ctx, func(q *repositories.Queries) error { return fn(q) })
}

func (p *PostgresStore) RunEventTx(ctx context.Context, fn func(q EventQueue) error) error {
	return p.store.RunInTx(ctx, func(q *repositories.Queries) error { return fn(q) })
}

// storeErr translates repository sentinels into application errors
func storeErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return apperr.NotFound("%s não encontrado(a)", what)
	case errors.Is(err, repositories.ErrStale):
		return apperr.Conflict("%s foi alterado(a) por outra operação", what).Wrap(err)
	case errors.Is(err, repositories.ErrDuplicate):
		return apperr.Conflict("%s já registrado(a)", what).Wrap(err)
	}
	return apperr.Internal(err)
}
