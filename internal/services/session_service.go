package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"arremate-backend/internal/apperr"
	"arremate-backend/internal/cache"
	"arremate-backend/internal/metrics"
	"arremate-backend/internal/models"
	"arremate-backend/internal/timeutil"
)

// EventReversal is the system event raised when ledger rows are reversed
const EventReversal = "ESTORNO_REALIZADO"

// SessionService drives the work-session state machine and every write to
// the finishing ledger
type SessionService struct {
	store  SessionStore
	perms  PermissionChecker
	pricer PointPricer
	log    *zap.Logger
	now    func() time.Time
}

func NewSessionService(store SessionStore, perms PermissionChecker, pricer PointPricer, log *zap.Logger) *SessionService {
	return &SessionService{
		store:  store,
		perms:  perms,
		pricer: pricer,
		log:    log.Named("sessions"),
		now:    timeutil.Now,
	}
}

// SetClock replaces the time source
func (s *SessionService) SetClock(now func() time.Time) {
	s.now = now
}

func validateStart(req *models.StartSessionRequest) error {
	if req.WorkerID <= 0 {
		return apperr.Validation("id_tiktik é obrigatório")
	}
	if req.ProductID <= 0 {
		return apperr.Validation("produto_id é obrigatório")
	}
	if req.Quantity <= 0 {
		return apperr.Validation("quantidade_entregue deve ser maior que zero")
	}
	if len(req.OrderNumbers) == 0 {
		return apperr.Validation("informe ao menos uma OP de origem")
	}
	seen := make(map[int]bool, len(req.OrderNumbers))
	for _, n := range req.OrderNumbers {
		if n <= 0 {
			return apperr.Validation("número de OP inválido").WithDetail("numero_op", n)
		}
		if seen[n] {
			return apperr.Validation("OP repetida na lista").WithDetail("numero_op", n)
		}
		seen[n] = true
	}
	return nil
}

// Start hands deliveredQty units of (product, variant) to a worker, drawn
// from the given OPs oldest first
func (s *SessionService) Start(ctx context.Context, actor models.Actor, req models.StartSessionRequest) (*models.WorkSession, error) {
	req.Variant = models.NormalizeVariant(req.Variant)
	if err := validateStart(&req); err != nil {
		return nil, s.outcome("start", err)
	}
	if err := requirePermission(ctx, s.perms, actor, CapStartSession); err != nil {
		return nil, s.outcome("start", err)
	}

	var session *models.WorkSession
	err := s.store.RunInTx(ctx, func(tx SessionTx) error {
		now := s.now()

		locked, err := tx.TryLockProductVariant(ctx, req.ProductID, req.Variant)
		if err != nil {
			return apperr.Internal(err)
		}
		if !locked {
			metrics.LockConflicts.Inc()
			return apperr.Conflict("este produto está sendo atribuído por outra pessoa, tente novamente").
				WithDetail("produto_id", req.ProductID).
				WithDetail("variante", req.Variant)
		}

		worker, err := tx.GetWorkerForUpdate(ctx, req.WorkerID)
		if err != nil {
			return storeErr(err, "tiktik")
		}
		if !worker.Active {
			return apperr.Conflict("tiktik %s está inativo", worker.Name).
				WithDetail("tiktik_id", worker.ID)
		}
		if worker.CurrentSessionID != nil {
			return apperr.Conflict("tiktik %s já possui uma tarefa em andamento", worker.Name).
				WithDetail("id_sessao", *worker.CurrentSessionID)
		}
		switch worker.EffectiveStatus(now) {
		case models.WorkerAbsent, models.WorkerExternal:
			return apperr.Conflict("tiktik %s não está disponível", worker.Name).
				WithDetail("status", worker.EffectiveStatus(now))
		}

		owners, err := tx.ListActiveSessionOwners(ctx, req.ProductID, req.Variant)
		if err != nil {
			return apperr.Internal(err)
		}
		for _, o := range owners {
			if timeutil.InWorkingWindow(o.Schedule, now) {
				return apperr.Conflict("este produto já está em arremate com %s", o.WorkerName).
					WithDetail("id_sessao", o.SessionID)
			}
		}

		balances, total, err := s.freshBalances(ctx, tx, req)
		if err != nil {
			return err
		}
		if req.Quantity > total {
			return apperr.Conflict("quantidade solicitada excede o saldo disponível").
				WithDetail("disponivel", total).
				WithDetail("solicitado", req.Quantity)
		}

		allocations, remainder := Allocate(req.Quantity, balances)
		if remainder > 0 {
			return apperr.Integrity("não foi possível alocar a quantidade entregue").
				WithDetail("nao_alocado", remainder)
		}

		session = &models.WorkSession{
			WorkerID:          worker.ID,
			ProductID:         req.ProductID,
			Variant:           req.Variant,
			DeliveredQuantity: req.Quantity,
			SourceOrders:      toSourceOrders(allocations),
			StartedAt:         now,
			StartedBy:         actor.Name,
		}
		if err := tx.CreateSession(ctx, session); err != nil {
			return storeErr(err, "sessão")
		}
		if err := tx.SetWorkerProducing(ctx, worker.ID, session.ID, now); err != nil {
			return storeErr(err, "tiktik")
		}
		return nil
	})
	if err != nil {
		return nil, s.outcome("start", err)
	}

	cache.InvalidateQueue(ctx)
	s.outcome("start", nil)
	s.log.Info("session started",
		zap.Int("session_id", session.ID),
		zap.Int("worker_id", session.WorkerID),
		zap.Int("product_id", session.ProductID),
		zap.String("variant", session.Variant),
		zap.Int("quantity", session.DeliveredQuantity),
		zap.String("by", actor.Name),
	)
	return session, nil
}

// freshBalances recomputes each requested OP's balance from the ledger
func (s *SessionService) freshBalances(ctx context.Context, tx SessionTx, req models.StartSessionRequest) ([]OrderBalance, int, error) {
	orders, err := tx.GetOrders(ctx, req.OrderNumbers)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	found := make(map[int]bool, len(orders))
	for _, o := range orders {
		found[o.Number] = true
	}
	for _, n := range req.OrderNumbers {
		if !found[n] {
			return nil, 0, apperr.NotFound("OP %d não encontrada", n)
		}
	}

	balances := make([]OrderBalance, 0, len(orders))
	total := 0
	for i := range orders {
		o := &orders[i]
		if o.ProductID != req.ProductID || models.NormalizeVariant(o.Variant) != req.Variant {
			return nil, 0, apperr.Validation("OP %d não pertence ao produto/variante informado", o.Number)
		}
		finished, err := tx.SumFinished(ctx, o.Number, req.Variant)
		if err != nil {
			return nil, 0, apperr.Internal(err)
		}
		balance := AvailableBalance(o, finished)
		balances = append(balances, OrderBalance{OrderNumber: o.Number, Balance: balance})
		total += balance
	}
	return balances, total, nil
}

func toSourceOrders(allocations []Allocation) []models.SourceOrder {
	orders := make([]models.SourceOrder, 0, len(allocations))
	for _, a := range allocations {
		orders = append(orders, models.SourceOrder{OrderNumber: a.OrderNumber, Quantity: a.Quantity})
	}
	return orders
}

// Finish closes a running session, writing one PRODUCAO row per OP that
// receives part of finishedQty
func (s *SessionService) Finish(ctx context.Context, actor models.Actor, sessionID int, finishedQty *int) (*models.WorkSession, error) {
	if sessionID <= 0 {
		return nil, s.outcome("finish", apperr.Validation("id da sessão inválido"))
	}
	if finishedQty == nil || *finishedQty < 0 {
		return nil, s.outcome("finish", apperr.Validation("quantidade_finalizada deve ser zero ou maior"))
	}
	if err := requirePermission(ctx, s.perms, actor, CapFinishSession); err != nil {
		return nil, s.outcome("finish", err)
	}

	var session *models.WorkSession
	var written []models.Arremate
	err := s.store.RunInTx(ctx, func(tx SessionTx) error {
		now := s.now()
		var err error

		session, err = tx.GetSessionForUpdate(ctx, sessionID)
		if err != nil {
			return storeErr(err, "sessão")
		}
		if session.Status != models.SessionInProgress {
			return apperr.Conflict("sessão não está em andamento").WithDetail("status", session.Status)
		}
		worker, err := tx.GetWorkerForUpdate(ctx, session.WorkerID)
		if err != nil {
			return storeErr(err, "tiktik")
		}

		pointValue, err := s.pricer.PointValueFor(ctx, session.ProductID)
		if err != nil {
			return apperr.Internal(err)
		}

		snapshot := make([]OrderBalance, 0, len(session.SourceOrders))
		for _, o := range session.SourceOrders {
			snapshot = append(snapshot, OrderBalance{OrderNumber: o.OrderNumber, Balance: o.Quantity})
		}
		allocations, remainder := Allocate(*finishedQty, snapshot)
		if remainder > 0 {
			return apperr.Integrity("quantidade finalizada excede a capacidade das OPs da sessão").
				WithDetail("capacidade", session.SnapshotTotal()).
				WithDetail("solicitado", *finishedQty)
		}

		for _, a := range allocations {
			entry := models.Arremate{
				OrderNumber: a.OrderNumber,
				ProductID:   session.ProductID,
				Variant:     session.Variant,
				Quantity:    a.Quantity,
				WorkerID:    &worker.ID,
				WorkerName:  worker.Name,
				RecordedBy:  actor.Name,
				Kind:        models.KindProducao,
				SessionID:   &session.ID,
				Points:      pointValue.Mul(decimal.NewFromInt(int64(a.Quantity))),
			}
			if err := tx.CreateEntry(ctx, &entry); err != nil {
				return storeErr(err, "lançamento")
			}
			written = append(written, entry)
		}

		paused := timeutil.OverlapSeconds(worker.Schedule, session.StartedAt.In(now.Location()), now)
		elapsed := int(math.Round(now.Sub(session.StartedAt).Seconds()))
		realSeconds := elapsed - paused
		if realSeconds < 0 {
			realSeconds = 0
		}
		finished := *finishedQty

		session.EndedAt = &now
		session.PausedSeconds = paused
		session.RealSeconds = &realSeconds
		session.FinishedQuantity = &finished
		if len(written) > 0 {
			session.FirstEntryID = &written[0].ID
		}
		if err := tx.FinalizeSession(ctx, session); err != nil {
			return storeErr(err, "sessão")
		}
		return s.releaseWorker(ctx, tx, worker, session.ID, now)
	})
	if err != nil {
		return nil, s.outcome("finish", err)
	}

	for _, e := range written {
		metrics.LedgerEntries.WithLabelValues(string(e.Kind)).Inc()
		metrics.LedgerUnits.WithLabelValues(string(e.Kind)).Add(float64(e.Quantity))
	}
	cache.InvalidateQueue(ctx)
	s.outcome("finish", nil)
	s.log.Info("session finished",
		zap.Int("session_id", session.ID),
		zap.Int("worker_id", session.WorkerID),
		zap.Int("finished", *finishedQty),
		zap.Int("entries", len(written)),
		zap.Int("real_seconds", *session.RealSeconds),
		zap.String("by", actor.Name),
	)
	return session, nil
}

// releaseWorker frees the worker if it still points at sessionID
func (s *SessionService) releaseWorker(ctx context.Context, tx SessionTx, worker *models.Worker, sessionID int, now time.Time) error {
	if worker.CurrentSessionID == nil || *worker.CurrentSessionID != sessionID {
		s.log.Warn("worker not linked to session",
			zap.Int("worker_id", worker.ID),
			zap.Int("session_id", sessionID),
		)
		return nil
	}
	if err := tx.SetWorkerFree(ctx, worker.ID, now); err != nil {
		return storeErr(err, "tiktik")
	}
	return nil
}

// Cancel discards a running session without leaving any trace
func (s *SessionService) Cancel(ctx context.Context, actor models.Actor, sessionID int) error {
	if sessionID <= 0 {
		return s.outcome("cancel", apperr.Validation("id da sessão inválido"))
	}
	if err := requirePermission(ctx, s.perms, actor, CapCancelSession); err != nil {
		return s.outcome("cancel", err)
	}

	var workerID int
	err := s.store.RunInTx(ctx, func(tx SessionTx) error {
		session, err := tx.GetSessionForUpdate(ctx, sessionID)
		if err != nil {
			return storeErr(err, "sessão")
		}
		if session.Status != models.SessionInProgress {
			return apperr.Conflict("apenas sessões em andamento podem ser canceladas").
				WithDetail("status", session.Status)
		}
		worker, err := tx.GetWorkerForUpdate(ctx, session.WorkerID)
		if err != nil {
			return storeErr(err, "tiktik")
		}
		workerID = worker.ID

		if err := s.releaseWorker(ctx, tx, worker, session.ID, s.now()); err != nil {
			return err
		}
		return storeErr(tx.DeleteSession(ctx, session.ID), "sessão")
	})
	if err != nil {
		return s.outcome("cancel", err)
	}

	cache.InvalidateQueue(ctx)
	s.outcome("cancel", nil)
	s.log.Info("session cancelled",
		zap.Int("session_id", sessionID),
		zap.Int("worker_id", workerID),
		zap.String("by", actor.Name),
	)
	return nil
}

// ReverseSession undoes a finalized session: every active PRODUCAO row it
// wrote is tagged reversed and gets an ESTORNO audit row
func (s *SessionService) ReverseSession(ctx context.Context, actor models.Actor, sessionID int) ([]models.Arremate, error) {
	if sessionID <= 0 {
		return nil, s.outcome("reverse_session", apperr.Validation("id da sessão inválido"))
	}
	if err := requirePermission(ctx, s.perms, actor, CapReverse); err != nil {
		return nil, s.outcome("reverse_session", err)
	}

	var audit []models.Arremate
	err := s.store.RunInTx(ctx, func(tx SessionTx) error {
		now := s.now()
		session, err := tx.GetSessionForUpdate(ctx, sessionID)
		if err != nil {
			return storeErr(err, "sessão")
		}
		switch session.Status {
		case models.SessionReversed:
			return apperr.Conflict("sessão já foi estornada")
		case models.SessionInProgress:
			return apperr.Conflict("sessão em andamento não pode ser estornada, cancele-a")
		}

		entries, err := tx.ListSessionEntriesForUpdate(ctx, session.ID)
		if err != nil {
			return apperr.Internal(err)
		}
		for i := range entries {
			row, err := reverseEntry(ctx, tx, &entries[i], actor, now)
			if err != nil {
				return err
			}
			audit = append(audit, *row)
		}
		if err := tx.MarkSessionReversed(ctx, session.ID); err != nil {
			return storeErr(err, "sessão")
		}

		units := 0
		for _, a := range audit {
			units += a.Quantity
		}
		return storeErr(tx.CreateSystemEvent(ctx, &models.SystemEvent{
			Type:     EventReversal,
			Message:  fmt.Sprintf("%s estornou a sessão %d (%d peças)", actor.Name, session.ID, units),
			Severity: "info",
		}), "evento")
	})
	if err != nil {
		return nil, s.outcome("reverse_session", err)
	}

	s.recordReversal(ctx, audit)
	s.outcome("reverse_session", nil)
	s.log.Info("session reversed",
		zap.Int("session_id", sessionID),
		zap.Int("entries", len(audit)),
		zap.String("by", actor.Name),
	)
	return audit, nil
}

// ReverseEntry undoes one PRODUCAO or PERDA row, independent of any session
func (s *SessionService) ReverseEntry(ctx context.Context, actor models.Actor, entryID int) (*models.Arremate, error) {
	if entryID <= 0 {
		return nil, s.outcome("reverse_entry", apperr.Validation("id do lançamento inválido"))
	}
	if err := requirePermission(ctx, s.perms, actor, CapReverse); err != nil {
		return nil, s.outcome("reverse_entry", err)
	}

	var audit *models.Arremate
	err := s.store.RunInTx(ctx, func(tx SessionTx) error {
		entry, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return storeErr(err, "lançamento")
		}
		audit, err = reverseEntry(ctx, tx, entry, actor, s.now())
		if err != nil {
			return err
		}
		return storeErr(tx.CreateSystemEvent(ctx, &models.SystemEvent{
			Type:     EventReversal,
			Message:  fmt.Sprintf("%s estornou o lançamento %d da OP %d (%d peças)", actor.Name, entry.ID, entry.OrderNumber, entry.Quantity),
			Severity: "info",
		}), "evento")
	})
	if err != nil {
		return nil, s.outcome("reverse_entry", err)
	}

	s.recordReversal(ctx, []models.Arremate{*audit})
	s.outcome("reverse_entry", nil)
	s.log.Info("entry reversed",
		zap.Int("entry_id", entryID),
		zap.Int("audit_id", audit.ID),
		zap.String("by", actor.Name),
	)
	return audit, nil
}

// reverseEntry writes the ESTORNO row for entry and tags entry reversed
func reverseEntry(ctx context.Context, tx SessionTx, entry *models.Arremate, actor models.Actor, now time.Time) (*models.Arremate, error) {
	switch {
	case entry.Kind == models.KindEstorno:
		return nil, apperr.Conflict("lançamentos de estorno não podem ser estornados")
	case !entry.Active():
		return nil, apperr.Conflict("lançamento %d já foi estornado", entry.ID)
	case entry.AlreadyPackaged > 0:
		return nil, apperr.Conflict("lançamento %d já possui peças embaladas", entry.ID).
			WithDetail("quantidade_ja_embalada", entry.AlreadyPackaged)
	}

	audit := models.Arremate{
		OrderNumber:   entry.OrderNumber,
		ProductID:     entry.ProductID,
		Variant:       entry.Variant,
		Quantity:      entry.Quantity,
		WorkerID:      entry.WorkerID,
		WorkerName:    entry.WorkerName,
		RecordedBy:    actor.Name,
		Kind:          models.KindEstorno,
		OriginEntryID: &entry.ID,
		SessionID:     entry.SessionID,
		Points:        entry.Points,
		Reason:        fmt.Sprintf("estorno de %s #%d", entry.Kind, entry.ID),
	}
	if err := tx.CreateEntry(ctx, &audit); err != nil {
		return nil, storeErr(err, "estorno")
	}
	if err := tx.MarkEntryReversed(ctx, entry.ID, actor.Name, now); err != nil {
		return nil, storeErr(err, "lançamento")
	}
	return &audit, nil
}

func (s *SessionService) recordReversal(ctx context.Context, audit []models.Arremate) {
	for _, a := range audit {
		metrics.LedgerEntries.WithLabelValues(string(models.KindEstorno)).Inc()
		metrics.LedgerUnits.WithLabelValues(string(models.KindEstorno)).Add(float64(a.Quantity))
	}
	cache.InvalidateQueue(ctx)
}

// RegisterLoss writes off damaged units from an OP's pending balance
func (s *SessionService) RegisterLoss(ctx context.Context, actor models.Actor, req models.RegisterLossRequest) (*models.Arremate, error) {
	if req.OrderNumber <= 0 {
		return nil, s.outcome("register_loss", apperr.Validation("numero_op é obrigatório"))
	}
	if req.Quantity <= 0 {
		return nil, s.outcome("register_loss", apperr.Validation("quantidade deve ser maior que zero"))
	}
	if err := requirePermission(ctx, s.perms, actor, CapRegisterLoss); err != nil {
		return nil, s.outcome("register_loss", err)
	}

	var entry *models.Arremate
	err := s.store.RunInTx(ctx, func(tx SessionTx) error {
		order, err := tx.GetOrder(ctx, req.OrderNumber)
		if err != nil {
			return storeErr(err, "OP")
		}
		variant := models.NormalizeVariant(order.Variant)

		locked, err := tx.TryLockProductVariant(ctx, order.ProductID, variant)
		if err != nil {
			return apperr.Internal(err)
		}
		if !locked {
			metrics.LockConflicts.Inc()
			return apperr.Conflict("este produto está sendo atribuído por outra pessoa, tente novamente")
		}

		finished, err := tx.SumFinished(ctx, order.Number, variant)
		if err != nil {
			return apperr.Internal(err)
		}
		if available := AvailableBalance(order, finished); req.Quantity > available {
			return apperr.Conflict("quantidade de perda excede o saldo da OP").
				WithDetail("disponivel", available).
				WithDetail("solicitado", req.Quantity)
		}

		entry = &models.Arremate{
			OrderNumber: order.Number,
			ProductID:   order.ProductID,
			Variant:     variant,
			Quantity:    req.Quantity,
			RecordedBy:  actor.Name,
			Kind:        models.KindPerda,
			Points:      decimal.Zero,
			Reason:      req.Reason,
		}
		return storeErr(tx.CreateEntry(ctx, entry), "perda")
	})
	if err != nil {
		return nil, s.outcome("register_loss", err)
	}

	metrics.LedgerEntries.WithLabelValues(string(models.KindPerda)).Inc()
	metrics.LedgerUnits.WithLabelValues(string(models.KindPerda)).Add(float64(entry.Quantity))
	cache.InvalidateQueue(ctx)
	s.outcome("register_loss", nil)
	s.log.Info("loss registered",
		zap.Int("entry_id", entry.ID),
		zap.Int("order", entry.OrderNumber),
		zap.Int("quantity", entry.Quantity),
		zap.String("by", actor.Name),
	)
	return entry, nil
}

// SetWorkerStatus applies a supervisor override. PRODUZINDO is owned by the
// session state machine and cannot be set by hand.
func (s *SessionService) SetWorkerStatus(ctx context.Context, actor models.Actor, workerID int, status models.WorkerStatus) error {
	if workerID <= 0 {
		return s.outcome("set_status", apperr.Validation("id do tiktik inválido"))
	}
	if !status.Valid() || status == models.WorkerProducing {
		return s.outcome("set_status", apperr.Validation("status inválido").WithDetail("status", status))
	}
	if err := requirePermission(ctx, s.perms, actor, CapSetWorkerStatus); err != nil {
		return s.outcome("set_status", err)
	}

	err := s.store.RunInTx(ctx, func(tx SessionTx) error {
		worker, err := tx.GetWorkerForUpdate(ctx, workerID)
		if err != nil {
			return storeErr(err, "tiktik")
		}
		if worker.CurrentSessionID != nil {
			return apperr.Conflict("tiktik %s possui uma tarefa em andamento", worker.Name).
				WithDetail("id_sessao", *worker.CurrentSessionID)
		}
		return storeErr(tx.SetWorkerStatus(ctx, worker.ID, status, s.now()), "tiktik")
	})
	if err != nil {
		return s.outcome("set_status", err)
	}

	s.outcome("set_status", nil)
	s.log.Info("worker status set",
		zap.Int("worker_id", workerID),
		zap.String("status", string(status)),
		zap.String("by", actor.Name),
	)
	return nil
}

// outcome counts the result of an operation and normalizes err
func (s *SessionService) outcome(op string, err error) error {
	if err == nil {
		metrics.SessionTransitions.WithLabelValues(op, "ok").Inc()
		return nil
	}
	appErr := apperr.From(err)
	metrics.SessionTransitions.WithLabelValues(op, string(appErr.Kind)).Inc()
	if appErr.Kind == apperr.KindInternal {
		s.log.Error("operation failed", zap.String("operation", op), zap.Error(err))
	}
	return appErr
}
