package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"arremate-backend/internal/models"
	"arremate-backend/internal/repositories"
)

// fakeState is the whole in-memory database. Values are stored by value so
// a transaction can work on a copy and be discarded on error.
type fakeState struct {
	workers  map[int]models.Worker
	sessions map[int]models.WorkSession
	entries  map[int]models.Arremate
	orders   map[int]models.ProductionOrder
	events   map[int]models.SystemEvent
	nextID   int
}

func newFakeState() *fakeState {
	return &fakeState{
		workers:  make(map[int]models.Worker),
		sessions: make(map[int]models.WorkSession),
		entries:  make(map[int]models.Arremate),
		orders:   make(map[int]models.ProductionOrder),
		events:   make(map[int]models.SystemEvent),
		nextID:   1000,
	}
}

func (s *fakeState) clone() *fakeState {
	c := newFakeState()
	c.nextID = s.nextID
	for k, v := range s.workers {
		c.workers[k] = v
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	for k, v := range s.entries {
		c.entries[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	return c
}

func (s *fakeState) id() int {
	s.nextID++
	return s.nextID
}

// fakeStore serializes transactions with a mutex and commits the working
// copy only when fn succeeds
type fakeStore struct {
	mu      sync.Mutex
	state   *fakeState
	configs []models.AlertConfig
	held    map[string]bool
	denied  map[string]bool
	price   decimal.Decimal
	now     time.Time
	txCount int
}

func newFakeStore(now time.Time) *fakeStore {
	return &fakeStore{
		state:  newFakeState(),
		held:   make(map[string]bool),
		denied: make(map[string]bool),
		price:  decimal.NewFromFloat(0.5),
		now:    now,
	}
}

func lockKey(productID int, variant string) string {
	return fmt.Sprintf("%d|%s", productID, variant)
}

func (f *fakeStore) addWorker(w models.Worker) {
	w.Active = true
	f.state.workers[w.ID] = w
}

func (f *fakeStore) addOrder(number, productID int, variant string, produced int, created time.Time) {
	f.state.orders[number] = models.ProductionOrder{
		Number:            number,
		ProductID:         productID,
		ProductName:       fmt.Sprintf("Produto %d", productID),
		Variant:           variant,
		RequestedQuantity: produced,
		Stages:            []models.Stage{{Name: "Costura", Launched: true, Quantity: intPtr(produced)}},
		Status:            "produzindo",
		CreatedAt:         created,
	}
}

func (f *fakeStore) worker(id int) models.Worker {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.workers[id]
}

func (f *fakeStore) session(id int) (models.WorkSession, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.state.sessions[id]
	return s, ok
}

func (f *fakeStore) entriesOfKind(kind models.ArremateKind) []models.Arremate {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Arremate
	for _, e := range f.state.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeStore) unreadEvents() []models.SystemEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.SystemEvent
	for _, e := range f.state.events {
		if !e.Read {
			out = append(out, e)
		}
	}
	return out
}

// SessionStore

func (f *fakeStore) RunInTx(ctx context.Context, fn func(tx SessionTx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txCount++
	tx := &fakeTx{f: f, s: f.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	f.state = tx.s
	return nil
}

// PermissionChecker and PointPricer

func (f *fakeStore) HasPermission(ctx context.Context, userID int, capability string) (bool, error) {
	return !f.denied[capability], nil
}

func (f *fakeStore) PointValueFor(ctx context.Context, productID int) (decimal.Decimal, error) {
	return f.price, nil
}

// BalanceReader

func (f *fakeStore) GetOrder(ctx context.Context, number int) (*models.ProductionOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return getOrder(f.state, number)
}

func (f *fakeStore) ListOpenOrders(ctx context.Context, productID int) ([]models.ProductionOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ProductionOrder
	for _, o := range f.state.orders {
		if o.Status == "cancelada" || (productID > 0 && o.ProductID != productID) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (f *fakeStore) SumFinished(ctx context.Context, orderNumber int, variant string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sumFinished(f.state, orderNumber, variant), nil
}

func (f *fakeStore) SumFinishedByOrder(ctx context.Context, orderNumbers []int) (map[models.OrderVariantKey]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := make(map[int]bool, len(orderNumbers))
	for _, n := range orderNumbers {
		wanted[n] = true
	}
	out := make(map[models.OrderVariantKey]int)
	for _, e := range f.state.entries {
		if wanted[e.OrderNumber] && e.CountsAsFinished() {
			out[models.OrderVariantKey{OrderNumber: e.OrderNumber, Variant: e.Variant}] += e.Quantity
		}
	}
	return out, nil
}

// EntryLister

func (f *fakeStore) ListEntries(ctx context.Context, flt models.ArremateFilter) ([]models.Arremate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Arremate
	for _, e := range f.state.entries {
		switch {
		case flt.OrderNumber > 0 && e.OrderNumber != flt.OrderNumber:
			continue
		case flt.WorkerID > 0 && (e.WorkerID == nil || *e.WorkerID != flt.WorkerID):
			continue
		case flt.Kind != "" && e.Kind != flt.Kind:
			continue
		case !flt.IncludeReversed && !e.Active():
			continue
		case flt.StartDate != nil && e.CreatedAt.Before(*flt.StartDate):
			continue
		case flt.EndDate != nil && e.CreatedAt.After(*flt.EndDate):
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// FloorReader

func (f *fakeStore) GetWorker(ctx context.Context, id int) (*models.Worker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.state.workers[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &w, nil
}

func (f *fakeStore) ListWorkers(ctx context.Context) ([]models.Worker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Worker
	for _, w := range f.state.workers {
		if w.Active {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) ListRunningSessions(ctx context.Context) ([]models.RunningSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.RunningSession
	for _, s := range f.state.sessions {
		if s.Status != models.SessionInProgress {
			continue
		}
		out = append(out, models.RunningSession{
			SessionID:         s.ID,
			WorkerID:          s.WorkerID,
			ProductID:         s.ProductID,
			ProductName:       fmt.Sprintf("Produto %d", s.ProductID),
			Variant:           s.Variant,
			DeliveredQuantity: s.DeliveredQuantity,
			StartedAt:         s.StartedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}

func (f *fakeStore) AverageSecondsPerUnit(ctx context.Context, productIDs []int) (map[int]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := make(map[int]bool, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = true
	}
	seconds := make(map[int]int)
	units := make(map[int]int)
	for _, s := range f.state.sessions {
		if !wanted[s.ProductID] || s.Status != models.SessionFinished {
			continue
		}
		if s.FinishedQuantity == nil || *s.FinishedQuantity <= 0 || s.RealSeconds == nil {
			continue
		}
		seconds[s.ProductID] += *s.RealSeconds
		units[s.ProductID] += *s.FinishedQuantity
	}
	out := make(map[int]float64)
	for id, n := range units {
		out[id] = float64(seconds[id]) / float64(n)
	}
	return out, nil
}

func (f *fakeStore) LastFinishedAt(ctx context.Context, since time.Time) (map[int]time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int]time.Time)
	for _, s := range f.state.sessions {
		if s.Status == models.SessionInProgress || s.EndedAt == nil || s.EndedAt.Before(since) {
			continue
		}
		if last, ok := out[s.WorkerID]; !ok || s.EndedAt.After(last) {
			out[s.WorkerID] = *s.EndedAt
		}
	}
	return out, nil
}

func (f *fakeStore) ListWorkerSessions(ctx context.Context, workerID int, from, to time.Time) ([]models.WorkSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.WorkSession
	for _, s := range f.state.sessions {
		if s.WorkerID == workerID && !s.StartedAt.Before(from) && s.StartedAt.Before(to) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

// AlertStore

func (f *fakeStore) ListAlertConfigs(ctx context.Context) ([]models.AlertConfig, error) {
	return f.configs, nil
}

func (f *fakeStore) StampIdleAlert(ctx context.Context, workerID int, at, notAfter time.Time) (bool, error) {
	return f.stamp(workerID, at, notAfter, func(w *models.Worker) **time.Time { return &w.LastIdleAlertAt })
}

func (f *fakeStore) StampSlowAlert(ctx context.Context, workerID int, at, notAfter time.Time) (bool, error) {
	return f.stamp(workerID, at, notAfter, func(w *models.Worker) **time.Time { return &w.LastSlowAlertAt })
}

func (f *fakeStore) stamp(workerID int, at, notAfter time.Time, field func(*models.Worker) **time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.state.workers[workerID]
	if !ok {
		return false, nil
	}
	last := field(&w)
	if *last != nil && (*last).After(notAfter) {
		return false, nil
	}
	stamped := at
	*last = &stamped
	f.state.workers[workerID] = w
	return true, nil
}

func (f *fakeStore) RunEventTx(ctx context.Context, fn func(q EventQueue) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx := &fakeTx{f: f, s: f.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	f.state = tx.s
	return nil
}

// fakeTx is one unit of work over a private copy of the state
type fakeTx struct {
	f *fakeStore
	s *fakeState
}

func getOrder(s *fakeState, number int) (*models.ProductionOrder, error) {
	o, ok := s.orders[number]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &o, nil
}

func sumFinished(s *fakeState, orderNumber int, variant string) int {
	total := 0
	for _, e := range s.entries {
		if e.OrderNumber == orderNumber && e.Variant == variant && e.CountsAsFinished() {
			total += e.Quantity
		}
	}
	return total
}

func (t *fakeTx) TryLockProductVariant(ctx context.Context, productID int, variant string) (bool, error) {
	return !t.f.held[lockKey(productID, variant)], nil
}

func (t *fakeTx) GetWorkerForUpdate(ctx context.Context, id int) (*models.Worker, error) {
	w, ok := t.s.workers[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &w, nil
}

func (t *fakeTx) SetWorkerProducing(ctx context.Context, workerID, sessionID int, at time.Time) error {
	w, ok := t.s.workers[workerID]
	if !ok || w.CurrentSessionID != nil {
		return repositories.ErrStale
	}
	w.Status = models.WorkerProducing
	w.StatusChangedAt = at
	w.CurrentSessionID = intPtr(sessionID)
	t.s.workers[workerID] = w
	return nil
}

func (t *fakeTx) SetWorkerFree(ctx context.Context, workerID int, at time.Time) error {
	w, ok := t.s.workers[workerID]
	if !ok {
		return repositories.ErrNotFound
	}
	w.Status = models.WorkerFree
	w.StatusChangedAt = at
	w.CurrentSessionID = nil
	t.s.workers[workerID] = w
	return nil
}

func (t *fakeTx) SetWorkerStatus(ctx context.Context, workerID int, status models.WorkerStatus, at time.Time) error {
	w, ok := t.s.workers[workerID]
	if !ok {
		return repositories.ErrNotFound
	}
	w.Status = status
	w.StatusChangedAt = at
	t.s.workers[workerID] = w
	return nil
}

func (t *fakeTx) GetOrder(ctx context.Context, number int) (*models.ProductionOrder, error) {
	return getOrder(t.s, number)
}

func (t *fakeTx) GetOrders(ctx context.Context, numbers []int) ([]models.ProductionOrder, error) {
	var out []models.ProductionOrder
	for _, n := range numbers {
		if o, ok := t.s.orders[n]; ok {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (t *fakeTx) SumFinished(ctx context.Context, orderNumber int, variant string) (int, error) {
	return sumFinished(t.s, orderNumber, variant), nil
}

func (t *fakeTx) CreateSession(ctx context.Context, s *models.WorkSession) error {
	s.ID = t.s.id()
	s.Status = models.SessionInProgress
	t.s.sessions[s.ID] = *s
	return nil
}

func (t *fakeTx) GetSessionForUpdate(ctx context.Context, id int) (*models.WorkSession, error) {
	s, ok := t.s.sessions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &s, nil
}

func (t *fakeTx) ListActiveSessionOwners(ctx context.Context, productID int, variant string) ([]models.SessionOwner, error) {
	var out []models.SessionOwner
	for _, s := range t.s.sessions {
		if s.Status != models.SessionInProgress || s.ProductID != productID || s.Variant != variant {
			continue
		}
		w := t.s.workers[s.WorkerID]
		out = append(out, models.SessionOwner{SessionID: s.ID, WorkerID: w.ID, WorkerName: w.Name, Schedule: w.Schedule})
	}
	return out, nil
}

func (t *fakeTx) FinalizeSession(ctx context.Context, s *models.WorkSession) error {
	cur, ok := t.s.sessions[s.ID]
	if !ok || cur.Status != models.SessionInProgress {
		return repositories.ErrStale
	}
	done := *s
	done.Status = models.SessionFinished
	t.s.sessions[s.ID] = done
	s.Status = models.SessionFinished
	return nil
}

func (t *fakeTx) DeleteSession(ctx context.Context, id int) error {
	if _, ok := t.s.sessions[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(t.s.sessions, id)
	return nil
}

func (t *fakeTx) MarkSessionReversed(ctx context.Context, id int) error {
	s, ok := t.s.sessions[id]
	if !ok || s.Status != models.SessionFinished {
		return repositories.ErrStale
	}
	s.Status = models.SessionReversed
	t.s.sessions[id] = s
	return nil
}

func (t *fakeTx) CreateEntry(ctx context.Context, a *models.Arremate) error {
	if a.OriginEntryID != nil {
		for _, e := range t.s.entries {
			if e.OriginEntryID != nil && *e.OriginEntryID == *a.OriginEntryID {
				return repositories.ErrDuplicate
			}
		}
	}
	a.ID = t.s.id()
	a.CreatedAt = t.f.now
	t.s.entries[a.ID] = *a
	return nil
}

func (t *fakeTx) GetEntryForUpdate(ctx context.Context, id int) (*models.Arremate, error) {
	e, ok := t.s.entries[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &e, nil
}

func (t *fakeTx) ListSessionEntriesForUpdate(ctx context.Context, sessionID int) ([]models.Arremate, error) {
	var out []models.Arremate
	for _, e := range t.s.entries {
		if e.SessionID != nil && *e.SessionID == sessionID && e.Kind == models.KindProducao && e.Active() {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *fakeTx) MarkEntryReversed(ctx context.Context, id int, by string, at time.Time) error {
	e, ok := t.s.entries[id]
	if !ok || !e.Active() {
		return repositories.ErrStale
	}
	stamped := at
	e.ReversedAt = &stamped
	e.ReversedBy = by
	t.s.entries[id] = e
	return nil
}

func (t *fakeTx) CreateSystemEvent(ctx context.Context, e *models.SystemEvent) error {
	e.ID = t.s.id()
	e.CreatedAt = t.f.now
	t.s.events[e.ID] = *e
	return nil
}

func (t *fakeTx) ClaimUnreadEvents(ctx context.Context, types []string) ([]models.SystemEvent, error) {
	wanted := make(map[string]bool, len(types))
	for _, ty := range types {
		wanted[ty] = true
	}
	var out []models.SystemEvent
	for _, e := range t.s.events {
		if !e.Read && wanted[e.Type] {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *fakeTx) MarkEventsRead(ctx context.Context, ids []int) error {
	for _, id := range ids {
		e := t.s.events[id]
		e.Read = true
		t.s.events[id] = e
	}
	return nil
}
