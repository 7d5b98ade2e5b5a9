package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"arremate-backend/internal/apperr"
	"arremate-backend/internal/metrics"
	"arremate-backend/internal/models"
	"arremate-backend/internal/timeutil"
)

// slownessFactor is how far past the expected time a task must run to be
// reported as critically slow
const slownessFactor = 1.2

// AlertPublisher receives every non-empty poll result
type AlertPublisher interface {
	Publish(alerts []models.Alert)
}

// AlertService evaluates idleness, slowness and queued system events. It
// keeps no state between calls; cooldowns live on the worker rows.
type AlertService struct {
	store     AlertStore
	publisher AlertPublisher
	log       *zap.Logger
	now       func() time.Time
}

func NewAlertService(store AlertStore, log *zap.Logger) *AlertService {
	return &AlertService{store: store, log: log.Named("alerts"), now: timeutil.Now}
}

// SetPublisher wires a broadcaster for emitted alerts
func (s *AlertService) SetPublisher(p AlertPublisher) {
	s.publisher = p
}

// SetClock replaces the time source
func (s *AlertService) SetClock(now func() time.Time) {
	s.now = now
}

// Check runs one evaluation pass and returns the alerts due right now
func (s *AlertService) Check(ctx context.Context) ([]models.Alert, error) {
	now := s.now()

	configs, err := s.store.ListAlertConfigs(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	enabled := make(map[string]models.AlertConfig)
	var eventTypes []string
	for _, c := range configs {
		if !c.Enabled {
			continue
		}
		enabled[c.Type] = c
		if c.Type != models.AlertIdleness && c.Type != models.AlertSlowness {
			eventTypes = append(eventTypes, c.Type)
		}
	}

	var alerts []models.Alert
	_, idleOn := enabled[models.AlertIdleness]
	_, slowOn := enabled[models.AlertSlowness]
	if idleOn || slowOn {
		workers, err := s.store.ListWorkers(ctx)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if idleOn {
			idle, err := s.checkIdleness(ctx, enabled[models.AlertIdleness], workers, now)
			if err != nil {
				return nil, err
			}
			alerts = append(alerts, idle...)
		}
		if slowOn {
			slow, err := s.checkSlowness(ctx, enabled[models.AlertSlowness], workers, now)
			if err != nil {
				return nil, err
			}
			alerts = append(alerts, slow...)
		}
	}

	events, err := s.drainEvents(ctx, enabled, eventTypes)
	if err != nil {
		return nil, err
	}
	alerts = append(alerts, events...)

	for _, a := range alerts {
		metrics.AlertsEmitted.WithLabelValues(a.Type).Inc()
	}
	if len(alerts) > 0 {
		s.log.Info("alerts emitted", zap.Int("count", len(alerts)))
		if s.publisher != nil {
			s.publisher.Publish(alerts)
		}
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	return alerts, nil
}

func repeatWindow(c models.AlertConfig) time.Duration {
	return time.Duration(c.RepeatMinutes) * time.Minute
}

func cooledDown(last *time.Time, now time.Time, repeat time.Duration) bool {
	return last == nil || now.Sub(*last) >= repeat
}

// netSeconds is the working time in [from, now] once breaks are removed
func netSeconds(schedule models.Schedule, from, now time.Time) int {
	if !now.After(from) {
		return 0
	}
	elapsed := int(math.Round(now.Sub(from).Seconds()))
	net := elapsed - timeutil.OverlapSeconds(schedule, from.In(now.Location()), now)
	if net < 0 {
		return 0
	}
	return net
}

// IdleSince is when a free worker became idle: the later of the effective
// status change and the last task finished today
func IdleSince(w *models.Worker, lastFinish *time.Time, now time.Time) time.Time {
	since := w.EffectiveStatusChangedAt(now)
	if lastFinish != nil && lastFinish.After(since) {
		since = *lastFinish
	}
	return since
}

func (s *AlertService) checkIdleness(ctx context.Context, cfg models.AlertConfig, workers []models.Worker, now time.Time) ([]models.Alert, error) {
	lastFinish, err := s.store.LastFinishedAt(ctx, timeutil.StartOfDay(now))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	repeat := repeatWindow(cfg)
	trigger := time.Duration(cfg.TriggerMinutes) * time.Minute

	var alerts []models.Alert
	for i := range workers {
		w := &workers[i]
		if w.EffectiveStatus(now) != models.WorkerFree || w.CurrentSessionID != nil {
			continue
		}
		if !cooledDown(w.LastIdleAlertAt, now, repeat) {
			continue
		}
		var finish *time.Time
		if at, ok := lastFinish[w.ID]; ok {
			finish = &at
		}
		// wall clock, breaks included
		idle := now.Sub(IdleSince(w, finish, now))
		if idle < trigger {
			continue
		}

		won, err := s.store.StampIdleAlert(ctx, w.ID, now, now.Add(-repeat))
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if !won {
			continue
		}
		id := w.ID
		alerts = append(alerts, models.Alert{
			Type:        models.AlertIdleness,
			Message:     fmt.Sprintf("%s está ocioso(a) há %d minutos", w.Name, int(idle.Minutes())),
			Severity:    cfg.Severity,
			WorkerID:    &id,
			WorkerName:  w.Name,
			NotifyPopup: cfg.NotifyPopup,
			CreatedAt:   now,
		})
	}
	return alerts, nil
}

func (s *AlertService) checkSlowness(ctx context.Context, cfg models.AlertConfig, workers []models.Worker, now time.Time) ([]models.Alert, error) {
	running, err := s.store.ListRunningSessions(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(running) == 0 {
		return nil, nil
	}
	byWorker := make(map[int]models.RunningSession, len(running))
	var productIDs []int
	seen := make(map[int]bool)
	for _, r := range running {
		byWorker[r.WorkerID] = r
		if !seen[r.ProductID] {
			seen[r.ProductID] = true
			productIDs = append(productIDs, r.ProductID)
		}
	}
	averages, err := s.store.AverageSecondsPerUnit(ctx, productIDs)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	repeat := repeatWindow(cfg)
	trigger := cfg.TriggerMinutes * 60

	var alerts []models.Alert
	for i := range workers {
		w := &workers[i]
		if w.Status != models.WorkerProducing {
			continue
		}
		session, ok := byWorker[w.ID]
		if !ok {
			continue
		}
		if !cooledDown(w.LastSlowAlertAt, now, repeat) {
			continue
		}
		avg, ok := averages[session.ProductID]
		if !ok || avg <= 0 {
			continue
		}

		elapsed := netSeconds(w.Schedule, session.StartedAt, now)
		expected := avg * float64(session.DeliveredQuantity)
		if elapsed < trigger || float64(elapsed) < expected*slownessFactor {
			continue
		}

		won, err := s.store.StampSlowAlert(ctx, w.ID, now, now.Add(-repeat))
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if !won {
			continue
		}
		id := w.ID
		over := int(math.Round((float64(elapsed)/expected - 1) * 100))
		alerts = append(alerts, models.Alert{
			Type: models.AlertSlowness,
			Message: fmt.Sprintf("%s está %d%% acima do tempo esperado em %s (%d peças)",
				w.Name, over, productLabel(session), session.DeliveredQuantity),
			Severity:    cfg.Severity,
			WorkerID:    &id,
			WorkerName:  w.Name,
			NotifyPopup: cfg.NotifyPopup,
			CreatedAt:   now,
		})
	}
	return alerts, nil
}

func productLabel(r models.RunningSession) string {
	if r.Variant == "" {
		return r.ProductName
	}
	return r.ProductName + " " + r.Variant
}

// drainEvents emits and marks read every unread event of an enabled type
func (s *AlertService) drainEvents(ctx context.Context, enabled map[string]models.AlertConfig, types []string) ([]models.Alert, error) {
	if len(types) == 0 {
		return nil, nil
	}
	var alerts []models.Alert
	err := s.store.RunEventTx(ctx, func(q EventQueue) error {
		events, err := q.ClaimUnreadEvents(ctx, types)
		if err != nil {
			return err
		}
		ids := make([]int, 0, len(events))
		for _, e := range events {
			cfg := enabled[e.Type]
			severity := e.Severity
			if severity == "" {
				severity = cfg.Severity
			}
			alerts = append(alerts, models.Alert{
				Type:        e.Type,
				Message:     e.Message,
				Severity:    severity,
				NotifyPopup: cfg.NotifyPopup,
				CreatedAt:   e.CreatedAt,
			})
			ids = append(ids, e.ID)
		}
		return q.MarkEventsRead(ctx, ids)
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return alerts, nil
}
