package services

import (
	"context"
	"time"

	"arremate-backend/internal/apperr"
	"arremate-backend/internal/models"
	"arremate-backend/internal/timeutil"
)

// WorkerService builds the worker-status dashboard
type WorkerService struct {
	reader FloorReader
	now    func() time.Time
}

func NewWorkerService(reader FloorReader) *WorkerService {
	return &WorkerService{reader: reader, now: timeutil.Now}
}

// SetClock replaces the time source
func (s *WorkerService) SetClock(now func() time.Time) {
	s.now = now
}

// StatusBoard returns every active worker with its effective status and,
// when producing, the running task's progress
func (s *WorkerService) StatusBoard(ctx context.Context) ([]models.WorkerStatusView, error) {
	now := s.now()

	workers, err := s.reader.ListWorkers(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	running, err := s.reader.ListRunningSessions(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	byWorker := make(map[int]models.RunningSession, len(running))
	var productIDs []int
	for _, r := range running {
		byWorker[r.WorkerID] = r
		productIDs = append(productIDs, r.ProductID)
	}
	averages, err := s.reader.AverageSecondsPerUnit(ctx, productIDs)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	views := make([]models.WorkerStatusView, 0, len(workers))
	for i := range workers {
		w := &workers[i]
		view := models.WorkerStatusView{
			WorkerID:        w.ID,
			Name:            w.Name,
			Status:          w.EffectiveStatus(now),
			StatusChangedAt: w.EffectiveStatusChangedAt(now),
			InWorkingWindow: timeutil.InWorkingWindow(w.Schedule, now),
		}
		if r, ok := byWorker[w.ID]; ok {
			view.Session = summarize(w, r, averages, now)
		}
		views = append(views, view)
	}
	return views, nil
}

func summarize(w *models.Worker, r models.RunningSession, averages map[int]float64, now time.Time) *models.SessionSummary {
	summary := &models.SessionSummary{
		SessionID:          r.SessionID,
		ProductID:          r.ProductID,
		ProductName:        r.ProductName,
		Variant:            r.Variant,
		DeliveredQuantity:  r.DeliveredQuantity,
		StartedAt:          r.StartedAt,
		ElapsedRealSeconds: netSeconds(w.Schedule, r.StartedAt, now),
	}
	if avg, ok := averages[r.ProductID]; ok && avg > 0 {
		expected := int(avg*float64(r.DeliveredQuantity) + 0.5)
		if expected > 0 {
			ratio := float64(summary.ElapsedRealSeconds) / float64(expected)
			summary.ExpectedSeconds = &expected
			summary.ProgressRatio = &ratio
		}
	}
	return summary
}
