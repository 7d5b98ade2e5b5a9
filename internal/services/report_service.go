package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/shopspring/decimal"

	"arremate-backend/internal/apperr"
	"arremate-backend/internal/models"
	"arremate-backend/internal/timeutil"
)

// WorkerReportData holds one worker's finishing output for a day
type WorkerReportData struct {
	Worker      *models.Worker
	Day         time.Time
	Sessions    []models.WorkSession
	Entries     []models.Arremate
	TotalUnits  int
	TotalLosses int
	TotalPoints decimal.Decimal
}

// ReportService renders printable production slips
type ReportService struct {
	floor   FloorReader
	entries EntryLister
}

func NewReportService(floor FloorReader, entries EntryLister) *ReportService {
	return &ReportService{floor: floor, entries: entries}
}

// WorkerDayData collects the data behind a worker's daily slip
func (s *ReportService) WorkerDayData(ctx context.Context, workerID int, day time.Time) (*WorkerReportData, error) {
	worker, err := s.floor.GetWorker(ctx, workerID)
	if err != nil {
		return nil, storeErr(err, "tiktik")
	}

	from := timeutil.StartOfDay(day)
	to := from.AddDate(0, 0, 1)
	sessions, err := s.floor.ListWorkerSessions(ctx, workerID, from, to)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	last := to.Add(-time.Nanosecond)
	entries, err := s.entries.ListEntries(ctx, models.ArremateFilter{
		WorkerID:        workerID,
		StartDate:       &from,
		EndDate:         &last,
		IncludeReversed: true,
		Limit:           500,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	data := &WorkerReportData{Worker: worker, Day: from, Sessions: sessions, Entries: entries, TotalPoints: decimal.Zero}
	for _, e := range entries {
		if !e.CountsAsFinished() {
			continue
		}
		if e.Kind == models.KindPerda {
			data.TotalLosses += e.Quantity
			continue
		}
		data.TotalUnits += e.Quantity
		data.TotalPoints = data.TotalPoints.Add(e.Points)
	}
	return data, nil
}

// WorkerDayPDF renders the daily slip
func (s *ReportService) WorkerDayPDF(ctx context.Context, workerID int, day time.Time) ([]byte, error) {
	data, err := s.WorkerDayData(ctx, workerID, day)
	if err != nil {
		return nil, err
	}
	return GenerateWorkerPDF(data)
}

// GenerateWorkerPDF lays out a WorkerReportData on one A4 page
func GenerateWorkerPDF(data *WorkerReportData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, tr("Arremate - Relatório Diário"), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Gerado em: %s", timeutil.FormatFactory(timeutil.Now(), timeutil.DisplayLayout)), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Tiktik", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, tr("Nome: "+data.Worker.Name), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, "Dia: "+timeutil.FormatFactory(data.Day, "02/01/2006"), "RB", 1, "L", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, tr("Sessões"), "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(20, 7, "#", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, tr("Início"), "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Fim", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Entregue", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Finalizada", "1", 0, "C", true, 0, "")
	pdf.CellFormat(50, 7, "Tempo real (min)", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, ss := range data.Sessions {
		end, finished, minutes := "-", "-", "-"
		if ss.EndedAt != nil {
			end = timeutil.FormatFactory(*ss.EndedAt, timeutil.ClockLayout)
		}
		if ss.FinishedQuantity != nil {
			finished = fmt.Sprintf("%d", *ss.FinishedQuantity)
		}
		if ss.RealSeconds != nil {
			minutes = fmt.Sprintf("%.1f", float64(*ss.RealSeconds)/60)
		}
		if ss.Status == models.SessionReversed {
			finished += " (estornada)"
		}
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", ss.ID), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, timeutil.FormatFactory(ss.StartedAt, timeutil.ClockLayout), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, end, "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", ss.DeliveredQuantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, finished, "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 6, minutes, "1", 1, "C", false, 0, "")
	}
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 12)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(190, 8, tr("Lançamentos"), "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(25, 7, "OP", "1", 0, "C", true, 0, "")
	pdf.CellFormat(45, 7, "Variante", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Tipo", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "Qtd", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Pontos", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 7, "Hora", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, e := range data.Entries {
		kind := string(e.Kind)
		if !e.Active() {
			kind += "*"
		}
		variant := e.Variant
		if variant == "" {
			variant = "-"
		}
		pdf.CellFormat(25, 6, fmt.Sprintf("%d", e.OrderNumber), "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 6, tr(variant), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, kind, "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%d", e.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, e.Points.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, timeutil.FormatFactory(e.CreatedAt, timeutil.ClockLayout), "1", 1, "C", false, 0, "")
	}
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(190, 5, "* estornado", "", 1, "L", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Arial", "B", 12)
	pdf.SetFillColor(200, 255, 200)
	pdf.CellFormat(63, 10, fmt.Sprintf("Arrematadas: %d", data.TotalUnits), "1", 0, "C", true, 0, "")
	pdf.CellFormat(63, 10, fmt.Sprintf("Perdas: %d", data.TotalLosses), "1", 0, "C", true, 0, "")
	pdf.CellFormat(64, 10, "Pontos: "+data.TotalPoints.StringFixed(2), "1", 1, "C", true, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
