// Package dashboard holds the loaded dataset and recomputes views for every
// consumer (HTTP API, Kafka report pipeline, CLI) under one empty-selection
// policy.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/covid-district-dashboard/internal/domain"
	"github.com/couchcryptid/covid-district-dashboard/internal/observability"
)

// Recompute sources, used as a metric label.
const (
	SourceHTTP  = "http"
	SourceKafka = "kafka"
	SourceCLI   = "cli"
)

// Options configures how selections are interpreted.
type Options struct {
	Policy domain.EmptyPolicy
	TopN   int
}

// Service recomputes reports from a dataset loaded once at startup. The
// dataset and coordinate table are never mutated, so a Service is safe for
// concurrent use.
type Service struct {
	dataset  domain.Dataset
	warnings []domain.CoercionWarning
	coords   domain.CoordinateTable
	engine   domain.FilterEngine
	topN     int
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewService wraps a loaded dataset. Load warnings are logged once here and
// attached to every report as a skipped_rows notice.
func NewService(ds domain.Dataset, warnings []domain.CoercionWarning, coords domain.CoordinateTable, opts Options, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if opts.TopN <= 0 {
		opts.TopN = 5
	}
	s := &Service{
		dataset:  ds,
		warnings: warnings,
		coords:   coords,
		engine:   domain.NewFilterEngine(opts.Policy),
		topN:     opts.TopN,
		metrics:  metrics,
		logger:   logger,
	}

	metrics.RowsLoaded.Set(float64(ds.Len()))
	metrics.RowsSkipped.Set(float64(len(warnings)))
	for _, w := range warnings {
		logger.Warn("row skipped", "row", w.Row, "column", w.Column, "value", w.Value, "reason", w.Reason)
	}
	logger.Info("dataset ready",
		"records", ds.Len(),
		"skipped", len(warnings),
		"districts", len(ds.Districts()),
		"periods", len(ds.Periods()),
		"coordinates", coords.Len(),
		"empty_selection_policy", opts.Policy.String(),
	)
	return s
}

// Dataset returns the loaded dataset.
func (s *Service) Dataset() domain.Dataset { return s.dataset }

// Coordinates returns the reference coordinate table.
func (s *Service) Coordinates() domain.CoordinateTable { return s.coords }

// Policy returns the empty-selection policy shared by all consumers.
func (s *Service) Policy() domain.EmptyPolicy { return s.engine.Policy() }

// TopN returns the default ranking length.
func (s *Service) TopN() int { return s.topN }

// LoadWarnings returns the rows dropped while loading.
func (s *Service) LoadWarnings() []domain.CoercionWarning { return s.warnings }

// Districts lists the selectable districts.
func (s *Service) Districts() []string { return s.dataset.Districts() }

// Periods lists the selectable periods in chronological order.
func (s *Service) Periods() []domain.Period { return s.dataset.Periods() }

// View filters the dataset by sel.
func (s *Service) View(sel domain.FilterSelection) ([]domain.CaseRecord, error) {
	return s.engine.Apply(s.dataset.Records, sel)
}

// DefaultRanking asks Compute for the configured ranking length.
const DefaultRanking = -1

// Compute filters the dataset and derives every view of the result. A
// negative topN uses the configured default; zero gives an empty ranking. Only an invalid selection fails;
// empty views and unmatched districts become notices on the report.
func (s *Service) Compute(ctx context.Context, source string, sel domain.FilterSelection, topN int) (domain.Report, error) {
	if err := ctx.Err(); err != nil {
		return domain.Report{}, err
	}
	if topN < 0 {
		topN = s.topN
	}
	start := time.Now()

	view, err := s.View(sel)
	if err != nil {
		s.metrics.Recomputes.WithLabelValues(source, "error").Inc()
		return domain.Report{}, err
	}

	report, err := domain.BuildReport(view, sel, s.engine.Policy(), s.coords, topN)
	if err != nil {
		s.metrics.Recomputes.WithLabelValues(source, "error").Inc()
		return domain.Report{}, fmt.Errorf("build report: %w", err)
	}
	if len(s.warnings) > 0 {
		report.Notices = append(report.Notices, domain.Notice{
			Level:   domain.NoticeWarn,
			Code:    domain.NoticeSkippedRows,
			Message: fmt.Sprintf("%d source row(s) could not be read and were skipped", len(s.warnings)),
		})
	}

	for _, w := range report.Unmatched {
		s.logger.Warn("district missing from coordinate table", "district", w.District, "records", w.Records)
	}
	s.metrics.UnmatchedDistricts.Add(float64(len(report.Unmatched)))

	outcome := "ok"
	if report.IsEmpty() {
		outcome = "empty"
	}
	s.metrics.Recomputes.WithLabelValues(source, outcome).Inc()
	s.metrics.RecomputeDuration.Observe(time.Since(start).Seconds())

	s.logger.Debug("report computed",
		"source", source,
		"selection_id", report.ID,
		"records", report.Records,
		"outcome", outcome,
	)
	return report, nil
}

// Trend returns the monthly totals of the selected view, restricted to one
// district when district is non-empty. An empty view yields an empty trend.
func (s *Service) Trend(sel domain.FilterSelection, district string) ([]domain.PeriodTotal, error) {
	view, err := s.View(sel)
	if err != nil {
		return nil, err
	}
	var trend []domain.PeriodTotal
	if district != "" {
		trend, err = domain.DistrictTrend(view, district)
	} else {
		trend, err = domain.MonthlyTrend(view)
	}
	if errors.Is(err, domain.ErrEmptyView) {
		return []domain.PeriodTotal{}, nil
	}
	return trend, err
}

// CheckReadiness reports whether the dataset holds any records.
func (s *Service) CheckReadiness(_ context.Context) error {
	if s.dataset.Len() == 0 {
		return errors.New("dataset has no records")
	}
	return nil
}
