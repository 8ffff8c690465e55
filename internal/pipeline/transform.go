package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/covid-district-dashboard/internal/dashboard"
	"github.com/couchcryptid/covid-district-dashboard/internal/domain"
)

// ReportTransformer implements Transformer by answering each request with a
// report computed by the dashboard service.
type ReportTransformer struct {
	svc    *dashboard.Service
	logger *slog.Logger
}

// NewTransformer creates a ReportTransformer over svc.
func NewTransformer(svc *dashboard.Service, logger *slog.Logger) *ReportTransformer {
	return &ReportTransformer{svc: svc, logger: logger}
}

func (t *ReportTransformer) Transform(ctx context.Context, raw domain.RawMessage) (domain.ReportMessage, error) {
	req, err := domain.ParseReportRequest(raw)
	if err != nil {
		return domain.ReportMessage{}, err
	}

	topN := dashboard.DefaultRanking
	if req.TopN != nil {
		topN = *req.TopN
	}
	report, err := t.svc.Compute(ctx, dashboard.SourceKafka, req.Selection, topN)
	if err != nil {
		return domain.ReportMessage{}, fmt.Errorf("compute report for request %s: %w", req.ID, err)
	}

	t.logger.Debug("report request answered", "request_id", req.ID, "selection_id", report.ID, "records", report.Records)
	return domain.ReportMessage{RequestID: req.ID, Report: report}, nil
}
