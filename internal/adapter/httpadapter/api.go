package httpadapter

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/couchcryptid/covid-district-dashboard/internal/adapter/geojson"
	"github.com/couchcryptid/covid-district-dashboard/internal/adapter/tabular"
	"github.com/couchcryptid/covid-district-dashboard/internal/dashboard"
	"github.com/couchcryptid/covid-district-dashboard/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/samber/lo"
)

const (
	contentTypeCSV     = "text/csv; charset=utf-8"
	contentTypeXLSX    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeGeoJSON = "application/geo+json"
)

type summaryResponse struct {
	SelectionID string                `json:"selection_id"`
	Records     int                   `json:"records"`
	Summary     *domain.AggregateView `json:"summary"`
	Notices     []domain.Notice       `json:"notices,omitempty"`
}

type rankingResponse struct {
	SelectionID string                 `json:"selection_id"`
	Ranking     []domain.DistrictTotal `json:"ranking"`
	Shares      []domain.DistrictShare `json:"shares"`
	Notices     []domain.Notice        `json:"notices,omitempty"`
}

type trendResponse struct {
	District string               `json:"district,omitempty"`
	Trend    []domain.PeriodTotal `json:"trend"`
}

type pivotResponse struct {
	Districts []string  `json:"districts"`
	Periods   []string  `json:"periods"`
	Cells     [][]int64 `json:"cells"`
	RowTotals []int64   `json:"row_totals"`
}

type periodOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, ok := s.compute(w, r)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, report)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	report, ok := s.compute(w, r)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, summaryResponse{
		SelectionID: report.ID,
		Records:     report.Records,
		Summary:     report.Summary,
		Notices:     report.Notices,
	})
}

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	report, ok := s.compute(w, r)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, rankingResponse{
		SelectionID: report.ID,
		Ranking:     nonNil(report.Ranking),
		Shares:      nonNil(report.Shares),
		Notices:     report.Notices,
	})
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	sel, _, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	district := strings.TrimSpace(r.URL.Query().Get("trend_district"))
	trend, err := s.svc.Trend(sel, district)
	if err != nil {
		s.writeComputeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, trendResponse{
		District: domain.NormalizeDistrict(district),
		Trend:    trend,
	})
}

func (s *Server) handlePivot(w http.ResponseWriter, r *http.Request) {
	report, ok := s.compute(w, r)
	if !ok {
		return
	}
	p := report.Pivot
	sharedobs.WriteJSON(w, http.StatusOK, pivotResponse{
		Districts: nonNil(p.Districts),
		Periods:   nonNil(p.PeriodLabels()),
		Cells:     nonNil(p.Cells),
		RowTotals: nonNil(p.RowTotals()),
	})
}

func (s *Server) handleGeo(w http.ResponseWriter, r *http.Request) {
	report, ok := s.compute(w, r)
	if !ok {
		return
	}
	data, err := geojson.Marshal(report.Geo)
	if err != nil {
		s.writeComputeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentTypeGeoJSON)
	if !report.GeoPeriod.IsZero() {
		w.Header().Set("X-Geo-Period", report.GeoPeriod.Label())
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	sel, _, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := s.svc.View(sel)
	if err != nil {
		s.writeComputeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := tabular.WriteCSV(&buf, s.svc.Dataset().Columns, view); err != nil {
		s.writeComputeError(w, err)
		return
	}
	writeAttachment(w, contentTypeCSV, "covid-view.csv", buf.Bytes())
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	sel, topN, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := s.svc.View(sel)
	if err != nil {
		s.writeComputeError(w, err)
		return
	}
	if topN < 0 {
		topN = s.svc.TopN()
	}
	ranking, err := domain.Rank(view, topN)
	if err != nil && !errors.Is(err, domain.ErrEmptyView) {
		s.writeComputeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := tabular.WriteXLSX(&buf, s.svc.Dataset().Columns, view, ranking, domain.BuildPivot(view)); err != nil {
		s.writeComputeError(w, err)
		return
	}
	writeAttachment(w, contentTypeXLSX, "covid-view.xlsx", buf.Bytes())
}

func (s *Server) handleDistricts(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, nonNil(s.svc.Districts()))
}

func (s *Server) handlePeriods(w http.ResponseWriter, _ *http.Request) {
	options := lo.Map(s.svc.Periods(), func(p domain.Period, _ int) periodOption {
		return periodOption{Label: p.Label(), Value: fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))}
	})
	sharedobs.WriteJSON(w, http.StatusOK, options)
}

// compute parses the selection and builds the report, writing an error
// response and returning false on failure.
func (s *Server) compute(w http.ResponseWriter, r *http.Request) (domain.Report, bool) {
	sel, topN, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return domain.Report{}, false
	}
	report, err := s.svc.Compute(r.Context(), dashboard.SourceHTTP, sel, topN)
	if err != nil {
		s.writeComputeError(w, err)
		return domain.Report{}, false
	}
	return report, true
}

func (s *Server) writeComputeError(w http.ResponseWriter, err error) {
	var selErr *domain.SelectionError
	if errors.As(err, &selErr) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.logger.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, errors.New("internal error"))
}

// parseQuery reads district=, month= and top= from the query string.
// District and month accept repeated parameters, comma-separated lists, or both.
// An absent top yields dashboard.DefaultRanking; top=0 asks for an empty ranking.
func parseQuery(r *http.Request) (domain.FilterSelection, int, error) {
	q := r.URL.Query()
	sel := domain.FilterSelection{
		Districts: splitValues(q["district"]),
		Months:    splitValues(q["month"]),
	}

	topN := dashboard.DefaultRanking
	if v := strings.TrimSpace(q.Get("top")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return domain.FilterSelection{}, 0, fmt.Errorf("invalid top %q: must be a non-negative integer", v)
		}
		topN = n
	}
	return sel, topN, nil
}

func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
