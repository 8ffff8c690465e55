package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/couchcryptid/covid-district-dashboard/internal/adapter/reference"
	"github.com/couchcryptid/covid-district-dashboard/internal/adapter/tabular"
	"github.com/couchcryptid/covid-district-dashboard/internal/dashboard"
	"github.com/couchcryptid/covid-district-dashboard/internal/domain"
	"github.com/couchcryptid/covid-district-dashboard/internal/observability"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/spf13/cobra"
)

// app carries the flags shared by every subcommand.
type app struct {
	metrics *observability.Metrics

	dataPath   string
	coordsPath string
	policy     string
	topN       int
	districts  []string
	months     []string
	verbose    bool
}

func newRootCmd(metrics *observability.Metrics) *cobra.Command {
	a := &app{metrics: metrics}

	root := &cobra.Command{
		Use:           "covidctl",
		Short:         "Sri Lanka COVID-19 district case views from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.dataPath, "data", sharedcfg.EnvOrDefault("DATA_PATH", "data/monthly data.csv"), "case table (.csv or .xlsx)")
	pf.StringVar(&a.coordsPath, "coordinates", sharedcfg.EnvOrDefault("COORDINATES_PATH", ""), "district coordinate YAML (built-in table when empty)")
	pf.StringVar(&a.policy, "empty-selection", sharedcfg.EnvOrDefault("EMPTY_SELECTION_POLICY", "all"), "meaning of an empty selection: all or none")
	pf.StringSliceVarP(&a.districts, "district", "d", nil, "districts to include (repeatable or comma-separated)")
	pf.StringSliceVarP(&a.months, "month", "m", nil, "months to include, e.g. Jan-21 or 2021-01")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log load warnings to stderr")

	root.AddCommand(
		summaryCmd(a),
		rankCmd(a),
		trendCmd(a),
		pivotCmd(a),
		geoCmd(a),
		exportCmd(a),
		validateCmd(a),
		coordsCmd(a),
	)
	return root
}

func (a *app) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelError
	if a.verbose {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func (a *app) selection() domain.FilterSelection {
	return domain.FilterSelection{Districts: a.districts, Months: a.months}
}

// service loads the dataset and coordinate table once for this invocation.
func (a *app) service(cmd *cobra.Command) (*dashboard.Service, error) {
	policy, err := domain.ParseEmptyPolicy(a.policy)
	if err != nil {
		return nil, err
	}
	ds, warnings, err := tabular.LoadFile(a.dataPath)
	if err != nil {
		return nil, err
	}
	coords, err := reference.Load(a.coordsPath)
	if err != nil {
		return nil, err
	}
	return dashboard.NewService(ds, warnings, coords, dashboard.Options{Policy: policy, TopN: a.topN}, a.metrics, a.logger(cmd)), nil
}

func (a *app) report(cmd *cobra.Command) (domain.Report, error) {
	svc, err := a.service(cmd)
	if err != nil {
		return domain.Report{}, err
	}
	topN := dashboard.DefaultRanking
	if cmd.Flags().Lookup("top") != nil {
		topN = a.topN
	}
	report, err := svc.Compute(cmd.Context(), dashboard.SourceCLI, a.selection(), topN)
	if err != nil {
		return domain.Report{}, err
	}
	printNotices(cmd.ErrOrStderr(), report.Notices)
	return report, nil
}

func printNotices(w io.Writer, notices []domain.Notice) {
	for _, n := range notices {
		fmt.Fprintf(w, "%s: %s\n", n.Level, n.Message)
	}
}
