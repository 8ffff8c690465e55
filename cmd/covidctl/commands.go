package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/covid-district-dashboard/internal/adapter/geojson"
	"github.com/couchcryptid/covid-district-dashboard/internal/adapter/mapbox"
	"github.com/couchcryptid/covid-district-dashboard/internal/adapter/reference"
	"github.com/couchcryptid/covid-district-dashboard/internal/adapter/tabular"
	"github.com/couchcryptid/covid-district-dashboard/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

const noDataMessage = "no records match the current selection"

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	return table
}

func summaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show total, mean, top district and top month of the selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := a.report(cmd)
			if err != nil {
				return err
			}
			if report.Summary == nil {
				fmt.Fprintln(cmd.OutOrStdout(), noDataMessage)
				return nil
			}
			s := report.Summary
			table := newTable(cmd.OutOrStdout(), "Metric", "Value")
			table.AppendBulk([][]string{
				{"Total cases", strconv.FormatInt(s.TotalCases, 10)},
				{"Mean cases per month", strconv.FormatFloat(s.MeanCases, 'f', 1, 64)},
				{"Top district", fmt.Sprintf("%s (%d)", s.TopDistrict.District, s.TopDistrict.Cases)},
				{"Top month", fmt.Sprintf("%s (%d)", s.TopPeriod.Period.Label(), s.TopPeriod.Cases)},
				{"Records", strconv.Itoa(s.Records)},
				{"Districts", strconv.Itoa(s.Districts)},
				{"Months", strconv.Itoa(s.Periods)},
			})
			table.Render()
			return nil
		},
	}
}

func rankCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank districts by total cases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.topN < 0 {
				return fmt.Errorf("invalid --top %d: must be non-negative", a.topN)
			}
			report, err := a.report(cmd)
			if err != nil {
				return err
			}
			if report.IsEmpty() {
				fmt.Fprintln(cmd.OutOrStdout(), noDataMessage)
				return nil
			}
			shares := make(map[string]float64, len(report.Shares))
			for _, s := range report.Shares {
				shares[s.District] = s.Percent
			}
			table := newTable(cmd.OutOrStdout(), "Rank", "District", "Cases", "Share %")
			table.SetAlignment(tablewriter.ALIGN_RIGHT)
			for i, r := range report.Ranking {
				table.Append([]string{
					strconv.Itoa(i + 1),
					r.District,
					strconv.FormatInt(r.Cases, 10),
					strconv.FormatFloat(shares[r.District], 'f', 1, 64),
				})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().IntVarP(&a.topN, "top", "n", 5, "number of districts to show")
	return cmd
}

func trendCmd(a *app) *cobra.Command {
	var district string
	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Show monthly totals in chronological order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			trend, err := svc.Trend(a.selection(), district)
			if err != nil {
				return err
			}
			if len(trend) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), noDataMessage)
				return nil
			}
			table := newTable(cmd.OutOrStdout(), "Month", "Cases")
			for _, p := range trend {
				table.Append([]string{p.Period.Label(), strconv.FormatInt(p.Cases, 10)})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&district, "for", "", "restrict the trend to one district")
	return cmd
}

func pivotCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pivot",
		Short: "Show the district by month matrix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := a.report(cmd)
			if err != nil {
				return err
			}
			pivot := report.Pivot
			if pivot.IsEmpty() {
				fmt.Fprintln(cmd.OutOrStdout(), noDataMessage)
				return nil
			}
			header := append([]string{"District"}, pivot.PeriodLabels()...)
			header = append(header, "Total")
			table := newTable(cmd.OutOrStdout(), header...)
			totals := pivot.RowTotals()
			for i, d := range pivot.Districts {
				row := []string{d}
				for _, v := range pivot.Cells[i] {
					row = append(row, strconv.FormatInt(v, 10))
				}
				row = append(row, strconv.FormatInt(totals[i], 10))
				table.Append(row)
			}
			table.Render()
			return nil
		},
	}
}

func geoCmd(a *app) *cobra.Command {
	var asGeoJSON bool
	cmd := &cobra.Command{
		Use:   "geo",
		Short: "Show the latest month of the selection with district coordinates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := a.report(cmd)
			if err != nil {
				return err
			}
			if asGeoJSON {
				data, err := geojson.Marshal(report.Geo)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			if len(report.Geo) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), noDataMessage)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Month: %s\n", report.GeoPeriod.Label())
			table := newTable(cmd.OutOrStdout(), "District", "Lat", "Lon", "Cases")
			for _, g := range report.Geo {
				table.Append([]string{
					g.District,
					strconv.FormatFloat(g.Lat, 'f', 4, 64),
					strconv.FormatFloat(g.Lon, 'f', 4, 64),
					strconv.FormatInt(g.Cases, 10),
				})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&asGeoJSON, "geojson", false, "print a GeoJSON FeatureCollection instead of a table")
	return cmd
}

func exportCmd(a *app) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the filtered view as CSV or XLSX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			view, err := svc.View(a.selection())
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			switch tabular.Format(format) {
			case tabular.FormatCSV:
				err = tabular.WriteCSV(&buf, svc.Dataset().Columns, view)
			case tabular.FormatXLSX:
				ranking, rankErr := domain.Rank(view, a.topN)
				if rankErr != nil && !errors.Is(rankErr, domain.ErrEmptyView) {
					return rankErr
				}
				err = tabular.WriteXLSX(&buf, svc.Dataset().Columns, view, ranking, domain.BuildPivot(view))
			default:
				return fmt.Errorf("%w: %q", tabular.ErrUnsupportedFormat, format)
			}
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, buf.Bytes())
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(tabular.FormatCSV), "csv or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout when empty)")
	cmd.Flags().IntVarP(&a.topN, "top", "n", 5, "districts on the ranking sheet (xlsx)")
	return cmd
}

func validateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the case table and list rows that could not be read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, warnings, err := tabular.LoadFile(a.dataPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d records, %d districts, %d months, %d skipped rows\n",
				a.dataPath, ds.Len(), len(ds.Districts()), len(ds.Periods()), len(warnings))
			if len(warnings) == 0 {
				return nil
			}
			table := newTable(out, "Row", "Column", "Value", "Reason")
			for _, w := range warnings {
				table.Append([]string{strconv.Itoa(w.Row), w.Column, w.Value, w.Reason})
			}
			table.Render()
			return nil
		},
	}
}

func coordsCmd(a *app) *cobra.Command {
	var (
		output   string
		country  string
		fromData bool
		baseURL  string
	)
	cmd := &cobra.Command{
		Use:   "coords",
		Short: "Generate a district coordinate file with Mapbox forward geocoding",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token := os.Getenv("MAPBOX_TOKEN")
			if token == "" {
				return errors.New("MAPBOX_TOKEN is required")
			}
			timeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("MAPBOX_TIMEOUT", "5s"))
			if err != nil {
				return fmt.Errorf("invalid MAPBOX_TIMEOUT: %w", err)
			}

			districts := domain.SriLankaDistricts()
			if fromData {
				ds, _, err := tabular.LoadFile(a.dataPath)
				if err != nil {
					return err
				}
				canonical := domain.DefaultCoordinates()
				known, unknown := lo.FilterReject(ds.Districts(), func(d string, _ int) bool {
					_, ok := canonical.Lookup(d)
					return ok
				})
				for _, u := range unknown {
					fmt.Fprintf(cmd.ErrOrStderr(), "warn: %s is not a Sri Lankan district, skipped\n", u)
				}
				districts = known
			}

			logger := a.logger(cmd)
			client := mapbox.NewClient(token, timeout, a.metrics, logger)
			if baseURL != "" {
				client = client.WithBaseURL(baseURL)
			}
			resolved, missing := domain.ResolveCoordinates(cmd.Context(), districts, country, client, logger)
			if len(resolved) == 0 {
				return errors.New("no district could be geocoded")
			}
			if _, err := domain.NewCoordinateTable(resolved); err != nil {
				return err
			}
			for _, m := range missing {
				fmt.Fprintf(cmd.ErrOrStderr(), "warn: no coordinate for %s\n", m)
			}

			var buf bytes.Buffer
			err = reference.Encode(&buf, reference.File{
				Country:   country,
				Source:    "mapbox geocoding",
				Districts: resolved,
			})
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, buf.Bytes())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout when empty)")
	cmd.Flags().StringVar(&country, "country", sharedcfg.EnvOrDefault("GEOCODE_COUNTRY", "lk"), "ISO 3166 alpha-2 country filter")
	cmd.Flags().BoolVar(&fromData, "from-data", false, "geocode the known districts of --data instead of the built-in list")
	cmd.Flags().StringVar(&baseURL, "mapbox-url", "", "geocoding endpoint override")
	_ = cmd.Flags().MarkHidden("mapbox-url")
	return cmd
}

func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", path, len(data))
	return nil
}
