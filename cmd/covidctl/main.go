// Command covidctl prints and exports dashboard views of a district case
// table from the terminal.
//
// Usage:
//
//	covidctl summary --data "data/monthly data.csv" --district Colombo,Gampaha
//	covidctl rank --top 10 --month Jan-21
//	covidctl export --format xlsx -o view.xlsx
//	MAPBOX_TOKEN=... covidctl coords -o coordinates.yaml
package main

import (
	"fmt"
	"os"

	"github.com/couchcryptid/covid-district-dashboard/internal/observability"
)

func main() {
	cmd := newRootCmd(observability.NewMetrics())
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
