// Package reference reads and writes the district coordinate table as YAML.
package reference

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/covid-district-dashboard/internal/domain"
	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a coordinate reference file.
type File struct {
	Country   string                      `yaml:"country,omitempty"`
	Source    string                      `yaml:"source,omitempty"`
	Districts []domain.DistrictCoordinate `yaml:"districts"`
}

// Load reads a reference file. An empty path returns the built-in table.
func Load(path string) (domain.CoordinateTable, error) {
	if path == "" {
		return domain.DefaultCoordinates(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return domain.CoordinateTable{}, fmt.Errorf("open coordinates %s: %w", path, err)
	}
	defer f.Close()

	table, err := Decode(f)
	if err != nil {
		return domain.CoordinateTable{}, fmt.Errorf("coordinates %s: %w", path, err)
	}
	return table, nil
}

// Decode parses a YAML reference document.
func Decode(r io.Reader) (domain.CoordinateTable, error) {
	var file File
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return domain.CoordinateTable{}, fmt.Errorf("decode yaml: %w", err)
	}
	if len(file.Districts) == 0 {
		return domain.CoordinateTable{}, errors.New("no districts defined")
	}
	return domain.NewCoordinateTable(file.Districts)
}

// Encode writes the table as a YAML reference document.
func Encode(w io.Writer, file File) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
