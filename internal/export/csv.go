// Package export writes ranked community tables as CSV.
package export

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/spigell/placement-assistant/internal/community"
	"github.com/spigell/placement-assistant/internal/ranking"
)

const (
	DefaultAllFile = "all_results.csv"
	DefaultTopFile = "top_results.csv"
)

// DerivedColumns are appended after the source columns.
var DerivedColumns = []string{"Town", "State", "Priority_Level", "Latitude", "Longitude", "Distance_Miles"}

// Header returns the output header for a table.
func Header(t *community.Table) []string {
	cols := t.Schema().Columns
	header := make([]string, 0, len(cols)+len(DerivedColumns))
	header = append(header, cols...)
	return append(header, DerivedColumns...)
}

// Row renders a record in Header order.
func Row(columns []string, r community.Record) []string {
	row := make([]string, 0, len(columns)+len(DerivedColumns))
	for _, c := range columns {
		row = append(row, r.Field(c))
	}

	priority := ""
	if r.Priority > 0 {
		priority = strconv.Itoa(r.Priority)
	}

	lat, lon := "", ""
	if r.HasCoord {
		lat = strconv.FormatFloat(r.Coordinate.Lat, 'f', 6, 64)
		lon = strconv.FormatFloat(r.Coordinate.Lon, 'f', 6, 64)
	}

	distance := ""
	if r.HasDistance {
		distance = strconv.FormatFloat(r.Distance, 'f', 2, 64)
	}

	return append(row, r.Town, r.State, priority, lat, lon, distance)
}

// WriteCSV writes the table with a header row.
func WriteCSV(w io.Writer, t *community.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(t)); err != nil {
		return eris.Wrap(err, "csv: write header")
	}

	columns := t.Schema().Columns
	for _, r := range t.Records() {
		if err := cw.Write(Row(columns, r)); err != nil {
			return eris.Wrapf(err, "csv: write community %s", r.ID)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "csv: flush")
	}
	return nil
}

// WriteFile writes the table to path, creating parent directories.
func WriteFile(path string, t *community.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "export: create directory for %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}

	if err := WriteCSV(f, t); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "export: close %s", path)
	}
	return nil
}

// Paths names the two output files.
type Paths struct {
	All string
	Top string
}

// Results writes the ranked table and the shortlist into dir.
func Results(dir string, names Paths, result ranking.Result) (Paths, error) {
	if names.All == "" {
		names.All = DefaultAllFile
	}
	if names.Top == "" {
		names.Top = DefaultTopFile
	}

	out := Paths{
		All: filepath.Join(dir, names.All),
		Top: filepath.Join(dir, names.Top),
	}

	if err := WriteFile(out.All, result.Ranked); err != nil {
		return Paths{}, err
	}
	if err := WriteFile(out.Top, result.Shortlist); err != nil {
		return Paths{}, err
	}
	return out, nil
}
