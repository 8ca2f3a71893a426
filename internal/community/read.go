package community

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ReadOptions controls dataset loading.
type ReadOptions struct {
	// Sheet selects an xlsx sheet by name. The first sheet is used when empty.
	Sheet string
}

// Load reads and normalizes the dataset at path.
func Load(path string, opts ReadOptions) (*Table, error) {
	raw, err := ReadFile(path, opts)
	if err != nil {
		return nil, err
	}
	return Normalize(raw)
}

// ReadFile reads an .xlsx or .csv dataset.
func ReadFile(path string, opts ReadOptions) (RawTable, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		return ReadXLSX(path, opts.Sheet)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return RawTable{}, eris.Wrapf(err, "dataset: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return ReadCSV(f)
	default:
		return RawTable{}, eris.Errorf("dataset: unsupported file type %q", ext)
	}
}

// ReadXLSX reads the named sheet, or the first one, of a workbook.
func ReadXLSX(path, sheetName string) (RawTable, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return RawTable{}, eris.Wrap(err, "xlsx: open file")
	}

	var sheet *xlsx.Sheet
	if sheetName != "" {
		s, ok := f.Sheet[sheetName]
		if !ok {
			return RawTable{}, eris.Errorf("xlsx: sheet %q not found", sheetName)
		}
		sheet = s
	} else {
		if len(f.Sheets) == 0 {
			return RawTable{}, eris.New("xlsx: workbook has no sheets")
		}
		sheet = f.Sheets[0]
	}

	var rows [][]string
	for _, row := range sheet.Rows {
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}

	return split(rows), nil
}

// ReadCSV reads a comma separated dataset with a header row.
func ReadCSV(r io.Reader) (RawTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return RawTable{}, eris.Wrap(err, "csv: read rows")
	}

	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return split(rows), nil
}

func split(rows [][]string) RawTable {
	if len(rows) == 0 {
		return RawTable{}
	}
	return RawTable{Headers: rows[0], Rows: rows[1:]}
}
