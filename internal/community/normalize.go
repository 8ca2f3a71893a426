package community

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DatasetFormatError is returned when the dataset lacks a mandatory column.
type DatasetFormatError struct {
	Missing []string
	Found   []string
}

func (e *DatasetFormatError) Error() string {
	return fmt.Sprintf("dataset is missing required column(s) %q; found columns %q", e.Missing, e.Found)
}

// RawTable is the dataset as read from disk: a header row and string cells.
type RawTable struct {
	Headers []string
	Rows    [][]string
}

var zipPlusFour = regexp.MustCompile(`^(\d{5})-\d{4}$`)

// Normalize validates the raw table and builds typed records.
// Blank rows are dropped; cells beyond the header row are ignored.
func Normalize(raw RawTable) (*Table, error) {
	headers := make([]string, len(raw.Headers))
	position := make(map[string]int, len(raw.Headers))
	for i, h := range raw.Headers {
		headers[i] = strings.TrimSpace(h)
		if _, dup := position[headers[i]]; !dup {
			position[headers[i]] = i
		}
	}

	if _, ok := position[ColumnServiceType]; !ok {
		return nil, &DatasetFormatError{Missing: []string{ColumnServiceType}, Found: headers}
	}

	schema := Schema{Columns: headers}
	if col, ok := FindPostalColumn(headers); ok {
		schema.PostalColumn = col
	}

	records := make([]Record, 0, len(raw.Rows))
	for _, row := range raw.Rows {
		if blank(row) {
			continue
		}

		fields := make(map[string]string, len(headers))
		for name, i := range position {
			if i < len(row) {
				fields[name] = strings.TrimSpace(row[i])
			} else {
				fields[name] = ""
			}
		}

		index := len(records)
		r := Record{
			ID:            fields[ColumnID],
			Index:         index,
			Fields:        fields,
			ServiceType:   fields[ColumnServiceType],
			Enhanced:      fields[ColumnEnhanced],
			Enriched:      fields[ColumnEnriched],
			Waitlist:      fields[ColumnWaitlist],
			Contract:      fields[ColumnContract],
			Placement:     fields[ColumnPlacement],
			StoredGeocode: fields[ColumnGeocode],
			Name:          fields[ColumnName],
		}
		if r.ID == "" {
			r.ID = strconv.Itoa(index + 1)
		}
		r.MonthlyFee, r.HasFee = ParseFee(fields[ColumnMonthlyFee])
		if schema.HasPostal() {
			r.PostalCode = NormalizePostal(fields[schema.PostalColumn])
		}

		records = append(records, r)
	}

	return NewTable(schema, records), nil
}

// ParseFee reads a monthly fee such as "$4,250.00". Anything that is not a
// number reports false; it is never treated as zero.
func ParseFee(s string) (float64, bool) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return 0, false
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// NormalizePostal turns spreadsheet renderings such as "14604.0" or "1234"
// into five digit codes and cuts ZIP+4 codes to their first five digits.
// Other values are returned trimmed but otherwise unchanged.
func NormalizePostal(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if m := zipPlusFour.FindStringSubmatch(s); m != nil {
		return m[1]
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f >= 100000 || f != math.Trunc(f) {
		return s
	}
	return fmt.Sprintf("%05d", int(f))
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
