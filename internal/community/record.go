// Package community loads the community dataset and exposes it as immutable tables.
package community

import (
	"strings"

	"github.com/spigell/placement-assistant/internal/geo"
)

// Column names recognized in the dataset. Matching is exact after trimming.
const (
	ColumnServiceType = "Type of Service"
	ColumnMonthlyFee  = "Monthly Fee"
	ColumnEnhanced    = "Enhanced"
	ColumnEnriched    = "Enriched"
	ColumnWaitlist    = "Est. Waitlist Length"
	ColumnContract    = "Contract (w rate)?"
	ColumnPlacement   = "Work with Placement?"
	ColumnGeocode     = "Geocode"
	ColumnID          = "CommunityID"
	ColumnName        = "Community Name"
)

// Record is one community row. Source fields are fixed at load time; the
// derived fields are filled in by later stages on copies of the record.
type Record struct {
	ID     string
	Index  int
	Fields map[string]string

	ServiceType   string
	MonthlyFee    float64
	HasFee        bool
	Enhanced      string
	Enriched      string
	Waitlist      string
	Contract      string
	Placement     string
	PostalCode    string
	StoredGeocode string
	Name          string

	Town        string
	State       string
	Priority    int
	Coordinate  geo.Coordinate
	HasCoord    bool
	Distance    float64
	HasDistance bool
}

// Field returns the verbatim source value for the given header.
func (r Record) Field(column string) string {
	return r.Fields[column]
}

// Label is a short human readable identifier for logs and prompts.
func (r Record) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return "community " + r.ID
}

// Schema describes which columns the dataset carries.
type Schema struct {
	Columns      []string
	PostalColumn string
}

// Has reports whether the dataset has the column.
func (s Schema) Has(column string) bool {
	for _, c := range s.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// HasPostal reports whether a postal code column was found.
func (s Schema) HasPostal() bool {
	return s.PostalColumn != ""
}

// FindPostalColumn returns the first header that looks like a postal code column.
func FindPostalColumn(headers []string) (string, bool) {
	for _, h := range headers {
		lower := strings.ToLower(h)
		if strings.Contains(lower, "zip") || strings.Contains(lower, "postal") {
			return h, true
		}
	}
	return "", false
}

// Table is an ordered snapshot of records. Methods never modify the receiver.
type Table struct {
	schema  Schema
	records []Record
}

// NewTable creates a table owning a copy of the records.
func NewTable(schema Schema, records []Record) *Table {
	return &Table{
		schema:  schema,
		records: append([]Record(nil), records...),
	}
}

func (t *Table) Schema() Schema { return t.schema }

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// Records returns a copy of the records in table order.
func (t *Table) Records() []Record {
	if t == nil {
		return nil
	}
	return append([]Record(nil), t.records...)
}

func (t *Table) At(i int) Record { return t.records[i] }

// Select returns a new table with the records for which keep returns true,
// preserving their order.
func (t *Table) Select(keep func(Record) bool) *Table {
	kept := make([]Record, 0, len(t.records))
	for _, r := range t.records {
		if keep(r) {
			kept = append(kept, r)
		}
	}
	return &Table{schema: t.schema, records: kept}
}

// Map returns a new table with fn applied to a copy of every record.
func (t *Table) Map(fn func(Record) Record) *Table {
	mapped := make([]Record, len(t.records))
	for i, r := range t.records {
		mapped[i] = fn(r)
	}
	return &Table{schema: t.schema, records: mapped}
}

// WithRecords returns a table with the same schema and the given records.
func (t *Table) WithRecords(records []Record) *Table {
	return NewTable(t.schema, records)
}

// IDs lists record identifiers in table order.
func (t *Table) IDs() []string {
	ids := make([]string, 0, t.Len())
	for _, r := range t.records {
		ids = append(ids, r.ID)
	}
	return ids
}
