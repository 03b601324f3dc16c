// Package fixedwidth parses and formats the fixed-width text tables used by
// the OMNIWeb 1-minute datasets. Fields are space-padded to constant widths
// with no delimiters; boundaries come from the column schema alone.
package fixedwidth

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Column names. These identify columns in config overrides, parse errors,
// and metrics labels.
const (
	ColYear      = "year"
	ColDayOfYear = "day_of_year"
	ColHour      = "hour"
	ColMinute    = "minute"
	ColScalarB   = "scalar_b_nt"
	ColBxGSE     = "bx_gse_nt"
	ColByGSE     = "by_gse_nt"
	ColBzGSE     = "bz_gse_nt"
	ColFlowSpeed = "flow_speed_km_s"
	ColVxGSE     = "vx_gse_km_s"
	ColVyGSE     = "vy_gse_km_s"
	ColVzGSE     = "vz_gse_km_s"
)

// NumColumns is the number of columns in a record: four timestamp integers
// followed by eight fixed-decimal measurements.
const NumColumns = 12

// numTimeColumns is how many leading columns parse as integers.
const numTimeColumns = 4

// Column describes one fixed-width field.
type Column struct {
	Name     string
	Width    int
	Decimals int32 // decimal places; meaningful for measurement columns only

	// Sentinels are the literals the data source writes in place of a real
	// measurement. The first entry is the canonical sentinel used when
	// formatting an absent value back out.
	Sentinels []string
}

// Schema is an ordered, validated set of columns. Construct with NewSchema
// or DefaultSchema.
type Schema struct {
	columns   []Column
	offsets   []int
	sentinels [][]decimal.Decimal
	total     int
}

// DefaultSchema returns the OMNI 1-minute layout: widths
// 4,4,3,3,8,8,8,8,8,8,8,8 with the OMNIWeb repeated-9 missing-data fillers.
// Exact sentinel literals vary per dataset; confirm against the .fmt file
// shipped with the data and override via configuration when they differ.
func DefaultSchema() *Schema {
	s, err := NewSchema([]Column{
		{Name: ColYear, Width: 4},
		{Name: ColDayOfYear, Width: 4},
		{Name: ColHour, Width: 3},
		{Name: ColMinute, Width: 3},
		{Name: ColScalarB, Width: 8, Decimals: 2, Sentinels: []string{"9999.99"}},
		{Name: ColBxGSE, Width: 8, Decimals: 2, Sentinels: []string{"9999.99"}},
		{Name: ColByGSE, Width: 8, Decimals: 2, Sentinels: []string{"9999.99"}},
		{Name: ColBzGSE, Width: 8, Decimals: 2, Sentinels: []string{"9999.99"}},
		{Name: ColFlowSpeed, Width: 8, Decimals: 1, Sentinels: []string{"99999.9"}},
		{Name: ColVxGSE, Width: 8, Decimals: 1, Sentinels: []string{"99999.9"}},
		{Name: ColVyGSE, Width: 8, Decimals: 1, Sentinels: []string{"99999.9"}},
		{Name: ColVzGSE, Width: 8, Decimals: 1, Sentinels: []string{"99999.9"}},
	})
	if err != nil {
		panic(err) // static layout, cannot fail
	}
	return s
}

// NewSchema validates the column list and precomputes offsets and sentinel
// decimals. Exactly NumColumns columns are required, in record order.
func NewSchema(columns []Column) (*Schema, error) {
	if len(columns) != NumColumns {
		return nil, fmt.Errorf("fixedwidth: schema requires %d columns, got %d", NumColumns, len(columns))
	}

	s := &Schema{
		columns:   make([]Column, NumColumns),
		offsets:   make([]int, NumColumns),
		sentinels: make([][]decimal.Decimal, NumColumns),
	}
	copy(s.columns, columns)

	offset := 0
	for i, col := range s.columns {
		if col.Name == "" {
			return nil, fmt.Errorf("fixedwidth: column %d has no name", i)
		}
		if col.Width <= 0 {
			return nil, fmt.Errorf("fixedwidth: column %q width must be positive", col.Name)
		}
		if i < numTimeColumns {
			if col.Decimals != 0 {
				return nil, fmt.Errorf("fixedwidth: timestamp column %q cannot have decimal places", col.Name)
			}
			if len(col.Sentinels) > 0 {
				return nil, fmt.Errorf("fixedwidth: timestamp column %q cannot have sentinels", col.Name)
			}
		} else if col.Decimals < 0 {
			return nil, fmt.Errorf("fixedwidth: column %q decimals cannot be negative", col.Name)
		}

		for _, lit := range col.Sentinels {
			d, err := decimal.NewFromString(lit)
			if err != nil {
				return nil, fmt.Errorf("fixedwidth: column %q sentinel %q: %w", col.Name, lit, err)
			}
			s.sentinels[i] = append(s.sentinels[i], d)
		}

		s.offsets[i] = offset
		offset += col.Width
	}
	s.total = offset

	return s, nil
}

// TotalWidth is the sum of all column widths.
func (s *Schema) TotalWidth() int {
	return s.total
}

// Columns returns a copy of the column definitions in record order.
func (s *Schema) Columns() []Column {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// MeasurementColumns returns the eight measurement column definitions.
func (s *Schema) MeasurementColumns() []Column {
	out := make([]Column, NumColumns-numTimeColumns)
	copy(out, s.columns[numTimeColumns:])
	return out
}

// field slices column i out of line. The caller has already checked the
// line width.
func (s *Schema) field(line string, i int) string {
	return line[s.offsets[i] : s.offsets[i]+s.columns[i].Width]
}

// isSentinel reports whether d matches one of column i's sentinel literals.
func (s *Schema) isSentinel(i int, d decimal.Decimal) bool {
	for _, sentinel := range s.sentinels[i] {
		if d.Equal(sentinel) {
			return true
		}
	}
	return false
}
