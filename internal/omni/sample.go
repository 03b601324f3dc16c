// Package omni defines the record types for OMNI-style 1-minute
// interplanetary magnetic field and solar wind plasma measurements.
package omni

import (
	"time"

	"github.com/shopspring/decimal"
)

// Value is a single measurement that may be absent. The data source marks
// unavailable measurements with per-column sentinel literals; those parse to
// a Value with Valid=false rather than carrying the sentinel number through.
type Value struct {
	Decimal decimal.Decimal
	Valid   bool
}

// NewValue wraps a present measurement.
func NewValue(d decimal.Decimal) Value {
	return Value{Decimal: d, Valid: true}
}

// Missing returns the explicit absent-value marker.
func Missing() Value {
	return Value{}
}

// Float64 returns the measurement as a float64, or ok=false when absent.
func (v Value) Float64() (value float64, ok bool) {
	if !v.Valid {
		return 0, false
	}
	return v.Decimal.InexactFloat64(), true
}

// Equal reports whether two values are both absent or numerically equal.
func (v Value) Equal(other Value) bool {
	if v.Valid != other.Valid {
		return false
	}
	if !v.Valid {
		return true
	}
	return v.Decimal.Equal(other.Decimal)
}

// Sample is one 1-minute reading. It is constructed by parsing one line of a
// source file and is immutable thereafter.
type Sample struct {
	Year      int
	DayOfYear int // 1-366
	Hour      int // 0-23
	Minute    int // 0-59

	// Magnetic field, nT, GSE frame for the vector components.
	ScalarB Value
	BxGSE   Value
	ByGSE   Value
	BzGSE   Value

	// Solar wind bulk velocity, km/s, GSE frame for the components.
	FlowSpeed Value
	VxGSE     Value
	VyGSE     Value
	VzGSE     Value
}

// Time converts the year/day-of-year/hour/minute fields to a UTC timestamp.
func (s Sample) Time() time.Time {
	return time.Date(s.Year, time.January, 1, s.Hour, s.Minute, 0, 0, time.UTC).
		AddDate(0, 0, s.DayOfYear-1)
}

// Values returns the eight measurement values in column order.
func (s Sample) Values() []Value {
	return []Value{
		s.ScalarB, s.BxGSE, s.ByGSE, s.BzGSE,
		s.FlowSpeed, s.VxGSE, s.VyGSE, s.VzGSE,
	}
}

// Equal reports whether two samples carry the same timestamp fields and
// measurement values.
func (s Sample) Equal(other Sample) bool {
	if s.Year != other.Year || s.DayOfYear != other.DayOfYear ||
		s.Hour != other.Hour || s.Minute != other.Minute {
		return false
	}
	a, b := s.Values(), other.Values()
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
