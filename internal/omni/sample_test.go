package omni

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSampleTime(t *testing.T) {
	cases := []struct {
		name   string
		sample Sample
		want   time.Time
	}{
		{
			"first minute of year",
			Sample{Year: 1999, DayOfYear: 1, Hour: 0, Minute: 0},
			time.Date(1999, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			"mid year",
			Sample{Year: 2005, DayOfYear: 100, Hour: 12, Minute: 30},
			time.Date(2005, time.April, 10, 12, 30, 0, 0, time.UTC),
		},
		{
			"leap year day 366",
			Sample{Year: 2000, DayOfYear: 366, Hour: 23, Minute: 59},
			time.Date(2000, time.December, 31, 23, 59, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.sample.Time(); !got.Equal(tc.want) {
				t.Fatalf("Time() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestValueEqual(t *testing.T) {
	one := NewValue(decimal.NewFromInt(1))
	alsoOne := NewValue(decimal.RequireFromString("1.0"))
	two := NewValue(decimal.NewFromInt(2))

	if !one.Equal(alsoOne) {
		t.Fatal("1 and 1.0 must compare equal")
	}
	if one.Equal(two) {
		t.Fatal("1 and 2 must not compare equal")
	}
	if one.Equal(Missing()) {
		t.Fatal("a present value must not equal the missing marker")
	}
	if !Missing().Equal(Missing()) {
		t.Fatal("two missing markers must compare equal")
	}
}

func TestValueFloat64(t *testing.T) {
	if _, ok := Missing().Float64(); ok {
		t.Fatal("missing value must report ok=false")
	}
	v, ok := NewValue(decimal.RequireFromString("400.1")).Float64()
	if !ok || v != 400.1 {
		t.Fatalf("Float64() = %v, %v", v, ok)
	}
}
