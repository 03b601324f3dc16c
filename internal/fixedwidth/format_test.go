package fixedwidth

import (
	"testing"

	"omni-ingest/internal/omni"
)

func TestFormatSampleRoundTrip(t *testing.T) {
	line := buildLine(2003, 300, 23, 59, 12.34, -0.01, 7.00, -11.90, 612.3, -430.0, 0.0, 99.1)

	sample, err := ParseLine(DefaultSchema(), line, 1)
	if err != nil {
		t.Fatalf("ParseLine failed: %v", err)
	}

	formatted, err := FormatSample(DefaultSchema(), sample)
	if err != nil {
		t.Fatalf("FormatSample failed: %v", err)
	}
	if len(formatted) != DefaultSchema().TotalWidth() {
		t.Fatalf("formatted width %d, want %d", len(formatted), DefaultSchema().TotalWidth())
	}

	reparsed, err := ParseLine(DefaultSchema(), formatted, 1)
	if err != nil {
		t.Fatalf("reparse failed: %v", err)
	}
	if !sample.Equal(reparsed) {
		t.Fatalf("round trip changed the sample:\n  in:  %+v\n  out: %+v", sample, reparsed)
	}
}

func TestFormatSampleMissingBecomesCanonicalSentinel(t *testing.T) {
	line := buildLine(2003, 300, 23, 59, 9999.99, -0.01, 7.00, -11.90, 99999.9, -430.0, 0.0, 99.1)

	sample, err := ParseLine(DefaultSchema(), line, 1)
	if err != nil {
		t.Fatalf("ParseLine failed: %v", err)
	}

	formatted, err := FormatSample(DefaultSchema(), sample)
	if err != nil {
		t.Fatalf("FormatSample failed: %v", err)
	}

	// Absent values come back as the canonical sentinel literal, and the
	// reparse maps them to missing again.
	reparsed, err := ParseLine(DefaultSchema(), formatted, 1)
	if err != nil {
		t.Fatalf("reparse failed: %v", err)
	}
	if reparsed.ScalarB.Valid || reparsed.FlowSpeed.Valid {
		t.Fatalf("sentinels must survive the round trip as missing values")
	}
	if !sample.Equal(reparsed) {
		t.Fatalf("round trip changed the sample")
	}
}

func TestFormatSampleValueTooWide(t *testing.T) {
	sample := omni.Sample{Year: 1999, DayOfYear: 1}
	sample.ScalarB = mustValue(t, "123456789.12")
	sample.BxGSE = mustValue(t, "0")
	sample.ByGSE = mustValue(t, "0")
	sample.BzGSE = mustValue(t, "0")
	sample.FlowSpeed = mustValue(t, "0")
	sample.VxGSE = mustValue(t, "0")
	sample.VyGSE = mustValue(t, "0")
	sample.VzGSE = mustValue(t, "0")

	if _, err := FormatSample(DefaultSchema(), sample); err == nil {
		t.Fatal("a value wider than its column must fail to format")
	}
}
