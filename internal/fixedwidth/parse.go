package fixedwidth

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"omni-ingest/internal/omni"
)

// ParseLine parses one record line into a Sample. lineNo is 1-based and is
// carried into parse errors. The line is sliced at fixed character offsets;
// no delimiter search is performed.
func ParseLine(schema *Schema, line string, lineNo int) (omni.Sample, error) {
	line = strings.TrimRight(line, "\r")

	if len(line) < schema.total {
		return omni.Sample{}, &SchemaMismatchError{Line: lineNo, Got: len(line), Want: schema.total}
	}
	// Tolerate trailing padding, but anything non-blank past the schema
	// width means the layout does not match.
	if len(line) > schema.total && strings.TrimSpace(line[schema.total:]) != "" {
		return omni.Sample{}, &SchemaMismatchError{Line: lineNo, Got: len(line), Want: schema.total}
	}

	var sample omni.Sample

	ints := [numTimeColumns]*int{&sample.Year, &sample.DayOfYear, &sample.Hour, &sample.Minute}
	for i := 0; i < numTimeColumns; i++ {
		v, err := parseInt(schema.field(line, i))
		if err != nil {
			return omni.Sample{}, &MalformedRecordError{Line: lineNo, Column: schema.columns[i].Name, Err: err}
		}
		*ints[i] = v
	}

	if err := checkRange(schema.columns[1].Name, sample.DayOfYear, 1, 366); err != nil {
		return omni.Sample{}, &MalformedRecordError{Line: lineNo, Column: schema.columns[1].Name, Err: err}
	}
	if err := checkRange(schema.columns[2].Name, sample.Hour, 0, 23); err != nil {
		return omni.Sample{}, &MalformedRecordError{Line: lineNo, Column: schema.columns[2].Name, Err: err}
	}
	if err := checkRange(schema.columns[3].Name, sample.Minute, 0, 59); err != nil {
		return omni.Sample{}, &MalformedRecordError{Line: lineNo, Column: schema.columns[3].Name, Err: err}
	}

	values := [NumColumns - numTimeColumns]*omni.Value{
		&sample.ScalarB, &sample.BxGSE, &sample.ByGSE, &sample.BzGSE,
		&sample.FlowSpeed, &sample.VxGSE, &sample.VyGSE, &sample.VzGSE,
	}
	for i := numTimeColumns; i < NumColumns; i++ {
		v, err := parseValue(schema, line, i)
		if err != nil {
			return omni.Sample{}, &MalformedRecordError{Line: lineNo, Column: schema.columns[i].Name, Err: err}
		}
		*values[i-numTimeColumns] = v
	}

	return sample, nil
}

func parseInt(field string) (int, error) {
	trimmed := strings.TrimSpace(field)
	if trimmed == "" {
		return 0, fmt.Errorf("empty field")
	}
	v, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", trimmed)
	}
	return v, nil
}

func parseValue(schema *Schema, line string, i int) (omni.Value, error) {
	trimmed := strings.TrimSpace(schema.field(line, i))
	if trimmed == "" {
		return omni.Value{}, fmt.Errorf("empty field")
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return omni.Value{}, fmt.Errorf("not a number: %q", trimmed)
	}
	if schema.isSentinel(i, d) {
		return omni.Missing(), nil
	}
	return omni.NewValue(d), nil
}

func checkRange(name string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s %d outside range %d-%d", name, v, lo, hi)
	}
	return nil
}
