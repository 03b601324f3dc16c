package fixedwidth

import (
	"fmt"
	"strconv"
	"strings"

	"omni-ingest/internal/omni"
)

// FormatSample renders a Sample back into a fixed-width line using the same
// column schema the parser reads. Absent values are written as the column's
// canonical sentinel, so a sentinel that round-trips through the parser
// comes back as the canonical literal rather than the original one.
func FormatSample(schema *Schema, s omni.Sample) (string, error) {
	fields := make([]string, 0, NumColumns)

	for _, v := range []int{s.Year, s.DayOfYear, s.Hour, s.Minute} {
		fields = append(fields, strconv.Itoa(v))
	}

	for i, v := range s.Values() {
		col := schema.columns[numTimeColumns+i]
		var text string
		if v.Valid {
			text = v.Decimal.StringFixed(col.Decimals)
		} else {
			if len(col.Sentinels) == 0 {
				return "", fmt.Errorf("fixedwidth: column %q has no sentinel to encode a missing value", col.Name)
			}
			text = col.Sentinels[0]
		}
		fields = append(fields, text)
	}

	var b strings.Builder
	b.Grow(schema.total)
	for i, text := range fields {
		width := schema.columns[i].Width
		if len(text) > width {
			return "", fmt.Errorf("fixedwidth: column %q value %q exceeds width %d", schema.columns[i].Name, text, width)
		}
		fmt.Fprintf(&b, "%*s", width, text)
	}
	return b.String(), nil
}
