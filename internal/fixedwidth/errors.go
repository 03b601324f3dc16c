package fixedwidth

import (
	"errors"
	"fmt"
)

// ErrEmptyInput indicates the source contained zero data lines.
var ErrEmptyInput = errors.New("fixedwidth: input contains no data lines")

// SchemaMismatchError indicates a line whose width does not match the
// configured column schema.
type SchemaMismatchError struct {
	Line int
	Got  int
	Want int
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("fixedwidth: line %d: width %d does not match schema width %d", e.Line, e.Got, e.Want)
}

// MalformedRecordError indicates a row that could not be parsed, naming the
// offending column.
type MalformedRecordError struct {
	Line   int
	Column string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("fixedwidth: line %d: column %q: %v", e.Line, e.Column, e.Err)
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

// IsRowError reports whether err is a per-row failure that a caller in
// skip mode may log and step over.
func IsRowError(err error) bool {
	var malformed *MalformedRecordError
	var mismatch *SchemaMismatchError
	return errors.As(err, &malformed) || errors.As(err, &mismatch)
}
