package json

import "fmt"

// ParseError reports a malformed source record or a missing required field.
// Parse errors are fatal for the file that contains them.
type ParseError struct {
	Path  string // source file; filled in by the caller when known
	Line  int    // 1-based line number; 0 when not line-oriented
	Field string // offending field, if any
	Err   error
}

func (e *ParseError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "input"
	}
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, e.Line)
	}
	if e.Field != "" {
		return fmt.Sprintf("json: %s: field %q: %v", loc, e.Field, e.Err)
	}
	return fmt.Sprintf("json: %s: %v", loc, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// errMissing is the cause recorded for absent required fields.
var errMissing = fmt.Errorf("required field missing")
