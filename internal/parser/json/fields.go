package json

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// object is a decoded JSON object whose values are converted lazily so that
// field errors can name the field.
type object map[string]json.RawMessage

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// require returns the first name in names whose value is absent or null.
func (o object) require(names ...string) (string, bool) {
	for _, n := range names {
		raw, ok := o[n]
		if !ok || isNull(raw) {
			return n, false
		}
	}
	return "", true
}

// present returns the first name in names that is not a key of o. Null
// values count as present.
func (o object) present(names ...string) (string, bool) {
	for _, n := range names {
		if _, ok := o[n]; !ok {
			return n, false
		}
	}
	return "", true
}

func (o object) str(name string) (string, error) {
	p, err := o.optStr(name)
	if err != nil || p == nil {
		return "", err
	}
	return *p, nil
}

func (o object) optStr(name string) (*string, error) {
	raw := o[name]
	if isNull(raw) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("want string: %w", err)
	}
	return &s, nil
}

// numberText returns the textual number carried by raw, accepting both JSON
// numbers and numeric strings. An empty string reports ok=false.
func numberText(raw json.RawMessage) (string, bool, error) {
	if isNull(raw) {
		return "", false, nil
	}
	t := bytes.TrimSpace(raw)
	if t[0] == '"' {
		var s string
		if err := json.Unmarshal(t, &s); err != nil {
			return "", false, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return "", false, nil
		}
		return s, true, nil
	}
	var n json.Number
	if err := json.Unmarshal(t, &n); err != nil {
		return "", false, fmt.Errorf("want number: %w", err)
	}
	return n.String(), true, nil
}

func (o object) optInt(name string) (*int64, error) {
	s, ok, err := numberText(o[name])
	if err != nil || !ok {
		return nil, err
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Integral floats such as 1.0 are accepted.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int64(f)) {
			return nil, fmt.Errorf("want integer, got %q", s)
		}
		v = int64(f)
	}
	return &v, nil
}

func (o object) i64(name string) (int64, error) {
	p, err := o.optInt(name)
	if err != nil || p == nil {
		return 0, err
	}
	return *p, nil
}

func (o object) optFloat(name string) (*float64, error) {
	s, ok, err := numberText(o[name])
	if err != nil || !ok {
		return nil, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("want number, got %q", s)
	}
	return &v, nil
}

func (o object) f64(name string) (float64, error) {
	p, err := o.optFloat(name)
	if err != nil || p == nil {
		return 0, err
	}
	return *p, nil
}

// fieldErr wraps err as a ParseError for name, or returns nil.
func fieldErr(line int, name string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Line: line, Field: name, Err: err}
}
