package cdn

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrParse is matched by every *ParseError.
var ErrParse = errors.New("cdn: malformed attribute literal")

// ParseError reports a source-set literal that is not valid JSON, even
// after single quotes are rewritten.
type ParseError struct {
	Attribute string
	Literal   string
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cdn: parse %s %q: %v", e.Attribute, e.Literal, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// ParseSourceSet decodes a source-set literal. Both a JSON array of entries
// and a JSON object of named entries are accepted; entries keep their
// declaration order. Single quotes are treated as double quotes.
//
// An empty literal yields no entries and no error.
func ParseSourceSet(attribute, literal string) ([]Breakpoint, error) {
	adjusted := strings.TrimSpace(strings.ReplaceAll(literal, "'", `"`))
	if adjusted == "" {
		return nil, nil
	}
	fail := func(err error) ([]Breakpoint, error) {
		return nil, &ParseError{Attribute: attribute, Literal: literal, Err: err}
	}

	var raws []json.RawMessage
	switch adjusted[0] {
	case '[':
		if err := json.Unmarshal([]byte(adjusted), &raws); err != nil {
			return fail(err)
		}
	case '{':
		var err error
		if raws, err = orderedValues([]byte(adjusted)); err != nil {
			return fail(err)
		}
	default:
		return fail(errors.New("expected array or object"))
	}

	set := make([]Breakpoint, 0, len(raws))
	for _, raw := range raws {
		var e entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return fail(err)
		}
		set = append(set, Breakpoint{
			Screen:     int(e.Screen),
			Size:       int(e.Size),
			Source:     e.Source,
			DarkSource: e.DarkSource,
		})
	}
	return set, nil
}

// orderedValues returns the member values of a JSON object in the order
// they appear.
func orderedValues(data []byte) ([]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var values []json.RawMessage
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after object")
	}
	return values, nil
}

type entry struct {
	Screen     number `json:"screen"`
	Size       number `json:"size"`
	Source     string `json:"source"`
	DarkSource string `json:"darksrc"`
}

// number accepts 320, 320.0 and "320".
type number int

func (n *number) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %s", b)
	}
	*n = number(f)
	return nil
}
