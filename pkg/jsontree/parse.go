package jsontree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf16"

	"github.com/buger/jsonparser"
)

// ErrMalformedBody marks input that is not a valid JSON document.
var ErrMalformedBody = errors.New("jsontree: malformed JSON body")

// Parse decodes a JSON document into a tree, keeping key order and duplicate keys.
func Parse(data []byte) (*Tree, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedBody)
	}
	// jsonparser is lenient about syntax, so validate strictly up front.
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: invalid syntax", ErrMalformedBody)
	}

	value, typ, _, err := jsonparser.Get(replaceLoneSurrogates(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	tree, err := build(value, typ)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return tree, nil
}

func build(value []byte, typ jsonparser.ValueType) (*Tree, error) {
	switch typ {
	case jsonparser.Object:
		t := New()
		// ObjectEach hands over keys already unescaped.
		err := jsonparser.ObjectEach(value, func(key, v []byte, vt jsonparser.ValueType, _ int) error {
			name := string(key)
			child, err := build(v, vt)
			if err != nil {
				return fmt.Errorf("key %q: %w", name, err)
			}
			t.Add(name, child)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return t, nil
	case jsonparser.Array:
		t := NewArray()
		var inner error
		_, err := jsonparser.ArrayEach(value, func(v []byte, vt jsonparser.ValueType, _ int, err error) {
			if inner != nil {
				return
			}
			if err != nil {
				inner = err
				return
			}
			child, err := build(v, vt)
			if err != nil {
				inner = err
				return
			}
			t.Add("", child)
		})
		if err != nil {
			return nil, err
		}
		if inner != nil {
			return nil, inner
		}
		return t, nil
	case jsonparser.String:
		s, err := jsonparser.ParseString(value)
		if err != nil {
			return nil, fmt.Errorf("decode string: %w", err)
		}
		return NewLeaf(s), nil
	case jsonparser.Number:
		return newScalar(Number, string(value)), nil
	case jsonparser.Boolean:
		return newScalar(Bool, string(value)), nil
	case jsonparser.Null:
		return newScalar(Null, ""), nil
	default:
		return nil, fmt.Errorf("unexpected value type %s", typ)
	}
}

// replaceLoneSurrogates rewrites \u escapes of unpaired UTF-16 surrogates to \ufffd,
// which is what encoding/json decodes them to. jsonparser rejects them in both keys and
// values. data must already be valid JSON; it is copied before the first rewrite.
func replaceLoneSurrogates(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u`)) {
		return data
	}

	var out []byte
	inString := false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			continue
		}
		switch c {
		case '"':
			inString = false
		case '\\':
			if data[i+1] != 'u' {
				i++
				continue
			}
			r := escapedRune(data[i:])
			switch {
			case !utf16.IsSurrogate(r):
				i += 5
			case r < 0xdc00 && isLowSurrogate(escapedRune(data[i+6:])):
				i += 11
			default:
				if out == nil {
					out = bytes.Clone(data)
				}
				copy(out[i:i+6], `\ufffd`)
				i += 5
			}
		}
	}
	if out == nil {
		return data
	}
	return out
}

// escapedRune decodes a leading \uXXXX escape, or returns -1.
func escapedRune(b []byte) rune {
	if len(b) < 6 || b[0] != '\\' || b[1] != 'u' {
		return -1
	}
	n, err := strconv.ParseUint(string(b[2:6]), 16, 16)
	if err != nil {
		return -1
	}
	return rune(n)
}

func isLowSurrogate(r rune) bool { return r >= 0xdc00 && r <= 0xdfff }

// Values collects the leaf values of the direct children, in order. It is meant for
// JSON arrays of scalars; a nested child yields an error wrapping ErrNotLeaf.
func Values(t *Tree) ([]string, error) {
	if t == nil {
		return nil, nil
	}
	out := make([]string, 0, len(t.children))
	for i, c := range t.children {
		v, err := c.Tree.LeafValue()
		if err != nil {
			return nil, fmt.Errorf("child %d (%q): %w", i, c.Name, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ErrConvert marks a leaf whose value does not convert to the requested type.
var ErrConvert = errors.New("jsontree: leaf value does not convert")

// Scalar lists the types ValuesAs converts leaf values to.
type Scalar interface {
	string | int | int64 | float64 | bool
}

// ValuesAs is Values with each leaf converted to T.
func ValuesAs[T Scalar](t *Tree) ([]T, error) {
	vals, err := Values(t)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(vals))
	for i, v := range vals {
		x, err := convertLeaf[T](v)
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", i, err)
		}
		out = append(out, x)
	}
	return out, nil
}

func convertLeaf[T Scalar](s string) (T, error) {
	var (
		zero T
		err  error
	)
	switch p := any(&zero).(type) {
	case *string:
		*p = s
	case *int:
		*p, err = strconv.Atoi(s)
	case *int64:
		*p, err = strconv.ParseInt(s, 10, 64)
	case *float64:
		*p, err = strconv.ParseFloat(s, 64)
	case *bool:
		*p, err = strconv.ParseBool(s)
	}
	if err != nil {
		var empty T
		return empty, fmt.Errorf("%w: %q as %T", ErrConvert, s, empty)
	}
	return zero, nil
}
