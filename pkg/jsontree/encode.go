package jsontree

import (
	"bytes"
	"encoding/json"
)

// MarshalJSON encodes the tree back into JSON, keeping child order.
func (t *Tree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (t *Tree) encode(buf *bytes.Buffer) error {
	if t == nil {
		buf.WriteString("null")
		return nil
	}

	switch t.kind {
	case Object:
		buf.WriteByte('{')
		for i, c := range t.children {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, c.Name); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := c.Tree.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case Array:
		buf.WriteByte('[')
		for i, c := range t.children {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := c.Tree.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Number, Bool:
		buf.WriteString(t.value)
	case Null:
		buf.WriteString("null")
	default:
		return writeString(buf, t.value)
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
