package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// ValueKind says which of the three answer encodings a Value holds.
type ValueKind int

const (
	// KindEmpty is the blank answer recorded on timeout.
	KindEmpty ValueKind = iota
	KindIndex
	KindIndices
	KindText
)

// Value is an answer or a correct-answer encoding: an option index, a set of
// option indices, or free text. On the wire it is a JSON number, array or string.
type Value struct {
	kind    ValueKind
	index   int
	indices []int
	text    string
}

func EmptyValue() Value { return Value{} }

func IndexValue(i int) Value { return Value{kind: KindIndex, index: i} }

func IndicesValue(ix ...int) Value {
	return Value{kind: KindIndices, indices: slices.Clone(ix)}
}

// TextValue returns a text value; the empty string is the blank answer.
func TextValue(s string) Value {
	if s == "" {
		return Value{}
	}
	return Value{kind: KindText, text: s}
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsEmpty() bool { return v.kind == KindEmpty }

func (v Value) Index() (int, bool) { return v.index, v.kind == KindIndex }

func (v Value) Indices() ([]int, bool) { return slices.Clone(v.indices), v.kind == KindIndices }

func (v Value) Text() (string, bool) { return v.text, v.kind == KindText }

func (v Value) String() string {
	switch v.kind {
	case KindIndex:
		return fmt.Sprintf("%d", v.index)
	case KindIndices:
		return fmt.Sprintf("%v", v.indices)
	case KindText:
		return v.text
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindIndex:
		return json.Marshal(v.index)
	case KindIndices:
		if v.indices == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.indices)
	case KindText:
		return json.Marshal(v.text)
	default:
		return []byte(`""`), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("answer value: empty input")
	}
	switch c := data[0]; {
	case c == 'n':
		*v = Value{}
	case c == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("answer value: %w", err)
		}
		*v = TextValue(s)
	case c == '[':
		var ix []int
		if err := json.Unmarshal(data, &ix); err != nil {
			return fmt.Errorf("answer value: option indices must be integers: %w", err)
		}
		if ix == nil {
			ix = []int{}
		}
		*v = Value{kind: KindIndices, indices: ix}
	case c == '-' || (c >= '0' && c <= '9'):
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return fmt.Errorf("answer value: option index must be an integer: %w", err)
		}
		*v = IndexValue(i)
	default:
		return fmt.Errorf("answer value: unsupported json %s", data)
	}
	return nil
}

// MarshalYAML and UnmarshalYAML let quiz documents be authored in YAML with the
// same shapes as the JSON exchange format.
func (v Value) MarshalYAML() (any, error) {
	switch v.kind {
	case KindIndex:
		return v.index, nil
	case KindIndices:
		return v.indices, nil
	default:
		return v.text, nil
	}
}

func (v *Value) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("answer value: %w", err)
	}
	return v.UnmarshalJSON(b)
}
