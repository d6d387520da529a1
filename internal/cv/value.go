package cv

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

type valueKind uint8

const (
	valueString valueKind = iota
	valueNumber
	valueList
	valueNull
)

// Value is a scalar attribute value: a string, a number, a list of strings
// or null.
type Value struct {
	kind  valueKind
	str   string
	num   float64
	items []string
}

func String(s string) Value      { return Value{kind: valueString, str: s} }
func Number(f float64) Value     { return Value{kind: valueNumber, num: f} }
func Null() Value                { return Value{kind: valueNull} }
func List(items ...string) Value { return Value{kind: valueList, items: append([]string{}, items...)} }

func (v Value) IsNull() bool   { return v.kind == valueNull }
func (v Value) IsNumber() bool { return v.kind == valueNumber }
func (v Value) IsList() bool   { return v.kind == valueList }

// Number returns the numeric value and whether v holds one.
func (v Value) Number() (float64, bool) {
	return v.num, v.kind == valueNumber
}

// Items returns the list items of a list value, nil otherwise.
func (v Value) Items() []string {
	if v.kind != valueList {
		return nil
	}
	return append([]string{}, v.items...)
}

// String renders the value as text. Lists are joined with "|", the way they
// appear in the source sheet.
func (v Value) String() string {
	switch v.kind {
	case valueNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case valueList:
		return strings.Join(v.items, "|")
	case valueNull:
		return ""
	}
	return v.str
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case valueNumber:
		return marshal(v.num)
	case valueList:
		if v.items == nil {
			return []byte("[]"), nil
		}
		return marshal(v.items)
	case valueNull:
		return []byte("null"), nil
	}
	return marshal(v.str)
}

// Interface returns v as a plain Go value (string, float64, []string or nil)
// for encoders that do not know about Value.
func (v Value) Interface() any {
	switch v.kind {
	case valueNumber:
		return v.num
	case valueList:
		return v.Items()
	case valueNull:
		return nil
	}
	return v.str
}

// marshal is json.Marshal without HTML escaping, so placeholders such as
// "<derived from file>" stay readable in the output.
func marshal(v any) ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(b.Bytes(), []byte("\n")), nil
}
