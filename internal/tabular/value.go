package tabular

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	Null Kind = iota
	Text
	Number
	Bool
)

// Value is a single cell. The zero Value is null.
type Value struct {
	kind Kind
	text string
	num  float64
	b    bool
}

func NullValue() Value            { return Value{} }
func TextValue(s string) Value    { return Value{kind: Text, text: s} }
func NumberValue(f float64) Value { return Value{kind: Number, num: f} }
func BoolValue(b bool) Value      { return Value{kind: Bool, b: b} }

func (v Value) Kind() Kind { return v.kind }

// Text returns the string content of a text value, or "" for other kinds.
func (v Value) Text() string { return v.text }

func (v Value) Number() float64 { return v.num }

func (v Value) Bool() bool { return v.b }

func (v Value) String() string {
	switch v.kind {
	case Text:
		return v.text
	case Number:
		return formatNumber(v.num)
	case Bool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// MarshalJSON writes numbers without a trailing ".0" for integral values and
// maps NaN/Inf to null so the payload is always valid JSON.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case Text:
		return marshalString(v.text)
	case Number:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return []byte("null"), nil
		}
		return []byte(formatNumber(v.num)), nil
	case Bool:
		return []byte(strconv.FormatBool(v.b)), nil
	default:
		return []byte("null"), nil
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ParseCell types a raw cell the way the exports are read: empty cells are
// null, numeric literals are numbers, true/false are booleans, the rest is text.
func ParseCell(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return NullValue()
	}
	switch strings.ToLower(s) {
	case "true":
		return BoolValue(true)
	case "false":
		return BoolValue(false)
	case "nan", "inf", "+inf", "-inf", "infinity", "+infinity", "-infinity":
		// strconv accepts these, the exports mean them as text
		return TextValue(raw)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return NumberValue(f)
	}
	return TextValue(raw)
}

func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
