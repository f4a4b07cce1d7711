// Package models defines data structures for streamed worksheet queries.
package models

import (
	"encoding/json"
	"strconv"
	"time"
)

// Kind is the type of a decoded cell value.
type Kind int

const (
	KindAbsent Kind = iota
	KindString
	KindNumber
	KindBool
	KindDate
	// KindError holds a formula error literal such as "#DIV/0!".
	KindError
	// KindBinary holds the bytes of an embedded container part.
	KindBinary
)

var kindNames = [...]string{"absent", "string", "number", "boolean", "date", "error", "binary"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// Value is a typed cell value. Only the field matching Kind is meaningful.
type Value struct {
	Kind  Kind
	Str   string
	Num   float64
	Bool  bool
	Time  time.Time
	Bytes []byte
}

// String builds a string value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Number builds a numeric value.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// Bool builds a boolean value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Date builds a date value.
func Date(t time.Time) Value { return Value{Kind: KindDate, Time: t} }

// FormulaError builds an error-literal value.
func FormulaError(s string) Value { return Value{Kind: KindError, Str: s} }

// Binary builds a binary value.
func Binary(b []byte) Value { return Value{Kind: KindBinary, Bytes: b} }

// IsAbsent reports whether the value carries nothing.
func (v Value) IsAbsent() bool { return v.Kind == KindAbsent }

// Interface returns the natural Go representation of the value.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindString, KindError:
		return v.Str
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Bool
	case KindDate:
		return v.Time
	case KindBinary:
		return v.Bytes
	}
	return nil
}

// String renders the value as text, the way header cells are keyed.
func (v Value) String() string {
	switch v.Kind {
	case KindString, KindError:
		return v.Str
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindDate:
		if v.Time.Hour() == 0 && v.Time.Minute() == 0 && v.Time.Second() == 0 && v.Time.Nanosecond() == 0 {
			return v.Time.Format(time.DateOnly)
		}
		return v.Time.Format(time.DateTime)
	case KindBinary:
		return string(v.Bytes)
	}
	return ""
}

// MarshalJSON encodes the natural representation.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}
