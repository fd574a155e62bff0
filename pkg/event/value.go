// Package event implements the core event model shared by every component
// in the dataplane: logs, metrics, and traces, plus the metadata that rides
// with them end to end.
package event

import (
	"fmt"
	"regexp"
	"time"
)

// ValueKind discriminates the recursive tagged union that backs every log
// field.
type ValueKind uint8

const (
	ValueNull ValueKind = iota
	ValueBytes
	ValueInteger
	ValueFloat
	ValueBoolean
	ValueTimestamp
	ValueRegex
	ValueArray
	ValueObject
)

// Value is a recursive tagged union: bytes, integer, float, boolean,
// timestamp, regex, null, array-of-Value, or object (string -> Value).
//
// Only the field matching Kind is populated; the rest are zero.
type Value struct {
	Kind ValueKind

	Bytes     []byte
	Integer   int64
	Float     float64
	Boolean   bool
	Timestamp time.Time
	Regex     *regexp.Regexp
	Array     []Value
	Object    map[string]Value
}

func Null() Value                { return Value{Kind: ValueNull} }
func Str(s string) Value         { return Value{Kind: ValueBytes, Bytes: []byte(s)} }
func Bytes(b []byte) Value       { return Value{Kind: ValueBytes, Bytes: b} }
func Int(v int64) Value          { return Value{Kind: ValueInteger, Integer: v} }
func Float(v float64) Value      { return Value{Kind: ValueFloat, Float: v} }
func Bool(v bool) Value          { return Value{Kind: ValueBoolean, Boolean: v} }
func Time(v time.Time) Value     { return Value{Kind: ValueTimestamp, Timestamp: v} }
func Rx(v *regexp.Regexp) Value  { return Value{Kind: ValueRegex, Regex: v} }
func Arr(v ...Value) Value       { return Value{Kind: ValueArray, Array: v} }
func Obj(v map[string]Value) Value {
	return Value{Kind: ValueObject, Object: v}
}

// String renders the value for debugging/logging; it is not the wire
// encoding (that lives with the codec the sink driver's Encode step owns).
func (v Value) String() string {
	switch v.Kind {
	case ValueNull:
		return "null"
	case ValueBytes:
		return string(v.Bytes)
	case ValueInteger:
		return fmt.Sprintf("%d", v.Integer)
	case ValueFloat:
		return fmt.Sprintf("%g", v.Float)
	case ValueBoolean:
		return fmt.Sprintf("%t", v.Boolean)
	case ValueTimestamp:
		return v.Timestamp.Format(time.RFC3339Nano)
	case ValueRegex:
		if v.Regex == nil {
			return ""
		}
		return v.Regex.String()
	case ValueArray:
		return fmt.Sprintf("%v", v.Array)
	case ValueObject:
		return fmt.Sprintf("%v", v.Object)
	default:
		return ""
	}
}

// estimatedSize is a stable, not-necessarily-exact size estimate used for
// batch-by-bytes accounting (see Event.EstimatedJSONSize). It must be cheap
// and deterministic for identical inputs, not byte-accurate to any wire
// format.
func (v Value) estimatedSize() int {
	switch v.Kind {
	case ValueNull:
		return 4
	case ValueBytes:
		return len(v.Bytes) + 2
	case ValueInteger, ValueFloat:
		return 8
	case ValueBoolean:
		return 5
	case ValueTimestamp:
		return 24
	case ValueRegex:
		if v.Regex == nil {
			return 2
		}
		return len(v.Regex.String()) + 2
	case ValueArray:
		n := 2
		for _, e := range v.Array {
			n += e.estimatedSize() + 1
		}
		return n
	case ValueObject:
		n := 2
		for k, e := range v.Object {
			n += len(k) + 3 + e.estimatedSize() + 1
		}
		return n
	default:
		return 0
	}
}
