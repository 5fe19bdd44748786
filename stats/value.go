package stats

import (
	"fmt"
	"time"
)

// Value is the closed sum type of loggable values: Nothing, Count,
// Duration, Scalar, or Index. Go has no sum types, so membership is
// closed via an unexported marker method, the same idiom used by
// timestep.Successor.
type Value interface {
	isValue()
	// Variant names the concrete kind for the value-type-conflict check.
	Variant() string
}

type nothingValue struct{}

func (nothingValue) isValue()        {}
func (nothingValue) Variant() string { return "nothing" }

// Nothing logs a bare event with no payload.
func Nothing() Value { return nothingValue{} }

type countValue uint64

func (countValue) isValue()        {}
func (countValue) Variant() string { return "count" }

// Count logs a counter increment.
func Count(n uint64) Value { return countValue(n) }

// AsCount reports the value's payload if it is a Count.
func AsCount(v Value) (uint64, bool) {
	c, ok := v.(countValue)
	return uint64(c), ok
}

type durationValue time.Duration

func (durationValue) isValue()        {}
func (durationValue) Variant() string { return "duration" }

// Duration logs a time.Duration measurement.
func Duration(d time.Duration) Value { return durationValue(d) }

// AsDuration reports the value's payload if it is a Duration.
func AsDuration(v Value) (time.Duration, bool) {
	d, ok := v.(durationValue)
	return time.Duration(d), ok
}

type scalarValue float64

func (scalarValue) isValue()        {}
func (scalarValue) Variant() string { return "scalar" }

// Scalar logs a floating-point measurement.
func Scalar(x float64) Value { return scalarValue(x) }

// AsScalar reports the value's payload if it is a Scalar.
func AsScalar(v Value) (float64, bool) {
	s, ok := v.(scalarValue)
	return float64(s), ok
}

type indexValue struct {
	value int
	size  int
}

func (indexValue) isValue()        {}
func (indexValue) Variant() string { return "index" }

// Index logs categorical telemetry: a value in [0, size).
func Index(value, size int) Value { return indexValue{value: value, size: size} }

// AsIndex reports the value's payload if it is an Index.
func AsIndex(v Value) (value, size int, ok bool) {
	i, ok := v.(indexValue)
	return i.value, i.size, ok
}

func (v indexValue) String() string {
	return fmt.Sprintf("index(%d/%d)", v.value, v.size)
}
