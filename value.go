package qvd

import (
	"fmt"
	"hash/fnv"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// QVDEpoch is the day zero of the QVD/Qlik serial date system.
var QVDEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// valueKind is the storage tag of a Value, mirroring the teacher's int8
// wire-type tags (KB, KI, KJ, ...) but closed over the five QVD variants.
type valueKind int8

const (
	kindNull valueKind = iota
	kindInteger
	kindDouble
	kindString
	kindDualInteger
	kindDualDouble
)

// NumberFormatKind is the declarative label that drives the higher-level
// Date/Time/Timestamp/Interval/Money projection of a value. It is carried
// on a Value only as a write-time hint (see Value.Semantic) and is the
// authoritative label once a column has been read back from a header.
type NumberFormatKind string

const (
	KindUnknown   NumberFormatKind = "UNKNOWN"
	KindDate      NumberFormatKind = "DATE"
	KindTime      NumberFormatKind = "TIME"
	KindTimestamp NumberFormatKind = "TIMESTAMP"
	KindInterval  NumberFormatKind = "INTERVAL"
	KindInteger   NumberFormatKind = "INTEGER"
	KindMoney     NumberFormatKind = "MONEY"
	KindReal      NumberFormatKind = "REAL"
	KindASCII     NumberFormatKind = "ASCII"
)

// Field tag strings emitted into a field header's <Tags>, grounded on
// writer.py's tag inference (_build_symbol_table).
const (
	TagNumeric   = "$numeric"
	TagInteger   = "$integer"
	TagText      = "$text"
	TagASCII     = "$ascii"
	TagDate      = "$date"
	TagTimestamp = "$timestamp"
	TagKey       = "$key"
)

// Value is the tagged variant described in the value model: Integer,
// Double, String, DualInteger, DualDouble, or Null. Semantic carries the
// optional higher-level interpretation hint (Date, Money, ...) used only
// when a column's header is synthesized on write; it plays no part in
// Equal, Hash, or Compare.
type Value struct {
	kind     valueKind
	Semantic NumberFormatKind
	i        int32
	f        float64
	s        string
}

// Null is the absent-cell value, distinct from any symbol.
func Null() Value { return Value{kind: kindNull} }

// Int constructs an Integer value.
func Int(i int32) Value { return Value{kind: kindInteger, i: i} }

// Double constructs a Double value.
func Double(f float64) Value { return Value{kind: kindDouble, f: f} }

// Str constructs a String value.
func Str(s string) Value { return Value{kind: kindString, s: s} }

// DualInt constructs a DualInteger value: a numeric component plus display text.
func DualInt(i int32, display string) Value {
	return Value{kind: kindDualInteger, i: i, s: display}
}

// DualFloat constructs a DualDouble value: a numeric component plus display text.
func DualFloat(f float64, display string) Value {
	return Value{kind: kindDualDouble, f: f, s: display}
}

// IsNull reports whether v is the Null variant.
func (v Value) IsNull() bool { return v.kind == kindNull }

// Date wraps a calendar date for conversion into a DualInteger QVD value
// (serial day count since QVDEpoch), the same shape struct.go's Month type
// wraps a raw kdb+ month integer.
type Date time.Time

// TimeOfDay wraps a time-of-day duration (since midnight) for conversion
// into a DualDouble fractional-day QVD value.
type TimeOfDay time.Duration

// Timestamp wraps an instant for conversion into a DualDouble QVD value
// whose integer part is the serial date and fractional part is the time.
type Timestamp time.Time

// Interval wraps a duration for conversion into a DualDouble QVD value
// measured in fractional days.
type Interval time.Duration

// Money wraps an exact decimal amount for conversion into a DualDouble QVD
// value, avoiding the binary-float rounding a plain float64 cast would add.
type Money decimal.Decimal

func dateSerial(t time.Time) int32 {
	days := int(t.UTC().Sub(QVDEpoch).Hours() / 24)
	return int32(days)
}

func timestampSerial(t time.Time) float64 {
	return t.UTC().Sub(QVDEpoch).Hours() / 24
}

// toSemanticValue converts one of the semantic wrapper types above into its
// dual-tagged Value, with a placeholder display string; WriteTable
// regenerates the display text from the column's formatter before encoding
// so every symbol in a column is rendered uniformly (writer.py comment:
// "Recreate display value to ensure uniform formatting").
func toSemanticValue(native interface{}) (Value, bool) {
	switch t := native.(type) {
	case Date:
		tt := time.Time(t)
		v := DualInt(dateSerial(tt), tt.Format("2006-01-02"))
		v.Semantic = KindDate
		return v, true
	case TimeOfDay:
		d := time.Duration(t)
		frac := float64(d) / float64(24*time.Hour)
		v := DualFloat(frac, fmtDuration(d))
		v.Semantic = KindTime
		return v, true
	case Timestamp:
		tt := time.Time(t)
		v := DualFloat(timestampSerial(tt), tt.Format("2006-01-02 15:04:05"))
		v.Semantic = KindTimestamp
		return v, true
	case Interval:
		d := time.Duration(t)
		days := float64(d) / float64(24*time.Hour)
		v := DualFloat(days, fmtDuration(d))
		v.Semantic = KindInterval
		return v, true
	case Money:
		dec := decimal.Decimal(t)
		f, _ := dec.Float64()
		v := DualFloat(f, dec.StringFixed(2))
		v.Semantic = KindMoney
		return v, true
	default:
		return Value{}, false
	}
}

func fmtDuration(d time.Duration) string {
	neg := d < 0
	if neg {
		d = -d
	}
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, h, m, s)
}

// FromNative converts a foreign scalar into a Value per §4.1: integers
// within int32 range become Integer, wider integers that still fit become
// Integer, otherwise Double; floats become Double; strings become String;
// booleans become DualInteger(0/1, "false"/"true"); the semantic wrapper
// types above become the appropriate dual variant; any other type is
// rendered via fmt.Sprintf("%v", ...) into a String. A nil value becomes
// Null.
func FromNative(native interface{}) (Value, error) {
	if native == nil {
		return Null(), nil
	}

	if v, ok := native.(Value); ok {
		return v, nil
	}

	if v, ok := toSemanticValue(native); ok {
		return v, nil
	}

	switch t := native.(type) {
	case bool:
		if t {
			return DualInt(1, "true"), nil
		}
		return DualInt(0, "false"), nil
	case int:
		return intToValue(int64(t)), nil
	case int8:
		return Int(int32(t)), nil
	case int16:
		return Int(int32(t)), nil
	case int32:
		return Int(t), nil
	case int64:
		return intToValue(t), nil
	case uint:
		if uint64(t) > math.MaxInt64 {
			return Double(float64(t)), nil
		}
		return intToValue(int64(t)), nil
	case uint8:
		return Int(int32(t)), nil
	case uint16:
		return Int(int32(t)), nil
	case uint32:
		return intToValue(int64(t)), nil
	case uint64:
		if t > math.MaxInt64 {
			return Double(float64(t)), nil
		}
		return intToValue(int64(t)), nil
	case float32:
		return Double(float64(t)), nil
	case float64:
		return Double(t), nil
	case string:
		return Str(t), nil
	case decimal.Decimal:
		v, _ := toSemanticValue(Money(t))
		return v, nil
	default:
		return Str(fmt.Sprintf("%v", t)), nil
	}
}

func intToValue(v int64) Value {
	if v >= math.MinInt32 && v <= math.MaxInt32 {
		return Int(int32(v))
	}
	return Double(float64(v))
}

// Display renders the text representation of v: the dual string component
// when present, otherwise a canonical rendering of the numeric component.
func (v Value) Display() string {
	switch v.kind {
	case kindNull:
		return ""
	case kindInteger:
		return strconv.FormatInt(int64(v.i), 10)
	case kindDouble:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case kindString:
		return v.s
	case kindDualInteger, kindDualDouble:
		return v.s
	default:
		return ""
	}
}

// CalcValue returns the numeric projection used for ordering and
// predicates. ok is false for String and Null, per §4.1.
func (v Value) CalcValue() (float64, bool) {
	switch v.kind {
	case kindInteger:
		return float64(v.i), true
	case kindDouble:
		return v.f, true
	case kindDualInteger:
		return float64(v.i), true
	case kindDualDouble:
		return v.f, true
	default:
		return 0, false
	}
}

// Equal implements §4.1 equality: kinds must match and all components must
// match exactly, using bitwise comparison for doubles so that ±0 and NaN
// remain distinguishable across a round trip.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case kindNull:
		return true
	case kindInteger:
		return v.i == other.i
	case kindDouble:
		return math.Float64bits(v.f) == math.Float64bits(other.f)
	case kindString:
		return v.s == other.s
	case kindDualInteger:
		return v.i == other.i && v.s == other.s
	case kindDualDouble:
		return math.Float64bits(v.f) == math.Float64bits(other.f) && v.s == other.s
	default:
		return false
	}
}

// Hash is consistent with Equal.
func (v Value) Hash() uint64 {
	h := fnv.New64a()
	var buf [9]byte
	buf[0] = byte(v.kind)
	switch v.kind {
	case kindInteger:
		putInt32(buf[1:], v.i)
		h.Write(buf[:5])
	case kindDouble:
		putUint64(buf[1:], math.Float64bits(v.f))
		h.Write(buf[:9])
	case kindString:
		h.Write(buf[:1])
		h.Write([]byte(v.s))
	case kindDualInteger:
		putInt32(buf[1:], v.i)
		h.Write(buf[:5])
		h.Write([]byte(v.s))
	case kindDualDouble:
		putUint64(buf[1:], math.Float64bits(v.f))
		h.Write(buf[:9])
		h.Write([]byte(v.s))
	default:
		h.Write(buf[:1])
	}
	return h.Sum64()
}

func putInt32(b []byte, v int32) {
	u := uint32(v)
	b[0] = byte(u)
	b[1] = byte(u >> 8)
	b[2] = byte(u >> 16)
	b[3] = byte(u >> 24)
}

func putUint64(b []byte, u uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * i))
	}
}

// Compare orders two values ascending per §4.1: by calculation value when
// both have one (NaN sorts greater than any number, ties broken by display
// value), otherwise by lexical display-value order. Null sorts before any
// non-null value.
func Compare(a, b Value) int {
	if a.IsNull() && b.IsNull() {
		return 0
	}
	if a.IsNull() {
		return -1
	}
	if b.IsNull() {
		return 1
	}

	ca, aok := a.CalcValue()
	cb, bok := b.CalcValue()

	if aok && bok {
		aNaN, bNaN := math.IsNaN(ca), math.IsNaN(cb)
		switch {
		case aNaN && bNaN:
			return compareStrings(a.Display(), b.Display())
		case aNaN:
			return 1
		case bNaN:
			return -1
		case ca < cb:
			return -1
		case ca > cb:
			return 1
		default:
			return compareStrings(a.Display(), b.Display())
		}
	}

	return compareStrings(a.Display(), b.Display())
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
