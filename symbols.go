package qvd

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/golang/glog"
)

const (
	tagInteger     byte = 0x01
	tagDouble      byte = 0x02
	tagString      byte = 0x04
	tagDualInteger byte = 0x05
	tagDualDouble  byte = 0x06
)

// decodeSymbols reads one field's symbol section (field.Offset, length
// field.Length, within symbolTable) into its column-order list of Values.
// The column's NumberFormat.Type distinguishes which higher-level semantic
// a dual record carries (DATE for dual-int, MONEY/TIMESTAMP/TIME/INTERVAL
// for dual-double), per reader.py's _parse_symbol_table.
func decodeSymbols(symbolTable []byte, field FieldHeader) ([]Value, error) {
	start := field.Offset
	end := field.Offset + field.Length
	if start < 0 || end > int64(len(symbolTable)) {
		glog.Errorln("qvd: symbol section out of range for field", field.FieldName)
		return nil, fmt.Errorf("%w: field %q symbol section out of range", ErrMalformedSymbolTable, field.FieldName)
	}

	buf := symbolTable[start:end]
	var symbols []Value
	pointer := int64(0)

	for pointer < int64(len(buf)) {
		tag := buf[pointer]
		pointer++

		switch tag {
		case tagInteger:
			if pointer+4 > int64(len(buf)) {
				return nil, truncatedErr(field.FieldName, "integer")
			}
			v := int32(binary.LittleEndian.Uint32(buf[pointer : pointer+4]))
			pointer += 4
			symbols = append(symbols, Int(v))

		case tagDouble:
			if pointer+8 > int64(len(buf)) {
				return nil, truncatedErr(field.FieldName, "double")
			}
			v := math.Float64frombits(binary.LittleEndian.Uint64(buf[pointer : pointer+8]))
			pointer += 8
			symbols = append(symbols, Double(v))

		case tagString:
			s, n, err := readCString(buf, pointer)
			if err != nil {
				return nil, fieldErr(field.FieldName, err)
			}
			pointer = n
			symbols = append(symbols, Str(s))

		case tagDualInteger:
			if pointer+4 > int64(len(buf)) {
				return nil, truncatedErr(field.FieldName, "dual-int")
			}
			iv := int32(binary.LittleEndian.Uint32(buf[pointer : pointer+4]))
			pointer += 4
			s, n, err := readCString(buf, pointer)
			if err != nil {
				return nil, fieldErr(field.FieldName, err)
			}
			pointer = n

			v := DualInt(iv, s)
			if field.NumberFormat.Type == KindDate {
				v.Semantic = KindDate
			}
			symbols = append(symbols, v)

		case tagDualDouble:
			if pointer+8 > int64(len(buf)) {
				return nil, truncatedErr(field.FieldName, "dual-double")
			}
			fv := math.Float64frombits(binary.LittleEndian.Uint64(buf[pointer : pointer+8]))
			pointer += 8
			s, n, err := readCString(buf, pointer)
			if err != nil {
				return nil, fieldErr(field.FieldName, err)
			}
			pointer = n

			v := DualFloat(fv, s)
			switch field.NumberFormat.Type {
			case KindTimestamp, KindTime, KindInterval, KindMoney:
				v.Semantic = field.NumberFormat.Type
			}
			symbols = append(symbols, v)

		default:
			glog.Errorln("qvd: unknown symbol tag byte", tag, "in field", field.FieldName)
			return nil, fmt.Errorf("%w: field %q unknown tag byte 0x%02x", ErrMalformedSymbolTable, field.FieldName, tag)
		}
	}

	return symbols, nil
}

func readCString(buf []byte, from int64) (string, int64, error) {
	i := from
	for i < int64(len(buf)) && buf[i] != 0 {
		i++
	}
	if i >= int64(len(buf)) {
		return "", 0, fmt.Errorf("unterminated string")
	}
	return string(buf[from:i]), i + 1, nil
}

func truncatedErr(field, kind string) error {
	glog.Errorln("qvd: truncated", kind, "payload in field", field)
	return fmt.Errorf("%w: field %q truncated %s payload", ErrMalformedSymbolTable, field, kind)
}

func fieldErr(field string, err error) error {
	glog.Errorln("qvd: field", field, "symbol decode error:", err)
	return fmt.Errorf("%w: field %q: %v", ErrMalformedSymbolTable, field, err)
}

// encodeSymbol appends the on-disk tagged record for v to buf, selecting
// the tightest representation per the symbol codec's encoding rules:
// Integer -> 0x01, Double -> 0x02, plain String -> 0x04; dual variants
// always keep their dual tag, never collapsing to a bare numeric record,
// so the display text survives the round trip.
func encodeSymbol(buf []byte, v Value) ([]byte, error) {
	switch v.kind {
	case kindInteger:
		buf = append(buf, tagInteger)
		buf = appendInt32(buf, v.i)
	case kindDouble:
		buf = append(buf, tagDouble)
		buf = appendFloat64(buf, v.f)
	case kindString:
		buf = append(buf, tagString)
		buf = append(buf, v.s...)
		buf = append(buf, 0)
	case kindDualInteger:
		buf = append(buf, tagDualInteger)
		buf = appendInt32(buf, v.i)
		buf = append(buf, v.s...)
		buf = append(buf, 0)
	case kindDualDouble:
		buf = append(buf, tagDualDouble)
		buf = appendFloat64(buf, v.f)
		buf = append(buf, v.s...)
		buf = append(buf, 0)
	default:
		return nil, fmt.Errorf("%w: cannot encode value kind %d", ErrUnsupportedVariant, v.kind)
	}
	return buf, nil
}

func appendInt32(buf []byte, v int32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return append(buf, b[:]...)
}

func appendFloat64(buf []byte, v float64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	return append(buf, b[:]...)
}
