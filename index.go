package qvd

import (
	"fmt"
	"math/bits"

	"github.com/golang/glog"
)

// extractBits reads the BitWidth bits starting at BitOffset (LSB-first
// numbering: byte 0 bit 0 is the lowest bit of the record) out of record,
// without ever building an intermediate textual bit string. Up to 5
// straddling bytes are loaded into a 64-bit accumulator, shifted right by
// the sub-byte offset, then masked.
func extractBits(record []byte, bitOffset, bitWidth int) (uint64, error) {
	if bitWidth == 0 {
		return 0, nil
	}
	if bitWidth > 32 {
		return 0, fmt.Errorf("%w: bit width %d exceeds 32", ErrMalformedIndexTable, bitWidth)
	}

	startByte := bitOffset / 8
	shift := bitOffset % 8
	endByte := (bitOffset + bitWidth + 7) / 8

	if endByte > len(record) {
		return 0, fmt.Errorf("%w: bit range [%d,%d) exceeds record width %d bytes", ErrMalformedIndexTable, bitOffset, bitOffset+bitWidth, len(record))
	}

	var acc uint64
	for i := endByte - 1; i >= startByte; i-- {
		acc = (acc << 8) | uint64(record[i])
	}
	acc >>= uint(shift)

	mask := uint64(1)<<uint(bitWidth) - 1
	return acc & mask, nil
}

// packBits writes value (bitWidth bits) into record at bitOffset, OR-ing
// into whatever is already there; callers are responsible for zeroing
// record first. Mirrors extractBits's accumulator shape in reverse.
func packBits(record []byte, bitOffset, bitWidth int, value uint64) {
	if bitWidth == 0 {
		return
	}

	startByte := bitOffset / 8
	shift := bitOffset % 8
	mask := uint64(1)<<uint(bitWidth) - 1
	acc := (value & mask) << uint(shift)

	nBytes := (shift + bitWidth + 7) / 8
	for i := 0; i < nBytes; i++ {
		record[startByte+i] |= byte(acc >> uint(8*i))
	}
}

// bitsNeeded returns ceil(log2(n)) for n >= 1, and 0 for n <= 1.
func bitsNeeded(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

// decodeIndexRecord extracts one row's per-field symbol indices (post-bias,
// negative meaning NULL) from a single RecordByteSize record.
func decodeIndexRecord(record []byte, fields []FieldHeader, recordIndex int) ([]int, error) {
	out := make([]int, len(fields))
	for i, f := range fields {
		raw, err := extractBits(record, f.BitOffset, f.BitWidth)
		if err != nil {
			glog.Errorln("qvd: record", recordIndex, "field", f.FieldName, "bit extraction failed:", err)
			return nil, err
		}
		code := int(raw) + f.Bias
		out[i] = code
	}
	return out, nil
}

// resolveRow converts a record's post-bias codes into Values, using NULL
// for any negative code and erroring on any code beyond the field's symbol
// list.
func resolveRow(codes []int, symbolTables [][]Value, recordIndex int) ([]Value, error) {
	row := make([]Value, len(codes))
	for i, code := range codes {
		if code < 0 {
			row[i] = Null()
			continue
		}
		symbols := symbolTables[i]
		if code >= len(symbols) {
			glog.Errorln("qvd: record", recordIndex, "field index", i, "code", code, "out of range for", len(symbols), "symbols")
			return nil, fmt.Errorf("%w: record %d field %d code %d out of range (%d symbols)",
				ErrMalformedIndexTable, recordIndex, i, code, len(symbols))
		}
		row[i] = symbols[code]
	}
	return row, nil
}

// columnLayout is the write-side bit-width/bias computation result for one
// column, per §4.4's write-side layout rule.
type columnLayout struct {
	bitWidth int
	bias     int
}

// computeLayout decides BitWidth/Bias for a column with symbolCount
// distinct symbols, given whether the column has at least one null cell.
func computeLayout(symbolCount int, hasNull bool, onlySymbolIndex int) columnLayout {
	if symbolCount <= 1 && !hasNull {
		return columnLayout{bitWidth: 0, bias: onlySymbolIndex}
	}
	n := symbolCount
	if hasNull {
		n++
	}
	width := bitsNeeded(n)
	bias := 0
	if hasNull {
		bias = -1
	}
	return columnLayout{bitWidth: width, bias: bias}
}

// encodeIndexTable packs codes (one []int per row, post-layout raw codes
// already resolved per column, i.e. code - bias) into the row-major,
// bit-packed index table, growing a single buffer rather than
// concatenating per record (the teacher's quadratic-concatenation pitfall
// called out in §9).
func encodeIndexTable(rows [][]int, fields []FieldHeader, recordByteSize int) []byte {
	out := make([]byte, recordByteSize*len(rows))
	for r, codes := range rows {
		record := out[r*recordByteSize : (r+1)*recordByteSize]
		for i, f := range fields {
			packBits(record, f.BitOffset, f.BitWidth, uint64(codes[i]))
		}
	}
	return out
}
