package qvd

import "testing"

func TestExtractBitsRoundTripAllWidthsAndOffsets(t *testing.T) {
	record := make([]byte, 8)
	for width := 0; width <= 32; width++ {
		for offset := 0; offset <= 63-width; offset++ {
			for _, v := range []uint64{0, 1} {
				for i := range record {
					record[i] = 0
				}
				var value uint64
				if width > 0 {
					value = v & (uint64(1)<<uint(width) - 1)
				}
				packBits(record, offset, width, value)
				got, err := extractBits(record, offset, width)
				if err != nil {
					t.Fatalf("width=%d offset=%d: %v", width, offset, err)
				}
				if got != value {
					t.Fatalf("width=%d offset=%d: got %d, want %d", width, offset, got, value)
				}
			}
		}
	}
}

func TestExtractBitsMaxValuePattern(t *testing.T) {
	record := make([]byte, 5)
	width := 17
	offset := 5
	max := uint64(1)<<uint(width) - 1
	packBits(record, offset, width, max)
	got, err := extractBits(record, offset, width)
	if err != nil {
		t.Fatal(err)
	}
	if got != max {
		t.Errorf("got %d, want %d", got, max)
	}
}

func TestExtractBitsZeroWidthIsAlwaysZero(t *testing.T) {
	record := []byte{0xff, 0xff}
	got, err := extractBits(record, 3, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}

func TestExtractBitsOutOfRangeRecord(t *testing.T) {
	record := []byte{0x01}
	_, err := extractBits(record, 0, 32)
	if err == nil {
		t.Fatal("expected error for bit range exceeding record width")
	}
}

func TestBitsNeeded(t *testing.T) {
	cases := []struct {
		n    int
		want int
	}{
		{0, 0}, {1, 0}, {2, 1}, {3, 2}, {4, 2}, {5, 3}, {8, 3}, {9, 4}, {256, 8}, {257, 9},
	}
	for _, c := range cases {
		if got := bitsNeeded(c.n); got != c.want {
			t.Errorf("bitsNeeded(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

func TestComputeLayoutSingleValueNoNull(t *testing.T) {
	l := computeLayout(1, false, 0)
	if l.bitWidth != 0 || l.bias != 0 {
		t.Errorf("layout = %+v, want bitWidth 0, bias 0", l)
	}
}

func TestComputeLayoutWithNulls(t *testing.T) {
	l := computeLayout(3, true, 0)
	if l.bias != -1 {
		t.Errorf("bias = %d, want -1", l.bias)
	}
	// 3 symbols + 1 null slot needs ceil(log2(4)) = 2 bits.
	if l.bitWidth != 2 {
		t.Errorf("bitWidth = %d, want 2", l.bitWidth)
	}
}

func TestComputeLayoutNoNulls(t *testing.T) {
	l := computeLayout(5, false, 0)
	if l.bias != 0 {
		t.Errorf("bias = %d, want 0", l.bias)
	}
	if l.bitWidth != 3 {
		t.Errorf("bitWidth = %d, want 3", l.bitWidth)
	}
}

func TestDecodeIndexRecordAndResolveRow(t *testing.T) {
	fields := []FieldHeader{
		{FieldName: "a", BitOffset: 0, BitWidth: 2, Bias: 0},
		{FieldName: "b", BitOffset: 2, BitWidth: 2, Bias: -1},
	}
	record := make([]byte, 1)
	packBits(record, 0, 2, 3)
	packBits(record, 2, 2, 0) // raw 0, bias -1 -> code -1 (null)

	codes, err := decodeIndexRecord(record, fields, 0)
	if err != nil {
		t.Fatal(err)
	}
	if codes[0] != 3 {
		t.Errorf("codes[0] = %d, want 3", codes[0])
	}
	if codes[1] != -1 {
		t.Errorf("codes[1] = %d, want -1", codes[1])
	}

	symbolTables := [][]Value{
		{Str("x0"), Str("x1"), Str("x2"), Str("x3")},
		{Str("y0"), Str("y1"), Str("y2")},
	}
	row, err := resolveRow(codes, symbolTables, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !row[0].Equal(Str("x3")) {
		t.Errorf("row[0] = %v, want x3", row[0])
	}
	if !row[1].IsNull() {
		t.Errorf("row[1] = %v, want null", row[1])
	}
}

func TestResolveRowRejectsOutOfRangeCode(t *testing.T) {
	codes := []int{5}
	symbolTables := [][]Value{{Str("only")}}
	_, err := resolveRow(codes, symbolTables, 0)
	if err == nil {
		t.Fatal("expected error for out-of-range code")
	}
}

func TestEncodeIndexTableRoundTripsThroughDecode(t *testing.T) {
	fields := []FieldHeader{
		{FieldName: "a", BitOffset: 0, BitWidth: 3, Bias: 0},
		{FieldName: "b", BitOffset: 3, BitWidth: 3, Bias: 0},
	}
	recordByteSize := 1
	rows := [][]int{{1, 2}, {5, 0}, {7, 7}}

	buf := encodeIndexTable(rows, fields, recordByteSize)
	if len(buf) != recordByteSize*len(rows) {
		t.Fatalf("buf len = %d, want %d", len(buf), recordByteSize*len(rows))
	}

	for r, want := range rows {
		record := buf[r*recordByteSize : (r+1)*recordByteSize]
		codes, err := decodeIndexRecord(record, fields, r)
		if err != nil {
			t.Fatal(err)
		}
		for i := range want {
			if codes[i] != want[i] {
				t.Errorf("row %d field %d = %d, want %d", r, i, codes[i], want[i])
			}
		}
	}
}
