package qvd

import (
	"bytes"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	tbl := NewTable("Name", "Score", "Active")
	rows := [][]Value{
		{Str("alice"), Int(10), DualInt(1, "true")},
		{Str("bob"), Null(), DualInt(0, "false")},
		{Str("alice"), Int(20), DualInt(1, "true")},
		{Str("carol"), Int(10), DualInt(0, "false")},
	}
	for _, r := range rows {
		if err := tbl.AppendRow(r); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	opts := DefaultWriteOptions()
	opts.TableName = "People"
	if err := WriteTable(&buf, tbl, opts); err != nil {
		t.Fatal(err)
	}

	got, err := ReadTable(bytes.NewReader(buf.Bytes()), nil)
	if err != nil {
		t.Fatal(err)
	}

	if got.NumRows() != len(rows) {
		t.Fatalf("NumRows = %d, want %d", got.NumRows(), len(rows))
	}
	for r, want := range rows {
		for c := range want {
			gv, err := got.Get(r, c)
			if err != nil {
				t.Fatal(err)
			}
			if !gv.Equal(want[c]) {
				t.Errorf("row %d col %d = %v, want %v", r, c, gv, want[c])
			}
		}
	}
}

func TestWriteTableGeneratesCreatorDoc(t *testing.T) {
	tbl := NewTable("A")
	tbl.AppendRow([]Value{Int(1)})

	var buf bytes.Buffer
	if err := WriteTable(&buf, tbl, nil); err != nil {
		t.Fatal(err)
	}

	header, _, err := ParseHeader(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if header.CreatorDoc == "" {
		t.Error("CreatorDoc was not populated")
	}
}

func TestWriteTableHonorsExplicitCreatorDoc(t *testing.T) {
	tbl := NewTable("A")
	tbl.AppendRow([]Value{Int(1)})

	opts := DefaultWriteOptions()
	opts.CreatorDoc = "my-tool/1.0"

	var buf bytes.Buffer
	if err := WriteTable(&buf, tbl, opts); err != nil {
		t.Fatal(err)
	}

	header, _, err := ParseHeader(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if header.CreatorDoc != "my-tool/1.0" {
		t.Errorf("CreatorDoc = %q, want my-tool/1.0", header.CreatorDoc)
	}
}

func TestWriteReadRoundTripAllNullColumn(t *testing.T) {
	tbl := NewTable("A")
	tbl.AppendRow([]Value{Null()})
	tbl.AppendRow([]Value{Null()})

	var buf bytes.Buffer
	if err := WriteTable(&buf, tbl, nil); err != nil {
		t.Fatal(err)
	}

	got, err := ReadTable(bytes.NewReader(buf.Bytes()), nil)
	if err != nil {
		t.Fatal(err)
	}
	for r := 0; r < got.NumRows(); r++ {
		v, _ := got.Get(r, 0)
		if !v.IsNull() {
			t.Errorf("row %d = %v, want null", r, v)
		}
	}
}

func TestWriteReadRoundTripSingleDistinctValue(t *testing.T) {
	tbl := NewTable("A")
	for i := 0; i < 5; i++ {
		tbl.AppendRow([]Value{Str("same")})
	}

	var buf bytes.Buffer
	if err := WriteTable(&buf, tbl, nil); err != nil {
		t.Fatal(err)
	}

	got, err := ReadTable(bytes.NewReader(buf.Bytes()), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.NumRows() != 5 {
		t.Fatalf("NumRows = %d, want 5", got.NumRows())
	}
	for r := 0; r < 5; r++ {
		v, _ := got.Get(r, 0)
		if !v.Equal(Str("same")) {
			t.Errorf("row %d = %v, want same", r, v)
		}
	}
}

func TestWriteReadRoundTripDateSemantic(t *testing.T) {
	tbl := NewTable("D")
	d := Date(QVDEpoch.AddDate(0, 0, 50))
	tbl.AppendRow([]Value{mustFromNative(t, d)})

	var buf bytes.Buffer
	if err := WriteTable(&buf, tbl, nil); err != nil {
		t.Fatal(err)
	}

	got, err := ReadTable(bytes.NewReader(buf.Bytes()), nil)
	if err != nil {
		t.Fatal(err)
	}
	v, _ := got.Get(0, 0)
	if v.Semantic != KindDate {
		t.Errorf("Semantic = %q, want %q", v.Semantic, KindDate)
	}
	if v.Display() != "1900-02-18" {
		t.Errorf("Display() = %q, want 1900-02-18", v.Display())
	}
}

func mustFromNative(t *testing.T, native interface{}) Value {
	t.Helper()
	v, err := FromNative(native)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestWriteReadChunked(t *testing.T) {
	tbl := NewTable("N")
	for i := 0; i < 10; i++ {
		tbl.AppendRow([]Value{Int(int32(i))})
	}

	var buf bytes.Buffer
	if err := WriteTable(&buf, tbl, nil); err != nil {
		t.Fatal(err)
	}

	src := NewMemorySource(buf.Bytes())
	cr, err := ReadChunks(src, 3, nil)
	if err != nil {
		t.Fatal(err)
	}
	if want := cr.Len(); want != 4 {
		t.Fatalf("Len() = %d, want 4", want)
	}

	var gotValues []int32
	for {
		chunk, err := cr.Next()
		if err != nil {
			break
		}
		for r := 0; r < chunk.NumRows(); r++ {
			v, _ := chunk.Get(r, 0)
			f, _ := v.CalcValue()
			gotValues = append(gotValues, int32(f))
		}
	}
	if len(gotValues) != 10 {
		t.Fatalf("got %d values, want 10", len(gotValues))
	}
	for i, v := range gotValues {
		if int(v) != i {
			t.Errorf("gotValues[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestReadChunksRejectsUnseekableSource(t *testing.T) {
	r := NewStreamSource(bytes.NewReader([]byte("not a qvd file")))
	_, err := ReadChunks(r, 10, nil)
	if err != ErrUnseekableStream {
		t.Fatalf("err = %v, want ErrUnseekableStream", err)
	}
}

func TestInferTagsDualKindColumnIsNumericOnly(t *testing.T) {
	symbols := []Value{DualInt(1, "one"), DualInt(2, "two")}
	tags := inferTags(symbols, KindUnknown, false)

	want := map[string]bool{TagNumeric: true}
	got := map[string]bool{}
	for _, tg := range tags {
		got[tg] = true
	}
	if len(got) != len(want) {
		t.Fatalf("inferTags(dual-integer column) = %v, want only %v", tags, []string{TagNumeric})
	}
	for tg := range want {
		if !got[tg] {
			t.Errorf("inferTags(dual-integer column) missing %q, got %v", tg, tags)
		}
	}
	if got[TagText] || got[TagASCII] || got[TagInteger] {
		t.Errorf("inferTags(dual-integer column) = %v, want no $text/$ascii/$integer", tags)
	}
}

func TestInferTagsDualDoubleColumnIsNumericOnly(t *testing.T) {
	symbols := []Value{DualFloat(1.5, "a"), DualFloat(2.5, "b")}
	tags := inferTags(symbols, KindUnknown, false)

	for _, tg := range tags {
		if tg == TagText || tg == TagASCII {
			t.Errorf("inferTags(dual-double column) = %v, want no $text/$ascii", tags)
		}
	}
	found := false
	for _, tg := range tags {
		if tg == TagNumeric {
			found = true
		}
	}
	if !found {
		t.Errorf("inferTags(dual-double column) = %v, want $numeric", tags)
	}
}

func TestReadTableHonorsColumnSelection(t *testing.T) {
	tbl := NewTable("A", "B", "C")
	tbl.AppendRow([]Value{Int(1), Int(2), Int(3)})

	var buf bytes.Buffer
	if err := WriteTable(&buf, tbl, nil); err != nil {
		t.Fatal(err)
	}

	got, err := ReadTable(bytes.NewReader(buf.Bytes()), &ReadOptions{Columns: []string{"C", "A"}})
	if err != nil {
		t.Fatal(err)
	}
	if got.NumCols() != 2 {
		t.Fatalf("NumCols = %d, want 2", got.NumCols())
	}
	if got.Columns()[0] != "C" || got.Columns()[1] != "A" {
		t.Errorf("Columns() = %v, want [C A]", got.Columns())
	}
}
