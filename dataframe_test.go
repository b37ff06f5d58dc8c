package qvd

import "testing"

func buildDataFrame(t *testing.T) *DataFrame {
	t.Helper()
	tbl := NewTable("ID", "Name", "City")
	tbl.AppendRow([]Value{Int(1), Str("alice"), Str("nyc")})
	tbl.AppendRow([]Value{Int(2), Str("bob"), Str("la")})
	return NewDataFrame(tbl)
}

func TestDataFrameAt(t *testing.T) {
	df := buildDataFrame(t)
	v, err := df.At(1, "Name")
	if err != nil {
		t.Fatal(err)
	}
	if !v.Equal(Str("bob")) {
		t.Errorf("At(1, Name) = %v, want bob", v)
	}
}

func TestDataFrameSelect(t *testing.T) {
	df := buildDataFrame(t)
	sub, err := df.Select("City", "ID")
	if err != nil {
		t.Fatal(err)
	}
	if len(sub.Columns()) != 2 {
		t.Fatalf("Columns() = %v, want 2 entries", sub.Columns())
	}
	v, _ := sub.At(0, "City")
	if !v.Equal(Str("nyc")) {
		t.Errorf("City for row 0 = %v, want nyc", v)
	}
}

func TestDataFrameSelectUnknownColumn(t *testing.T) {
	df := buildDataFrame(t)
	if _, err := df.Select("Missing"); err == nil {
		t.Fatal("expected error selecting unknown column")
	}
}

func TestDataFrameRows(t *testing.T) {
	df := buildDataFrame(t)
	rows := df.Rows()
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if !rows[0][1].Equal(Str("alice")) {
		t.Errorf("rows[0][1] = %v, want alice", rows[0][1])
	}
}

func TestDataFrameHeadTail(t *testing.T) {
	df := buildDataFrame(t)
	if got := df.Head(1).NumRows(); got != 1 {
		t.Errorf("Head(1).NumRows() = %d, want 1", got)
	}
	if got := df.Tail(1).NumRows(); got != 1 {
		t.Errorf("Tail(1).NumRows() = %d, want 1", got)
	}
}
