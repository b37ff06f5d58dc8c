package qvd

import "sort"

// Table is an in-memory, column-major table of Values, the same column
// vector layout as struct.go's Table{Columns []string, Data []K} but with
// each column now a concrete []Value slice instead of an opaque *K.
type Table struct {
	names []string
	index map[string]int
	cols  [][]Value
	nrows int
}

// NewTable builds an empty table with the given column names, in order.
func NewTable(columns ...string) *Table {
	t := &Table{
		names: append([]string(nil), columns...),
		index: make(map[string]int, len(columns)),
		cols:  make([][]Value, len(columns)),
	}
	for i, c := range columns {
		t.index[c] = i
	}
	return t
}

// Columns returns the table's column names, in order.
func (t *Table) Columns() []string { return append([]string(nil), t.names...) }

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return t.nrows }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.names) }

func (t *Table) colIdx(name string) (int, error) {
	i, ok := t.index[name]
	if !ok {
		return 0, ErrUnknownColumn
	}
	return i, nil
}

// Get returns the value at (row, col).
func (t *Table) Get(row, col int) (Value, error) {
	if row < 0 || row >= t.nrows || col < 0 || col >= len(t.cols) {
		return Value{}, ErrShapeMismatch
	}
	return t.cols[col][row], nil
}

// GetByName returns the value at (row, column name).
func (t *Table) GetByName(row int, name string) (Value, error) {
	i, err := t.colIdx(name)
	if err != nil {
		return Value{}, err
	}
	return t.Get(row, i)
}

// Set writes the value at (row, col).
func (t *Table) Set(row, col int, v Value) error {
	if row < 0 || row >= t.nrows || col < 0 || col >= len(t.cols) {
		return ErrShapeMismatch
	}
	t.cols[col][row] = v
	return nil
}

// SetByName writes the value at (row, column name).
func (t *Table) SetByName(row int, name string, v Value) error {
	i, err := t.colIdx(name)
	if err != nil {
		return err
	}
	return t.Set(row, i, v)
}

// Row returns a copy of row r across all columns.
func (t *Table) Row(r int) ([]Value, error) {
	if r < 0 || r >= t.nrows {
		return nil, ErrShapeMismatch
	}
	out := make([]Value, len(t.cols))
	for i, c := range t.cols {
		out[i] = c[r]
	}
	return out, nil
}

// Column returns the column at index i, by reference.
func (t *Table) Column(i int) ([]Value, error) {
	if i < 0 || i >= len(t.cols) {
		return nil, ErrShapeMismatch
	}
	return t.cols[i], nil
}

// ColumnByName returns the named column, by reference.
func (t *Table) ColumnByName(name string) ([]Value, error) {
	i, err := t.colIdx(name)
	if err != nil {
		return nil, err
	}
	return t.cols[i], nil
}

// AppendRow appends row to the end of the table. len(row) must equal
// NumCols.
func (t *Table) AppendRow(row []Value) error {
	return t.InsertRow(t.nrows, row)
}

// InsertRow inserts row at position at, shifting subsequent rows down.
func (t *Table) InsertRow(at int, row []Value) error {
	if len(row) != len(t.cols) {
		return ErrShapeMismatch
	}
	if at < 0 || at > t.nrows {
		return ErrShapeMismatch
	}
	for i, v := range row {
		c := t.cols[i]
		c = append(c, Value{})
		copy(c[at+1:], c[at:])
		c[at] = v
		t.cols[i] = c
	}
	t.nrows++
	return nil
}

// DropRow removes the row at position at.
func (t *Table) DropRow(at int) error {
	if at < 0 || at >= t.nrows {
		return ErrShapeMismatch
	}
	for i, c := range t.cols {
		t.cols[i] = append(c[:at], c[at+1:]...)
	}
	t.nrows--
	return nil
}

// AppendColumn appends a new column named name holding values. len(values)
// must equal NumRows, unless the table is currently empty (0 columns),
// in which case values establishes NumRows.
func (t *Table) AppendColumn(name string, values []Value) error {
	return t.InsertColumn(len(t.names), name, values)
}

// InsertColumn inserts a new column named name at position at.
func (t *Table) InsertColumn(at int, name string, values []Value) error {
	if _, exists := t.index[name]; exists {
		return ErrDuplicateColumn
	}
	if len(t.cols) == 0 {
		t.nrows = len(values)
	} else if len(values) != t.nrows {
		return ErrShapeMismatch
	}
	if at < 0 || at > len(t.names) {
		at = len(t.names)
	}

	t.names = append(t.names, "")
	copy(t.names[at+1:], t.names[at:])
	t.names[at] = name

	t.cols = append(t.cols, nil)
	copy(t.cols[at+1:], t.cols[at:])
	t.cols[at] = append([]Value(nil), values...)

	t.reindex()
	return nil
}

// DropColumn removes the named column.
func (t *Table) DropColumn(name string) error {
	i, err := t.colIdx(name)
	if err != nil {
		return err
	}
	t.names = append(t.names[:i], t.names[i+1:]...)
	t.cols = append(t.cols[:i], t.cols[i+1:]...)
	t.reindex()
	return nil
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.names))
	for i, n := range t.names {
		t.index[n] = i
	}
}

// FilterBy returns a new table holding only the rows for which keep
// returns true.
func (t *Table) FilterBy(keep func(row []Value) bool) (*Table, error) {
	out := NewTable(t.names...)
	for r := 0; r < t.nrows; r++ {
		row, err := t.Row(r)
		if err != nil {
			return nil, err
		}
		if keep(row) {
			if err := out.AppendRow(row); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// SortBy returns a new table with rows reordered by less, a stable sort
// so rows that compare equal keep their original relative order.
func (t *Table) SortBy(less func(a, b []Value) bool) (*Table, error) {
	perm := make([]int, t.nrows)
	for i := range perm {
		perm[i] = i
	}
	rows := make([][]Value, t.nrows)
	for i := range rows {
		row, err := t.Row(i)
		if err != nil {
			return nil, err
		}
		rows[i] = row
	}
	sort.SliceStable(perm, func(i, j int) bool {
		return less(rows[perm[i]], rows[perm[j]])
	})

	out := NewTable(t.names...)
	for _, p := range perm {
		if err := out.AppendRow(rows[p]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Concat appends other's rows after t's, requiring identical column sets
// in the same order. When inplace is true t is mutated and returned;
// otherwise a new table is built and t is untouched.
func (t *Table) Concat(other *Table, inplace bool) (*Table, error) {
	if len(t.names) != len(other.names) {
		return nil, ErrShapeMismatch
	}
	for i := range t.names {
		if t.names[i] != other.names[i] {
			return nil, ErrShapeMismatch
		}
	}

	dst := t
	if !inplace {
		dst = NewTable(t.names...)
		for r := 0; r < t.nrows; r++ {
			row, _ := t.Row(r)
			if err := dst.AppendRow(row); err != nil {
				return nil, err
			}
		}
	}
	for r := 0; r < other.nrows; r++ {
		row, err := other.Row(r)
		if err != nil {
			return nil, err
		}
		if err := dst.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

// JoinKind selects a Join's row-matching behavior.
type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftJoin
	RightJoin
	OuterJoin
)

// Join matches rows of t and other on leftKeys/rightKeys (equal length,
// positionally paired column names) and returns the combined table.
// Columns present in both tables that are not join keys are disambiguated
// with lsuffix/rsuffix.
func (t *Table) Join(other *Table, kind JoinKind, leftKeys, rightKeys []string, lsuffix, rsuffix string) (*Table, error) {
	if len(leftKeys) != len(rightKeys) || len(leftKeys) == 0 {
		return nil, ErrShapeMismatch
	}
	leftKeyIdx := make([]int, len(leftKeys))
	rightKeyIdx := make([]int, len(rightKeys))
	for i, k := range leftKeys {
		idx, err := t.colIdx(k)
		if err != nil {
			return nil, err
		}
		leftKeyIdx[i] = idx
	}
	for i, k := range rightKeys {
		idx, err := other.colIdx(k)
		if err != nil {
			return nil, err
		}
		rightKeyIdx[i] = idx
	}

	outNames, leftCols, rightCols := joinColumnPlan(t.names, other.names, leftKeys, lsuffix, rsuffix)
	out := NewTable(outNames...)

	rightByKey := make(map[uint64][]int)
	for r := 0; r < other.nrows; r++ {
		row, _ := other.Row(r)
		k := joinKeyHash(row, rightKeyIdx)
		rightByKey[k] = append(rightByKey[k], r)
	}

	matchedRight := make([]bool, other.nrows)

	emit := func(leftRow, rightRow []Value) error {
		combined := make([]Value, 0, len(outNames))
		for _, i := range leftCols {
			if leftRow == nil {
				combined = append(combined, Null())
			} else {
				combined = append(combined, leftRow[i])
			}
		}
		for _, i := range rightCols {
			if rightRow == nil {
				combined = append(combined, Null())
			} else {
				combined = append(combined, rightRow[i])
			}
		}
		return out.AppendRow(combined)
	}

	for r := 0; r < t.nrows; r++ {
		leftRow, _ := t.Row(r)
		k := joinKeyHash(leftRow, leftKeyIdx)
		candidates := rightByKey[k]

		matched := false
		for _, rr := range candidates {
			rightRow, _ := other.Row(rr)
			if !joinKeysEqual(leftRow, leftKeyIdx, rightRow, rightKeyIdx) {
				continue
			}
			matched = true
			matchedRight[rr] = true
			if err := emit(leftRow, rightRow); err != nil {
				return nil, err
			}
		}
		if !matched && (kind == LeftJoin || kind == OuterJoin) {
			if err := emit(leftRow, nil); err != nil {
				return nil, err
			}
		}
	}

	if kind == RightJoin || kind == OuterJoin {
		for rr := 0; rr < other.nrows; rr++ {
			if matchedRight[rr] {
				continue
			}
			rightRow, _ := other.Row(rr)
			if err := emit(nil, rightRow); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}

func joinColumnPlan(leftNames, rightNames, keys []string, lsuffix, rsuffix string) (outNames []string, leftCols, rightCols []int) {
	leftSet := make(map[string]bool, len(leftNames))
	for _, n := range leftNames {
		leftSet[n] = true
	}
	rightSet := make(map[string]bool, len(rightNames))
	for _, n := range rightNames {
		rightSet[n] = true
	}
	keySet := make(map[string]bool, len(keys))
	for _, k := range keys {
		keySet[k] = true
	}

	for i, n := range leftNames {
		name := n
		if !keySet[n] && rightSet[n] {
			name = n + lsuffix
		}
		outNames = append(outNames, name)
		leftCols = append(leftCols, i)
	}
	for i, n := range rightNames {
		if keySet[n] {
			continue
		}
		name := n
		if leftSet[n] {
			name = n + rsuffix
		}
		outNames = append(outNames, name)
		rightCols = append(rightCols, i)
	}
	return outNames, leftCols, rightCols
}

func joinKeyHash(row []Value, idx []int) uint64 {
	h := uint64(1469598103934665603)
	for _, i := range idx {
		h ^= row[i].Hash()
		h *= 1099511628211
	}
	return h
}

// joinKeysEqual re-checks actual key equality for a candidate bucketed
// under a matching joinKeyHash, since a hash match alone admits collisions.
func joinKeysEqual(leftRow []Value, leftIdx []int, rightRow []Value, rightIdx []int) bool {
	for i := range leftIdx {
		if !leftRow[leftIdx[i]].Equal(rightRow[rightIdx[i]]) {
			return false
		}
	}
	return true
}

// Head returns a new table holding the first n rows (fewer if the table
// is shorter).
func (t *Table) Head(n int) *Table {
	if n > t.nrows {
		n = t.nrows
	}
	out := NewTable(t.names...)
	for r := 0; r < n; r++ {
		row, _ := t.Row(r)
		out.AppendRow(row)
	}
	return out
}

// Tail returns a new table holding the last n rows (fewer if the table is
// shorter).
func (t *Table) Tail(n int) *Table {
	if n > t.nrows {
		n = t.nrows
	}
	start := t.nrows - n
	out := NewTable(t.names...)
	for r := start; r < t.nrows; r++ {
		row, _ := t.Row(r)
		out.AppendRow(row)
	}
	return out
}

// ToMapping renders the table as a slice of row maps keyed by column name.
func (t *Table) ToMapping() []map[string]Value {
	out := make([]map[string]Value, t.nrows)
	for r := 0; r < t.nrows; r++ {
		m := make(map[string]Value, len(t.names))
		for c, name := range t.names {
			m[name] = t.cols[c][r]
		}
		out[r] = m
	}
	return out
}

// FromMapping builds a table with the given column order from row maps.
// Any column absent from a given row map is filled with Null.
func FromMapping(rows []map[string]Value, columns []string) *Table {
	t := NewTable(columns...)
	for _, m := range rows {
		row := make([]Value, len(columns))
		for i, c := range columns {
			if v, ok := m[c]; ok {
				row[i] = v
			} else {
				row[i] = Null()
			}
		}
		t.AppendRow(row)
	}
	return t
}
