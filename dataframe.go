package qvd

// DataFrame is a thin, spreadsheet-style convenience wrapper over Table,
// grounded on the legacy qvd.py QvdDataFrame helper: cell access by
// (row, column name), column projection, and a plain [][]Value view of
// the rows.
type DataFrame struct {
	*Table
}

// NewDataFrame wraps t as a DataFrame.
func NewDataFrame(t *Table) *DataFrame { return &DataFrame{Table: t} }

// At returns the cell at (row, column name).
func (d *DataFrame) At(row int, column string) (Value, error) {
	return d.GetByName(row, column)
}

// Select returns a new DataFrame holding only the named columns, in the
// given order.
func (d *DataFrame) Select(columns ...string) (*DataFrame, error) {
	out := NewTable(columns...)
	cols := make([][]Value, len(columns))
	for i, name := range columns {
		c, err := d.ColumnByName(name)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	for r := 0; r < d.NumRows(); r++ {
		row := make([]Value, len(columns))
		for i, c := range cols {
			row[i] = c[r]
		}
		if err := out.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return NewDataFrame(out), nil
}

// Rows materializes every row as a plain [][]Value, column order matching
// Columns().
func (d *DataFrame) Rows() [][]Value {
	out := make([][]Value, d.NumRows())
	for r := range out {
		row, _ := d.Row(r)
		out[r] = row
	}
	return out
}

// Head returns the DataFrame's first n rows.
func (d *DataFrame) Head(n int) *DataFrame { return NewDataFrame(d.Table.Head(n)) }

// Tail returns the DataFrame's last n rows.
func (d *DataFrame) Tail(n int) *DataFrame { return NewDataFrame(d.Table.Tail(n)) }
