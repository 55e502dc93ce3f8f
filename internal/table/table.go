package table

import (
	"fmt"
	"strconv"
	"strings"
)

// Cell is a single table value. An invalid cell is missing.
type Cell struct {
	Value string
	Valid bool
}

// String creates a present cell
func String(v string) Cell {
	return Cell{Value: v, Valid: true}
}

// Null creates a missing cell
func Null() Cell {
	return Cell{}
}

// Int creates a present cell holding an integer
func Int(v int) Cell {
	return String(strconv.Itoa(v))
}

// Float creates a present cell holding a float in its shortest form
func Float(v float64) Cell {
	return String(strconv.FormatFloat(v, 'f', -1, 64))
}

// IsMissing reports whether the cell holds no value
func (c Cell) IsMissing() bool {
	return !c.Valid
}

// Float64 parses the cell as a number
func (c Cell) Float64() (float64, bool) {
	if !c.Valid {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Table is an ordered set of named columns with rows of cells.
// Every row has exactly len(Columns) cells.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]Cell
}

// New creates an empty table with the given columns
func New(name string, columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Name: name, Columns: cols}
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// Width returns the number of columns
func (t *Table) Width() int {
	return len(t.Columns)
}

// AppendRow adds a row. The row must match the column count.
func (t *Table) AppendRow(row []Cell) error {
	if len(row) != len(t.Columns) {
		return fmt.Errorf("row has %d cells, table %q has %d columns", len(row), t.Name, len(t.Columns))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// ColumnIndex returns the position of a column or -1
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the table has the named column
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Column returns a copy of all cells in the named column
func (t *Table) Column(name string) ([]Cell, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found in table %q", name, t.Name)
	}
	out := make([]Cell, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// AddColumn appends a column with the given values
func (t *Table) AddColumn(name string, values []Cell) error {
	if t.HasColumn(name) {
		return fmt.Errorf("column %q already exists in table %q", name, t.Name)
	}
	if len(values) != len(t.Rows) {
		return fmt.Errorf("column %q has %d values, table %q has %d rows", name, len(values), t.Name, len(t.Rows))
	}
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], values[i])
	}
	return nil
}

// DropColumns removes the named columns. Unknown names are ignored.
func (t *Table) DropColumns(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}

	keep := make([]int, 0, len(t.Columns))
	cols := make([]string, 0, len(t.Columns))
	for i, c := range t.Columns {
		if !drop[c] {
			keep = append(keep, i)
			cols = append(cols, c)
		}
	}
	if len(cols) == len(t.Columns) {
		return
	}

	for r, row := range t.Rows {
		newRow := make([]Cell, len(keep))
		for j, idx := range keep {
			newRow[j] = row[idx]
		}
		t.Rows[r] = newRow
	}
	t.Columns = cols
}

// RenameColumn renames a column if present and reports whether it did
func (t *Table) RenameColumn(from, to string) bool {
	idx := t.ColumnIndex(from)
	if idx < 0 {
		return false
	}
	t.Columns[idx] = to
	return true
}

// Select returns a new table with only the named columns, in that order
func (t *Table) Select(names ...string) (*Table, error) {
	idx := make([]int, len(names))
	for i, n := range names {
		idx[i] = t.ColumnIndex(n)
		if idx[i] < 0 {
			return nil, fmt.Errorf("column %q not found in table %q", n, t.Name)
		}
	}

	out := New(t.Name, names...)
	out.Rows = make([][]Cell, len(t.Rows))
	for r, row := range t.Rows {
		newRow := make([]Cell, len(idx))
		for j, k := range idx {
			newRow[j] = row[k]
		}
		out.Rows[r] = newRow
	}
	return out, nil
}

// Filter returns a new table holding the rows for which keep returns true
func (t *Table) Filter(keep func(row []Cell) bool) *Table {
	out := New(t.Name, t.Columns...)
	for _, row := range t.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, cloneRow(row))
		}
	}
	return out
}

// Clone returns a deep copy of the table
func (t *Table) Clone() *Table {
	out := New(t.Name, t.Columns...)
	out.Rows = make([][]Cell, len(t.Rows))
	for i, row := range t.Rows {
		out.Rows[i] = cloneRow(row)
	}
	return out
}

// DropDuplicates keeps the first row for each distinct value of key
func (t *Table) DropDuplicates(key string) error {
	idx := t.ColumnIndex(key)
	if idx < 0 {
		return fmt.Errorf("column %q not found in table %q", key, t.Name)
	}

	seen := make(map[Cell]bool, len(t.Rows))
	rows := t.Rows[:0]
	for _, row := range t.Rows {
		if seen[row[idx]] {
			continue
		}
		seen[row[idx]] = true
		rows = append(rows, row)
	}
	t.Rows = rows
	return nil
}

// Records renders the table as string records, missing cells as empty strings
func (t *Table) Records() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rec := make([]string, len(row))
		for j, c := range row {
			if c.Valid {
				rec[j] = c.Value
			}
		}
		out[i] = rec
	}
	return out
}

func cloneRow(row []Cell) []Cell {
	out := make([]Cell, len(row))
	copy(out, row)
	return out
}
