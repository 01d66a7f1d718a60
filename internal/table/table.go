// Package table is a small record-oriented relational table: named columns,
// rows of loosely typed values, and the handful of relational operations the
// reports need (pivot, distinct, inner join, stable sort). A nil value stands
// for a missing entry.
package table

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/signalnine/trialbook/internal/errdefs"
)

type Table struct {
	columns []string
	index   map[string]int
	rows    [][]any
}

// New creates an empty table. Repeated column names are ignored.
func New(columns ...string) *Table {
	t := &Table{index: make(map[string]int, len(columns))}
	for _, c := range columns {
		t.addColumn(c)
	}
	return t
}

// FromRecords builds a table from map records. The leading columns come first,
// the remaining keys follow in sorted order. Keys absent from a record are nil.
func FromRecords(records []map[string]any, leading ...string) *Table {
	t := New(leading...)
	var rest []string
	seen := make(map[string]bool)
	for _, rec := range records {
		for k := range rec {
			if !t.HasColumn(k) && !seen[k] {
				seen[k] = true
				rest = append(rest, k)
			}
		}
	}
	sort.Strings(rest)
	for _, c := range rest {
		t.addColumn(c)
	}
	for _, rec := range records {
		t.AppendMap(rec)
	}
	return t
}

func (t *Table) addColumn(name string) bool {
	if _, ok := t.index[name]; ok {
		return false
	}
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, name)
	return true
}

func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

func (t *Table) Len() int {
	return len(t.rows)
}

func (t *Table) Empty() bool {
	return len(t.rows) == 0
}

// Append adds a row given values in column order.
func (t *Table) Append(values ...any) error {
	if len(values) != len(t.columns) {
		return errdefs.InvalidArgumentf("row has %d values for %d columns", len(values), len(t.columns))
	}
	t.rows = append(t.rows, slices.Clone(values))
	return nil
}

// AppendMap adds a row from a record; keys that are not columns are ignored.
func (t *Table) AppendMap(rec map[string]any) {
	row := make([]any, len(t.columns))
	for k, v := range rec {
		if i, ok := t.index[k]; ok {
			row[i] = v
		}
	}
	t.rows = append(t.rows, row)
}

func (t *Table) Row(i int) Row {
	return Row{t: t, values: t.rows[i]}
}

func (t *Table) Value(i int, column string) any {
	c, ok := t.index[column]
	if !ok {
		return nil
	}
	return t.rows[i][c]
}

// Column returns a copy of a column's values, or nil if there is no such column.
func (t *Table) Column(name string) []any {
	c, ok := t.index[name]
	if !ok {
		return nil
	}
	out := make([]any, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[c]
	}
	return out
}

// SetColumn adds the column, or replaces its values when it already exists.
func (t *Table) SetColumn(name string, values []any) error {
	if len(values) != len(t.rows) {
		return errdefs.InvalidArgumentf("column %q has %d values for %d rows", name, len(values), len(t.rows))
	}
	if t.addColumn(name) {
		for i := range t.rows {
			t.rows[i] = append(t.rows[i], values[i])
		}
		return nil
	}
	c := t.index[name]
	for i := range t.rows {
		t.rows[i][c] = values[i]
	}
	return nil
}

// Select projects the table onto the given columns, in that order.
func (t *Table) Select(columns ...string) (*Table, error) {
	idx, err := t.positions(columns)
	if err != nil {
		return nil, err
	}
	out := New(columns...)
	for _, row := range t.rows {
		vals := make([]any, len(idx))
		for j, c := range idx {
			vals[j] = row[c]
		}
		out.rows = append(out.rows, vals)
	}
	return out, nil
}

// Drop returns a copy without the named columns. Unknown names are ignored.
func (t *Table) Drop(columns ...string) *Table {
	var keep []string
	for _, c := range t.columns {
		if !slices.Contains(columns, c) {
			keep = append(keep, c)
		}
	}
	out, _ := t.Select(keep...)
	return out
}

// Distinct projects onto columns and removes duplicate rows, keeping the first.
func (t *Table) Distinct(columns ...string) (*Table, error) {
	proj, err := t.Select(columns...)
	if err != nil {
		return nil, err
	}
	out := New(columns...)
	seen := make(map[string]bool, len(proj.rows))
	for _, row := range proj.rows {
		k := rowKey(row)
		if seen[k] {
			continue
		}
		seen[k] = true
		out.rows = append(out.rows, row)
	}
	return out, nil
}

// Pivot reshapes long rows into wide ones: one row per distinct index value,
// one column per distinct value of the columns column holding the values value.
// The index column comes first; pivoted columns are sorted by name.
func (t *Table) Pivot(index, columns, values string) (*Table, error) {
	pos, err := t.positions([]string{index, columns, values})
	if err != nil {
		return nil, err
	}
	ic, cc, vc := pos[0], pos[1], pos[2]

	var keys []any
	rowOf := make(map[string]int)
	var names []string
	cells := make(map[string]map[string]any)
	for _, row := range t.rows {
		k := valueKey(row[ic])
		if _, ok := rowOf[k]; !ok {
			rowOf[k] = len(keys)
			keys = append(keys, row[ic])
			cells[k] = make(map[string]any)
		}
		name := fmt.Sprint(row[cc])
		if _, dup := cells[k][name]; dup {
			return nil, errdefs.InvalidArgumentf("pivot has duplicate entries for %s=%v and %s=%s", index, row[ic], columns, name)
		}
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
		cells[k][name] = row[vc]
	}
	sort.Strings(names)
	sort.SliceStable(keys, func(i, j int) bool { return Compare(keys[i], keys[j]) < 0 })

	out := New(append([]string{index}, names...)...)
	if len(out.columns) != len(names)+1 {
		return nil, errdefs.InvalidArgumentf("pivoted column name collides with index column %q", index)
	}
	for _, key := range keys {
		cell := cells[valueKey(key)]
		row := make([]any, 0, len(names)+1)
		row = append(row, key)
		for _, name := range names {
			row = append(row, cell[name])
		}
		out.rows = append(out.rows, row)
	}
	return out, nil
}

// InnerJoin matches rows of t and right on equal values of the on column. Rows
// keep the left table's order; for each left row, matches keep the right
// table's order. Other shared column names get _x and _y suffixes.
func (t *Table) InnerJoin(right *Table, on string) (*Table, error) {
	lc, ok := t.index[on]
	if !ok {
		return nil, errdefs.InvalidArgumentf("left table has no column %q", on)
	}
	rc, ok := right.index[on]
	if !ok {
		return nil, errdefs.InvalidArgumentf("right table has no column %q", on)
	}

	var cols []string
	for _, c := range t.columns {
		if c != on && right.HasColumn(c) {
			c += "_x"
		}
		cols = append(cols, c)
	}
	var rightIdx []int
	for i, c := range right.columns {
		if c == on {
			continue
		}
		if t.HasColumn(c) {
			c += "_y"
		}
		cols = append(cols, c)
		rightIdx = append(rightIdx, i)
	}

	byKey := make(map[string][]int)
	for i, row := range right.rows {
		k := valueKey(row[rc])
		byKey[k] = append(byKey[k], i)
	}

	out := New(cols...)
	for _, lrow := range t.rows {
		for _, ri := range byKey[valueKey(lrow[lc])] {
			row := make([]any, 0, len(cols))
			row = append(row, lrow...)
			for _, c := range rightIdx {
				row = append(row, right.rows[ri][c])
			}
			out.rows = append(out.rows, row)
		}
	}
	return out, nil
}

// SortBy returns a copy sorted ascending by the given columns. The sort is
// stable and missing values sort last.
func (t *Table) SortBy(columns ...string) (*Table, error) {
	idx, err := t.positions(columns)
	if err != nil {
		return nil, err
	}
	out := t.Clone()
	sort.SliceStable(out.rows, func(i, j int) bool {
		for _, c := range idx {
			if cmp := Compare(out.rows[i][c], out.rows[j][c]); cmp != 0 {
				return cmp < 0
			}
		}
		return false
	})
	return out, nil
}

func (t *Table) Filter(keep func(Row) bool) *Table {
	out := New(t.columns...)
	for _, row := range t.rows {
		if keep(Row{t: t, values: row}) {
			out.rows = append(out.rows, slices.Clone(row))
		}
	}
	return out
}

func (t *Table) Head(n int) *Table {
	out := New(t.columns...)
	for i := 0; i < n && i < len(t.rows); i++ {
		out.rows = append(out.rows, slices.Clone(t.rows[i]))
	}
	return out
}

func (t *Table) Clone() *Table {
	out := New(t.columns...)
	out.rows = make([][]any, len(t.rows))
	for i, row := range t.rows {
		out.rows[i] = slices.Clone(row)
	}
	return out
}

// Records returns one map per row.
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, len(t.rows))
	for i, row := range t.rows {
		rec := make(map[string]any, len(t.columns))
		for c, name := range t.columns {
			rec[name] = row[c]
		}
		out[i] = rec
	}
	return out
}

// RenameColumns relabels columns through the mapping; unmapped columns keep their names.
func (t *Table) RenameColumns(mapping map[string]string) (*Table, error) {
	cols := make([]string, len(t.columns))
	for i, c := range t.columns {
		if to, ok := mapping[c]; ok {
			c = to
		}
		cols[i] = c
	}
	out := New(cols...)
	if len(out.columns) != len(cols) {
		return nil, errdefs.InvalidArgumentf("renaming produces duplicate column names")
	}
	out.rows = t.Clone().rows
	return out, nil
}

func (t *Table) positions(columns []string) ([]int, error) {
	idx := make([]int, len(columns))
	for i, c := range columns {
		p, ok := t.index[c]
		if !ok {
			return nil, errdefs.InvalidArgumentf("no column %q (have %s)", c, strings.Join(t.columns, ", "))
		}
		idx[i] = p
	}
	return idx, nil
}

type Row struct {
	t      *Table
	values []any
}

func (r Row) Get(column string) any {
	v, _ := r.Lookup(column)
	return v
}

func (r Row) Lookup(column string) (any, bool) {
	c, ok := r.t.index[column]
	if !ok {
		return nil, false
	}
	return r.values[c], true
}

func (r Row) Values() []any {
	return slices.Clone(r.values)
}

// valueKey identifies a cell for grouping and joining; numbers of different Go
// types that are numerically equal share a key.
func valueKey(v any) string {
	if f, ok := ToFloat(v); ok {
		return fmt.Sprintf("num:%v", f)
	}
	return fmt.Sprintf("%T:%v", v, v)
}

func rowKey(row []any) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = valueKey(v)
	}
	return strings.Join(parts, "\x00")
}
