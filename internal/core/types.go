package core

import (
	"math"
	"strconv"

	"github.com/jackc/pgx/v5/pgtype"
)

// Cell is a single table value: pgtype.Text, pgtype.Float8 or pgtype.Int8.
// Valid=false on any of them is the missing marker. A nil Cell is also missing.
type Cell any

// Record maps column name to cell.
type Record map[string]Cell

// Table is an ordered set of records with a fixed column list.
//
// Index holds the row labels. Loading assigns 0..n-1; filtering keeps the
// labels of the surviving rows until Reindex renumbers them. An Index whose
// length does not match Records is ignored and 0..n-1 is used instead.
type Table struct {
	Columns []string
	Records []Record
	Index   []int
}

// NewTable creates a table with a dense index.
func NewTable(columns []string, records []Record) *Table {
	idx := make([]int, len(records))
	for i := range idx {
		idx[i] = i
	}
	return &Table{Columns: columns, Records: records, Index: idx}
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.Records)
}

// HasColumn reports whether name is one of the table's columns.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Column returns the cells of a column in row order.
func (t *Table) Column(name string) []Cell {
	out := make([]Cell, len(t.Records))
	for i, rec := range t.Records {
		out[i] = rec[name]
	}
	return out
}

// Filter returns a table holding the records for which keep returns true.
// Surviving rows keep their index labels.
func (t *Table) Filter(keep func(Record) bool) *Table {
	labels := t.Labels()
	out := &Table{Columns: t.Columns}
	for i, rec := range t.Records {
		if keep(rec) {
			out.Records = append(out.Records, rec)
			out.Index = append(out.Index, labels[i])
		}
	}
	return out
}

// MapColumn returns a copy of the table with fn applied to every cell of column.
func (t *Table) MapColumn(column string, fn func(Cell) Cell) *Table {
	out, _ := t.TryMapColumn(column, func(c Cell) (Cell, error) {
		return fn(c), nil
	})
	return out
}

// TryMapColumn is MapColumn for conversions that can fail. The first error
// aborts the mapping and is wrapped with the offending row label.
func (t *Table) TryMapColumn(column string, fn func(Cell) (Cell, error)) (*Table, error) {
	labels := t.Labels()
	out := &Table{
		Columns: t.Columns,
		Records: make([]Record, len(t.Records)),
		Index:   append([]int(nil), labels...),
	}
	for i, rec := range t.Records {
		v, err := fn(rec[column])
		if err != nil {
			return nil, &RowError{Row: labels[i], Column: column, Err: err}
		}
		cp := make(Record, len(rec))
		for k, c := range rec {
			cp[k] = c
		}
		cp[column] = v
		out.Records[i] = cp
	}
	return out, nil
}

// Labels returns the row labels, or 0..n-1 when Index does not cover Records.
func (t *Table) Labels() []int {
	if len(t.Index) == len(t.Records) {
		return t.Index
	}
	idx := make([]int, len(t.Records))
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// Reindex returns the table with a dense 0-based index in current row order.
func Reindex(t *Table) *Table {
	return NewTable(t.Columns, t.Records)
}

// IsMissing reports whether c is the missing marker.
func IsMissing(c Cell) bool {
	switch v := c.(type) {
	case nil:
		return true
	case pgtype.Text:
		return !v.Valid
	case pgtype.Float8:
		return !v.Valid || math.IsNaN(v.Float64)
	case pgtype.Int8:
		return !v.Valid
	default:
		return false
	}
}

// Text wraps s as a present text cell.
func Text(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: true}
}

// FormatCell renders c for export. Missing cells render as "".
func FormatCell(c Cell) string {
	if IsMissing(c) {
		return ""
	}
	switch v := c.(type) {
	case pgtype.Text:
		return v.String
	case pgtype.Float8:
		return strconv.FormatFloat(v.Float64, 'f', -1, 64)
	case pgtype.Int8:
		return strconv.FormatInt(v.Int64, 10)
	default:
		return ""
	}
}
