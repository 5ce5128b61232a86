package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// DuplicateGroup lists the row labels of records that are equal on every
// compared column. Rows are in table order; the first one is the survivor.
type DuplicateGroup struct {
	Rows []int `json:"rows"`
}

// FindDuplicates returns every equality group with more than one member.
// Columns in exclude are ignored when comparing. Groups are ordered by the
// position of their first row. The table is not modified.
func FindDuplicates(t *Table, exclude ...string) []DuplicateGroup {
	cols := compareColumns(t.Columns, exclude)
	labels := t.Labels()
	pos := make(map[string]int)
	var groups []DuplicateGroup
	for i, rec := range t.Records {
		key := rowKey(rec, cols)
		if g, ok := pos[key]; ok {
			groups[g].Rows = append(groups[g].Rows, labels[i])
			continue
		}
		pos[key] = len(groups)
		groups = append(groups, DuplicateGroup{Rows: []int{labels[i]}})
	}

	out := groups[:0]
	for _, g := range groups {
		if len(g.Rows) > 1 {
			out = append(out, g)
		}
	}
	return out
}

// DropDuplicates keeps the first record of each equality group and discards
// the rest. Missing cells compare equal to missing cells of the same column.
func DropDuplicates(t *Table, exclude ...string) *Table {
	cols := compareColumns(t.Columns, exclude)
	seen := make(map[string]struct{}, len(t.Records))
	return t.Filter(func(rec Record) bool {
		key := rowKey(rec, cols)
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
		return true
	})
}

func compareColumns(columns, exclude []string) []string {
	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[e] = true
	}
	cols := make([]string, 0, len(columns))
	for _, c := range columns {
		if !skip[c] {
			cols = append(cols, c)
		}
	}
	return cols
}

// rowKey encodes the compared cells of a record into a string that is equal
// for two records exactly when every compared cell is equal.
func rowKey(rec Record, cols []string) string {
	var b strings.Builder
	for _, col := range cols {
		writeCellKey(&b, rec[col])
		b.WriteByte(0)
	}
	return b.String()
}

func writeCellKey(b *strings.Builder, c Cell) {
	if IsMissing(c) {
		b.WriteByte('~')
		return
	}
	switch v := c.(type) {
	case pgtype.Text:
		b.WriteByte('t')
		b.WriteString(strconv.Quote(v.String))
	case pgtype.Float8:
		f := v.Float64
		if f == 0 {
			f = math.Abs(f)
		}
		b.WriteByte('f')
		b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case pgtype.Int8:
		b.WriteByte('i')
		b.WriteString(strconv.FormatInt(v.Int64, 10))
	default:
		b.WriteByte('?')
	}
}
