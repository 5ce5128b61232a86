package core

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
)

func TestAggregate(t *testing.T) {
	tbl := NewTable([]string{"monto"}, []Record{
		{"monto": pgtype.Float8{Float64: 100, Valid: true}},
		{"monto": pgtype.Float8{}},
		{"monto": pgtype.Float8{Float64: 300, Valid: true}},
		{"monto": pgtype.Int8{Int64: 200, Valid: true}},
		{"monto": Text("not a number")},
	})

	agg := Aggregate(tbl, "monto")
	if agg.Count != 3 {
		t.Fatalf("Count = %d, want 3", agg.Count)
	}

	checks := []struct {
		name string
		got  *float64
		want float64
	}{
		{"sum", agg.Sum, 600},
		{"avg", agg.Avg, 200},
		{"median", agg.Median, 200},
		{"min", agg.Min, 100},
		{"max", agg.Max, 300},
	}
	for _, c := range checks {
		if c.got == nil {
			t.Errorf("%s is nil", c.name)
			continue
		}
		if *c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, *c.got, c.want)
		}
	}
}

func TestAggregate_NoValues(t *testing.T) {
	tbl := NewTable([]string{"monto"}, []Record{{"monto": pgtype.Float8{}}})

	agg := Aggregate(tbl, "monto")
	if agg.Count != 0 || agg.Sum != nil || agg.Avg != nil {
		t.Errorf("Aggregate() = %+v, want empty aggregation", agg)
	}
}

func TestSummarize(t *testing.T) {
	cols := DefaultColumns()
	tbl := NewTable([]string{cols.Amount, cols.Sex}, []Record{
		{cols.Amount: pgtype.Float8{Float64: 50, Valid: true}, cols.Sex: pgtype.Text{}},
		{cols.Amount: pgtype.Float8{}, cols.Sex: pgtype.Text{}},
		{cols.Amount: pgtype.Float8{Float64: 150, Valid: true}, cols.Sex: Text("f")},
	})

	s := Summarize(tbl, cols)
	if s.Rows != 3 || s.Columns != 2 {
		t.Errorf("Summarize() size = %dx%d, want 3x2", s.Rows, s.Columns)
	}
	if s.Missing[cols.Amount] != 1 || s.Missing[cols.Sex] != 2 {
		t.Errorf("Missing = %v, want amount 1 and sex 2", s.Missing)
	}
	if s.Amount == nil || s.Amount.Avg == nil || *s.Amount.Avg != 100 {
		t.Errorf("Amount = %+v, want avg 100", s.Amount)
	}

	noAmount := NewTable([]string{"x"}, nil)
	if got := Summarize(noAmount, cols); got.Amount != nil {
		t.Errorf("Summarize() without amount column = %+v, want no aggregation", got.Amount)
	}
}
