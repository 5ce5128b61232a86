package core

import (
	"math"
	"reflect"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
)

func dupTable() *Table {
	return NewTable([]string{"id", "name", "amount"}, []Record{
		{"id": Text("a"), "name": Text("ana"), "amount": pgtype.Float8{Float64: 10, Valid: true}},
		{"id": Text("b"), "name": Text("luis"), "amount": pgtype.Float8{}},
		{"id": Text("c"), "name": Text("ana"), "amount": pgtype.Float8{Float64: 10, Valid: true}},
		{"id": Text("d"), "name": Text("luis"), "amount": pgtype.Float8{Float64: math.NaN(), Valid: true}},
		{"id": Text("e"), "name": Text("ana"), "amount": pgtype.Float8{Float64: 11, Valid: true}},
		{"id": Text("f"), "name": Text("ana"), "amount": pgtype.Float8{Float64: 10, Valid: true}},
	})
}

func TestFindDuplicates(t *testing.T) {
	tests := []struct {
		name    string
		exclude []string
		want    []DuplicateGroup
	}{
		{
			name:    "excluding id",
			exclude: []string{"id"},
			want:    []DuplicateGroup{{Rows: []int{0, 2, 5}}, {Rows: []int{1, 3}}},
		},
		{
			name: "all columns",
			want: []DuplicateGroup{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindDuplicates(dupTable(), tt.exclude...)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FindDuplicates() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindDuplicates_UsesRowLabels(t *testing.T) {
	tbl := dupTable().Filter(func(rec Record) bool {
		return rec["id"].(pgtype.Text).String != "a"
	})

	got := FindDuplicates(tbl, "id")
	want := []DuplicateGroup{{Rows: []int{1, 3}}, {Rows: []int{2, 5}}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FindDuplicates() = %v, want %v", got, want)
	}
}

func TestDropDuplicates(t *testing.T) {
	tbl := dupTable()
	got := DropDuplicates(tbl, "id")

	if want := []int{0, 1, 4}; !reflect.DeepEqual(got.Index, want) {
		t.Errorf("Index = %v, want %v", got.Index, want)
	}
	if tbl.Len() != 6 {
		t.Errorf("input table modified: %d rows, want 6", tbl.Len())
	}

	if again := DropDuplicates(got, "id"); again.Len() != got.Len() {
		t.Errorf("second DropDuplicates() dropped %d more rows", got.Len()-again.Len())
	}
}

func TestRowKey_DistinguishesCellKinds(t *testing.T) {
	cols := []string{"v"}
	tests := []struct {
		name  string
		a, b  Cell
		equal bool
	}{
		{"same text", Text("5"), Text("5"), true},
		{"text vs int", Text("5"), pgtype.Int8{Int64: 5, Valid: true}, false},
		{"int vs float", pgtype.Int8{Int64: 5, Valid: true}, pgtype.Float8{Float64: 5, Valid: true}, false},
		{"missing text vs nil", pgtype.Text{}, nil, true},
		{"missing vs empty string", pgtype.Text{}, Text(""), false},
		{"negative zero", pgtype.Float8{Float64: math.Copysign(0, -1), Valid: true}, pgtype.Float8{Float64: 0, Valid: true}, true},
		{"separator in text", Text("a\x00b"), Text("a"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ka := rowKey(Record{"v": tt.a}, cols)
			kb := rowKey(Record{"v": tt.b}, cols)
			if (ka == kb) != tt.equal {
				t.Errorf("keys equal = %v, want %v", ka == kb, tt.equal)
			}
		})
	}
}
