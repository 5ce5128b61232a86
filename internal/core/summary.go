package core

import (
	"math"

	"github.com/montanaflynn/stats"
)

var nanValue = math.NaN()

// ColumnAggregation holds aggregated values for a single numeric column.
type ColumnAggregation struct {
	Column string   `json:"column"`
	Sum    *float64 `json:"sum,omitempty"` // nil if no valid values
	Avg    *float64 `json:"avg,omitempty"`
	Median *float64 `json:"median,omitempty"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Count  int64    `json:"count"` // Count of non-missing values
}

// Summary describes a table: size, missing cells per column and the credit
// amount distribution.
type Summary struct {
	Rows    int                `json:"rows"`
	Columns int                `json:"columns"`
	Missing map[string]int     `json:"missing"`
	Amount  *ColumnAggregation `json:"amount,omitempty"`
}

// Summarize computes a Summary. The amount aggregation is omitted when the
// table has no such column.
func Summarize(t *Table, cols ColumnSet) Summary {
	s := Summary{
		Rows:    t.Len(),
		Columns: len(t.Columns),
		Missing: make(map[string]int),
	}
	for _, name := range t.Columns {
		n := 0
		for _, rec := range t.Records {
			if IsMissing(rec[name]) {
				n++
			}
		}
		if n > 0 {
			s.Missing[name] = n
		}
	}
	if t.HasColumn(cols.Amount) {
		s.Amount = Aggregate(t, cols.Amount)
	}
	return s
}

// Aggregate computes sum, mean, median, min and max over the numeric cells of
// column. Missing and non-numeric cells are skipped.
func Aggregate(t *Table, column string) *ColumnAggregation {
	agg := &ColumnAggregation{Column: column}

	var data stats.Float64Data
	for _, rec := range t.Records {
		if f := cellFloat(rec[column]); !math.IsNaN(f) {
			data = append(data, f)
		}
	}
	agg.Count = int64(len(data))
	if len(data) == 0 {
		return agg
	}

	agg.Sum = statOrNil(data.Sum)
	agg.Avg = statOrNil(data.Mean)
	agg.Median = statOrNil(data.Median)
	agg.Min = statOrNil(data.Min)
	agg.Max = statOrNil(data.Max)
	return agg
}

func statOrNil(fn func() (float64, error)) *float64 {
	v, err := fn()
	if err != nil {
		return nil
	}
	return &v
}
