package core

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/jackc/pgx/v5/pgtype"
)

// ToDataFrame converts a table into a gota DataFrame for export or analysis.
//
// A column whose present cells are all floats becomes a Float series, all
// integers an Int series (Float if any are missing), anything else a String
// series. Missing cells become NaN.
func ToDataFrame(t *Table) dataframe.DataFrame {
	cols := make([]series.Series, 0, len(t.Columns))
	for _, name := range t.Columns {
		cols = append(cols, toSeries(name, t.Column(name)))
	}
	return dataframe.New(cols...)
}

// WriteCSV writes the table as delimited text with a header row. Missing
// cells are written as NaN and numbers in their shortest exact form, so the
// output reloads to the same values. A zero delimiter means DefaultDelimiter.
func WriteCSV(w io.Writer, t *Table, delimiter rune) error {
	if len(t.Columns) == 0 {
		return nil
	}
	df := exportFrame(t)
	if df.Err != nil {
		return fmt.Errorf("build dataframe: %w", df.Err)
	}

	cw := csv.NewWriter(w)
	cw.Comma = delimiter
	if cw.Comma == 0 {
		cw.Comma = DefaultDelimiter
	}
	if err := cw.WriteAll(df.Records()); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// exportFrame is ToDataFrame with numeric columns held as text. gota renders
// Float elements with %f, which drops digits past the sixth decimal.
func exportFrame(t *Table) dataframe.DataFrame {
	cols := make([]series.Series, 0, len(t.Columns))
	for _, name := range t.Columns {
		cells := t.Column(name)
		switch columnKind(cells) {
		case kindFloat, kindIntWithMissing:
			cols = append(cols, series.New(formatCells(cells), series.String, name))
		default:
			cols = append(cols, toSeries(name, cells))
		}
	}
	return dataframe.New(cols...)
}

func toSeries(name string, cells []Cell) series.Series {
	switch columnKind(cells) {
	case kindInt:
		ints := make([]int, len(cells))
		for i, c := range cells {
			ints[i] = int(c.(pgtype.Int8).Int64)
		}
		return series.New(ints, series.Int, name)
	case kindFloat, kindIntWithMissing:
		floats := make([]float64, len(cells))
		for i, c := range cells {
			floats[i] = cellFloat(c)
		}
		return series.New(floats, series.Float, name)
	default:
		return series.New(formatCells(cells), series.String, name)
	}
}

// formatCells renders cells with FormatCell, missing ones as NaN.
func formatCells(cells []Cell) []string {
	strs := make([]string, len(cells))
	for i, c := range cells {
		if IsMissing(c) {
			strs[i] = "NaN"
		} else {
			strs[i] = FormatCell(c)
		}
	}
	return strs
}

type cellKind int

const (
	kindText cellKind = iota
	kindFloat
	kindInt
	kindIntWithMissing
)

func columnKind(cells []Cell) cellKind {
	var floats, ints, present int
	for _, c := range cells {
		if IsMissing(c) {
			continue
		}
		present++
		switch c.(type) {
		case pgtype.Float8:
			floats++
		case pgtype.Int8:
			ints++
		}
	}
	switch {
	case present == 0:
		return kindText
	case floats == present:
		return kindFloat
	case ints == present && present == len(cells):
		return kindInt
	case ints == present:
		return kindIntWithMissing
	default:
		return kindText
	}
}

// cellFloat returns the numeric value of c, or NaN when missing or non-numeric.
func cellFloat(c Cell) float64 {
	if IsMissing(c) {
		return nanValue
	}
	switch v := c.(type) {
	case pgtype.Float8:
		return v.Float64
	case pgtype.Int8:
		return float64(v.Int64)
	default:
		return nanValue
	}
}
