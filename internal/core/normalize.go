package core

// normalize.go holds the per-cell normalizers used by the cleaning pipeline.
//
// Every normalizer is a pure Cell -> pgtype value mapping. Input that cannot
// be parsed yields the missing marker (Valid=false); nothing here signals an
// error to the caller except CoerceInt, whose failure is fatal by contract.

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// DateOutputLayout is the rendering applied to every parsed benefit date.
const DateOutputLayout = "02/01/2006"

// dateLayouts are tried in order; the first that parses wins.
// Day and month accept one or two digits, the year exactly four.
var dateLayouts = []string{
	"2/1/2006", // DD/MM/YYYY
	"2006-1-2", // YYYY-MM-DD
	"2006/1/2", // YYYY/MM/DD
}

// mojibakeFixes are literal substring repairs applied to credit line names
// after lowercasing.
var mojibakeFixes = strings.NewReplacer("andaluc¿a", "andalucia")

// NormalizeDate parses a benefit date and re-renders it as DD/MM/YYYY.
// Missing, non-text or unparseable input yields a missing text cell, and so
// does year 0.
func NormalizeDate(c Cell) pgtype.Text {
	v, ok := c.(pgtype.Text)
	if !ok || !v.Valid {
		return pgtype.Text{}
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, v.String)
		if err == nil && t.Year() >= 1 {
			return Text(t.Format(DateOutputLayout))
		}
	}
	return pgtype.Text{}
}

// NormalizeAmount strips every '$' and ',' and parses the rest as a float.
// ',' is always a thousands separator, never a decimal point.
//
// Cells that are already numeric (Float8 or Int8) are not treated as
// unparseable text: a present value passes through as a float. The loader
// only produces text, so this matters only for tables built by callers.
// Missing cells, NaN and anything that fails to parse yield a missing float.
// Hexadecimal notation ("0x1p4") is not a number here.
func NormalizeAmount(c Cell) pgtype.Float8 {
	switch v := c.(type) {
	case pgtype.Float8:
		if !v.Valid || math.IsNaN(v.Float64) {
			return pgtype.Float8{}
		}
		return v
	case pgtype.Int8:
		if !v.Valid {
			return pgtype.Float8{}
		}
		return pgtype.Float8{Float64: float64(v.Int64), Valid: true}
	case pgtype.Text:
		if !v.Valid {
			return pgtype.Float8{}
		}
		s := strings.ReplaceAll(v.String, "$", "")
		s = strings.ReplaceAll(s, ",", "")
		if strings.ContainsAny(s, "xXpP") {
			return pgtype.Float8{}
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return pgtype.Float8{}
		}
		if math.IsNaN(f) {
			return pgtype.Float8{}
		}
		return pgtype.Float8{Float64: f, Valid: true}
	default:
		return pgtype.Float8{}
	}
}

// Lower lowercases a text cell. Missing and non-text cells become missing text.
func Lower(c Cell) pgtype.Text {
	v, ok := c.(pgtype.Text)
	if !ok || !v.Valid {
		return pgtype.Text{}
	}
	return Text(strings.ToLower(v.String))
}

// NormalizeIdea lowercases a business idea, then replaces spaces and then
// hyphens with underscores.
func NormalizeIdea(c Cell) pgtype.Text {
	return mapText(Lower(c), func(s string) string {
		s = strings.ReplaceAll(s, " ", "_")
		return strings.ReplaceAll(s, "-", "_")
	})
}

// NormalizeNeighborhood lowercases a barrio, then replaces hyphens and then
// spaces with underscores.
func NormalizeNeighborhood(c Cell) pgtype.Text {
	return mapText(Lower(c), func(s string) string {
		s = strings.ReplaceAll(s, "-", "_")
		return strings.ReplaceAll(s, " ", "_")
	})
}

// NormalizeCreditLine lowercases a credit line, turns periods, spaces and
// hyphens into underscores (in that order), repairs known mojibake and strips
// trailing underscores. Leading and interior underscores are kept.
func NormalizeCreditLine(c Cell) pgtype.Text {
	return mapText(Lower(c), func(s string) string {
		s = strings.ReplaceAll(s, ".", "_")
		s = strings.ReplaceAll(s, " ", "_")
		s = strings.ReplaceAll(s, "-", "_")
		s = mojibakeFixes.Replace(s)
		return strings.TrimRight(s, "_")
	})
}

// CoerceInt converts a commune cell to an integer. Missing becomes 0.
// Numeric text with a fractional part is truncated toward zero, the way a
// float column is cast to int. Anything non-numeric returns ErrCoercion.
func CoerceInt(c Cell) (pgtype.Int8, error) {
	if IsMissing(c) {
		return pgtype.Int8{Int64: 0, Valid: true}, nil
	}
	switch v := c.(type) {
	case pgtype.Int8:
		return v, nil
	case pgtype.Float8:
		return truncate(v.Float64, strconv.FormatFloat(v.Float64, 'g', -1, 64))
	case pgtype.Text:
		s := strings.TrimSpace(v.String)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return pgtype.Int8{Int64: n, Valid: true}, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return pgtype.Int8{}, fmt.Errorf("%w: %q", ErrCoercion, v.String)
		}
		return truncate(f, v.String)
	default:
		return pgtype.Int8{}, fmt.Errorf("%w: unsupported cell %T", ErrCoercion, c)
	}
}

func truncate(f float64, raw string) (pgtype.Int8, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) || math.Abs(f) >= math.MaxInt64 {
		return pgtype.Int8{}, fmt.Errorf("%w: %q", ErrCoercion, raw)
	}
	return pgtype.Int8{Int64: int64(math.Trunc(f)), Valid: true}, nil
}

func mapText(v pgtype.Text, fn func(string) string) pgtype.Text {
	if !v.Valid {
		return v
	}
	return Text(fn(v.String))
}
