package core

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// FieldType represents the type a column ends up with after cleaning.
type FieldType int

const (
	FieldText FieldType = iota
	FieldDate
	FieldNumeric
	FieldInteger
)

// String returns a human-readable name for the field type.
func (ft FieldType) String() string {
	switch ft {
	case FieldText:
		return "text"
	case FieldDate:
		return "date"
	case FieldNumeric:
		return "numeric"
	case FieldInteger:
		return "integer"
	default:
		return "value"
	}
}

// FieldSpec defines how a single column is cleaned.
type FieldSpec struct {
	Name       string          // Column header name (must match exactly)
	Type       FieldType       // Resulting data type
	AllowEmpty bool            // If false, rows missing this field are dropped
	Normalizer func(Cell) Cell // Optional per-cell transformation
}

// ColumnSet names the columns the cleaner knows about.
type ColumnSet struct {
	RowID        string `json:"rowId"`
	Enterprise   string `json:"enterprise"`
	Neighborhood string `json:"neighborhood"`
	Commune      string `json:"commune"`
	Amount       string `json:"amount"`
	Sex          string `json:"sex"`
	Idea         string `json:"idea"`
	CreditLine   string `json:"creditLine"`
	BenefitDate  string `json:"benefitDate"`
}

// DefaultColumns returns the column names of the credit application export.
func DefaultColumns() ColumnSet {
	return ColumnSet{
		RowID:        "Unnamed: 0",
		Enterprise:   "tipo_de_emprendimiento",
		Neighborhood: "barrio",
		Commune:      "comuna_ciudadano",
		Amount:       "monto_del_credito",
		Sex:          "sexo",
		Idea:         "idea_negocio",
		CreditLine:   "línea_credito",
		BenefitDate:  "fecha_de_beneficio",
	}
}

// FieldSpecs returns the cleaning rules for the credit application columns.
// Order matters only for readability; each spec touches a distinct column.
func (c ColumnSet) FieldSpecs() []FieldSpec {
	return []FieldSpec{
		{Name: c.Enterprise, Type: FieldText, Normalizer: textCell(Lower)},
		{Name: c.Neighborhood, Type: FieldText, Normalizer: textCell(NormalizeNeighborhood)},
		{Name: c.Commune, Type: FieldInteger},
		{Name: c.Amount, Type: FieldNumeric, AllowEmpty: true, Normalizer: func(v Cell) Cell { return NormalizeAmount(v) }},
		{Name: c.Sex, Type: FieldText, AllowEmpty: true, Normalizer: textCell(Lower)},
		{Name: c.Idea, Type: FieldText, AllowEmpty: true, Normalizer: textCell(NormalizeIdea)},
		{Name: c.CreditLine, Type: FieldText, AllowEmpty: true, Normalizer: textCell(NormalizeCreditLine)},
		{Name: c.BenefitDate, Type: FieldDate, AllowEmpty: true, Normalizer: textCell(NormalizeDate)},
	}
}

// Names returns every configured column name, row id first.
// Blank entries are skipped so a source without a row id column can be used.
func (c ColumnSet) Names() []string {
	all := []string{
		c.RowID, c.Enterprise, c.Neighborhood, c.Commune, c.Amount,
		c.Sex, c.Idea, c.CreditLine, c.BenefitDate,
	}
	names := all[:0]
	for _, n := range all {
		if n != "" {
			names = append(names, n)
		}
	}
	return names
}

// HeaderIndex maps column names to their position in a header row.
type HeaderIndex map[string]int

// MakeHeaderIndex creates a HeaderIndex from a header row.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		idx[h] = i
	}
	return idx
}

// ValidateHeaders checks that every named column exists in the header.
// Returns the header index, or an error listing all missing columns.
func ValidateHeaders(header []string, names []string) (HeaderIndex, error) {
	idx := MakeHeaderIndex(header)
	var missing []string
	for _, name := range names {
		if _, ok := idx[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return idx, nil
}

func textCell(fn func(Cell) pgtype.Text) func(Cell) Cell {
	return func(c Cell) Cell { return fn(c) }
}
