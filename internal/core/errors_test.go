package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil", nil, ""},
		{"source not found", fmt.Errorf("%w: data.csv", ErrSourceNotFound), "SRC001"},
		{"empty source", ErrEmptySource, "SRC002"},
		{"invalid source", fmt.Errorf("load x: %w", ErrInvalidSource), "SRC003"},
		{"missing column", fmt.Errorf("%w: barrio", ErrMissingColumn), "COL001"},
		{"coercion in row error", fmt.Errorf("coerce comuna: %w", &RowError{Row: 3, Column: "comuna", Err: ErrCoercion}), "VAL001"},
		{"too large", ErrFileTooLarge, "FILE001"},
		{"too many runs", ErrTooManyRuns, "RUN001"},
		{"store disabled", ErrStoreDisabled, "DB001"},
		{"matched by text", errors.New("remote: Missing Required Column: barrio"), "COL001"},
		{"unknown", errors.New("disk on fire"), "GEN001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got.Code, tt.wantCode)
			}
			if tt.err != nil && (got.Message == "" || got.Action == "") {
				t.Errorf("MapError(%v) = %+v, want message and action", tt.err, got)
			}
		})
	}
}

func TestRowError(t *testing.T) {
	err := &RowError{Row: 7, Column: "comuna_ciudadano", Err: fmt.Errorf("%w: %q", ErrCoercion, "x")}

	want := `row 7, column "comuna_ciudadano": cannot convert to integer: "x"`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrCoercion) {
		t.Error("RowError should unwrap to ErrCoercion")
	}
}
