package core

// load.go turns a delimited text file or an xlsx workbook into a Table.
//
// Header and cell conventions follow the tabular exports the cleaner is fed:
//   - an empty header cell becomes "Unnamed: <position>"
//   - a repeated header name gets a ".1", ".2", ... suffix
//   - header names are NFC-normalized so accented names match either way
//   - a cell equal to a standard NA token (see naTokens) loads as missing
//
// Every present cell loads as text; typing happens in the cleaning pipeline.

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"

	"github.com/JonMunkholm/creditclean/internal/logging"
)

// DefaultDelimiter separates fields in the credit application export.
const DefaultDelimiter = ';'

// naTokens are the cell values read as missing.
var naTokens = map[string]bool{
	"": true, "#N/A": true, "#N/A N/A": true, "#NA": true,
	"-1.#IND": true, "-1.#QNAN": true, "-NaN": true, "-nan": true,
	"1.#IND": true, "1.#QNAN": true, "<NA>": true, "N/A": true,
	"NA": true, "NULL": true, "NaN": true, "None": true,
	"n/a": true, "nan": true, "null": true,
}

// LoadOptions controls how a source is read.
type LoadOptions struct {
	Delimiter rune   // Field separator for text sources (default ';')
	MaxBytes  int64  // Maximum source size in bytes; 0 means unlimited
	Sheet     string // Worksheet for xlsx sources; empty means the first one
}

// DefaultLoadOptions returns the options for the credit application export.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{Delimiter: DefaultDelimiter}
}

// LoadFile reads the table stored at path. Files ending in .xlsx are read as
// workbooks, everything else as delimited text.
func LoadFile(ctx context.Context, path string, opts LoadOptions) (*Table, error) {
	logger := logging.WithFields(ctx, "path", path)

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return nil, fmt.Errorf("stat source %s: %w", path, err)
	}
	if opts.MaxBytes > 0 && info.Size() > opts.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, info.Size(), opts.MaxBytes)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source %s: %w", path, err)
	}
	defer f.Close()

	var t *Table
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		t, err = ReadXLSX(f, opts)
	} else {
		t, err = ReadCSV(f, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}

	logger.Info("source loaded", "rows", t.Len(), "columns", len(t.Columns), "bytes", info.Size())
	return t, nil
}

// ReadCSV parses delimited text into a table.
func ReadCSV(r io.Reader, opts LoadOptions) (*Table, error) {
	if opts.MaxBytes > 0 {
		r = io.LimitReader(r, opts.MaxBytes+1)
	}
	src, counter := WrapSource(r, 0)

	cr := csv.NewReader(src)
	cr.Comma = opts.Delimiter
	if cr.Comma == 0 {
		cr.Comma = DefaultDelimiter
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if opts.MaxBytes > 0 && counter.BytesRead > opts.MaxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, opts.MaxBytes)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	return FromRows(rows)
}

// ReadXLSX reads a worksheet of an xlsx workbook into a table.
func ReadXLSX(r io.Reader, opts LoadOptions) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmptySource
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %v", ErrInvalidSource, sheet, err)
	}
	return FromRows(rows)
}

// FromRows builds a table from raw rows, the first being the header.
// Short rows are padded with missing cells. A row with more non-empty fields
// than the header is an error.
func FromRows(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, ErrEmptySource
	}
	header := canonicalHeader(rows[0])

	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		if len(row) > len(header) {
			for _, extra := range row[len(header):] {
				if extra != "" {
					return nil, fmt.Errorf("%w: line %d has %d fields, header has %d",
						ErrInvalidSource, i+2, len(row), len(header))
				}
			}
		}

		rec := make(Record, len(header))
		for j, name := range header {
			if j < len(row) {
				rec[name] = parseCell(row[j])
			} else {
				rec[name] = pgtype.Text{}
			}
		}
		records = append(records, rec)
	}

	return NewTable(header, records), nil
}

// canonicalHeader names empty header cells and disambiguates repeats.
func canonicalHeader(raw []string) []string {
	header := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		h = norm.NFC.String(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for n := seen[h]; seen[name] > 0; n++ {
			name = fmt.Sprintf("%s.%d", h, n)
			seen[h] = n + 1
		}
		seen[name]++
		header[i] = name
	}
	return header
}

func parseCell(raw string) Cell {
	if naTokens[raw] {
		return pgtype.Text{}
	}
	return Text(raw)
}
