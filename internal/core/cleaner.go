package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/creditclean/internal/logging"
)

// Options configures a Cleaner. The zero value is not useful; start from
// DefaultOptions.
type Options struct {
	Columns ColumnSet
}

// DefaultOptions returns the options for the credit application export.
func DefaultOptions() Options {
	return Options{Columns: DefaultColumns()}
}

// Report describes what a clean run did.
type Report struct {
	RunID             string           `json:"runId"`
	RowsLoaded        int              `json:"rowsLoaded"`
	DroppedMissing    int              `json:"droppedMissing"`
	DroppedDuplicates int              `json:"droppedDuplicates"`
	RowsOut           int              `json:"rowsOut"`
	Blanked           map[string]int   `json:"blanked"` // cells turned missing by a normalizer, per column
	Duplicates        []DuplicateGroup `json:"duplicates,omitempty"`
	Duration          time.Duration    `json:"durationNs"`
}

// Cleaner runs the cleaning pipeline. A Cleaner holds no per-run state and
// may be shared.
type Cleaner struct {
	columns ColumnSet
	specs   []FieldSpec
}

// NewCleaner creates a cleaner for the given options.
func NewCleaner(opts Options) *Cleaner {
	return &Cleaner{
		columns: opts.Columns,
		specs:   opts.Columns.FieldSpecs(),
	}
}

// Clean validates the header, drops incomplete rows, normalizes every known
// column, removes duplicates and resets the index. The input table is not
// modified.
//
// The run id is taken from ctx (see logging.WithRunID) or generated.
func (c *Cleaner) Clean(ctx context.Context, t *Table) (*Table, *Report, error) {
	start := time.Now()

	runID := logging.RunID(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = logging.WithRunID(ctx, runID)
	}
	logger := logging.FromContext(ctx)

	report := &Report{
		RunID:      runID,
		RowsLoaded: t.Len(),
		Blanked:    make(map[string]int),
	}

	if _, err := ValidateHeaders(t.Columns, c.columns.Names()); err != nil {
		return nil, nil, err
	}

	// 1. Rows missing a mandatory field
	var required []string
	for _, spec := range c.specs {
		if !spec.AllowEmpty {
			required = append(required, spec.Name)
		}
	}
	out := DropMissing(t, required...)
	report.DroppedMissing = t.Len() - out.Len()
	logger.Debug("dropped incomplete rows", "dropped", report.DroppedMissing, "columns", required)

	// 2. Per-column normalization and coercion
	for _, spec := range c.specs {
		if spec.Normalizer != nil {
			next := out.MapColumn(spec.Name, spec.Normalizer)
			if n := countBlanked(out, next, spec.Name); n > 0 {
				report.Blanked[spec.Name] = n
			}
			out = next
		}
		if spec.Type == FieldInteger {
			var err error
			out, err = out.TryMapColumn(spec.Name, func(v Cell) (Cell, error) {
				return CoerceInt(v)
			})
			if err != nil {
				return nil, nil, fmt.Errorf("coerce %s: %w", spec.Name, err)
			}
		}
	}

	// 3. Duplicates, compared on normalized values
	report.Duplicates = FindDuplicates(out, c.columns.RowID)
	deduped := DropDuplicates(out, c.columns.RowID)
	report.DroppedDuplicates = out.Len() - deduped.Len()
	logger.Debug("dropped duplicate rows", "dropped", report.DroppedDuplicates, "groups", len(report.Duplicates))

	// 4. Dense index
	out = Reindex(deduped)

	report.RowsOut = out.Len()
	report.Duration = time.Since(start)

	logger.Info("clean completed",
		"rows_loaded", report.RowsLoaded,
		"dropped_missing", report.DroppedMissing,
		"dropped_duplicates", report.DroppedDuplicates,
		"rows_out", report.RowsOut,
		"duration_ms", report.Duration.Milliseconds(),
	)

	return out, report, nil
}

// Clean runs the default cleaner over t.
func Clean(ctx context.Context, t *Table) (*Table, *Report, error) {
	return NewCleaner(DefaultOptions()).Clean(ctx, t)
}

// DropMissing removes every record with a missing value in any of columns.
// Missing values elsewhere are kept. An empty result is not an error.
func DropMissing(t *Table, columns ...string) *Table {
	return t.Filter(func(rec Record) bool {
		for _, col := range columns {
			if IsMissing(rec[col]) {
				return false
			}
		}
		return true
	})
}

// countBlanked counts cells of column that were present in before and are
// missing in after. Both tables must have the same rows.
func countBlanked(before, after *Table, column string) int {
	n := 0
	for i := range before.Records {
		if !IsMissing(before.Records[i][column]) && IsMissing(after.Records[i][column]) {
			n++
		}
	}
	return n
}
