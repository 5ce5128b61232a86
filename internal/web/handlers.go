package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/render"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/creditclean/internal/core"
	"github.com/JonMunkholm/creditclean/internal/logging"
)

const (
	xlsxMediaType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// multipartMemory is how much of a multipart upload is held in memory;
	// the rest spills to temporary files.
	multipartMemory = 32 << 20

	// multipartOverhead covers boundaries and part headers on top of the file.
	multipartOverhead = 1 << 20

	healthCheckTimeout = 2 * time.Second
)

// CleanResponse is the JSON body of POST /api/clean.
type CleanResponse struct {
	Report  *core.Report     `json:"report"`
	Columns []string         `json:"columns"`
	Records []map[string]any `json:"records"`
	Saved   *int64           `json:"saved,omitempty"` // rows written to the database
}

// DuplicatesResponse is the JSON body of POST /api/duplicates.
type DuplicatesResponse struct {
	RunID             string                `json:"runId"`
	RowsLoaded        int                   `json:"rowsLoaded"`
	DroppedDuplicates int                   `json:"droppedDuplicates"`
	Groups            []core.DuplicateGroup `json:"groups"`
}

// SummaryResponse is the JSON body of POST /api/summary.
type SummaryResponse struct {
	RunID   string       `json:"runId"`
	Summary core.Summary `json:"summary"`
}

// HealthResponse is the JSON body of GET /api/health.
type HealthResponse struct {
	Status   string             `json:"status"`
	Runs     core.LimiterStatus `json:"runs"`
	Database string             `json:"database"`
}

// handleClean cleans the uploaded table and returns it with the run report.
// With ?save=true the result is also copied into the database.
func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	opts, err := s.loadOptions(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	out, report, ok := s.runClean(w, r, opts)
	if !ok {
		return
	}
	w.Header().Set("X-Run-ID", report.RunID)

	var saved *int64
	if r.URL.Query().Get("save") == "true" {
		if s.store == nil {
			s.respondError(w, r, core.ErrStoreDisabled)
			return
		}
		n, err := s.store.Save(r.Context(), out, report.RunID)
		if err != nil {
			s.respondError(w, r, fmt.Errorf("save run %s: %w", report.RunID, err))
			return
		}
		saved = &n
	}

	if wantsCSV(r) {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="solicitudes_limpias.csv"`)
		if err := core.WriteCSV(w, out, opts.Delimiter); err != nil {
			// Headers are gone; all we can do is log
			logging.FromContext(r.Context()).Error("write csv response", "error", err)
		}
		return
	}

	render.JSON(w, r, CleanResponse{
		Report:  report,
		Columns: out.Columns,
		Records: recordsJSON(out),
		Saved:   saved,
	})
}

// handleDuplicates cleans the uploaded table and lists the duplicate groups
// that were collapsed.
func (s *Server) handleDuplicates(w http.ResponseWriter, r *http.Request) {
	opts, err := s.loadOptions(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	_, report, ok := s.runClean(w, r, opts)
	if !ok {
		return
	}

	groups := report.Duplicates
	if groups == nil {
		groups = []core.DuplicateGroup{}
	}
	render.JSON(w, r, DuplicatesResponse{
		RunID:             report.RunID,
		RowsLoaded:        report.RowsLoaded,
		DroppedDuplicates: report.DroppedDuplicates,
		Groups:            groups,
	})
}

// handleSummary cleans the uploaded table and describes the result.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	opts, err := s.loadOptions(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	out, report, ok := s.runClean(w, r, opts)
	if !ok {
		return
	}

	render.JSON(w, r, SummaryResponse{
		RunID:   report.RunID,
		Summary: core.Summarize(out, s.columns),
	})
}

// handleHealth reports run slot usage and database reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "ok",
		Runs:     s.limiter.Status(),
		Database: "disabled",
	}

	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		if err := s.store.Ping(ctx); err != nil {
			logging.FromContext(r.Context()).Warn("database ping failed", "error", err)
			resp.Status = "degraded"
			resp.Database = "unavailable"
			render.Status(r, http.StatusServiceUnavailable)
		} else {
			resp.Database = "ok"
		}
	}

	render.JSON(w, r, resp)
}

// runClean takes a run slot, reads the request body and cleans it. On failure
// the error response has been written and ok is false.
func (s *Server) runClean(w http.ResponseWriter, r *http.Request, opts core.LoadOptions) (*core.Table, *core.Report, bool) {
	if err := s.limiter.Acquire(r.Context()); err != nil {
		s.metrics.ObserveRun(nil, err)
		s.respondError(w, r, err)
		return nil, nil, false
	}
	defer s.limiter.Release()

	t, err := s.readTable(w, r, opts)
	if err != nil {
		s.metrics.ObserveRun(nil, err)
		s.respondError(w, r, err)
		return nil, nil, false
	}

	out, report, err := s.cleaner.Clean(r.Context(), t)
	s.metrics.ObserveRun(report, err)
	if err != nil {
		s.respondError(w, r, err)
		return nil, nil, false
	}
	return out, report, true
}

// loadOptions builds load options from the configuration, overridden by the
// delimiter and sheet query parameters.
func (s *Server) loadOptions(r *http.Request) (core.LoadOptions, error) {
	opts := core.LoadOptions{
		Delimiter: s.cfg.Input.DelimiterRune(),
		MaxBytes:  s.cfg.Input.MaxFileSize,
		Sheet:     s.cfg.Input.Sheet,
	}

	q := r.URL.Query()
	if d := q.Get("delimiter"); d != "" {
		if utf8.RuneCountInString(d) != 1 {
			return opts, fmt.Errorf("%w: delimiter must be a single character, got %q", core.ErrInvalidSource, d)
		}
		opts.Delimiter, _ = utf8.DecodeRuneInString(d)
	}
	if sheet := q.Get("sheet"); sheet != "" {
		opts.Sheet = sheet
	}
	return opts, nil
}

// readTable parses the request body as a table. Accepted forms are a
// multipart upload in the "file" field, an xlsx body, or delimited text.
func (s *Server) readTable(w http.ResponseWriter, r *http.Request, opts core.LoadOptions) (*core.Table, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, opts.MaxBytes+multipartOverhead)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, bodyError(err, opts.MaxBytes)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("%w: form field \"file\" is required", core.ErrInvalidSource)
		}
		defer file.Close()

		if header.Size > opts.MaxBytes {
			return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", core.ErrFileTooLarge, header.Size, opts.MaxBytes)
		}
		if isXLSX(header.Filename, header.Header.Get("Content-Type")) {
			return core.ReadXLSX(file, opts)
		}
		return core.ReadCSV(file, opts)

	case xlsxMediaType:
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, opts.MaxBytes))
		if err != nil {
			return nil, bodyError(err, opts.MaxBytes)
		}
		return core.ReadXLSX(bytes.NewReader(data), opts)

	default:
		return core.ReadCSV(r.Body, opts)
	}
}

// bodyError classifies a failure reading the request body.
func bodyError(err error, limit int64) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: more than %d bytes", core.ErrFileTooLarge, limit)
	}
	return fmt.Errorf("%w: %v", core.ErrInvalidSource, err)
}

func isXLSX(filename, contentType string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".xlsx") || contentType == xlsxMediaType
}

// wantsCSV reports whether the client asked for a CSV response.
func wantsCSV(r *http.Request) bool {
	if r.URL.Query().Get("format") == "csv" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/csv")
}

// recordsJSON converts records to JSON-friendly maps. Missing cells are null.
func recordsJSON(t *core.Table) []map[string]any {
	records := make([]map[string]any, len(t.Records))
	for i, rec := range t.Records {
		m := make(map[string]any, len(t.Columns))
		for _, col := range t.Columns {
			m[col] = cellJSON(rec[col])
		}
		records[i] = m
	}
	return records
}

func cellJSON(c core.Cell) any {
	if core.IsMissing(c) {
		return nil
	}
	switch v := c.(type) {
	case pgtype.Text:
		return v.String
	case pgtype.Float8:
		if math.IsInf(v.Float64, 0) {
			return nil
		}
		return v.Float64
	case pgtype.Int8:
		return v.Int64
	default:
		return core.FormatCell(c)
	}
}
