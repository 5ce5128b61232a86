package core

// errors.go defines the fatal errors of the cleaning pipeline and maps them to
// user-facing messages with support codes.
//
// Codes are grouped by category:
//
//	SRC001 - Source not found: the input file does not exist
//	SRC002 - Empty source: the input has no header row
//	SRC003 - Invalid file: the input could not be parsed as delimited text or xlsx
//	COL001 - Missing column: a required column is absent from the header
//	VAL001 - Conversion failed: a commune value is not numeric
//	FILE001 - File too large: the input exceeds the configured size limit
//	RUN001 - System busy: too many clean runs in progress
//	DB001 - Saving disabled: no database is configured
//	GEN001 - Fallback for anything else
//
// Per-cell date and amount failures are not errors; those cells become missing.

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSourceNotFound is returned when the input file does not exist.
	ErrSourceNotFound = errors.New("source not found")

	// ErrEmptySource is returned when the input has no header row.
	ErrEmptySource = errors.New("empty source")

	// ErrInvalidSource is returned when the input cannot be parsed.
	ErrInvalidSource = errors.New("invalid delimited file")

	// ErrMissingColumn is returned when the header lacks a required column.
	ErrMissingColumn = errors.New("missing required column")

	// ErrCoercion is returned when a value cannot be converted to an integer.
	ErrCoercion = errors.New("cannot convert to integer")

	// ErrFileTooLarge is returned when the input exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrTooManyRuns is returned when every run slot stays occupied for the
	// limiter's wait time. Clients should retry after a short delay.
	ErrTooManyRuns = errors.New("too many concurrent clean runs, please try again later")

	// ErrStoreDisabled is returned when a save is requested without a
	// configured database.
	ErrStoreDisabled = errors.New("database not configured")
)

// RowError attaches a row label and column to a conversion failure.
type RowError struct {
	Row    int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d, column %q: %v", e.Row, e.Column, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// UserMessage is a user-friendly rendering of an error.
type UserMessage struct {
	Code    string
	Message string
	Action  string
}

type errorMapping struct {
	target error
	msg    UserMessage
}

var errorMappings = []errorMapping{
	{ErrSourceNotFound, UserMessage{"SRC001", "Input file not found", "Check the input path"}},
	{ErrEmptySource, UserMessage{"SRC002", "The input file is empty", "Provide a file with a header row and data rows"}},
	{ErrInvalidSource, UserMessage{"SRC003", "The input is not a valid delimited file", "Save the file as ';'-separated text"}},
	{ErrMissingColumn, UserMessage{"COL001", "A required column is missing", "Check that the header contains every expected column"}},
	{ErrCoercion, UserMessage{"VAL001", "A commune value is not a number", "Fix or blank the non-numeric comuna_ciudadano values"}},
	{ErrFileTooLarge, UserMessage{"FILE001", "File exceeds the maximum size limit", "Split the file into smaller chunks"}},
	{ErrTooManyRuns, UserMessage{"RUN001", "Too many cleaning runs in progress", "Please wait a moment and try again"}},
	{ErrStoreDisabled, UserMessage{"DB001", "Saving is not enabled", "Set CREDITCLEAN_DATABASE_URL to enable saving"}},
}

var fallbackMessage = UserMessage{"GEN001", "An unexpected error occurred", "Please try again or contact support"}

// MapError converts an error into a user-facing message.
// Wrapped sentinels are matched with errors.Is; the message text is used as a
// fallback so errors that crossed a process boundary still map.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.msg
		}
	}
	text := strings.ToLower(err.Error())
	for _, m := range errorMappings {
		if strings.Contains(text, m.target.Error()) {
			return m.msg
		}
	}
	return fallbackMessage
}
