// Package core provides the cleaning pipeline for credit-application records.
//
// The package has no transport or storage dependencies and can be used by the
// CLI, the HTTP server, or tests without modification.
//
// # Pipeline
//
// [Cleaner.Clean] runs a fixed sequence of pure steps. Each step returns a new
// [Table] and never mutates its input:
//
//  1. [ValidateHeaders]: every column named by the field specs must be present
//  2. [DropMissing]: rows missing a mandatory field are removed
//  3. Per-column normalizers: [NormalizeDate], [NormalizeAmount], [Lower],
//     [NormalizeIdea], [NormalizeNeighborhood], [NormalizeCreditLine]
//  4. [CoerceInt]: the commune column becomes an integer, missing becomes 0
//  5. [DropDuplicates]: one row survives per equality group, row id excluded
//  6. [Reindex]: dense 0-based index
//
// # Cells
//
// A cell holds a pgtype.Text, pgtype.Float8 or pgtype.Int8. A value with
// Valid=false is the missing marker. Normalizers never return errors for
// unparseable input; they return the missing marker instead.
//
// # Loading
//
// [LoadFile] reads ';'-delimited text or .xlsx workbooks. Text input is passed
// through BOM stripping and UTF-8 sanitization before parsing (see
// [WrapSource]).
//
// # Error Handling
//
// Structural problems are fatal and returned as wrapped sentinel errors
// ([ErrSourceNotFound], [ErrMissingColumn], [ErrCoercion], ...). [MapError]
// turns them into user-facing messages with support codes.
package core
