package core

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
)

// ============================================================================
// Normalizer Benchmarks
// ============================================================================

// BenchmarkNormalizeDate benchmarks date parsing across the accepted layouts.
// Called once per row on fecha_de_beneficio.
func BenchmarkNormalizeDate(b *testing.B) {
	testCases := []Cell{
		Text("15/03/2021"), // DD/MM/YYYY, first layout
		Text("2021-03-15"), // YYYY-MM-DD
		Text("2021/3/5"),   // YYYY/MM/DD, last layout
		Text("31/02/2021"), // Invalid, tries every layout
		pgtype.Text{},      // Missing
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			NormalizeDate(tc)
		}
	}
}

// BenchmarkNormalizeAmount benchmarks currency stripping and parsing.
func BenchmarkNormalizeAmount(b *testing.B) {
	testCases := []Cell{
		Text("$1,200.50"),
		Text("1200"),
		Text("12$00"),
		Text("not a number"),
		pgtype.Float8{Float64: 1200.5, Valid: true}, // Already clean
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			NormalizeAmount(tc)
		}
	}
}

// BenchmarkNormalizeCreditLine benchmarks the longest text rule chain.
func BenchmarkNormalizeCreditLine(b *testing.B) {
	c := Text("Fondo E.P.M. - Andaluc¿a.")

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		NormalizeCreditLine(c)
	}
}

// BenchmarkCoerceInt benchmarks commune coercion, integer and float text.
func BenchmarkCoerceInt(b *testing.B) {
	testCases := []Cell{Text("16"), Text(" 7.9 "), pgtype.Text{}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			CoerceInt(tc)
		}
	}
}

// ============================================================================
// Pipeline Benchmarks
// ============================================================================

// BenchmarkReadCSV benchmarks loading delimited text into a table.
func BenchmarkReadCSV(b *testing.B) {
	data := generateTestCSV(1000)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := ReadCSV(bytes.NewReader(data), DefaultLoadOptions()); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkClean benchmarks a whole clean run over a loaded table.
func BenchmarkClean(b *testing.B) {
	for _, rows := range []int{100, 10000} {
		b.Run(fmt.Sprintf("rows=%d", rows), func(b *testing.B) {
			t, err := ReadCSV(bytes.NewReader(generateTestCSV(rows)), DefaultLoadOptions())
			if err != nil {
				b.Fatal(err)
			}
			quietLogs(b)
			c := NewCleaner(DefaultOptions())
			ctx := context.Background()

			b.ResetTimer()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, _, err := c.Clean(ctx, t); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkFindDuplicates benchmarks duplicate detection where every other
// row repeats its predecessor.
func BenchmarkFindDuplicates(b *testing.B) {
	t, err := ReadCSV(bytes.NewReader(generateTestCSV(5000)), DefaultLoadOptions())
	if err != nil {
		b.Fatal(err)
	}
	rowID := DefaultColumns().RowID

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		FindDuplicates(t, rowID)
	}
}

// BenchmarkWriteCSV benchmarks exporting a cleaned table through a dataframe.
func BenchmarkWriteCSV(b *testing.B) {
	t, err := ReadCSV(bytes.NewReader(generateTestCSV(1000)), DefaultLoadOptions())
	if err != nil {
		b.Fatal(err)
	}
	quietLogs(b)
	out, _, err := Clean(context.Background(), t)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if err := WriteCSV(io.Discard, out, DefaultDelimiter); err != nil {
			b.Fatal(err)
		}
	}
}

// ============================================================================
// Parallel Benchmarks
// ============================================================================

// BenchmarkNormalizeAmountParallel checks the normalizers hold no shared
// state that would serialize concurrent runs.
func BenchmarkNormalizeAmountParallel(b *testing.B) {
	c := Text("$1,234,567.89")
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			NormalizeAmount(c)
		}
	})
}

// ============================================================================
// Helper Functions
// ============================================================================

// generateTestCSV generates a ';'-delimited credit export with rows data
// rows. Odd rows duplicate the previous row under a new id.
func generateTestCSV(rows int) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = DefaultDelimiter

	w.Write(DefaultColumns().Names())
	for i := 0; i < rows; i++ {
		n := i / 2
		w.Write([]string{
			fmt.Sprint(i),
			"Comercio",
			fmt.Sprintf("Barrio-%d", n%40),
			fmt.Sprint(n % 16),
			fmt.Sprintf("$%d,%03d.50", 1+n%9, n%1000),
			"Femenino",
			fmt.Sprintf("Idea Negocio %d", n),
			"Fondo E.P.M.",
			fmt.Sprintf("%d/%d/2021", 1+n%28, 1+n%12),
		})
	}
	w.Flush()

	return buf.Bytes()
}

// quietLogs silences the default logger for the rest of the benchmark.
func quietLogs(b *testing.B) {
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	b.Cleanup(func() { slog.SetDefault(prev) })
}
