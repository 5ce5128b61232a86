package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/creditclean/internal/config"
	"github.com/JonMunkholm/creditclean/internal/core"
)

var header = core.DefaultColumns().Names()

func writeInput(t *testing.T, sep string, rows ...[]string) string {
	t.Helper()
	lines := []string{strings.Join(header, sep)}
	for _, row := range rows {
		lines = append(lines, strings.Join(row, sep))
	}
	path := filepath.Join(t.TempDir(), "solicitudes.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
	return path
}

func sampleInput(t *testing.T) string {
	return writeInput(t, ";",
		[]string{"0", "Comercio", "El Poblado", "5", "$1,200.50", "Femenino", "Tienda", "Andalucia", "15/03/2021"},
		[]string{"1", "comercio", "El-Poblado", "5", "1200.5", "femenino", "tienda", "andalucia", "2021-03-15"},
		[]string{"2", "", "Belen", "3", "500", "M", "Idea", "Linea", "01/01/2020"},
	)
}

// execute runs the CLI with args and returns stdout and stderr.
func execute(t *testing.T, cfg *config.Config, args ...string) (string, string, error) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	if cfg == nil {
		cfg = config.Default()
	}
	cmd := newRootCmd(cfg)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestClean_Stdout(t *testing.T) {
	in := sampleInput(t)

	stdout, stderr, err := execute(t, nil, "clean", "--in", in)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(header, ";"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "0;comercio;el_poblado;5;"), lines[1])
	assert.Contains(t, stderr, "clean completed")
}

func TestClean_OutFile(t *testing.T) {
	in := sampleInput(t)
	out := filepath.Join(t.TempDir(), "limpias.csv")

	stdout, _, err := execute(t, nil, "clean", "-i", in, "-o", out)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	// The written file loads back and is already clean
	reloaded, err := core.LoadFile(context.Background(), out, core.DefaultLoadOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Len(), string(data))

	again, report, err := core.Clean(context.Background(), reloaded)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Len())
	assert.Zero(t, report.DroppedMissing)
	assert.Zero(t, report.DroppedDuplicates)
}

func TestClean_Delimiter(t *testing.T) {
	in := writeInput(t, ",",
		[]string{"0", "Comercio", "Belen", "5", "100", "F", "Idea", "Linea", "01/01/2020"},
	)

	stdout, _, err := execute(t, nil, "clean", "--in", in, "--delimiter", ",")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, strings.Join(header, ",")+"\n"), stdout)
}

func TestDuplicates(t *testing.T) {
	in := sampleInput(t)

	stdout, _, err := execute(t, nil, "duplicates", "--in", in)
	require.NoError(t, err)

	var resp struct {
		RunID             string                `json:"runId"`
		DroppedDuplicates int                   `json:"droppedDuplicates"`
		Groups            []core.DuplicateGroup `json:"groups"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, 1, resp.DroppedDuplicates)
	assert.Equal(t, []core.DuplicateGroup{{Rows: []int{0, 1}}}, resp.Groups)
}

func TestSummary(t *testing.T) {
	in := sampleInput(t)

	tests := []struct {
		name     string
		args     []string
		wantRows int
		wantSum  float64
	}{
		{"cleaned", []string{"summary", "--in", in}, 1, 1200.5},
		{"raw", []string{"summary", "--in", in, "--raw"}, 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, nil, tt.args...)
			require.NoError(t, err)

			var s core.Summary
			require.NoError(t, json.Unmarshal([]byte(stdout), &s))
			assert.Equal(t, tt.wantRows, s.Rows)
			require.NotNil(t, s.Amount)
			if tt.wantSum > 0 {
				require.NotNil(t, s.Amount.Sum)
				assert.InDelta(t, tt.wantSum, *s.Amount.Sum, 1e-9)
			}
		})
	}
}

func TestSave_WithoutDatabase(t *testing.T) {
	in := sampleInput(t)

	_, _, err := execute(t, nil, "save", "--in", in)
	require.ErrorIs(t, err, core.ErrStoreDisabled)
}

func TestErrors(t *testing.T) {
	dir := t.TempDir()
	missingCol := filepath.Join(dir, "cols.csv")
	require.NoError(t, os.WriteFile(missingCol, []byte("Unnamed: 0;barrio\n0;Belen\n"), 0o600))

	tests := []struct {
		name     string
		args     []string
		wantCode string
	}{
		{"missing file", []string{"clean", "--in", filepath.Join(dir, "nope.csv")}, "SRC001"},
		{"missing column", []string{"clean", "--in", missingCol}, "COL001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, nil, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, core.MapError(err).Code)
		})
	}
}

func TestFlagValidation(t *testing.T) {
	_, _, err := execute(t, nil, "clean", "--delimiter", ";;")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "single character")

	_, _, err = execute(t, nil, "clean", "--in", "")
	require.Error(t, err)
}

func TestDefaultsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Input.Path = sampleInput(t)

	stdout, _, err := execute(t, cfg, "duplicates")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"droppedDuplicates": 1`)

	_, _, err = execute(t, cfg, "clean", "extra-arg")
	require.Error(t, err)
	assert.False(t, errors.Is(err, core.ErrStoreDisabled))
}
