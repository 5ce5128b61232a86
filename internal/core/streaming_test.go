package core

import (
	"bytes"
	"io"
	"testing"
)

func TestWrapSource(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "leading BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, "barrio;sexo"...),
			expected: "barrio;sexo",
		},
		{
			name:     "no BOM",
			input:    []byte("barrio;sexo"),
			expected: "barrio;sexo",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "empty",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "valid multibyte kept",
			input:    []byte("línea;Belén"),
			expected: "línea;Belén",
		},
		{
			name:     "latin-1 byte replaced",
			input:    []byte{'B', 'e', 'l', 0xE9, 'n'},
			expected: "Bel\uFFFDn",
		},
		{
			name:     "BOM later in the stream is kept",
			input:    append([]byte("a"), 0xEF, 0xBB, 0xBF),
			expected: "a\uFEFF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, counter := WrapSource(bytes.NewReader(tt.input), int64(len(tt.input)))
			got, err := io.ReadAll(src)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
			if counter.BytesRead != int64(len(tt.input)) {
				t.Errorf("BytesRead = %d, want %d", counter.BytesRead, len(tt.input))
			}
		})
	}
}

func TestCountingReader_Progress(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 200)
	r := NewCountingReader(bytes.NewReader(data), 200)

	buf := make([]byte, 50)
	if _, err := r.Read(buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := r.Progress(); got != 25 {
		t.Errorf("Progress() = %d, want 25", got)
	}

	if _, err := io.ReadAll(r); err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if got := r.Progress(); got != 100 {
		t.Errorf("Progress() = %d, want 100", got)
	}

	unknown := NewCountingReader(bytes.NewReader(data), 0)
	if got := unknown.Progress(); got != 0 {
		t.Errorf("Progress() with unknown total = %d, want 0", got)
	}
}
