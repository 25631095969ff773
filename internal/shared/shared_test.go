package shared

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCompareTimestamps(t *testing.T) {
	tc := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{name: "earlier", a: "2024-01-01T00:00:00Z", b: "2024-02-01T00:00:00Z", want: -1},
		{name: "later", a: "2024-02-01T00:00:00Z", b: "2024-01-01T00:00:00Z", want: 1},
		{name: "equal", a: "2024-01-01T00:00:00Z", b: "2024-01-01T00:00:00Z", want: 0},
		{name: "same instant different zone", a: "2024-01-01T09:00:00+09:00", b: "2024-01-01T00:00:00Z", want: 0},
		{name: "unparsable falls back to lexical", a: "abc", b: "abd", want: -1},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompareTimestamps(tt.a, tt.b); got != tt.want {
				t.Errorf("CompareTimestamps(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	loc := time.FixedZone("JST", 9*60*60)
	ts := time.Date(2024, 1, 1, 9, 0, 0, 500, loc)

	if got := FormatTimestamp(ts); got != "2024-01-01T00:00:00Z" {
		t.Errorf("FormatTimestamp() = %s, want 2024-01-01T00:00:00Z", got)
	}
}

func TestPointers(t *testing.T) {
	t.Run("StringPtr empty", func(t *testing.T) {
		if StringPtr("") != nil {
			t.Error("expected nil for empty string")
		}
	})

	t.Run("StringPtr and Deref", func(t *testing.T) {
		if got := Deref(StringPtr("abc")); got != "abc" {
			t.Errorf("expected abc, got %s", got)
		}
		if got := Deref(nil); got != "" {
			t.Errorf("expected empty string, got %s", got)
		}
	})
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("expected distinct IDs")
	}
	if len(a) != 36 {
		t.Errorf("expected uuid string of length 36, got %d", len(a))
	}
}

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "spotdiff.log")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	logger.Info("pass complete", "new", 2)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "pass complete") {
		t.Errorf("expected log line in file, got %q", data)
	}
}
