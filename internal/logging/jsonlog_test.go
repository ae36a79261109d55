package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	prev := SetOutput(&buf)
	defer SetOutput(prev)
	SetLevel("info")

	Debug("hidden", nil)
	Warn("catalog_row_skipped", map[string]any{"source": "cnn"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var e entry
	if err := json.Unmarshal([]byte(lines[0]), &e); err != nil {
		t.Fatal(err)
	}
	if e.Level != "warn" || e.Message != "catalog_row_skipped" || e.Fields["source"] != "cnn" {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

func TestSetLevelDebug(t *testing.T) {
	var buf bytes.Buffer
	prev := SetOutput(&buf)
	defer SetOutput(prev)
	SetLevel("debug")
	defer SetLevel("info")

	Debug("match_exact", nil)
	if !strings.Contains(buf.String(), `"level":"debug"`) {
		t.Fatalf("debug line missing: %q", buf.String())
	}
}
