package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestDevLogsDebug(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("dev", &buf).Debug("cache loaded", "entries", 3)
	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected json record, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "cache loaded" || record["entries"] != float64(3) {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestProdSkipsDebug(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("prod", &buf).Debug("noise")
	if buf.Len() != 0 {
		t.Fatalf("expected no debug output, got %q", buf.String())
	}
}
