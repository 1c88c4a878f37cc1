package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(Config{Level: "loud", Format: "console"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewRejectsBadFormat(t *testing.T) {
	if _, err := New(Config{Level: "info", Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routesim.log")
	log, err := New(Config{Level: "debug", Format: "json", File: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	log.Named("test").Info("hello", String("k", "v"), Int("n", 1))
	_ = log.Sync()
}

func TestWithCarriesFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routesim.log")
	log, err := New(Config{Level: "info", Format: "json", File: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	client := log.Named("websocket").With(String("remote_addr", "10.0.0.7:5123"))
	client.Info("connected")
	client.Info("closed", String("reason", "eof"))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2:\n%s", len(lines), data)
	}
	for _, line := range lines {
		if !strings.Contains(line, `"remote_addr":"10.0.0.7:5123"`) {
			t.Errorf("line missing remote_addr: %s", line)
		}
	}
	if !strings.Contains(lines[1], `"reason":"eof"`) {
		t.Errorf("second line missing call-site field: %s", lines[1])
	}
}
