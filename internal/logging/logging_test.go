package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{name: "text info", level: "info", format: "text"},
		{name: "default format", level: "debug", format: ""},
		{name: "json", level: "warn", format: "json"},
		{name: "bad level", level: "loud", format: "text", wantErr: true},
		{name: "bad format", level: "info", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.level, tt.format, &bytes.Buffer{})
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("info", FormatJSON, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.WithField("table", "songplays").Info("statement complete")
	logger.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("wrote %d lines, want 1 (debug filtered)", len(lines))
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decoding entry: %v", err)
	}
	if entry["table"] != "songplays" || entry["msg"] != "statement complete" || entry["level"] != "info" {
		t.Errorf("entry = %v", entry)
	}
}
