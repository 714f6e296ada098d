package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextFieldsAccumulate(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: &buf})

	ctx := logg.WithRequestID(context.Background(), "req-1")
	ctx = logg.WithCommunityID(ctx, "comm-1")
	logg.Info(ctx, "hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not json: %v", err)
	}
	if entry["request_id"] != "req-1" || entry["community_id"] != "comm-1" {
		t.Fatalf("missing context fields: %v", entry)
	}
	if entry["service"] != "test" {
		t.Fatalf("missing service field: %v", entry)
	}
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	if got := ParseLevel("nope"); got != zerolog.InfoLevel {
		t.Fatalf("unexpected level %v", got)
	}
	if got := ParseLevel("warn"); got != zerolog.WarnLevel {
		t.Fatalf("unexpected level %v", got)
	}
}
