package audit

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer) *Logger {
	return New(slog.NewJSONHandler(buf, nil))
}

func TestTransferRequested_WritesAuditGroup(t *testing.T) {
	var buf bytes.Buffer
	a := newTestLogger(&buf)
	a.TransferRequested("id-1", "alice", "photo.jpg")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	group, ok := entry["audit"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested audit group, got %v", entry)
	}
	if group["id"] != "id-1" || group["peer"] != "alice" || group["file"] != "photo.jpg" {
		t.Errorf("audit group = %v", group)
	}
	if !strings.Contains(buf.String(), "transfer_requested") {
		t.Errorf("missing message: %s", buf.String())
	}
}

func TestNilLogger_MethodsAreNoops(t *testing.T) {
	var a *Logger
	a.TransferRequested("id", "alice", "f")
	a.TransferResolved("id", "inbound", "completed", "")
	a.TextReceived("alice", 5)
	a.AliasChanged("old", "new")
}

func TestTransferResolved_IncludesReason(t *testing.T) {
	var buf bytes.Buffer
	a := newTestLogger(&buf)
	a.TransferResolved("id-2", "outbound", "failed", "network: connection refused")

	if !strings.Contains(buf.String(), "connection refused") {
		t.Errorf("output missing reason: %s", buf.String())
	}
}
