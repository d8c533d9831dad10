package logging

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestNewLogger_CreatesDirAndWrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	log, err := NewLogger(dir, false)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("log dir missing: %v", err)
	}

	log.Info("test_message")
	_ = log.Sync()

	raw, err := os.ReadFile(filepath.Join(dir, "fletchck.log"))
	if err != nil {
		t.Fatalf("log file missing: %v", err)
	}
	if len(raw) == 0 {
		t.Fatalf("log file empty")
	}
}

func TestNewLogger_DebugEnablesDebugLevel(t *testing.T) {
	log, err := NewLogger(t.TempDir(), true)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer func() { _ = log.Sync() }()
	if ce := log.Check(zap.DebugLevel, "debug_probe"); ce == nil {
		t.Fatalf("debug level should be enabled")
	}
}
