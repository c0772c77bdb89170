// internal/logger/logger_test.go
//
// Run: go test ./internal/logger -v

package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNewWritesDailyFile(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	root := t.TempDir()
	log, err := New(root, "debug", false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Debugw("probe", "k", "v")
	_ = log.Sync()

	path := filepath.Join(root, "logs", time.Now().Format("2006-01-02")+".log")
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(b) == 0 {
		t.Fatal("log file is empty")
	}
	if zap.L() != log.Desugar() {
		t.Error("global logger not replaced")
	}
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	log, err := New(t.TempDir(), "chatty", false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if log.Desugar().Core().Enabled(zap.DebugLevel) {
		t.Error("debug enabled for unknown level")
	}
	if !log.Desugar().Core().Enabled(zap.InfoLevel) {
		t.Error("info disabled for unknown level")
	}
}
