package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

func TestRunWithoutModeReturnsUsage(t *testing.T) {
	// No -url and no -serve is a usage error returned to main, not an
	// in-place exit: the service it opened must still get closed.
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "pagewalk.yaml")
	cfg := []byte("database: " + filepath.Join(dir, "pagewalk.db") + "\n")
	if err := os.WriteFile(cfgPath, cfg, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	err := run(context.Background(), slog.Default(), cfgPath, "", "", 0, false)
	if err == nil || !strings.Contains(err.Error(), "usage") {
		t.Fatalf("got %v, want usage error", err)
	}
}
