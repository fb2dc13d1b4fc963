package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteZones writes a zones file into a temp dir and returns its path.
func WriteZones(t testing.TB, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "zones.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing zones file: %v", err)
	}
	return path
}
