package launcher_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gantryhq/gantry/internal/launcher"
)

func TestLoadEnvFileMissingIsNotAnError(t *testing.T) {
	if err := launcher.LoadEnvFile(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("missing env file should be ignored: %v", err)
	}
	if err := launcher.LoadEnvFile(""); err != nil {
		t.Errorf("empty path should be ignored: %v", err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("GANTRY_TEST_DB_USER=clinic\n"), 0600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	defer os.Unsetenv("GANTRY_TEST_DB_USER")

	if err := launcher.LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile failed: %v", err)
	}
	if got := os.Getenv("GANTRY_TEST_DB_USER"); got != "clinic" {
		t.Errorf("GANTRY_TEST_DB_USER = %q, want clinic", got)
	}
}
