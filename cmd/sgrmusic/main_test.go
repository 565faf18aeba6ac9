package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != version {
		t.Errorf("expected %q, got %q", version, got)
	}
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if err := loadEnvFile(filepath.Join(t.TempDir(), ".env")); err != nil {
			t.Errorf("expected missing file to be ignored, got %v", err)
		}
	})

	t.Run("loads variables", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(path, []byte("SGRMUSIC_TEST_VAR=loaded\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		t.Setenv("SGRMUSIC_TEST_VAR", "")
		os.Unsetenv("SGRMUSIC_TEST_VAR")

		if err := loadEnvFile(path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := os.Getenv("SGRMUSIC_TEST_VAR"); got != "loaded" {
			t.Errorf("expected SGRMUSIC_TEST_VAR=loaded, got %q", got)
		}
	})
}
