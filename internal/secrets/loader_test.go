package secrets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "key")
	if err := os.WriteFile(file, []byte("  from-file \n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	t.Setenv("CAREER_TEST_KEY", "from-env")

	got, err := Load(Source{Name: "api key", File: file, Env: "CAREER_TEST_KEY", Value: "inline"})
	if err != nil || got != "from-file" {
		t.Fatalf("expected file secret, got %q, %v", got, err)
	}

	got, err = Load(Source{Env: "CAREER_TEST_KEY", Value: "inline"})
	if err != nil || got != "from-env" {
		t.Fatalf("expected env secret, got %q, %v", got, err)
	}

	got, err = Load(Source{Env: "CAREER_UNSET_KEY", Value: " inline "})
	if err != nil || got != "inline" {
		t.Fatalf("expected inline secret, got %q, %v", got, err)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(Source{Name: "dsn"}); err == nil {
		t.Fatal("expected error when nothing is configured")
	}

	empty := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(empty, []byte("   "), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	if _, err := Load(Source{File: empty}); err == nil {
		t.Fatal("expected error for empty file")
	}

	if _, err := Load(Source{File: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestOptional(t *testing.T) {
	got, err := Optional(Source{Name: "redis"})
	if err != nil || got != "" {
		t.Fatalf("expected empty optional secret, got %q, %v", got, err)
	}

	got, err = Optional(Source{Value: "redis://localhost:6379"})
	if err != nil || got != "redis://localhost:6379" {
		t.Fatalf("unexpected optional secret %q, %v", got, err)
	}
}
