package secrets_test

import (
	"context"
	"testing"

	"github.com/gantryhq/gantry/internal/secrets"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		input   string
		name    string
		version string
		wantErr bool
	}{
		{input: "db-pass", name: "db-pass", version: "latest"},
		{input: "db-pass@latest", name: "db-pass", version: "latest"},
		{input: "flask-secret-key@3", name: "flask-secret-key", version: "3"},
		{input: "", wantErr: true},
		{input: "@latest", wantErr: true},
		{input: "db-pass@", wantErr: true},
		{input: "db pass", wantErr: true},
		{input: "db=pass", wantErr: true},
	}

	for _, tt := range tests {
		ref, err := secrets.ParseRef(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseRef(%q): expected error, got %v", tt.input, ref)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRef(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if ref.Name != tt.name || ref.Version != tt.version {
			t.Errorf("ParseRef(%q) = %s@%s, want %s@%s", tt.input, ref.Name, ref.Version, tt.name, tt.version)
		}
	}
}

func TestRefPlatformArg(t *testing.T) {
	ref := secrets.Ref{Name: "google-ai-api-key", Version: "latest"}
	if got := ref.PlatformArg(); got != "google-ai-api-key:latest" {
		t.Errorf("PlatformArg() = %q, want %q", got, "google-ai-api-key:latest")
	}
}

func TestStaticResolver(t *testing.T) {
	resolver := secrets.NewStaticResolver(map[string]string{
		"db-pass": "hunter2",
	})
	ctx := context.Background()

	if err := resolver.Check(ctx, secrets.Ref{Name: "db-pass", Version: "latest"}); err != nil {
		t.Errorf("Check for existing secret failed: %v", err)
	}
	if err := resolver.Check(ctx, secrets.Ref{Name: "missing", Version: "latest"}); err == nil {
		t.Error("Check for missing secret should fail")
	}

	value, err := resolver.Resolve(ctx, secrets.Ref{Name: "db-pass", Version: "latest"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if value != "hunter2" {
		t.Errorf("Resolve = %q, want %q", value, "hunter2")
	}
}

func TestEnvResolver(t *testing.T) {
	env := map[string]string{"DB_PASS": "hunter2"}
	resolver := secrets.NewEnvResolver(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	ctx := context.Background()

	// db-pass maps to DB_PASS
	value, err := resolver.Resolve(ctx, secrets.Ref{Name: "db-pass", Version: "latest"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if value != "hunter2" {
		t.Errorf("Resolve = %q, want %q", value, "hunter2")
	}

	if err := resolver.Check(ctx, secrets.Ref{Name: "db-user", Version: "latest"}); err == nil {
		t.Error("Check should fail when the environment variable is unset")
	}
}
