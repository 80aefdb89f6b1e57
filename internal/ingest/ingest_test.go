package ingest_test

import (
	"context"
	"testing"

	"github.com/gantryhq/gantry/internal/filesystems"
	"github.com/gantryhq/gantry/internal/ingest"
)

func TestScanDotEnv(t *testing.T) {
	fs := filesystems.NewMemoryFS()
	fs.AddDir("src")
	fs.AddFile("src/.env", []byte(`DB_USER=clinic
DB_PASS=hunter2
GOOGLE_AI_API_KEY=abc123
DEBUG=false
`))

	scanner := ingest.NewScanner()
	result, err := scanner.Scan(context.Background(), fs, "src")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(result.Env) != 4 {
		t.Errorf("expected 4 env vars, got %d: %v", len(result.Env), result.Env)
	}
	if result.Env["DB_USER"] != "clinic" {
		t.Errorf("DB_USER = %q", result.Env["DB_USER"])
	}
	if len(result.Sources) != 1 || result.Sources[0] != "dotenv" {
		t.Errorf("sources = %v", result.Sources)
	}
}

func TestScanCompose(t *testing.T) {
	fs := filesystems.NewMemoryFS()
	fs.AddDir("src")
	fs.AddFile("src/docker-compose.yml", []byte(`services:
  web:
    image: registry.example.com/liver-risk:dev
    ports:
      - "8080:8080"
    environment:
      FLASK_SECRET_KEY: dev-only
      DB_NAME: clinic
`))

	scanner := ingest.NewScanner()
	result, err := scanner.Scan(context.Background(), fs, "src")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if result.Image != "registry.example.com/liver-risk:dev" {
		t.Errorf("image = %q", result.Image)
	}
	if result.Env["DB_NAME"] != "clinic" {
		t.Errorf("DB_NAME = %q", result.Env["DB_NAME"])
	}
	if len(result.Ports) != 1 || result.Ports[0] != 8080 {
		t.Errorf("ports = %v", result.Ports)
	}
}

func TestScanSkaffoldImageWins(t *testing.T) {
	fs := filesystems.NewMemoryFS()
	fs.AddDir("src")
	fs.AddFile("src/docker-compose.yml", []byte(`services:
  web:
    image: compose-image:dev
`))
	fs.AddFile("src/skaffold.yaml", []byte(`apiVersion: skaffold/v2beta29
kind: Config
build:
  artifacts:
    - image: gcr.io/clinic-prod/liver-risk
`))

	scanner := ingest.NewScanner()
	result, err := scanner.Scan(context.Background(), fs, "src")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	// Skaffold is the more explicit deployment spec
	if result.Image != "gcr.io/clinic-prod/liver-risk" {
		t.Errorf("image = %q, want the skaffold artifact", result.Image)
	}
}

func TestScanConfidenceMerge(t *testing.T) {
	fs := filesystems.NewMemoryFS()
	fs.AddDir("src")
	fs.AddFile("src/.env", []byte("DB_NAME=from-dotenv\nONLY_DOTENV=yes\n"))
	fs.AddFile("src/docker-compose.yml", []byte(`services:
  web:
    environment:
      DB_NAME: from-compose
`))

	scanner := ingest.NewScanner()
	result, err := scanner.Scan(context.Background(), fs, "src")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if result.Env["DB_NAME"] != "from-compose" {
		t.Errorf("DB_NAME = %q, compose should outrank dotenv", result.Env["DB_NAME"])
	}
	if result.Env["ONLY_DOTENV"] != "yes" {
		t.Errorf("ONLY_DOTENV = %q, non-conflicting keys should merge", result.Env["ONLY_DOTENV"])
	}
}

func TestScanEmptyTree(t *testing.T) {
	fs := filesystems.NewMemoryFS()
	fs.AddDir("src")

	scanner := ingest.NewScanner()
	result, err := scanner.Scan(context.Background(), fs, "src")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(result.Env) != 0 || result.Image != "" || len(result.Sources) != 0 {
		t.Errorf("empty tree should yield an empty result: %+v", result)
	}
}
