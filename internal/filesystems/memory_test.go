package filesystems_test

import (
	"testing"

	"github.com/gantryhq/gantry/internal/filesystems"
)

func TestMemoryFSReadFile(t *testing.T) {
	fs := filesystems.NewMemoryFS()
	fs.AddFile("src/.env", []byte("DB_USER=clinic\n"))

	content, err := fs.ReadFile("src/.env")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(content) != "DB_USER=clinic\n" {
		t.Errorf("content = %q", content)
	}

	if _, err := fs.ReadFile("src/missing"); err == nil {
		t.Error("ReadFile for a missing file should fail")
	}
}

func TestMemoryFSReadDir(t *testing.T) {
	fs := filesystems.NewMemoryFS()
	fs.AddFile("src/.env", []byte("A=1"))
	fs.AddFile("src/requirements.txt", []byte("flask"))
	fs.AddFile("src/templates/index.html", []byte("<html>"))

	var files, dirs []string
	for entry, err := range fs.ReadDir("src") {
		if err != nil {
			t.Fatalf("ReadDir failed: %v", err)
		}
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		} else {
			files = append(files, entry.Name())
		}
	}

	if len(files) != 2 {
		t.Errorf("files = %v, want .env and requirements.txt", files)
	}
	if len(dirs) != 1 || dirs[0] != "templates" {
		t.Errorf("dirs = %v, want [templates]", dirs)
	}

	for _, err := range fs.ReadDir("nope") {
		if err == nil {
			t.Error("ReadDir for a missing directory should yield an error")
		}
	}
}

func TestMemoryFSAddDir(t *testing.T) {
	fs := filesystems.NewMemoryFS()
	fs.AddDir("src/static/css")

	var names []string
	for entry, err := range fs.ReadDir("src") {
		if err != nil {
			t.Fatalf("ReadDir failed: %v", err)
		}
		if !entry.IsDir() {
			t.Errorf("%s should be a directory", entry.Name())
		}
		names = append(names, entry.Name())
	}
	if len(names) != 1 || names[0] != "static" {
		t.Errorf("entries = %v, want [static]", names)
	}

	// An explicitly added empty directory is readable
	for _, err := range fs.ReadDir("src/static/css") {
		if err != nil {
			t.Fatalf("ReadDir of empty directory failed: %v", err)
		}
	}
}

func TestFindFile(t *testing.T) {
	fs := filesystems.NewMemoryFS()
	fs.AddFile("src/Dockerfile", []byte("FROM python:3.11-slim"))

	// Case-insensitive match returns the on-disk casing
	path, err := filesystems.FindFile(fs, "src", "dockerfile")
	if err != nil {
		t.Fatalf("FindFile failed: %v", err)
	}
	if path != "src/Dockerfile" {
		t.Errorf("path = %q, want src/Dockerfile", path)
	}

	path, err = filesystems.FindFile(fs, "src", "gantry.toml")
	if err != nil {
		t.Fatalf("FindFile failed: %v", err)
	}
	if path != "" {
		t.Errorf("missing file should return empty path, got %q", path)
	}
}

func TestFindFirst(t *testing.T) {
	fs := filesystems.NewMemoryFS()
	fs.AddFile("src/compose.yaml", []byte("services: {}"))
	fs.AddFile("src/docker-compose.yml", []byte("services: {}"))

	path, err := filesystems.FindFirst(fs, "src", "docker-compose.yml", "compose.yaml")
	if err != nil {
		t.Fatalf("FindFirst failed: %v", err)
	}
	if path != "src/docker-compose.yml" {
		t.Errorf("path = %q, candidate order should win", path)
	}
}
