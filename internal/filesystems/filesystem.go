package filesystems

import (
	"io/fs"
	"iter"
	"strings"
	"time"
)

// FileSystem abstracts the read-only filesystem operations gantry needs so
// config ingestion and image rendering can run against a local source tree
// or an in-memory fixture.
type FileSystem interface {
	// ReadFile reads the named file and returns its contents
	ReadFile(name string) ([]byte, error)

	// ReadDir reads the named directory and returns an iterator over directory entries
	ReadDir(name string) iter.Seq2[DirEntry, error]

	// Join joins path elements into a single path
	Join(elem ...string) string

	// Base returns the last element of path
	Base(path string) string

	// Dir returns all but the last element of path
	Dir(path string) string

	// Rel returns a relative path from basepath to targpath
	Rel(basepath, targpath string) (string, error)
}

// DirEntry provides information about a directory entry
type DirEntry interface {
	Name() string
	IsDir() bool
	Type() fs.FileMode
	Info() (FileInfo, error)
}

// FileInfo provides information about a file
type FileInfo interface {
	Name() string
	Size() int64
	Mode() fs.FileMode
	ModTime() time.Time
	IsDir() bool
	Sys() interface{}
}

// FindFile looks for a file with the given name (case-insensitive) directly
// inside dir. Returns the actual path with correct case if found, empty
// string if not found.
func FindFile(filesystem FileSystem, dir, filename string) (string, error) {
	for entry, err := range filesystem.ReadDir(dir) {
		if err != nil {
			return "", err
		}
		if !entry.IsDir() && strings.EqualFold(entry.Name(), filename) {
			return filesystem.Join(dir, entry.Name()), nil
		}
	}

	return "", nil
}

// FindFirst returns the first of the candidate filenames present directly
// inside dir, in candidate order.
func FindFirst(filesystem FileSystem, dir string, candidates ...string) (string, error) {
	for _, name := range candidates {
		path, err := FindFile(filesystem, dir, name)
		if err != nil {
			return "", err
		}
		if path != "" {
			return path, nil
		}
	}

	return "", nil
}
