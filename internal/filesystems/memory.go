package filesystems

import (
	"fmt"
	"io/fs"
	"iter"
	"path"
	"sort"
	"strings"
	"time"
)

// MemoryFS implements FileSystem for in-memory fixtures in tests
type MemoryFS struct {
	files map[string][]byte
	dirs  map[string]bool
}

// NewMemoryFS creates a new MemoryFS instance
func NewMemoryFS() *MemoryFS {
	return &MemoryFS{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

// registerParents marks every ancestor of name as a directory so ReadDir
// can walk into paths that were only ever added as leaves.
func (mfs *MemoryFS) registerParents(name string) {
	for dir := path.Dir(name); dir != "." && dir != "/"; dir = path.Dir(dir) {
		mfs.dirs[dir] = true
	}
}

// AddFile adds a file to the memory filesystem
func (mfs *MemoryFS) AddFile(name string, content []byte) {
	mfs.files[path.Clean(name)] = content
	mfs.registerParents(name)
}

// AddDir adds a directory to the memory filesystem
func (mfs *MemoryFS) AddDir(name string) {
	mfs.dirs[path.Clean(name)] = true
	mfs.registerParents(name)
}

func (mfs *MemoryFS) ReadFile(name string) ([]byte, error) {
	content, exists := mfs.files[path.Clean(name)]
	if !exists {
		return nil, fmt.Errorf("file not found: %s", name)
	}
	return content, nil
}

// childOf reports the immediate child of dir that p passes through, or
// "" when p lives outside dir.
func childOf(dir, p string) string {
	if dir == "." {
		first, _, _ := strings.Cut(p, "/")
		return first
	}
	rest, ok := strings.CutPrefix(p, dir+"/")
	if !ok || rest == "" {
		return ""
	}
	first, _, _ := strings.Cut(rest, "/")
	return first
}

func (mfs *MemoryFS) ReadDir(name string) iter.Seq2[DirEntry, error] {
	return func(yield func(DirEntry, error) bool) {
		dir := path.Clean(name)
		if dir != "." && !mfs.dirs[dir] {
			yield(nil, fmt.Errorf("directory not found: %s", name))
			return
		}

		children := make(map[string]bool)
		for p := range mfs.files {
			if child := childOf(dir, p); child != "" {
				children[child] = true
			}
		}
		for p := range mfs.dirs {
			if child := childOf(dir, p); child != "" {
				children[child] = true
			}
		}

		names := make([]string, 0, len(children))
		for child := range children {
			names = append(names, child)
		}
		sort.Strings(names)

		for _, child := range names {
			full := child
			if dir != "." {
				full = path.Join(dir, child)
			}
			_, isFile := mfs.files[full]
			entry := &memoryDirEntry{
				name:     child,
				isDir:    !isFile,
				mfs:      mfs,
				fullPath: full,
			}
			if !yield(entry, nil) {
				return
			}
		}
	}
}

func (mfs *MemoryFS) Join(elem ...string) string {
	return path.Join(elem...)
}

func (mfs *MemoryFS) Base(p string) string {
	return path.Base(p)
}

func (mfs *MemoryFS) Dir(p string) string {
	return path.Dir(p)
}

func (mfs *MemoryFS) Rel(basepath, targpath string) (string, error) {
	base := path.Clean(basepath)
	targ := path.Clean(targpath)

	if base == targ {
		return ".", nil
	}
	if base == "." {
		return targ, nil
	}
	if rest, ok := strings.CutPrefix(targ, base+"/"); ok {
		return rest, nil
	}

	return "", fmt.Errorf("cannot make %s relative to %s", targpath, basepath)
}

// memoryDirEntry implements DirEntry for MemoryFS
type memoryDirEntry struct {
	name     string
	isDir    bool
	mfs      *MemoryFS
	fullPath string
}

func (e *memoryDirEntry) Name() string { return e.name }
func (e *memoryDirEntry) IsDir() bool  { return e.isDir }

func (e *memoryDirEntry) Type() fs.FileMode {
	if e.isDir {
		return fs.ModeDir
	}
	return 0
}

func (e *memoryDirEntry) Info() (FileInfo, error) {
	if e.isDir {
		return &memoryFileInfo{
			name:    e.name,
			mode:    fs.ModeDir | 0755,
			modTime: time.Now(),
			isDir:   true,
		}, nil
	}

	content, exists := e.mfs.files[e.fullPath]
	if !exists {
		return nil, fmt.Errorf("file not found: %s", e.fullPath)
	}

	return &memoryFileInfo{
		name:    e.name,
		size:    int64(len(content)),
		mode:    0644,
		modTime: time.Now(),
	}, nil
}

// memoryFileInfo implements FileInfo for MemoryFS
type memoryFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

func (i *memoryFileInfo) Name() string       { return i.name }
func (i *memoryFileInfo) Size() int64        { return i.size }
func (i *memoryFileInfo) Mode() fs.FileMode  { return i.mode }
func (i *memoryFileInfo) ModTime() time.Time { return i.modTime }
func (i *memoryFileInfo) IsDir() bool        { return i.isDir }
func (i *memoryFileInfo) Sys() interface{}   { return nil }
