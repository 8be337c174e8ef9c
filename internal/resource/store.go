// Package resource serves named static resources from a directory.
package resource

import (
	"fmt"
	"io/fs"
	"os"
)

// Store is the read side of static content.
type Store interface {
	Exists(name string) bool
	Read(name string) ([]byte, error)
}

// DirStore reads resources from a directory tree. Names are slash-separated
// and relative; names escaping the root ("..", absolute paths) never exist.
type DirStore struct {
	fsys fs.FS
}

// NewDirStore creates a DirStore rooted at dir.
func NewDirStore(dir string) (*DirStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("resource root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("resource root %s is not a directory", dir)
	}
	return &DirStore{fsys: os.DirFS(dir)}, nil
}

// NewFSStore wraps an arbitrary fs.FS.
func NewFSStore(fsys fs.FS) *DirStore {
	return &DirStore{fsys: fsys}
}

// Exists reports whether name is a regular file under the root.
func (s *DirStore) Exists(name string) bool {
	if !fs.ValidPath(name) {
		return false
	}
	info, err := fs.Stat(s.fsys, name)
	return err == nil && info.Mode().IsRegular()
}

// Read returns the full content of name.
func (s *DirStore) Read(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrInvalid}
	}
	return fs.ReadFile(s.fsys, name)
}
