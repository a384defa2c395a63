// Package fileutil provides unified file system access for both real and in-memory file systems.
package fileutil

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// FileSystem reads script files from the real file system or an fs.FS.
// Names are always "/" separated.
type FileSystem interface {
	// ReadFile reads a file, ignoring the case of its name.
	ReadFile(name string) ([]byte, error)
	// ListFiles returns the names of the files in dir matching pattern, in directory
	// listing order (fs.ReadDir sorts entries by name).
	ListFiles(dir, pattern string) ([]string, error)
}

// RealFS reads from the real file system.
type RealFS struct {
	basePath string
}

// NewRealFS creates a FileSystem rooted at basePath. An empty basePath uses names as given.
func NewRealFS(basePath string) *RealFS {
	return &RealFS{basePath: basePath}
}

func (r *RealFS) ReadFile(name string) ([]byte, error) {
	p := r.resolvePath(name)
	if data, err := os.ReadFile(p); err == nil {
		return data, nil
	}
	actual, err := findCaseInsensitive(os.DirFS(filepath.Dir(p)), ".", filepath.Base(p))
	if err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(filepath.Dir(p), actual))
}

func (r *RealFS) ListFiles(dir, pattern string) ([]string, error) {
	return listFiles(os.DirFS(r.resolvePath(dir)), ".", pattern)
}

func (r *RealFS) resolvePath(name string) string {
	if name == "" {
		name = "."
	}
	p := filepath.FromSlash(name)
	if r.basePath != "" && !filepath.IsAbs(p) {
		return filepath.Join(r.basePath, p)
	}
	return p
}

// FSys wraps an fs.FS, e.g. embed.FS or fstest.MapFS.
type FSys struct {
	fsys fs.FS
}

// NewFSys creates a FileSystem backed by fsys.
func NewFSys(fsys fs.FS) *FSys {
	return &FSys{fsys: fsys}
}

func (f *FSys) ReadFile(name string) ([]byte, error) {
	p := cleanFSPath(name)
	if data, err := fs.ReadFile(f.fsys, p); err == nil {
		return data, nil
	}
	dir := path.Dir(p)
	actual, err := findCaseInsensitive(f.fsys, dir, path.Base(p))
	if err != nil {
		return nil, err
	}
	return fs.ReadFile(f.fsys, path.Join(dir, actual))
}

func (f *FSys) ListFiles(dir, pattern string) ([]string, error) {
	return listFiles(f.fsys, cleanFSPath(dir), pattern)
}

// cleanFSPath converts backslashes and strips a leading "/".
func cleanFSPath(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return "."
	}
	return path.Clean(name)
}

// findCaseInsensitive returns the actual name of filename in dir, ignoring case.
func findCaseInsensitive(fsys fs.FS, dir, filename string) (string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(entry.Name(), filename) {
			return entry.Name(), nil
		}
	}
	return "", fmt.Errorf("file not found: %s (searched in %s): %w", filename, dir, fs.ErrNotExist)
}

func listFiles(fsys fs.FS, dir, pattern string) ([]string, error) {
	g, err := glob.Compile(strings.ToLower(pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid file pattern %q: %w", pattern, err)
	}
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if g.Match(strings.ToLower(entry.Name())) {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
