// Package utils provides utility functions
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// FileSystemUtils provides file system operations on top of an afero filesystem
type FileSystemUtils struct {
	fs afero.Fs
}

// NewFileSystemUtils creates a new filesystem utils instance. A nil fs uses the host filesystem.
func NewFileSystemUtils(fs afero.Fs) *FileSystemUtils {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileSystemUtils{fs: fs}
}

// Fs returns the underlying filesystem
func (f *FileSystemUtils) Fs() afero.Fs {
	return f.fs
}

// Exists checks if a path exists
func (f *FileSystemUtils) Exists(path string) bool {
	_, err := f.fs.Stat(path)
	return err == nil
}

// IsDirectory checks if a path is a directory
func (f *FileSystemUtils) IsDirectory(path string) bool {
	info, err := f.fs.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// IsFile checks if a path is a regular file
func (f *FileSystemUtils) IsFile(path string) bool {
	info, err := f.fs.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// CreateDirectory creates a directory with all parents
func (f *FileSystemUtils) CreateDirectory(path string) error {
	return f.fs.MkdirAll(path, 0755)
}

// RemoveAll removes a path and all its contents
func (f *FileSystemUtils) RemoveAll(path string) error {
	return f.fs.RemoveAll(path)
}

// ReadFile reads the entire file
func (f *FileSystemUtils) ReadFile(path string) ([]byte, error) {
	return afero.ReadFile(f.fs, path)
}

// WriteFile writes data to a file
func (f *FileSystemUtils) WriteFile(path string, data []byte) error {
	// Create directory if needed
	if err := f.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	// Write atomically using temp file
	tempFile := path + ".tmp"
	if err := afero.WriteFile(f.fs, tempFile, data, 0644); err != nil {
		return err
	}

	return f.fs.Rename(tempFile, path)
}

// ListFiles returns the regular files directly inside dir whose names end
// with suffix, sorted by name
func (f *FileSystemUtils) ListFiles(dir, suffix string) ([]string, error) {
	entries, err := afero.ReadDir(f.fs, dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.Mode().IsRegular() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// FindUp looks for name in dir and each of its ancestors and returns the
// first absolute path found
func (f *FileSystemUtils) FindUp(name, dir string) (string, bool) {
	current := filepath.Clean(dir)
	for {
		candidate := filepath.Join(current, name)
		if f.Exists(candidate) {
			return candidate, true
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

// ResolvePath returns p unchanged when absolute, otherwise joined onto base
func ResolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

// IsWithin reports whether path equals root or lies below it
func IsWithin(root, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator)))
}

// FormatBytes formats bytes into human-readable string
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
