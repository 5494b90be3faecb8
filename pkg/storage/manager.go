package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Manager owns the generated site directory. Every path it takes is slash
// separated and relative to the doc dir, the same form used in snapshots.
type Manager struct {
	docDir string
	mu     sync.Mutex
	// written counts files replaced through this manager.
	written int
}

// NewManager creates docDir if needed.
func NewManager(docDir string) (*Manager, error) {
	if err := os.MkdirAll(docDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create doc directory: %w", err)
	}
	return &Manager{docDir: docDir}, nil
}

// Abs resolves a doc-relative path to a filesystem path.
func (m *Manager) Abs(rel string) string {
	return filepath.Join(m.docDir, filepath.FromSlash(rel))
}

// MkdirAll creates a doc-relative directory.
func (m *Manager) MkdirAll(rel string) error {
	if err := os.MkdirAll(m.Abs(rel), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", rel, err)
	}
	return nil
}

// Exists reports whether a doc-relative path exists.
func (m *Manager) Exists(rel string) bool {
	_, err := os.Stat(m.Abs(rel))
	return err == nil
}

// WriteFile atomically replaces a doc-relative file with data.
func (m *Manager) WriteFile(rel string, data []byte) error {
	return m.Save(rel, bytes.NewReader(data))
}

// Save atomically replaces a doc-relative file with the contents of r.
// Parent directories are created.
func (m *Manager) Save(rel string, r io.Reader) error {
	filename := m.Abs(rel)
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	tempFile := filename + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.written++
	m.mu.Unlock()
	return nil
}

// ListDirs returns the names of the subdirectories of a doc-relative
// directory, sorted. A missing directory yields an empty list.
func (m *Manager) ListDirs(rel string) ([]string, error) {
	entries, err := os.ReadDir(m.Abs(rel))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	dirs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// RemoveAll deletes a doc-relative directory tree. It refuses to remove the
// doc dir itself.
func (m *Manager) RemoveAll(rel string) error {
	target := m.Abs(rel)
	if filepath.Clean(target) == filepath.Clean(m.docDir) {
		return fmt.Errorf("refusing to remove doc directory")
	}
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("failed to remove %s: %w", rel, err)
	}
	return nil
}

// GetDocDir returns the doc directory path
func (m *Manager) GetDocDir() string {
	return m.docDir
}

// WrittenCount returns how many files were written through this manager.
func (m *Manager) WrittenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written
}
