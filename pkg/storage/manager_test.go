package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager(t *testing.T) {
	tempDir := filepath.Join(t.TempDir(), "docs")

	manager, err := NewManager(tempDir)
	require.NoError(t, err)
	assert.DirExists(t, tempDir)
	assert.Equal(t, 0, manager.WrittenCount())
	assert.False(t, manager.Exists("users/1/index.html"))

	require.NoError(t, manager.WriteFile("users/1/index.html", []byte("<html>")))
	content, err := os.ReadFile(filepath.Join(tempDir, "users", "1", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html>", string(content))
	assert.True(t, manager.Exists("users/1/index.html"))
	assert.NoFileExists(t, filepath.Join(tempDir, "users", "1", "index.html.tmp"))

	require.NoError(t, manager.Save("users/1/avatar.jpg", bytes.NewReader([]byte("jpg"))))
	assert.Equal(t, 2, manager.WrittenCount())

	require.NoError(t, manager.MkdirAll("users/2"))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "users", "stray.txt"), nil, 0644))

	dirs, err := manager.ListDirs("users")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, dirs)

	require.NoError(t, manager.RemoveAll("users/2"))
	dirs, err = manager.ListDirs("users")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, dirs)

	assert.Error(t, manager.RemoveAll(""))
	assert.Equal(t, tempDir, manager.GetDocDir())
}

func TestManagerListMissing(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	require.NoError(t, err)

	dirs, err := manager.ListDirs("nope")
	require.NoError(t, err)
	assert.Empty(t, dirs)
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) { return 0, errors.New("boom") }

func TestManagerSaveKeepsOldFileOnFailure(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	require.NoError(t, err)

	require.NoError(t, manager.WriteFile("a.txt", []byte("old")))
	assert.Error(t, manager.Save("a.txt", failingReader{}))

	content, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(content))
	assert.NoFileExists(t, filepath.Join(dir, "a.txt.tmp"))
}
