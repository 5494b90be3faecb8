package snapshot

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	errs "bup/pkg/errors"
	"bup/pkg/logger"
	"bup/pkg/models"
)

// indexFile is the snapshot file name inside each creator directory.
const indexFile = "index.json"

// FileStore keeps snapshots at <root>/<uid>/index.json.
type FileStore struct {
	root string
	log  logger.Logger
}

// NewFileStore creates a store rooted at the user dir of the site.
func NewFileStore(root string, log logger.Logger) *FileStore {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &FileStore{root: root, log: log}
}

func (s *FileStore) path(uid string) string {
	return filepath.Join(s.root, uid, indexFile)
}

// Load reads a snapshot. A missing file is not an error.
func (s *FileStore) Load(ctx context.Context, uid string) (*models.Metadata, error) {
	file, err := os.Open(s.path(uid))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.NewStorage("failed to open snapshot", err)
	}
	defer file.Close()

	var md models.Metadata
	if err := json.NewDecoder(file).Decode(&md); err != nil {
		return nil, errs.NewStorage("failed to decode snapshot "+s.path(uid), err)
	}
	return &md, nil
}

// Save writes the snapshot atomically through a temp file.
func (s *FileStore) Save(ctx context.Context, md *models.Metadata) error {
	dir := filepath.Join(s.root, md.UID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errs.NewStorage("failed to create snapshot directory", err)
	}

	target := s.path(md.UID)
	tempPath := target + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return errs.NewStorage("failed to create temporary snapshot file", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(md); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errs.NewStorage("failed to encode snapshot", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errs.NewStorage("failed to sync snapshot file", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return errs.NewStorage("failed to close snapshot file", err)
	}

	if err := os.Rename(tempPath, target); err != nil {
		os.Remove(tempPath)
		return errs.NewStorage("failed to replace snapshot file", err)
	}

	s.log.DebugWithFields("snapshot saved", map[string]interface{}{
		"uid":  md.UID,
		"path": target,
	})
	return nil
}

// Delete removes the snapshot file. The creator directory is left alone.
func (s *FileStore) Delete(ctx context.Context, uid string) error {
	if err := os.Remove(s.path(uid)); err != nil && !os.IsNotExist(err) {
		return errs.NewStorage("failed to delete snapshot", err)
	}
	return nil
}

// List returns every uid directory holding an index.json, sorted.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, errs.NewStorage("failed to read snapshot root", err)
	}

	uids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(s.path(entry.Name())); err == nil {
			uids = append(uids, entry.Name())
		}
	}
	sort.Strings(uids)
	return uids, nil
}
