package snapshot

import (
	"context"
	"fmt"

	"bup/pkg/config"
	"bup/pkg/logger"
	"bup/pkg/models"
)

// Store loads and saves creator snapshots.
type Store interface {
	// Load returns nil, nil when no snapshot exists for uid.
	Load(ctx context.Context, uid string) (*models.Metadata, error)
	Save(ctx context.Context, md *models.Metadata) error
	Delete(ctx context.Context, uid string) error
	// List returns the uids that have a snapshot.
	List(ctx context.Context) ([]string, error)
}

// Changed reports whether next differs from prev in a way worth a rebuild:
// there is no previous snapshot, the newest upload differs, or the creator
// was renamed.
func Changed(prev, next *models.Metadata) bool {
	if prev == nil {
		return true
	}
	if prev.Name != next.Name {
		return true
	}
	p, n := prev.Latest(), next.Latest()
	if p == nil || n == nil {
		return p != n
	}
	return p.BVID != n.BVID
}

// Open returns the store selected by cfg.Snapshot.Backend.
func Open(ctx context.Context, cfg *config.Config, log logger.Logger) (Store, error) {
	switch cfg.Snapshot.Backend {
	case "", config.SnapshotBackendFile:
		return NewFileStore(cfg.UserRoot(), log), nil
	case config.SnapshotBackendRedis:
		return NewRedisStore(ctx, cfg.Snapshot.RedisURL, cfg.Snapshot.RedisKey, log)
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Snapshot.Backend)
	}
}
