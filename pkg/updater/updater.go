package updater

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"bup/pkg/logger"
	"bup/pkg/models"
	"bup/pkg/snapshot"
	"bup/pkg/storage"
	"bup/pkg/ui"
)

// ErrNoUploads marks a creator that has not published anything yet.
var ErrNoUploads = errors.New("creator has no uploads")

// Updater runs clean, check and build for a set of creators
type Updater struct {
	platform  Platform
	docs      *storage.Manager
	snapshots snapshot.Store
	builder   SiteBuilder
	userDir   string
	reporter  ui.Reporter
	logger    logger.Logger
}

// New creates an Updater. userDir is relative to the doc dir managed by
// docs. builder may be nil when only Check is used.
func New(platform Platform, docs *storage.Manager, snapshots snapshot.Store, builder SiteBuilder, userDir string, reporter ui.Reporter, log logger.Logger) *Updater {
	if reporter == nil {
		reporter = ui.NopReporter{}
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Updater{
		platform:  platform,
		docs:      docs,
		snapshots: snapshots,
		builder:   builder,
		userDir:   path.Clean(userDir),
		reporter:  reporter,
		logger:    log,
	}
}

// Clean removes creator directories and snapshots whose uid is not in
// uids. It returns the removed uids, sorted.
func (u *Updater) Clean(ctx context.Context, uids []string) ([]string, error) {
	keep := make(map[string]struct{}, len(uids))
	for _, uid := range uids {
		keep[uid] = struct{}{}
	}

	dirs, err := u.docs.ListDirs(u.userDir)
	if err != nil {
		return nil, err
	}
	stored, err := u.snapshots.List(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var removed []string
	for _, d := range append(dirs, stored...) {
		if _, ok := keep[d]; ok {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		removed = append(removed, d)
	}
	if len(removed) == 0 {
		return nil, nil
	}
	sort.Strings(removed)

	u.logger.Info("Removing unused dir for " + strings.Join(removed, ", ") + ".")
	u.reporter.LogInfo("Removing unused dir for %s", strings.Join(removed, ", "))

	var errs []error
	for _, uid := range removed {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := u.docs.RemoveAll(path.Join(u.userDir, uid)); err != nil {
			errs = append(errs, err)
		}
		if err := u.snapshots.Delete(ctx, uid); err != nil {
			errs = append(errs, err)
		}
	}
	return removed, errors.Join(errs...)
}

// Check fetches each creator in order and returns the metadata of those
// that changed. A creator whose profile or uploads cannot be fetched is
// logged and skipped. Check only fails when ctx is done.
func (u *Updater) Check(ctx context.Context, uids []string) ([]*models.Metadata, error) {
	if err := u.platform.Init(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		u.logger.WithError(err).Warn("platform client is degraded, creators will likely be skipped")
		u.reporter.LogWarning("Platform init failed: %v", err)
	}

	u.reporter.StartRun(len(uids))

	var updated []*models.Metadata
	for _, uid := range uids {
		if err := ctx.Err(); err != nil {
			return updated, err
		}

		u.reporter.StartCreator(uid)
		md, changed, err := u.checkOne(ctx, uid)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return updated, ctxErr
			}
			logger.LogCreatorSkipped(u.logger, uid, err)
			u.reporter.FailCreator(uid, err)
			continue
		}

		u.reporter.CompleteCreator(uid, md.Name, changed)
		if changed {
			updated = append(updated, md)
		}
	}

	u.logger.InfoWithFields("check finished", map[string]interface{}{
		"checked": len(uids),
		"updated": len(updated),
	})
	return updated, nil
}

func (u *Updater) checkOne(ctx context.Context, uid string) (*models.Metadata, bool, error) {
	profile, err := u.platform.GetProfile(ctx, uid)
	if err != nil {
		return nil, false, fmt.Errorf("profile: %w", err)
	}
	uploads, err := u.platform.GetUploads(ctx, uid)
	if err != nil {
		return nil, false, fmt.Errorf("uploads: %w", err)
	}
	if len(uploads) == 0 {
		return nil, false, ErrNoUploads
	}

	if strconv.FormatInt(profile.Mid, 10) != uid {
		// Keep the page under the configured uid so Clean leaves it alone.
		if mid, perr := strconv.ParseInt(uid, 10, 64); perr == nil {
			u.logger.WithField("uid", uid).WarnWithFields("profile mid differs from the requested uid", map[string]interface{}{
				"mid": profile.Mid,
			})
			fixed := *profile
			fixed.Mid = mid
			profile = &fixed
		}
	}
	md := models.MakeMetadata(profile, uploads, u.userDir)

	prev, err := u.snapshots.Load(ctx, uid)
	if err != nil {
		// An unreadable snapshot is rebuilt from scratch.
		u.logger.WithError(err).WithField("uid", uid).Warn("failed to load snapshot")
		prev = nil
	}
	return md, snapshot.Changed(prev, md), nil
}

// Run cleans, checks and builds. It returns the builder's report, or
// site.ErrNoUpdates when no creator changed.
func (u *Updater) Run(ctx context.Context, uids []string) (*RunResult, error) {
	if u.builder == nil {
		return nil, errors.New("updater has no site builder")
	}
	result := &RunResult{}

	removed, err := u.Clean(ctx, uids)
	result.Removed = removed
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		u.logger.WithError(err).Error("failed to clean unused creators")
	}

	updated, err := u.Check(ctx, uids)
	result.Updated = updated
	if err != nil {
		return result, err
	}

	report, err := u.builder.Build(ctx, updated)
	if report != nil {
		result.Built = report.Built
		result.Failed = report.Failed
		result.AssetFailures = report.AssetFailures
	}
	u.reporter.FinishRun(result.Built)
	return result, err
}

// RunResult summarizes a Run.
type RunResult struct {
	Removed       []string
	Updated       []*models.Metadata
	Built         []string
	Failed        map[string]error
	AssetFailures int
}

// UpdatedNames returns "uid(name)" for every updated creator.
func (r *RunResult) UpdatedNames() []string {
	names := make([]string, 0, len(r.Updated))
	for _, md := range r.Updated {
		names = append(names, fmt.Sprintf("%s(%s)", md.UID, md.Name))
	}
	return names
}
