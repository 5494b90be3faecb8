package site

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"bup/internal/downloader"
	"bup/pkg/logger"
	"bup/pkg/models"
	"bup/pkg/ratelimit"
	"bup/pkg/snapshot"
	"bup/pkg/storage"

	"golang.org/x/sync/errgroup"
)

// ErrNoUpdates is returned by Build when there is nothing to build.
var ErrNoUpdates = errors.New("got no update")

// Options configures a Builder.
type Options struct {
	BaseURL string
	RootDir string
	Version string
	// Workers bounds both concurrent creators and concurrent downloads.
	Workers int
	// Limiter paces asset downloads. Nil means unlimited.
	Limiter ratelimit.Limiter
	Now     func() time.Time
}

// Builder writes the gallery into a doc dir.
type Builder struct {
	docs      *storage.Manager
	snapshots snapshot.Store
	fetcher   downloader.Fetcher
	opts      Options
	log       logger.Logger
}

// Report summarizes one Build.
type Report struct {
	Built  []string
	Failed map[string]error
	// AssetFailures counts avatars and thumbnails that could not be mirrored.
	AssetFailures int
}

// NewBuilder creates a builder.
func NewBuilder(docs *storage.Manager, snapshots snapshot.Store, fetcher downloader.Fetcher, opts Options, log logger.Logger) *Builder {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Builder{docs: docs, snapshots: snapshots, fetcher: fetcher, opts: opts, log: log}
}

// Build mirrors assets, saves the snapshot and writes the page of every
// creator in mds, then writes the index page listing them. A failing
// creator is logged and recorded in the report without stopping the
// others. Build returns ErrNoUpdates for an empty list.
func (b *Builder) Build(ctx context.Context, mds []*models.Metadata) (*Report, error) {
	if len(mds) == 0 {
		b.log.Info("Got no update.")
		return nil, ErrNoUpdates
	}

	names := make([]string, 0, len(mds))
	for _, md := range mds {
		names = append(names, fmt.Sprintf("%s(%s)", md.UID, md.Name))
	}
	b.log.Info("Got updates from " + strings.Join(names, ", ") + ".")

	if err := b.EnsureAssets(); err != nil {
		b.log.WithError(err).Error("failed to write static assets")
	}

	report := &Report{Failed: make(map[string]error)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)
	for _, md := range mds {
		g.Go(func() error {
			assetFailures, err := b.buildCreator(gctx, md)
			mu.Lock()
			defer mu.Unlock()
			report.AssetFailures += assetFailures
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				b.log.WithError(err).WithField("uid", md.UID).Error("failed to build creator page")
				report.Failed[md.UID] = err
				return nil
			}
			report.Built = append(report.Built, md.UID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	built := make([]*models.Metadata, 0, len(report.Built))
	for _, md := range mds {
		if _, failed := report.Failed[md.UID]; !failed {
			built = append(built, md)
		}
	}

	page, err := RenderIndexPage(built, b.opts.BaseURL, b.opts.RootDir, b.opts.Version, b.opts.Now())
	if err == nil {
		b.log.Debug("Creating index.html...")
		err = b.docs.WriteFile("index.html", page)
	}
	if err != nil {
		b.log.WithError(err).Error("failed to write index page")
		return report, err
	}
	return report, nil
}

func (b *Builder) buildCreator(ctx context.Context, md *models.Metadata) (int, error) {
	if err := b.docs.MkdirAll(md.Path); err != nil {
		return 0, err
	}

	jobs := make([]downloader.AssetJob, 0, len(md.Videos)+1)
	jobs = append(jobs, downloader.AssetJob{UID: md.UID, URL: md.AvatarURL, Path: md.Avatar})
	for _, v := range md.Videos {
		jobs = append(jobs, downloader.AssetJob{UID: md.UID, URL: v.ThumbURL, Path: v.Thumb})
	}

	failures := 0
	results := downloader.DownloadAll(ctx, b.opts.Workers, b.fetcher, b.docs, b.opts.Limiter, b.log, jobs)
	for _, r := range results {
		if !r.Success {
			failures++
		}
	}
	if err := ctx.Err(); err != nil {
		return failures, err
	}

	if err := b.snapshots.Save(ctx, md); err != nil {
		return failures, err
	}

	page, err := RenderUserPage(md, b.opts.BaseURL, b.opts.RootDir, b.opts.Version, b.opts.Now())
	if err != nil {
		return failures, err
	}
	rel := md.Path + "/index.html"
	b.log.Debug("Creating " + rel + "...")
	return failures, b.docs.WriteFile(rel, page)
}

// EnsureAssets writes the embedded script and stylesheets that are not
// already present. Existing files are left alone so a site can restyle.
func (b *Builder) EnsureAssets() error {
	assets, err := Assets()
	if err != nil {
		return err
	}
	for rel, data := range assets {
		if b.docs.Exists(rel) {
			continue
		}
		if err := b.docs.WriteFile(rel, data); err != nil {
			return err
		}
	}
	return nil
}
