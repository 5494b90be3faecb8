package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"bup/internal/downloader"
	"bup/pkg/auth"
	"bup/pkg/bilibili"
	"bup/pkg/config"
	"bup/pkg/logger"
	"bup/pkg/ratelimit"
	"bup/pkg/retry"
	"bup/pkg/site"
	"bup/pkg/snapshot"
	"bup/pkg/storage"
	"bup/pkg/transport"
	"bup/pkg/ui"
	"bup/pkg/updater"
)

// appOptions selects what newApp wires.
type appOptions struct {
	dir     string
	account string
	flags   map[string]interface{}
	// logOut replaces the console log writer when set.
	logOut io.Writer
	// withSite also wires the asset fetcher and site builder.
	withSite bool
}

// app holds the components shared by build, check and clean.
type app struct {
	cfg       *config.Config
	log       logger.Logger
	client    *bilibili.Client
	docs      *storage.Manager
	snapshots snapshot.Store
	builder   *site.Builder
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load(opts.dir, configFile, opts.flags)
	if err != nil {
		return nil, err
	}

	logOpts := []logger.Option{logger.WithVersion(version)}
	if opts.logOut != nil {
		logOpts = append(logOpts, logger.WithOutput(opts.logOut))
	}
	log, err := logger.New(&cfg.Logging, logOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := applyAccount(cfg, opts.account, log); err != nil {
		return nil, err
	}

	doer, err := transport.New(transport.OptionsFromConfig(&cfg.Platform))
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}
	client := bilibili.NewClient(doer, bilibili.Options{
		UserAgent:   cfg.Platform.UserAgent,
		Cookie:      cfg.Platform.Cookie,
		MaxDelay:    cfg.Platform.MaxDelay,
		PrimeCookie: cfg.Platform.PrimeCookie,
		FetchTicket: cfg.Platform.FetchTicket,
		StripValues: cfg.Platform.StripValues,
		Limiter:     ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute),
	}, log.WithField("component", "bilibili"))

	docs, err := storage.NewManager(cfg.DocRoot())
	if err != nil {
		return nil, fmt.Errorf("failed to open doc dir: %w", err)
	}
	snapshots, err := snapshot.Open(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}

	a := &app{
		cfg:       cfg,
		log:       log,
		client:    client,
		docs:      docs,
		snapshots: snapshots,
	}
	if !opts.withSite {
		return a, nil
	}

	assetDoer, err := transport.New(transport.Options{
		Kind:    cfg.Platform.Transport,
		Timeout: cfg.Download.DownloadTimeout,
		Proxy:   cfg.Platform.Proxy,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create asset transport: %w", err)
	}
	retryCfg := retry.DefaultConfig(log)
	retryCfg.MaxAttempts = cfg.Download.RetryAttempts
	fetcher := downloader.NewHTTPFetcher(assetDoer, cfg.Platform.UserAgent, retryCfg)

	var assetLimiter ratelimit.Limiter
	if n := cfg.Download.AssetsPerSecond; n > 0 {
		assetLimiter = ratelimit.NewTokenBucket(n, time.Second)
	}

	a.builder = site.NewBuilder(docs, snapshots, fetcher, site.Options{
		BaseURL: cfg.Site.BaseURL,
		RootDir: cfg.Site.RootDir,
		Version: version,
		Workers: cfg.Download.ConcurrentDownloads,
		Limiter: assetLimiter,
	}, log.WithField("component", "site"))

	logger.LogComponentStart(log, "bup", map[string]interface{}{
		"doc_root":  cfg.DocRoot(),
		"creators":  len(cfg.UIDs),
		"transport": cfg.Platform.Transport,
		"snapshots": cfg.Snapshot.Backend,
	})
	return a, nil
}

// updater wires an Updater reporting to r. The builder is nil unless the
// app was created with withSite.
func (a *app) updater(r ui.Reporter) *updater.Updater {
	var builder updater.SiteBuilder
	if a.builder != nil {
		builder = a.builder
	}
	return updater.New(a.client, a.docs, a.snapshots, builder, a.cfg.Site.UserDir, r, a.log)
}

// Close releases the snapshot store connection, if it holds one.
func (a *app) Close() error {
	if c, ok := a.snapshots.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// applyAccount fills the cookie and user agent from a stored account. A
// named account must exist. Without a name the default account is used
// when the config carries no cookie, and its absence is not an error.
func applyAccount(cfg *config.Config, name string, log logger.Logger) error {
	if name == "" && cfg.Platform.Cookie != "" {
		return nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		if name != "" {
			return fmt.Errorf("failed to initialize credential manager: %w", err)
		}
		log.WithError(err).Debug("credential manager unavailable, requesting anonymously")
		return nil
	}

	var account *auth.Account
	if name != "" {
		account, err = manager.Retrieve(name)
	} else {
		account, err = manager.RetrieveDefault()
	}
	if err != nil {
		if name != "" {
			return err
		}
		if !errors.Is(err, auth.ErrCredentialsNotFound) {
			log.WithError(err).Warn("failed to read stored account")
		}
		log.Debug("no stored account, requesting anonymously")
		return nil
	}

	cfg.Platform.Cookie = account.Cookie
	if account.UserAgent != "" {
		cfg.Platform.UserAgent = account.UserAgent
	}
	log.WithField("account", account.Name).Info("using stored account")
	return nil
}

func projectDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}
