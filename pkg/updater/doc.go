// Package updater decides which creators changed since the last build and
// drives the site builder for them.
//
// A run has three steps:
//
//   - Clean removes the directories and snapshots of creators that are no
//     longer configured.
//   - Check fetches every configured creator in order, one at a time, and
//     compares the result with the stored snapshot. A creator counts as
//     updated when it has no snapshot, when its newest upload changed or
//     when it was renamed. Creators that fail to fetch are skipped.
//   - The updated creators are handed to the site builder.
//
// Usage:
//
//	u := updater.New(client, docs, snapshots, builder, cfg.Site.UserDir, reporter, log)
//	report, err := u.Run(ctx, cfg.UIDs)
//	if errors.Is(err, site.ErrNoUpdates) {
//	    os.Exit(1)
//	}
package updater
