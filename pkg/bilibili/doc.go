// Package bilibili is a small client for the two read endpoints of
// Bilibili's web API that BUp needs: creator profile and recent uploads.
//
// Both endpoints sit behind WBI signing. Every request carries a wts
// timestamp and a w_rid digest computed from the sorted query plus a
// mixing key that is derived from two key fragments published by the nav
// endpoint. The client also decorates requests with the dm_* interaction
// fields and browser headers the web player sends.
//
// Basic usage:
//
//	client := bilibili.NewClient(doer, bilibili.Options{
//		UserAgent: cfg.Platform.UserAgent,
//		MaxDelay:  cfg.Platform.MaxDelay,
//	}, log)
//	client.Init(ctx)
//
//	profile, err := client.GetProfile(ctx, "521444")
//	uploads, err := client.GetUploads(ctx, "521444")
//
// A non-zero envelope code is returned as a platform error carrying the
// upstream code and message, e.g. -352 when risk control rejects the call.
package bilibili
