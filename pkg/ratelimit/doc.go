// Package ratelimit paces outbound requests.
//
// The platform client waits on a SlidingWindow (requests per minute) before
// every signed call so a long creator list does not trip risk control. The
// asset downloader shares a TokenBucket across its workers.
//
// All limiters implement Limiter; Wait honors context cancellation.
package ratelimit
