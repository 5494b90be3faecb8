// Package retry retries transient failures with backoff.
//
// Only asset downloads go through here. Signed API calls are issued once:
// repeating a rejected request tends to escalate risk control rather than
// clear it.
//
//	data, err := retry.DoWithResult(ctx, func(ctx context.Context) ([]byte, error) {
//		return fetch(ctx, url)
//	}, retry.DefaultConfig(log))
package retry
