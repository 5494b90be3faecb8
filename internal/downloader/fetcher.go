package downloader

import (
	"context"
	"fmt"
	"net/http"

	errs "bup/pkg/errors"
	"bup/pkg/retry"
	"bup/pkg/transport"
)

// HTTPFetcher downloads assets through a transport with retries.
type HTTPFetcher struct {
	doer      transport.Doer
	userAgent string
	retry     *retry.Config
}

// NewHTTPFetcher wraps doer. A nil retry config means a single attempt.
func NewHTTPFetcher(doer transport.Doer, userAgent string, retryCfg *retry.Config) *HTTPFetcher {
	if retryCfg == nil {
		retryCfg = &retry.Config{MaxAttempts: 1}
	}
	return &HTTPFetcher{doer: doer, userAgent: userAgent, retry: retryCfg}
}

// Fetch GETs url. Non-2xx responses fail with an HTTP status error, which
// is retried only for 429 and 5xx.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty asset url")
	}

	header := http.Header{}
	header.Set("User-Agent", f.userAgent)

	return retry.DoWithResult(ctx, func(ctx context.Context) ([]byte, error) {
		resp, err := f.doer.Do(ctx, transport.NewGet(url, header))
		if err != nil {
			return nil, err
		}
		if !resp.OK() {
			return nil, errs.NewHTTPStatus(resp.StatusCode, "asset request failed")
		}
		return resp.Body, nil
	}, f.retry)
}
