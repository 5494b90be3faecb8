package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	errs "bup/pkg/errors"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

// BrowserClient sends requests with a Chrome TLS and HTTP/2 fingerprint.
// The platform's risk control answers -352 far more often to Go's default
// ClientHello.
type BrowserClient struct {
	client tls_client.HttpClient
}

// NewBrowserClient creates a client that impersonates Chrome 133.
func NewBrowserClient(timeout time.Duration, proxy string) (*BrowserClient, error) {
	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutMilliseconds(int(timeout / time.Millisecond)),
		tls_client.WithClientProfile(profiles.Chrome_133),
		tls_client.WithRandomTLSExtensionOrder(),
		tls_client.WithNotFollowRedirects(),
	}
	// No cookie jar: the Cookie header of each request is sent as given and
	// Set-Cookie responses are never replayed.
	if proxy != "" {
		options = append(options, tls_client.WithProxyUrl(proxy))
	}

	client, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, fmt.Errorf("tls-client init: %w", err)
	}
	return &BrowserClient{client: client}, nil
}

func (c *BrowserClient) Do(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	fReq, err := fhttp.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			fReq.Header.Add(k, v)
		}
	}
	if len(req.HeaderOrder) > 0 {
		fReq.Header[fhttp.HeaderOrderKey] = req.HeaderOrder
	}

	resp, err := c.client.Do(fReq)
	if err != nil {
		return nil, requestError(req, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errs.NewNetwork("failed to read response body", err)
	}

	header := make(http.Header, len(resp.Header))
	for k, vs := range resp.Header {
		header[k] = vs
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     header,
		Body:       data,
	}, nil
}
