package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	errs "bup/pkg/errors"
)

// StdClient sends requests through net/http.
type StdClient struct {
	client *http.Client
}

// NewStdClient builds a net/http transport with a per-request timeout.
func NewStdClient(timeout time.Duration, proxy string) (*StdClient, error) {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if proxy != "" {
		u, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		tr.Proxy = http.ProxyURL(u)
	}
	return &StdClient{
		client: &http.Client{
			Timeout:   timeout,
			Transport: tr,
		},
	}, nil
}

// NewStdClientWith wraps an existing *http.Client, e.g. an httptest server's.
func NewStdClientWith(client *http.Client) *StdClient {
	return &StdClient{client: client}
}

func (c *StdClient) Do(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, requestError(req, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errs.NewNetwork("failed to read response body", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// requestError wraps a failed round trip as a network error. The
// *url.Error layer is dropped since its text repeats the signed URL.
func requestError(req *Request, err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}
	return errs.NewNetwork(fmt.Sprintf("%s %s failed", req.Method, redact(req.URL)), err)
}

// redact drops the query string, which carries the signature.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	return u.String()
}
