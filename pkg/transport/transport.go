// Package transport issues HTTPS requests for the platform client and the
// asset downloader. Two implementations exist: a net/http client and a
// browser-fingerprinted client built on tls-client.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"bup/pkg/config"
)

// maxBodySize caps how much of a response body is read into memory.
const maxBodySize = 32 << 20

// Request is a fully materialized outbound request.
type Request struct {
	Method string
	URL    string
	Header http.Header
	// HeaderOrder lists lowercase header names in wire order. Only the
	// browser transport honors it.
	HeaderOrder []string
	Body        []byte
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Doer sends a request. Implementations return a network error for
// transport failures and never treat a non-2xx status as an error.
type Doer interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// DoerFunc adapts a function to Doer.
type DoerFunc func(ctx context.Context, req *Request) (*Response, error)

func (f DoerFunc) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// NewGet builds a GET request with the given headers.
func NewGet(url string, header http.Header) *Request {
	if header == nil {
		header = make(http.Header)
	}
	return &Request{Method: http.MethodGet, URL: url, Header: header}
}

// Options configures New.
type Options struct {
	Kind    string
	Timeout time.Duration
	Proxy   string
}

// OptionsFromConfig derives transport options from the platform section.
func OptionsFromConfig(cfg *config.PlatformConfig) Options {
	return Options{
		Kind:    cfg.Transport,
		Timeout: cfg.Timeout,
		Proxy:   cfg.Proxy,
	}
}

// New builds the transport selected by opts.Kind.
func New(opts Options) (Doer, error) {
	switch opts.Kind {
	case config.TransportBrowser, "":
		return NewBrowserClient(opts.Timeout, opts.Proxy)
	case config.TransportStandard:
		return NewStdClient(opts.Timeout, opts.Proxy)
	default:
		return nil, fmt.Errorf("unknown transport %q", opts.Kind)
	}
}
