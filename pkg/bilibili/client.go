package bilibili

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	errs "bup/pkg/errors"
	"bup/pkg/logger"
	"bup/pkg/ratelimit"
	"bup/pkg/transport"
)

// State is the lifecycle of a Client.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	UserAgent string
	// Cookie is sent as-is, plus whatever Init adds.
	Cookie string
	// MaxDelay bounds the random pause before each signed request.
	MaxDelay time.Duration
	// PrimeCookie fetches buvid3 and b_nut from the home page during Init.
	PrimeCookie bool
	// FetchTicket requests a bili_ticket during Init.
	FetchTicket bool
	// StripValues removes !'()* from values before signing.
	StripValues bool

	Endpoints Endpoints
	Limiter   ratelimit.Limiter
	Shim      *Shim
	Now       func() time.Time
}

// Client talks to the profile and upload endpoints.
type Client struct {
	doer      transport.Doer
	opts      Options
	endpoints Endpoints
	keys      *KeyCache
	signer    *Signer
	shim      *Shim
	limiter   ratelimit.Limiter
	log       logger.Logger

	initMu  sync.Mutex
	mu      sync.RWMutex
	state   State
	session Session
}

// NewClient creates a client. Call Init before the first request.
func NewClient(doer transport.Doer, opts Options, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Endpoints == (Endpoints{}) {
		opts.Endpoints = DefaultEndpoints()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Shim == nil {
		opts.Shim = NewShim()
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}

	return &Client{
		doer:      doer,
		opts:      opts,
		endpoints: opts.Endpoints,
		keys:      NewKeyCache(doer, opts.Endpoints.Nav, opts.UserAgent, log),
		signer:    &Signer{Now: opts.Now, StripValues: opts.StripValues},
		shim:      opts.Shim,
		limiter:   opts.Limiter,
		log:       log,
		state:     StateUninitialized,
		session:   Session{Cookie: opts.Cookie},
	}
}

// defaultUserAgent matches config.DefaultUserAgent.
const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/137.0.0.0 Safari/537.36"

func (c *Client) now() time.Time {
	return c.opts.Now()
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Session returns the cookie and ticket in use.
func (c *Client) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// KeyMaterial returns the cached key fragments.
func (c *Client) KeyMaterial() (KeyMaterial, bool) {
	return c.keys.Get()
}

// Init prepares the session and fetches key material. Cookie priming and
// the ticket are best effort and only logged on failure. A key refresh
// failure is logged and returned, but the client still becomes Ready and
// every signed call then fails with an upstream unavailable error. Calling
// Init on a Ready client does nothing.
func (c *Client) Init(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()

	if c.State() == StateReady {
		return nil
	}
	c.setState(StateInitializing)
	defer c.setState(StateReady)

	cookie := c.opts.Cookie

	if c.opts.PrimeCookie {
		primed, err := c.primeCookie(ctx, cookie)
		if err != nil {
			c.log.WithError(err).Warn("cookie priming failed")
		} else {
			cookie = primed
		}
	}
	if _, ok := cookieValue(cookie, "buvid3"); !ok {
		cookie = fabricateDeviceCookies(cookie, c.now())
		c.log.Debug("using generated device cookies")
	}

	var ticket string
	if c.opts.FetchTicket {
		t, err := c.fetchTicket(ctx, cookie)
		if err != nil {
			c.log.WithError(err).Warn("ticket request failed")
		} else {
			ticket = t
			cookie = appendCookie(cookie, "bili_ticket", t)
		}
	}

	c.mu.Lock()
	c.session = Session{Cookie: cookie, Ticket: ticket}
	c.mu.Unlock()

	if _, err := c.keys.Refresh(ctx); err != nil {
		c.log.WithError(err).Error("failed to fetch wbi key material")
		return err
	}

	c.log.InfoWithFields("platform client ready", map[string]interface{}{
		"ticket": ticket != "",
	})
	return nil
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// GetProfile fetches a creator's account info.
func (c *Client) GetProfile(ctx context.Context, mid string) (*Profile, error) {
	params := url.Values{}
	params.Set("mid", mid)

	data, err := c.getSigned(ctx, c.endpoints.Profile, params, c.endpoints.spaceURL(mid), mid)
	if err != nil {
		return nil, err
	}

	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, errs.NewMalformedResponse("profile data has unexpected shape", err)
	}
	if profile.Mid == 0 && profile.Name == "" {
		return nil, errs.NewMalformedResponse("profile data is empty", nil)
	}
	profile.Raw = data
	return &profile, nil
}

// GetUploads fetches a creator's newest uploads, newest first as returned
// by the server.
func (c *Client) GetUploads(ctx context.Context, mid string) ([]Upload, error) {
	params := url.Values{}
	params.Set("mid", mid)
	params.Set("ps", strconv.Itoa(uploadsPageSize))
	params.Set("tid", "0")
	params.Set("pn", "1")
	params.Set("keyword", "")
	params.Set("order", "pubdate")
	params.Set("order_avoided", "true")

	data, err := c.getSigned(ctx, c.endpoints.Uploads, params, c.endpoints.spaceURL(mid)+"/video", mid)
	if err != nil {
		return nil, err
	}

	var payload uploadsData
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, errs.NewMalformedResponse("upload data has unexpected shape", err)
	}
	if payload.List == nil {
		return nil, errs.NewMalformedResponse("upload data has no list", nil)
	}
	if payload.List.VList == nil {
		return []Upload{}, nil
	}
	return payload.List.VList, nil
}

// getSigned runs one signed GET and returns the envelope's data.
func (c *Client) getSigned(ctx context.Context, endpoint string, params url.Values, referer, mid string) (json.RawMessage, error) {
	km, ok := c.keys.Get()
	if !ok {
		return nil, errs.NewUpstreamUnavailable("wbi key material is not available", nil)
	}

	if err := c.shim.RandomDelay(ctx, c.opts.MaxDelay); err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := c.signer.Sign(c.shim.Decorate(params), km)
	target := endpoint + "?" + query

	session := c.Session()
	header, order := BrowserHeaders(c.opts.UserAgent, session.Cookie, referer, c.endpoints.SpacePrefix)

	log := c.log.WithField("mid", mid)
	log.DebugWithFields("sending signed request", map[string]interface{}{
		"url": target,
	})

	start := time.Now()
	resp, err := c.doer.Do(ctx, &transport.Request{
		Method:      http.MethodGet,
		URL:         target,
		Header:      header,
		HeaderOrder: order,
	})
	if err != nil {
		log.WithError(err).Debug("HTTP request failed")
		return nil, err
	}
	logger.LogRequest(log, http.MethodGet, endpoint, resp.StatusCode, time.Since(start))

	if !resp.OK() {
		return nil, errs.NewHTTPStatus(resp.StatusCode, fmt.Sprintf("%s returned status %d", endpoint, resp.StatusCode))
	}

	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		log.DebugWithFields("failed to parse response", map[string]interface{}{
			"body_preview": preview(resp.Body),
		})
		return nil, errs.NewMalformedResponse("response is not a JSON envelope", err)
	}
	if env.Code != 0 {
		return nil, errs.NewPlatform(env.Code, env.Message)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, errs.NewMalformedResponse("response has no data", nil)
	}
	return env.Data, nil
}
