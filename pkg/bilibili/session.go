package bilibili

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	errs "bup/pkg/errors"
	"bup/pkg/logger"
	"bup/pkg/transport"

	"github.com/google/uuid"
)

// Session is the optional cookie state sent with signed requests.
type Session struct {
	Cookie string
	Ticket string
}

// primedCookieNames are kept from the home page Set-Cookie headers.
var primedCookieNames = []string{"buvid3", "b_nut"}

// cookieValue returns the value of name in a Cookie header string.
func cookieValue(cookie, name string) (string, bool) {
	for _, part := range strings.Split(cookie, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && k == name {
			return v, true
		}
	}
	return "", false
}

// appendCookie adds name=value unless the header already carries name.
func appendCookie(cookie, name, value string) string {
	if _, ok := cookieValue(cookie, name); ok {
		return cookie
	}
	pair := name + "=" + value
	cookie = strings.TrimRight(strings.TrimSpace(cookie), ";")
	if cookie == "" {
		return pair
	}
	return cookie + "; " + pair
}

// primedCookies extracts the device cookies from Set-Cookie headers.
func primedCookies(setCookies []string) map[string]string {
	out := make(map[string]string)
	for _, sc := range setCookies {
		first, _, _ := strings.Cut(sc, ";")
		k, v, ok := strings.Cut(strings.TrimSpace(first), "=")
		if !ok {
			continue
		}
		for _, name := range primedCookieNames {
			if k == name && v != "" {
				out[k] = v
			}
		}
	}
	return out
}

// primeCookie visits the home page and returns cookie with buvid3 and
// b_nut added from the response.
func (c *Client) primeCookie(ctx context.Context, cookie string) (string, error) {
	header := http.Header{}
	header.Set("User-Agent", c.opts.UserAgent)

	start := time.Now()
	resp, err := c.doer.Do(ctx, transport.NewGet(c.endpoints.Home, header))
	if err != nil {
		return cookie, err
	}
	logger.LogRequest(c.log, http.MethodGet, c.endpoints.Home, resp.StatusCode, time.Since(start))

	got := primedCookies(resp.Header.Values("Set-Cookie"))
	if len(got) == 0 {
		return cookie, fmt.Errorf("home page set no device cookies")
	}
	for _, name := range primedCookieNames {
		if v, ok := got[name]; ok {
			cookie = appendCookie(cookie, name, v)
		}
	}
	return cookie, nil
}

// fabricateDeviceCookies adds a locally generated buvid3 and b_nut in the
// format the web player uses.
func fabricateDeviceCookies(cookie string, now time.Time) string {
	buvid3 := fmt.Sprintf("%s%05dinfoc", strings.ToUpper(uuid.NewString()), now.UnixMilli()%100000)
	cookie = appendCookie(cookie, "buvid3", buvid3)
	return appendCookie(cookie, "b_nut", strconv.FormatInt(now.Unix(), 10))
}

// ticketHexSign is HMAC-SHA256 of "ts<unix>" keyed with the web key.
func ticketHexSign(ts int64) string {
	mac := hmac.New(sha256.New, []byte(ticketHMACKey))
	mac.Write([]byte("ts" + strconv.FormatInt(ts, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// fetchTicket requests a bili_ticket. A non-zero envelope code or an empty
// ticket is reported as upstream unavailable; the caller only logs it.
func (c *Client) fetchTicket(ctx context.Context, cookie string) (string, error) {
	ts := c.now().Unix()
	csrf, _ := cookieValue(cookie, "bili_jct")

	q := url.Values{}
	q.Set("key_id", ticketKeyID)
	q.Set("hexsign", ticketHexSign(ts))
	q.Set("context[ts]", strconv.FormatInt(ts, 10))
	q.Set("csrf", csrf)
	target := c.endpoints.Ticket + "?" + q.Encode()

	header, order := BrowserHeaders(c.opts.UserAgent, cookie, HomeReferer, "")
	start := time.Now()
	resp, err := c.doer.Do(ctx, &transport.Request{
		Method:      http.MethodPost,
		URL:         target,
		Header:      header,
		HeaderOrder: order,
	})
	if err != nil {
		return "", err
	}
	logger.LogRequest(c.log, http.MethodPost, c.endpoints.Ticket, resp.StatusCode, time.Since(start))

	if !resp.OK() {
		return "", errs.NewUpstreamUnavailable(fmt.Sprintf("ticket endpoint returned status %d", resp.StatusCode), nil)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return "", errs.NewUpstreamUnavailable("ticket response is not JSON", err)
	}
	if env.Code != 0 {
		return "", errs.NewUpstreamUnavailable(fmt.Sprintf("ticket endpoint returned code %d: %s", env.Code, env.Message), nil)
	}

	var data ticketData
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Ticket == "" {
		return "", errs.NewUpstreamUnavailable("ticket response has no ticket", err)
	}
	return data.Ticket, nil
}
