package bilibili

import (
	"context"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// dmAlphabet seeds dm_img_str and dm_cover_img_str. The server only checks
// that the fields look populated.
var dmAlphabet = []rune("ABCDEFGHIJK")

const (
	dmImgList  = "[]"
	dmImgInter = `{"ds":[],"wh":[0,0,0],"of":[0,0,0]}`
)

// Shim supplies the randomized parts of a browser-looking request. It is
// safe for concurrent use.
type Shim struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewShim returns a Shim seeded from the runtime's random source.
func NewShim() *Shim {
	return NewShimWithRand(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

// NewShimWithRand returns a Shim drawing from rng, for deterministic tests.
func NewShimWithRand(rng *rand.Rand) *Shim {
	return &Shim{rng: rng}
}

// Decorate sets the four dm_* fields on params and returns it.
func (s *Shim) Decorate(params url.Values) url.Values {
	s.mu.Lock()
	imgStr := string(RandomSample(dmAlphabet, 2, s.rng))
	coverStr := string(RandomSample(dmAlphabet, 2, s.rng))
	s.mu.Unlock()

	params.Set("dm_img_list", dmImgList)
	params.Set("dm_img_str", imgStr)
	params.Set("dm_cover_img_str", coverStr)
	params.Set("dm_img_inter", dmImgInter)
	return params
}

// RandomDelay sleeps for a uniformly random duration in [0, maxDelay). A value of
// zero or less returns at once without arming a timer.
func (s *Shim) RandomDelay(ctx context.Context, maxDelay time.Duration) error {
	if maxDelay <= 0 {
		return nil
	}

	s.mu.Lock()
	d := time.Duration(s.rng.Int64N(int64(maxDelay)))
	s.mu.Unlock()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RandomSample draws n distinct elements of alphabet in random order with a
// partial Fisher-Yates shuffle over the tail. n is clamped to the alphabet
// size. alphabet is not modified.
func RandomSample[T any](alphabet []T, n int, rng *rand.Rand) []T {
	if n > len(alphabet) {
		n = len(alphabet)
	}
	if n <= 0 {
		return []T{}
	}

	shuffled := make([]T, len(alphabet))
	copy(shuffled, alphabet)

	start := len(shuffled) - n
	for i := len(shuffled) - 1; i >= start; i-- {
		j := rng.IntN(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[start:]
}

// chromeHints are the client hints Chrome 137 sends alongside its UA.
var chromeHints = [][2]string{
	{"sec-ch-ua", `"Google Chrome";v="137", "Chromium";v="137", "Not/A)Brand";v="24"`},
	{"sec-ch-ua-mobile", "?0"},
	{"sec-ch-ua-platform", `"macOS"`},
}

// BrowserHeaders composes the outbound headers of an XHR from a space
// page. Empty cookie, referer or origin values are omitted. The second
// result is the wire order for transports that honor it.
func BrowserHeaders(userAgent, cookie, referer, origin string) (http.Header, []string) {
	h := make(http.Header)
	var order []string
	set := func(k, v string) {
		if v == "" {
			return
		}
		h.Set(k, v)
		order = append(order, strings.ToLower(k))
	}

	if strings.Contains(userAgent, "Chrome/137") {
		for _, hint := range chromeHints {
			set(hint[0], hint[1])
		}
	}
	set("User-Agent", userAgent)
	set("Accept", "application/json, text/plain, */*")
	set("Origin", origin)
	set("Sec-Fetch-Site", "same-site")
	set("Sec-Fetch-Mode", "cors")
	set("Sec-Fetch-Dest", "empty")
	set("Referer", referer)
	set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	set("Cookie", cookie)

	return h, order
}
