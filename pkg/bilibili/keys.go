package bilibili

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	errs "bup/pkg/errors"
	"bup/pkg/logger"
	"bup/pkg/transport"
)

// KeyMaterial holds the two WBI key fragments. Both are the filename stem
// of a URL published by the nav endpoint.
type KeyMaterial struct {
	Img string
	Sub string
}

// Valid reports whether both fragments are present.
func (km KeyMaterial) Valid() bool {
	return km.Img != "" && km.Sub != ""
}

// KeyCache fetches key material from the nav endpoint and remembers the
// last good value.
type KeyCache struct {
	doer      transport.Doer
	url       string
	userAgent string
	log       logger.Logger

	mu sync.RWMutex
	km KeyMaterial
}

// NewKeyCache builds a cache that queries navURL.
func NewKeyCache(doer transport.Doer, navURL, userAgent string, log logger.Logger) *KeyCache {
	return &KeyCache{
		doer:      doer,
		url:       navURL,
		userAgent: userAgent,
		log:       log,
	}
}

// Get returns the cached key material and whether it is populated.
func (kc *KeyCache) Get() (KeyMaterial, bool) {
	kc.mu.RLock()
	defer kc.mu.RUnlock()
	return kc.km, kc.km.Valid()
}

// Refresh queries the nav endpoint. Any failure, including a body missing
// either URL, is reported as upstream unavailable and leaves the cache as
// it was. The envelope code is not checked: anonymous callers get -101 but
// the key URLs are still present.
func (kc *KeyCache) Refresh(ctx context.Context) (KeyMaterial, error) {
	header := http.Header{}
	header.Set("User-Agent", kc.userAgent)
	header.Set("Referer", HomeReferer)

	start := time.Now()
	resp, err := kc.doer.Do(ctx, transport.NewGet(kc.url, header))
	if err != nil {
		return KeyMaterial{}, errs.NewUpstreamUnavailable("nav endpoint unreachable", err)
	}
	logger.LogRequest(kc.log, http.MethodGet, kc.url, resp.StatusCode, time.Since(start))

	if !resp.OK() {
		return KeyMaterial{}, errs.NewUpstreamUnavailable(
			fmt.Sprintf("nav endpoint returned status %d", resp.StatusCode), nil)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		kc.log.DebugWithFields("failed to parse nav response", map[string]interface{}{
			"body_preview": preview(resp.Body),
		})
		return KeyMaterial{}, errs.NewUpstreamUnavailable("nav response is not JSON", err)
	}

	var data navData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return KeyMaterial{}, errs.NewUpstreamUnavailable("nav data has unexpected shape", err)
		}
	}
	if data.WBIImg == nil {
		return KeyMaterial{}, errs.NewUpstreamUnavailable("nav response has no wbi_img", nil)
	}

	km := KeyMaterial{
		Img: keyFragment(data.WBIImg.ImgURL),
		Sub: keyFragment(data.WBIImg.SubURL),
	}
	if !km.Valid() {
		return KeyMaterial{}, errs.NewUpstreamUnavailable("nav response has empty key urls", nil)
	}

	kc.mu.Lock()
	kc.km = km
	kc.mu.Unlock()

	kc.log.DebugWithFields("refreshed wbi key material", map[string]interface{}{
		"img": km.Img,
		"sub": km.Sub,
	})
	return km, nil
}

// keyFragment returns the text between the last '/' and the last '.'.
// A name without a dot is returned whole.
func keyFragment(raw string) string {
	raw = strings.TrimSpace(raw)
	name := raw[strings.LastIndexByte(raw, '/')+1:]
	if dot := strings.LastIndexByte(name, '.'); dot >= 0 {
		name = name[:dot]
	}
	return name
}

func preview(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
