package updater_test

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bup/internal/downloader"
	"bup/pkg/bilibili"
	"bup/pkg/logger"
	"bup/pkg/site"
	"bup/pkg/snapshot"
	"bup/pkg/storage"
	"bup/pkg/transport"
	"bup/pkg/ui"
	"bup/pkg/updater"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	mockImgKey = "7cd084941338484aae1ad9425b84077c"
	mockSubKey = "4932caff0ff746eab6f01bf08b70ac45"
)

// mockBilibili serves nav, profile, uploads and image endpoints and
// rejects signed calls whose w_rid does not verify.
type mockBilibili struct {
	server *httptest.Server

	mu          sync.Mutex
	latest      map[string]string
	badSign     int32
	signedCalls int32
}

func newMockBilibili(t *testing.T) *mockBilibili {
	m := &mockBilibili{latest: map[string]string{
		"1": "BV1aa4y1a7aa",
		"2": "BV1bb4y1b7bb",
	}}

	mux := http.NewServeMux()
	mux.HandleFunc("/x/web-interface/nav", func(w http.ResponseWriter, r *http.Request) {
		// Anonymous callers get -101 with the key urls still present.
		writeJSON(w, map[string]interface{}{
			"code":    -101,
			"message": "账号未登录",
			"data": map[string]interface{}{
				"wbi_img": map[string]string{
					"img_url": "https://i0.hdslb.com/bfs/wbi/" + mockImgKey + ".png",
					"sub_url": "https://i0.hdslb.com/bfs/wbi/" + mockSubKey + ".png",
				},
			},
		})
	})
	mux.HandleFunc("/x/space/wbi/acc/info", m.signed(func(w http.ResponseWriter, mid string) {
		writeJSON(w, map[string]interface{}{
			"code": 0,
			"data": map[string]interface{}{
				"mid":  json.Number(mid),
				"name": "creator" + mid,
				"face": m.server.URL + "/img/face-" + mid + ".jpg",
			},
		})
	}))
	mux.HandleFunc("/x/space/wbi/arc/search", m.signed(func(w http.ResponseWriter, mid string) {
		m.mu.Lock()
		bvid := m.latest[mid]
		m.mu.Unlock()
		writeJSON(w, map[string]interface{}{
			"code": 0,
			"data": map[string]interface{}{
				"list": map[string]interface{}{
					"vlist": []map[string]interface{}{
						{"bvid": bvid, "title": "video " + bvid, "created": 1700000000, "pic": m.server.URL + "/img/" + bvid + ".jpg"},
					},
				},
			},
		})
	}))
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg:" + r.URL.Path))
	})

	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

// signed verifies wts and w_rid before handing the mid to next.
func (m *mockBilibili) signed(next func(w http.ResponseWriter, mid string)) http.HandlerFunc {
	mixin := bilibili.MixinKey(mockImgKey, mockSubKey)
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&m.signedCalls, 1)
		raw := r.URL.RawQuery
		idx := strings.LastIndex(raw, "&w_rid=")
		if idx < 0 || r.URL.Query().Get("wts") == "" {
			atomic.AddInt32(&m.badSign, 1)
			writeJSON(w, map[string]interface{}{"code": -403, "message": "访问权限不足"})
			return
		}
		sum := md5.Sum([]byte(raw[:idx] + mixin))
		if hex.EncodeToString(sum[:]) != raw[idx+len("&w_rid="):] {
			atomic.AddInt32(&m.badSign, 1)
			writeJSON(w, map[string]interface{}{"code": -403, "message": "访问权限不足"})
			return
		}
		next(w, r.URL.Query().Get("mid"))
	}
}

func (m *mockBilibili) publish(mid, bvid string) {
	m.mu.Lock()
	m.latest[mid] = bvid
	m.mu.Unlock()
}

func (m *mockBilibili) endpoints() bilibili.Endpoints {
	return bilibili.Endpoints{
		Home:        m.server.URL + "/",
		Nav:         m.server.URL + "/x/web-interface/nav",
		Ticket:      m.server.URL + "/ticket",
		Profile:     m.server.URL + "/x/space/wbi/acc/info",
		Uploads:     m.server.URL + "/x/space/wbi/arc/search",
		SpacePrefix: m.server.URL,
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

type pipeline struct {
	docRoot string
	updater *updater.Updater
}

// newPipeline wires a fresh client and builder over a shared doc root, as
// each CLI invocation does.
func newPipeline(t *testing.T, m *mockBilibili, docRoot string) *pipeline {
	log := logger.NewNopLogger()
	doer := transport.NewStdClientWith(m.server.Client())

	client := bilibili.NewClient(doer, bilibili.Options{
		Endpoints:   m.endpoints(),
		StripValues: true,
	}, log)

	docs, err := storage.NewManager(docRoot)
	require.NoError(t, err)
	snapshots := snapshot.NewFileStore(filepath.Join(docRoot, "users"), log)
	fetcher := downloader.NewHTTPFetcher(doer, "test-agent", nil)
	builder := site.NewBuilder(docs, snapshots, fetcher, site.Options{
		RootDir: "/",
		Version: "test",
		Workers: 2,
		Now:     func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) },
	}, log)

	return &pipeline{
		docRoot: docRoot,
		updater: updater.New(client, docs, snapshots, builder, "users", ui.NopReporter{}, log),
	}
}

func (p *pipeline) exists(rel string) bool {
	_, err := os.Stat(filepath.Join(p.docRoot, filepath.FromSlash(rel)))
	return err == nil
}

func TestEndToEnd(t *testing.T) {
	m := newMockBilibili(t)
	docRoot := t.TempDir()
	ctx := context.Background()

	// First run builds every creator.
	result, err := newPipeline(t, m, docRoot).updater.Run(ctx, []string{"1", "2"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "2"}, result.Built)
	assert.Zero(t, result.AssetFailures)
	assert.Zero(t, atomic.LoadInt32(&m.badSign))

	p := newPipeline(t, m, docRoot)
	for _, rel := range []string{
		"index.html",
		"users/1/index.html",
		"users/1/index.json",
		"users/1/avatar.jpg",
		"users/1/0-thumb.jpg",
		"users/2/index.html",
	} {
		assert.True(t, p.exists(rel), rel)
	}
	avatar, err := os.ReadFile(filepath.Join(docRoot, "users", "1", "avatar.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg:/img/face-1.jpg", string(avatar))

	// Nothing new upstream.
	_, err = p.updater.Run(ctx, []string{"1", "2"})
	assert.ErrorIs(t, err, site.ErrNoUpdates)

	// A new upload rebuilds only that creator.
	m.publish("2", "BV1cc4y1c7cc")
	result, err = newPipeline(t, m, docRoot).updater.Run(ctx, []string{"1", "2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, result.Built)
	assert.Equal(t, []string{"2(creator2)"}, result.UpdatedNames())

	page, err := os.ReadFile(filepath.Join(docRoot, "users", "2", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "BV1cc4y1c7cc")

	// Dropping a creator from the list removes its dir.
	result, err = newPipeline(t, m, docRoot).updater.Run(ctx, []string{"2"})
	assert.ErrorIs(t, err, site.ErrNoUpdates)
	assert.Equal(t, []string{"1"}, result.Removed)
	assert.False(t, p.exists("users/1"))
	assert.True(t, p.exists("users/2/index.html"))

	assert.Zero(t, atomic.LoadInt32(&m.badSign), "every signed request should verify")
	// Three runs over two creators and one over a single creator.
	assert.Equal(t, int32(3*2*2+2), atomic.LoadInt32(&m.signedCalls))
}
