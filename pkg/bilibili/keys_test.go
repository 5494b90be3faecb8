package bilibili

import (
	"context"
	"errors"
	"net/http"
	"testing"

	errs "bup/pkg/errors"
	"bup/pkg/logger"
	"bup/pkg/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFragment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://i0.hdslb.com/bfs/wbi/7cd084941338484aae1ad9425b84077c.png", "7cd084941338484aae1ad9425b84077c"},
		{"https://example.com/a.b/key.name.png", "key.name"},
		{"https://example.com/path/noext", "noext"},
		{"plain", "plain"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, keyFragment(tt.in))
		})
	}
}

func navDoer(status int, body string) transport.Doer {
	return transport.DoerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		return &transport.Response{StatusCode: status, Header: http.Header{}, Body: []byte(body)}, nil
	})
}

func TestKeyCacheRefresh(t *testing.T) {
	body := `{"code":-101,"message":"账号未登录","data":{"isLogin":false,"wbi_img":{` +
		`"img_url":"https://i0.hdslb.com/bfs/wbi/7cd084941338484aae1ad9425b84077c.png",` +
		`"sub_url":"https://i0.hdslb.com/bfs/wbi/4932caff0ff746eab6f01bf08b70ac45.png"}}}`
	kc := NewKeyCache(navDoer(http.StatusOK, body), "https://nav", "ua", logger.NewNopLogger())

	_, ok := kc.Get()
	assert.False(t, ok)

	km, err := kc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "7cd084941338484aae1ad9425b84077c", km.Img)
	assert.Equal(t, "4932caff0ff746eab6f01bf08b70ac45", km.Sub)

	cached, ok := kc.Get()
	assert.True(t, ok)
	assert.Equal(t, km, cached)
}

func TestKeyCacheRefreshFailures(t *testing.T) {
	tests := []struct {
		name string
		doer transport.Doer
	}{
		{"network", transport.DoerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			return nil, errs.NewNetwork("dial failed", errors.New("refused"))
		})},
		{"status", navDoer(http.StatusBadGateway, "")},
		{"not json", navDoer(http.StatusOK, "<html>")},
		{"no wbi_img", navDoer(http.StatusOK, `{"code":0,"data":{}}`)},
		{"no data", navDoer(http.StatusOK, `{"code":0}`)},
		{"empty urls", navDoer(http.StatusOK, `{"code":0,"data":{"wbi_img":{"img_url":"","sub_url":""}}}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kc := NewKeyCache(tt.doer, "https://nav", "ua", logger.NewNopLogger())
			_, err := kc.Refresh(context.Background())
			require.Error(t, err)
			assert.True(t, errs.IsType(err, errs.ErrorTypeUpstreamUnavailable))

			_, ok := kc.Get()
			assert.False(t, ok)
		})
	}
}
