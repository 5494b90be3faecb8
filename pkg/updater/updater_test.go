package updater

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"bup/pkg/bilibili"
	errs "bup/pkg/errors"
	"bup/pkg/logger"
	"bup/pkg/models"
	"bup/pkg/site"
	"bup/pkg/snapshot"
	"bup/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type creator struct {
	name    string
	uploads []bilibili.Upload
	err     error
}

// fakePlatform serves canned creators and records the call order.
type fakePlatform struct {
	mu       sync.Mutex
	creators map[string]creator
	initErr  error
	inits    int
	calls    []string
	onCall   func(call string)
}

func (f *fakePlatform) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	hook := f.onCall
	f.mu.Unlock()
	if hook != nil {
		hook(call)
	}
}

func (f *fakePlatform) Init(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits++
	return f.initErr
}

func (f *fakePlatform) GetProfile(ctx context.Context, mid string) (*bilibili.Profile, error) {
	f.record("profile:" + mid)
	c, ok := f.creators[mid]
	if !ok {
		return nil, errs.NewPlatform(-404, "啥都木有")
	}
	if c.err != nil {
		return nil, c.err
	}
	n, _ := strconv.ParseInt(mid, 10, 64)
	return &bilibili.Profile{Mid: n, Name: c.name, Face: "https://i0.hdslb.com/face/" + mid + ".jpg"}, nil
}

func (f *fakePlatform) GetUploads(ctx context.Context, mid string) ([]bilibili.Upload, error) {
	f.record("uploads:" + mid)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.creators[mid].uploads, nil
}

type fakeBuilder struct {
	got    []*models.Metadata
	called bool
	err    error
}

func (b *fakeBuilder) Build(ctx context.Context, mds []*models.Metadata) (*site.Report, error) {
	b.called = true
	b.got = mds
	if len(mds) == 0 {
		return nil, site.ErrNoUpdates
	}
	report := &site.Report{Failed: map[string]error{}}
	for _, md := range mds {
		report.Built = append(report.Built, md.UID)
	}
	return report, b.err
}

func upload(bvid string, created int64) bilibili.Upload {
	return bilibili.Upload{BVID: bvid, Title: "video " + bvid, Created: created, Pic: "https://i0.hdslb.com/" + bvid + ".jpg"}
}

type fixture struct {
	platform  *fakePlatform
	builder   *fakeBuilder
	docs      *storage.Manager
	snapshots snapshot.Store
	log       *logger.TestLogger
	updater   *Updater
	docDir    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	docDir := t.TempDir()
	docs, err := storage.NewManager(docDir)
	require.NoError(t, err)

	f := &fixture{
		platform: &fakePlatform{creators: map[string]creator{
			"1": {name: "one", uploads: []bilibili.Upload{upload("BV1a", 1700000000), upload("BV1b", 1690000000)}},
			"2": {name: "two", uploads: []bilibili.Upload{upload("BV2a", 1700000100)}},
			"3": {name: "three", uploads: []bilibili.Upload{upload("BV3a", 1700000200)}},
		}},
		builder:   &fakeBuilder{},
		docs:      docs,
		snapshots: snapshot.NewFileStore(filepath.Join(docDir, "users"), nil),
		log:       logger.NewTestLogger(),
		docDir:    docDir,
	}
	f.updater = New(f.platform, docs, f.snapshots, f.builder, "users", nil, f.log)
	return f
}

func (f *fixture) seed(t *testing.T, uid, name, bvid string) {
	t.Helper()
	md := models.MakeMetadata(
		&bilibili.Profile{Mid: mustInt(uid), Name: name},
		[]bilibili.Upload{upload(bvid, 1600000000)},
		"users",
	)
	require.NoError(t, f.snapshots.Save(context.Background(), md))
}

func mustInt(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		panic(err)
	}
	return n
}

func uidsOf(mds []*models.Metadata) []string {
	out := make([]string, 0, len(mds))
	for _, md := range mds {
		out = append(out, md.UID)
	}
	return out
}

func TestCheckIsSequentialAndOrdered(t *testing.T) {
	f := newFixture(t)

	mds, err := f.updater.Check(context.Background(), []string{"3", "1", "2"})
	require.NoError(t, err)

	assert.Equal(t, []string{"3", "1", "2"}, uidsOf(mds))
	assert.Equal(t, []string{
		"profile:3", "uploads:3",
		"profile:1", "uploads:1",
		"profile:2", "uploads:2",
	}, f.platform.calls)
	assert.Equal(t, 1, f.platform.inits)

	md := mds[1]
	assert.Equal(t, "one", md.Name)
	assert.Equal(t, "users/1", md.Path)
	require.Len(t, md.Videos, 2)
	assert.Equal(t, int64(1700000000000), md.Videos[0].Created)
}

func TestCheckDetectsChanges(t *testing.T) {
	tests := []struct {
		name    string
		seed    func(t *testing.T, f *fixture)
		updated bool
	}{
		{
			name:    "no snapshot",
			seed:    func(t *testing.T, f *fixture) {},
			updated: true,
		},
		{
			name:    "same newest upload and name",
			seed:    func(t *testing.T, f *fixture) { f.seed(t, "1", "one", "BV1a") },
			updated: false,
		},
		{
			name:    "new upload",
			seed:    func(t *testing.T, f *fixture) { f.seed(t, "1", "one", "BV1old") },
			updated: true,
		},
		{
			name:    "renamed",
			seed:    func(t *testing.T, f *fixture) { f.seed(t, "1", "old name", "BV1a") },
			updated: true,
		},
		{
			name: "corrupt snapshot",
			seed: func(t *testing.T, f *fixture) {
				dir := filepath.Join(f.docDir, "users", "1")
				require.NoError(t, os.MkdirAll(dir, 0755))
				require.NoError(t, os.WriteFile(filepath.Join(dir, "index.json"), []byte("{"), 0644))
			},
			updated: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.seed(t, f)

			mds, err := f.updater.Check(context.Background(), []string{"1"})
			require.NoError(t, err)
			if tt.updated {
				assert.Equal(t, []string{"1"}, uidsOf(mds))
			} else {
				assert.Empty(t, mds)
			}
		})
	}
}

func TestCheckSkipsFailingCreators(t *testing.T) {
	f := newFixture(t)
	f.platform.creators["2"] = creator{err: errs.NewHTTPStatus(412, "precondition failed")}
	f.platform.creators["4"] = creator{name: "four", uploads: []bilibili.Upload{}}

	mds, err := f.updater.Check(context.Background(), []string{"1", "2", "4", "404", "3"})
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "3"}, uidsOf(mds))
	assert.Len(t, f.log.GetMessagesByLevel("ERROR"), 3)
	assert.True(t, f.log.HasMessage("Skipping creator"))
	assert.NotContains(t, f.platform.calls, "uploads:2", "uploads are not fetched after a profile failure")
}

func TestCheckContinuesAfterInitFailure(t *testing.T) {
	f := newFixture(t)
	f.platform.initErr = errs.NewUpstreamUnavailable("nav endpoint unreachable", nil)

	mds, err := f.updater.Check(context.Background(), []string{"1"})
	require.NoError(t, err)
	assert.Len(t, mds, 1)
	assert.Len(t, f.log.GetMessagesByLevel("WARN"), 1)
}

func TestCheckCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.platform.onCall = func(call string) {
		if call == "profile:2" {
			cancel()
		}
	}

	mds, err := f.updater.Check(ctx, []string{"1", "2", "3"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"1"}, uidsOf(mds))
	assert.NotContains(t, f.platform.calls, "profile:3")
}

func TestCheckKeepsConfiguredUID(t *testing.T) {
	f := newFixture(t)

	// The platform answers uid 5 with the profile of mid 1.
	f.platform.creators["5"] = f.platform.creators["1"]
	p := &aliasPlatform{fakePlatform: f.platform, alias: map[string]string{"5": "1"}}
	u := New(p, f.docs, f.snapshots, f.builder, "users", nil, f.log)

	mds, err := u.Check(context.Background(), []string{"5"})
	require.NoError(t, err)
	require.Len(t, mds, 1)
	assert.Equal(t, "5", mds[0].UID)
	assert.Equal(t, "users/5", mds[0].Path)
}

type aliasPlatform struct {
	*fakePlatform
	alias map[string]string
}

func (a *aliasPlatform) GetProfile(ctx context.Context, mid string) (*bilibili.Profile, error) {
	if target, ok := a.alias[mid]; ok {
		return a.fakePlatform.GetProfile(ctx, target)
	}
	return a.fakePlatform.GetProfile(ctx, mid)
}

func TestClean(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "1", "one", "BV1a")
	f.seed(t, "9", "gone", "BV9a")
	require.NoError(t, f.docs.MkdirAll("users/8"))
	require.NoError(t, f.docs.WriteFile("users/stray.txt", []byte("x")))

	removed, err := f.updater.Clean(ctx, []string{"1", "2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"8", "9"}, removed)

	assert.DirExists(t, filepath.Join(f.docDir, "users", "1"))
	assert.NoDirExists(t, filepath.Join(f.docDir, "users", "8"))
	assert.NoDirExists(t, filepath.Join(f.docDir, "users", "9"))
	assert.FileExists(t, filepath.Join(f.docDir, "users", "stray.txt"))

	stored, err := f.snapshots.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, stored)
	assert.True(t, f.log.HasMessage("Removing unused dir for 8, 9."))
}

func TestCleanWithoutUserDir(t *testing.T) {
	f := newFixture(t)
	removed, err := f.updater.Clean(context.Background(), []string{"1"})
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestRun(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "2", "two", "BV2a")
	f.seed(t, "7", "retired", "BV7a")

	result, err := f.updater.Run(context.Background(), []string{"1", "2", "3"})
	require.NoError(t, err)

	assert.Equal(t, []string{"7"}, result.Removed)
	assert.Equal(t, []string{"1", "3"}, uidsOf(result.Updated))
	assert.Equal(t, []string{"1", "3"}, result.Built)
	assert.Equal(t, []string{"1(one)", "3(three)"}, result.UpdatedNames())
	assert.Equal(t, result.Updated, f.builder.got)
}

func TestRunNoUpdates(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "1", "one", "BV1a")

	result, err := f.updater.Run(context.Background(), []string{"1"})
	assert.ErrorIs(t, err, site.ErrNoUpdates)
	assert.True(t, f.builder.called)
	assert.Empty(t, result.Updated)
}

func TestRunBuildError(t *testing.T) {
	f := newFixture(t)
	f.builder.err = errors.New("disk full")

	result, err := f.updater.Run(context.Background(), []string{"1"})
	assert.EqualError(t, err, "disk full")
	assert.Equal(t, []string{"1"}, result.Built)
}

func TestRunWithoutBuilder(t *testing.T) {
	f := newFixture(t)
	u := New(f.platform, f.docs, f.snapshots, nil, "users", nil, nil)
	_, err := u.Run(context.Background(), []string{"1"})
	assert.Error(t, err)
}
