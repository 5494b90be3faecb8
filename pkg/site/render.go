package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"time"

	"bup/pkg/bilibili"
	"bup/pkg/models"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed assets
var assetFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// chinaTime is Asia/Shanghai, which has no DST.
var chinaTime = time.FixedZone("CST", 8*60*60)

// Static asset paths relative to the doc dir.
const (
	indexJSPath      = "js/index.js"
	indexCSSPath     = "css/index.css"
	normalizeCSSPath = "css/normalize.css"
)

// linker turns doc-relative paths into links for one deployment.
type linker struct {
	baseURL string
	rootDir string
}

func (l linker) path(p string) string { return PathFor(l.rootDir, p) }
func (l linker) url(p string) string  { return URLFor(l.baseURL, l.rootDir, p) }

type chrome struct {
	PageURL      string
	PagePath     string
	NormalizeCSS string
	IndexCSS     string
	IndexJS      string
}

func (l linker) chrome(page string) chrome {
	return chrome{
		PageURL:      l.url(page),
		PagePath:     l.path(page),
		NormalizeCSS: l.path(normalizeCSSPath),
		IndexCSS:     l.path(indexCSSPath),
		IndexJS:      l.path(indexJSPath),
	}
}

type userPage struct {
	chrome
	Name        string
	AvatarPath  string
	SpaceURL    string
	VideoURL    string
	ThumbPath   string
	Title       string
	Created     int64
	CreatedText string
}

type indexEntry struct {
	Name string
	Path string
}

type indexPage struct {
	chrome
	Creators []indexEntry
}

// formatCreated renders epoch milliseconds as YYYY-MM-DD HH:MM:SS in
// Asia/Shanghai.
func formatCreated(ms int64) string {
	return time.UnixMilli(ms).In(chinaTime).Format("2006-01-02 15:04:05")
}

// buildComment is appended after the template output, which cannot carry
// HTML comments itself.
func buildComment(version string, at time.Time) string {
	return fmt.Sprintf("<!-- Page built by BUp v%s at %s. -->", version, at.UTC().Format("2006-01-02T15:04:05.000Z"))
}

// RenderUserPage renders a creator page. md must have at least one video.
func RenderUserPage(md *models.Metadata, baseURL, rootDir, version string, now time.Time) ([]byte, error) {
	latest := md.Latest()
	if latest == nil {
		return nil, fmt.Errorf("creator %s has no videos", md.UID)
	}

	l := linker{baseURL: baseURL, rootDir: rootDir}
	data := userPage{
		chrome:      l.chrome(md.Path),
		Name:        md.Name,
		AvatarPath:  l.path(md.Avatar),
		SpaceURL:    bilibili.SpaceURL(md.UID),
		VideoURL:    bilibili.VideoURL(latest.BVID),
		ThumbPath:   l.path(latest.Thumb),
		Title:       latest.Title,
		Created:     latest.Created,
		CreatedText: formatCreated(latest.Created),
	}
	return execute("user.html.tmpl", data, version, now)
}

// RenderIndexPage renders the site index listing mds.
func RenderIndexPage(mds []*models.Metadata, baseURL, rootDir, version string, now time.Time) ([]byte, error) {
	l := linker{baseURL: baseURL, rootDir: rootDir}
	data := indexPage{
		chrome:   l.chrome("/"),
		Creators: make([]indexEntry, 0, len(mds)),
	}
	for _, md := range mds {
		data.Creators = append(data.Creators, indexEntry{Name: md.Name, Path: l.path(md.Path)})
	}
	return execute("index.html.tmpl", data, version, now)
}

func execute(name string, data interface{}, version string, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	buf.WriteString(buildComment(version, now))
	return buf.Bytes(), nil
}

// Assets returns the embedded static files keyed by doc-relative path.
func Assets() (map[string][]byte, error) {
	out := make(map[string][]byte)
	sub, err := fs.Sub(assetFS, "assets")
	if err != nil {
		return nil, err
	}
	err = fs.WalkDir(sub, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(sub, p)
		if err != nil {
			return err
		}
		out[p] = data
		return nil
	})
	return out, err
}
