package site

import (
	"path"
	"strings"
)

// PathFor returns the site-absolute path of p when the site is served
// from rootDir.
func PathFor(rootDir, p string) string {
	if rootDir == "" {
		rootDir = "/"
	}
	if !strings.HasPrefix(rootDir, "/") {
		rootDir = "/" + rootDir
	}
	joined := path.Join(rootDir, p)
	if strings.HasSuffix(p, "/") && !strings.HasSuffix(joined, "/") {
		joined += "/"
	}
	return joined
}

// URLFor returns the absolute URL of p. An empty baseURL yields the
// site-absolute path.
func URLFor(baseURL, rootDir, p string) string {
	return strings.TrimRight(baseURL, "/") + PathFor(rootDir, p)
}
