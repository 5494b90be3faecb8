package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Platform.Timeout != 1500*time.Millisecond {
		t.Errorf("Expected default timeout to be 1.5s, got %v", config.Platform.Timeout)
	}

	if config.Platform.MaxDelay != 0 {
		t.Errorf("Expected default max delay to be 0, got %v", config.Platform.MaxDelay)
	}

	if config.Platform.UserAgent != DefaultUserAgent {
		t.Errorf("Expected default user agent, got %s", config.Platform.UserAgent)
	}

	if !config.Platform.StripValues {
		t.Error("Expected value stripping to be enabled by default")
	}

	if config.Snapshot.Backend != SnapshotBackendFile {
		t.Errorf("Expected file snapshot backend, got %s", config.Snapshot.Backend)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BUP_UIDS", "521444, 2,3")
	t.Setenv("BUP_COOKIE", "SESSDATA=abc")
	t.Setenv("BUP_MAX_DELAY", "2s")
	t.Setenv("BUP_REQUESTS_PER_MINUTE", "12")
	t.Setenv("BUP_SNAPSHOT_BACKEND", "REDIS")
	t.Setenv("BUP_LOG_LEVEL", "debug")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}

	if len(config.UIDs) != 3 || config.UIDs[0] != "521444" || config.UIDs[2] != "3" {
		t.Errorf("Unexpected uids %v", config.UIDs)
	}
	if config.Platform.Cookie != "SESSDATA=abc" {
		t.Errorf("Expected cookie from env, got %s", config.Platform.Cookie)
	}
	if config.Platform.MaxDelay != 2*time.Second {
		t.Errorf("Expected max delay 2s, got %v", config.Platform.MaxDelay)
	}
	if config.RateLimit.RequestsPerMinute != 12 {
		t.Errorf("Expected requests per minute to be 12, got %d", config.RateLimit.RequestsPerMinute)
	}
	if config.Snapshot.Backend != SnapshotBackendRedis {
		t.Errorf("Expected redis backend, got %s", config.Snapshot.Backend)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Expected log level to be debug, got %s", config.Logging.Level)
	}
}

func TestLoadFromEnvBadDuration(t *testing.T) {
	t.Setenv("BUP_TIMEOUT", "soon")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err == nil {
		t.Error("Expected an error for an unparsable duration")
	}
}

func TestLoadFromFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bup.yaml")
	content := `
uids: ["1", "2"]
site:
  doc_dir: public
  user_dir: u
  base_url: https://example.org
  root_dir: /bup/
platform:
  timeout: 3s
  max_delay: 500ms
  transport: standard
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	config := DefaultConfig()
	if err := config.LoadFromFile(path); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Site.DocDir != "public" || config.Site.RootDir != "/bup/" {
		t.Errorf("Unexpected site config %+v", config.Site)
	}
	if config.Platform.Timeout != 3*time.Second {
		t.Errorf("Expected timeout 3s, got %v", config.Platform.Timeout)
	}
	if config.Platform.MaxDelay != 500*time.Millisecond {
		t.Errorf("Expected max delay 500ms, got %v", config.Platform.MaxDelay)
	}
	if config.Platform.UserAgent != DefaultUserAgent {
		t.Error("Expected unset fields to keep their defaults")
	}
}
