package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultUserAgent is a current desktop Chrome string. The platform rejects
// obviously scripted agents with -352.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/137.0.0.0 Safari/537.36"

// Transport names accepted by PlatformConfig.Transport.
const (
	TransportBrowser  = "browser"
	TransportStandard = "standard"
)

// Snapshot backends accepted by SnapshotConfig.Backend.
const (
	SnapshotBackendFile  = "file"
	SnapshotBackendRedis = "redis"
)

// Config holds all configuration options for BUp
type Config struct {
	// Creator IDs to watch, processed in this order
	UIDs []string `yaml:"uids" json:"uids"`

	Site          SiteConfig         `yaml:"site" json:"site"`
	Platform      PlatformConfig     `yaml:"platform" json:"platform"`
	RateLimit     RateLimitConfig    `yaml:"rate_limit" json:"rate_limit"`
	Download      DownloadConfig     `yaml:"download" json:"download"`
	Snapshot      SnapshotConfig     `yaml:"snapshot" json:"snapshot"`
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`
	Logging       LoggingConfig      `yaml:"logging" json:"logging"`
}

// SiteConfig describes where the gallery is written and how it is served.
type SiteConfig struct {
	// ProjectDir is the [dir] argument; DocDir is relative to it.
	ProjectDir string `yaml:"-" json:"-"`
	DocDir     string `yaml:"doc_dir" json:"doc_dir"`
	UserDir    string `yaml:"user_dir" json:"user_dir"`
	BaseURL    string `yaml:"base_url" json:"base_url"`
	RootDir    string `yaml:"root_dir" json:"root_dir"`
}

// PlatformConfig holds settings for the Bilibili client
type PlatformConfig struct {
	UserAgent   string        `yaml:"user_agent" json:"user_agent"`
	Cookie      string        `yaml:"cookie" json:"cookie"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
	Transport   string        `yaml:"transport" json:"transport"`
	Proxy       string        `yaml:"proxy" json:"proxy"`
	PrimeCookie bool          `yaml:"prime_cookie" json:"prime_cookie"`
	FetchTicket bool          `yaml:"fetch_ticket" json:"fetch_ticket"`
	StripValues bool          `yaml:"strip_values" json:"strip_values"`
}

// RateLimitConfig paces signed API requests
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// DownloadConfig holds settings for avatar and thumbnail downloads
type DownloadConfig struct {
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	DownloadTimeout     time.Duration `yaml:"download_timeout" json:"download_timeout"`
	RetryAttempts       int           `yaml:"retry_attempts" json:"retry_attempts"`
	// AssetsPerSecond caps asset requests per second; 0 disables the cap.
	AssetsPerSecond int `yaml:"assets_per_second" json:"assets_per_second"`
}

// SnapshotConfig selects where per-creator snapshots live
type SnapshotConfig struct {
	Backend  string `yaml:"backend" json:"backend"`
	RedisURL string `yaml:"redis_url" json:"redis_url"`
	RedisKey string `yaml:"redis_key" json:"redis_key"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level"`
	File    string `yaml:"file" json:"file"`
	NoColor bool   `yaml:"no_color" json:"no_color"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		UIDs: []string{},
		Site: SiteConfig{
			ProjectDir: ".",
			DocDir:     "docs",
			UserDir:    "users",
			BaseURL:    "",
			RootDir:    "/",
		},
		Platform: PlatformConfig{
			UserAgent:   DefaultUserAgent,
			Timeout:     1500 * time.Millisecond,
			MaxDelay:    0,
			Transport:   TransportBrowser,
			PrimeCookie: false,
			FetchTicket: true,
			StripValues: true,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 30,
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 3,
			DownloadTimeout:     15 * time.Second,
			RetryAttempts:       3,
			AssetsPerSecond:     10,
		},
		Snapshot: SnapshotConfig{
			Backend:  SnapshotBackendFile,
			RedisKey: "bup:snapshots",
		},
		Notifications: NotificationConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DocRoot is DocDir resolved against the project directory.
func (c *Config) DocRoot() string {
	if filepath.IsAbs(c.Site.DocDir) {
		return c.Site.DocDir
	}
	return filepath.Join(c.Site.ProjectDir, c.Site.DocDir)
}

// UserRoot is the directory holding one subdirectory per creator.
func (c *Config) UserRoot() string {
	return filepath.Join(c.DocRoot(), filepath.FromSlash(c.Site.UserDir))
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if uids := os.Getenv("BUP_UIDS"); uids != "" {
		c.UIDs = splitList(uids)
	}

	if v := os.Getenv("BUP_DOC_DIR"); v != "" {
		c.Site.DocDir = v
	}
	if v := os.Getenv("BUP_USER_DIR"); v != "" {
		c.Site.UserDir = v
	}
	if v := os.Getenv("BUP_BASE_URL"); v != "" {
		c.Site.BaseURL = v
	}
	if v := os.Getenv("BUP_ROOT_DIR"); v != "" {
		c.Site.RootDir = v
	}

	if v := os.Getenv("BUP_COOKIE"); v != "" {
		c.Platform.Cookie = v
	}
	if v := os.Getenv("BUP_USER_AGENT"); v != "" {
		c.Platform.UserAgent = v
	}
	if v := os.Getenv("BUP_TRANSPORT"); v != "" {
		c.Platform.Transport = strings.ToLower(v)
	}
	if v := os.Getenv("BUP_PROXY"); v != "" {
		c.Platform.Proxy = v
	}
	if v := os.Getenv("BUP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("BUP_TIMEOUT: %w", err))
		} else {
			c.Platform.Timeout = d
		}
	}
	if v := os.Getenv("BUP_MAX_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("BUP_MAX_DELAY: %w", err))
		} else {
			c.Platform.MaxDelay = d
		}
	}

	if rpm := os.Getenv("BUP_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}

	if concurrent := os.Getenv("BUP_CONCURRENT_DOWNLOADS"); concurrent != "" {
		var val int
		fmt.Sscanf(concurrent, "%d", &val)
		if val > 0 {
			c.Download.ConcurrentDownloads = val
		}
	}

	if v := os.Getenv("BUP_SNAPSHOT_BACKEND"); v != "" {
		c.Snapshot.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("BUP_REDIS_URL"); v != "" {
		c.Snapshot.RedisURL = v
	}

	if notifEnabled := os.Getenv("BUP_NOTIFICATIONS_ENABLED"); notifEnabled != "" {
		c.Notifications.Enabled = strings.ToLower(notifEnabled) == "true"
	}

	if logLevel := os.Getenv("BUP_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if os.Getenv("NO_COLOR") != "" {
		c.Logging.NoColor = true
	}

	return errors.Join(errs...)
}

// legacyConfig is the flat config.json layout used by earlier releases.
type legacyConfig struct {
	UIDs    []json.RawMessage `json:"uids"`
	DocDir  string            `json:"docDir"`
	UserDir string            `json:"userDir"`
	BaseURL string            `json:"baseURL"`
	RootDir string            `json:"rootDir"`
}

// LoadFromFile loads configuration from a YAML file, or from a config.json
// in the legacy flat layout.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return c.loadLegacyJSON(data)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func (c *Config) loadLegacyJSON(data []byte) error {
	var legacy legacyConfig
	if err := json.Unmarshal(data, &legacy); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	// IDs may be written as numbers or strings.
	uids := make([]string, 0, len(legacy.UIDs))
	for _, raw := range legacy.UIDs {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			uids = append(uids, s)
			continue
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("invalid uid %s in config file", string(raw))
		}
		uids = append(uids, n.String())
	}
	c.UIDs = uids

	if legacy.DocDir != "" {
		c.Site.DocDir = legacy.DocDir
	}
	if legacy.UserDir != "" {
		c.Site.UserDir = legacy.UserDir
	}
	c.Site.BaseURL = legacy.BaseURL
	if legacy.RootDir != "" {
		c.Site.RootDir = legacy.RootDir
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	dir := c.Site.ProjectDir
	if dir == "" {
		dir = "."
	}
	locations := []string{
		filepath.Join(dir, "bup.yaml"),
		filepath.Join(dir, "bup.yml"),
		filepath.Join(dir, "config.yaml"),
		filepath.Join(dir, "config.json"),
		filepath.Join(os.Getenv("HOME"), ".config", "bup", "config.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// isSubdir reports whether the slash separated dir stays strictly below
// the directory it is joined to. Clean wipes the user dir, so it must not
// resolve to the doc root or leave it.
func isSubdir(dir string) bool {
	clean := filepath.Clean(filepath.FromSlash(dir))
	if filepath.IsAbs(clean) || strings.HasPrefix(dir, "/") {
		return false
	}
	return clean != "." && clean != ".." && !strings.HasPrefix(clean, ".."+string(filepath.Separator))
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if len(c.UIDs) == 0 {
		errs = append(errs, errors.New("at least one uid is required"))
	}
	for _, uid := range c.UIDs {
		if _, err := strconv.ParseUint(uid, 10, 64); err != nil {
			errs = append(errs, fmt.Errorf("uid %q is not numeric", uid))
		}
	}

	if c.Site.DocDir == "" {
		errs = append(errs, errors.New("doc dir is required"))
	}
	if c.Site.UserDir == "" {
		errs = append(errs, errors.New("user dir is required"))
	} else if !isSubdir(c.Site.UserDir) {
		errs = append(errs, fmt.Errorf("user dir %q must be a subdirectory of the doc dir", c.Site.UserDir))
	}

	if c.Platform.UserAgent == "" {
		errs = append(errs, errors.New("user agent is required"))
	}
	if c.Platform.Timeout <= 0 {
		errs = append(errs, errors.New("platform timeout must be positive"))
	}
	if c.Platform.MaxDelay < 0 {
		errs = append(errs, errors.New("max delay cannot be negative"))
	}
	switch c.Platform.Transport {
	case TransportBrowser, TransportStandard:
	default:
		errs = append(errs, fmt.Errorf("invalid transport %q", c.Platform.Transport))
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}

	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.ConcurrentDownloads > 10 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 10"))
	}
	if c.Download.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.RetryAttempts < 0 {
		errs = append(errs, errors.New("retry attempts cannot be negative"))
	}
	if c.Download.AssetsPerSecond < 0 {
		errs = append(errs, errors.New("assets per second cannot be negative"))
	}

	switch c.Snapshot.Backend {
	case SnapshotBackendFile:
	case SnapshotBackendRedis:
		if c.Snapshot.RedisURL == "" {
			errs = append(errs, errors.New("redis url is required for the redis snapshot backend"))
		}
		if c.Snapshot.RedisKey == "" {
			errs = append(errs, errors.New("redis key is required for the redis snapshot backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid snapshot backend %q", c.Snapshot.Backend))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The cookie may hold a session token.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if debug, ok := flags["debug"].(bool); ok && debug {
		c.Logging.Level = "debug"
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if noColor, ok := flags["no-color"].(bool); ok && noColor {
		c.Logging.NoColor = true
	}
	if maxDelay, ok := flags["max-delay"].(time.Duration); ok && maxDelay > 0 {
		c.Platform.MaxDelay = maxDelay
	}
	if transport, ok := flags["transport"].(string); ok && transport != "" {
		c.Platform.Transport = strings.ToLower(transport)
	}
	if proxy, ok := flags["proxy"].(string); ok && proxy != "" {
		c.Platform.Proxy = proxy
	}
	if concurrent, ok := flags["concurrent"].(int); ok && concurrent > 0 {
		c.Download.ConcurrentDownloads = concurrent
	}
	if notify, ok := flags["notifications"].(bool); ok && notify {
		c.Notifications.Enabled = true
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(projectDir, configPath string, flags map[string]interface{}) (*Config, error) {
	if projectDir == "" {
		projectDir = "."
	}

	_ = godotenv.Load(filepath.Join(projectDir, ".env"))
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".bup.env"))

	config := DefaultConfig()
	config.Site.ProjectDir = projectDir

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	}) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
