// Package config loads and validates service configuration via Viper.
package config

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/leaderboard-webhooks/internal/apperr"
)

// Storage backends.
const (
	StorageLocal      = "local"
	StorageGCS        = "gcs"
	StorageCloudinary = "cloudinary"
	StorageMemory     = "memory"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Webhook     WebhookConfig     `mapstructure:"webhook"`
	Certificate CertificateConfig `mapstructure:"certificate"`
	Storage     StorageConfig     `mapstructure:"storage"`
	DB          DBConfig          `mapstructure:"db"`
	LinkPreview LinkPreviewConfig `mapstructure:"link_preview"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port      int    `mapstructure:"port"`
	PublicURL string `mapstructure:"public_url"`
}

// AuthConfig holds the shared secret expected in the bearer header.
type AuthConfig struct {
	APISecret string `mapstructure:"api_secret"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// HTTPConfig configures outbound HTTP clients.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// LeaderboardConfig identifies the private leaderboard to post.
type LeaderboardConfig struct {
	ID           string `mapstructure:"id"`
	SessionID    string `mapstructure:"session_id"`
	Year         int    `mapstructure:"year"`
	Organization string `mapstructure:"organization"`
	BoardCode    string `mapstructure:"board_code"`
	BaseURL      string `mapstructure:"base_url"`
	Timezone     string `mapstructure:"timezone"`
}

// WebhookConfig names the chat webhook all messages go to.
type WebhookConfig struct {
	URI string `mapstructure:"uri"`
}

// CertificateConfig governs the end-of-event certificate run.
type CertificateConfig struct {
	EndMonth     int    `mapstructure:"end_month"`
	EndDay       int    `mapstructure:"end_day"`
	FireOnce     bool   `mapstructure:"fire_once"`
	ServiceURL   string `mapstructure:"service_url"`
	Topic        string `mapstructure:"topic"`
	TemplatePath string `mapstructure:"template_path"`
	Concurrency  int    `mapstructure:"concurrency"`
}

// StorageConfig selects where rendered certificates are persisted.
type StorageConfig struct {
	Backend    string           `mapstructure:"backend"`
	LocalDir   string           `mapstructure:"local_dir"`
	Prefix     string           `mapstructure:"prefix"`
	GCSBucket  string           `mapstructure:"gcs_bucket"`
	Cloudinary CloudinaryConfig `mapstructure:"cloudinary"`
}

// CloudinaryConfig holds Cloudinary upload credentials.
type CloudinaryConfig struct {
	CloudName string `mapstructure:"cloud_name"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	Folder    string `mapstructure:"folder"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN string `mapstructure:"dsn"`
}

// LinkPreviewConfig configures the link-preview scraper and its blocklists.
type LinkPreviewConfig struct {
	ExcludedTitles  []string `mapstructure:"excluded_titles"`
	ExcludedDomains []string `mapstructure:"excluded_domains"`
	UserAgent       string   `mapstructure:"user_agent"`
	Concurrency     int      `mapstructure:"concurrency"`
}

// envKeys lists every key that may be supplied through the environment.
// Viper only unmarshals keys it knows about, so each one is bound explicitly.
var envKeys = []string{
	"server.port",
	"server.public_url",
	"auth.api_secret",
	"logging.development",
	"http.timeout_seconds",
	"leaderboard.id",
	"leaderboard.session_id",
	"leaderboard.year",
	"leaderboard.organization",
	"leaderboard.board_code",
	"leaderboard.base_url",
	"leaderboard.timezone",
	"webhook.uri",
	"certificate.end_month",
	"certificate.end_day",
	"certificate.fire_once",
	"certificate.service_url",
	"certificate.topic",
	"certificate.template_path",
	"certificate.concurrency",
	"storage.backend",
	"storage.local_dir",
	"storage.prefix",
	"storage.gcs_bucket",
	"storage.cloudinary.cloud_name",
	"storage.cloudinary.api_key",
	"storage.cloudinary.api_secret",
	"storage.cloudinary.folder",
	"db.dsn",
	"link_preview.excluded_titles",
	"link_preview.excluded_domains",
	"link_preview.user_agent",
	"link_preview.concurrency",
}

// envAliases maps keys to the bare environment names used by earlier deployments.
var envAliases = map[string][]string{
	"server.port":                   {"PORT"},
	"server.public_url":             {"NEXT_PUBLIC_APP_URL"},
	"auth.api_secret":               {"API_SECRET_KEY"},
	"leaderboard.id":                {"LEADERBOARD_ID"},
	"leaderboard.session_id":        {"SESSION_ID"},
	"leaderboard.year":              {"YEAR"},
	"leaderboard.organization":      {"ORGANISATION"},
	"leaderboard.board_code":        {"BOARD_CODE"},
	"webhook.uri":                   {"WEBHOOK_URI"},
	"storage.cloudinary.cloud_name": {"CLOUDINARY_CLOUD_NAME"},
	"storage.cloudinary.api_key":    {"CLOUDINARY_API_KEY"},
	"storage.cloudinary.api_secret": {"CLOUDINARY_API_SECRET"},
	"storage.cloudinary.folder":     {"CLOUDINARY_FOLDER_NAME"},
	"db.dsn":                        {"DATABASE_URL"},
	"link_preview.excluded_titles":  {"EXCLUDED_LIST"},
	"link_preview.excluded_domains": {"EXCLUDED_DOMAIN"},
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WEBHOOKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.LinkPreview.ExcludedTitles = normalizePatterns(cfg.LinkPreview.ExcludedTitles)
	cfg.LinkPreview.ExcludedDomains = normalizePatterns(cfg.LinkPreview.ExcludedDomains)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.public_url", "http://localhost:8080")
	v.SetDefault("logging.development", true)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("leaderboard.base_url", "https://adventofcode.com")
	v.SetDefault("leaderboard.timezone", "Local")
	v.SetDefault("certificate.end_month", 12)
	v.SetDefault("certificate.end_day", 26)
	v.SetDefault("certificate.topic", "Advent Of Code %d")
	v.SetDefault("storage.backend", StorageLocal)
	v.SetDefault("storage.local_dir", "public/dist")
	v.SetDefault("storage.prefix", "certificates")
	v.SetDefault("storage.cloudinary.folder", "custom_folder")
	v.SetDefault("link_preview.user_agent", "leaderboard-webhooks/1.0")
	v.SetDefault("link_preview.concurrency", 8)
}

func bindEnv(v *viper.Viper) error {
	for _, key := range envKeys {
		input := []string{key, "WEBHOOKS_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}
		input = append(input, envAliases[key]...)
		if err := v.BindEnv(input...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// normalizePatterns accepts either a list of patterns or a single JSON array
// string, which is how the blocklists were historically stored in env files.
func normalizePatterns(in []string) []string {
	if len(in) > 0 && strings.HasPrefix(strings.TrimSpace(in[0]), "[") {
		var decoded []string
		if err := json.Unmarshal([]byte(strings.Join(in, ",")), &decoded); err == nil {
			in = decoded
		}
	}
	out := make([]string, 0, len(in))
	for _, p := range in {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.APISecret == "" {
		return fmt.Errorf("auth.api_secret is required")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if _, err := c.Leaderboard.Location(); err != nil {
		return err
	}
	if err := validateEndDate(c.Certificate.EndMonth, c.Certificate.EndDay); err != nil {
		return err
	}
	if c.Certificate.Concurrency < 0 {
		return fmt.Errorf("certificate.concurrency must be >= 0")
	}
	switch c.Storage.Backend {
	case StorageLocal:
		if strings.TrimSpace(c.Storage.LocalDir) == "" {
			return fmt.Errorf("storage.local_dir is required for the local backend")
		}
	case StorageGCS:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket is required for the gcs backend")
		}
	case StorageCloudinary:
		cld := c.Storage.Cloudinary
		if cld.CloudName == "" || cld.APIKey == "" || cld.APISecret == "" {
			return fmt.Errorf("storage.cloudinary credentials are required for the cloudinary backend")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	for _, p := range append(append([]string{}, c.LinkPreview.ExcludedTitles...), c.LinkPreview.ExcludedDomains...) {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("link_preview pattern %q: %w", p, err)
		}
	}
	return nil
}

func validateEndDate(month, day int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("certificate.end_month must be within 1..12")
	}
	// 2024 is a leap year so Feb 29 stays configurable.
	last := time.Date(2024, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day < 1 || day > last {
		return fmt.Errorf("certificate.end_day must be within 1..%d", last)
	}
	return nil
}

// Require reports the first missing field the leaderboard pipeline needs.
func (l LeaderboardConfig) Require(webhookURI string) error {
	switch {
	case l.ID == "":
		return apperr.MissingField("Missing leaderboard ID")
	case l.SessionID == "":
		return apperr.MissingField("Missing session ID")
	case webhookURI == "":
		return apperr.MissingField("Missing webhook URI")
	case l.BoardCode == "":
		return apperr.MissingField("Missing Private Board Code")
	}
	return nil
}

// Location resolves the configured timezone.
func (l LeaderboardConfig) Location() (*time.Location, error) {
	if l.Timezone == "" || l.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return nil, fmt.Errorf("leaderboard.timezone: %w", err)
	}
	return loc, nil
}

// EventYear returns the configured year or the year of now.
func (l LeaderboardConfig) EventYear(now time.Time) int {
	if l.Year > 0 {
		return l.Year
	}
	return now.Year()
}

// OutboundTimeout converts the HTTP timeout into a duration.
func (c Config) OutboundTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
