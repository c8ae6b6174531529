// Package config loads the exporter configuration from an optional .env file,
// an optional YAML file and environment variables, in that order of
// precedence (later wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jatushlashkari/finance-v1/pkg/client"
	"github.com/jatushlashkari/finance-v1/pkg/export"
	"github.com/jatushlashkari/finance-v1/pkg/logging"
	"github.com/jatushlashkari/finance-v1/pkg/notifier"
	"github.com/jatushlashkari/finance-v1/pkg/pagination"
	"github.com/jatushlashkari/finance-v1/pkg/runlock"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvConfigFile   = "WITHDRAW_CONFIG"
	EnvToken        = "WITHDRAW_TOKEN"
	EnvProducerURL  = "WITHDRAW_PRODUCER_URL"
	EnvDetailURL    = "WITHDRAW_DETAIL_URL"
	EnvProfile      = "WITHDRAW_PROFILE"
	EnvMaxPages     = "WITHDRAW_MAX_PAGES"
	EnvPageSize     = "WITHDRAW_PAGE_SIZE"
	EnvMinDelay     = "WITHDRAW_MIN_DELAY"
	EnvMaxDelay     = "WITHDRAW_MAX_DELAY"
	EnvPageDelay    = "WITHDRAW_PAGE_DELAY"
	EnvOutputDir    = "WITHDRAW_OUTPUT_DIR"
	EnvHTTPTimeout  = "WITHDRAW_HTTP_TIMEOUT"
	EnvLogLevel     = "LOG_LEVEL"
	EnvLogPretty    = "LOG_PRETTY"
	EnvRedisAddr    = "REDIS_ADDR"
	EnvLockTTL      = "WITHDRAW_LOCK_TTL"
	EnvMetricsFile  = "METRICS_TEXTFILE"
	DefaultFileName = "config.yaml"
)

// Defaults for the tracking event.
const (
	DefaultPN       = "hy"
	DefaultPlatform = "vungo"
	DefaultEventKey = "tcpa_w/d_Historical"
)

// Account identifies the app installation whose withdrawal history is
// exported, and the token the detail endpoint is called with.
type Account struct {
	Code      string `yaml:"code"`
	Package   string `yaml:"pkg"`
	Channel   string `yaml:"channel"`
	PN        string `yaml:"pn"`
	Platform  string `yaml:"platform"`
	AID       string `yaml:"aid"`
	GAID      string `yaml:"gaid"`
	UID       string `yaml:"uid"`
	EventKey  string `yaml:"event_key"`
	Token     string `yaml:"token"`
	UserAgent string `yaml:"user_agent"`
}

// merge overlays the non-empty fields of o onto a.
func (a Account) merge(o Account) Account {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&a.Code, o.Code)
	set(&a.Package, o.Package)
	set(&a.Channel, o.Channel)
	set(&a.PN, o.PN)
	set(&a.Platform, o.Platform)
	set(&a.AID, o.AID)
	set(&a.GAID, o.GAID)
	set(&a.UID, o.UID)
	set(&a.EventKey, o.EventKey)
	set(&a.Token, o.Token)
	set(&a.UserAgent, o.UserAgent)
	return a
}

// Config is the complete exporter configuration.
type Config struct {
	ProducerURL string `yaml:"producer_url"`
	DetailURL   string `yaml:"detail_url"`
	Origin      string `yaml:"origin"`
	Referer     string `yaml:"referer"`

	Account `yaml:",inline"`

	// Profile selects one of Profiles. Its fields override Account.
	Profile  string             `yaml:"profile"`
	Profiles map[string]Account `yaml:"profiles"`

	MaxPages    int           `yaml:"max_pages"`
	PageSize    int           `yaml:"page_size"`
	MinDelay    time.Duration `yaml:"min_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	PageDelay   time.Duration `yaml:"page_delay"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	OutputDir string `yaml:"output_dir"`
	SheetName string `yaml:"sheet_name"`

	LogLevel  string `yaml:"log_level"`
	LogPretty bool   `yaml:"log_pretty"`

	// RedisAddr enables the run lock when set.
	RedisAddr string        `yaml:"redis_addr"`
	LockTTL   time.Duration `yaml:"lock_ttl"`

	// MetricsTextfile, when set, receives the run's metrics in Prometheus
	// text format on exit.
	MetricsTextfile string `yaml:"metrics_textfile"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	pg := pagination.DefaultConfig()
	return &Config{
		Account: Account{
			PN:        DefaultPN,
			Platform:  DefaultPlatform,
			EventKey:  DefaultEventKey,
			UserAgent: client.DefaultUserAgent,
		},
		MaxPages:    pg.MaxPages,
		PageSize:    pg.PageSize,
		MinDelay:    pg.MinDelay,
		MaxDelay:    pg.MaxDelay,
		PageDelay:   pg.PageDelay,
		HTTPTimeout: 30 * time.Second,
		OutputDir:   ".",
		SheetName:   export.DefaultSheetName,
		LogLevel:    string(logging.LevelInfo),
		LogPretty:   true,
		LockTTL:     runlock.DefaultTTL,
	}
}

// Load builds the configuration: defaults, then .env, then the YAML file
// named by WITHDRAW_CONFIG (or config.yaml if present), then environment
// variables. The result is validated.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env file: %w", err)
	}

	cfg := Default()

	path := os.Getenv(EnvConfigFile)
	if path == "" {
		if _, err := os.Stat(DefaultFileName); err == nil {
			path = DefaultFileName
		}
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv selects the profile and applies environment overrides. lookup is
// normally os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		return v, ok && v != ""
	}

	if v, ok := get(EnvProfile); ok {
		c.Profile = v
	}
	if err := c.resolveProfile(); err != nil {
		return err
	}

	strs := map[string]*string{
		EnvToken:       &c.Token,
		EnvProducerURL: &c.ProducerURL,
		EnvDetailURL:   &c.DetailURL,
		EnvOutputDir:   &c.OutputDir,
		EnvLogLevel:    &c.LogLevel,
		EnvRedisAddr:   &c.RedisAddr,
		EnvMetricsFile: &c.MetricsTextfile,
	}
	for key, dst := range strs {
		if v, ok := get(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		EnvMaxPages: &c.MaxPages,
		EnvPageSize: &c.PageSize,
	}
	for key, dst := range ints {
		if v, ok := get(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		EnvMinDelay:    &c.MinDelay,
		EnvMaxDelay:    &c.MaxDelay,
		EnvPageDelay:   &c.PageDelay,
		EnvHTTPTimeout: &c.HTTPTimeout,
		EnvLockTTL:     &c.LockTTL,
	}
	for key, dst := range durations {
		if v, ok := get(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}

	if v, ok := get(EnvLogPretty); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvLogPretty, err)
		}
		c.LogPretty = b
	}

	return nil
}

// resolveProfile merges the selected profile into Account.
func (c *Config) resolveProfile() error {
	if c.Profile == "" {
		return nil
	}
	p, ok := c.Profiles[c.Profile]
	if !ok {
		return fmt.Errorf("unknown profile %q", c.Profile)
	}
	c.Account = c.Account.merge(p)
	return nil
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("token is required (set %s)", EnvToken)
	}
	if c.ProducerURL == "" {
		return fmt.Errorf("producer url is required (set %s)", EnvProducerURL)
	}
	if c.DetailURL == "" {
		return fmt.Errorf("detail url is required (set %s)", EnvDetailURL)
	}
	if c.Code == "" {
		return fmt.Errorf("event code is required")
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http timeout must be >= 0 (got %s)", c.HTTPTimeout)
	}
	if c.RedisAddr != "" && c.LockTTL <= 0 {
		return fmt.Errorf("lock ttl must be > 0 (got %s)", c.LockTTL)
	}
	return c.Pagination().Validate()
}

// Redacted returns a copy safe to log: every token is masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Token = mask(c.Token)
	if c.Profiles != nil {
		out.Profiles = make(map[string]Account, len(c.Profiles))
		for name, p := range c.Profiles {
			p.Token = mask(p.Token)
			out.Profiles[name] = p
		}
	}
	return &out
}

// MarshalZerologObject logs the non-secret settings.
func (c *Config) MarshalZerologObject(e *zerolog.Event) {
	e.Str("code", c.Code).
		Str("profile", c.Profile).
		Str("token", mask(c.Token)).
		Str("producer_url", c.ProducerURL).
		Str("detail_url", c.DetailURL).
		Int("max_pages", c.MaxPages).
		Int("page_size", c.PageSize).
		Dur("min_delay", c.MinDelay).
		Dur("max_delay", c.MaxDelay).
		Dur("page_delay", c.PageDelay).
		Str("output_dir", c.OutputDir).
		Bool("run_lock", c.RedisAddr != "")
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****"
}

// Client returns the HTTP client configuration.
func (c *Config) Client() client.Config {
	return client.Config{
		UserAgent: c.UserAgent,
		Origin:    c.Origin,
		Referer:   c.Referer,
		Timeout:   c.HTTPTimeout,
	}
}

// Event returns the tracking event identity.
func (c *Config) Event() notifier.Event {
	return notifier.Event{
		Code:     c.Code,
		Package:  c.Package,
		Channel:  c.Channel,
		PN:       c.PN,
		Platform: c.Platform,
		AID:      c.AID,
		GAID:     c.GAID,
		UID:      c.UID,
		EventKey: c.EventKey,
	}
}

// Pagination returns the paginator configuration.
func (c *Config) Pagination() pagination.Config {
	return pagination.Config{
		MaxPages:  c.MaxPages,
		PageSize:  c.PageSize,
		MinDelay:  c.MinDelay,
		MaxDelay:  c.MaxDelay,
		PageDelay: c.PageDelay,
	}
}

// Export returns the exporter configuration.
func (c *Config) Export() export.Config {
	return export.Config{
		Dir:       c.OutputDir,
		SheetName: c.SheetName,
	}
}

// Logging returns the logger configuration.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.LogLevel)
	cfg.Pretty = c.LogPretty
	return cfg
}

// LockName names the run lock after the event code, one lock per account.
func (c *Config) LockName() string {
	return c.Code
}
