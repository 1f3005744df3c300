// Package config loads orgpulse settings from defaults, an optional TOML
// file, ORGPULSE_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/oauth2/github"
)

const (
	EnvPrefix = "ORGPULSE"
	appDir    = ".orgpulse"
)

type Config struct {
	APIURL   string         `mapstructure:"api_url"`
	LogPath  string         `mapstructure:"log_path"`
	GitHub   GitHubConfig   `mapstructure:"github"`
	Callback CallbackConfig `mapstructure:"callback"`
	Query    QueryConfig    `mapstructure:"query"`
	HTTP     HTTPConfig     `mapstructure:"http"`
}

type GitHubConfig struct {
	ClientID     string   `mapstructure:"client_id"`
	AuthorizeURL string   `mapstructure:"authorize_url"`
	Scopes       []string `mapstructure:"scopes"`
}

// CallbackConfig is the local listener the authorization redirect returns
// to. An empty address disables it.
type CallbackConfig struct {
	Addr string `mapstructure:"addr"`
}

type QueryConfig struct {
	PageSize       int           `mapstructure:"page_size"`
	SearchDebounce time.Duration `mapstructure:"search_debounce"`
}

type HTTPConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	Burst           int           `mapstructure:"burst"`
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"api-url":       "api_url",
	"client-id":     "github.client_id",
	"callback-addr": "callback.addr",
	"page-size":     "query.page_size",
}

// RegisterFlags adds every flag Load understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a TOML config file (default ~/.orgpulse/config.toml)")
	fs.String("api-url", "", "statistics service base URL")
	fs.String("client-id", "", "GitHub OAuth client id used for :connect")
	fs.String("callback-addr", "", "address of the local authorization callback listener")
	fs.Int("page-size", 0, "rows per statistics page")
	fs.String("token", "", "store this credential before starting, as if delivered by the callback")
	fs.Bool("init-config", false, "write a default config file and exit")
	fs.Bool("debug", false, "keep debug entries in the log")
}

func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return appDir
	}
	return filepath.Join(home, appDir)
}

func DefaultConfigPath() string {
	return filepath.Join(Dir(), "config.toml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", "http://localhost:3000/api/github")
	v.SetDefault("log_path", filepath.Join(Dir(), "orgpulse.log"))

	v.SetDefault("github.client_id", "")
	v.SetDefault("github.authorize_url", github.Endpoint.AuthURL)
	v.SetDefault("github.scopes", []string{"repo", "user"})

	v.SetDefault("callback.addr", "127.0.0.1:4280")

	v.SetDefault("query.page_size", 10)
	v.SetDefault("query.search_debounce", "800ms")

	v.SetDefault("http.timeout", "30s")
	v.SetDefault("http.rate_limit", 10.0)
	v.SetDefault("http.burst", 5)
	v.SetDefault("http.breaker_failures", 5)
	v.SetDefault("http.breaker_cooldown", "30s")
}

// Load resolves the configuration. flags may be nil; only flags the user
// actually set override lower layers.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configFile := ""
	if flags != nil {
		if f := flags.Lookup("config"); f != nil {
			configFile = f.Value.String()
		}
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(Dir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api_url %q must be an absolute URL", c.APIURL)
	}
	if c.Query.PageSize <= 0 {
		return fmt.Errorf("query.page_size must be positive, got %d", c.Query.PageSize)
	}
	if c.Query.SearchDebounce <= 0 {
		return fmt.Errorf("query.search_debounce must be positive, got %s", c.Query.SearchDebounce)
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive, got %s", c.HTTP.Timeout)
	}
	if c.HTTP.RateLimit < 0 {
		return fmt.Errorf("http.rate_limit must not be negative")
	}
	return nil
}

// fileConfig is the on-disk shape. Durations are written as strings so the
// file stays readable.
type fileConfig struct {
	APIURL  string `toml:"api_url"`
	LogPath string `toml:"log_path"`
	GitHub  struct {
		ClientID     string   `toml:"client_id"`
		AuthorizeURL string   `toml:"authorize_url"`
		Scopes       []string `toml:"scopes"`
	} `toml:"github"`
	Callback struct {
		Addr string `toml:"addr"`
	} `toml:"callback"`
	Query struct {
		PageSize       int    `toml:"page_size"`
		SearchDebounce string `toml:"search_debounce"`
	} `toml:"query"`
	HTTP struct {
		Timeout         string  `toml:"timeout"`
		RateLimit       float64 `toml:"rate_limit"`
		Burst           int     `toml:"burst"`
		BreakerFailures uint32  `toml:"breaker_failures"`
		BreakerCooldown string  `toml:"breaker_cooldown"`
	} `toml:"http"`
}

func toFile(c *Config) fileConfig {
	var f fileConfig
	f.APIURL = c.APIURL
	f.LogPath = c.LogPath
	f.GitHub.ClientID = c.GitHub.ClientID
	f.GitHub.AuthorizeURL = c.GitHub.AuthorizeURL
	f.GitHub.Scopes = c.GitHub.Scopes
	f.Callback.Addr = c.Callback.Addr
	f.Query.PageSize = c.Query.PageSize
	f.Query.SearchDebounce = c.Query.SearchDebounce.String()
	f.HTTP.Timeout = c.HTTP.Timeout.String()
	f.HTTP.RateLimit = c.HTTP.RateLimit
	f.HTTP.Burst = c.HTTP.Burst
	f.HTTP.BreakerFailures = c.HTTP.BreakerFailures
	f.HTTP.BreakerCooldown = c.HTTP.BreakerCooldown.String()
	return f
}

// Defaults returns the built-in configuration, ignoring files and environment.
func Defaults() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal defaults: %w", err)
	}
	return &cfg, nil
}

// WriteDefault writes the built-in configuration to path. An existing file
// is left alone.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}

	cfg, err := Defaults()
	if err != nil {
		return err
	}

	data, err := toml.Marshal(toFile(cfg))
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
