package config

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/vango-dev/routekit/internal/errors"
	"github.com/vango-dev/routekit/pkg/codec"
	"github.com/vango-dev/routekit/pkg/loadercache"
	"github.com/vango-dev/routekit/pkg/router"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "routekit.json"

	// EnvFileName is loaded next to the config file when present.
	EnvFileName = ".env"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "ROUTEKIT_"

	// DefaultTree is the default route tree file.
	DefaultTree = "routes.yaml"

	// DefaultPort is the default debug server port.
	DefaultPort = 7070

	// DefaultHost is the default debug server host.
	DefaultHost = "localhost"
)

// Config represents routekit.json.
type Config struct {
	// Tree is the route tree file, relative to the config directory.
	Tree string `json:"tree,omitempty" env:"TREE"`

	// CaseSensitive makes every literal segment match exactly.
	CaseSensitive bool `json:"caseSensitive,omitempty" env:"CASE_SENSITIVE"`

	// Router contains navigation and loader settings.
	Router RouterConfig `json:"router,omitempty" envPrefix:"ROUTER_"`

	// Cache contains loader cache settings.
	Cache CacheConfig `json:"cache,omitempty" envPrefix:"CACHE_"`

	// Serve contains debug server settings.
	Serve ServeConfig `json:"serve,omitempty" envPrefix:"SERVE_"`

	// Log contains logging settings.
	Log LogConfig `json:"log,omitempty" envPrefix:"LOG_"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// RouterConfig contains navigation settings. Durations use
// time.ParseDuration syntax ("30s", "5m"). A "0" max age reloads a route
// each time a navigation enters it, "-1" is always stale and "never"
// keeps data until invalidated.
type RouterConfig struct {
	// DefaultMaxAge applies to routes without their own MaxAge.
	DefaultMaxAge string `json:"defaultMaxAge,omitempty" env:"DEFAULT_MAX_AGE"`

	// PreloadMaxAge applies to preloaded data.
	PreloadMaxAge string `json:"preloadMaxAge,omitempty" env:"PRELOAD_MAX_AGE"`

	// MaxRedirects bounds the redirects followed by one navigation.
	MaxRedirects int `json:"maxRedirects,omitempty" env:"MAX_REDIRECTS"`

	// Codec selects the dehydration wire format: "msgpack" or "json".
	Codec string `json:"codec,omitempty" env:"CODEC"`
}

// CacheConfig contains loader cache settings.
type CacheConfig struct {
	// MaxEntries bounds the cache.
	MaxEntries int `json:"maxEntries,omitempty" env:"MAX_ENTRIES"`

	// GCTime is how long expired entries survive.
	GCTime string `json:"gcTime,omitempty" env:"GC_TIME"`
}

// ServeConfig contains debug server settings.
type ServeConfig struct {
	Host string `json:"host,omitempty" env:"HOST"`
	Port int    `json:"port,omitempty" env:"PORT"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level,omitempty" env:"LEVEL"`

	// Format is text or json.
	Format string `json:"format,omitempty" env:"FORMAT"`
}

// New returns a configuration with default values.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads routekit.json from dir, then applies .env and ROUTEKIT_*
// overrides. A missing file is not an error; defaults are used.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFileName)
	cfg, err := LoadFile(path)
	if err != nil {
		if errors.CodeOf(err) != "R103" {
			return nil, err
		}
		cfg = New()
		cfg.configPath = path
	}
	if err := loadDotEnv(filepath.Join(dir, EnvFileName)); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads configuration from the specified file path. Environment
// overrides are not applied.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("R103").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path))
		}
		return nil, errors.New("R101").Wrap(err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("R101").
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// loadDotEnv loads path into the process environment without overriding
// variables that are already set.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.New("R101").
			WithDetail("Failed to parse " + path + ": " + err.Error())
	}
	return nil
}

// ApplyEnv overlays ROUTEKIT_* environment variables.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return errors.New("R101").Wrap(err)
	}
	c.applyDefaults()
	return nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("R101").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New("R101").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

func (c *Config) applyDefaults() {
	if c.Tree == "" {
		c.Tree = DefaultTree
	}
	if c.Router.DefaultMaxAge == "" {
		c.Router.DefaultMaxAge = "0"
	}
	if c.Router.PreloadMaxAge == "" {
		c.Router.PreloadMaxAge = router.DefaultPreloadMaxAge.String()
	}
	if c.Router.MaxRedirects == 0 {
		c.Router.MaxRedirects = router.DefaultMaxRedirects
	}
	if c.Router.Codec == "" {
		c.Router.Codec = string(codec.MsgPack)
	}
	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = loadercache.DefaultMaxEntries
	}
	if c.Cache.GCTime == "" {
		c.Cache.GCTime = loadercache.DefaultGCTime.String()
	}
	if c.Serve.Host == "" {
		c.Serve.Host = DefaultHost
	}
	if c.Serve.Port == 0 {
		c.Serve.Port = DefaultPort
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Serve.Port < 0 || c.Serve.Port > 65535 {
		return errors.New("R101").
			WithDetail("serve.port must be between 0 and 65535")
	}
	if c.Router.MaxRedirects < 0 {
		return errors.New("R101").
			WithDetail("router.maxRedirects must not be negative")
	}
	if _, err := codec.ParseFormat(c.Router.Codec); err != nil {
		return errors.New("R101").Wrap(err)
	}
	durations := []struct{ name, value string }{
		{"router.defaultMaxAge", c.Router.DefaultMaxAge},
		{"router.preloadMaxAge", c.Router.PreloadMaxAge},
		{"cache.gcTime", c.Cache.GCTime},
	}
	for _, d := range durations {
		if _, err := parseDuration(d.value); err != nil {
			return errors.New("R101").
				WithDetail(d.name + ": " + err.Error())
		}
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return errors.New("R101").Wrap(err)
	}
	return nil
}

// parseDuration accepts time.ParseDuration syntax, bare integers read as
// seconds so "0" and "-1" work, and "never".
func parseDuration(s string) (time.Duration, error) {
	if s == "never" {
		return loadercache.NeverExpires, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return loadercache.AlwaysStale, nil
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return loadercache.AlwaysStale, nil
	}
	return d, nil
}

// CacheOptions converts cache settings into loadercache options.
func (c *Config) CacheOptions() ([]loadercache.Option, error) {
	gc, err := parseDuration(c.Cache.GCTime)
	if err != nil {
		return nil, errors.New("R101").WithDetail("cache.gcTime: " + err.Error())
	}
	return []loadercache.Option{
		loadercache.WithMaxEntries(c.Cache.MaxEntries),
		loadercache.WithGCTime(gc),
	}, nil
}

// TreeOptions converts matching settings into tree options.
func (c *Config) TreeOptions() []router.TreeOption {
	return []router.TreeOption{router.WithCaseSensitive(c.CaseSensitive)}
}

// RouterOptions converts the file configuration into router options.
// Extra cache options, such as telemetry hooks, are applied after the
// configured ones.
func (c *Config) RouterOptions(cacheOpts ...loadercache.Option) ([]router.Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	maxAge, _ := parseDuration(c.Router.DefaultMaxAge)
	preload, _ := parseDuration(c.Router.PreloadMaxAge)

	opts, err := c.CacheOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts, cacheOpts...)

	return []router.Option{
		router.WithCache(loadercache.New(opts...)),
		router.WithDefaultMaxAge(maxAge),
		router.WithPreloadMaxAge(preload),
		router.WithMaxRedirects(c.Router.MaxRedirects),
		router.WithLogger(c.Logger(os.Stderr).With("component", "router")),
	}, nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(s))
	return l, err
}

// Logger builds a slog.Logger from the log settings.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Format returns the dehydration wire format. Invalid values fall back to
// msgpack; Validate reports them.
func (c *Config) Format() codec.Format {
	f, err := codec.ParseFormat(c.Router.Codec)
	if err != nil {
		return codec.MsgPack
	}
	return f
}

// TreePath returns the absolute path to the route tree file.
func (c *Config) TreePath() string {
	if filepath.IsAbs(c.Tree) {
		return c.Tree
	}
	return filepath.Join(c.Dir(), c.Tree)
}

// ServeAddress returns the debug server listen address.
func (c *Config) ServeAddress() string {
	return c.Serve.Host + ":" + strconv.Itoa(c.Serve.Port)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the directory containing
// routekit.json.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("R103").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}
