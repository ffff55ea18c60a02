// Package config builds the process configuration once at startup from
// defaults, an optional YAML file, a .env file and the environment.
//
// Only settings the server needs are read. Application secrets living in
// the same environment (session keys, admin PINs, wallet seeds) are never
// loaded, so a Config can be printed or logged safely.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ModeProduction  = "production"
	ModeDevelopment = "development"
)

type Config struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	AssetRoot   string        `yaml:"asset_root"`
	ShellFile   string        `yaml:"shell_file"`
	AssetsDir   string        `yaml:"assets_dir"`
	AssetMaxAge time.Duration `yaml:"asset_max_age"`

	Mode    string `yaml:"mode"`
	LogFile string `yaml:"log_file"`

	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`

	StartRetries int           `yaml:"start_retries"`
	RetryDelay   time.Duration `yaml:"retry_delay"`

	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig enables Let's Encrypt certificates when Domains is non-empty.
type TLSConfig struct {
	Domains  []string `yaml:"domains"`
	CacheDir string   `yaml:"cache_dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host:              "0.0.0.0",
		Port:              8080,
		AssetRoot:         "./dist",
		ShellFile:         "index.html",
		AssetsDir:         "assets",
		AssetMaxAge:       365 * 24 * time.Hour,
		Mode:              ModeProduction,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		StartRetries:      10,
		RetryDelay:        5 * time.Second,
		TLS:               TLSConfig{CacheDir: "./certs"},
	}
}

// Options controls where Load looks for configuration.
type Options struct {
	// File is an optional YAML file. When empty, CONFIG_PATH is consulted.
	File string
	// EnvFiles are .env files merged into the environment. Missing files
	// are skipped. Nil means ".env".
	EnvFiles []string
	// Lookup reads environment variables. Nil means os.LookupEnv.
	Lookup func(string) (string, bool)
}

// Load assembles the configuration. It does not validate; call Validate
// once command-line overrides have been applied.
func Load(opts Options) (*Config, error) {
	envFiles := opts.EnvFiles
	if envFiles == nil {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	cfg := Default()

	file := opts.File
	if file == "" {
		file, _ = lookup("CONFIG_PATH")
	}
	if file != "" {
		if err := cfg.mergeFile(file); err != nil {
			return nil, err
		}
	}

	if err := cfg.mergeEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv(lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: not an integer: %q", key, v))
			return
		}
		*dst = n
	}
	dur := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}

	str("HOST", &c.Host)
	num("PORT", &c.Port)
	str("ASSET_ROOT", &c.AssetRoot)
	str("SHELL_FILE", &c.ShellFile)
	str("ASSETS_DIR", &c.AssetsDir)
	dur("ASSET_MAX_AGE", &c.AssetMaxAge)
	str("APP_ENV", &c.Mode)
	str("LOG_FILE", &c.LogFile)
	dur("READ_HEADER_TIMEOUT", &c.ReadHeaderTimeout)
	dur("READ_TIMEOUT", &c.ReadTimeout)
	dur("WRITE_TIMEOUT", &c.WriteTimeout)
	dur("IDLE_TIMEOUT", &c.IdleTimeout)
	dur("SHUTDOWN_TIMEOUT", &c.ShutdownTimeout)
	num("START_RETRIES", &c.StartRetries)
	dur("RETRY_DELAY", &c.RetryDelay)
	str("TLS_CACHE_DIR", &c.TLS.CacheDir)
	if v, ok := lookup("TLS_DOMAINS"); ok && strings.TrimSpace(v) != "" {
		c.TLS.Domains = splitList(v)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports every problem with c at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range 1-65535", c.Port))
	}
	if info, err := os.Stat(c.AssetRoot); err != nil {
		errs = append(errs, fmt.Errorf("asset_root: %w", err))
	} else if !info.IsDir() {
		errs = append(errs, fmt.Errorf("asset_root %s is not a directory", c.AssetRoot))
	}
	if err := checkName(c.ShellFile); err != nil {
		errs = append(errs, fmt.Errorf("shell_file: %w", err))
	}
	if err := checkName(c.AssetsDir); err != nil {
		errs = append(errs, fmt.Errorf("assets_dir: %w", err))
	}
	if c.Mode != ModeProduction && c.Mode != ModeDevelopment {
		errs = append(errs, fmt.Errorf("mode %q must be %q or %q", c.Mode, ModeProduction, ModeDevelopment))
	}
	for _, f := range []struct {
		name string
		d    time.Duration
	}{
		{"asset_max_age", c.AssetMaxAge},
		{"read_header_timeout", c.ReadHeaderTimeout},
		{"read_timeout", c.ReadTimeout},
		{"write_timeout", c.WriteTimeout},
		{"idle_timeout", c.IdleTimeout},
		{"shutdown_timeout", c.ShutdownTimeout},
	} {
		if f.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", f.name, f.d))
		}
	}
	if c.StartRetries < 1 {
		errs = append(errs, fmt.Errorf("start_retries must be at least 1, got %d", c.StartRetries))
	}
	if c.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("retry_delay must not be negative, got %s", c.RetryDelay))
	}
	if len(c.TLS.Domains) > 0 && c.TLS.CacheDir == "" {
		errs = append(errs, errors.New("tls.cache_dir is required when tls.domains is set"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: invalid: %w", errors.Join(errs...))
	}
	return nil
}

// checkName accepts a single path element inside the asset root.
func checkName(name string) error {
	switch {
	case name == "":
		return errors.New("must not be empty")
	case name == "." || name == "..":
		return fmt.Errorf("%q is not a file name", name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%q must be a single name without separators", name)
	}
	return nil
}

// Addr is the listen address for plain HTTP.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Development reports whether development mode is on.
func (c *Config) Development() bool { return c.Mode == ModeDevelopment }

// TLSEnabled reports whether certificates should be obtained automatically.
func (c *Config) TLSEnabled() bool { return len(c.TLS.Domains) > 0 }

// YAML renders c in the config file format.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
