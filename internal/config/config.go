package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	HomeEnv  = "CSHARPLS_HOME"
	TokenEnv = "GITHUB_TOKEN"
)

type Config struct {
	ToolsDir     string   `toml:"tools_dir" yaml:"tools_dir"`
	CacheDir     string   `toml:"cache_dir" yaml:"cache_dir"`
	StateDB      string   `toml:"state_db" yaml:"state_db"`
	ManifestFile string   `toml:"manifest_file" yaml:"manifest_file"`
	LogFile      string   `toml:"log_file" yaml:"log_file"`
	LogLevel     string   `toml:"log_level" yaml:"log_level"`
	GitHubAPI    string   `toml:"github_api" yaml:"github_api"`
	GitHubToken  string   `toml:"github_token,omitempty" yaml:"github_token,omitempty"`
	CatalogTTL   Duration `toml:"catalog_ttl" yaml:"catalog_ttl"`
	MaxAttempts  int      `toml:"max_attempts" yaml:"max_attempts"`
	MaxPolls     int      `toml:"max_polls" yaml:"max_polls"`
	PollInterval Duration `toml:"poll_interval" yaml:"poll_interval"`
	HTTPTimeout  Duration `toml:"http_timeout" yaml:"http_timeout"`
	MaxParallel  int      `toml:"max_parallel" yaml:"max_parallel"`
}

// Duration reads and writes as a Go duration string such as "90s".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// BaseDir is $CSHARPLS_HOME, or ~/.csharpls.
func BaseDir() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".csharpls"
	}
	return filepath.Join(home, ".csharpls")
}

func DefaultConfig() *Config {
	base := BaseDir()

	return &Config{
		ToolsDir:     filepath.Join(base, "tools"),
		CacheDir:     filepath.Join(base, "cache"),
		StateDB:      filepath.Join(base, "state.db"),
		ManifestFile: filepath.Join(base, "installed.json"),
		LogFile:      filepath.Join(base, "csharp_extension_debug.log"),
		LogLevel:     "Information",
		GitHubAPI:    "https://api.github.com",
		CatalogTTL:   Duration{time.Hour},
		MaxAttempts:  3,
		MaxPolls:     50,
		HTTPTimeout:  Duration{5 * time.Minute},
		MaxParallel:  2,
	}
}

// Path returns the config file to read: config.toml if present, else
// config.yaml if present, else config.toml.
func Path() string {
	base := BaseDir()
	for _, name := range []string{"config.toml", "config.yaml", "config.yml"} {
		p := filepath.Join(base, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(base, "config.toml")
}

// Load reads the config at path over the defaults. An empty path means
// Path(). A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = Path()
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, err
	case isYAML(path):
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if cfg.GitHubToken == "" {
		cfg.GitHubToken = os.Getenv(TokenEnv)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.MaxPolls < 0 {
		return fmt.Errorf("max_polls must not be negative, got %d", c.MaxPolls)
	}
	if c.PollInterval.Duration < 0 {
		return fmt.Errorf("poll_interval must not be negative")
	}
	if c.MaxParallel < 1 {
		c.MaxParallel = 1
	}
	return nil
}

// Save writes cfg to path, choosing YAML or TOML by extension.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = Path()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if isYAML(path) {
		enc := yaml.NewEncoder(f)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	}
	return toml.NewEncoder(f).Encode(cfg)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
