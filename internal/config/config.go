package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database       string   `yaml:"database"`
	ChapterWorkers int      `yaml:"chapter_workers"`
	Timeout        int      `yaml:"timeout_seconds"`
	Sites          []string `yaml:"sites"`
	Debug          bool     `yaml:"debug"`

	Cookie     string `yaml:"cookie"`
	CookieFile string `yaml:"cookie_file"`
	UserAgent  string `yaml:"user_agent"`
}

type Options struct {
	IgnoreConfig   bool
	Debug          bool
	Database       string
	ChapterWorkers int
	Timeout        int
	Sites          []string
	Cookie         string
	CookieFile     string
	UserAgent      string
}

func DefaultConfig() *Config {
	return &Config{
		Database:       "mangacap.db",
		ChapterWorkers: 2,
		Timeout:        30,
		Sites:          nil, // all registered sites
		Debug:          false,
		Cookie:         "",
		CookieFile:     "",
		UserAgent:      "",
	}
}

// DefaultPath is where `config init` writes and where loading looks first.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "mangacap", "config.yaml"), nil
}

func SaveYAML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func loadYAML(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	return &c, nil
}

// LoadMerged loads the config file (when present) and layers CLI options on
// top. A missing file is not an error; defaults apply.
func LoadMerged(opts Options) (*Config, string, error) {
	if opts.IgnoreConfig {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(ignored config)", nil
	}

	path, err := DefaultPath()
	if err != nil {
		return nil, "", err
	}

	if _, err := os.Stat(path); err != nil {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(default config in memory)\nRun `mangacap config init` to create an actual config\n", nil
	}

	cfg, err := loadYAML(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config %s: %w", path, err)
	}

	mergeConfig(cfg, opts)
	normalizeDefaults(cfg)

	return cfg, path, nil
}

func mergeConfig(c *Config, o Options) {
	if o.Database != "" {
		c.Database = o.Database
	}
	if o.ChapterWorkers != 0 {
		c.ChapterWorkers = o.ChapterWorkers
	}
	if o.Timeout != 0 {
		c.Timeout = o.Timeout
	}
	if len(o.Sites) > 0 {
		c.Sites = o.Sites
	}
	if o.Debug {
		c.Debug = true
	}
	if o.Cookie != "" {
		c.Cookie = o.Cookie
	}
	if o.CookieFile != "" {
		c.CookieFile = o.CookieFile
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
}

func normalizeDefaults(c *Config) {
	if c.Database == "" {
		c.Database = "mangacap.db"
	}
	if c.ChapterWorkers == 0 {
		c.ChapterWorkers = 2
	}
	if c.Timeout == 0 {
		c.Timeout = 30
	}
}

// HTTPTimeout is the per-request bound every adapter fetch runs under.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c *Config) Print() {
	fmt.Printf(" -database: %s\n", c.Database)
	fmt.Printf(" -chapter_workers: %d\n", c.ChapterWorkers)
	fmt.Printf(" -timeout_seconds: %d\n", c.Timeout)
	if len(c.Sites) > 0 {
		fmt.Printf(" -sites: %s\n", strings.Join(c.Sites, ", "))
	}
	if c.Debug {
		fmt.Printf(" -debug: %t\n", c.Debug)
	}
	if c.CookieFile != "" {
		fmt.Printf(" -cookie_file: %s\n", c.CookieFile)
	}
	if c.UserAgent != "" {
		fmt.Printf(" -user_agent: %s\n", c.UserAgent)
	}
}
