// Package config is the persisted hubsync client configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/contenthub/hubsync/internal/utils"
)

const (
	FileName      = "config.json"
	DirName       = ".hubsync"
	EnvToken      = "HUBSYNC_TOKEN"
	EnvConfigPath = "HUBSYNC_CONFIG_PATH"
)

var (
	home, _           = os.UserHomeDir()
	DefaultConfigPath = filepath.Join(home, DirName, FileName)
	DefaultServerURL  = "http://localhost:8080"
)

var (
	ErrNoWorkDir   = errors.New("config: working directory missing")
	ErrNoTenant    = errors.New("config: tenant missing")
	ErrServerURL   = errors.New("config: invalid server url")
	ErrConcurrency = errors.New("config: concurrency must not be negative")
	ErrRateLimit   = errors.New("config: rate limit must not be negative")
)

type Config struct {
	WorkDir     string  `json:"work_dir"`
	ServerURL   string  `json:"server_url"`
	Tenant      string  `json:"tenant"`
	Concurrency int     `json:"concurrency,omitempty"`
	RateLimit   float64 `json:"rate_limit,omitempty"`
	Token       string  `json:"-"` // from HUBSYNC_TOKEN only
	Path        string  `json:"-"`
}

// WorkDirConfigPath returns the config file kept inside a working directory.
func WorkDirConfigPath(workDir string) string {
	return filepath.Join(workDir, DirName, FileName)
}

// Validate resolves paths to absolute form and checks the server url.
func (c *Config) Validate() error {
	if c.WorkDir == "" {
		return ErrNoWorkDir
	}
	workDir, err := utils.ResolvePath(c.WorkDir)
	if err != nil {
		return fmt.Errorf("config: resolve work dir: %w", err)
	}
	c.WorkDir = workDir

	if c.Path != "" {
		path, err := utils.ResolvePath(c.Path)
		if err != nil {
			return fmt.Errorf("config: resolve path: %w", err)
		}
		c.Path = path
	}

	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w %q: must be http(s)://host", ErrServerURL, c.ServerURL)
	}
	c.ServerURL = strings.TrimRight(c.ServerURL, "/")

	c.Tenant = strings.TrimSpace(c.Tenant)
	if c.Tenant == "" {
		return ErrNoTenant
	}
	if c.Concurrency < 0 {
		return ErrConcurrency
	}
	if c.RateLimit < 0 {
		return ErrRateLimit
	}
	return nil
}

func (c *Config) Save(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return utils.WriteFileAtomic(path, data, 0o600)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.Path = path
	cfg.Token = os.Getenv(EnvToken)
	return &cfg, nil
}

// String is safe to log.
func (c *Config) String() string {
	token := "<none>"
	if c.Token != "" {
		token = utils.MaskSecret(c.Token)
	}
	return fmt.Sprintf("workdir=%s server=%s tenant=%s token=%s", c.WorkDir, c.ServerURL, c.Tenant, token)
}
