// Package config loads and writes the workspace configuration.
//
// A workspace is any directory containing a .drawbridge/ directory,
// found by walking up from the working directory. Config lives in
// .drawbridge/config.toml; sync state and the artifact cache live next
// to it. Credentials never appear in the file: they are resolved from
// the environment at the CLI boundary and passed on as explicit
// values.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/mlorenz/drawbridge/pkg/confluence"
	"github.com/mlorenz/drawbridge/pkg/errors"
)

const (
	// Dir is the workspace directory name.
	Dir = ".drawbridge"
	// File is the config file name inside Dir.
	File = "config.toml"
	// StateFile is the sync-state file name inside Dir.
	StateFile = "state.json"
	// CacheDir is the artifact-cache directory name inside Dir.
	CacheDir = "cache"
)

// Environment variables credentials are resolved from.
const (
	EnvPAT      = "CONFLUENCE_PAT"
	EnvUser     = "CONFLUENCE_USER"
	EnvPassword = "CONFLUENCE_PASS"
)

// Config is the workspace configuration.
type Config struct {
	Confluence ConfluenceConfig `toml:"confluence"`
	Export     ExportConfig     `toml:"export"`
	Editor     EditorConfig     `toml:"editor"`
	State      StateConfig      `toml:"state"`
	Cache      CacheConfig      `toml:"cache"`
}

// ConfluenceConfig points at the wiki instance.
type ConfluenceConfig struct {
	BaseURL string `toml:"base_url"`
	// AuthType is "pat" or "basic".
	AuthType  string `toml:"auth_type"`
	SSLVerify bool   `toml:"ssl_verify"`
}

// ExportConfig tunes image rendering.
type ExportConfig struct {
	DefaultFormat string `toml:"default_format"`
	PNGScale      int    `toml:"png_scale"`
}

// EditorConfig locates the draw.io desktop app when auto-detection is
// not enough.
type EditorConfig struct {
	DesktopPath string `toml:"desktop_path,omitempty"`
}

// StateConfig selects the sync-record backend.
type StateConfig struct {
	// Backend is "file" (default) or "mongo".
	Backend       string `toml:"backend"`
	MongoURI      string `toml:"mongo_uri,omitempty"`
	MongoDatabase string `toml:"mongo_database,omitempty"`
}

// CacheConfig selects the artifact-cache backend.
type CacheConfig struct {
	// Backend is "file" (default), "redis" or "none".
	Backend       string `toml:"backend"`
	RedisAddr     string `toml:"redis_addr,omitempty"`
	RedisDB       int    `toml:"redis_db,omitempty"`
	RedisPassword string `toml:"-"`
}

// Default returns the configuration written by init.
func Default() *Config {
	return &Config{
		Confluence: ConfluenceConfig{AuthType: "pat", SSLVerify: true},
		Export:     ExportConfig{DefaultFormat: "png", PNGScale: 2},
		State:      StateConfig{Backend: "file"},
		Cache:      CacheConfig{Backend: "file"},
	}
}

// Configured reports whether enough is set to reach the wiki.
func (c *Config) Configured() bool {
	return c.Confluence.BaseURL != ""
}

// FindWorkspaceRoot walks up from start looking for the workspace
// directory. Returns "" when no workspace exists.
func FindWorkspaceRoot(start string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		return ""
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, Dir)); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Load reads the workspace config, filling defaults for anything the
// file leaves out.
func Load(root string) (*Config, error) {
	cfg := Default()
	path := filepath.Join(root, Dir, File)
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeNotConfigured, "no workspace config at %s; run init first", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parsing %s", path)
	}
	if cfg.Export.DefaultFormat == "" {
		cfg.Export.DefaultFormat = "png"
	}
	if cfg.Export.PNGScale == 0 {
		cfg.Export.PNGScale = 2
	}
	if cfg.State.Backend == "" {
		cfg.State.Backend = "file"
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "file"
	}
	return cfg, nil
}

// Save writes the config into the workspace, creating the workspace
// directory if needed.
func Save(root string, cfg *Config) error {
	dir := filepath.Join(root, Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "creating %s", dir)
	}
	f, err := os.Create(filepath.Join(dir, File))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "writing config")
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encoding config")
	}
	return nil
}

// StatePath returns the sync-state file path for a workspace.
func StatePath(root string) string {
	return filepath.Join(root, Dir, StateFile)
}

// CachePath returns the artifact-cache directory for a workspace.
func CachePath(root string) string {
	return filepath.Join(root, Dir, CacheDir)
}

// ResolveCredentials builds credentials from the environment according
// to the configured auth type. This is the only place the process
// environment is consulted for secrets.
func (c *ConfluenceConfig) ResolveCredentials() (confluence.Credentials, error) {
	switch c.AuthType {
	case "", "pat":
		token := os.Getenv(EnvPAT)
		if token == "" {
			return confluence.Credentials{}, errors.New(errors.ErrCodeNotConfigured,
				"%s is not set; export a personal access token", EnvPAT)
		}
		return confluence.Credentials{Token: token}, nil
	case "basic":
		user, pass := os.Getenv(EnvUser), os.Getenv(EnvPassword)
		if user == "" || pass == "" {
			return confluence.Credentials{}, errors.New(errors.ErrCodeNotConfigured,
				"%s and %s must both be set for basic auth", EnvUser, EnvPassword)
		}
		return confluence.Credentials{Username: user, Password: pass}, nil
	default:
		return confluence.Credentials{}, errors.New(errors.ErrCodeInvalidInput,
			"unknown auth type %q (use pat or basic)", c.AuthType)
	}
}
