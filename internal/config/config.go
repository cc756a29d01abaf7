package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	UploadDir string `toml:"upload_dir"`
	LogDir    string `toml:"log_dir"`
	APIBind   string `toml:"api_bind"`
}

// Tenant maps an API token to a tenant namespace. Requests presenting the
// token are scoped to that tenant's items.
type Tenant struct {
	Name  string `toml:"name"`
	Token string `toml:"token"`
}

// Pipeline contains timing configuration for the processing pipeline.
type Pipeline struct {
	// TranscodeTickMillis is the interval between simulated transcode
	// progress ticks.
	TranscodeTickMillis int `toml:"transcode_tick_millis"`
	// TranscodeDurationMillis is the total simulated transcode time.
	TranscodeDurationMillis int `toml:"transcode_duration_millis"`
	// ProbeTimeoutSeconds bounds a single ffprobe invocation.
	ProbeTimeoutSeconds int `toml:"probe_timeout_seconds"`
	// AnalyzeTimeoutSeconds bounds a single sensitivity analysis call.
	AnalyzeTimeoutSeconds int `toml:"analyze_timeout_seconds"`
	// EventBuffer is the per-subscriber progress event channel depth.
	EventBuffer int `toml:"event_buffer"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for clipstream.
//
// Configuration sections by subsystem:
//   - Paths: upload/log directories and API bind address
//   - Tenants: API token to tenant namespace mapping
//   - Pipeline: stage timing and timeouts
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Tenants  []Tenant `toml:"tenants"`
	Pipeline Pipeline `toml:"pipeline"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipstream/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The bool reports
// whether a config file was actually found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	if value, ok := os.LookupEnv("CLIPSTREAM_CONFIG"); ok && strings.TrimSpace(value) != "" {
		return resolveConfigPath(value)
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("clipstream.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.UploadDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// TenantForToken resolves the tenant name for an API token.
func (c *Config) TenantForToken(token string) (string, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	for _, tenant := range c.Tenants {
		if tenant.Token == token {
			return tenant.Name, true
		}
	}
	return "", false
}

// FFprobeBinary returns the ffprobe executable name used for metadata extraction.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// TranscodeTick returns the simulated transcode tick interval.
func (c *Config) TranscodeTick() time.Duration {
	return time.Duration(c.Pipeline.TranscodeTickMillis) * time.Millisecond
}

// TranscodeDuration returns the total simulated transcode time.
func (c *Config) TranscodeDuration() time.Duration {
	return time.Duration(c.Pipeline.TranscodeDurationMillis) * time.Millisecond
}

// ProbeTimeout returns the metadata probe deadline.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Pipeline.ProbeTimeoutSeconds) * time.Second
}

// AnalyzeTimeout returns the sensitivity analysis deadline.
func (c *Config) AnalyzeTimeout() time.Duration {
	return time.Duration(c.Pipeline.AnalyzeTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
