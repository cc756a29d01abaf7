package testsupport

import (
	"path/filepath"
	"testing"

	"clipstream/internal/config"
)

// TenantToken is the API token wired into configs produced by NewConfig.
const TenantToken = "test-token"

// TenantName is the tenant namespace bound to TenantToken.
const TenantName = "test-tenant"

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields, registers a single tenant, and applies any
// provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.UploadDir = filepath.Join(base, "uploads")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Tenants = []config.Tenant{{Name: TenantName, Token: TenantToken}}
	cfg.Pipeline.TranscodeTickMillis = 5
	cfg.Pipeline.TranscodeDurationMillis = 40

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithTenants replaces the tenant list on the test config.
func WithTenants(tenants ...config.Tenant) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Tenants = tenants
	}
}

// WithTranscodeTiming overrides the simulated transcode tick and duration in
// milliseconds.
func WithTranscodeTiming(tickMillis, durationMillis int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pipeline.TranscodeTickMillis = tickMillis
		cfg.Pipeline.TranscodeDurationMillis = durationMillis
	}
}
