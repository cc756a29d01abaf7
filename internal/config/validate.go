package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTenants(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.UploadDir == "" {
		return errors.New("paths.upload_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if c.Paths.APIBind == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateTenants() error {
	seen := make(map[string]struct{}, len(c.Tenants))
	for i, tenant := range c.Tenants {
		if tenant.Name == "" {
			return fmt.Errorf("tenants[%d].name must be set", i)
		}
		if tenant.Token == "" {
			return fmt.Errorf("tenants[%d].token must be set", i)
		}
		if _, dup := seen[tenant.Token]; dup {
			return fmt.Errorf("tenants[%d].token duplicates an earlier token", i)
		}
		seen[tenant.Token] = struct{}{}
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.TranscodeTickMillis > c.Pipeline.TranscodeDurationMillis {
		return errors.New("pipeline.transcode_tick_millis must not exceed pipeline.transcode_duration_millis")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
