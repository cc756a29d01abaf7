package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePipeline()
	c.normalizeTenants()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.UploadDir) == "" {
		c.Paths.UploadDir = defaultUploadDir
	}
	if c.Paths.UploadDir, err = expandPath(c.Paths.UploadDir); err != nil {
		return fmt.Errorf("paths.upload_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.TranscodeTickMillis <= 0 {
		c.Pipeline.TranscodeTickMillis = defaultTranscodeTickMillis
	}
	if c.Pipeline.TranscodeDurationMillis <= 0 {
		c.Pipeline.TranscodeDurationMillis = defaultTranscodeDurationMillis
	}
	if c.Pipeline.ProbeTimeoutSeconds <= 0 {
		c.Pipeline.ProbeTimeoutSeconds = defaultProbeTimeoutSeconds
	}
	if c.Pipeline.AnalyzeTimeoutSeconds <= 0 {
		c.Pipeline.AnalyzeTimeoutSeconds = defaultAnalyzeTimeoutSeconds
	}
	if c.Pipeline.EventBuffer <= 0 {
		c.Pipeline.EventBuffer = defaultEventBuffer
	}
}

func (c *Config) normalizeTenants() {
	for i := range c.Tenants {
		c.Tenants[i].Name = strings.TrimSpace(c.Tenants[i].Name)
		c.Tenants[i].Token = strings.TrimSpace(c.Tenants[i].Token)
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
