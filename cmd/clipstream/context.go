package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"clipstream/internal/config"
)

type commandContext struct {
	configFlag *string
	serverFlag *string
	tokenFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, serverFlag, tokenFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		serverFlag: serverFlag,
		tokenFlag:  tokenFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// serverBaseURL resolves the API base URL from the --server flag, the
// CLIPSTREAM_SERVER environment variable, or the configured bind address.
func (c *commandContext) serverBaseURL() string {
	if c.serverFlag != nil {
		if value := strings.TrimSpace(*c.serverFlag); value != "" {
			return strings.TrimRight(value, "/")
		}
	}
	if value := strings.TrimSpace(os.Getenv("CLIPSTREAM_SERVER")); value != "" {
		return strings.TrimRight(value, "/")
	}
	cfg, err := c.ensureConfig()
	if err != nil || cfg == nil {
		return "http://127.0.0.1:7480"
	}
	return "http://" + cfg.Paths.APIBind
}

// apiToken resolves the tenant token from the --token flag, the
// CLIPSTREAM_TOKEN environment variable, or the first configured tenant.
func (c *commandContext) apiToken() string {
	if c.tokenFlag != nil {
		if value := strings.TrimSpace(*c.tokenFlag); value != "" {
			return value
		}
	}
	if value := strings.TrimSpace(os.Getenv("CLIPSTREAM_TOKEN")); value != "" {
		return value
	}
	cfg, err := c.ensureConfig()
	if err != nil || cfg == nil || len(cfg.Tenants) == 0 {
		return ""
	}
	return cfg.Tenants[0].Token
}

func (c *commandContext) httpClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

func (c *commandContext) newRequest(method, path string, body *requestBody) (*http.Request, error) {
	url := c.serverBaseURL() + path
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, url, body.reader)
	} else {
		req, err = http.NewRequest(method, url, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil && body.contentType != "" {
		req.Header.Set("Content-Type", body.contentType)
	}
	token := c.apiToken()
	if token == "" {
		return nil, fmt.Errorf("no API token available; pass --token, set CLIPSTREAM_TOKEN, or configure a tenant")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
