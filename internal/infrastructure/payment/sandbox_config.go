package payment

import (
	"errors"
	"time"
)

// SandboxConfig holds the connection settings for the sandbox gateway
type SandboxConfig struct {
	// Endpoint is the base URL of the sandbox API
	Endpoint string
	// APIKey identifies this merchant to the sandbox
	APIKey string
	// Secret signs outgoing requests and authenticates callbacks
	Secret string
	// Timeout bounds each HTTP call to the gateway
	Timeout time.Duration
}

// Validate checks the configuration is usable
func (c *SandboxConfig) Validate() error {
	if c.Endpoint == "" {
		return errors.New("sandbox: endpoint is required")
	}
	if c.APIKey == "" {
		return errors.New("sandbox: API key is required")
	}
	if c.Secret == "" {
		return errors.New("sandbox: secret is required")
	}
	return nil
}

// timeout returns the configured timeout or a sane default
func (c *SandboxConfig) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return c.Timeout
}
