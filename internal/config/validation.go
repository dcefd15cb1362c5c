package config

import (
	"fmt"
	"net/url"
	"strings"
)

// validSSLModes are the sslmode values PostgreSQL accepts.
var validSSLModes = map[string]struct{}{
	"disable":     {},
	"allow":       {},
	"prefer":      {},
	"require":     {},
	"verify-ca":   {},
	"verify-full": {},
}

// Validate checks the configuration for errors. Sentinel errors wrap the
// detail so callers can branch with errors.Is.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if err := c.validateAzure(); err != nil {
		return err
	}
	if err := c.validateChunking(); err != nil {
		return err
	}
	if err := c.validatePostgres(); err != nil {
		return err
	}
	return c.validateServer()
}

func (c *Config) validateAzure() error {
	if c.AzureEndpoint == "" {
		return fmt.Errorf("%w: set azure_endpoint or AZURE_OPENAI_ENDPOINT", ErrMissingEndpoint)
	}
	u, err := url.Parse(c.AzureEndpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q is not an http(s) URL", ErrInvalidEndpoint, c.AzureEndpoint)
	}
	if c.AzureAPIKey == "" {
		return fmt.Errorf("%w: set AZURE_OPENAI_API_KEY", ErrMissingAPIKey)
	}
	if strings.TrimSpace(c.EmbedDeployment) == "" {
		return fmt.Errorf("%w: embed_deployment is empty", ErrMissingDeployment)
	}
	if strings.TrimSpace(c.AnswerDeployment) == "" {
		return fmt.Errorf("%w: answer_deployment is empty", ErrMissingDeployment)
	}
	return nil
}

func (c *Config) validateChunking() error {
	if c.ChunkMaxChars <= 0 {
		return fmt.Errorf("%w: chunk_max_chars must be positive, got %d", ErrInvalidChunking, c.ChunkMaxChars)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk_overlap must not be negative, got %d", ErrInvalidChunking, c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkMaxChars {
		return fmt.Errorf("%w: chunk_overlap %d must be smaller than chunk_max_chars %d",
			ErrInvalidChunking, c.ChunkOverlap, c.ChunkMaxChars)
	}
	return nil
}

func (c *Config) validatePostgres() error {
	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host is empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: port %d out of range 1-65535", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: database name is empty", ErrInvalidPostgresDBName)
	}
	if _, ok := validSSLModes[c.PostgresSSLMode]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}
	return nil
}

func (c *Config) validateServer() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("%w: listen_addr is empty", ErrInvalidListenAddr)
	}
	return nil
}
