// Package config loads the TOML configuration of the connector server.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/tansive/ideconnector/internal/connector/cms"
	"github.com/tansive/ideconnector/internal/connector/session"
	"github.com/tansive/ideconnector/pkg/api"
)

// BackendConfig selects and configures the CMS backend.
type BackendConfig struct {
	Type    string         `toml:"type"`    // backend type, e.g. "filesystem"
	Options map[string]any `toml:"options"` // backend specific options
}

// Session store types.
const (
	SessionStoreMemory   = "memory"
	SessionStorePostgres = "postgres"
)

// SessionStoreConfig selects where sessions are kept.
type SessionStoreConfig struct {
	Type  string `toml:"type"`  // "memory" (default) or "postgres"
	DSN   string `toml:"dsn"`   // PostgreSQL connection string
	Table string `toml:"table"` // table name, optionally schema qualified
}

// ConfigParam holds all configuration parameters for the connector server
type ConfigParam struct {
	// Configuration version
	FormatVersion string `toml:"format_version"` // Version of this configuration file format

	// Server configuration
	ServerHostName string `toml:"server_hostname"` // Hostname the server is reachable at
	ServerPort     string `toml:"server_port"`     // Port for the server
	HandleCORS     bool   `toml:"handle_cors"`     // Whether to handle CORS
	ServicePath    string `toml:"service_path"`    // Path the connector actions are mounted under
	LogLevel       string `toml:"log_level"`       // zerolog level name

	// Backend configuration
	Backend BackendConfig `toml:"backend"`

	// Session store configuration
	SessionStore SessionStoreConfig `toml:"session_store"`
}

// ConfigFormatVersion is the current version of the configuration file format
const ConfigFormatVersion = "0.1.0"

var cfg *ConfigParam

// Config returns the current configuration
func Config() *ConfigParam {
	return cfg
}

// SetConfig replaces the current configuration. Used by tests and embedders that build the
// configuration in code.
func SetConfig(c *ConfigParam) {
	cfg = c
}

// GetURL returns the base URL of the connector service.
func (c *ConfigParam) GetURL() string {
	host := c.ServerHostName
	if host == "" {
		host = "localhost"
	}
	return "http://" + host + ":" + c.ServerPort + c.ServicePath
}

// ValidateConfig checks if all required configuration values are present and valid
// and fills in defaults.
func ValidateConfig(cfg *ConfigParam) error {
	// Check if the config file format version is supported
	if cfg.FormatVersion != ConfigFormatVersion {
		return fmt.Errorf("unsupported config file format version: %s", cfg.FormatVersion)
	}

	// Server validation
	if cfg.ServerPort == "" {
		return fmt.Errorf("server_port is required")
	}

	if cfg.ServicePath == "" {
		cfg.ServicePath = api.DefaultServicePath
	}
	cfg.ServicePath = "/" + strings.Trim(cfg.ServicePath, "/")
	if cfg.ServicePath == "/" {
		return fmt.Errorf("service_path must not be the root path")
	}

	// Backend validation
	if cfg.Backend.Type == "" {
		return fmt.Errorf("backend.type is required")
	}
	supported := false
	for _, t := range cms.Types() {
		if strings.EqualFold(t, cfg.Backend.Type) {
			supported = true
		}
	}
	if !supported {
		return fmt.Errorf("unsupported backend.type: %s", cfg.Backend.Type)
	}
	if cfg.Backend.Options == nil {
		cfg.Backend.Options = map[string]any{}
	}

	// Session store validation
	switch strings.ToLower(cfg.SessionStore.Type) {
	case "", SessionStoreMemory:
		cfg.SessionStore.Type = SessionStoreMemory
	case SessionStorePostgres:
		cfg.SessionStore.Type = SessionStorePostgres
		if cfg.SessionStore.DSN == "" {
			return fmt.Errorf("session_store.dsn is required for the postgres session store")
		}
		if cfg.SessionStore.Table == "" {
			cfg.SessionStore.Table = session.DefaultTable
		}
	default:
		return fmt.Errorf("unsupported session_store.type: %s", cfg.SessionStore.Type)
	}

	return nil
}

// ParseConfig parses and validates the content of a configuration file.
func ParseConfig(content string) (*ConfigParam, error) {
	c := &ConfigParam{}
	if _, err := toml.Decode(content, c); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}
	if err := ValidateConfig(c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}
	return c, nil
}

// LoadConfig loads configuration from a file
func LoadConfig(filename string) error {
	if filename == "" {
		return fmt.Errorf("config filename is required")
	}

	// Read and parse the config file
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	c, err := ParseConfig(string(content))
	if err != nil {
		return err
	}
	cfg = c
	return nil
}

// NewBackend creates the backend selected by the configuration.
func (c *ConfigParam) NewBackend() (cms.Backend, error) {
	b, err := cms.New(c.Backend.Type, c.Backend.Options)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// NewSessionStore creates the session store selected by the configuration. Sessions restored
// from a persistent store start at the root site.
func (c *ConfigParam) NewSessionStore(ctx context.Context) (session.Store, error) {
	switch c.SessionStore.Type {
	case SessionStorePostgres:
		restore := func(principal string) cms.Context {
			return cms.NewContext(principal, api.RootSiteRoot)
		}
		s, err := session.OpenPostgresStore(ctx, c.SessionStore.DSN, c.SessionStore.Table, restore)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return session.NewMemoryStore(), nil
	}
}
