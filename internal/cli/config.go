package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tansive/ideconnector/internal/common/httpclient"
	"github.com/tansive/ideconnector/pkg/api"
)

// DefaultConfigFile is the default name of the config file
const DefaultConfigFile = "config.yaml"

// ConfigVersion is the version of the configuration file format
const ConfigVersion = "0.1.0"

// Config represents the configuration of the CLI: where the connector service is and the
// session obtained by the last login.
type Config struct {
	// Version of the configuration file format
	Version string `yaml:"version" validate:"required"`
	// ServerURL is the scheme, host and port of the connector server
	ServerURL string `yaml:"server_url" validate:"required,url"`
	// ServicePath is the path the connector actions are mounted under
	ServicePath string `yaml:"service_path,omitempty" validate:"omitempty,startswith=/"`
	// User is the default user name for login
	User string `yaml:"user,omitempty"`
	// Token is the session token of the last successful login
	Token string `yaml:"token,omitempty"`
	// SocketTimeout bounds the silence between two lines of an import log, e.g. "10m"
	SocketTimeout string `yaml:"socket_timeout,omitempty"`
}

var config *Config

var configValidator = newConfigValidator()

// newConfigValidator reports fields by their yaml names.
func newConfigValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// GetDefaultConfigPath returns the default path for the config file
// It uses the OS-specific config directory (e.g., ~/.config/ideconnector on Linux)
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "ideconnector", DefaultConfigFile), nil
}

// LoadConfig loads the configuration from the specified file. {{ .ENV.NAME }} placeholders
// are replaced before the file is parsed.
func LoadConfig(file string) error {
	if file == "" {
		var err error
		file, err = GetDefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get default config path: %w", err)
		}
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("unable to read config file: %w", err)
	}
	yamlStr, err := PreprocessYAML(raw, filepath.Join(filepath.Dir(file), ".env"))
	if err != nil {
		return fmt.Errorf("unable to preprocess config file: %w", err)
	}

	var c Config
	if err = yaml.Unmarshal(yamlStr, &c); err != nil {
		return fmt.Errorf("unable to parse config file: %w", err)
	}

	c.ServerURL = MorphServer(c.ServerURL)
	if err := c.ValidateConfig(); err != nil {
		return err
	}

	config = &c
	return nil
}

// GetConfig returns the current configuration
func GetConfig() *Config {
	return config
}

// WriteConfig writes the configuration to file, creating its directory if needed.
func (cfg *Config) WriteConfig(file string) error {
	if file == "" {
		return errors.New("file path cannot be empty")
	}

	err := os.MkdirAll(filepath.Dir(file), 0700)
	if err != nil {
		return fmt.Errorf("unable to create config directory: %w", err)
	}

	yamlStr, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("unable to generate configuration: %w", err)
	}

	// the file holds a session token
	err = os.WriteFile(file, yamlStr, os.FileMode(0600))
	if err != nil {
		return fmt.Errorf("unable to write config file: %w", err)
	}

	return nil
}

// ValidateConfig validates the configuration
func (cfg *Config) ValidateConfig() error {
	if err := configValidator.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s failed on %q", fe.Field(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Version != ConfigVersion {
		return fmt.Errorf("unsupported config file version: %s", cfg.Version)
	}
	if cfg.SocketTimeout != "" {
		if _, err := time.ParseDuration(cfg.SocketTimeout); err != nil {
			return fmt.Errorf("invalid socket_timeout: %w", err)
		}
	}
	return nil
}

// MorphServer ensures the server URL is properly formatted
// Adds http:// prefix if missing and removes trailing slashes
func MorphServer(server string) string {
	if server == "" {
		return server
	}

	server = strings.TrimRight(server, "/")

	if !strings.HasPrefix(server, "http://") && !strings.HasPrefix(server, "https://") {
		server = "http://" + server
	}

	return server
}

// ServiceURL returns the URL the connector actions are served under.
func (cfg *Config) ServiceURL() string {
	path := cfg.ServicePath
	if path == "" {
		path = api.DefaultServicePath
	}
	return MorphServer(cfg.ServerURL) + path
}

// ConnectorConfig returns the transport settings for talking to the configured service.
func (cfg *Config) ConnectorConfig() httpclient.Configuration {
	c := httpclient.DefaultConfiguration(cfg.ServiceURL())
	if d, err := time.ParseDuration(cfg.SocketTimeout); err == nil {
		c.SocketTimeout = d
	}
	return c
}

// Print prints the configuration in a human-readable format
func (cfg *Config) Print(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Server: %s\n", cfg.ServerURL)
	fmt.Fprintf(out, "Service URL: %s\n", cfg.ServiceURL())
	if cfg.User != "" {
		fmt.Fprintf(out, "User: %s\n", cfg.User)
	}
	if cfg.Token != "" {
		fmt.Fprintln(out, "Logged in: yes")
	} else {
		fmt.Fprintln(out, "Logged in: no")
	}
}

// saveConfig writes the loaded configuration back to the config file.
func saveConfig(cfg *Config) error {
	if err := cfg.WriteConfig(configFile); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  `Manage CLI configuration settings like the server location and the default user.`,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
	cmd.AddCommand(newConfigCreateCmd())
	cmd.AddCommand(newConfigViewCmd())
	return cmd
}

func newConfigCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new configuration file",
		Long: `Create a new configuration file. An existing file is replaced and its session
token is dropped.

Example:
  ideconnector config create --server localhost:8194 --user Admin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			server, _ := cmd.Flags().GetString("server")
			if !strings.Contains(strings.TrimPrefix(strings.TrimPrefix(server, "http://"), "https://"), ":") {
				return errors.New("server must include port number (e.g., example.com:8194)")
			}
			servicePath, _ := cmd.Flags().GetString("service-path")
			user, _ := cmd.Flags().GetString("user")

			cfg := &Config{
				Version:     ConfigVersion,
				ServerURL:   MorphServer(server),
				ServicePath: servicePath,
				User:        user,
			}
			if err := cfg.ValidateConfig(); err != nil {
				return err
			}
			if err := cfg.WriteConfig(configFile); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}

			if jsonOutput {
				printJSON(cmd.OutOrStdout(), map[string]string{
					"server":      cfg.ServerURL,
					"service_url": cfg.ServiceURL(),
					"config_file": configFile,
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Server configured: %s\n", cfg.ServiceURL())
				fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n", configFile)
			}
			return nil
		},
	}
	cmd.Flags().String("server", "", "Server host and port (e.g., example.com:8194)")
	cmd.Flags().String("service-path", api.DefaultServicePath, "Path the connector service is mounted under")
	cmd.Flags().String("user", "", "Default user name for login")
	cmd.MarkFlagRequired("server")
	return cmd
}

func newConfigViewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Show the current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := LoadConfig(configFile); err != nil {
				return err
			}
			cfg := GetConfig()
			if jsonOutput {
				printJSON(cmd.OutOrStdout(), map[string]any{
					"server":      cfg.ServerURL,
					"service_url": cfg.ServiceURL(),
					"user":        cfg.User,
					"logged_in":   cfg.Token != "",
					"config_file": configFile,
				})
				return nil
			}
			cfg.Print(cmd)
			return nil
		},
	}
}
