package httpclient

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Default connection settings.
const (
	DefaultMaxConnectionsTotal    = 100
	DefaultMaxConnectionsPerRoute = 100
	DefaultConnectTimeout         = 5 * time.Second
	// The server may block on slow downstream work before it writes the next line.
	DefaultSocketTimeout  = 360 * time.Second
	DefaultRequestTimeout = 10 * time.Second
)

// Configuration holds the connection settings of a Connector. A zero timeout is infinite.
type Configuration struct {
	BaseURL                string        `validate:"required,url"`
	MaxConnectionsTotal    int           `validate:"gte=1"`
	MaxConnectionsPerRoute int           `validate:"gte=1"`
	ConnectTimeout         time.Duration `validate:"gte=0"` // time to establish a connection
	SocketTimeout          time.Duration `validate:"gte=0"` // max inactivity between two reads or writes
	RequestTimeout         time.Duration `validate:"gte=0"` // time to wait for a pooled connection
}

// DefaultConfiguration returns the default settings for baseURL.
func DefaultConfiguration(baseURL string) Configuration {
	return Configuration{
		BaseURL:                NormalizeBaseURL(baseURL),
		MaxConnectionsTotal:    DefaultMaxConnectionsTotal,
		MaxConnectionsPerRoute: DefaultMaxConnectionsPerRoute,
		ConnectTimeout:         DefaultConnectTimeout,
		SocketTimeout:          DefaultSocketTimeout,
		RequestTimeout:         DefaultRequestTimeout,
	}
}

// NormalizeBaseURL makes sure u ends with a slash so that action names can be appended.
func NormalizeBaseURL(u string) string {
	u = strings.TrimSpace(u)
	if u != "" && !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration.
func (c *Configuration) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid connector configuration: %s failed on %q", fe.Field(), fe.Tag())
		}
		return fmt.Errorf("invalid connector configuration: %w", err)
	}
	return nil
}

// poolSize is the number of connections allowed to the single route.
func (c *Configuration) poolSize() int {
	return min(c.MaxConnectionsTotal, c.MaxConnectionsPerRoute)
}
