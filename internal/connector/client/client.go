// Package client is the caller side of the IDE connector: it logs in, keeps the session
// token, streams module imports and logs out, on top of an httpclient.Connector.
package client

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tansive/ideconnector/internal/common/httpclient"
	"github.com/tansive/ideconnector/pkg/api"
)

var (
	// ErrNotLoggedIn is returned by calls that need a session when no token is held.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrNoReply is returned when the server answered 200 with a body that could not be
	// understood.
	ErrNoReply = errors.New("no usable reply from the connector service")
)

// Client talks to one connector service. It is safe for concurrent use.
type Client struct {
	connector httpclient.ConnectorInterface
	mu        sync.RWMutex
	token     string
}

// New creates a Client with its own connection pool.
func New(cfg httpclient.Configuration) (*Client, error) {
	c, err := httpclient.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithConnector(c), nil
}

// NewWithConnector creates a Client on top of an existing connector.
func NewWithConnector(connector httpclient.ConnectorInterface) *Client {
	return &Client{connector: connector}
}

// Token returns the session token, empty when not logged in.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken sets the session token, e.g. one stored by an earlier login.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// IsLoggedIn reports whether a session token is held.
func (c *Client) IsLoggedIn() bool {
	return c.Token() != ""
}

// Login authenticates with the connector service. A rejected login is not an error: the
// returned status has LoggedIn set to false and carries the server's message.
func (c *Client) Login(ctx context.Context, user, password string) (*api.LoginStatus, error) {
	spec := httpclient.NewRequest().
		AddParam(api.ParamUser, user).
		AddParam(api.ParamPassword, password)

	status := &api.LoginStatus{}
	ok, err := c.connector.GetAsObject(ctx, http.MethodPost, api.ServiceLogin, spec, status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoReply
	}
	if status.LoggedIn {
		if status.Token == "" {
			return nil, ErrNoReply
		}
		c.SetToken(status.Token)
		log.Debug().Str("user", user).Msg("logged in")
	} else {
		log.Warn().Str("user", user).Str("message", status.Message).Msg("login rejected")
	}
	return status, nil
}

// Logout ends the session. The token is dropped even if the call fails.
func (c *Client) Logout(ctx context.Context) error {
	token := c.Token()
	if token == "" {
		return nil
	}
	c.SetToken("")
	body, err := c.connector.GetAsString(ctx, http.MethodPost, api.ServiceLogout, httpclient.NewRequest().WithToken(token))
	if err != nil {
		return err
	}
	if strings.TrimSpace(body) != api.LogoutSuccess {
		log.Warn().Str("body", body).Msg("unexpected logout reply")
	}
	return nil
}

// ImportLines imports units and returns the progress stream as a lazy sequence of lines.
// The sequence can be iterated once; the request is sent when iteration starts.
func (c *Client) ImportLines(ctx context.Context, units []api.ModuleImportInfo) iter.Seq2[string, error] {
	token := c.Token()
	if token == "" {
		return func(yield func(string, error) bool) {
			yield("", ErrNotLoggedIn)
		}
	}
	spec := httpclient.NewJSONRequest(units).WithToken(token)
	return c.connector.Lines(ctx, http.MethodPost, api.ServiceImportModule, spec)
}

// ImportModules imports units in order and calls sink for every progress line as soon as
// it arrives. A module that fails does not fail the call; its failure shows up in the
// stream only.
func (c *Client) ImportModules(ctx context.Context, units []api.ModuleImportInfo, sink func(line string)) error {
	if !c.IsLoggedIn() {
		return ErrNotLoggedIn
	}
	for line, err := range c.ImportLines(ctx, units) {
		if err != nil {
			return err
		}
		sink(line)
	}
	return nil
}

// ImportModule imports a single module archive to siteRoot, "/" when blank.
func (c *Client) ImportModule(ctx context.Context, zipPath, siteRoot string, sink func(line string)) error {
	return c.ImportModules(ctx, []api.ModuleImportInfo{{ModuleZipPath: zipPath, ImportSiteRoot: siteRoot}}, sink)
}

// Version returns the version information of the server.
func (c *Client) Version(ctx context.Context) (*api.VersionInfo, error) {
	v := &api.VersionInfo{}
	ok, err := c.connector.GetAsObject(ctx, http.MethodGet, "/version", nil, v)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoReply
	}
	return v, nil
}

// Ready reports whether the server answers its readiness check.
func (c *Client) Ready(ctx context.Context) error {
	return c.connector.Execute(ctx, http.MethodGet, "/ready", nil).Error()
}
