// Package httpclient implements the transport side of the IDE connector protocol. A Connector
// owns a bounded connection pool to one connector service, encodes RequestSpecs into HTTP
// requests, classifies the replies and hands back the body buffered, decoded, or as a stream
// of lines delivered while the server is still writing.
package httpclient

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/tansive/ideconnector/pkg/api"
)

// json is tolerant of unknown fields, so a newer server can add fields without breaking
// older clients.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Connector executes calls against the connector service at Configuration.BaseURL.
// It is safe for concurrent use.
type Connector struct {
	config     Configuration
	origin     string // scheme and host of BaseURL
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewConnector validates cfg and creates a Connector with its own connection pool.
func NewConnector(cfg Configuration) (*Connector, error) {
	cfg.BaseURL = NormalizeBaseURL(cfg.BaseURL)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid base URL")
	}
	return &Connector{
		config: cfg,
		origin: u.Scheme + "://" + u.Host,
		httpClient: &http.Client{
			Transport: newTransport(&cfg),
		},
		logger: log.With().Str("component", "connector").Logger(),
	}, nil
}

// Configuration returns the connector's settings.
func (c *Connector) Configuration() Configuration {
	return c.config
}

// Close releases idle pooled connections.
func (c *Connector) Close() {
	c.httpClient.CloseIdleConnections()
}

// URL returns the absolute URL of a service action. A service starting with "/" is
// resolved against the server root instead of the base URL.
func (c *Connector) URL(service string) string {
	if strings.HasPrefix(service, "/") {
		return c.origin + service
	}
	return c.config.BaseURL + service
}

// Encode builds the HTTP request for spec. Errors wrap ErrEncode and mean nothing was sent.
func (c *Connector) Encode(ctx context.Context, method, service string, spec *RequestSpec) (*http.Request, error) {
	if spec == nil {
		spec = NewRequest()
	}
	target := c.URL(service)

	switch spec.mode {
	case ModePlain, ModeJSON:
		params := spec.params
		if spec.mode == ModeJSON {
			j, err := json.Marshal(spec.payload)
			if err != nil {
				return nil, errors.Wrap(errors.WithMessage(ErrEncode, err.Error()), "request payload can't be converted to JSON")
			}
			params = append(append([]Param{}, params...), Param{Name: api.ParamJSON, Value: string(j)})
		}
		query := encodeParams(params)
		if method == http.MethodPost || method == http.MethodPut {
			req, err := http.NewRequestWithContext(ctx, method, target, strings.NewReader(query))
			if err != nil {
				return nil, errors.Wrap(ErrEncode, err.Error())
			}
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			return req, nil
		}
		if query != "" {
			target += "?" + query
		}
		req, err := http.NewRequestWithContext(ctx, method, target, nil)
		if err != nil {
			return nil, errors.Wrap(ErrEncode, err.Error())
		}
		return req, nil

	case ModeUpload:
		body, contentType, err := encodeUpload(spec.upload)
		if err != nil {
			return nil, errors.Wrap(ErrEncode, err.Error())
		}
		// a multipart body cannot carry the query parameters, so they travel in the URL
		if query := encodeParams(spec.params); query != "" {
			target += "?" + query
		}
		req, err := http.NewRequestWithContext(ctx, method, target, body)
		if err != nil {
			return nil, errors.Wrap(ErrEncode, err.Error())
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil

	default:
		return nil, errors.Wrapf(ErrEncode, "unknown request mode %s", spec.mode)
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeUpload(u *Upload) (*bytes.Buffer, string, error) {
	if u == nil || u.FieldName == "" {
		return nil, "", errors.New("upload requires a field name")
	}
	contentType := u.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+quoteEscaper.Replace(u.FieldName)+
		`"; filename="`+quoteEscaper.Replace(u.Filename)+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(u.Data); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return body, mw.FormDataContentType(), nil
}

// Execute sends the request for spec and buffers the reply. Encode errors are returned as a
// transport outcome whose cause wraps ErrEncode.
func (c *Connector) Execute(ctx context.Context, method, service string, spec *RequestSpec) *Outcome {
	resp, release, err := c.send(ctx, method, service, spec)
	if err != nil {
		return &Outcome{Kind: OutcomeTransportError, Err: err, url: c.URL(service)}
	}
	defer release()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error().Err(err).Str("url", c.URL(service)).Msg("error reading the response body")
		return &Outcome{Kind: OutcomeTransportError, Err: errors.Wrap(err, "reading the response body"), url: c.URL(service)}
	}
	return c.classify(resp.StatusCode, body, service, spec)
}

// send executes the request. On success the caller must call release, which closes the
// response body and frees the connection.
func (c *Connector) send(ctx context.Context, method, service string, spec *RequestSpec) (*http.Response, func(), error) {
	ctx, cancel := withAcquireTimeout(ctx, c.config.RequestTimeout)
	req, err := c.Encode(ctx, method, service, spec)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if cause := context.Cause(ctx); errors.Is(cause, ErrPoolTimeout) {
			err = cause
		}
		cancel()
		c.logger.Error().Err(err).Str("url", c.URL(service)).Msg("error connecting to the connector service")
		return nil, nil, err
	}
	release := func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn().Err(err).Msg("error closing a response body")
		}
		cancel()
	}
	return resp, release, nil
}

func (c *Connector) classify(status int, body []byte, service string, spec *RequestSpec) *Outcome {
	o := &Outcome{StatusCode: status, Body: body, url: c.URL(service)}
	switch {
	case status == http.StatusOK:
		o.Kind = OutcomeOK
	case status == http.StatusNotFound:
		o.Kind = OutcomeNotFound
		c.logger.Error().Str("url", o.url).Str("params", spec.String()).Msg("service returned NOT FOUND")
	default:
		o.Kind = OutcomeFailure
		c.logger.Error().Int("status", status).Str("url", o.url).Msg("service call failed")
		c.logger.Info().Str("body", string(body)).Msg("failed response body")
	}
	return o
}

// Call executes the request and discards the reply body.
func (c *Connector) Call(ctx context.Context, method, service string, spec *RequestSpec) error {
	return c.Execute(ctx, method, service, spec).Error()
}

// GetAsString returns the reply body as text.
func (c *Connector) GetAsString(ctx context.Context, method, service string, spec *RequestSpec) (string, error) {
	o := c.Execute(ctx, method, service, spec)
	if err := o.Error(); err != nil {
		return "", err
	}
	return string(o.Body), nil
}

// GetAsObject decodes the JSON reply into out. It reports false, with a nil error, when the
// body is blank or cannot be decoded; decode failures are only logged. Callers must treat a
// false result without error as "no usable reply".
func (c *Connector) GetAsObject(ctx context.Context, method, service string, spec *RequestSpec, out any) (bool, error) {
	o := c.Execute(ctx, method, service, spec)
	if err := o.Error(); err != nil {
		return false, err
	}
	return c.decode(o.Body, out), nil
}

// GetAsBool decodes a JSON boolean reply. Anything else yields false.
func (c *Connector) GetAsBool(ctx context.Context, method, service string, spec *RequestSpec) (bool, error) {
	o := c.Execute(ctx, method, service, spec)
	if err := o.Error(); err != nil {
		return false, err
	}
	return gjson.ParseBytes(o.Body).Bool(), nil
}

func (c *Connector) decode(body []byte, out any) bool {
	if len(bytes.TrimSpace(body)) == 0 {
		return false
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Error().Err(err).Msgf("exception converting a JSON response to %T", out)
		return false
	}
	return true
}

// GetAsList decodes a JSON array reply. A blank or undecodable body yields an empty slice
// and a nil error; see GetAsObject.
func GetAsList[T any](ctx context.Context, c *Connector, method, service string, spec *RequestSpec) ([]T, error) {
	var list []T
	ok, err := c.GetAsObject(ctx, method, service, spec, &list)
	if err != nil || !ok || list == nil {
		return []T{}, err
	}
	return list, nil
}
