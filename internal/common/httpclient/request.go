package httpclient

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tansive/ideconnector/pkg/api"
)

// RequestMode selects how a RequestSpec is encoded on the wire.
type RequestMode int

const (
	// ModePlain sends only the query parameters.
	ModePlain RequestMode = iota
	// ModeJSON sends the query parameters plus the JSON encoded payload as parameter "j".
	ModeJSON
	// ModeUpload sends a multipart body with one file part; the query parameters go into the URL.
	ModeUpload
)

func (m RequestMode) String() string {
	switch m {
	case ModePlain:
		return "plain"
	case ModeJSON:
		return "json"
	case ModeUpload:
		return "upload"
	default:
		return fmt.Sprintf("RequestMode(%d)", int(m))
	}
}

// Param is one query parameter. Names may repeat.
type Param struct {
	Name  string
	Value string
}

// Upload is the file part of an upload request.
type Upload struct {
	FieldName   string
	Data        []byte
	ContentType string
	Filename    string
}

// RequestSpec describes one call: ordered query parameters and at most one of a JSON payload
// or an upload. The mode is fixed by the constructor.
type RequestSpec struct {
	mode    RequestMode
	params  []Param
	payload any
	upload  *Upload
}

// NewRequest returns a spec that carries query parameters only.
func NewRequest() *RequestSpec {
	return &RequestSpec{mode: ModePlain}
}

// NewJSONRequest returns a spec whose payload is sent JSON encoded in parameter "j".
func NewJSONRequest(payload any) *RequestSpec {
	return &RequestSpec{mode: ModeJSON, payload: payload}
}

// NewUploadRequest returns a spec that uploads u as a multipart body.
func NewUploadRequest(u Upload) *RequestSpec {
	return &RequestSpec{mode: ModeUpload, upload: &u}
}

// Mode returns the encoding mode of the request.
func (r *RequestSpec) Mode() RequestMode {
	return r.mode
}

// Params returns the query parameters in insertion order.
func (r *RequestSpec) Params() []Param {
	return r.params
}

// Payload returns the JSON payload, nil unless the request is in ModeJSON.
func (r *RequestSpec) Payload() any {
	return r.payload
}

// Upload returns the upload, nil unless the request is in ModeUpload.
func (r *RequestSpec) Upload() *Upload {
	return r.upload
}

// AddParam appends a query parameter.
func (r *RequestSpec) AddParam(name, value string) *RequestSpec {
	r.params = append(r.params, Param{Name: name, Value: value})
	return r
}

// AddParamIfNotBlank appends a query parameter unless value is blank.
func (r *RequestSpec) AddParamIfNotBlank(name, value string) *RequestSpec {
	if strings.TrimSpace(value) == "" {
		return r
	}
	return r.AddParam(name, value)
}

// AddListParam appends one parameter whose value is the comma separated list of values.
func (r *RequestSpec) AddListParam(name string, values []string) *RequestSpec {
	return r.AddParam(name, strings.Join(values, ","))
}

// WithToken appends the session token parameter.
func (r *RequestSpec) WithToken(token string) *RequestSpec {
	return r.AddParam(api.ParamToken, token)
}

// encodeParams URL-encodes params in order. url.Values is not used since it sorts by key.
func encodeParams(params []Param) string {
	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// String lists the parameters for log messages. Password values are masked.
func (r *RequestSpec) String() string {
	if r == nil {
		return "none"
	}
	var b strings.Builder
	b.WriteString(r.mode.String())
	b.WriteString("{")
	for i, p := range r.params {
		if i > 0 {
			b.WriteString(", ")
		}
		v := p.Value
		if p.Name == api.ParamPassword {
			v = "****"
		}
		b.WriteString(p.Name + "=" + v)
	}
	if r.upload != nil {
		b.WriteString(", upload=" + r.upload.Filename)
	}
	b.WriteString("}")
	return b.String()
}
