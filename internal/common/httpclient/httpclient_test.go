package httpclient

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tansive/ideconnector/pkg/api"
)

func newTestConnector(t *testing.T, baseURL string, mutate ...func(*Configuration)) *Connector {
	t.Helper()
	cfg := DefaultConfiguration(baseURL)
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := NewConnector(cfg)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestConfiguration(t *testing.T) {
	cfg := DefaultConfiguration("http://localhost:8080/opencms/IDEConnector")
	assert.Equal(t, "http://localhost:8080/opencms/IDEConnector/", cfg.BaseURL)
	assert.Equal(t, 100, cfg.MaxConnectionsTotal)
	assert.Equal(t, 100, cfg.MaxConnectionsPerRoute)
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 360*time.Second, cfg.SocketTimeout)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, "http://host/", NormalizeBaseURL("http://host/"))

	bad := cfg
	bad.MaxConnectionsTotal = 0
	assert.Error(t, bad.Validate())

	_, err := NewConnector(Configuration{MaxConnectionsTotal: 1, MaxConnectionsPerRoute: 1})
	assert.Error(t, err)
}

func TestEncodePlainGetKeepsOrder(t *testing.T) {
	c := newTestConnector(t, "http://localhost:8080/IDEConnector")
	spec := NewRequest().
		AddParam("z", "last letter").
		AddParam("a", "x&y=z").
		AddParam("z", "again").
		AddParamIfNotBlank("blank", "  ").
		AddListParam("ids", []string{"1", "2", "3"})

	req, err := c.Encode(context.Background(), http.MethodGet, "logout", spec)
	require.NoError(t, err)
	assert.Nil(t, req.Body)
	assert.Equal(t, "/IDEConnector/logout", req.URL.Path)
	assert.Equal(t, "z=last+letter&a=x%26y%3Dz&z=again&ids=1%2C2%2C3", req.URL.RawQuery)

	q := req.URL.Query()
	assert.Equal(t, []string{"last letter", "again"}, q["z"])
	assert.Equal(t, "x&y=z", q.Get("a"))
	_, hasJSON := q[api.ParamJSON]
	assert.False(t, hasJSON)
}

func TestEncodePostUsesFormBody(t *testing.T) {
	c := newTestConnector(t, "http://localhost:8080/IDEConnector/")
	spec := NewRequest().AddParam(api.ParamUser, "Admin").AddParam(api.ParamPassword, "secret")

	req, err := c.Encode(context.Background(), http.MethodPost, api.ServiceLogin, spec)
	require.NoError(t, err)
	assert.Empty(t, req.URL.RawQuery)
	assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))
	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, "u=Admin&p=secret", string(body))
}

func TestEncodeJSONRoundTrip(t *testing.T) {
	c := newTestConnector(t, "http://localhost/IDEConnector")
	infos := []api.ModuleImportInfo{
		{ModuleZipPath: "/dist/a_1.0.zip"},
		{ModuleZipPath: "/dist/b_2.0.zip", ImportSiteRoot: "/sites/default/"},
	}
	req, err := c.Encode(context.Background(), http.MethodGet, api.ServiceImportModule, NewJSONRequest(infos).WithToken("tok"))
	require.NoError(t, err)

	q := req.URL.Query()
	assert.Equal(t, "tok", q.Get(api.ParamToken))
	var decoded []api.ModuleImportInfo
	require.NoError(t, json.Unmarshal([]byte(q.Get(api.ParamJSON)), &decoded))
	assert.Equal(t, infos, decoded)
	assert.Regexp(t, `^t=tok&j=`, req.URL.RawQuery)
}

func TestEncodeJSONFailure(t *testing.T) {
	c := newTestConnector(t, "http://localhost/IDEConnector")
	_, err := c.Encode(context.Background(), http.MethodPost, api.ServiceImportModule, NewJSONRequest(make(chan int)))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEncode)

	o := c.Execute(context.Background(), http.MethodPost, api.ServiceImportModule, NewJSONRequest(make(chan int)))
	assert.Equal(t, OutcomeTransportError, o.Kind)
	assert.ErrorIs(t, o.Error(), ErrEncode)
}

func TestEncodeUpload(t *testing.T) {
	c := newTestConnector(t, "http://localhost/IDEConnector")
	spec := NewUploadRequest(Upload{
		FieldName:   "file",
		Data:        []byte("PK\x03\x04data"),
		ContentType: "application/zip",
		Filename:    "a_1.0.zip",
	}).AddParam("t", "tok").AddParam("path", "/system/a b&c")

	req, err := c.Encode(context.Background(), http.MethodPost, "upload", spec)
	require.NoError(t, err)
	assert.Equal(t, "t=tok&path=%2Fsystem%2Fa+b%26c", req.URL.RawQuery)

	mediaType, params, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data", mediaType)

	mr := multipart.NewReader(req.Body, params["boundary"])
	part, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "file", part.FormName())
	assert.Equal(t, "a_1.0.zip", part.FileName())
	assert.Equal(t, "application/zip", part.Header.Get("Content-Type"))
	data, err := io.ReadAll(part)
	require.NoError(t, err)
	assert.Equal(t, "PK\x03\x04data", string(data))
	_, err = mr.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestEncodeUploadRequiresFieldName(t *testing.T) {
	c := newTestConnector(t, "http://localhost/IDEConnector")
	_, err := c.Encode(context.Background(), http.MethodPost, "upload", NewUploadRequest(Upload{}))
	assert.ErrorIs(t, err, ErrEncode)
}

func TestExecuteClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte(`{"loggedIn":true,"token":"abc","extra":1}`))
		case "/fail":
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Not logged in, access denied."))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"result":0,"error":"Service not found"}`))
		}
	}))
	defer srv.Close()
	c := newTestConnector(t, srv.URL)
	ctx := context.Background()

	o := c.Execute(ctx, http.MethodGet, "ok", nil)
	assert.Equal(t, OutcomeOK, o.Kind)
	assert.Equal(t, http.StatusOK, o.StatusCode)
	assert.NoError(t, o.Error())

	o = c.Execute(ctx, http.MethodGet, "missing", nil)
	assert.Equal(t, OutcomeNotFound, o.Kind)
	err := o.Error()
	assert.ErrorIs(t, err, ErrNotFound)
	var cerr *ConnectorError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, http.StatusNotFound, cerr.StatusCode)
	assert.Contains(t, cerr.Body, "Service not found")

	o = c.Execute(ctx, http.MethodGet, "fail", nil)
	assert.Equal(t, OutcomeFailure, o.Kind)
	assert.ErrorIs(t, o.Error(), ErrRemoteFailure)
	assert.Equal(t, http.StatusUnauthorized, StatusCodeOf(o.Error()))
	assert.Equal(t, "Not logged in, access denied.", string(o.Body))

	var status api.LoginStatus
	ok, err := c.GetAsObject(ctx, http.MethodGet, "ok", nil, &status)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, api.LoginStatus{LoggedIn: true, Token: "abc"}, status)
}

func TestExecuteTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	c := newTestConnector(t, baseURL)
	o := c.Execute(context.Background(), http.MethodGet, "login", nil)
	assert.Equal(t, OutcomeTransportError, o.Kind)
	assert.Equal(t, 0, o.StatusCode)
	assert.Error(t, o.Err)
	assert.ErrorIs(t, o.Error(), ErrTransport)
	assert.Equal(t, 0, StatusCodeOf(o.Error()))
}

func TestDecodeFailuresDegrade(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/garbage":
			w.Write([]byte("<html>not json</html>"))
		case "/list":
			w.Write([]byte(`[{"moduleZipPath":"a_1.0.zip"},{"moduleZipPath":"b_2.0.zip"}]`))
		case "/true":
			w.Write([]byte("true"))
		}
	}))
	defer srv.Close()
	c := newTestConnector(t, srv.URL)
	ctx := context.Background()

	var status api.LoginStatus
	ok, err := c.GetAsObject(ctx, http.MethodGet, "garbage", nil, &status)
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.GetAsObject(ctx, http.MethodGet, "empty", nil, &status)
	assert.NoError(t, err)
	assert.False(t, ok)

	list, err := GetAsList[api.ModuleImportInfo](ctx, c, http.MethodGet, "garbage", nil)
	assert.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	list, err = GetAsList[api.ModuleImportInfo](ctx, c, http.MethodGet, "list", nil)
	assert.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, "b_2.0.zip", list[1].ModuleZipPath)

	b, err := c.GetAsBool(ctx, http.MethodGet, "true", nil)
	assert.NoError(t, err)
	assert.True(t, b)
	b, err = c.GetAsBool(ctx, http.MethodGet, "garbage", nil)
	assert.NoError(t, err)
	assert.False(t, b)

	s, err := c.GetAsString(ctx, http.MethodGet, "garbage", nil)
	assert.NoError(t, err)
	assert.Equal(t, "<html>not json</html>", s)
}

func TestRequestReachesServerInOrder(t *testing.T) {
	var gotQuery, gotForm string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			gotQuery = r.URL.RawQuery
		} else {
			b, _ := io.ReadAll(r.Body)
			gotForm = string(b)
		}
	}))
	defer srv.Close()
	c := newTestConnector(t, srv.URL)

	spec := func() *RequestSpec { return NewRequest().AddParam("b", "2").AddParam("a", "1") }
	require.NoError(t, c.Call(context.Background(), http.MethodGet, "x", spec()))
	require.NoError(t, c.Call(context.Background(), http.MethodPost, "x", spec()))
	assert.Equal(t, "b=2&a=1", gotQuery)
	form, err := url.ParseQuery(gotForm)
	require.NoError(t, err)
	assert.Equal(t, "1", form.Get("a"))
	assert.Equal(t, "b=2&a=1", gotForm)
}

func TestURL(t *testing.T) {
	c := newTestConnector(t, "http://localhost:8080/opencms/IDEConnector")
	assert.Equal(t, "http://localhost:8080/opencms/IDEConnector/login", c.URL("login"))
	assert.Equal(t, "http://localhost:8080/version", c.URL("/version"))
}
