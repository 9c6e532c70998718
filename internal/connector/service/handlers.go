package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"github.com/tansive/ideconnector/internal/common/httpx"
	"github.com/tansive/ideconnector/pkg/api"
)

// NotLoggedInMessage is the description of the 401 reply to a call without a valid token.
const NotLoggedInMessage = "Not logged in, access denied."

func (s *Service) login(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	user := r.FormValue(api.ParamUser)
	password := r.FormValue(api.ParamPassword)

	status := &api.LoginStatus{}
	c, err := s.backend.Login(ctx, user, password)
	if err != nil {
		log.Ctx(ctx).Error().Str("user", user).Str("error", err.ErrorAll()).Msg("error logging in")
		status.Message = "ERROR logging in: " + err.ErrorAll() + "."
		return &httpx.Response{Response: status}, nil
	}
	token, err := s.sessions.Create(c)
	if err != nil {
		log.Ctx(ctx).Error().Str("user", user).Str("error", err.ErrorAll()).Msg("error creating session")
		status.Message = "ERROR creating session: " + err.ErrorAll() + "."
		return &httpx.Response{Response: status}, nil
	}

	log.Ctx(ctx).Info().Str("user", user).Msg("user logged in")
	status.LoggedIn = true
	status.Token = token
	status.Message = fmt.Sprintf("User %s logged in successfully.", user)
	return &httpx.Response{Response: status}, nil
}

func (s *Service) logout(r *http.Request) (*httpx.Response, error) {
	s.sessions.Destroy(r.FormValue(api.ParamToken))
	return &httpx.Response{
		ContentType: httpx.ContentTypeText,
		Response:    api.LogoutSuccess,
	}, nil
}

func (s *Service) importModule(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	c, ok := s.sessions.Lookup(r.FormValue(api.ParamToken))
	if !ok {
		return nil, httpx.ErrUnAuthorized(NotLoggedInMessage)
	}
	units, err := parseImportUnits(r.FormValue(api.ParamJSON))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("invalid import request")
		return nil, httpx.ErrInvalidRequest(err.Error())
	}

	return &httpx.Response{
		Chunked:     true,
		ContentType: httpx.ContentTypeText + "; charset=utf-8",
		WriteChunks: func(w *httpx.FlushWriter) error {
			return s.importer.Run(ctx, c, units, w)
		},
	}, nil
}

const importUnitsSchema = `
{
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "required": ["moduleZipPath"],
    "properties": {
      "moduleZipPath": {"type": "string", "minLength": 1},
      "importSiteRoot": {"type": ["string", "null"]}
    }
  }
}`

var importUnitsSchemaCompiled = mustCompileSchema(importUnitsSchema)

func mustCompileSchema(schema string) *jsonschema.Schema {
	if !gjson.Valid(schema) {
		panic("invalid JSON schema")
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("inline://schema", bytes.NewReader([]byte(schema))); err != nil {
		panic(err)
	}
	return compiler.MustCompile("inline://schema")
}

// parseImportUnits validates and decodes the "j" parameter of an import call.
func parseImportUnits(j string) ([]api.ModuleImportInfo, error) {
	if j == "" {
		return nil, fmt.Errorf("parameter %q is required", api.ParamJSON)
	}
	var doc any
	if err := json.Unmarshal([]byte(j), &doc); err != nil {
		return nil, fmt.Errorf("parameter %q is not valid JSON: %w", api.ParamJSON, err)
	}
	if err := importUnitsSchemaCompiled.Validate(doc); err != nil {
		return nil, fmt.Errorf("parameter %q does not list modules to import: %w", api.ParamJSON, err)
	}
	var units []api.ModuleImportInfo
	if err := json.Unmarshal([]byte(j), &units); err != nil {
		return nil, fmt.Errorf("parameter %q cannot be decoded: %w", api.ParamJSON, err)
	}
	return units, nil
}
