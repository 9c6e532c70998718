// Package service implements the connector actions served over HTTP: login, logout and the
// streamed module import. Actions are dispatched by the last path segment below the service
// path; GET and POST are treated alike and parameters may come from the query string or a
// form encoded body.
package service

import (
	"github.com/tansive/ideconnector/internal/connector/cms"
	"github.com/tansive/ideconnector/internal/connector/session"
)

// Service dispatches connector actions to a CMS backend.
type Service struct {
	backend  cms.Backend
	sessions session.Store
	importer *Importer
}

// New creates a Service. Sessions are kept in sessions.
func New(backend cms.Backend, sessions session.Store) *Service {
	return &Service{
		backend:  backend,
		sessions: sessions,
		importer: NewImporter(backend),
	}
}
