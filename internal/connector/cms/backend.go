// Package cms is the boundary between the connector service and the content management
// engine. The service authenticates users, checks for installed modules, deletes them and
// imports module archives only through the Backend and Context interfaces defined here.
package cms

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/tansive/ideconnector/internal/common/apperrors"
)

// Context is the execution handle of an authenticated principal. It is created by
// Backend.Login and stays bound to one session until logout.
type Context interface {
	// Principal returns the name of the authenticated user.
	Principal() string

	// SiteRoot returns the site root that imports are written to.
	SiteRoot() string

	// SetSiteRoot switches the site root and returns the previous one.
	SetSiteRoot(root string) string

	// Lock serializes long running operations on the context.
	Lock()

	// Unlock releases the lock taken with Lock.
	Unlock()
}

// Backend is the content management engine the connector drives. Operations that produce
// progress output write it line by line to report as the work proceeds.
type Backend interface {
	// Login authenticates user and returns a fresh execution context.
	Login(ctx context.Context, user, password string) (Context, apperrors.Error)

	// ModuleExists reports whether the module is installed.
	ModuleExists(ctx context.Context, c Context, name string) bool

	// DeleteModule removes an installed module.
	DeleteModule(ctx context.Context, c Context, name string, report io.Writer) apperrors.Error

	// ImportModule imports the module archive at zipPath to the context's site root.
	ImportModule(ctx context.Context, c Context, zipPath string, report io.Writer) apperrors.Error
}

// Factory creates a backend from its options.
type Factory func(options map[string]any) (Backend, apperrors.Error)

var factories = map[string]Factory{
	BackendFilesystem: NewFilesystemBackend,
}

// Backend types known to New.
const (
	BackendFilesystem = "filesystem"
)

// New creates a backend of the given type.
func New(backendType string, options map[string]any) (Backend, apperrors.Error) {
	f, ok := factories[strings.ToLower(strings.TrimSpace(backendType))]
	if !ok {
		return nil, ErrUnknownBackend.Msg("unknown backend type: " + backendType + " (supported: " + strings.Join(Types(), ", ") + ")")
	}
	return f(options)
}

// Types returns the supported backend types.
func Types() []string {
	types := make([]string, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
