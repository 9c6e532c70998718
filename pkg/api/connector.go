// Package api defines the wire contract of the IDE connector: action names, parameter names,
// and the JSON documents exchanged between the connector client and the connector service.
package api

import (
	"fmt"
	"path"
	"strings"
)

// Actions served under the connector service path.
const (
	ServiceLogin        = "login"
	ServiceLogout       = "logout"
	ServiceImportModule = "importModule"
)

// Request parameter names.
const (
	ParamUser     = "u"
	ParamPassword = "p"
	ParamToken    = "t"
	ParamJSON     = "j"
)

// DefaultServicePath is the path prefix the connector actions are mounted under.
const DefaultServicePath = "/IDEConnector"

// LogoutSuccess is the body of a successful logout.
const LogoutSuccess = "success"

// RootSiteRoot is the site root used when an import does not name one.
const RootSiteRoot = "/"

// LoginStatus is the reply to a login call. A failed login is reported with LoggedIn set
// to false and HTTP status 200.
type LoginStatus struct {
	LoggedIn bool   `json:"loggedIn"`
	Message  string `json:"message"`
	Token    string `json:"token,omitempty"`
}

// ModuleImportInfo names one module archive to import and the site root to import it to.
type ModuleImportInfo struct {
	ModuleZipPath  string `json:"moduleZipPath"`
	ImportSiteRoot string `json:"importSiteRoot,omitempty"`
}

// SiteRoot returns the site root to import to, "/" when none was given.
func (m ModuleImportInfo) SiteRoot() string {
	if strings.TrimSpace(m.ImportSiteRoot) == "" {
		return RootSiteRoot
	}
	return m.ImportSiteRoot
}

// ModuleName derives the module name from the archive file name: the base name without its
// extension and without the trailing "_<version>" part, e.g. "/tmp/com.acme.web_1.2.zip"
// becomes "com.acme.web". Both "/" and "\" are accepted as separators.
func (m ModuleImportInfo) ModuleName() string {
	name := strings.ReplaceAll(m.ModuleZipPath, "\\", "/")
	name = path.Base(name)
	if i := strings.LastIndex(name, "_"); i > 0 {
		return name[:i]
	}
	return strings.TrimSuffix(name, path.Ext(name))
}

// MarkerPrefix starts every marker line written by the import stream.
const MarkerPrefix = "########"

// ErrorLinePrefix starts the line written for a module that failed to import.
const ErrorLinePrefix = "ERROR importing module "

// BatchStartMarker is written before a batch of n > 1 modules.
func BatchStartMarker(n int) string {
	return fmt.Sprintf("%s Importing %d modules START %s", MarkerPrefix, n, MarkerPrefix)
}

// BatchFinishMarker is written after a batch of n > 1 modules.
func BatchFinishMarker(n int) string {
	return fmt.Sprintf("%s Importing %d modules FINISHED %s", MarkerPrefix, n, MarkerPrefix)
}

// ModuleStartMarker is written before a module is imported.
func ModuleStartMarker(name, siteRoot string) string {
	return fmt.Sprintf("%s Importing module %s to site root %s START %s", MarkerPrefix, name, siteRoot, MarkerPrefix)
}

// ModuleFinishMarker is written after a module was imported successfully.
func ModuleFinishMarker(name string) string {
	return fmt.Sprintf("%s Importing module %s FINISHED %s", MarkerPrefix, name, MarkerPrefix)
}

// ModuleErrorLine is written instead of the finish marker when a module fails.
func ModuleErrorLine(name string, cause string) string {
	return ErrorLinePrefix + name + ": " + cause
}

// IsMarker reports whether line is a marker line.
func IsMarker(line string) bool {
	return strings.HasPrefix(line, MarkerPrefix)
}
