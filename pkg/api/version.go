package api

import (
	"github.com/Masterminds/semver/v3"
)

// ProtocolVersion is the version of the connector protocol served by this module.
// The version follows semantic versioning (MAJOR.MINOR.PATCH).
const ProtocolVersion = "1.0.0"

// protocolConstraint accepts any version with the same major version.
var protocolConstraint *semver.Constraints

func init() {
	var err error
	protocolConstraint, err = semver.NewConstraint("^" + ProtocolVersion)
	if err != nil {
		panic(err)
	}
}

// IsProtocolCompatible reports whether a peer speaking the given protocol version can be
// served. Returns false for invalid version strings.
func IsProtocolCompatible(version string) bool {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return protocolConstraint.Check(v)
}

// VersionInfo is the reply of the /version endpoint.
type VersionInfo struct {
	ServerVersion string `json:"serverVersion"`
	ApiVersion    string `json:"apiVersion"`
}
