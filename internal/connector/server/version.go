package server

// Version is the current version of the connector server.
// The version follows semantic versioning (MAJOR.MINOR.PATCH).
const Version = "0.1.0"
