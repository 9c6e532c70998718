// Package apperrors provides the error type used across the connector service. An Error carries
// the HTTP status code it should be reported with and keeps the chain of errors it was derived
// from, so errors.Is works against both the sentinel it was created from and any wrapped cause.
package apperrors

// Error defines the interface for application errors. All derivation methods return a new
// Error and leave the receiver unchanged, so package level sentinels can be derived safely.
type Error interface {
	error
	Unwrap() error // support for errors.Is / errors.As

	New(msg string) Error                  // creates a new error using current as template
	Msg(msg string) Error                  // creates a new error with message and wraps original
	MsgErr(msg string, err ...error) Error // creates error with message and wraps extra errors
	Err(err ...error) Error                // attaches additional errors to current error
	SetStatusCode(int) Error               // sets HTTP status code for the error
	StatusCode() int                       // returns the current status code
	ErrorAll() string                      // returns full message including wrapped causes
}
