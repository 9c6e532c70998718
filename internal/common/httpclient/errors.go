package httpclient

import (
	"errors"
	"fmt"
)

// OutcomeKind classifies a completed call.
type OutcomeKind int

const (
	OutcomeOK OutcomeKind = iota
	OutcomeNotFound
	OutcomeFailure
	OutcomeTransportError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "not found"
	case OutcomeFailure:
		return "remote failure"
	case OutcomeTransportError:
		return "transport error"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Sentinels matched by ConnectorError via errors.Is.
var (
	ErrTransport     = errors.New("transport error")
	ErrNotFound      = errors.New("not found")
	ErrRemoteFailure = errors.New("remote failure")
	// ErrEncode is returned when a request cannot be built; nothing was sent.
	ErrEncode = errors.New("unable to encode request")
	// ErrPoolTimeout is the cause of a transport error when no pooled connection
	// became available within the request timeout.
	ErrPoolTimeout = errors.New("timed out waiting for a pooled connection")
	// ErrStreamConsumed is returned when a line sequence is iterated a second time.
	ErrStreamConsumed = errors.New("line stream already consumed")
)

// ConnectorError is returned for every call that did not end with HTTP 200.
// StatusCode is 0 for transport errors.
type ConnectorError struct {
	Kind       OutcomeKind
	StatusCode int
	Body       string
	Message    string
	Err        error
}

func (e *ConnectorError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ConnectorError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *ConnectorError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == OutcomeTransportError
	case ErrNotFound:
		return e.Kind == OutcomeNotFound
	case ErrRemoteFailure:
		return e.Kind == OutcomeFailure
	}
	return false
}

// StatusCodeOf returns the HTTP status of err if it is a ConnectorError, 0 otherwise.
func StatusCodeOf(err error) int {
	var cerr *ConnectorError
	if errors.As(err, &cerr) {
		return cerr.StatusCode
	}
	return 0
}

// Outcome is the result of one executed call: exactly one of OK, NotFound, Failure
// or TransportError.
type Outcome struct {
	Kind       OutcomeKind
	StatusCode int
	Body       []byte
	Err        error // cause of a transport error
	url        string
}

// Error returns nil for OutcomeOK and a *ConnectorError for every other kind.
func (o *Outcome) Error() error {
	switch o.Kind {
	case OutcomeOK:
		return nil
	case OutcomeNotFound:
		return &ConnectorError{
			Kind:       o.Kind,
			StatusCode: o.StatusCode,
			Body:       string(o.Body),
			Message:    "service returned NOT FOUND for " + o.url,
		}
	case OutcomeFailure:
		return &ConnectorError{
			Kind:       o.Kind,
			StatusCode: o.StatusCode,
			Body:       string(o.Body),
			Message:    fmt.Sprintf("service call failed; HTTP status %d. Url: %s", o.StatusCode, o.url),
		}
	default:
		return &ConnectorError{
			Kind:    OutcomeTransportError,
			Message: "error connecting to the backend",
			Err:     o.Err,
		}
	}
}
