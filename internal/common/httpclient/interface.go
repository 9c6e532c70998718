package httpclient

import (
	"context"
	"iter"
)

// ConnectorInterface is the set of calls the connector client needs from a transport.
type ConnectorInterface interface {
	// Execute sends the request and buffers the reply.
	Execute(ctx context.Context, method, service string, spec *RequestSpec) *Outcome

	// GetAsString returns the reply body of a successful call as text.
	GetAsString(ctx context.Context, method, service string, spec *RequestSpec) (string, error)

	// GetAsObject decodes the reply into out and reports whether a value was decoded.
	GetAsObject(ctx context.Context, method, service string, spec *RequestSpec, out any) (bool, error)

	// Lines returns the reply body as a lazy, single use sequence of lines.
	Lines(ctx context.Context, method, service string, spec *RequestSpec) iter.Seq2[string, error]

	// StreamLines calls sink for every line of the reply body as it arrives.
	StreamLines(ctx context.Context, method, service string, spec *RequestSpec, sink func(line string)) error
}

var _ ConnectorInterface = &Connector{}
