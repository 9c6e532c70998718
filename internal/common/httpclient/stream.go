package httpclient

import (
	"bufio"
	"context"
	"io"
	"iter"
	"sync/atomic"

	"github.com/pkg/errors"
)

// maxLineLength bounds a single streamed line.
const maxLineLength = 1 << 20

// Lines executes the request and returns the reply body as a lazy sequence of lines. Each line
// is yielded as soon as its terminating newline has arrived, in the order the server wrote
// them. The request is sent when iteration starts; the sequence can be iterated only once.
// A failed call yields a single *ConnectorError. The response is released when the body is
// exhausted, when an error occurs, or when the consumer stops early.
func (c *Connector) Lines(ctx context.Context, method, service string, spec *RequestSpec) iter.Seq2[string, error] {
	var used atomic.Bool
	return func(yield func(string, error) bool) {
		if used.Swap(true) {
			yield("", ErrStreamConsumed)
			return
		}
		body, release, err := c.open(ctx, method, service, spec)
		if err != nil {
			yield("", err)
			return
		}
		defer release()

		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
		for scanner.Scan() {
			if !yield(scanner.Text(), nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			c.logger.Error().Err(err).Str("url", c.URL(service)).Msg("error reading the response stream")
			yield("", &ConnectorError{
				Kind:    OutcomeTransportError,
				Message: "error reading the response body",
				Err:     errors.WithStack(err),
			})
		}
	}
}

// StreamLines executes the request and calls sink once per line, see Lines.
func (c *Connector) StreamLines(ctx context.Context, method, service string, spec *RequestSpec, sink func(line string)) error {
	for line, err := range c.Lines(ctx, method, service, spec) {
		if err != nil {
			return err
		}
		sink(line)
	}
	return nil
}

// open sends the request and returns the body of a 200 reply unread. Any other outcome is
// buffered, classified and returned as an error.
func (c *Connector) open(ctx context.Context, method, service string, spec *RequestSpec) (io.Reader, func(), error) {
	resp, release, err := c.send(ctx, method, service, spec)
	if err != nil {
		o := &Outcome{Kind: OutcomeTransportError, Err: err, url: c.URL(service)}
		return nil, nil, o.Error()
	}
	if resp.StatusCode == 200 {
		return resp.Body, release, nil
	}
	defer release()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		o := &Outcome{Kind: OutcomeTransportError, Err: err, url: c.URL(service)}
		return nil, nil, o.Error()
	}
	return nil, nil, c.classify(resp.StatusCode, body, service, spec).Error()
}
