package httpx

import (
	"net/http"
)

// ResponseWriter is the writer middleware hands down the chain. It remembers the status
// line, so a panic handler knows whether an error reply can still be sent, and counts the
// bytes and flushes of a reply, which for a streamed import is the only trace of its
// progress in the request log.
type ResponseWriter struct {
	http.ResponseWriter
	status  int // 0 until the status line is sent
	bytes   int64
	flushes int
}

// NewResponseWriter wraps w.
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{ResponseWriter: w}
}

// WriteHeader sends the status line once; later calls are ignored.
func (rw *ResponseWriter) WriteHeader(code int) {
	if rw.status != 0 {
		return
	}
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *ResponseWriter) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += int64(n)
	return n, err
}

// Flush passes the flush on, so that streamed lines are not held back by the middleware.
func (rw *ResponseWriter) Flush() {
	if rw.status == 0 {
		rw.WriteHeader(http.StatusOK)
	}
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		rw.flushes++
		f.Flush()
	}
}

// Unwrap gives http.ResponseController access to the underlying writer.
func (rw *ResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Written reports whether the status line was sent.
func (rw *ResponseWriter) Written() bool {
	return rw.status != 0
}

// Status returns the status code sent, 200 if nothing was sent yet.
func (rw *ResponseWriter) Status() int {
	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}

// BytesWritten returns the number of body bytes sent.
func (rw *ResponseWriter) BytesWritten() int64 {
	return rw.bytes
}

// Flushes returns how often the reply was flushed.
func (rw *ResponseWriter) Flushes() int {
	return rw.flushes
}
