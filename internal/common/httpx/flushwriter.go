package httpx

import (
	"io"
	"net/http"
	"sync"
)

// FlushWriter writes to an http.ResponseWriter and flushes after every write, so that
// output produced by a long running action reaches the client while the action runs.
type FlushWriter struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
}

// NewFlushWriter wraps w. It reports false if w cannot flush.
func NewFlushWriter(w http.ResponseWriter) (*FlushWriter, bool) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	return &FlushWriter{w: w, flusher: f}, true
}

// Write writes p and flushes it to the client.
func (fw *FlushWriter) Write(p []byte) (int, error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	n, err := fw.w.Write(p)
	fw.flusher.Flush()
	return n, err
}

// WriteLine writes s terminated by a newline.
func (fw *FlushWriter) WriteLine(s string) error {
	_, err := fw.Write([]byte(s + "\n"))
	return err
}

// Flush flushes buffered data to the client.
func (fw *FlushWriter) Flush() {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.flusher.Flush()
}
