// Package httpx provides HTTP response handling for the connector service: JSON and text
// responders, error responses, and flushed streaming responses for long running actions.
package httpx

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tansive/ideconnector/internal/common/apperrors"
)

// WriteChunksFunc writes the body of a streamed response. Every write through the
// FlushWriter is pushed to the client before the call returns.
type WriteChunksFunc func(w *FlushWriter) error

// Response represents an HTTP response with configurable status code,
// content type, and optional chunked transfer encoding.
type Response struct {
	StatusCode  int
	ContentType string
	Response    any
	Chunked     bool
	WriteChunks WriteChunksFunc
}

// RequestHandler defines a function type for handling HTTP requests.
type RequestHandler func(r *http.Request) (*Response, error)

// WrapHttpRsp wraps a RequestHandler to provide standardized HTTP response handling,
// including error handling and content type management.
func WrapHttpRsp(handler RequestHandler) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rsp, err := handler(r)
		if err != nil {
			sendAnyError(w, err)
			return
		}
		if rsp == nil {
			ErrApplicationError().Send(w)
			return
		}
		if rsp.StatusCode == 0 {
			rsp.StatusCode = http.StatusOK
		}
		if rsp.Chunked {
			if rsp.WriteChunks == nil {
				ErrApplicationError("unable to write chunks").Send(w)
				return
			}
			fw, ok := NewFlushWriter(w)
			if !ok {
				ErrApplicationError("streaming not supported").Send(w)
				return
			}
			w.Header().Set("Content-Type", rsp.ContentType)
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.WriteHeader(rsp.StatusCode)
			fw.Flush()
			if err := rsp.WriteChunks(fw); err != nil {
				log.Ctx(r.Context()).Error().Err(err).Msg("error writing chunk")
			}
			return
		}

		if rsp.ContentType == "" {
			rsp.ContentType = ContentTypeJSON
		}
		switch rsp.ContentType {
		case ContentTypeJSON:
			SendJsonRsp(r.Context(), w, rsp.StatusCode, rsp.Response)
		case ContentTypeText:
			s, _ := rsp.Response.(string)
			SendTextRsp(w, rsp.StatusCode, s)
		default:
			ErrApplicationError("unsupported response type").Send(w)
		}
	})
}

const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain"
)

func sendAnyError(w http.ResponseWriter, err error) {
	var httperror *Error
	if errors.As(err, &httperror) {
		httperror.Send(w)
		return
	}
	var appErr apperrors.Error
	if errors.As(err, &appErr) {
		SendError(w, appErr)
		return
	}
	ErrApplicationError(err.Error()).Send(w)
}
