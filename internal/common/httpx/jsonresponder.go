package httpx

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tansive/ideconnector/internal/common/logtrace"
)

// SendJsonRsp sends a JSON response with the given status code and message.
// Handles both pre-marshaled JSON and structs.
func SendJsonRsp(ctx context.Context, w http.ResponseWriter, statusCode int, msg any) {
	var msgJson []byte
	switch m := msg.(type) {
	case []byte:
		if json.Valid(m) {
			msgJson = m
		}
	case json.RawMessage:
		if json.Valid(m) {
			msgJson = m
		}
	default:
		var err error
		msgJson, err = json.Marshal(msg)
		if err != nil {
			log.Ctx(ctx).Err(err).Msg("unable to marshal json")
			ErrApplicationError("Id: " + logtrace.RequestIdFromContext(ctx)).Send(w)
			return
		}
	}
	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(statusCode)
	w.Write(msgJson)
}

// SendTextRsp sends a plain text response.
func SendTextRsp(w http.ResponseWriter, statusCode int, msg string) {
	w.Header().Set("Content-Type", ContentTypeText+"; charset=utf-8")
	w.WriteHeader(statusCode)
	w.Write([]byte(msg))
}
