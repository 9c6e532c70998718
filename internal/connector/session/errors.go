package session

import (
	"net/http"

	"github.com/tansive/ideconnector/internal/common/apperrors"
)

var (
	// ErrSessionError is the base error for all session-related errors.
	ErrSessionError apperrors.Error = apperrors.New("error in processing session").SetStatusCode(http.StatusInternalServerError)

	// ErrInvalidSession is returned when a session cannot be created from the given context.
	ErrInvalidSession apperrors.Error = ErrSessionError.New("invalid session").SetStatusCode(http.StatusBadRequest)

	// ErrAlreadyExists is returned when a generated token collides with an active session.
	ErrAlreadyExists apperrors.Error = ErrSessionError.New("session already exists").SetStatusCode(http.StatusConflict)

	// ErrInvalidStoreConfig is returned when a session store is configured incorrectly.
	ErrInvalidStoreConfig apperrors.Error = ErrSessionError.New("invalid session store configuration")
)
