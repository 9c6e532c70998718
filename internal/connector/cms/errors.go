package cms

import (
	"net/http"

	"github.com/tansive/ideconnector/internal/common/apperrors"
)

var (
	// ErrCmsError is the base error for the package.
	ErrCmsError apperrors.Error = apperrors.New("cms error").SetStatusCode(http.StatusInternalServerError)

	// ErrUnknownBackend is returned by New for an unsupported backend type.
	ErrUnknownBackend apperrors.Error = ErrCmsError.New("unknown backend")

	// ErrInvalidConfig is returned when backend options cannot be decoded or are incomplete.
	ErrInvalidConfig apperrors.Error = ErrCmsError.New("invalid backend configuration")

	// ErrLoginFailed is returned for unknown users and wrong passwords.
	ErrLoginFailed apperrors.Error = ErrCmsError.New("login failed").SetStatusCode(http.StatusUnauthorized)

	// ErrModuleNotFound is returned when deleting a module that is not installed.
	ErrModuleNotFound apperrors.Error = ErrCmsError.New("module not found").SetStatusCode(http.StatusNotFound)

	// ErrInvalidArchive is returned when a module archive is missing or is not a zip file.
	ErrInvalidArchive apperrors.Error = ErrCmsError.New("invalid module archive").SetStatusCode(http.StatusBadRequest)

	// ErrImportFailed is returned when writing the module content fails.
	ErrImportFailed apperrors.Error = ErrCmsError.New("import failed")

	// ErrDeleteFailed is returned when removing module content fails.
	ErrDeleteFailed apperrors.Error = ErrCmsError.New("delete failed")
)
