package apperrors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	ErrBase := New("base error").SetStatusCode(http.StatusInternalServerError)
	assert.Equal(t, "base error", ErrBase.Error())
	assert.ErrorIs(t, ErrBase, ErrBase)

	ErrFirstLevel := ErrBase.New("first level")
	assert.Equal(t, "first level", ErrFirstLevel.Error())
	assert.ErrorIs(t, ErrFirstLevel, ErrBase)
	assert.Equal(t, http.StatusInternalServerError, ErrFirstLevel.StatusCode())

	ErrOther := New("another error")
	wrapped := ErrFirstLevel.Err(ErrOther.Msg("another error msg"))
	assert.Equal(t, "first level", wrapped.Error())
	assert.ErrorIs(t, wrapped, ErrBase)
	assert.ErrorIs(t, wrapped, ErrFirstLevel)
	assert.ErrorIs(t, wrapped, ErrOther)
	assert.Equal(t, "first level; another error msg", wrapped.ErrorAll())

	cause := errors.New("disk full")
	withMsg := ErrFirstLevel.MsgErr("unable to import", cause)
	assert.Equal(t, "unable to import", withMsg.Error())
	assert.ErrorIs(t, withMsg, cause)
	assert.ErrorIs(t, withMsg, ErrBase)

	goErr := fmt.Errorf("go error")
	assert.ErrorIs(t, ErrFirstLevel.Err(goErr), goErr)
	assert.NotErrorIs(t, ErrFirstLevel, ErrOther)
}

func TestSetStatusCodeLeavesTemplateUntouched(t *testing.T) {
	ErrBase := New("base").SetStatusCode(http.StatusBadRequest)
	derived := ErrBase.SetStatusCode(http.StatusUnauthorized)
	assert.Equal(t, http.StatusBadRequest, ErrBase.StatusCode())
	assert.Equal(t, http.StatusUnauthorized, derived.StatusCode())
}
