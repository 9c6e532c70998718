package apperrors

import (
	"errors"
	"strings"
)

type appError struct {
	msg        string
	base       error   // template this error was derived from
	causes     []error // wrapped causes, in the order they were attached
	statuscode int
}

func (e *appError) Error() string {
	return e.msg
}

// ErrorAll returns the message followed by the messages of all attached causes.
func (e *appError) ErrorAll() string {
	var b strings.Builder
	b.WriteString(e.msg)
	for _, err := range e.causes {
		b.WriteString("; ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *appError) Unwrap() error {
	return e.base
}

// Msg creates a new error with a new message derived from e. Causes attached to e are kept.
func (e *appError) Msg(msg string) Error {
	return &appError{
		msg:        msg,
		base:       e,
		causes:     e.causes,
		statuscode: e.statuscode,
	}
}

// New creates a fresh error using the current error as a template.
func (e *appError) New(msg string) Error {
	return &appError{
		msg:        msg,
		base:       e,
		statuscode: e.statuscode,
	}
}

// MsgErr creates a new error with a message and the given causes.
func (e *appError) MsgErr(msg string, errs ...error) Error {
	return &appError{
		msg:        msg,
		base:       e,
		causes:     append(append([]error{}, e.causes...), errs...),
		statuscode: e.statuscode,
	}
}

// Err attaches causes to a copy of e, keeping its message and status code.
func (e *appError) Err(errs ...error) Error {
	return e.MsgErr(e.msg, errs...)
}

// SetStatusCode returns a shallow copy with an updated status code.
func (e *appError) SetStatusCode(code int) Error {
	cp := *e
	cp.statuscode = code
	return &cp
}

func (e *appError) StatusCode() int {
	return e.statuscode
}

// Is reports whether target is e's template chain or one of its causes.
func (e *appError) Is(target error) bool {
	if target == nil {
		return false
	}
	if e == target {
		return true
	}
	if e.base != nil && errors.Is(e.base, target) {
		return true
	}
	for _, err := range e.causes {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// New creates a root-level Error with the given message.
func New(msg string) Error {
	return &appError{
		msg: msg,
	}
}
