package domain

import (
	"net/http"
)

type ErrorCode int

const (
	ErrorCodeUnknown ErrorCode = iota
	ErrorCodeParameterInvalid
	ErrorCodeResourceNotFound
	ErrorCodeAuthNotAuthenticated
	ErrorCodeInternalProcess
	ErrorCodeRemoteProcess
)

// DomainError is a categorized error carried across component boundaries.
// The wrapped error keeps full context for logs; ClientMsg is the only part
// ever surfaced to callers.
type DomainError struct {
	code      ErrorCode
	err       error
	clientMsg string
	detail    map[string]interface{}
}

type ErrorOption func(*DomainError)

// WithMsg sets the user-safe message returned to the caller.
func WithMsg(msg string) ErrorOption {
	return func(e *DomainError) {
		e.clientMsg = msg
	}
}

// WithDetail attaches a structured detail field to the error response.
func WithDetail(key string, value interface{}) ErrorOption {
	return func(e *DomainError) {
		if e.detail == nil {
			e.detail = make(map[string]interface{})
		}
		e.detail[key] = value
	}
}

func NewError(code ErrorCode, err error, opts ...ErrorOption) DomainError {
	e := DomainError{
		code: code,
		err:  err,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

func (e DomainError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return e.clientMsg
}

func (e DomainError) Unwrap() error {
	return e.err
}

func (e DomainError) Name() string {
	switch e.code {
	case ErrorCodeParameterInvalid:
		return "PARAMETER_INVALID"
	case ErrorCodeResourceNotFound:
		return "RESOURCE_NOT_FOUND"
	case ErrorCodeAuthNotAuthenticated:
		return "AUTH_NOT_AUTHENTICATED"
	case ErrorCodeInternalProcess:
		return "INTERNAL_PROCESS"
	case ErrorCodeRemoteProcess:
		return "REMOTE_PROCESS_ERROR"
	default:
		return "UNKNOWN"
	}
}

func (e DomainError) ClientMsg() string {
	return e.clientMsg
}

func (e DomainError) Detail() map[string]interface{} {
	return e.detail
}

// HTTPStatus maps the error category to a response status. Not-found and
// business-rule rejections are caller-caused and map to 400; only
// infrastructure failures map to 500.
func (e DomainError) HTTPStatus() int {
	switch e.code {
	case ErrorCodeParameterInvalid, ErrorCodeResourceNotFound:
		return http.StatusBadRequest
	case ErrorCodeAuthNotAuthenticated:
		return http.StatusUnauthorized
	case ErrorCodeInternalProcess, ErrorCodeRemoteProcess:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
