// Package errs attaches a code to application errors. The code picks the
// HTTP status of the error page and the text a visitor reads on it; the
// wrapped cause only ever reaches the logs.
package errs

import (
	"errors"
	"net/http"
)

// Code classifies an application error.
type Code string

const (
	InvalidArgument    Code = "invalid_argument"
	NotFound           Code = "not_found"
	FailedPrecondition Code = "failed_precondition"
	PermissionDenied   Code = "permission_denied"
	Unauthenticated    Code = "unauthenticated"
	Internal           Code = "internal"
)

// Error is a coded application error. Message is meant for logs.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ErrCode lets *Error satisfy the same interface as domain error types.
func (e *Error) ErrCode() Code {
	if e == nil || e.Code == "" {
		return Internal
	}
	return e.Code
}

// New returns a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap returns a coded error around cause.
func Wrap(code Code, message string, cause error) error {
	return &Error{Code: code, Message: message, Err: cause}
}

// CodeOf returns the code of the outermost coded error in err's chain: an
// *Error or any type with an ErrCode() Code method. Everything else,
// including nil, is Internal.
func CodeOf(err error) Code {
	var coder interface{ ErrCode() Code }
	if err != nil && errors.As(err, &coder) {
		return coder.ErrCode()
	}
	return Internal
}

// MessageOf returns the log message of the outermost *Error in err's chain,
// or "internal error" for untyped errors so raw driver text is never echoed.
func MessageOf(err error) string {
	if err == nil {
		return string(Internal)
	}
	var coded *Error
	if errors.As(err, &coded) && coded.Message != "" {
		return coded.Message
	}
	return "internal error"
}

// HTTPStatus maps a code to the status of the page that reports it.
func HTTPStatus(code Code) int {
	switch code {
	case InvalidArgument:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case PermissionDenied:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case FailedPrecondition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PageText is what the error page tells a visitor about code.
func PageText(code Code) string {
	switch code {
	case InvalidArgument:
		return "Некорректный запрос"
	case Unauthenticated:
		return "Войдите, чтобы продолжить"
	case PermissionDenied:
		return "Недостаточно прав"
	case NotFound:
		return "Страница не найдена"
	case FailedPrecondition:
		return "Запрос конфликтует с текущими данными"
	default:
		return "Внутренняя ошибка сервера"
	}
}
