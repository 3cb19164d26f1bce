// Package apperr classifies domain errors so both HTTP surfaces can map them
// to the same status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Kind int

const (
	KindInvalid Kind = iota + 1
	KindUnauthorized
	KindNotFound
	KindConflict
)

var kindStatus = map[Kind]int{
	KindInvalid:      http.StatusBadRequest,
	KindUnauthorized: http.StatusUnauthorized,
	KindNotFound:     http.StatusNotFound,
	KindConflict:     http.StatusConflict,
}

// Error is a user-facing error. Its message is safe to return to clients.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches on kind and message so sentinel values survive wrapping and
// copying.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == e.Message
}

func Invalid(msg string) error { return &Error{Kind: KindInvalid, Message: msg} }

func Invalidf(format string, args ...any) error {
	return &Error{Kind: KindInvalid, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(msg string) error { return &Error{Kind: KindUnauthorized, Message: msg} }

func NotFound(msg string) error { return &Error{Kind: KindNotFound, Message: msg} }

func Conflict(msg string) error { return &Error{Kind: KindConflict, Message: msg} }

// KindOf returns the kind of the first *Error in err's chain, or zero.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}

// Message returns the user-facing message of err. Unclassified errors get a
// generic message so internals never reach clients.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return http.StatusText(http.StatusInternalServerError)
}

// HTTP converts err for an echo handler. Classified errors become an
// *echo.HTTPError with their status; anything else is returned unchanged
// for the central error handler to log and render as a 500.
func HTTP(err error) error {
	var ae *Error
	if errors.As(err, &ae) {
		return echo.NewHTTPError(kindStatus[ae.Kind], ae.Message)
	}
	return err
}
