// Package apperr carries the public face of a failure: a kind that decides
// the HTTP status, a message safe to show the caller, and optional detail.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	Invalid     Kind = "invalid"
	NotFound    Kind = "not_found"
	Conflict    Kind = "conflict"
	Rejected    Kind = "rejected"
	Unavailable Kind = "unavailable"
	Internal    Kind = "internal"
)

const defaultPublicMsg = "Internal server error"

// Processor rejections surface as 400 and an unreachable processor as 500;
// existing relay clients branch on exactly these codes.
var statusByKind = map[Kind]int{
	Invalid:     http.StatusBadRequest,
	Rejected:    http.StatusBadRequest,
	NotFound:    http.StatusNotFound,
	Conflict:    http.StatusConflict,
	Unavailable: http.StatusInternalServerError,
	Internal:    http.StatusInternalServerError,
}

func (e *AppError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.PublicMsg != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.PublicMsg)
	default:
		return string(e.Kind)
	}
}

func (e *AppError) Unwrap() error { return e.Err }

func InvalidErr(publicMsg string, fields map[string]string) *AppError {
	return &AppError{Kind: Invalid, PublicMsg: publicMsg, Fields: fields}
}

func NotFoundErr(publicMsg string) *AppError {
	return &AppError{Kind: NotFound, PublicMsg: publicMsg}
}

func ConflictErr(publicMsg string) *AppError {
	return &AppError{Kind: Conflict, PublicMsg: publicMsg}
}

// RejectedErr is a refusal by an upstream party; data is echoed to API
// callers for diagnostics.
func RejectedErr(publicMsg string, data any, err error) *AppError {
	return &AppError{Kind: Rejected, PublicMsg: publicMsg, Data: data, Err: err}
}

func UnavailableErr(publicMsg string, err error) *AppError {
	return &AppError{Kind: Unavailable, PublicMsg: publicMsg, Err: err}
}

// Wrap hides err behind the generic 500 message.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Kind: Internal, PublicMsg: defaultPublicMsg, Err: err}
}

func As(err error) (*AppError, bool) {
	var ae *AppError
	ok := errors.As(err, &ae)
	return ae, ok
}

func HTTPStatus(err error) int {
	if ae, ok := As(err); ok {
		if st, known := statusByKind[ae.Kind]; known {
			return st
		}
	}
	return http.StatusInternalServerError
}

func PublicMessage(err error) string {
	if ae, ok := As(err); ok && ae.PublicMsg != "" {
		return ae.PublicMsg
	}
	return defaultPublicMsg
}
