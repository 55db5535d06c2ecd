// Package apperr defines the tagged error variants used at every external
// boundary. Handlers map kinds to HTTP statuses; the MQ worker maps them to
// retry decisions. Converting at the boundary keeps callers from probing
// error strings or provider-specific fields.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Kind identifies which collaborator or failure class produced an error.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindDatabase     Kind = "database"
	KindDelivery     Kind = "delivery"
	KindUnknown      Kind = "unknown"
)

// Error is the tagged error carried across layer boundaries.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a tagged error without an underlying cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap tags an underlying error.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind from any error, defaulting to unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is lets errors.Is match on kind alone.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// FromDB converts a pgx error into a tagged error.
func FromDB(msg string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return Wrap(KindNotFound, msg, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 unique_violation, 23503 foreign_key_violation
		switch pgErr.Code {
		case "23505":
			return Wrap(KindConflict, msg, err)
		case "23503":
			return Wrap(KindValidation, msg, err)
		}
	}
	return Wrap(KindDatabase, msg, err)
}

// HTTPStatus maps an error kind to the response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// IsRetryable reports whether a failed operation is worth retrying, and a
// short label for logs and metrics.
func IsRetryable(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	switch KindOf(err) {
	case KindValidation, KindNotFound, KindConflict, KindUnauthorized, KindForbidden:
		return false, string(KindOf(err))
	case KindDelivery:
		return true, "delivery_error"
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true, "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return false, "context_canceled"
	}

	if KindOf(err) == KindDatabase {
		return true, "db_error"
	}

	return false, "unknown_error"
}
