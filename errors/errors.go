package errors

import (
	goerrors "errors"
	"fmt"
	"net/http"
)

// The four kinds every failure is classified into before it leaves the service layer.
var (
	ErrValidation    = fmt.Errorf("validation error")
	ErrAuthorization = fmt.Errorf("authorization error")
	ErrStorage       = fmt.Errorf("storage error")
	ErrUpstream      = fmt.Errorf("upstream error")
)

var (
	ErrUnknownSenderRole  = fmt.Errorf("%w: unknown sender role", ErrValidation)
	ErrUnknownContentKind = fmt.Errorf("%w: unknown content kind", ErrValidation)
	ErrUnknownChannel     = fmt.Errorf("%w: unknown channel", ErrValidation)
	ErrOwnerNotFound      = fmt.Errorf("%w: owner identity not found", ErrValidation)
	ErrIdentityNotFound   = fmt.Errorf("%w: identity not found", ErrValidation)
	ErrEmptyMessage       = fmt.Errorf("%w: message has neither content nor attachment", ErrValidation)
	ErrFileNotAllowed     = fmt.Errorf("%w: file type not allowed", ErrValidation)
	ErrContentTooLarge    = fmt.Errorf("%w: content too large", ErrValidation)
	ErrEmptySearch        = fmt.Errorf("%w: search has no terms", ErrValidation)

	ErrMissingSecret   = fmt.Errorf("%w: operator secret is missing", ErrAuthorization)
	ErrInvalidSecret   = fmt.Errorf("%w: operator secret mismatch", ErrAuthorization)
	ErrInvalidSession  = fmt.Errorf("%w: invalid or expired session token", ErrAuthorization)
	ErrForbiddenOwner  = fmt.Errorf("%w: identity does not own this conversation", ErrAuthorization)
	ErrForbiddenSender = fmt.Errorf("%w: sender role not allowed for this tier", ErrAuthorization)
	ErrOperatorOnly    = fmt.Errorf("%w: operator tier required", ErrAuthorization)

	ErrTokenGeneration = fmt.Errorf("%w: token generation failed", ErrStorage)
	ErrTooManyConflict = fmt.Errorf("%w: too many transaction conflicts", ErrStorage)

	ErrCompletionTimeout  = fmt.Errorf("%w: completion service timed out", ErrUpstream)
	ErrCompletionRejected = fmt.Errorf("%w: completion service rejected the request", ErrUpstream)
	ErrCompletionEmpty    = fmt.Errorf("%w: completion service returned no choice", ErrUpstream)

	ErrWorkerPanic = fmt.Errorf("worker panic")
)

type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindStorage       Kind = "storage"
	KindUpstream      Kind = "upstream"
	KindInternal      Kind = "internal"
)

// Failure is the structured error handed back to callers of the boundary layer.
type Failure struct {
	Kind   Kind   `json:"kind"`
	Detail string `json:"message"`
}

// KindOf classifies err into one of the four kinds, or KindInternal when it carries none.
func KindOf(err error) Kind {
	switch {
	case goerrors.Is(err, ErrValidation):
		return KindValidation
	case goerrors.Is(err, ErrAuthorization):
		return KindAuthorization
	case goerrors.Is(err, ErrStorage):
		return KindStorage
	case goerrors.Is(err, ErrUpstream):
		return KindUpstream
	default:
		return KindInternal
	}
}

func ToFailure(err error) Failure {
	return Failure{Kind: KindOf(err), Detail: err.Error()}
}

// MapToHTTPStatus translates the error kind into the status code the transport answers with.
func MapToHTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Storage wraps a persistence failure so callers can classify it.
func Storage(err error) error {
	if err == nil || goerrors.Is(err, ErrStorage) || goerrors.Is(err, ErrValidation) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}

// Upstream wraps a completion-service failure so callers can classify it.
func Upstream(err error) error {
	if err == nil || goerrors.Is(err, ErrUpstream) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}

func Is(err, target error) bool {
	return goerrors.Is(err, target)
}

func As(err error, target any) bool {
	return goerrors.As(err, target)
}
