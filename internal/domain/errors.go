package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Services wrap these with fmt.Errorf("%w: ...") and handlers map
// them to transport codes with KindOf.
var (
	ErrValidation       = errors.New("validation error")
	ErrConflict         = errors.New("conflict")
	ErrNotFound         = errors.New("not found")
	ErrIntegrity        = errors.New("integrity error")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrForbidden        = errors.New("forbidden")
)

// ErrNoUnitAvailable is returned when every unit of a model is taken for the
// requested window.
var ErrNoUnitAvailable = fmt.Errorf("%w: no unit available for the requested window", ErrConflict)

// ErrAmountMismatch is returned when a gateway callback reports an amount
// other than the one the payment was created for.
var ErrAmountMismatch = fmt.Errorf("%w: amount does not match payment", ErrConflict)

type Kind string

const (
	KindValidation       Kind = "validation_error"
	KindConflict         Kind = "conflict"
	KindNotFound         Kind = "not_found"
	KindIntegrity        Kind = "integrity_error"
	KindInvalidSignature Kind = "invalid_signature"
	KindForbidden        Kind = "forbidden"
	KindInternal         Kind = "internal_error"
)

// KindOf classifies err. Anything unrecognised is internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrIntegrity):
		return KindIntegrity
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrInvalidSignature):
		return KindInvalidSignature
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	}
	return KindInternal
}

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Forbiddenf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}
