package errs

import (
	"context"
	"errors"
	"fmt"
)

// Common sentinel errors for cross-layer signaling. Each one is an error kind;
// callers attach detail with Wrap and test with errors.Is.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not_found")
	ErrInvalid         = errors.New("invalid")
	// ErrInvalidAmount is returned for non-positive or over-precise amounts.
	ErrInvalidAmount = errors.New("invalid_amount")
	// ErrLimitExceeded signals the per-user wallet cap.
	ErrLimitExceeded = errors.New("limit_exceeded")
	// ErrInvariantViolation covers default-wallet conflicts and duplicate usernames.
	ErrInvariantViolation = errors.New("invariant_violation")
	// ErrStorage means the store was unreachable, timed out or rejected a write.
	ErrStorage = errors.New("storage_error")
	// ErrConflict is used by the HTTP layer for idempotency key reuse.
	ErrConflict = errors.New("conflict")
)

// Wrap attaches a message to an error kind.
func Wrap(kind error, msg string) error { return fmt.Errorf("%w: %s", kind, msg) }

// FromStore passes through kinds the store may legitimately return and wraps
// everything else as ErrStorage.
func FromStore(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return err
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: store timeout: %v", ErrStorage, err)
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}

var kinds = []error{
	ErrUnauthenticated, ErrForbidden, ErrNotFound, ErrInvalid, ErrInvalidAmount,
	ErrLimitExceeded, ErrInvariantViolation, ErrStorage, ErrConflict,
}

// Code returns the stable machine code of err's kind, or "internal".
func Code(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k.Error()
		}
	}
	return "internal"
}
