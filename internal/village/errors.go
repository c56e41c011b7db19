package village

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mmynk/villagebank/internal/storage"
)

// Domain errors. Callers match them with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidInvite       = errors.New("invalid or expired invite link")
	ErrAlreadyMember       = errors.New("user is already a member of the group")
	ErrConcurrencyConflict = errors.New("invite was accepted by a concurrent request")
	ErrNotMember           = errors.New("user is not a member of the group")
	ErrActiveCycleExists   = errors.New("group already has an active cycle")
	ErrNoActiveCycle       = errors.New("group has no active cycle")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field string
	Rule  string
}

// ValidationError is returned when group, constitution or ledger input is
// missing or out of range.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s (%s)", f.Field, f.Rule)
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

// InfraError wraps a persistence failure. It is never one of the domain
// errors above.
type InfraError struct {
	Op  string
	Err error
}

func (e *InfraError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *InfraError) Unwrap() error { return e.Err }

// translate maps storage results onto the domain taxonomy.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, storage.ErrAlreadyMember):
		return fmt.Errorf("%s: %w", op, ErrAlreadyMember)
	case errors.Is(err, storage.ErrActiveCycleExists):
		return fmt.Errorf("%s: %w", op, ErrActiveCycleExists)
	case errors.Is(err, storage.ErrCycleNotActive):
		return fmt.Errorf("%s: %w", op, ErrNoActiveCycle)
	case errors.Is(err, storage.ErrInviteNotPending):
		return fmt.Errorf("%s: %w", op, ErrConcurrencyConflict)
	default:
		return &InfraError{Op: op, Err: err}
	}
}
