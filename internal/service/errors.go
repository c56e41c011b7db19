package service

import (
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/villagebank/internal/auth"
	"github.com/mmynk/villagebank/internal/village"
)

// toConnectError maps domain errors onto Connect codes. Infrastructure
// failures are logged and reported as unavailable without their cause.
func toConnectError(op string, err error) error {
	var verr *village.ValidationError
	var infra *village.InfraError

	switch {
	case errors.As(err, &verr):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, village.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, village.ErrInvalidInvite):
		return connect.NewError(connect.CodeFailedPrecondition, village.ErrInvalidInvite)
	case errors.Is(err, village.ErrAlreadyMember), errors.Is(err, village.ErrActiveCycleExists):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, village.ErrConcurrencyConflict):
		return connect.NewError(connect.CodeAborted, err)
	case errors.Is(err, village.ErrNotMember):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, village.ErrNoActiveCycle):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.As(err, &infra):
		slog.Error(op+" failed", "error", err)
		return connect.NewError(connect.CodeUnavailable, errors.New("storage unavailable"))
	default:
		slog.Error(op+" failed", "error", err)
		return connect.NewError(connect.CodeInternal, errors.New("internal error"))
	}
}

func unauthenticated() error {
	return connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
}
