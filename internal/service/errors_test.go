package service

import (
	"errors"
	"fmt"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"

	"github.com/mmynk/villagebank/internal/village"
)

func TestToConnectError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want connect.Code
	}{
		{"validation", &village.ValidationError{Fields: []village.FieldError{{Field: "name", Rule: "required"}}}, connect.CodeInvalidArgument},
		{"not found", fmt.Errorf("load group: %w", village.ErrNotFound), connect.CodeNotFound},
		{"invalid invite", village.ErrInvalidInvite, connect.CodeFailedPrecondition},
		{"already member", village.ErrAlreadyMember, connect.CodeAlreadyExists},
		{"active cycle exists", village.ErrActiveCycleExists, connect.CodeAlreadyExists},
		{"concurrency conflict", village.ErrConcurrencyConflict, connect.CodeAborted},
		{"not member", village.ErrNotMember, connect.CodePermissionDenied},
		{"no active cycle", village.ErrNoActiveCycle, connect.CodeFailedPrecondition},
		{"infra", &village.InfraError{Op: "load group", Err: errors.New("disk full")}, connect.CodeUnavailable},
		{"unknown", errors.New("boom"), connect.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, connect.CodeOf(toConnectError("op", tt.err)))
		})
	}
}

func TestToConnectError_HidesInfraCause(t *testing.T) {
	err := toConnectError("op", &village.InfraError{Op: "load group", Err: errors.New("disk full")})
	assert.NotContains(t, err.Error(), "disk full")
}
