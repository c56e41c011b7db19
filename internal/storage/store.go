// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/villagebank/internal/models"
)

// Errors returned by every Store implementation. Anything else is an
// infrastructure failure.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyMember     = errors.New("user is already a member of the group")
	ErrDuplicateToken    = errors.New("invite token already exists")
	ErrInviteNotPending  = errors.New("invite is not pending")
	ErrActiveCycleExists = errors.New("group already has an active cycle")
	ErrCycleNotActive    = errors.New("cycle is not active")
)

// Store defines the persistence operations of the village bank.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the domain layer.
//
// Create methods populate missing IDs and timestamps on the passed model.
type Store interface {
	// CreateGroup inserts the group, the creator's membership, the constitution
	// and a zero-balance account in one transaction.
	CreateGroup(ctx context.Context, group *models.Group, constitution *models.Constitution, creatorID string) error

	// GetGroup returns ErrNotFound for an unknown id.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroupsForUser returns the groups the user is a member of, oldest first.
	ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error)

	// AddMember inserts a membership if absent. Returns ErrNotFound for an
	// unknown group and ErrAlreadyMember if the pair already exists.
	AddMember(ctx context.Context, groupID, userID string) (*models.Membership, error)

	IsMember(ctx context.Context, groupID, userID string) (bool, error)
	ListMembers(ctx context.Context, groupID string) ([]models.Membership, error)
	GetConstitution(ctx context.Context, groupID string) (*models.Constitution, error)
	GetAccount(ctx context.Context, groupID string) (*models.GroupAccount, error)

	// CreateInvite returns ErrDuplicateToken when the token hash is taken.
	CreateInvite(ctx context.Context, invite *models.Invite) error

	// GetPendingInvite returns ErrNotFound unless a pending invite has the hash.
	GetPendingInvite(ctx context.Context, tokenHash string) (*models.Invite, error)

	// AcceptInvite moves a pending invite to accepted and adds the user to its
	// group in one transaction. Returns ErrInviteNotPending if the conditional
	// transition matched nothing, and ErrAlreadyMember (leaving the invite
	// pending) if the user already belongs to the group.
	AcceptInvite(ctx context.Context, tokenHash, userID string) (*models.Invite, error)

	// StartCycle returns ErrActiveCycleExists if the group has an active cycle.
	StartCycle(ctx context.Context, cycle *models.Cycle) error

	// CloseCycle returns ErrNotFound unless the cycle is active in the group.
	CloseCycle(ctx context.Context, groupID, cycleID string) (*models.Cycle, error)

	// ListActiveCycles returns active cycles, most recently started first.
	ListActiveCycles(ctx context.Context, groupID string) ([]*models.Cycle, error)

	// RecordSaving and RecordLoan insert the entry and move the group account
	// balance in one transaction. They return ErrCycleNotActive if the cycle
	// is not active.
	RecordSaving(ctx context.Context, saving *models.Saving) (*models.GroupAccount, error)
	RecordLoan(ctx context.Context, loan *models.Loan) (*models.GroupAccount, error)

	ListSavings(ctx context.Context, cycleID string) ([]models.Saving, error)
	ListLoans(ctx context.Context, cycleID string) ([]models.Loan, error)

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
