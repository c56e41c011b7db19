package village

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mmynk/villagebank/internal/models"
	"github.com/mmynk/villagebank/internal/storage"
)

// ConstitutionParams are the rules a group is created with.
type ConstitutionParams struct {
	CycleDurationDays   int32  `json:"cycle_duration" validate:"gt=0"`
	MinimumSavings      int64  `json:"minimum_savings" validate:"gte=0"`
	InitialContribution int64  `json:"initial_contribution" validate:"gte=0"`
	LoanTermMonths      int32  `json:"loan_term" validate:"gt=0"`
	MeetingFrequency    string `json:"meeting_frequency" validate:"required,oneof=weekly biweekly monthly"`
	LatePaymentFee      int64  `json:"late_payment_fee" validate:"gte=0"`
}

type newGroupInput struct {
	Name         string             `json:"name" validate:"required,max=120"`
	CreatorID    string             `json:"creator_id" validate:"required"`
	Constitution ConstitutionParams `json:"constitution"`
}

type entryInput struct {
	Amount int64 `json:"amount" validate:"gt=0"`
}

// Manager owns group creation, membership and the cycle ledger writes.
type Manager struct {
	store storage.Store
}

// NewManager creates a Manager on the given store.
func NewManager(store storage.Store) *Manager {
	return &Manager{store: store}
}

// CreateGroup creates a group, its constitution, its zero-balance account and
// the creator's membership as one unit.
func (m *Manager) CreateGroup(ctx context.Context, name string, params ConstitutionParams, creatorID string) (*models.Group, error) {
	input := newGroupInput{
		Name:         strings.TrimSpace(name),
		CreatorID:    strings.TrimSpace(creatorID),
		Constitution: params,
	}
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	group := &models.Group{Name: input.Name}
	constitution := &models.Constitution{
		CycleDurationDays:   params.CycleDurationDays,
		MinimumSavings:      params.MinimumSavings,
		InitialContribution: params.InitialContribution,
		LoanTermMonths:      params.LoanTermMonths,
		MeetingFrequency:    models.MeetingFrequency(params.MeetingFrequency),
		LatePaymentFee:      params.LatePaymentFee,
	}

	if err := m.store.CreateGroup(ctx, group, constitution, input.CreatorID); err != nil {
		return nil, translate("create group", err)
	}

	slog.Debug("Group persisted", "group_id", group.ID, "creator", input.CreatorID)
	return group, nil
}

// AttachMember adds a user to a group. Attaching an existing member fails
// with ErrAlreadyMember and writes nothing.
func (m *Manager) AttachMember(ctx context.Context, groupID, userID string) (*models.Membership, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, &ValidationError{Fields: []FieldError{{Field: "user_id", Rule: "required"}}}
	}

	membership, err := m.store.AddMember(ctx, groupID, userID)
	if err != nil {
		return nil, translate("attach member", err)
	}
	return membership, nil
}

// AttachMemberBy attaches userID on behalf of actorID, who must already be a
// member of the group.
func (m *Manager) AttachMemberBy(ctx context.Context, groupID, actorID, userID string) (*models.Membership, error) {
	if err := m.requireMember(ctx, groupID, actorID); err != nil {
		return nil, err
	}
	return m.AttachMember(ctx, groupID, userID)
}

// StartCycle opens a new active cycle. Only members may start one, and only
// when no other cycle of the group is active.
func (m *Manager) StartCycle(ctx context.Context, groupID, userID string) (*models.Cycle, error) {
	if err := m.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}

	cycle := &models.Cycle{GroupID: groupID}
	if err := m.store.StartCycle(ctx, cycle); err != nil {
		return nil, translate("start cycle", err)
	}
	return cycle, nil
}

// CloseCycle closes the group's active cycle with the given id.
func (m *Manager) CloseCycle(ctx context.Context, groupID, cycleID, userID string) (*models.Cycle, error) {
	if err := m.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}

	cycle, err := m.store.CloseCycle(ctx, groupID, cycleID)
	if err != nil {
		return nil, translate("close cycle", err)
	}
	return cycle, nil
}

// RecordSaving records a member's saving in the active cycle and credits the
// group account. The amount must meet the constitution's minimum.
func (m *Manager) RecordSaving(ctx context.Context, groupID, userID string, amount int64) (*models.Saving, *models.GroupAccount, error) {
	if err := validateStruct(entryInput{Amount: amount}); err != nil {
		return nil, nil, err
	}
	if err := m.requireMember(ctx, groupID, userID); err != nil {
		return nil, nil, err
	}

	constitution, err := m.store.GetConstitution(ctx, groupID)
	if err != nil {
		return nil, nil, translate("record saving", err)
	}
	if amount < constitution.MinimumSavings {
		return nil, nil, &ValidationError{Fields: []FieldError{{Field: "amount", Rule: "minimum_savings"}}}
	}

	cycle, err := m.activeCycle(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}

	saving := &models.Saving{CycleID: cycle.ID, UserID: userID, Amount: amount}
	account, err := m.store.RecordSaving(ctx, saving)
	if err != nil {
		return nil, nil, translate("record saving", err)
	}
	return saving, account, nil
}

// RecordLoan records a loan drawn by a member in the active cycle and debits
// the group account.
func (m *Manager) RecordLoan(ctx context.Context, groupID, userID string, amount int64) (*models.Loan, *models.GroupAccount, error) {
	if err := validateStruct(entryInput{Amount: amount}); err != nil {
		return nil, nil, err
	}
	if err := m.requireMember(ctx, groupID, userID); err != nil {
		return nil, nil, err
	}

	cycle, err := m.activeCycle(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}

	loan := &models.Loan{CycleID: cycle.ID, UserID: userID, Amount: amount}
	account, err := m.store.RecordLoan(ctx, loan)
	if err != nil {
		return nil, nil, translate("record loan", err)
	}
	return loan, account, nil
}

// requireMember fails with ErrNotFound for an unknown group and ErrNotMember
// when the user does not belong to it.
func (m *Manager) requireMember(ctx context.Context, groupID, userID string) error {
	return requireMember(ctx, m.store, groupID, userID)
}

func requireMember(ctx context.Context, store storage.Store, groupID, userID string) error {
	if _, err := store.GetGroup(ctx, groupID); err != nil {
		return translate("load group", err)
	}
	ok, err := store.IsMember(ctx, groupID, userID)
	if err != nil {
		return translate("check membership", err)
	}
	if !ok {
		return ErrNotMember
	}
	return nil
}

func (m *Manager) activeCycle(ctx context.Context, groupID string) (*models.Cycle, error) {
	cycles, err := m.store.ListActiveCycles(ctx, groupID)
	if err != nil {
		return nil, translate("load active cycle", err)
	}
	cycle := selectActiveCycle(cycles)
	if cycle == nil {
		return nil, ErrNoActiveCycle
	}
	return cycle, nil
}
