package models

// CycleStatus is the lifecycle state of a Cycle.
type CycleStatus string

const (
	CycleActive CycleStatus = "active"
	CycleClosed CycleStatus = "closed"
)

// Cycle is a bounded savings period for a group.
type Cycle struct {
	ID        string
	GroupID   string
	Status    CycleStatus
	StartedAt int64

	// ClosedAt is zero while the cycle is active.
	ClosedAt int64
}

// Saving is a member contribution recorded against a cycle.
type Saving struct {
	ID        string
	CycleID   string
	UserID    string
	Amount    int64
	CreatedAt int64
}

// Loan is an amount drawn by a member during a cycle.
type Loan struct {
	ID        string
	CycleID   string
	UserID    string
	Amount    int64
	CreatedAt int64
}
