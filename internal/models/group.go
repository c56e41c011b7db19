package models

// Group represents a village bank savings group.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Market Women Alpha").
	Name string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// MeetingFrequency is how often a group meets to collect contributions.
type MeetingFrequency string

const (
	MeetingWeekly   MeetingFrequency = "weekly"
	MeetingBiweekly MeetingFrequency = "biweekly"
	MeetingMonthly  MeetingFrequency = "monthly"
)

// Constitution is the fixed rule-set governing a group's cycles.
// It is written once when the group is created and never updated.
type Constitution struct {
	GroupID string

	// CycleDurationDays is the length of one savings cycle.
	CycleDurationDays int32

	// MinimumSavings is the smallest saving a member may record per meeting.
	MinimumSavings int64

	// InitialContribution is the amount each member pays on joining.
	InitialContribution int64

	// LoanTermMonths is the repayment period for loans.
	LoanTermMonths int32

	MeetingFrequency MeetingFrequency

	// LatePaymentFee is charged when a contribution is missed.
	LatePaymentFee int64
}

// GroupAccount is the group's running balance.
//
// Balance is authoritative ledger state: it moves by +amount for every Saving
// and -amount for every Loan, in the same transaction as the entry itself.
type GroupAccount struct {
	GroupID   string
	Balance   int64
	UpdatedAt int64
}

// Membership links a user to a group.
type Membership struct {
	GroupID  string
	UserID   string
	JoinedAt int64
}
