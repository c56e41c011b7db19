package models

// InviteStatus is the state of an Invite. Only pending invites can be used.
type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
)

// Invite is a single-use credential granting one user the right to join a group.
//
// The raw token is handed to the inviter once and never stored; TokenHash is
// its digest and carries the uniqueness constraint.
type Invite struct {
	ID        string
	GroupID   string
	TokenHash string
	Status    InviteStatus
	CreatedBy string
	CreatedAt int64

	// AcceptedBy and AcceptedAt are set by the pending -> accepted transition.
	AcceptedBy string
	AcceptedAt int64
}
