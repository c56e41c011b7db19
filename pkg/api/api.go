// Package api defines the wire messages of villagebank.v1.VillageService.
//
// Amounts are integer minor currency units. Timestamps are Unix seconds.
package api

// Constitution is the rule set a group is created with.
type Constitution struct {
	CycleDuration       int32  `json:"cycleDuration"`
	MinimumSavings      int64  `json:"minimumSavings"`
	InitialContribution int64  `json:"initialContribution"`
	LoanTerm            int32  `json:"loanTerm"`
	MeetingFrequency    string `json:"meetingFrequency"`
	LatePaymentFee      int64  `json:"latePaymentFee"`
}

type Group struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"`
}

type Member struct {
	UserID   string `json:"userId"`
	JoinedAt int64  `json:"joinedAt"`
}

type Account struct {
	Balance   int64 `json:"balance"`
	UpdatedAt int64 `json:"updatedAt"`
}

type Cycle struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	StartedAt int64  `json:"startedAt"`
	ClosedAt  int64  `json:"closedAt,omitempty"`
}

// LedgerEntry is one saving or loan.
type LedgerEntry struct {
	ID        string `json:"id"`
	CycleID   string `json:"cycleId"`
	UserID    string `json:"userId"`
	Amount    int64  `json:"amount"`
	CreatedAt int64  `json:"createdAt"`
}

// LedgerSummary aggregates the active cycle. It is all zeros when the group
// has no active cycle.
type LedgerSummary struct {
	TotalSavings int64 `json:"totalSavings"`
	TotalLoans   int64 `json:"totalLoans"`
	NetBalance   int64 `json:"netBalance"`
}

type MemberPosition struct {
	UserID   string `json:"userId"`
	Saved    int64  `json:"saved"`
	Borrowed int64  `json:"borrowed"`
	Net      int64  `json:"net"`
}

type CreateGroupRequest struct {
	Name         string        `json:"name"`
	Constitution *Constitution `json:"constitution"`
}

type CreateGroupResponse struct {
	Group *Group `json:"group"`
}

type GetGroupViewRequest struct {
	GroupID string `json:"groupId"`
}

type GetGroupViewResponse struct {
	Group        *Group           `json:"group"`
	Members      []Member         `json:"members"`
	Constitution *Constitution    `json:"constitution"`
	Account      *Account         `json:"account"`
	ActiveCycles []Cycle          `json:"activeCycles"`
	ActiveCycle  *Cycle           `json:"activeCycle,omitempty"`
	Savings      []LedgerEntry    `json:"savings"`
	Loans        []LedgerEntry    `json:"loans"`
	Ledger       LedgerSummary    `json:"ledger"`
	Positions    []MemberPosition `json:"positions"`
}

type ListGroupsResponse struct {
	Groups []Group `json:"groups"`
}

type AttachMemberRequest struct {
	GroupID string `json:"groupId"`
	UserID  string `json:"userId"`
}

type AttachMemberResponse struct {
	Member *Member `json:"member"`
}

type StartCycleRequest struct {
	GroupID string `json:"groupId"`
}

type StartCycleResponse struct {
	Cycle *Cycle `json:"cycle"`
}

type CloseCycleRequest struct {
	GroupID string `json:"groupId"`
	CycleID string `json:"cycleId"`
}

type CloseCycleResponse struct {
	Cycle *Cycle `json:"cycle"`
}

// RecordEntryRequest records a saving or a loan for the caller in the
// group's active cycle.
type RecordEntryRequest struct {
	GroupID string `json:"groupId"`
	Amount  int64  `json:"amount"`
}

type RecordEntryResponse struct {
	Entry   *LedgerEntry `json:"entry"`
	Account *Account     `json:"account"`
}

type IssueInviteRequest struct {
	GroupID string `json:"groupId"`
}

type IssueInviteResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

type ResolveInviteRequest struct {
	Token string `json:"token"`
}

// Resolution statuses.
const (
	ResolveJoined        = "joined"
	ResolveAlreadyMember = "already_member"
	ResolveSuspended     = "suspended"
)

// ResolveInviteResponse reports the outcome of following an invite link.
// A suspended response carries the token to present again after login.
type ResolveInviteResponse struct {
	Status            string `json:"status"`
	GroupID           string `json:"groupId"`
	ContinuationToken string `json:"continuationToken,omitempty"`
	LoginURL          string `json:"loginUrl,omitempty"`
}
