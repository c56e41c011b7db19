package village

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/mmynk/villagebank/internal/models"
	"github.com/mmynk/villagebank/internal/storage"
)

// maxTokenAttempts bounds retries when a generated token collides.
const maxTokenAttempts = 5

// InviteLink is what an inviter shares with a prospective member.
type InviteLink struct {
	GroupID string
	Token   string
	URL     string
}

// Continuation is handed back when a join must wait for the caller to
// authenticate. Passing Token to ResolveInvite again with a user resumes it.
type Continuation struct {
	Token   string
	GroupID string
}

// Resolution is the outcome of ResolveInvite. Exactly one of Continuation or
// GroupID is meaningful: a suspended resolution has a Continuation.
type Resolution struct {
	GroupID       string
	AlreadyMember bool
	Continuation  *Continuation
}

// Suspended reports whether the join is waiting for authentication.
func (r *Resolution) Suspended() bool { return r.Continuation != nil }

// Invites issues and resolves join tokens.
type Invites struct {
	store    storage.Store
	baseURL  string
	newToken func() (string, error)
}

// InviteOption configures Invites.
type InviteOption func(*Invites)

// WithTokenSource replaces the random token generator.
func WithTokenSource(fn func() (string, error)) InviteOption {
	return func(i *Invites) { i.newToken = fn }
}

// NewInvites creates the invite workflow. baseURL prefixes shareable links.
func NewInvites(store storage.Store, baseURL string, opts ...InviteOption) *Invites {
	i := &Invites{
		store:    store,
		baseURL:  strings.TrimRight(baseURL, "/"),
		newToken: NewToken,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// IssueInvite creates a pending invite for the group. The inviter must be a
// member. Token collisions are retried with fresh tokens.
func (i *Invites) IssueInvite(ctx context.Context, groupID, inviterID string) (*InviteLink, error) {
	if err := requireMember(ctx, i.store, groupID, inviterID); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxTokenAttempts; attempt++ {
		token, err := i.newToken()
		if err != nil {
			return nil, &InfraError{Op: "issue invite", Err: err}
		}

		invite := &models.Invite{
			GroupID:   groupID,
			TokenHash: HashToken(token),
			CreatedBy: inviterID,
		}
		err = i.store.CreateInvite(ctx, invite)
		if errors.Is(err, storage.ErrDuplicateToken) {
			slog.Warn("Invite token collision, retrying", "group_id", groupID, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, translate("issue invite", err)
		}

		link, err := url.JoinPath(i.baseURL, "join", token)
		if err != nil {
			return nil, &InfraError{Op: "build invite link", Err: err}
		}
		return &InviteLink{GroupID: groupID, Token: token, URL: link}, nil
	}

	return nil, &InfraError{
		Op:  "issue invite",
		Err: fmt.Errorf("no unique token after %d attempts", maxTokenAttempts),
	}
}

// ResolveInvite validates a token and joins the current user to its group.
//
// With no current user the join is suspended: nothing is written and the
// returned Resolution carries a Continuation to resume after login. Unknown
// and already-used tokens both fail with ErrInvalidInvite. Losing a race to
// another acceptor fails with ErrConcurrencyConflict. A user who is already a
// member gets a successful Resolution with AlreadyMember set, and the invite
// stays pending.
func (i *Invites) ResolveInvite(ctx context.Context, token, currentUserID string) (*Resolution, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidInvite
	}
	hash := HashToken(token)

	invite, err := i.store.GetPendingInvite(ctx, hash)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidInvite
	}
	if err != nil {
		return nil, translate("resolve invite", err)
	}

	if currentUserID == "" {
		return &Resolution{
			Continuation: &Continuation{Token: token, GroupID: invite.GroupID},
		}, nil
	}

	accepted, err := i.store.AcceptInvite(ctx, hash, currentUserID)
	if errors.Is(err, storage.ErrAlreadyMember) {
		return &Resolution{GroupID: invite.GroupID, AlreadyMember: true}, nil
	}
	if err != nil {
		return nil, translate("accept invite", err)
	}

	return &Resolution{GroupID: accepted.GroupID}, nil
}
