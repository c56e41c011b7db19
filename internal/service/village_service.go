// Package service exposes the village bank over Connect RPC.
package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/villagebank/internal/metrics"
	"github.com/mmynk/villagebank/internal/middleware"
	"github.com/mmynk/villagebank/internal/models"
	"github.com/mmynk/villagebank/internal/storage"
	"github.com/mmynk/villagebank/internal/village"
	"github.com/mmynk/villagebank/pkg/api"
	"github.com/mmynk/villagebank/pkg/api/apiconnect"
)

// Options configures a VillageService.
type Options struct {
	// PublicURL prefixes invite links.
	PublicURL string
	// LoginURL is where suspended invite resolutions send the caller.
	LoginURL string
	// Metrics receives domain counters. Nil disables them.
	Metrics *metrics.Metrics
	// InviteOptions are passed to the invite workflow.
	InviteOptions []village.InviteOption
}

// VillageService implements the Connect VillageService.
type VillageService struct {
	apiconnect.UnimplementedVillageServiceHandler

	manager  *village.Manager
	invites  *village.Invites
	query    *village.Query
	loginURL string
	metrics  *metrics.Metrics
}

// NewVillageService creates a VillageService with the given storage backend.
func NewVillageService(store storage.Store, opts Options) *VillageService {
	return &VillageService{
		manager:  village.NewManager(store),
		invites:  village.NewInvites(store, opts.PublicURL, opts.InviteOptions...),
		query:    village.NewQuery(store),
		loginURL: opts.LoginURL,
		metrics:  opts.Metrics,
	}
}

// CreateGroup creates a group owned by the caller.
func (s *VillageService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, unauthenticated()
	}
	slog.Info("CreateGroup request received", "name", req.Msg.Name, "user_id", userID)

	var params village.ConstitutionParams
	if c := req.Msg.Constitution; c != nil {
		params = village.ConstitutionParams{
			CycleDurationDays:   c.CycleDuration,
			MinimumSavings:      c.MinimumSavings,
			InitialContribution: c.InitialContribution,
			LoanTermMonths:      c.LoanTerm,
			MeetingFrequency:    c.MeetingFrequency,
			LatePaymentFee:      c.LatePaymentFee,
		}
	}

	group, err := s.manager.CreateGroup(ctx, req.Msg.Name, params, userID)
	if err != nil {
		return nil, toConnectError("CreateGroup", err)
	}
	if s.metrics != nil {
		s.metrics.GroupsCreated.Inc()
	}

	slog.Info("Group created", "group_id", group.ID)
	return connect.NewResponse(&api.CreateGroupResponse{Group: toAPIGroup(group)}), nil
}

// GetGroupView returns the group page bundle. Only members may read it.
func (s *VillageService) GetGroupView(ctx context.Context, req *connect.Request[api.GetGroupViewRequest]) (*connect.Response[api.GetGroupViewResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, unauthenticated()
	}

	view, err := s.query.GetGroupView(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError("GetGroupView", err)
	}
	if !isMember(view.Members, userID) {
		return nil, toConnectError("GetGroupView", village.ErrNotMember)
	}

	resp := &api.GetGroupViewResponse{
		Group:        toAPIGroup(view.Group),
		Members:      mapSlice(view.Members, toAPIMember),
		Constitution: toAPIConstitution(view.Constitution),
		Account:      toAPIAccount(view.Account),
		ActiveCycles: mapSlice(view.ActiveCycles, func(c *models.Cycle) api.Cycle { return *toAPICycle(c) }),
		Savings:      mapSlice(view.Savings, toAPISaving),
		Loans:        mapSlice(view.Loans, toAPILoan),
		Ledger:       toAPISummary(view.Ledger),
		Positions:    mapSlice(view.Positions, toAPIPosition),
	}
	if view.ActiveCycle != nil {
		resp.ActiveCycle = toAPICycle(view.ActiveCycle)
	}
	return connect.NewResponse(resp), nil
}

// ListGroups returns the caller's groups.
func (s *VillageService) ListGroups(ctx context.Context, _ *connect.Request[emptypb.Empty]) (*connect.Response[api.ListGroupsResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, unauthenticated()
	}

	groups, err := s.query.ListGroups(ctx, userID)
	if err != nil {
		return nil, toConnectError("ListGroups", err)
	}
	return connect.NewResponse(&api.ListGroupsResponse{
		Groups: mapSlice(groups, func(g *models.Group) api.Group { return *toAPIGroup(g) }),
	}), nil
}

// AttachMember adds a user to a group the caller belongs to.
func (s *VillageService) AttachMember(ctx context.Context, req *connect.Request[api.AttachMemberRequest]) (*connect.Response[api.AttachMemberResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, unauthenticated()
	}
	slog.Info("AttachMember request received", "group_id", req.Msg.GroupID, "member", req.Msg.UserID, "user_id", userID)

	membership, err := s.manager.AttachMemberBy(ctx, req.Msg.GroupID, userID, req.Msg.UserID)
	if err != nil {
		return nil, toConnectError("AttachMember", err)
	}
	member := toAPIMember(*membership)
	return connect.NewResponse(&api.AttachMemberResponse{Member: &member}), nil
}

// StartCycle opens a new cycle in the group.
func (s *VillageService) StartCycle(ctx context.Context, req *connect.Request[api.StartCycleRequest]) (*connect.Response[api.StartCycleResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, unauthenticated()
	}

	cycle, err := s.manager.StartCycle(ctx, req.Msg.GroupID, userID)
	if err != nil {
		return nil, toConnectError("StartCycle", err)
	}
	slog.Info("Cycle started", "group_id", req.Msg.GroupID, "cycle_id", cycle.ID)
	return connect.NewResponse(&api.StartCycleResponse{Cycle: toAPICycle(cycle)}), nil
}

// CloseCycle closes the group's active cycle.
func (s *VillageService) CloseCycle(ctx context.Context, req *connect.Request[api.CloseCycleRequest]) (*connect.Response[api.CloseCycleResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, unauthenticated()
	}

	cycle, err := s.manager.CloseCycle(ctx, req.Msg.GroupID, req.Msg.CycleID, userID)
	if err != nil {
		return nil, toConnectError("CloseCycle", err)
	}
	slog.Info("Cycle closed", "group_id", req.Msg.GroupID, "cycle_id", cycle.ID)
	return connect.NewResponse(&api.CloseCycleResponse{Cycle: toAPICycle(cycle)}), nil
}

// RecordSaving records the caller's saving.
func (s *VillageService) RecordSaving(ctx context.Context, req *connect.Request[api.RecordEntryRequest]) (*connect.Response[api.RecordEntryResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, unauthenticated()
	}

	saving, account, err := s.manager.RecordSaving(ctx, req.Msg.GroupID, userID, req.Msg.Amount)
	if err != nil {
		return nil, toConnectError("RecordSaving", err)
	}
	s.countEntry("saving")

	entry := toAPISaving(*saving)
	return connect.NewResponse(&api.RecordEntryResponse{Entry: &entry, Account: toAPIAccount(account)}), nil
}

// RecordLoan records a loan drawn by the caller.
func (s *VillageService) RecordLoan(ctx context.Context, req *connect.Request[api.RecordEntryRequest]) (*connect.Response[api.RecordEntryResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, unauthenticated()
	}

	loan, account, err := s.manager.RecordLoan(ctx, req.Msg.GroupID, userID, req.Msg.Amount)
	if err != nil {
		return nil, toConnectError("RecordLoan", err)
	}
	s.countEntry("loan")

	entry := toAPILoan(*loan)
	return connect.NewResponse(&api.RecordEntryResponse{Entry: &entry, Account: toAPIAccount(account)}), nil
}

// IssueInvite creates a shareable join link for the group.
func (s *VillageService) IssueInvite(ctx context.Context, req *connect.Request[api.IssueInviteRequest]) (*connect.Response[api.IssueInviteResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, unauthenticated()
	}

	link, err := s.invites.IssueInvite(ctx, req.Msg.GroupID, userID)
	if err != nil {
		return nil, toConnectError("IssueInvite", err)
	}
	if s.metrics != nil {
		s.metrics.InvitesIssued.Inc()
	}

	slog.Info("Invite issued", "group_id", link.GroupID, "user_id", userID)
	return connect.NewResponse(&api.IssueInviteResponse{Token: link.Token, URL: link.URL}), nil
}

// ResolveInvite follows an invite link. Anonymous callers get a suspended
// response pointing at the login page; they call again with the same token
// once signed in.
func (s *VillageService) ResolveInvite(ctx context.Context, req *connect.Request[api.ResolveInviteRequest]) (*connect.Response[api.ResolveInviteResponse], error) {
	userID := middleware.GetUserID(ctx)

	res, err := s.invites.ResolveInvite(ctx, req.Msg.Token, userID)
	if err != nil {
		s.countResolution(resolutionOutcome(err))
		return nil, toConnectError("ResolveInvite", err)
	}

	var resp *api.ResolveInviteResponse
	switch {
	case res.Suspended():
		s.countResolution(metrics.OutcomeSuspended)
		resp = &api.ResolveInviteResponse{
			Status:            api.ResolveSuspended,
			GroupID:           res.Continuation.GroupID,
			ContinuationToken: res.Continuation.Token,
			LoginURL:          s.loginURL,
		}
	case res.AlreadyMember:
		s.countResolution(metrics.OutcomeAlreadyMember)
		resp = &api.ResolveInviteResponse{Status: api.ResolveAlreadyMember, GroupID: res.GroupID}
	default:
		s.countResolution(metrics.OutcomeJoined)
		slog.Info("Member joined via invite", "group_id", res.GroupID, "user_id", userID)
		resp = &api.ResolveInviteResponse{Status: api.ResolveJoined, GroupID: res.GroupID}
	}
	return connect.NewResponse(resp), nil
}

func (s *VillageService) countEntry(kind string) {
	if s.metrics != nil {
		s.metrics.LedgerEntries.WithLabelValues(kind).Inc()
	}
}

func (s *VillageService) countResolution(outcome string) {
	if s.metrics != nil {
		s.metrics.InviteResolutions.WithLabelValues(outcome).Inc()
	}
}

func resolutionOutcome(err error) string {
	switch {
	case errors.Is(err, village.ErrInvalidInvite):
		return metrics.OutcomeInvalid
	case errors.Is(err, village.ErrConcurrencyConflict):
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeError
	}
}

func isMember(members []models.Membership, userID string) bool {
	for _, m := range members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
