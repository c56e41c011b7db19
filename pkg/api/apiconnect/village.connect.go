// Package apiconnect wires villagebank.v1.VillageService to Connect handlers
// and clients.
package apiconnect

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/villagebank/pkg/api"
)

// VillageServiceName is the fully-qualified name of the VillageService service.
const VillageServiceName = "villagebank.v1.VillageService"

// Fully-qualified procedure names, used for routing and interceptor matching.
const (
	VillageServiceCreateGroupProcedure   = "/villagebank.v1.VillageService/CreateGroup"
	VillageServiceGetGroupViewProcedure  = "/villagebank.v1.VillageService/GetGroupView"
	VillageServiceListGroupsProcedure    = "/villagebank.v1.VillageService/ListGroups"
	VillageServiceAttachMemberProcedure  = "/villagebank.v1.VillageService/AttachMember"
	VillageServiceStartCycleProcedure    = "/villagebank.v1.VillageService/StartCycle"
	VillageServiceCloseCycleProcedure    = "/villagebank.v1.VillageService/CloseCycle"
	VillageServiceRecordSavingProcedure  = "/villagebank.v1.VillageService/RecordSaving"
	VillageServiceRecordLoanProcedure    = "/villagebank.v1.VillageService/RecordLoan"
	VillageServiceIssueInviteProcedure   = "/villagebank.v1.VillageService/IssueInvite"
	VillageServiceResolveInviteProcedure = "/villagebank.v1.VillageService/ResolveInvite"
)

// VillageServiceHandler is implemented by the server.
type VillageServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error)
	GetGroupView(context.Context, *connect.Request[api.GetGroupViewRequest]) (*connect.Response[api.GetGroupViewResponse], error)
	ListGroups(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[api.ListGroupsResponse], error)
	AttachMember(context.Context, *connect.Request[api.AttachMemberRequest]) (*connect.Response[api.AttachMemberResponse], error)
	StartCycle(context.Context, *connect.Request[api.StartCycleRequest]) (*connect.Response[api.StartCycleResponse], error)
	CloseCycle(context.Context, *connect.Request[api.CloseCycleRequest]) (*connect.Response[api.CloseCycleResponse], error)
	RecordSaving(context.Context, *connect.Request[api.RecordEntryRequest]) (*connect.Response[api.RecordEntryResponse], error)
	RecordLoan(context.Context, *connect.Request[api.RecordEntryRequest]) (*connect.Response[api.RecordEntryResponse], error)
	IssueInvite(context.Context, *connect.Request[api.IssueInviteRequest]) (*connect.Response[api.IssueInviteResponse], error)
	ResolveInvite(context.Context, *connect.Request[api.ResolveInviteRequest]) (*connect.Response[api.ResolveInviteResponse], error)
}

// NewVillageServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself.
func NewVillageServiceHandler(svc VillageServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(api.JSONCodec{})}, opts...)

	handlers := map[string]http.Handler{
		VillageServiceCreateGroupProcedure:   connect.NewUnaryHandler(VillageServiceCreateGroupProcedure, svc.CreateGroup, opts...),
		VillageServiceGetGroupViewProcedure:  connect.NewUnaryHandler(VillageServiceGetGroupViewProcedure, svc.GetGroupView, opts...),
		VillageServiceListGroupsProcedure:    connect.NewUnaryHandler(VillageServiceListGroupsProcedure, svc.ListGroups, opts...),
		VillageServiceAttachMemberProcedure:  connect.NewUnaryHandler(VillageServiceAttachMemberProcedure, svc.AttachMember, opts...),
		VillageServiceStartCycleProcedure:    connect.NewUnaryHandler(VillageServiceStartCycleProcedure, svc.StartCycle, opts...),
		VillageServiceCloseCycleProcedure:    connect.NewUnaryHandler(VillageServiceCloseCycleProcedure, svc.CloseCycle, opts...),
		VillageServiceRecordSavingProcedure:  connect.NewUnaryHandler(VillageServiceRecordSavingProcedure, svc.RecordSaving, opts...),
		VillageServiceRecordLoanProcedure:    connect.NewUnaryHandler(VillageServiceRecordLoanProcedure, svc.RecordLoan, opts...),
		VillageServiceIssueInviteProcedure:   connect.NewUnaryHandler(VillageServiceIssueInviteProcedure, svc.IssueInvite, opts...),
		VillageServiceResolveInviteProcedure: connect.NewUnaryHandler(VillageServiceResolveInviteProcedure, svc.ResolveInvite, opts...),
	}

	return "/" + VillageServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// UnimplementedVillageServiceHandler returns CodeUnimplemented from all methods.
type UnimplementedVillageServiceHandler struct{}

func unimplemented(procedure string) error {
	name := strings.TrimPrefix(procedure, "/")
	return connect.NewError(connect.CodeUnimplemented, errors.New(name+" is not implemented"))
}

func (UnimplementedVillageServiceHandler) CreateGroup(context.Context, *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	return nil, unimplemented(VillageServiceCreateGroupProcedure)
}

func (UnimplementedVillageServiceHandler) GetGroupView(context.Context, *connect.Request[api.GetGroupViewRequest]) (*connect.Response[api.GetGroupViewResponse], error) {
	return nil, unimplemented(VillageServiceGetGroupViewProcedure)
}

func (UnimplementedVillageServiceHandler) ListGroups(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[api.ListGroupsResponse], error) {
	return nil, unimplemented(VillageServiceListGroupsProcedure)
}

func (UnimplementedVillageServiceHandler) AttachMember(context.Context, *connect.Request[api.AttachMemberRequest]) (*connect.Response[api.AttachMemberResponse], error) {
	return nil, unimplemented(VillageServiceAttachMemberProcedure)
}

func (UnimplementedVillageServiceHandler) StartCycle(context.Context, *connect.Request[api.StartCycleRequest]) (*connect.Response[api.StartCycleResponse], error) {
	return nil, unimplemented(VillageServiceStartCycleProcedure)
}

func (UnimplementedVillageServiceHandler) CloseCycle(context.Context, *connect.Request[api.CloseCycleRequest]) (*connect.Response[api.CloseCycleResponse], error) {
	return nil, unimplemented(VillageServiceCloseCycleProcedure)
}

func (UnimplementedVillageServiceHandler) RecordSaving(context.Context, *connect.Request[api.RecordEntryRequest]) (*connect.Response[api.RecordEntryResponse], error) {
	return nil, unimplemented(VillageServiceRecordSavingProcedure)
}

func (UnimplementedVillageServiceHandler) RecordLoan(context.Context, *connect.Request[api.RecordEntryRequest]) (*connect.Response[api.RecordEntryResponse], error) {
	return nil, unimplemented(VillageServiceRecordLoanProcedure)
}

func (UnimplementedVillageServiceHandler) IssueInvite(context.Context, *connect.Request[api.IssueInviteRequest]) (*connect.Response[api.IssueInviteResponse], error) {
	return nil, unimplemented(VillageServiceIssueInviteProcedure)
}

func (UnimplementedVillageServiceHandler) ResolveInvite(context.Context, *connect.Request[api.ResolveInviteRequest]) (*connect.Response[api.ResolveInviteResponse], error) {
	return nil, unimplemented(VillageServiceResolveInviteProcedure)
}

// VillageServiceClient is a client for villagebank.v1.VillageService.
type VillageServiceClient interface {
	CreateGroup(context.Context, *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error)
	GetGroupView(context.Context, *connect.Request[api.GetGroupViewRequest]) (*connect.Response[api.GetGroupViewResponse], error)
	ListGroups(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[api.ListGroupsResponse], error)
	AttachMember(context.Context, *connect.Request[api.AttachMemberRequest]) (*connect.Response[api.AttachMemberResponse], error)
	StartCycle(context.Context, *connect.Request[api.StartCycleRequest]) (*connect.Response[api.StartCycleResponse], error)
	CloseCycle(context.Context, *connect.Request[api.CloseCycleRequest]) (*connect.Response[api.CloseCycleResponse], error)
	RecordSaving(context.Context, *connect.Request[api.RecordEntryRequest]) (*connect.Response[api.RecordEntryResponse], error)
	RecordLoan(context.Context, *connect.Request[api.RecordEntryRequest]) (*connect.Response[api.RecordEntryResponse], error)
	IssueInvite(context.Context, *connect.Request[api.IssueInviteRequest]) (*connect.Response[api.IssueInviteResponse], error)
	ResolveInvite(context.Context, *connect.Request[api.ResolveInviteRequest]) (*connect.Response[api.ResolveInviteResponse], error)
}

type villageServiceClient struct {
	createGroup   *connect.Client[api.CreateGroupRequest, api.CreateGroupResponse]
	getGroupView  *connect.Client[api.GetGroupViewRequest, api.GetGroupViewResponse]
	listGroups    *connect.Client[emptypb.Empty, api.ListGroupsResponse]
	attachMember  *connect.Client[api.AttachMemberRequest, api.AttachMemberResponse]
	startCycle    *connect.Client[api.StartCycleRequest, api.StartCycleResponse]
	closeCycle    *connect.Client[api.CloseCycleRequest, api.CloseCycleResponse]
	recordSaving  *connect.Client[api.RecordEntryRequest, api.RecordEntryResponse]
	recordLoan    *connect.Client[api.RecordEntryRequest, api.RecordEntryResponse]
	issueInvite   *connect.Client[api.IssueInviteRequest, api.IssueInviteResponse]
	resolveInvite *connect.Client[api.ResolveInviteRequest, api.ResolveInviteResponse]
}

// NewVillageServiceClient constructs a client for villagebank.v1.VillageService
// speaking the Connect protocol with JSON bodies.
func NewVillageServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) VillageServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(api.JSONCodec{})}, opts...)
	return &villageServiceClient{
		createGroup:   connect.NewClient[api.CreateGroupRequest, api.CreateGroupResponse](httpClient, baseURL+VillageServiceCreateGroupProcedure, opts...),
		getGroupView:  connect.NewClient[api.GetGroupViewRequest, api.GetGroupViewResponse](httpClient, baseURL+VillageServiceGetGroupViewProcedure, opts...),
		listGroups:    connect.NewClient[emptypb.Empty, api.ListGroupsResponse](httpClient, baseURL+VillageServiceListGroupsProcedure, opts...),
		attachMember:  connect.NewClient[api.AttachMemberRequest, api.AttachMemberResponse](httpClient, baseURL+VillageServiceAttachMemberProcedure, opts...),
		startCycle:    connect.NewClient[api.StartCycleRequest, api.StartCycleResponse](httpClient, baseURL+VillageServiceStartCycleProcedure, opts...),
		closeCycle:    connect.NewClient[api.CloseCycleRequest, api.CloseCycleResponse](httpClient, baseURL+VillageServiceCloseCycleProcedure, opts...),
		recordSaving:  connect.NewClient[api.RecordEntryRequest, api.RecordEntryResponse](httpClient, baseURL+VillageServiceRecordSavingProcedure, opts...),
		recordLoan:    connect.NewClient[api.RecordEntryRequest, api.RecordEntryResponse](httpClient, baseURL+VillageServiceRecordLoanProcedure, opts...),
		issueInvite:   connect.NewClient[api.IssueInviteRequest, api.IssueInviteResponse](httpClient, baseURL+VillageServiceIssueInviteProcedure, opts...),
		resolveInvite: connect.NewClient[api.ResolveInviteRequest, api.ResolveInviteResponse](httpClient, baseURL+VillageServiceResolveInviteProcedure, opts...),
	}
}

func (c *villageServiceClient) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *villageServiceClient) GetGroupView(ctx context.Context, req *connect.Request[api.GetGroupViewRequest]) (*connect.Response[api.GetGroupViewResponse], error) {
	return c.getGroupView.CallUnary(ctx, req)
}

func (c *villageServiceClient) ListGroups(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[api.ListGroupsResponse], error) {
	return c.listGroups.CallUnary(ctx, req)
}

func (c *villageServiceClient) AttachMember(ctx context.Context, req *connect.Request[api.AttachMemberRequest]) (*connect.Response[api.AttachMemberResponse], error) {
	return c.attachMember.CallUnary(ctx, req)
}

func (c *villageServiceClient) StartCycle(ctx context.Context, req *connect.Request[api.StartCycleRequest]) (*connect.Response[api.StartCycleResponse], error) {
	return c.startCycle.CallUnary(ctx, req)
}

func (c *villageServiceClient) CloseCycle(ctx context.Context, req *connect.Request[api.CloseCycleRequest]) (*connect.Response[api.CloseCycleResponse], error) {
	return c.closeCycle.CallUnary(ctx, req)
}

func (c *villageServiceClient) RecordSaving(ctx context.Context, req *connect.Request[api.RecordEntryRequest]) (*connect.Response[api.RecordEntryResponse], error) {
	return c.recordSaving.CallUnary(ctx, req)
}

func (c *villageServiceClient) RecordLoan(ctx context.Context, req *connect.Request[api.RecordEntryRequest]) (*connect.Response[api.RecordEntryResponse], error) {
	return c.recordLoan.CallUnary(ctx, req)
}

func (c *villageServiceClient) IssueInvite(ctx context.Context, req *connect.Request[api.IssueInviteRequest]) (*connect.Response[api.IssueInviteResponse], error) {
	return c.issueInvite.CallUnary(ctx, req)
}

func (c *villageServiceClient) ResolveInvite(ctx context.Context, req *connect.Request[api.ResolveInviteRequest]) (*connect.Response[api.ResolveInviteResponse], error) {
	return c.resolveInvite.CallUnary(ctx, req)
}
