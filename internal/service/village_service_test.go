package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/villagebank/internal/auth"
	"github.com/mmynk/villagebank/internal/metrics"
	"github.com/mmynk/villagebank/internal/middleware"
	"github.com/mmynk/villagebank/internal/storage/sqlite"
	"github.com/mmynk/villagebank/pkg/api"
	"github.com/mmynk/villagebank/pkg/api/apiconnect"
)

type testServer struct {
	client  apiconnect.VillageServiceClient
	jwt     *auth.JWTManager
	metrics *metrics.Metrics
}

// setupTestServer serves a VillageService on a temporary database behind the
// production interceptor chain, minus the rate limiter.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	m := metrics.New()
	svc := NewVillageService(store, Options{
		PublicURL: "https://bank.example",
		LoginURL:  "https://bank.example/login",
		Metrics:   m,
	})

	path, handler := apiconnect.NewVillageServiceHandler(svc, connect.WithInterceptors(middleware.Chain(middleware.ChainConfig{
		JWT:          jwtManager,
		OptionalAuth: []string{apiconnect.VillageServiceResolveInviteProcedure},
		Metrics:      m,
	})...))
	mux := http.NewServeMux()
	mux.Handle(path, handler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testServer{
		client:  apiconnect.NewVillageServiceClient(http.DefaultClient, server.URL),
		jwt:     jwtManager,
		metrics: m,
	}
}

// as wraps msg in a request authenticated as userID. An empty userID sends
// no credentials.
func as[T any](t *testing.T, ts *testServer, userID string, msg *T) *connect.Request[T] {
	t.Helper()
	req := connect.NewRequest(msg)
	if userID != "" {
		token, err := ts.jwt.Generate(userID, "")
		require.NoError(t, err)
		req.Header().Set("Authorization", "Bearer "+token)
	}
	return req
}

func alphaRequest() *api.CreateGroupRequest {
	return &api.CreateGroupRequest{
		Name: "Alpha",
		Constitution: &api.Constitution{
			CycleDuration:       30,
			MinimumSavings:      10,
			InitialContribution: 50,
			LoanTerm:            6,
			MeetingFrequency:    "weekly",
			LatePaymentFee:      5,
		},
	}
}

func createAlpha(t *testing.T, ts *testServer, userID string) *api.Group {
	t.Helper()
	resp, err := ts.client.CreateGroup(context.Background(), as(t, ts, userID, alphaRequest()))
	require.NoError(t, err)
	return resp.Msg.Group
}

func TestCreateGroup(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()

	group := createAlpha(t, ts, "user-1")
	assert.NotEmpty(t, group.ID)
	assert.Equal(t, "Alpha", group.Name)

	view, err := ts.client.GetGroupView(ctx, as(t, ts, "user-1", &api.GetGroupViewRequest{GroupID: group.ID}))
	require.NoError(t, err)
	require.Len(t, view.Msg.Members, 1)
	assert.Equal(t, "user-1", view.Msg.Members[0].UserID)
	assert.Equal(t, int64(0), view.Msg.Account.Balance)
	assert.Equal(t, "weekly", view.Msg.Constitution.MeetingFrequency)
	assert.Nil(t, view.Msg.ActiveCycle)
	assert.Equal(t, api.LedgerSummary{}, view.Msg.Ledger)

	assert.InDelta(t, 1, testutil.ToFloat64(ts.metrics.GroupsCreated), 0)
}

func TestCreateGroup_Errors(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()

	t.Run("unauthenticated", func(t *testing.T) {
		_, err := ts.client.CreateGroup(ctx, as(t, ts, "", alphaRequest()))
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("missing constitution", func(t *testing.T) {
		_, err := ts.client.CreateGroup(ctx, as(t, ts, "user-1", &api.CreateGroupRequest{Name: "Alpha"}))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})

	t.Run("negative minimum savings", func(t *testing.T) {
		req := alphaRequest()
		req.Constitution.MinimumSavings = -1
		_, err := ts.client.CreateGroup(ctx, as(t, ts, "user-1", req))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})

	resp, err := ts.client.ListGroups(ctx, as(t, ts, "user-1", &emptypb.Empty{}))
	require.NoError(t, err)
	assert.Empty(t, resp.Msg.Groups)
}

func TestGetGroupView_Errors(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	group := createAlpha(t, ts, "user-1")

	_, err := ts.client.GetGroupView(ctx, as(t, ts, "user-1", &api.GetGroupViewRequest{GroupID: "missing"}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	_, err = ts.client.GetGroupView(ctx, as(t, ts, "outsider", &api.GetGroupViewRequest{GroupID: group.ID}))
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))
}

func TestAttachMember(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	group := createAlpha(t, ts, "user-1")

	resp, err := ts.client.AttachMember(ctx, as(t, ts, "user-1", &api.AttachMemberRequest{GroupID: group.ID, UserID: "user-2"}))
	require.NoError(t, err)
	assert.Equal(t, "user-2", resp.Msg.Member.UserID)

	_, err = ts.client.AttachMember(ctx, as(t, ts, "user-1", &api.AttachMemberRequest{GroupID: group.ID, UserID: "user-2"}))
	assert.Equal(t, connect.CodeAlreadyExists, connect.CodeOf(err))

	_, err = ts.client.AttachMember(ctx, as(t, ts, "outsider", &api.AttachMemberRequest{GroupID: group.ID, UserID: "user-3"}))
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

	groups, err := ts.client.ListGroups(ctx, as(t, ts, "user-2", &emptypb.Empty{}))
	require.NoError(t, err)
	require.Len(t, groups.Msg.Groups, 1)
	assert.Equal(t, group.ID, groups.Msg.Groups[0].ID)
}

func TestCycleLedger(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	group := createAlpha(t, ts, "user-1")

	_, err := ts.client.RecordSaving(ctx, as(t, ts, "user-1", &api.RecordEntryRequest{GroupID: group.ID, Amount: 20}))
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

	started, err := ts.client.StartCycle(ctx, as(t, ts, "user-1", &api.StartCycleRequest{GroupID: group.ID}))
	require.NoError(t, err)
	assert.Equal(t, "active", started.Msg.Cycle.Status)

	_, err = ts.client.StartCycle(ctx, as(t, ts, "user-1", &api.StartCycleRequest{GroupID: group.ID}))
	assert.Equal(t, connect.CodeAlreadyExists, connect.CodeOf(err))

	for _, amount := range []int64{20, 30} {
		_, err := ts.client.RecordSaving(ctx, as(t, ts, "user-1", &api.RecordEntryRequest{GroupID: group.ID, Amount: amount}))
		require.NoError(t, err)
	}
	loan, err := ts.client.RecordLoan(ctx, as(t, ts, "user-1", &api.RecordEntryRequest{GroupID: group.ID, Amount: 15}))
	require.NoError(t, err)
	assert.Equal(t, int64(35), loan.Msg.Account.Balance)

	_, err = ts.client.RecordLoan(ctx, as(t, ts, "user-1", &api.RecordEntryRequest{GroupID: group.ID, Amount: 0}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	view, err := ts.client.GetGroupView(ctx, as(t, ts, "user-1", &api.GetGroupViewRequest{GroupID: group.ID}))
	require.NoError(t, err)
	require.NotNil(t, view.Msg.ActiveCycle)
	assert.Equal(t, started.Msg.Cycle.ID, view.Msg.ActiveCycle.ID)
	assert.Equal(t, api.LedgerSummary{TotalSavings: 50, TotalLoans: 15, NetBalance: 35}, view.Msg.Ledger)
	assert.Len(t, view.Msg.Savings, 2)
	assert.Len(t, view.Msg.Loans, 1)
	require.Len(t, view.Msg.Positions, 1)
	assert.Equal(t, int64(35), view.Msg.Positions[0].Net)

	closed, err := ts.client.CloseCycle(ctx, as(t, ts, "user-1", &api.CloseCycleRequest{GroupID: group.ID, CycleID: started.Msg.Cycle.ID}))
	require.NoError(t, err)
	assert.Equal(t, "closed", closed.Msg.Cycle.Status)
	assert.NotZero(t, closed.Msg.Cycle.ClosedAt)

	assert.InDelta(t, 2, testutil.ToFloat64(ts.metrics.LedgerEntries.WithLabelValues("saving")), 0)
}

func TestInviteFlow(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	group := createAlpha(t, ts, "user-1")

	_, err := ts.client.IssueInvite(ctx, as(t, ts, "outsider", &api.IssueInviteRequest{GroupID: group.ID}))
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

	_, err = ts.client.IssueInvite(ctx, as(t, ts, "", &api.IssueInviteRequest{GroupID: group.ID}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	invite, err := ts.client.IssueInvite(ctx, as(t, ts, "user-1", &api.IssueInviteRequest{GroupID: group.ID}))
	require.NoError(t, err)
	token := invite.Msg.Token
	assert.Equal(t, "https://bank.example/join/"+token, invite.Msg.URL)

	// An anonymous visitor is sent to log in and keeps the token.
	suspended, err := ts.client.ResolveInvite(ctx, as(t, ts, "", &api.ResolveInviteRequest{Token: token}))
	require.NoError(t, err)
	assert.Equal(t, api.ResolveSuspended, suspended.Msg.Status)
	assert.Equal(t, token, suspended.Msg.ContinuationToken)
	assert.Equal(t, "https://bank.example/login", suspended.Msg.LoginURL)
	assert.Equal(t, group.ID, suspended.Msg.GroupID)

	// An existing member does not consume the invite.
	already, err := ts.client.ResolveInvite(ctx, as(t, ts, "user-1", &api.ResolveInviteRequest{Token: token}))
	require.NoError(t, err)
	assert.Equal(t, api.ResolveAlreadyMember, already.Msg.Status)

	// After login the visitor resumes with the continuation token.
	joined, err := ts.client.ResolveInvite(ctx, as(t, ts, "user-2", &api.ResolveInviteRequest{Token: suspended.Msg.ContinuationToken}))
	require.NoError(t, err)
	assert.Equal(t, api.ResolveJoined, joined.Msg.Status)
	assert.Equal(t, group.ID, joined.Msg.GroupID)

	view, err := ts.client.GetGroupView(ctx, as(t, ts, "user-2", &api.GetGroupViewRequest{GroupID: group.ID}))
	require.NoError(t, err)
	assert.Len(t, view.Msg.Members, 2)

	// The invite is single-use.
	_, err = ts.client.ResolveInvite(ctx, as(t, ts, "user-3", &api.ResolveInviteRequest{Token: token}))
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

	_, err = ts.client.ResolveInvite(ctx, as(t, ts, "", &api.ResolveInviteRequest{Token: "bogus"}))
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

	assert.InDelta(t, 1, testutil.ToFloat64(ts.metrics.InviteResolutions.WithLabelValues(metrics.OutcomeJoined)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(ts.metrics.InviteResolutions.WithLabelValues(metrics.OutcomeSuspended)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(ts.metrics.InviteResolutions.WithLabelValues(metrics.OutcomeInvalid)), 0)
}
