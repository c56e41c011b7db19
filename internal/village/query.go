package village

import (
	"context"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mmynk/villagebank/internal/ledger"
	"github.com/mmynk/villagebank/internal/models"
	"github.com/mmynk/villagebank/internal/storage"
)

// GroupView is everything a group page needs in one bundle.
type GroupView struct {
	Group        *models.Group
	Members      []models.Membership
	Constitution *models.Constitution
	Account      *models.GroupAccount

	// ActiveCycles should hold at most one cycle; more means the write-time
	// invariant was bypassed. ActiveCycle is the selected one or nil.
	ActiveCycles []*models.Cycle
	ActiveCycle  *models.Cycle

	Savings   []models.Saving
	Loans     []models.Loan
	Ledger    ledger.Summary
	Positions []ledger.MemberPosition
}

// Query composes read models.
type Query struct {
	store storage.Store
}

// NewQuery creates a Query on the given store.
func NewQuery(store storage.Store) *Query {
	return &Query{store: store}
}

// GetGroupView loads a group with its members, constitution, account and
// active cycle, and aggregates the active cycle's ledger.
func (q *Query) GetGroupView(ctx context.Context, groupID string) (*GroupView, error) {
	group, err := q.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, translate("load group", err)
	}
	view := &GroupView{Group: group}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		view.Members, err = q.store.ListMembers(gctx, groupID)
		return translate("load members", err)
	})
	g.Go(func() (err error) {
		view.Constitution, err = q.store.GetConstitution(gctx, groupID)
		return translate("load constitution", err)
	})
	g.Go(func() (err error) {
		view.Account, err = q.store.GetAccount(gctx, groupID)
		return translate("load account", err)
	})
	g.Go(func() (err error) {
		view.ActiveCycles, err = q.store.ListActiveCycles(gctx, groupID)
		return translate("load active cycles", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view.ActiveCycle = selectActiveCycle(view.ActiveCycles)

	var forLedger *ledger.CycleForLedger
	if view.ActiveCycle != nil {
		cycleID := view.ActiveCycle.ID
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			view.Savings, err = q.store.ListSavings(gctx, cycleID)
			return translate("load savings", err)
		})
		g.Go(func() (err error) {
			view.Loans, err = q.store.ListLoans(gctx, cycleID)
			return translate("load loans", err)
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		forLedger = &ledger.CycleForLedger{CycleID: cycleID, Savings: view.Savings, Loans: view.Loans}
	}

	view.Ledger = ledger.Aggregate(forLedger)
	view.Positions = ledger.MemberPositions(forLedger)
	return view, nil
}

// ListGroups returns the groups a user belongs to.
func (q *Query) ListGroups(ctx context.Context, userID string) ([]*models.Group, error) {
	groups, err := q.store.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, translate("list groups", err)
	}
	return groups, nil
}

// selectActiveCycle picks the most recently started cycle, breaking ties by
// id, or nil when there is none.
func selectActiveCycle(cycles []*models.Cycle) *models.Cycle {
	if len(cycles) == 0 {
		return nil
	}
	return slices.MinFunc(cycles, func(a, b *models.Cycle) int {
		if a.StartedAt != b.StartedAt {
			if a.StartedAt > b.StartedAt {
				return -1
			}
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})
}
