package service

import (
	"github.com/mmynk/villagebank/internal/ledger"
	"github.com/mmynk/villagebank/internal/models"
	"github.com/mmynk/villagebank/pkg/api"
)

func toAPIGroup(g *models.Group) *api.Group {
	return &api.Group{ID: g.ID, Name: g.Name, CreatedAt: g.CreatedAt}
}

func toAPIMember(m models.Membership) api.Member {
	return api.Member{UserID: m.UserID, JoinedAt: m.JoinedAt}
}

func toAPIConstitution(c *models.Constitution) *api.Constitution {
	return &api.Constitution{
		CycleDuration:       c.CycleDurationDays,
		MinimumSavings:      c.MinimumSavings,
		InitialContribution: c.InitialContribution,
		LoanTerm:            c.LoanTermMonths,
		MeetingFrequency:    string(c.MeetingFrequency),
		LatePaymentFee:      c.LatePaymentFee,
	}
}

func toAPIAccount(a *models.GroupAccount) *api.Account {
	return &api.Account{Balance: a.Balance, UpdatedAt: a.UpdatedAt}
}

func toAPICycle(c *models.Cycle) *api.Cycle {
	return &api.Cycle{ID: c.ID, Status: string(c.Status), StartedAt: c.StartedAt, ClosedAt: c.ClosedAt}
}

func toAPISaving(s models.Saving) api.LedgerEntry {
	return api.LedgerEntry{ID: s.ID, CycleID: s.CycleID, UserID: s.UserID, Amount: s.Amount, CreatedAt: s.CreatedAt}
}

func toAPILoan(l models.Loan) api.LedgerEntry {
	return api.LedgerEntry{ID: l.ID, CycleID: l.CycleID, UserID: l.UserID, Amount: l.Amount, CreatedAt: l.CreatedAt}
}

func toAPISummary(s ledger.Summary) api.LedgerSummary {
	return api.LedgerSummary{TotalSavings: s.TotalSavings, TotalLoans: s.TotalLoans, NetBalance: s.NetBalance}
}

func toAPIPosition(p ledger.MemberPosition) api.MemberPosition {
	return api.MemberPosition{UserID: p.UserID, Saved: p.Saved, Borrowed: p.Borrowed, Net: p.Net}
}

func mapSlice[T, U any](in []T, f func(T) U) []U {
	out := make([]U, len(in))
	for i, v := range in {
		out[i] = f(v)
	}
	return out
}
