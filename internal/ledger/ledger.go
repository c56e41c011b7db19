// Package ledger aggregates a cycle's savings and loans into totals.
// Everything here is pure: no storage access, no clocks.
package ledger

import (
	"sort"

	"github.com/mmynk/villagebank/internal/models"
)

// CycleForLedger is a cycle with the records needed for aggregation.
type CycleForLedger struct {
	CycleID string
	Savings []models.Saving
	Loans   []models.Loan
}

// Summary is the aggregated view of one cycle.
type Summary struct {
	TotalSavings int64
	TotalLoans   int64
	NetBalance   int64 // TotalSavings - TotalLoans
}

// MemberPosition is one member's share of a cycle.
type MemberPosition struct {
	UserID   string
	Saved    int64
	Borrowed int64
	Net      int64 // Saved - Borrowed
}

// Aggregate sums the savings and loans of a cycle.
//
// A nil cycle means the group has no active cycle and yields the zero Summary.
// Empty record sets also yield zero totals.
func Aggregate(cycle *CycleForLedger) Summary {
	if cycle == nil {
		return Summary{}
	}

	var s Summary
	for _, saving := range cycle.Savings {
		s.TotalSavings += saving.Amount
	}
	for _, loan := range cycle.Loans {
		s.TotalLoans += loan.Amount
	}
	s.NetBalance = s.TotalSavings - s.TotalLoans
	return s
}

// MemberPositions breaks a cycle down per member, sorted by user id.
// Returns nil for a nil cycle.
func MemberPositions(cycle *CycleForLedger) []MemberPosition {
	if cycle == nil {
		return nil
	}

	positions := make(map[string]*MemberPosition)
	get := func(userID string) *MemberPosition {
		if p, ok := positions[userID]; ok {
			return p
		}
		p := &MemberPosition{UserID: userID}
		positions[userID] = p
		return p
	}

	for _, saving := range cycle.Savings {
		get(saving.UserID).Saved += saving.Amount
	}
	for _, loan := range cycle.Loans {
		get(loan.UserID).Borrowed += loan.Amount
	}

	result := make([]MemberPosition, 0, len(positions))
	for _, p := range positions {
		p.Net = p.Saved - p.Borrowed
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result
}
