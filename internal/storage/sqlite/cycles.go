package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/villagebank/internal/models"
	"github.com/mmynk/villagebank/internal/storage"
)

// StartCycle inserts a new active cycle for a group.
func (s *SQLiteStore) StartCycle(ctx context.Context, cycle *models.Cycle) error {
	if cycle.ID == "" {
		cycle.ID = uuid.New().String()
	}
	if cycle.StartedAt == 0 {
		cycle.StartedAt = time.Now().Unix()
	}
	cycle.Status = models.CycleActive
	cycle.ClosedAt = 0

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO cycles (id, group_id, status, started_at) VALUES (?, ?, ?, ?)",
		cycle.ID, cycle.GroupID, string(cycle.Status), cycle.StartedAt,
	)
	if isUniqueViolation(err) {
		return storage.ErrActiveCycleExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert cycle: %w", err)
	}
	return nil
}

// CloseCycle marks an active cycle closed.
func (s *SQLiteStore) CloseCycle(ctx context.Context, groupID, cycleID string) (*models.Cycle, error) {
	cycle := &models.Cycle{}
	var status string
	var closedAt sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`UPDATE cycles SET status = 'closed', closed_at = ?
		 WHERE id = ? AND group_id = ? AND status = 'active'
		 RETURNING id, group_id, status, started_at, closed_at`,
		time.Now().Unix(), cycleID, groupID,
	).Scan(&cycle.ID, &cycle.GroupID, &status, &cycle.StartedAt, &closedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("active cycle %s: %w", cycleID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to close cycle: %w", err)
	}
	cycle.Status = models.CycleStatus(status)
	cycle.ClosedAt = closedAt.Int64
	return cycle, nil
}

// ListActiveCycles retrieves a group's active cycles, newest first.
func (s *SQLiteStore) ListActiveCycles(ctx context.Context, groupID string) ([]*models.Cycle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, status, started_at, closed_at FROM cycles
		 WHERE group_id = ? AND status = 'active'
		 ORDER BY started_at DESC, id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active cycles: %w", err)
	}
	defer rows.Close()

	var cycles []*models.Cycle
	for rows.Next() {
		cycle := &models.Cycle{}
		var status string
		var closedAt sql.NullInt64
		if err := rows.Scan(&cycle.ID, &cycle.GroupID, &status, &cycle.StartedAt, &closedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		cycle.Status = models.CycleStatus(status)
		cycle.ClosedAt = closedAt.Int64
		cycles = append(cycles, cycle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cycles: %w", err)
	}

	return cycles, nil
}

// RecordSaving persists a saving and credits the group account.
func (s *SQLiteStore) RecordSaving(ctx context.Context, saving *models.Saving) (*models.GroupAccount, error) {
	if saving.ID == "" {
		saving.ID = uuid.New().String()
	}
	if saving.CreatedAt == 0 {
		saving.CreatedAt = time.Now().Unix()
	}
	return s.recordEntry(ctx, "savings", saving.ID, saving.CycleID, saving.UserID, saving.Amount, saving.CreatedAt, saving.Amount)
}

// RecordLoan persists a loan and debits the group account.
func (s *SQLiteStore) RecordLoan(ctx context.Context, loan *models.Loan) (*models.GroupAccount, error) {
	if loan.ID == "" {
		loan.ID = uuid.New().String()
	}
	if loan.CreatedAt == 0 {
		loan.CreatedAt = time.Now().Unix()
	}
	return s.recordEntry(ctx, "loans", loan.ID, loan.CycleID, loan.UserID, loan.Amount, loan.CreatedAt, -loan.Amount)
}

// recordEntry inserts a ledger row into table and applies delta to the
// owning group's account. table is one of the two fixed ledger tables.
func (s *SQLiteStore) recordEntry(ctx context.Context, table, id, cycleID, userID string, amount, createdAt, delta int64) (*models.GroupAccount, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var groupID string
	err = tx.QueryRowContext(ctx,
		"SELECT group_id FROM cycles WHERE id = ? AND status = 'active'",
		cycleID,
	).Scan(&groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrCycleNotActive
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check cycle: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO "+table+" (id, cycle_id, user_id, amount, created_at) VALUES (?, ?, ?, ?, ?)",
		id, cycleID, userID, amount, createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", table, err)
	}

	account := &models.GroupAccount{GroupID: groupID}
	err = tx.QueryRowContext(ctx,
		`UPDATE group_accounts SET balance = balance + ?, updated_at = ?
		 WHERE group_id = ?
		 RETURNING balance, updated_at`,
		delta, createdAt, groupID,
	).Scan(&account.Balance, &account.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update group account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return account, nil
}

// ListSavings retrieves the savings of a cycle in recording order.
func (s *SQLiteStore) ListSavings(ctx context.Context, cycleID string) ([]models.Saving, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, cycle_id, user_id, amount, created_at FROM savings WHERE cycle_id = ? ORDER BY created_at, id",
		cycleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list savings: %w", err)
	}
	defer rows.Close()

	var savings []models.Saving
	for rows.Next() {
		var sv models.Saving
		if err := rows.Scan(&sv.ID, &sv.CycleID, &sv.UserID, &sv.Amount, &sv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan saving: %w", err)
		}
		savings = append(savings, sv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate savings: %w", err)
	}
	return savings, nil
}

// ListLoans retrieves the loans of a cycle in recording order.
func (s *SQLiteStore) ListLoans(ctx context.Context, cycleID string) ([]models.Loan, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, cycle_id, user_id, amount, created_at FROM loans WHERE cycle_id = ? ORDER BY created_at, id",
		cycleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	defer rows.Close()

	var loans []models.Loan
	for rows.Next() {
		var l models.Loan
		if err := rows.Scan(&l.ID, &l.CycleID, &l.UserID, &l.Amount, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate loans: %w", err)
	}
	return loans, nil
}
