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

// CreateGroup persists a group together with its creator membership,
// constitution and zero-balance account.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group, constitution *models.Constitution, creatorID string) error {
	// Generate IDs if not set
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}
	constitution.GroupID = group.ID

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO groups (id, name, created_at) VALUES (?, ?, ?)",
		group.ID, group.Name, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO memberships (group_id, user_id, joined_at) VALUES (?, ?, ?)",
		group.ID, creatorID, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert creator membership: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO constitutions (group_id, cycle_duration_days, minimum_savings, initial_contribution,
			loan_term_months, meeting_frequency, late_payment_fee)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		group.ID, constitution.CycleDurationDays, constitution.MinimumSavings, constitution.InitialContribution,
		constitution.LoanTermMonths, string(constitution.MeetingFrequency), constitution.LatePaymentFee,
	)
	if err != nil {
		return fmt.Errorf("failed to insert constitution: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO group_accounts (group_id, balance, updated_at) VALUES (?, 0, ?)",
		group.ID, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetGroup retrieves a group by ID.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group := &models.Group{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM groups WHERE id = ?",
		groupID,
	).Scan(&group.ID, &group.Name, &group.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

// ListGroupsForUser retrieves the groups a user belongs to.
func (s *SQLiteStore) ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.id, g.name, g.created_at
		 FROM groups g
		 JOIN memberships m ON m.group_id = g.id
		 WHERE m.user_id = ?
		 ORDER BY g.created_at, g.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups for user: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		group := &models.Group{}
		if err := rows.Scan(&group.ID, &group.Name, &group.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	return groups, nil
}

// AddMember inserts a membership if the pair does not exist yet.
func (s *SQLiteStore) AddMember(ctx context.Context, groupID, userID string) (*models.Membership, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE id = ?", groupID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check group existence: %w", err)
	}

	membership, err := insertMembership(ctx, tx, groupID, userID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return membership, nil
}

// insertMembership adds (group, user) unless present. A present pair yields
// storage.ErrAlreadyMember.
func insertMembership(ctx context.Context, tx *sql.Tx, groupID, userID string) (*models.Membership, error) {
	membership := &models.Membership{
		GroupID:  groupID,
		UserID:   userID,
		JoinedAt: time.Now().Unix(),
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO memberships (group_id, user_id, joined_at) VALUES (?, ?, ?)
		 ON CONFLICT (group_id, user_id) DO NOTHING`,
		membership.GroupID, membership.UserID, membership.JoinedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert membership: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return nil, storage.ErrAlreadyMember
	}
	return membership, nil
}

// IsMember reports whether the user belongs to the group.
func (s *SQLiteStore) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM memberships WHERE group_id = ? AND user_id = ?)",
		groupID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists, nil
}

// ListMembers retrieves a group's memberships in join order.
func (s *SQLiteStore) ListMembers(ctx context.Context, groupID string) ([]models.Membership, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT group_id, user_id, joined_at FROM memberships WHERE group_id = ? ORDER BY joined_at, user_id",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []models.Membership
	for rows.Next() {
		var m models.Membership
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return members, nil
}

// GetConstitution retrieves the constitution of a group.
func (s *SQLiteStore) GetConstitution(ctx context.Context, groupID string) (*models.Constitution, error) {
	c := &models.Constitution{}
	var frequency string
	err := s.db.QueryRowContext(ctx,
		`SELECT group_id, cycle_duration_days, minimum_savings, initial_contribution,
			loan_term_months, meeting_frequency, late_payment_fee
		 FROM constitutions WHERE group_id = ?`,
		groupID,
	).Scan(&c.GroupID, &c.CycleDurationDays, &c.MinimumSavings, &c.InitialContribution,
		&c.LoanTermMonths, &frequency, &c.LatePaymentFee)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("constitution for group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get constitution: %w", err)
	}
	c.MeetingFrequency = models.MeetingFrequency(frequency)
	return c, nil
}

// GetAccount retrieves the account of a group.
func (s *SQLiteStore) GetAccount(ctx context.Context, groupID string) (*models.GroupAccount, error) {
	account := &models.GroupAccount{}
	err := s.db.QueryRowContext(ctx,
		"SELECT group_id, balance, updated_at FROM group_accounts WHERE group_id = ?",
		groupID,
	).Scan(&account.GroupID, &account.Balance, &account.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account for group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}
