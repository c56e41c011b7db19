package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmynk/villagebank/internal/models"
	"github.com/mmynk/villagebank/internal/storage"
)

// CreateGroup persists a group together with its creator membership,
// constitution and zero-balance account.
func (s *PostgresStore) CreateGroup(ctx context.Context, group *models.Group, constitution *models.Constitution, creatorID string) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}
	constitution.GroupID = group.ID

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	batch.Queue(`INSERT INTO groups (id, name, created_at) VALUES ($1, $2, $3)`,
		group.ID, group.Name, group.CreatedAt)
	batch.Queue(`INSERT INTO memberships (group_id, user_id, joined_at) VALUES ($1, $2, $3)`,
		group.ID, creatorID, group.CreatedAt)
	batch.Queue(`INSERT INTO constitutions (group_id, cycle_duration_days, minimum_savings, initial_contribution,
			loan_term_months, meeting_frequency, late_payment_fee)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		group.ID, constitution.CycleDurationDays, constitution.MinimumSavings, constitution.InitialContribution,
		constitution.LoanTermMonths, string(constitution.MeetingFrequency), constitution.LatePaymentFee)
	batch.Queue(`INSERT INTO group_accounts (group_id, balance, updated_at) VALUES ($1, 0, $2)`,
		group.ID, group.CreatedAt)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetGroup retrieves a group by ID.
func (s *PostgresStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group := &models.Group{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM groups WHERE id = $1`, groupID,
	).Scan(&group.ID, &group.Name, &group.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

// ListGroupsForUser retrieves the groups a user belongs to.
func (s *PostgresStore) ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT g.id, g.name, g.created_at
		 FROM groups g
		 JOIN memberships m ON m.group_id = g.id
		 WHERE m.user_id = $1
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
func (s *PostgresStore) AddMember(ctx context.Context, groupID, userID string) (*models.Membership, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM groups WHERE id = $1)`, groupID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check group existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}

	membership, err := insertMembership(ctx, tx, groupID, userID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return membership, nil
}

func insertMembership(ctx context.Context, tx pgx.Tx, groupID, userID string) (*models.Membership, error) {
	membership := &models.Membership{
		GroupID:  groupID,
		UserID:   userID,
		JoinedAt: time.Now().Unix(),
	}

	tag, err := tx.Exec(ctx,
		`INSERT INTO memberships (group_id, user_id, joined_at) VALUES ($1, $2, $3)
		 ON CONFLICT (group_id, user_id) DO NOTHING`,
		membership.GroupID, membership.UserID, membership.JoinedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert membership: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, storage.ErrAlreadyMember
	}
	return membership, nil
}

// IsMember reports whether the user belongs to the group.
func (s *PostgresStore) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM memberships WHERE group_id = $1 AND user_id = $2)`,
		groupID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists, nil
}

// ListMembers retrieves a group's memberships in join order.
func (s *PostgresStore) ListMembers(ctx context.Context, groupID string) ([]models.Membership, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT group_id, user_id, joined_at FROM memberships WHERE group_id = $1 ORDER BY joined_at, user_id`,
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
func (s *PostgresStore) GetConstitution(ctx context.Context, groupID string) (*models.Constitution, error) {
	c := &models.Constitution{}
	var frequency string
	err := s.pool.QueryRow(ctx,
		`SELECT group_id, cycle_duration_days, minimum_savings, initial_contribution,
			loan_term_months, meeting_frequency, late_payment_fee
		 FROM constitutions WHERE group_id = $1`,
		groupID,
	).Scan(&c.GroupID, &c.CycleDurationDays, &c.MinimumSavings, &c.InitialContribution,
		&c.LoanTermMonths, &frequency, &c.LatePaymentFee)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("constitution for group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get constitution: %w", err)
	}
	c.MeetingFrequency = models.MeetingFrequency(frequency)
	return c, nil
}

// GetAccount retrieves the account of a group.
func (s *PostgresStore) GetAccount(ctx context.Context, groupID string) (*models.GroupAccount, error) {
	account := &models.GroupAccount{}
	err := s.pool.QueryRow(ctx,
		`SELECT group_id, balance, updated_at FROM group_accounts WHERE group_id = $1`, groupID,
	).Scan(&account.GroupID, &account.Balance, &account.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("account for group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}
