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

// CreateInvite persists a new pending invite.
func (s *PostgresStore) CreateInvite(ctx context.Context, invite *models.Invite) error {
	if invite.ID == "" {
		invite.ID = uuid.New().String()
	}
	if invite.CreatedAt == 0 {
		invite.CreatedAt = time.Now().Unix()
	}
	invite.Status = models.InvitePending

	_, err := s.pool.Exec(ctx,
		`INSERT INTO invites (id, group_id, token_hash, status, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		invite.ID, invite.GroupID, invite.TokenHash, string(invite.Status), invite.CreatedBy, invite.CreatedAt,
	)
	if isUniqueViolation(err) {
		return storage.ErrDuplicateToken
	}
	if err != nil {
		return fmt.Errorf("failed to insert invite: %w", err)
	}
	return nil
}

// GetPendingInvite retrieves a pending invite by token hash.
func (s *PostgresStore) GetPendingInvite(ctx context.Context, tokenHash string) (*models.Invite, error) {
	invite := &models.Invite{}
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT id, group_id, token_hash, status, created_by, created_at
		 FROM invites WHERE token_hash = $1 AND status = 'pending'`,
		tokenHash,
	).Scan(&invite.ID, &invite.GroupID, &invite.TokenHash, &status, &invite.CreatedBy, &invite.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("pending invite: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	invite.Status = models.InviteStatus(status)
	return invite, nil
}

// AcceptInvite transitions a pending invite to accepted and attaches the user
// to the invite's group in one transaction. A concurrent acceptor blocks on
// the row lock and then matches zero rows.
func (s *PostgresStore) AcceptInvite(ctx context.Context, tokenHash, userID string) (*models.Invite, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	invite := &models.Invite{
		TokenHash:  tokenHash,
		Status:     models.InviteAccepted,
		AcceptedBy: userID,
		AcceptedAt: time.Now().Unix(),
	}

	err = tx.QueryRow(ctx,
		`UPDATE invites SET status = 'accepted', accepted_by = $1, accepted_at = $2
		 WHERE token_hash = $3 AND status = 'pending'
		 RETURNING id, group_id, created_by, created_at`,
		invite.AcceptedBy, invite.AcceptedAt, tokenHash,
	).Scan(&invite.ID, &invite.GroupID, &invite.CreatedBy, &invite.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrInviteNotPending
	}
	if err != nil {
		return nil, fmt.Errorf("failed to accept invite: %w", err)
	}

	if _, err := insertMembership(ctx, tx, invite.GroupID, userID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return invite, nil
}
