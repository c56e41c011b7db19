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

// CreateInvite persists a new pending invite.
func (s *SQLiteStore) CreateInvite(ctx context.Context, invite *models.Invite) error {
	if invite.ID == "" {
		invite.ID = uuid.New().String()
	}
	if invite.CreatedAt == 0 {
		invite.CreatedAt = time.Now().Unix()
	}
	invite.Status = models.InvitePending

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invites (id, group_id, token_hash, status, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
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
func (s *SQLiteStore) GetPendingInvite(ctx context.Context, tokenHash string) (*models.Invite, error) {
	invite := &models.Invite{}
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, token_hash, status, created_by, created_at
		 FROM invites WHERE token_hash = ? AND status = 'pending'`,
		tokenHash,
	).Scan(&invite.ID, &invite.GroupID, &invite.TokenHash, &status, &invite.CreatedBy, &invite.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pending invite: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	invite.Status = models.InviteStatus(status)
	return invite, nil
}

// AcceptInvite transitions a pending invite to accepted and attaches the user
// to the invite's group. Both writes commit together or not at all.
func (s *SQLiteStore) AcceptInvite(ctx context.Context, tokenHash, userID string) (*models.Invite, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	invite := &models.Invite{
		TokenHash:  tokenHash,
		Status:     models.InviteAccepted,
		AcceptedBy: userID,
		AcceptedAt: time.Now().Unix(),
	}

	// Conditional transition: only one caller can flip a pending row.
	err = tx.QueryRowContext(ctx,
		`UPDATE invites SET status = 'accepted', accepted_by = ?, accepted_at = ?
		 WHERE token_hash = ? AND status = 'pending'
		 RETURNING id, group_id, created_by, created_at`,
		nullString(invite.AcceptedBy), nullInt64(invite.AcceptedAt), tokenHash,
	).Scan(&invite.ID, &invite.GroupID, &invite.CreatedBy, &invite.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrInviteNotPending
	}
	if err != nil {
		return nil, fmt.Errorf("failed to accept invite: %w", err)
	}

	if _, err := insertMembership(ctx, tx, invite.GroupID, userID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return invite, nil
}
