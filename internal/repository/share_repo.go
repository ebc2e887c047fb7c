package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sharestore/sharestore/internal/models"
)

// ShareRepository handles share and recipient database operations
type ShareRepository struct {
	db *sql.DB
}

// NewShareRepository creates a new share repository
func NewShareRepository(db *sql.DB) *ShareRepository {
	return &ShareRepository{db: db}
}

// GetByFileID retrieves the share for a file. Returns (nil, nil) when the
// file has no share.
func (r *ShareRepository) GetByFileID(ctx context.Context, fileID uuid.UUID) (*models.Share, error) {
	var share models.Share
	err := r.db.QueryRowContext(ctx,
		"SELECT id, file_id, sender_id, created_at FROM shares WHERE file_id = $1",
		fileID,
	).Scan(&share.ID, &share.FileID, &share.SenderID, &share.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get share: %w", err)
	}
	return &share, nil
}

// GetOrCreate returns the file's share, creating it if absent. The unique
// constraint on file_id makes concurrent creates race-safe; the loser
// re-reads the winner's row.
func (r *ShareRepository) GetOrCreate(ctx context.Context, fileID, senderID uuid.UUID) (*models.Share, error) {
	share := &models.Share{
		ID:        uuid.New(),
		FileID:    fileID,
		SenderID:  senderID,
		CreatedAt: time.Now(),
	}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO shares (id, file_id, sender_id, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (file_id) DO NOTHING
		 RETURNING id, created_at`,
		share.ID, share.FileID, share.SenderID, share.CreatedAt,
	).Scan(&share.ID, &share.CreatedAt)

	if err == sql.ErrNoRows {
		return r.GetByFileID(ctx, fileID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create share: %w", err)
	}
	return share, nil
}

// AddRecipient grants a user access through a share. Returns false when
// the user is already a recipient.
func (r *ShareRepository) AddRecipient(ctx context.Context, shareID, userID uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO share_recipients (share_id, user_id, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (share_id, user_id) DO NOTHING`,
		shareID, userID, time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to add recipient: %w", err)
	}
	added, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to add recipient: %w", err)
	}
	return added > 0, nil
}

// RemoveRecipient revokes a user's access. Returns false when the user
// was not a recipient.
func (r *ShareRepository) RemoveRecipient(ctx context.Context, shareID, userID uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM share_recipients WHERE share_id = $1 AND user_id = $2",
		shareID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to remove recipient: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to remove recipient: %w", err)
	}
	return removed > 0, nil
}

// RecipientIDs returns the IDs of a file's share recipients. Empty when
// the file has no share.
func (r *ShareRepository) RecipientIDs(ctx context.Context, fileID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT sr.user_id FROM share_recipients sr
		 JOIN shares s ON s.id = sr.share_id
		 WHERE s.file_id = $1`,
		fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RecipientUsernames returns the usernames of a file's share recipients.
func (r *ShareRepository) RecipientUsernames(ctx context.Context, fileID uuid.UUID) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.username FROM share_recipients sr
		 JOIN shares s ON s.id = sr.share_id
		 JOIN users u ON u.id = sr.user_id
		 WHERE s.file_id = $1
		 ORDER BY u.username`,
		fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	defer rows.Close()

	usernames := []string{}
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		usernames = append(usernames, username)
	}
	return usernames, rows.Err()
}

// DeleteByFileID removes a file's share and, through the cascade, all of
// its recipients. Called when visibility moves away from Restricted so no
// stale grants survive.
func (r *ShareRepository) DeleteByFileID(ctx context.Context, fileID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM shares WHERE file_id = $1", fileID)
	if err != nil {
		return fmt.Errorf("failed to delete share: %w", err)
	}
	return nil
}
