package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/sharestore/sharestore/internal/models"
)

// FileRepository handles file database operations
type FileRepository struct {
	db *sql.DB
}

// NewFileRepository creates a new file repository
func NewFileRepository(db *sql.DB) *FileRepository {
	return &FileRepository{db: db}
}

const fileColumns = "id, user_id, name, size, mime_type, storage_key, visibility, sharing_enabled, uploaded_at"

// Create inserts a new file record.
func (r *FileRepository) Create(ctx context.Context, file *models.File) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO files (id, user_id, name, size, mime_type, storage_key, visibility, sharing_enabled, uploaded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		file.ID, file.UserID, file.Name, file.Size, file.MimeType,
		file.StorageKey, file.Visibility, file.SharingEnabled, file.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	return nil
}

// GetByID retrieves a file by ID. Returns (nil, nil) when absent.
func (r *FileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.File, error) {
	var file models.File
	err := r.db.QueryRowContext(ctx,
		"SELECT "+fileColumns+" FROM files WHERE id = $1", id,
	).Scan(&file.ID, &file.UserID, &file.Name, &file.Size, &file.MimeType,
		&file.StorageKey, &file.Visibility, &file.SharingEnabled, &file.UploadedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return &file, nil
}

// ListByOwner retrieves all of a user's files, newest upload first.
func (r *FileRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.File, error) {
	return r.queryFiles(ctx,
		"SELECT "+fileColumns+" FROM files WHERE user_id = $1 ORDER BY uploaded_at DESC",
		ownerID)
}

// ListShared retrieves a user's own files that currently carry the
// sharing flag, newest upload first.
func (r *FileRepository) ListShared(ctx context.Context, ownerID uuid.UUID) ([]models.File, error) {
	return r.queryFiles(ctx,
		"SELECT "+fileColumns+" FROM files WHERE user_id = $1 AND sharing_enabled ORDER BY uploaded_at DESC",
		ownerID)
}

// ListAccessible retrieves files visible to a user that they do not own:
// all Everyone files plus Restricted files naming them as a recipient.
// A file has exactly one visibility, so the union is duplicate-free.
func (r *FileRepository) ListAccessible(ctx context.Context, userID uuid.UUID) ([]models.File, error) {
	return r.queryFiles(ctx,
		`SELECT `+fileColumns+` FROM files
		 WHERE (visibility = 'Everyone' AND user_id != $1)
		    OR (visibility = 'Restricted' AND id IN (
		         SELECT s.file_id FROM shares s
		         JOIN share_recipients sr ON sr.share_id = s.id
		         WHERE sr.user_id = $1))
		 ORDER BY uploaded_at DESC`,
		userID)
}

// ListSharedWith retrieves the Restricted files shared with a user,
// newest upload first.
func (r *FileRepository) ListSharedWith(ctx context.Context, userID uuid.UUID) ([]models.File, error) {
	return r.queryFiles(ctx,
		`SELECT `+fileColumns+` FROM files
		 WHERE visibility = 'Restricted' AND id IN (
		       SELECT s.file_id FROM shares s
		       JOIN share_recipients sr ON sr.share_id = s.id
		       WHERE sr.user_id = $1)
		 ORDER BY uploaded_at DESC`,
		userID)
}

// SetVisibility updates a file's visibility and keeps the sharing flag in
// lockstep with it.
func (r *FileRepository) SetVisibility(ctx context.Context, id uuid.UUID, v models.Visibility) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE files SET visibility = $1, sharing_enabled = $2 WHERE id = $3",
		v, v.Shared(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set visibility: %w", err)
	}
	return nil
}

// Delete removes a file record. The share and its recipients cascade.
func (r *FileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM files WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (r *FileRepository) queryFiles(ctx context.Context, query string, args ...interface{}) ([]models.File, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	var files []models.File
	for rows.Next() {
		var file models.File
		err := rows.Scan(&file.ID, &file.UserID, &file.Name, &file.Size, &file.MimeType,
			&file.StorageKey, &file.Visibility, &file.SharingEnabled, &file.UploadedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, file)
	}

	return files, rows.Err()
}
