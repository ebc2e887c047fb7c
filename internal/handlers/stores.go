package handlers

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sharestore/sharestore/internal/models"
)

// The handler layer depends on these narrow interfaces rather than the
// concrete repository and service types, so tests can swap in fakes.

// UserStore is the user persistence surface the handlers need.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// FileStore is the file persistence surface the handlers need.
type FileStore interface {
	Create(ctx context.Context, file *models.File) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.File, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.File, error)
	ListShared(ctx context.Context, ownerID uuid.UUID) ([]models.File, error)
	ListAccessible(ctx context.Context, userID uuid.UUID) ([]models.File, error)
	ListSharedWith(ctx context.Context, userID uuid.UUID) ([]models.File, error)
	SetVisibility(ctx context.Context, id uuid.UUID, v models.Visibility) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ShareStore is the share persistence surface the handlers need.
type ShareStore interface {
	GetByFileID(ctx context.Context, fileID uuid.UUID) (*models.Share, error)
	GetOrCreate(ctx context.Context, fileID, senderID uuid.UUID) (*models.Share, error)
	AddRecipient(ctx context.Context, shareID, userID uuid.UUID) (bool, error)
	RemoveRecipient(ctx context.Context, shareID, userID uuid.UUID) (bool, error)
	RecipientIDs(ctx context.Context, fileID uuid.UUID) ([]uuid.UUID, error)
	RecipientUsernames(ctx context.Context, fileID uuid.UUID) ([]string, error)
	DeleteByFileID(ctx context.Context, fileID uuid.UUID) error
}

// ObjectStore is the object-storage surface the handlers need.
type ObjectStore interface {
	Put(ctx context.Context, userID uuid.UUID, reader io.Reader, size int64, contentType string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// UploadRelay forwards uploads to external webhooks, best-effort.
type UploadRelay interface {
	Relay(ctx context.Context, filename string, payload []byte, uploader string)
}

// TokenRevoker invalidates issued tokens on logout and account deletion.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
}
