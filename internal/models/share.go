package models

import (
	"time"

	"github.com/google/uuid"
)

// Share associates a Restricted file with its recipient set. At most one
// share exists per file, and it exists only while the file is Restricted.
type Share struct {
	ID        uuid.UUID `json:"id" db:"id"`
	FileID    uuid.UUID `json:"file_id" db:"file_id"`
	SenderID  uuid.UUID `json:"sender_id" db:"sender_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ShareRecipient is one user granted access through a share. The
// (share_id, user_id) pair is the primary key, so a recipient appears
// at most once per share.
type ShareRecipient struct {
	ShareID   uuid.UUID `json:"share_id" db:"share_id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
