package models

import (
	"time"

	"github.com/google/uuid"
)

// File represents an uploaded file. The bytes live in the external object
// store under StorageKey; this row only records metadata and access level.
type File struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	UserID         uuid.UUID  `json:"user_id" db:"user_id"`
	Name           string     `json:"name" db:"name"`
	Size           int64      `json:"size" db:"size"`
	MimeType       string     `json:"mime_type" db:"mime_type"`
	StorageKey     string     `json:"-" db:"storage_key"`
	Visibility     Visibility `json:"visibility" db:"visibility"`
	SharingEnabled bool       `json:"sharing_enabled" db:"sharing_enabled"`
	UploadedAt     time.Time  `json:"uploaded_at" db:"uploaded_at"`
}
