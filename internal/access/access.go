// Package access holds the pure access-control decisions for files.
// It performs no I/O; callers load the file and its recipient set first.
package access

import (
	"github.com/google/uuid"
	"github.com/sharestore/sharestore/internal/models"
)

// CanManage reports whether requester may change visibility, recipients,
// or delete the file. Only the owner may.
func CanManage(requesterID uuid.UUID, file *models.File) bool {
	return file.UserID == requesterID
}

// CanRead reports whether requester may read the file's contents.
// recipientIDs is the file's current share recipient set (empty when the
// file has no share row).
func CanRead(requesterID uuid.UUID, file *models.File, recipientIDs []uuid.UUID) bool {
	if file.UserID == requesterID {
		return true
	}
	switch file.Visibility {
	case models.VisibilityEveryone:
		return true
	case models.VisibilityRestricted:
		for _, id := range recipientIDs {
			if id == requesterID {
				return true
			}
		}
	}
	return false
}
