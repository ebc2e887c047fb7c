package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sharestore/sharestore/internal/access"
	"github.com/sharestore/sharestore/internal/middleware"
	"github.com/sharestore/sharestore/internal/models"
)

// ShareHandler handles visibility changes and recipient management.
type ShareHandler struct {
	files  FileStore
	shares ShareStore
	users  UserStore
}

// NewShareHandler creates a new share handler
func NewShareHandler(files FileStore, shares ShareStore, users UserStore) *ShareHandler {
	return &ShareHandler{
		files:  files,
		shares: shares,
		users:  users,
	}
}

// SetPermissionsRequest represents a visibility change request
type SetPermissionsRequest struct {
	Permission string `json:"permission" binding:"required"`
	Username   string `json:"username"`
}

// SetPermissions changes a file's visibility and, for Restricted with a
// username, grants that user access. Owner only.
func (h *ShareHandler) SetPermissions(c *gin.Context) {
	userID, file, ok := h.loadOwnedFile(c)
	if !ok {
		return
	}

	var req SetPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "permission is required"})
		return
	}

	visibility, err := models.ParseVisibility(req.Permission)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	switch visibility {
	case models.VisibilityPrivate:
		// Going private always clears prior grants, so a later return to
		// Restricted starts with an empty recipient set.
		if err := h.shares.DeleteByFileID(ctx, file.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update permissions"})
			return
		}
		if err := h.files.SetVisibility(ctx, file.ID, visibility); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update permissions"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "not shared"})

	case models.VisibilityRestricted:
		if req.Username != "" {
			if req.Username == middleware.GetUsername(c) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "it's your own file"})
				return
			}

			recipient, err := h.users.GetByUsername(ctx, req.Username)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update permissions"})
				return
			}
			if recipient == nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "username not found"})
				return
			}

			share, err := h.shares.GetOrCreate(ctx, file.ID, userID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update permissions"})
				return
			}

			added, err := h.shares.AddRecipient(ctx, share.ID, recipient.ID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update permissions"})
				return
			}
			if !added {
				// Duplicate add is a notice, not an error: still 200.
				c.JSON(http.StatusOK, gin.H{"message": "already shared"})
				return
			}
		}
		if err := h.files.SetVisibility(ctx, file.ID, visibility); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update permissions"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": string(visibility)})

	case models.VisibilityEveryone:
		if err := h.files.SetVisibility(ctx, file.ID, visibility); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update permissions"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": string(visibility)})
	}
}

// RevokePermissionRequest represents a recipient removal request
type RevokePermissionRequest struct {
	Username string `json:"username" binding:"required"`
}

// RevokePermission removes a single recipient from a file's share. Owner
// only.
func (h *ShareHandler) RevokePermission(c *gin.Context) {
	_, file, ok := h.loadOwnedFile(c)
	if !ok {
		return
	}

	var req RevokePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	ctx := c.Request.Context()

	user, err := h.users.GetByUsername(ctx, req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke access"})
		return
	}
	share, err := h.shares.GetByFileID(ctx, file.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke access"})
		return
	}
	if user == nil || share == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid input"})
		return
	}

	removed, err := h.shares.RemoveRecipient(ctx, share.ID, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke access"})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid input"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "access permissions for " + req.Username + " removed"})
}

// ListRecipients returns the usernames a file is shared with. Owner only.
func (h *ShareHandler) ListRecipients(c *gin.Context) {
	_, file, ok := h.loadOwnedFile(c)
	if !ok {
		return
	}

	usernames, err := h.shares.RecipientUsernames(c.Request.Context(), file.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list recipients"})
		return
	}
	if usernames == nil {
		usernames = []string{}
	}

	c.JSON(http.StatusOK, gin.H{"usernames": usernames})
}

// loadOwnedFile resolves :id and enforces the management check shared by
// every share operation.
func (h *ShareHandler) loadOwnedFile(c *gin.Context) (uuid.UUID, *models.File, bool) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return uuid.Nil, nil, false
	}

	fileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file ID"})
		return uuid.Nil, nil, false
	}

	file, err := h.files.GetByID(c.Request.Context(), fileID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get file"})
		return uuid.Nil, nil, false
	}
	if file == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return uuid.Nil, nil, false
	}

	if !access.CanManage(userID, file) {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return uuid.Nil, nil, false
	}

	return userID, file, true
}
