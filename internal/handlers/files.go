package handlers

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sharestore/sharestore/internal/access"
	"github.com/sharestore/sharestore/internal/middleware"
	"github.com/sharestore/sharestore/internal/models"
)

// FileHandler handles file upload, listing, download and deletion.
type FileHandler struct {
	files       FileStore
	shares      ShareStore
	storage     ObjectStore
	relay       UploadRelay
	maxFileSize int64
}

// NewFileHandler creates a new file handler
func NewFileHandler(files FileStore, shares ShareStore, storage ObjectStore, relay UploadRelay, maxFileSize int64) *FileHandler {
	return &FileHandler{
		files:       files,
		shares:      shares,
		storage:     storage,
		relay:       relay,
		maxFileSize: maxFileSize,
	}
}

// Upload stores one or more multipart files. Each becomes a Private file
// row; the bytes go to the object store and, for the configured notify
// account, to the webhook relay.
func (h *FileHandler) Upload(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	username := middleware.GetUsername(c)

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
		return
	}

	uploaded := make([]*models.File, 0, len(headers))
	for _, header := range headers {
		if header.Size > h.maxFileSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file too large: " + header.Filename})
			return
		}

		src, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload: " + header.Filename})
			return
		}

		// Buffered once so the same bytes feed the object store and the
		// relay without re-reading the form part.
		payload, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload: " + header.Filename})
			return
		}

		contentType := header.Header.Get("Content-Type")
		key, err := h.storage.Put(c.Request.Context(), userID, bytes.NewReader(payload), header.Size, contentType)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
			return
		}

		file := &models.File{
			ID:         uuid.New(),
			UserID:     userID,
			Name:       header.Filename,
			Size:       header.Size,
			MimeType:   contentType,
			StorageKey: key,
			Visibility: models.VisibilityPrivate,
			UploadedAt: time.Now(),
		}
		if err := h.files.Create(c.Request.Context(), file); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save file record"})
			return
		}

		h.relay.Relay(c.Request.Context(), file.Name, payload, username)

		uploaded = append(uploaded, file)
	}

	c.JSON(http.StatusCreated, gin.H{"files": uploaded})
}

// List returns the caller's own files, newest first.
func (h *FileHandler) List(c *gin.Context) {
	h.listWith(c, h.files.ListByOwner)
}

// ListAccessible returns files other users made visible to the caller.
func (h *FileHandler) ListAccessible(c *gin.Context) {
	h.listWith(c, h.files.ListAccessible)
}

// ListShared returns the caller's own files that are currently shared.
func (h *FileHandler) ListShared(c *gin.Context) {
	h.listWith(c, h.files.ListShared)
}

// ListSharedWithMe returns files shared specifically with the caller.
func (h *FileHandler) ListSharedWithMe(c *gin.Context) {
	h.listWith(c, h.files.ListSharedWith)
}

func (h *FileHandler) listWith(c *gin.Context, list func(ctx context.Context, id uuid.UUID) ([]models.File, error)) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	files, err := list(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list files"})
		return
	}
	if files == nil {
		files = []models.File{}
	}

	c.JSON(http.StatusOK, gin.H{"files": files})
}

// Get returns a file's metadata. Owner only.
func (h *FileHandler) Get(c *gin.Context) {
	userID, file, ok := h.loadFile(c)
	if !ok {
		return
	}
	if !access.CanManage(userID, file) {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}
	c.JSON(http.StatusOK, file)
}

// Download streams a file's bytes from the object store, subject to the
// read decision.
func (h *FileHandler) Download(c *gin.Context) {
	userID, file, ok := h.loadFile(c)
	if !ok {
		return
	}

	recipients, err := h.shares.RecipientIDs(c.Request.Context(), file.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check access"})
		return
	}
	if !access.CanRead(userID, file, recipients) {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	reader, err := h.storage.Get(c.Request.Context(), file.StorageKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch file"})
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	c.Header("Content-Type", file.MimeType)
	c.Header("Content-Length", strconv.FormatInt(file.Size, 10))
	io.Copy(c.Writer, reader)
}

// Delete removes a file. Management rights required, so a non-owner gets
// 403 no matter how visible the file is.
func (h *FileHandler) Delete(c *gin.Context) {
	userID, file, ok := h.loadFile(c)
	if !ok {
		return
	}
	if !access.CanManage(userID, file) {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	// Remove the stored object first so the row never outlives a
	// deletable object; a storage failure is logged, not fatal.
	if err := h.storage.Remove(c.Request.Context(), file.StorageKey); err != nil {
		log.Printf("file deletion: failed to remove object %s: %v", file.StorageKey, err)
	}

	if err := h.files.Delete(c.Request.Context(), file.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete file"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "file deleted"})
}

// loadFile resolves the authenticated user and the :id path parameter.
// It writes the error response itself when something is off.
func (h *FileHandler) loadFile(c *gin.Context) (uuid.UUID, *models.File, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
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

	return userID, file, true
}
