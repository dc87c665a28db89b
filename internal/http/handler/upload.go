package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	storage "forum-service/internal/storage/s3"
	apperrors "forum-service/pkg/errors"
)

var allowedAttachmentTypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/gif":       {},
	"image/webp":      {},
	"application/pdf": {},
}

// UploadHandler hands out presigned URLs for post attachments. File
// bytes never pass through the service.
type UploadHandler struct {
	store AttachmentStore
}

func NewUploadHandler(store AttachmentStore) *UploadHandler {
	return &UploadHandler{store: store}
}

type uploadRequest struct {
	ContentType string `json:"content_type"`
}

func (h *UploadHandler) CreateUploadURL(c echo.Context) error {
	session, err := requireSession(c)
	if err != nil {
		return err
	}

	var req uploadRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}
	if _, ok := allowedAttachmentTypes[req.ContentType]; !ok {
		return apperrors.Validation("unsupported attachment type")
	}

	key := storage.AttachmentKey(session.User.ID)
	uploadURL, err := h.store.PresignUpload(c.Request().Context(), key, req.ContentType)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{
		"upload_url": uploadURL,
		"key":        key,
	})
}

func (h *UploadHandler) CreateDownloadURL(c echo.Context) error {
	session, err := requireSession(c)
	if err != nil {
		return err
	}

	key := c.QueryParam("key")
	if !strings.HasPrefix(key, "attachments/") || strings.Contains(key, "..") {
		return apperrors.BadRequest("invalid attachment key")
	}

	// Attachments are only reachable by their owner or by moderators.
	if !strings.HasPrefix(key, "attachments/"+session.User.ID+"/") && !session.IsPrivileged() {
		return apperrors.Forbidden("you do not own this attachment")
	}

	downloadURL, err := h.store.PresignDownload(c.Request().Context(), key)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"download_url": downloadURL})
}

// Delete removes an attachment object. Same ownership rule as
// downloads: the owner or a moderator.
func (h *UploadHandler) Delete(c echo.Context) error {
	session, err := requireSession(c)
	if err != nil {
		return err
	}

	key := c.QueryParam("key")
	if !strings.HasPrefix(key, "attachments/") || strings.Contains(key, "..") {
		return apperrors.BadRequest("invalid attachment key")
	}
	if !strings.HasPrefix(key, "attachments/"+session.User.ID+"/") && !session.IsPrivileged() {
		return apperrors.Forbidden("you do not own this attachment")
	}

	if err := h.store.DeleteObject(c.Request().Context(), key); err != nil {
		return err
	}
	return respondMessage(c, http.StatusOK, "attachment deleted")
}
