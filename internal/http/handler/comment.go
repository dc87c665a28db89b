package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"forum-service/internal/audit"
	"forum-service/internal/domain/comment"
	apperrors "forum-service/pkg/errors"
)

type CommentHandler struct {
	comments    CommentRepository
	posts       PostRepository
	auditLogger *audit.Logger
}

func NewCommentHandler(comments CommentRepository, posts PostRepository, auditLogger *audit.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, posts: posts, auditLogger: auditLogger}
}

// ListByPost returns the post's comment tree flattened parent-first.
func (h *CommentHandler) ListByPost(c echo.Context) error {
	postID, err := parseID(c)
	if err != nil {
		return err
	}

	if _, err := h.posts.GetByID(c.Request().Context(), postID); err != nil {
		return err
	}

	comments, err := h.comments.ListByPost(c.Request().Context(), postID)
	if err != nil {
		return err
	}

	out := make([]map[string]interface{}, 0, len(comments))
	for _, cm := range comments {
		out = append(out, commentJSON(cm))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"comments": out})
}

type createCommentRequest struct {
	Content  string `json:"content"`
	ParentID *int64 `json:"parent_id"`
}

func (h *CommentHandler) Create(c echo.Context) error {
	session, err := requireSession(c)
	if err != nil {
		return err
	}

	postID, err := parseID(c)
	if err != nil {
		return err
	}

	if _, err := h.posts.GetByID(c.Request().Context(), postID); err != nil {
		return err
	}

	var req createCommentRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}
	if req.Content == "" || len(req.Content) > comment.MaxContentLength {
		return apperrors.Validation("content must be between 1 and 5000 characters")
	}

	cm, err := h.comments.Create(c.Request().Context(), comment.CreateCommentInput{
		PostID:   postID,
		UserID:   session.User.ID,
		ParentID: req.ParentID,
		Content:  req.Content,
	})
	if err != nil {
		return err
	}

	h.auditLogger.Record(c, audit.ResourceComment, strconv.FormatInt(cm.ID, 10), audit.ActionCreate, audit.StatusSuccess, nil)

	return c.JSON(http.StatusCreated, commentJSON(cm))
}

func (h *CommentHandler) Delete(c echo.Context) error {
	session, err := requireSession(c)
	if err != nil {
		return err
	}

	id, err := parseID(c)
	if err != nil {
		return err
	}

	existing, err := h.comments.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if err := requireOwnership(session, existing.UserID); err != nil {
		return err
	}

	if err := h.comments.SoftDelete(c.Request().Context(), id); err != nil {
		return err
	}

	h.auditLogger.Record(c, audit.ResourceComment, strconv.FormatInt(id, 10), audit.ActionDelete, audit.StatusSuccess, nil)

	return respondMessage(c, http.StatusOK, "comment deleted")
}

func commentJSON(cm *comment.Comment) map[string]interface{} {
	content := cm.Content
	if cm.Status == "deleted" {
		content = ""
	}
	return map[string]interface{}{
		"id":              cm.ID,
		"post_id":         cm.PostID,
		"user_id":         cm.UserID,
		"author_username": cm.AuthorUsername,
		"parent_id":       cm.ParentID,
		"depth":           cm.Depth(),
		"content":         content,
		"status":          cm.Status,
		"created_at":      cm.CreatedAt,
	}
}
