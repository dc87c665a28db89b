package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"forum-service/internal/audit"
	"forum-service/internal/auth"
	"forum-service/internal/domain/post"
	apperrors "forum-service/pkg/errors"
)

type PostHandler struct {
	posts       PostRepository
	auditLogger *audit.Logger
}

func NewPostHandler(posts PostRepository, auditLogger *audit.Logger) *PostHandler {
	return &PostHandler{posts: posts, auditLogger: auditLogger}
}

func (h *PostHandler) List(c echo.Context) error {
	opts := post.ListOptions{
		Tab:     c.QueryParam("tab"),
		Page:    atoiDefault(c.QueryParam("page"), 1),
		PerPage: atoiDefault(c.QueryParam("per_page"), post.DefaultPerPage),
	}

	if opts.Tab == post.TabOwn {
		session, err := requireSession(c)
		if err != nil {
			return err
		}
		opts.UserID = session.User.ID
	}

	posts, total, err := h.posts.List(c.Request().Context(), opts)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"posts":    postsJSON(posts),
		"total":    total,
		"page":     opts.Page,
		"per_page": opts.PerPage,
	})
}

func (h *PostHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	p, err := h.posts.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, postJSON(p))
}

type createPostRequest struct {
	Title          string `json:"title"`
	Content        string `json:"content"`
	Category       string `json:"category"`
	IsAnnouncement bool   `json:"is_announcement"`
}

func (h *PostHandler) Create(c echo.Context) error {
	session, err := requireSession(c)
	if err != nil {
		return err
	}

	var req createPostRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return apperrors.Validation("title is required")
	}
	if req.Category == "" {
		return apperrors.Validation("category is required")
	}
	if req.Content == "" || len(req.Content) > post.MaxContentLength {
		return apperrors.Validation("content must be between 1 and 50000 characters")
	}
	if req.IsAnnouncement && !session.IsPrivileged() {
		return apperrors.Forbidden("only moderators can post announcements")
	}

	p, err := h.posts.Create(c.Request().Context(), post.CreatePostInput{
		UserID:         session.User.ID,
		Title:          req.Title,
		Content:        req.Content,
		Category:       req.Category,
		IsAnnouncement: req.IsAnnouncement,
	})
	if err != nil {
		return err
	}

	h.auditLogger.Record(c, audit.ResourcePost, strconv.FormatInt(p.ID, 10), audit.ActionCreate, audit.StatusSuccess, nil)

	return c.JSON(http.StatusCreated, postJSON(p))
}

type updatePostRequest struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	Category *string `json:"category"`
}

func (h *PostHandler) Update(c echo.Context) error {
	session, err := requireSession(c)
	if err != nil {
		return err
	}

	id, err := parseID(c)
	if err != nil {
		return err
	}

	existing, err := h.posts.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if err := requireOwnership(session, existing.UserID); err != nil {
		return err
	}

	var req updatePostRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}
	if req.Content != nil && (len(*req.Content) == 0 || len(*req.Content) > post.MaxContentLength) {
		return apperrors.Validation("content must be between 1 and 50000 characters")
	}

	p, err := h.posts.Update(c.Request().Context(), id, post.UpdatePostInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
	})
	if err != nil {
		return err
	}

	h.auditLogger.Record(c, audit.ResourcePost, strconv.FormatInt(id, 10), audit.ActionUpdate, audit.StatusSuccess, nil)

	return c.JSON(http.StatusOK, postJSON(p))
}

func (h *PostHandler) Delete(c echo.Context) error {
	session, err := requireSession(c)
	if err != nil {
		return err
	}

	id, err := parseID(c)
	if err != nil {
		return err
	}

	existing, err := h.posts.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if err := requireOwnership(session, existing.UserID); err != nil {
		return err
	}

	if err := h.posts.SoftDelete(c.Request().Context(), id); err != nil {
		return err
	}

	h.auditLogger.Record(c, audit.ResourcePost, strconv.FormatInt(id, 10), audit.ActionDelete, audit.StatusSuccess, nil)

	return respondMessage(c, http.StatusOK, "post deleted")
}

// requireOwnership allows the resource owner and privileged users.
func requireOwnership(session *auth.Session, ownerID string) error {
	if session.User.ID == ownerID || session.IsPrivileged() {
		return nil
	}
	return apperrors.Forbidden("you do not own this resource")
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param(paramID), 10, 64)
	if err != nil || id < 1 {
		return 0, apperrors.BadRequest("invalid id")
	}
	return id, nil
}

func atoiDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func postJSON(p *post.Post) map[string]interface{} {
	return map[string]interface{}{
		"id":              p.ID,
		"user_id":         p.UserID,
		"author_username": p.AuthorUsername,
		"title":           p.Title,
		"content":         p.Content,
		"category":        p.Category,
		"status":          p.Status,
		"is_announcement": p.IsAnnouncement,
		"comment_count":   p.CommentCount,
		"created_at":      p.CreatedAt,
		"updated_at":      p.UpdatedAt,
	}
}

func postsJSON(posts []*post.Post) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(posts))
	for _, p := range posts {
		out = append(out, postJSON(p))
	}
	return out
}
