package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"forum-service/internal/audit"
	"forum-service/internal/auth"
	"forum-service/internal/domain/community"
	apperrors "forum-service/pkg/errors"
)

type InfoHandler struct {
	infos       InfoRepository
	auditLogger *audit.Logger
}

func NewInfoHandler(infos InfoRepository, auditLogger *audit.Logger) *InfoHandler {
	return &InfoHandler{infos: infos, auditLogger: auditLogger}
}

// List returns the community info blocks. Logged-out visitors only see
// rows marked visible to them.
func (h *InfoHandler) List(c echo.Context) error {
	publicOnly := auth.SessionFromContext(c) == nil

	infos, err := h.infos.List(c.Request().Context(), publicOnly)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"info": infoListJSON(infos)})
}

type upsertInfoRequest struct {
	Title              string `json:"title"`
	Content            string `json:"content"`
	Position           int    `json:"position"`
	VisibleToLoggedOut bool   `json:"visible_to_logged_out"`
}

func (h *InfoHandler) Create(c echo.Context) error {
	session, err := requirePrivilege(c)
	if err != nil {
		return err
	}

	req, err := bindInfoRequest(c)
	if err != nil {
		return err
	}

	info, err := h.infos.Create(c.Request().Context(), community.UpsertInfoInput{
		Title:              req.Title,
		Content:            req.Content,
		Position:           req.Position,
		VisibleToLoggedOut: req.VisibleToLoggedOut,
		UpdatedBy:          session.User.ID,
	})
	if err != nil {
		return err
	}

	h.auditLogger.Record(c, audit.ResourceInfo, strconv.FormatInt(info.ID, 10), audit.ActionCreate, audit.StatusSuccess, nil)

	return c.JSON(http.StatusCreated, infoJSON(info))
}

func (h *InfoHandler) Update(c echo.Context) error {
	session, err := requirePrivilege(c)
	if err != nil {
		return err
	}

	id, err := parseID(c)
	if err != nil {
		return err
	}

	req, err := bindInfoRequest(c)
	if err != nil {
		return err
	}

	info, err := h.infos.Update(c.Request().Context(), id, community.UpsertInfoInput{
		Title:              req.Title,
		Content:            req.Content,
		Position:           req.Position,
		VisibleToLoggedOut: req.VisibleToLoggedOut,
		UpdatedBy:          session.User.ID,
	})
	if err != nil {
		return err
	}

	h.auditLogger.Record(c, audit.ResourceInfo, strconv.FormatInt(id, 10), audit.ActionUpdate, audit.StatusSuccess, nil)

	return c.JSON(http.StatusOK, infoJSON(info))
}

func (h *InfoHandler) Delete(c echo.Context) error {
	if _, err := requirePrivilege(c); err != nil {
		return err
	}

	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.infos.Delete(c.Request().Context(), id); err != nil {
		return err
	}

	h.auditLogger.Record(c, audit.ResourceInfo, strconv.FormatInt(id, 10), audit.ActionDelete, audit.StatusSuccess, nil)

	return respondMessage(c, http.StatusOK, "community info deleted")
}

func bindInfoRequest(c echo.Context) (*upsertInfoRequest, error) {
	var req upsertInfoRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return nil, err
	}
	if req.Title == "" || req.Content == "" {
		return nil, apperrors.Validation("title and content are required")
	}
	return &req, nil
}

func infoJSON(info *community.Info) map[string]interface{} {
	return map[string]interface{}{
		"id":                    info.ID,
		"title":                 info.Title,
		"content":               info.Content,
		"position":              info.Position,
		"visible_to_logged_out": info.VisibleToLoggedOut,
		"updated_at":            info.UpdatedAt,
	}
}

func infoListJSON(infos []*community.Info) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(infos))
	for _, info := range infos {
		out = append(out, infoJSON(info))
	}
	return out
}
