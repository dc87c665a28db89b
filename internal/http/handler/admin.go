package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"forum-service/internal/audit"
	"forum-service/internal/auth"
	apperrors "forum-service/pkg/errors"
)

// AdminHandler manages user roles. Every change lands in the profiles
// table; role assignments are data, never code.
type AdminHandler struct {
	profiles    ProfileRepository
	auditLogger *audit.Logger
}

func NewAdminHandler(profiles ProfileRepository, auditLogger *audit.Logger) *AdminHandler {
	return &AdminHandler{profiles: profiles, auditLogger: auditLogger}
}

func (h *AdminHandler) ListUsers(c echo.Context) error {
	if _, err := requirePrivilege(c); err != nil {
		return err
	}

	limit := atoiDefault(c.QueryParam("limit"), 50)
	offset := atoiDefault(c.QueryParam("offset"), 0)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	profiles, err := h.profiles.List(c.Request().Context(), limit, offset)
	if err != nil {
		return err
	}

	out := make([]map[string]interface{}, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, profileJSON(p, true))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"users": out})
}

type updatePrivilegeRequest struct {
	PrivilegeRole string `json:"privilege_role"`
}

// UpdatePrivilege changes a user's privilege axis. Admin only, and no
// admin can demote themselves by accident: self-changes are rejected.
func (h *AdminHandler) UpdatePrivilege(c echo.Context) error {
	session, err := requireAdmin(c)
	if err != nil {
		return err
	}

	userID := c.Param(paramID)
	if userID == session.User.ID {
		return apperrors.Validation("cannot change your own privilege role")
	}

	var req updatePrivilegeRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}
	switch req.PrivilegeRole {
	case auth.PrivilegeUser, auth.PrivilegeModerator, auth.PrivilegeAdmin:
	default:
		return apperrors.Validation("privilege_role must be user, moderator or admin")
	}

	if err := h.profiles.UpdatePrivilegeRole(c.Request().Context(), userID, req.PrivilegeRole); err != nil {
		return err
	}

	h.auditLogger.Record(c, audit.ResourceProfile, userID, audit.ActionUpdate, audit.StatusSuccess, map[string]any{
		"privilege_role": req.PrivilegeRole,
	})

	return respondMessage(c, http.StatusOK, "privilege role updated")
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

// UpdateRole changes a user's subscription axis without touching
// privilege.
func (h *AdminHandler) UpdateRole(c echo.Context) error {
	if _, err := requirePrivilege(c); err != nil {
		return err
	}

	userID := c.Param(paramID)

	var req updateRoleRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}
	switch req.Role {
	case auth.RoleFree, auth.RolePremium:
	default:
		return apperrors.Validation("role must be free or premium")
	}

	if err := h.profiles.UpdateSubscriptionRole(c.Request().Context(), userID, req.Role); err != nil {
		return err
	}

	h.auditLogger.Record(c, audit.ResourceProfile, userID, audit.ActionUpdate, audit.StatusSuccess, map[string]any{
		"role": req.Role,
	})

	return respondMessage(c, http.StatusOK, "role updated")
}

type grantCustomRoleRequest struct {
	Key      string   `json:"key"`
	Subroles []string `json:"subroles"`
}

func (h *AdminHandler) GrantCustomRole(c echo.Context) error {
	if _, err := requirePrivilege(c); err != nil {
		return err
	}

	userID := c.Param(paramID)

	var req grantCustomRoleRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}
	if req.Key == "" || len(req.Subroles) == 0 {
		return apperrors.Validation("key and subroles are required")
	}

	grants := map[string][]string{req.Key: req.Subroles}
	if err := h.profiles.GrantCustomRoles(c.Request().Context(), userID, grants); err != nil {
		return err
	}

	h.auditLogger.Record(c, audit.ResourceProfile, userID, audit.ActionGrant, audit.StatusSuccess, map[string]any{
		"custom_role": req.Key,
	})

	return respondMessage(c, http.StatusOK, "custom role granted")
}

func (h *AdminHandler) RevokeCustomRole(c echo.Context) error {
	if _, err := requirePrivilege(c); err != nil {
		return err
	}

	userID := c.Param(paramID)
	key := c.Param("key")
	if key == "" {
		return apperrors.BadRequest("custom role key is required")
	}

	if err := h.profiles.RevokeCustomRole(c.Request().Context(), userID, key); err != nil {
		return err
	}

	h.auditLogger.Record(c, audit.ResourceProfile, userID, audit.ActionRevoke, audit.StatusSuccess, map[string]any{
		"custom_role": key,
	})

	return respondMessage(c, http.StatusOK, "custom role revoked")
}
