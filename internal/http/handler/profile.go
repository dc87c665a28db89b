package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"forum-service/internal/domain/profile"
	apperrors "forum-service/pkg/errors"
)

type ProfileHandler struct {
	profiles ProfileRepository
}

func NewProfileHandler(profiles ProfileRepository) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Me returns the caller's own profile.
func (h *ProfileHandler) Me(c echo.Context) error {
	session, err := requireSession(c)
	if err != nil {
		return err
	}

	p, err := h.profiles.GetByID(c.Request().Context(), session.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profileJSON(p, true))
}

// Get returns a public profile by username.
func (h *ProfileHandler) Get(c echo.Context) error {
	username := c.Param("username")
	if !profile.UsernameRe.MatchString(username) {
		return apperrors.BadRequest("invalid username")
	}

	p, err := h.profiles.GetByUsername(c.Request().Context(), username)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profileJSON(p, false))
}

type updateProfileRequest struct {
	Username *string `json:"username"`
	Bio      *string `json:"bio"`
}

// UpdateMe updates the caller's own username and bio.
func (h *ProfileHandler) UpdateMe(c echo.Context) error {
	session, err := requireSession(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}

	if req.Username != nil {
		trimmed := strings.TrimSpace(*req.Username)
		if !profile.UsernameRe.MatchString(trimmed) {
			return apperrors.Validation("username must be 3-20 letters, digits, dashes or underscores")
		}
		req.Username = &trimmed
	}
	if req.Bio != nil && len(*req.Bio) > profile.MaxBioLength {
		return apperrors.Validation("bio must be at most 500 characters")
	}

	p, err := h.profiles.Update(c.Request().Context(), session.User.ID, profile.UpdateProfileInput{
		Username: req.Username,
		Bio:      req.Bio,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profileJSON(p, true))
}

// profileJSON renders a profile; the private view adds the fields only
// the owner (or an admin) should see.
func profileJSON(p *profile.Profile, private bool) map[string]interface{} {
	out := map[string]interface{}{
		"id":         p.ID,
		"username":   p.Username,
		"bio":        p.Bio,
		"avatar_url": p.AvatarURL,
		"role":       p.Role,
		"created_at": p.CreatedAt,
	}
	if private {
		out["email"] = p.Email
		out["privilege_role"] = p.PrivilegeRole
		out["custom_roles"] = p.CustomRoles
		out["subscription_status"] = p.SubscriptionStatus
	}
	return out
}
