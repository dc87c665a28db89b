package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"forum-service/internal/domain/profile"
	apperrors "forum-service/pkg/errors"
)

const profileColumns = `
	id, email, COALESCE(username, ''), role, privilege_role,
	COALESCE(custom_roles, '{}'::jsonb), COALESCE(bio, ''),
	COALESCE(avatar_url, ''), is_active,
	COALESCE(subscription_id, ''), COALESCE(subscription_status, ''),
	created_at, updated_at
`

type ProfileRepository struct {
	db *DB
}

func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*profile.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	p, err := scanProfile(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("profile not found")
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

func (r *ProfileRepository) GetByUsername(ctx context.Context, username string) (*profile.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE username = $1 AND is_active`

	p, err := scanProfile(r.db.Pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("profile not found")
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// GetRoles returns the role attributes merged onto resolved sessions.
func (r *ProfileRepository) GetRoles(ctx context.Context, userID string) (string, string, error) {
	query := `SELECT role, privilege_role FROM profiles WHERE id = $1`

	var role, privilegeRole string
	err := r.db.Pool.QueryRow(ctx, query, userID).Scan(&role, &privilegeRole)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", apperrors.NotFound("profile not found")
		}
		return "", "", fmt.Errorf("failed to get roles: %w", err)
	}
	return role, privilegeRole, nil
}

// Ensure inserts a minimal profile row for a first-time visitor. An
// existing row is left untouched.
func (r *ProfileRepository) Ensure(ctx context.Context, id, email string) error {
	query := `
		INSERT INTO profiles (id, email)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`

	if _, err := r.db.Pool.Exec(ctx, query, id, email); err != nil {
		return fmt.Errorf("failed to ensure profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) Update(ctx context.Context, id string, input profile.UpdateProfileInput) (*profile.Profile, error) {
	query := `
		UPDATE profiles
		SET username = COALESCE($2, username),
		    bio = COALESCE($3, bio),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + profileColumns

	p, err := scanProfile(r.db.Pool.QueryRow(ctx, query, id, input.Username, input.Bio))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("profile not found")
		}
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict("username already taken")
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return p, nil
}

// UpdatePrivilegeRole changes only the privilege axis.
func (r *ProfileRepository) UpdatePrivilegeRole(ctx context.Context, id, privilegeRole string) error {
	return r.updateColumn(ctx, id, `privilege_role`, privilegeRole)
}

// UpdateSubscriptionRole changes only the subscription axis, leaving
// privilege_role untouched.
func (r *ProfileRepository) UpdateSubscriptionRole(ctx context.Context, id, role string) error {
	return r.updateColumn(ctx, id, `role`, role)
}

func (r *ProfileRepository) updateColumn(ctx context.Context, id, column, value string) error {
	query := `UPDATE profiles SET ` + column + ` = $2, updated_at = now() WHERE id = $1`

	tag, err := r.db.Pool.Exec(ctx, query, id, value)
	if err != nil {
		if isCheckViolation(err) {
			return apperrors.Validation("invalid role value")
		}
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("profile not found")
	}
	return nil
}

// SetSubscription records a completed subscription checkout on the
// profile. privilege_role is deliberately not part of the statement.
func (r *ProfileRepository) SetSubscription(ctx context.Context, id, role, subscriptionID, status string) error {
	query := `
		UPDATE profiles
		SET role = $2, subscription_id = $3, subscription_status = $4, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, role, subscriptionID, status)
	if err != nil {
		return fmt.Errorf("failed to set subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("profile not found")
	}
	return nil
}

// GrantCustomRoles merges grants into the custom_roles document. Keys
// already present are overwritten, others are preserved.
func (r *ProfileRepository) GrantCustomRoles(ctx context.Context, id string, grants map[string][]string) error {
	if len(grants) == 0 {
		return nil
	}

	payload, err := json.Marshal(grants)
	if err != nil {
		return fmt.Errorf("failed to encode custom roles: %w", err)
	}

	query := `
		UPDATE profiles
		SET custom_roles = COALESCE(custom_roles, '{}'::jsonb) || $2::jsonb,
		    updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, payload)
	if err != nil {
		return fmt.Errorf("failed to grant custom roles: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("profile not found")
	}
	return nil
}

// RevokeCustomRole removes one key from the custom_roles document.
func (r *ProfileRepository) RevokeCustomRole(ctx context.Context, id, key string) error {
	query := `
		UPDATE profiles
		SET custom_roles = COALESCE(custom_roles, '{}'::jsonb) - $2,
		    updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, key)
	if err != nil {
		return fmt.Errorf("failed to revoke custom role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("profile not found")
	}
	return nil
}

func (r *ProfileRepository) List(ctx context.Context, limit, offset int) ([]*profile.Profile, error) {
	query := `SELECT ` + profileColumns + `
		FROM profiles
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*profile.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}
	return profiles, nil
}

func scanProfile(row pgx.Row) (*profile.Profile, error) {
	p := &profile.Profile{}
	var customRoles []byte

	err := row.Scan(
		&p.ID,
		&p.Email,
		&p.Username,
		&p.Role,
		&p.PrivilegeRole,
		&customRoles,
		&p.Bio,
		&p.AvatarURL,
		&p.IsActive,
		&p.SubscriptionID,
		&p.SubscriptionStatus,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(customRoles) > 0 {
		if err := json.Unmarshal(customRoles, &p.CustomRoles); err != nil {
			return nil, fmt.Errorf("failed to decode custom roles: %w", err)
		}
	}
	return p, nil
}
