package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forum-service/internal/auth"
	"forum-service/internal/domain/profile"
)

type fakeProfileRepo struct {
	listLimit  int
	listOffset int
}

func (f *fakeProfileRepo) GetByID(context.Context, string) (*profile.Profile, error) {
	return nil, nil
}

func (f *fakeProfileRepo) GetByUsername(context.Context, string) (*profile.Profile, error) {
	return nil, nil
}

func (f *fakeProfileRepo) Update(context.Context, string, profile.UpdateProfileInput) (*profile.Profile, error) {
	return nil, nil
}

func (f *fakeProfileRepo) List(_ context.Context, limit, offset int) ([]*profile.Profile, error) {
	f.listLimit = limit
	f.listOffset = offset
	return nil, nil
}

func (f *fakeProfileRepo) UpdatePrivilegeRole(context.Context, string, string) error { return nil }

func (f *fakeProfileRepo) UpdateSubscriptionRole(context.Context, string, string) error { return nil }

func (f *fakeProfileRepo) GrantCustomRoles(context.Context, string, map[string][]string) error {
	return nil
}

func (f *fakeProfileRepo) RevokeCustomRole(context.Context, string, string) error { return nil }

func adminSession(userID string) *auth.Session {
	s := memberSession(userID)
	s.User.PrivilegeRole = auth.PrivilegeAdmin
	return s
}

func TestAdminHandler_ListUsersClampsPagination(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", 50, 0},
		{"negative offset", "?offset=-5", 50, 0},
		{"oversized limit", "?limit=1000&offset=10", 50, 10},
		{"valid values", "?limit=25&offset=75", 25, 75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeProfileRepo{}
			h := NewAdminHandler(repo, nil)
			c, rec := postContext(t, http.MethodGet, "/api/admin/users"+tt.query, "", adminSession("admin-1"))

			require.NoError(t, h.ListUsers(c))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantLimit, repo.listLimit)
			assert.Equal(t, tt.wantOffset, repo.listOffset)
		})
	}
}
