package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forum-service/internal/auth"
	"forum-service/internal/domain/post"
	apperrors "forum-service/pkg/errors"
)

type fakePostRepo struct {
	posts   map[int64]*post.Post
	created []post.CreatePostInput
	deleted []int64
}

func newFakePostRepo(posts ...*post.Post) *fakePostRepo {
	repo := &fakePostRepo{posts: make(map[int64]*post.Post)}
	for _, p := range posts {
		repo.posts[p.ID] = p
	}
	return repo
}

func (f *fakePostRepo) List(_ context.Context, opts post.ListOptions) ([]*post.Post, int, error) {
	var out []*post.Post
	for _, p := range f.posts {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (f *fakePostRepo) GetByID(_ context.Context, id int64) (*post.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, apperrors.NotFound("post not found")
	}
	return p, nil
}

func (f *fakePostRepo) Create(_ context.Context, input post.CreatePostInput) (*post.Post, error) {
	f.created = append(f.created, input)
	return &post.Post{ID: int64(len(f.created)), UserID: input.UserID, Title: input.Title}, nil
}

func (f *fakePostRepo) Update(_ context.Context, id int64, _ post.UpdatePostInput) (*post.Post, error) {
	return f.GetByID(context.Background(), id)
}

func (f *fakePostRepo) SoftDelete(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func postContext(t *testing.T, method, path, body string, session *auth.Session) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if session != nil {
		c.Set(auth.ContextKeySession, session)
	}
	return c, rec
}

func memberSession(userID string) *auth.Session {
	return &auth.Session{User: auth.User{
		ID:            userID,
		Role:          auth.RoleFree,
		PrivilegeRole: auth.PrivilegeUser,
	}}
}

func TestPostHandler_CreateRequiresSession(t *testing.T) {
	h := NewPostHandler(newFakePostRepo(), nil)
	c, _ := postContext(t, http.MethodPost, "/api/posts", `{"title":"t","content":"c","category":"general"}`, nil)

	err := h.Create(c)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestPostHandler_CreateValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing title", `{"content":"c","category":"general"}`},
		{"missing category", `{"title":"t","content":"c"}`},
		{"empty content", `{"title":"t","content":"","category":"general"}`},
		{"unknown field", `{"title":"t","content":"c","category":"general","bogus":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakePostRepo()
			h := NewPostHandler(repo, nil)
			c, _ := postContext(t, http.MethodPost, "/api/posts", tt.body, memberSession("user-1"))

			assert.Error(t, h.Create(c))
			assert.Empty(t, repo.created)
		})
	}
}

func TestPostHandler_CreateAnnouncementNeedsPrivilege(t *testing.T) {
	repo := newFakePostRepo()
	h := NewPostHandler(repo, nil)
	body := `{"title":"t","content":"c","category":"general","is_announcement":true}`

	c, _ := postContext(t, http.MethodPost, "/api/posts", body, memberSession("user-1"))
	assert.ErrorIs(t, h.Create(c), apperrors.ErrForbidden)

	mod := memberSession("mod-1")
	mod.User.PrivilegeRole = auth.PrivilegeModerator
	c, rec := postContext(t, http.MethodPost, "/api/posts", body, mod)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, repo.created, 1)
	assert.True(t, repo.created[0].IsAnnouncement)
}

func TestPostHandler_DeleteOwnership(t *testing.T) {
	existing := &post.Post{ID: 7, UserID: "owner-1", Status: post.StatusApproved}

	// A stranger cannot delete someone else's post.
	repo := newFakePostRepo(existing)
	h := NewPostHandler(repo, nil)
	c, _ := postContext(t, http.MethodDelete, "/api/posts/7", "", memberSession("stranger"))
	c.SetParamNames(paramID)
	c.SetParamValues("7")
	assert.ErrorIs(t, h.Delete(c), apperrors.ErrForbidden)
	assert.Empty(t, repo.deleted)

	// The owner can.
	c, _ = postContext(t, http.MethodDelete, "/api/posts/7", "", memberSession("owner-1"))
	c.SetParamNames(paramID)
	c.SetParamValues("7")
	require.NoError(t, h.Delete(c))
	assert.Equal(t, []int64{7}, repo.deleted)

	// So can a moderator.
	repo = newFakePostRepo(existing)
	h = NewPostHandler(repo, nil)
	mod := memberSession("mod-1")
	mod.User.PrivilegeRole = auth.PrivilegeModerator
	c, _ = postContext(t, http.MethodDelete, "/api/posts/7", "", mod)
	c.SetParamNames(paramID)
	c.SetParamValues("7")
	require.NoError(t, h.Delete(c))
}

func TestPostHandler_OwnTabRequiresSession(t *testing.T) {
	h := NewPostHandler(newFakePostRepo(), nil)
	c, _ := postContext(t, http.MethodGet, "/api/posts?tab=own", "", nil)

	assert.ErrorIs(t, h.List(c), apperrors.ErrUnauthorized)
}
