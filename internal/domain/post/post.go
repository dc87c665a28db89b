package post

import (
	"time"
)

// List tabs. Public sees approved posts, announcements are
// admin-authored, own shows the caller's posts regardless of status.
const (
	TabPublic        = "public"
	TabAnnouncements = "announcements"
	TabOwn           = "own"
)

const (
	StatusApproved = "approved"
	StatusPending  = "pending"
	StatusDeleted  = "deleted"
)

const (
	MaxContentLength = 50000
	DefaultPerPage   = 20
	MaxPerPage       = 100
)

type Post struct {
	ID             int64
	UserID         string
	AuthorUsername string
	Title          string
	Content        string
	Category       string
	Status         string
	IsAnnouncement bool
	CommentCount   int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type CreatePostInput struct {
	UserID         string
	Title          string
	Content        string
	Category       string
	IsAnnouncement bool
}

type UpdatePostInput struct {
	Title    *string
	Content  *string
	Category *string
	Status   *string
}

type ListOptions struct {
	Tab     string
	UserID  string
	Page    int
	PerPage int
}

// Normalize clamps paging and defaults the tab so repository queries
// never see out-of-range input.
func (o *ListOptions) Normalize() {
	if o.Tab == "" {
		o.Tab = TabPublic
	}
	if o.Page < 1 {
		o.Page = 1
	}
	if o.PerPage < 1 {
		o.PerPage = DefaultPerPage
	}
	if o.PerPage > MaxPerPage {
		o.PerPage = MaxPerPage
	}
}
