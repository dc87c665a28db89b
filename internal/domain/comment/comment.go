package comment

import (
	"time"
)

const MaxContentLength = 5000

// Comment is one node of a post's discussion tree. Path holds the
// ancestor comment ids ending in the comment's own id; ordering rows
// by path yields parent-before-child traversal.
type Comment struct {
	ID             int64
	PostID         int64
	UserID         string
	AuthorUsername string
	ParentID       *int64
	Path           []int64
	Content        string
	Status         string
	CreatedAt      time.Time
}

type CreateCommentInput struct {
	PostID   int64
	UserID   string
	ParentID *int64
	Content  string
}

// Depth is the nesting level, zero for top-level comments.
func (c *Comment) Depth() int {
	if len(c.Path) == 0 {
		return 0
	}
	return len(c.Path) - 1
}
