package community

import (
	"time"
)

// Info is one block of community information content (house rules,
// opening hours, contact details) managed by moderators.
type Info struct {
	ID                 int64
	Title              string
	Content            string
	Position           int
	VisibleToLoggedOut bool
	UpdatedBy          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type UpsertInfoInput struct {
	Title              string
	Content            string
	Position           int
	VisibleToLoggedOut bool
	UpdatedBy          string
}
