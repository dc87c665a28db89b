package profile

import (
	"regexp"
	"time"
)

const MaxBioLength = 500

// UsernameRe constrains usernames to 3-20 word characters or dashes.
var UsernameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)

type Profile struct {
	ID                 string
	Email              string
	Username           string
	Role               string
	PrivilegeRole      string
	CustomRoles        map[string][]string
	Bio                string
	AvatarURL          string
	IsActive           bool
	SubscriptionID     string
	SubscriptionStatus string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type UpdateProfileInput struct {
	Username *string
	Bio      *string
}
