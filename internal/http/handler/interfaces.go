package handler

import (
	"context"
	"time"

	"forum-service/internal/domain/booking"
	"forum-service/internal/domain/comment"
	"forum-service/internal/domain/community"
	"forum-service/internal/domain/post"
	"forum-service/internal/domain/profile"
	"forum-service/internal/domain/purchase"
	"forum-service/internal/payment"
)

// Repository surfaces consumed by the handlers. The postgres package
// implements all of them; tests substitute fakes.

type PostRepository interface {
	List(ctx context.Context, opts post.ListOptions) ([]*post.Post, int, error)
	GetByID(ctx context.Context, id int64) (*post.Post, error)
	Create(ctx context.Context, input post.CreatePostInput) (*post.Post, error)
	Update(ctx context.Context, id int64, input post.UpdatePostInput) (*post.Post, error)
	SoftDelete(ctx context.Context, id int64) error
}

type CommentRepository interface {
	ListByPost(ctx context.Context, postID int64) ([]*comment.Comment, error)
	GetByID(ctx context.Context, id int64) (*comment.Comment, error)
	Create(ctx context.Context, input comment.CreateCommentInput) (*comment.Comment, error)
	SoftDelete(ctx context.Context, id int64) error
}

type BookingRepository interface {
	Schedule(ctx context.Context, date time.Time) (*booking.DaySchedule, error)
	ListByUser(ctx context.Context, userID string) ([]*booking.Booking, error)
	ListUpcoming(ctx context.Context, from time.Time) ([]*booking.Booking, error)
	Create(ctx context.Context, input booking.CreateBookingInput) (*booking.Booking, error)
	Cancel(ctx context.Context, id int64, userID string, admin bool) error
}

type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*profile.Profile, error)
	GetByUsername(ctx context.Context, username string) (*profile.Profile, error)
	Update(ctx context.Context, id string, input profile.UpdateProfileInput) (*profile.Profile, error)
	List(ctx context.Context, limit, offset int) ([]*profile.Profile, error)
	UpdatePrivilegeRole(ctx context.Context, id, privilegeRole string) error
	UpdateSubscriptionRole(ctx context.Context, id, role string) error
	GrantCustomRoles(ctx context.Context, id string, grants map[string][]string) error
	RevokeCustomRole(ctx context.Context, id, key string) error
}

type InfoRepository interface {
	List(ctx context.Context, publicOnly bool) ([]*community.Info, error)
	Create(ctx context.Context, input community.UpsertInfoInput) (*community.Info, error)
	Update(ctx context.Context, id int64, input community.UpsertInfoInput) (*community.Info, error)
	Delete(ctx context.Context, id int64) error
}

type CheckoutUnlocker interface {
	Apply(ctx context.Context, userID, sessionID string) (*payment.Result, error)
}

type PurchaseLister interface {
	ListByUser(ctx context.Context, userID string) ([]*purchase.Purchase, error)
}

type AttachmentStore interface {
	PresignUpload(ctx context.Context, objectKey, contentType string) (string, error)
	PresignDownload(ctx context.Context, objectKey string) (string, error)
	DeleteObject(ctx context.Context, objectKey string) error
}
