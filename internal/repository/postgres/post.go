package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"forum-service/internal/domain/post"
	apperrors "forum-service/pkg/errors"
)

type PostRepository struct {
	db *DB
}

func NewPostRepository(db *DB) *PostRepository {
	return &PostRepository{db: db}
}

const postColumns = `
	p.id, p.user_id, COALESCE(pr.username, ''), p.title, p.content,
	p.category, p.status, p.is_announcement,
	(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id AND c.status <> 'deleted'),
	p.created_at, p.updated_at
`

// List returns one page of posts for the requested tab plus the total
// row count for the pager.
func (r *PostRepository) List(ctx context.Context, opts post.ListOptions) ([]*post.Post, int, error) {
	opts.Normalize()

	filter, args := listFilter(opts)

	var total int
	countQuery := `SELECT COUNT(*) FROM posts p WHERE ` + filter
	if err := r.db.Pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	query := `SELECT ` + postColumns + `
		FROM posts p
		LEFT JOIN profiles pr ON pr.id = p.user_id
		WHERE ` + filter + `
		ORDER BY p.created_at DESC
		LIMIT ` + fmt.Sprintf("$%d OFFSET $%d", len(args)+1, len(args)+2)

	args = append(args, opts.PerPage, (opts.Page-1)*opts.PerPage)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []*post.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating posts: %w", err)
	}
	return posts, total, nil
}

func listFilter(opts post.ListOptions) (string, []interface{}) {
	switch opts.Tab {
	case post.TabAnnouncements:
		return `p.status = $1 AND p.is_announcement`, []interface{}{post.StatusApproved}
	case post.TabOwn:
		return `p.user_id = $1 AND p.status <> $2`, []interface{}{opts.UserID, post.StatusDeleted}
	default:
		return `p.status = $1 AND NOT p.is_announcement`, []interface{}{post.StatusApproved}
	}
}

func (r *PostRepository) GetByID(ctx context.Context, id int64) (*post.Post, error) {
	query := `SELECT ` + postColumns + `
		FROM posts p
		LEFT JOIN profiles pr ON pr.id = p.user_id
		WHERE p.id = $1 AND p.status <> $2`

	p, err := scanPost(r.db.Pool.QueryRow(ctx, query, id, post.StatusDeleted))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("post not found")
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return p, nil
}

func (r *PostRepository) Create(ctx context.Context, input post.CreatePostInput) (*post.Post, error) {
	query := `
		INSERT INTO posts (user_id, title, content, category, status, is_announcement)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	p := &post.Post{
		UserID:         input.UserID,
		Title:          input.Title,
		Content:        input.Content,
		Category:       input.Category,
		Status:         post.StatusApproved,
		IsAnnouncement: input.IsAnnouncement,
	}

	err := r.db.Pool.QueryRow(ctx, query,
		input.UserID, input.Title, input.Content, input.Category,
		post.StatusApproved, input.IsAnnouncement,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return p, nil
}

func (r *PostRepository) Update(ctx context.Context, id int64, input post.UpdatePostInput) (*post.Post, error) {
	query := `
		UPDATE posts
		SET title = COALESCE($2, title),
		    content = COALESCE($3, content),
		    category = COALESCE($4, category),
		    status = COALESCE($5, status),
		    updated_at = now()
		WHERE id = $1 AND status <> $6
		RETURNING id, user_id, ''::text, title, content, category, status, is_announcement, 0::int, created_at, updated_at
	`

	p, err := scanPost(r.db.Pool.QueryRow(ctx, query,
		id, input.Title, input.Content, input.Category, input.Status, post.StatusDeleted,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("post not found")
		}
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return p, nil
}

// SoftDelete hides a post without destroying its comment tree.
func (r *PostRepository) SoftDelete(ctx context.Context, id int64) error {
	query := `UPDATE posts SET status = $2, updated_at = now() WHERE id = $1 AND status <> $2`

	tag, err := r.db.Pool.Exec(ctx, query, id, post.StatusDeleted)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("post not found")
	}
	return nil
}

func scanPost(row pgx.Row) (*post.Post, error) {
	p := &post.Post{}
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.AuthorUsername,
		&p.Title,
		&p.Content,
		&p.Category,
		&p.Status,
		&p.IsAnnouncement,
		&p.CommentCount,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}
