package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"forum-service/internal/domain/comment"
	apperrors "forum-service/pkg/errors"
)

type CommentRepository struct {
	db *DB
}

func NewCommentRepository(db *DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// ListByPost returns the discussion tree of a post flattened in
// parent-before-child order. Ordering by the materialized path array
// keeps each reply directly under its thread.
func (r *CommentRepository) ListByPost(ctx context.Context, postID int64) ([]*comment.Comment, error) {
	query := `
		WITH RECURSIVE thread AS (
			SELECT c.id, c.post_id, c.user_id, c.parent_id, c.content, c.status,
			       c.created_at, ARRAY[c.id] AS path
			FROM comments c
			WHERE c.post_id = $1 AND c.parent_id IS NULL
			UNION ALL
			SELECT c.id, c.post_id, c.user_id, c.parent_id, c.content, c.status,
			       c.created_at, t.path || c.id
			FROM comments c
			JOIN thread t ON c.parent_id = t.id
		)
		SELECT t.id, t.post_id, t.user_id, COALESCE(pr.username, ''),
		       t.parent_id, t.path, t.content, t.status, t.created_at
		FROM thread t
		LEFT JOIN profiles pr ON pr.id = t.user_id
		ORDER BY t.path
	`

	rows, err := r.db.Pool.Query(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []*comment.Comment
	for rows.Next() {
		c := &comment.Comment{}
		if err := rows.Scan(
			&c.ID,
			&c.PostID,
			&c.UserID,
			&c.AuthorUsername,
			&c.ParentID,
			&c.Path,
			&c.Content,
			&c.Status,
			&c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}
	return comments, nil
}

// Create inserts a comment and materializes its path from the parent
// inside one transaction, so a concurrently deleted parent cannot leave
// an orphaned path.
func (r *CommentRepository) Create(ctx context.Context, input comment.CreateCommentInput) (*comment.Comment, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var parentPath []int64
	if input.ParentID != nil {
		err := tx.QueryRow(ctx,
			`SELECT path FROM comments WHERE id = $1 AND post_id = $2`,
			*input.ParentID, input.PostID,
		).Scan(&parentPath)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NotFound("parent comment not found")
			}
			return nil, fmt.Errorf("failed to get parent comment: %w", err)
		}
	}

	c := &comment.Comment{
		PostID:   input.PostID,
		UserID:   input.UserID,
		ParentID: input.ParentID,
		Content:  input.Content,
		Status:   "visible",
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO comments (post_id, user_id, parent_id, content, status, path)
		VALUES ($1, $2, $3, $4, $5, '{}')
		RETURNING id, created_at
	`, input.PostID, input.UserID, input.ParentID, input.Content, c.Status).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	c.Path = append(parentPath, c.ID)
	if _, err := tx.Exec(ctx,
		`UPDATE comments SET path = $2 WHERE id = $1`, c.ID, c.Path,
	); err != nil {
		return nil, fmt.Errorf("failed to set comment path: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return c, nil
}

// SoftDelete hides a comment while keeping its replies reachable.
func (r *CommentRepository) SoftDelete(ctx context.Context, id int64) error {
	query := `UPDATE comments SET status = 'deleted' WHERE id = $1 AND status <> 'deleted'`

	tag, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("comment not found")
	}
	return nil
}

func (r *CommentRepository) GetByID(ctx context.Context, id int64) (*comment.Comment, error) {
	query := `
		SELECT id, post_id, user_id, ''::text, parent_id, path, content, status, created_at
		FROM comments
		WHERE id = $1
	`

	c := &comment.Comment{}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.PostID, &c.UserID, &c.AuthorUsername,
		&c.ParentID, &c.Path, &c.Content, &c.Status, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("comment not found")
		}
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return c, nil
}
