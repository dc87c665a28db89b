package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"forum-service/internal/domain/community"
	apperrors "forum-service/pkg/errors"
)

type InfoRepository struct {
	db *DB
}

func NewInfoRepository(db *DB) *InfoRepository {
	return &InfoRepository{db: db}
}

// List returns info blocks in display order. With publicOnly set, rows
// hidden from logged-out visitors are filtered out.
func (r *InfoRepository) List(ctx context.Context, publicOnly bool) ([]*community.Info, error) {
	query := `
		SELECT id, title, content, position, visible_to_logged_out,
		       COALESCE(updated_by, ''), created_at, updated_at
		FROM community_info
	`
	if publicOnly {
		query += ` WHERE visible_to_logged_out`
	}
	query += ` ORDER BY position, id`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list community info: %w", err)
	}
	defer rows.Close()

	var infos []*community.Info
	for rows.Next() {
		info := &community.Info{}
		if err := rows.Scan(
			&info.ID, &info.Title, &info.Content, &info.Position,
			&info.VisibleToLoggedOut, &info.UpdatedBy,
			&info.CreatedAt, &info.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan community info: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating community info: %w", err)
	}
	return infos, nil
}

func (r *InfoRepository) Create(ctx context.Context, input community.UpsertInfoInput) (*community.Info, error) {
	query := `
		INSERT INTO community_info (title, content, position, visible_to_logged_out, updated_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	info := &community.Info{
		Title:              input.Title,
		Content:            input.Content,
		Position:           input.Position,
		VisibleToLoggedOut: input.VisibleToLoggedOut,
		UpdatedBy:          input.UpdatedBy,
	}

	err := r.db.Pool.QueryRow(ctx, query,
		input.Title, input.Content, input.Position,
		input.VisibleToLoggedOut, input.UpdatedBy,
	).Scan(&info.ID, &info.CreatedAt, &info.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create community info: %w", err)
	}
	return info, nil
}

func (r *InfoRepository) Update(ctx context.Context, id int64, input community.UpsertInfoInput) (*community.Info, error) {
	query := `
		UPDATE community_info
		SET title = $2, content = $3, position = $4,
		    visible_to_logged_out = $5, updated_by = $6, updated_at = now()
		WHERE id = $1
		RETURNING id, title, content, position, visible_to_logged_out,
		          COALESCE(updated_by, ''), created_at, updated_at
	`

	info := &community.Info{}
	err := r.db.Pool.QueryRow(ctx, query,
		id, input.Title, input.Content, input.Position,
		input.VisibleToLoggedOut, input.UpdatedBy,
	).Scan(
		&info.ID, &info.Title, &info.Content, &info.Position,
		&info.VisibleToLoggedOut, &info.UpdatedBy,
		&info.CreatedAt, &info.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("community info not found")
		}
		return nil, fmt.Errorf("failed to update community info: %w", err)
	}
	return info, nil
}

func (r *InfoRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM community_info WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete community info: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("community info not found")
	}
	return nil
}
