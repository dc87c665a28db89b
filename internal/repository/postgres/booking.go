package postgres

import (
	"context"
	"fmt"
	"time"

	"forum-service/internal/domain/booking"
	apperrors "forum-service/pkg/errors"
)

type BookingRepository struct {
	db *DB
}

func NewBookingRepository(db *DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Schedule returns which hours of a date are taken, split into regular
// and admin-blocked hours.
func (r *BookingRepository) Schedule(ctx context.Context, date time.Time) (*booking.DaySchedule, error) {
	query := `
		SELECT COALESCE(array_agg(DISTINCT h) FILTER (WHERE NOT b.admin_booking), '{}'),
		       COALESCE(array_agg(DISTINCT h) FILTER (WHERE b.admin_booking), '{}')
		FROM bookings b, unnest(b.hours) AS h
		WHERE b.date = $1 AND b.status = $2
	`

	schedule := &booking.DaySchedule{Date: date}
	err := r.db.Pool.QueryRow(ctx, query, date, booking.StatusActive).
		Scan(&schedule.BookedHours, &schedule.AdminHours)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return schedule, nil
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID string) ([]*booking.Booking, error) {
	query := bookingSelect + ` WHERE b.user_id = $1 ORDER BY b.date DESC, b.created_at DESC`
	return r.list(ctx, query, userID)
}

// ListUpcoming is the admin view: every active booking from the given
// date forward.
func (r *BookingRepository) ListUpcoming(ctx context.Context, from time.Time) ([]*booking.Booking, error) {
	query := bookingSelect + ` WHERE b.date >= $1 AND b.status = 'active' ORDER BY b.date, b.created_at`
	return r.list(ctx, query, from)
}

const bookingSelect = `
	SELECT b.id, b.user_id, COALESCE(pr.username, ''), b.date, b.hours,
	       b.status, b.admin_booking, COALESCE(b.note, ''), b.created_at
	FROM bookings b
	LEFT JOIN profiles pr ON pr.id = b.user_id`

func (r *BookingRepository) list(ctx context.Context, query string, args ...interface{}) ([]*booking.Booking, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*booking.Booking
	for rows.Next() {
		b := &booking.Booking{}
		if err := rows.Scan(
			&b.ID, &b.UserID, &b.Username, &b.Date, &b.Hours,
			&b.Status, &b.AdminBooking, &b.Note, &b.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}
	return bookings, nil
}

// Create inserts a booking after checking, inside the same
// transaction, that none of the requested hours overlap an active
// booking and that the user holds no other active booking that day.
// An advisory lock on the date serializes racing inserts; the table
// constraints are the backstop.
func (r *BookingRepository) Create(ctx context.Context, input booking.CreateBookingInput) (*booking.Booking, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1::text))`, input.Date,
	); err != nil {
		return nil, fmt.Errorf("failed to lock booking date: %w", err)
	}

	var overlaps bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE date = $1 AND status = $2 AND hours && $3
		)
	`, input.Date, booking.StatusActive, input.Hours).Scan(&overlaps)
	if err != nil {
		return nil, fmt.Errorf("failed to check overlap: %w", err)
	}
	if overlaps {
		return nil, apperrors.Conflict("requested hours are already booked")
	}

	if !input.AdminBooking {
		var hasActive bool
		err = tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM bookings
				WHERE user_id = $1 AND date = $2 AND status = $3
			)
		`, input.UserID, input.Date, booking.StatusActive).Scan(&hasActive)
		if err != nil {
			return nil, fmt.Errorf("failed to check existing booking: %w", err)
		}
		if hasActive {
			return nil, apperrors.Conflict("you already have a booking on this date")
		}
	}

	b := &booking.Booking{
		UserID:       input.UserID,
		Date:         input.Date,
		Hours:        input.Hours,
		Status:       booking.StatusActive,
		AdminBooking: input.AdminBooking,
		Note:         input.Note,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO bookings (user_id, date, hours, status, admin_booking, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, input.UserID, input.Date, input.Hours, booking.StatusActive,
		input.AdminBooking, input.Note,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		if isCheckViolation(err) {
			return nil, apperrors.Validation("booking violates scheduling constraints")
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return b, nil
}

// Cancel marks a booking cancelled. Unless admin is set, only the
// owner's booking is matched.
func (r *BookingRepository) Cancel(ctx context.Context, id int64, userID string, admin bool) error {
	query := `UPDATE bookings SET status = $2 WHERE id = $1 AND status = $3`
	args := []interface{}{id, booking.StatusCancelled, booking.StatusActive}

	if !admin {
		query += ` AND user_id = $4`
		args = append(args, userID)
	}

	tag, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("booking not found")
	}
	return nil
}
