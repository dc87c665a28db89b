package booking

import (
	"time"
)

const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"

	// MaxHoursPerBooking caps regular bookings; admin block bookings
	// may take the whole day.
	MaxHoursPerBooking = 3
)

type Booking struct {
	ID           int64
	UserID       string
	Username     string
	Date         time.Time
	Hours        []int
	Status       string
	AdminBooking bool
	Note         string
	CreatedAt    time.Time
}

type CreateBookingInput struct {
	UserID       string
	Date         time.Time
	Hours        []int
	AdminBooking bool
	Note         string
}

// DaySchedule is the per-date availability view: which hours are taken
// by regular bookings and which are blocked by admin bookings.
type DaySchedule struct {
	Date        time.Time
	BookedHours []int
	AdminHours  []int
}

// ValidHours reports whether every requested hour is a whole hour of
// the day.
func ValidHours(hours []int) bool {
	if len(hours) == 0 {
		return false
	}
	for _, h := range hours {
		if h < 0 || h > 23 {
			return false
		}
	}
	return true
}
