package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"forum-service/internal/audit"
	"forum-service/internal/domain/booking"
	apperrors "forum-service/pkg/errors"
)

const dateLayout = "2006-01-02"

type BookingHandler struct {
	bookings    BookingRepository
	auditLogger *audit.Logger
}

func NewBookingHandler(bookings BookingRepository, auditLogger *audit.Logger) *BookingHandler {
	return &BookingHandler{bookings: bookings, auditLogger: auditLogger}
}

// Schedule returns the booked and admin-blocked hours for one date.
func (h *BookingHandler) Schedule(c echo.Context) error {
	date, err := parseDate(c.QueryParam("date"))
	if err != nil {
		return err
	}

	schedule, err := h.bookings.Schedule(c.Request().Context(), date)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"date":         schedule.Date.Format(dateLayout),
		"booked_hours": schedule.BookedHours,
		"admin_hours":  schedule.AdminHours,
	})
}

func (h *BookingHandler) Mine(c echo.Context) error {
	session, err := requireSession(c)
	if err != nil {
		return err
	}

	bookings, err := h.bookings.ListByUser(c.Request().Context(), session.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"bookings": bookingsJSON(bookings)})
}

// Upcoming is the moderator overview of active bookings from today on.
func (h *BookingHandler) Upcoming(c echo.Context) error {
	if _, err := requirePrivilege(c); err != nil {
		return err
	}

	bookings, err := h.bookings.ListUpcoming(c.Request().Context(), time.Now().Truncate(24*time.Hour))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"bookings": bookingsJSON(bookings)})
}

type createBookingRequest struct {
	Date         string `json:"date"`
	Hours        []int  `json:"hours"`
	Note         string `json:"note"`
	AdminBooking bool   `json:"admin_booking"`
}

func (h *BookingHandler) Create(c echo.Context) error {
	session, err := requireSession(c)
	if err != nil {
		return err
	}

	var req createBookingRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}

	date, err := parseDate(req.Date)
	if err != nil {
		return err
	}
	if date.Before(time.Now().Truncate(24 * time.Hour)) {
		return apperrors.Validation("booking date must not be in the past")
	}
	if !booking.ValidHours(req.Hours) {
		return apperrors.Validation("hours must be whole hours of the day")
	}
	if req.AdminBooking && !session.IsPrivileged() {
		return apperrors.Forbidden("only moderators can create admin bookings")
	}
	if !req.AdminBooking && len(req.Hours) > booking.MaxHoursPerBooking {
		return apperrors.Validation("bookings are limited to 3 hours")
	}

	b, err := h.bookings.Create(c.Request().Context(), booking.CreateBookingInput{
		UserID:       session.User.ID,
		Date:         date,
		Hours:        req.Hours,
		AdminBooking: req.AdminBooking,
		Note:         req.Note,
	})
	if err != nil {
		h.auditLogger.RecordError(c, audit.ResourceBooking, "", audit.ActionCreate, err)
		return err
	}

	h.auditLogger.Record(c, audit.ResourceBooking, strconv.FormatInt(b.ID, 10), audit.ActionCreate, audit.StatusSuccess, nil)

	return c.JSON(http.StatusCreated, bookingJSON(b))
}

func (h *BookingHandler) Cancel(c echo.Context) error {
	session, err := requireSession(c)
	if err != nil {
		return err
	}

	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.bookings.Cancel(c.Request().Context(), id, session.User.ID, session.IsPrivileged()); err != nil {
		return err
	}

	h.auditLogger.Record(c, audit.ResourceBooking, strconv.FormatInt(id, 10), audit.ActionCancel, audit.StatusSuccess, nil)

	return respondMessage(c, http.StatusOK, "booking cancelled")
}

func parseDate(raw string) (time.Time, error) {
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, apperrors.BadRequest("invalid date, expected YYYY-MM-DD")
	}
	return date, nil
}

func bookingJSON(b *booking.Booking) map[string]interface{} {
	return map[string]interface{}{
		"id":            b.ID,
		"user_id":       b.UserID,
		"username":      b.Username,
		"date":          b.Date.Format(dateLayout),
		"hours":         b.Hours,
		"status":        b.Status,
		"admin_booking": b.AdminBooking,
		"note":          b.Note,
		"created_at":    b.CreatedAt,
	}
}

func bookingsJSON(bookings []*booking.Booking) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, bookingJSON(b))
	}
	return out
}
