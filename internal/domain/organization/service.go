package organization

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/appq/appq/internal/platform/scheduling"
	"github.com/appq/appq/pkg/apperrors"
)

// DefaultMaxAdvanceDays is the booking horizon of a category created
// without one.
const DefaultMaxAdvanceDays = 7

// Booking is the time range held by one active scheduled appointment.
type Booking struct {
	Start time.Time
	End   time.Time
}

// BookingLookup reports the active scheduled bookings of a category that
// start within [from, to).
type BookingLookup interface {
	ActiveBookings(ctx context.Context, categoryID uuid.UUID, from, to time.Time) ([]Booking, error)
}

type Service struct {
	orgs       OrganizationRepository
	categories CategoryRepository
	bookings   BookingLookup
	logger     zerolog.Logger
}

func NewService(orgs OrganizationRepository, categories CategoryRepository, logger zerolog.Logger) *Service {
	return &Service{orgs: orgs, categories: categories, logger: logger}
}

// SetBookingLookup lets AvailableSlots leave out taken slots. It is set
// after construction because the lookup lives in the appointment package,
// which itself depends on this service.
func (s *Service) SetBookingLookup(b BookingLookup) {
	s.bookings = b
}

// -- Organization --

func (s *Service) CreateOrganization(ctx context.Context, o *Organization) error {
	o.Name = strings.TrimSpace(o.Name)
	if o.Name == "" {
		return apperrors.NewFieldError("name", "This field is required.")
	}
	if o.Status == "" {
		o.Status = StatusActive
	}
	if !validStatuses[o.Status] {
		return apperrors.NewFieldError("status", "Invalid status choice.")
	}
	if err := s.orgs.Create(ctx, o); err != nil {
		return err
	}
	s.logger.Info().Str("organization_id", o.ID.String()).Msg("organization created")
	return nil
}

func (s *Service) GetOrganization(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return s.orgs.GetByID(ctx, id)
}

func (s *Service) ListOrganizations(ctx context.Context, f OrganizationFilter, limit, offset int) ([]*Organization, int, error) {
	if f.Status != "" && !validStatuses[f.Status] {
		return nil, 0, apperrors.NewFieldError("status", "Invalid status choice.")
	}
	return s.orgs.List(ctx, f, limit, offset)
}

// -- Category --

func (s *Service) CreateCategory(ctx context.Context, c *Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return apperrors.NewFieldError("name", "This field is required.")
	}
	if c.OrganizationID == uuid.Nil {
		return apperrors.NewFieldError("organization_id", "This field is required.")
	}
	if _, err := s.orgs.GetByID(ctx, c.OrganizationID); err != nil {
		if apperrors.Is(err, apperrors.ErrorTypeNotFound) {
			return apperrors.NewFieldError("organization_id", "Organization does not exist.")
		}
		return err
	}
	c.applyDefaults()
	if err := validateCategory(c); err != nil {
		return err
	}
	if err := s.categories.Create(ctx, c); err != nil {
		return err
	}
	s.logger.Info().
		Str("category_id", c.ID.String()).
		Str("organization_id", c.OrganizationID.String()).
		Bool("is_scheduled", c.IsScheduled).
		Msg("category created")
	return nil
}

// HoursUpdate changes the scheduling configuration of a category. Nil fields
// are left as they are.
type HoursUpdate struct {
	OpeningHours    scheduling.WeeklyHours `json:"opening_hours"`
	BreakHours      scheduling.WeeklyHours `json:"break_hours"`
	IntervalMinutes *int                   `json:"interval_minutes"`
	TimeZone        *string                `json:"time_zone"`
	MaxAdvanceDays  *int                   `json:"max_advance_days"`
	IsScheduled     *bool                  `json:"is_scheduled"`
}

func (s *Service) UpdateCategoryHours(ctx context.Context, id uuid.UUID, u HoursUpdate) (*Category, error) {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.OpeningHours != nil {
		c.OpeningHours = u.OpeningHours
	}
	if u.BreakHours != nil {
		c.BreakHours = u.BreakHours
	}
	if u.IntervalMinutes != nil {
		c.IntervalMinutes = *u.IntervalMinutes
	}
	if u.TimeZone != nil {
		c.TimeZone = *u.TimeZone
	}
	if u.MaxAdvanceDays != nil {
		c.MaxAdvanceDays = *u.MaxAdvanceDays
	}
	if u.IsScheduled != nil {
		c.IsScheduled = *u.IsScheduled
	}
	if err := validateCategory(c); err != nil {
		return nil, err
	}
	if err := s.categories.Update(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info().Str("category_id", c.ID.String()).Msg("category hours updated")
	return c, nil
}

func validateCategory(c *Category) error {
	if !validStatuses[c.Status] {
		return apperrors.NewFieldError("status", "Invalid status choice.")
	}
	if c.IntervalMinutes <= 0 {
		return apperrors.NewFieldError("interval_minutes", "Interval must be a positive number of minutes.")
	}
	if c.MaxAdvanceDays < 0 {
		return apperrors.NewFieldError("max_advance_days", "Max advance days cannot be negative.")
	}
	if _, err := scheduling.LoadLocation(c.TimeZone); err != nil {
		return apperrors.NewFieldError("time_zone", "Unknown time zone: "+c.TimeZone+".")
	}
	return scheduling.ValidateWeeklyHours(c.OpeningHours, c.BreakHours)
}

func (s *Service) GetCategory(ctx context.Context, id uuid.UUID) (*Category, error) {
	return s.categories.GetByID(ctx, id)
}

func (s *Service) ListCategories(ctx context.Context, f CategoryFilter, limit, offset int) ([]*Category, int, error) {
	if f.Status != "" && !validStatuses[f.Status] {
		return nil, 0, apperrors.NewFieldError("status", "Invalid status choice.")
	}
	return s.categories.List(ctx, f, limit, offset)
}

// AvailableSlots returns the slots of the category on date (YYYY-MM-DD, in
// the category's time zone) that no active scheduled appointment overlaps.
func (s *Service) AvailableSlots(ctx context.Context, categoryID uuid.UUID, date string) ([]scheduling.Slot, error) {
	c, err := s.categories.GetByID(ctx, categoryID)
	if err != nil && !apperrors.Is(err, apperrors.ErrorTypeNotFound) {
		return nil, err
	}
	if c == nil || !c.IsActive() {
		return nil, apperrors.NewValidationError("Category does not exist or is not active.")
	}
	if !c.IsScheduled {
		return nil, apperrors.NewValidationError("Category does not accept appointments.")
	}

	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return nil, apperrors.NewFieldError("date", "Invalid date format. Use 'YYYY-MM-DD'.")
	}

	slots, err := c.SlotsFor(day.Weekday().String())
	if err != nil {
		return nil, err
	}
	if s.bookings == nil || len(slots) == 0 {
		return slots, nil
	}

	booked, err := s.bookings.ActiveBookings(ctx, c.ID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	return freeSlots(day, slots, booked), nil
}

// freeSlots drops every slot overlapped by a booking. Overlap is strict:
// a booking ending exactly at a slot's start leaves the slot free.
func freeSlots(day time.Time, slots []scheduling.Slot, booked []Booking) []scheduling.Slot {
	free := make([]scheduling.Slot, 0, len(slots))
	for _, sl := range slots {
		start, serr := slotInstant(day, sl.Start())
		end, eerr := slotInstant(day, sl.End())
		if serr != nil || eerr != nil {
			continue
		}
		taken := false
		for _, b := range booked {
			if b.Start.Before(end) && b.End.After(start) {
				taken = true
				break
			}
		}
		if !taken {
			free = append(free, sl)
		}
	}
	return free
}

func slotInstant(day time.Time, clock string) (time.Time, error) {
	minutes, err := scheduling.ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, day.Location()), nil
}
