package organization

import (
	"time"

	"github.com/google/uuid"

	"github.com/appq/appq/internal/platform/scheduling"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

var validStatuses = map[string]bool{StatusActive: true, StatusInactive: true}

// Organization maps to the organization table.
type Organization struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Status    string    `db:"status" json:"status"`
	Types     []string  `db:"types" json:"types"`
	GroupName *string   `db:"group_name" json:"group_name,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (o *Organization) IsActive() bool { return o.Status == StatusActive }

// Category maps to the category table. A category is one queue of an
// organization; scheduled categories also hand out time slots.
type Category struct {
	ID              uuid.UUID              `db:"id" json:"id"`
	OrganizationID  uuid.UUID              `db:"organization_id" json:"organization_id"`
	Name            string                 `db:"name" json:"name"`
	Description     *string                `db:"description" json:"description,omitempty"`
	Type            *string                `db:"type" json:"type,omitempty"`
	Status          string                 `db:"status" json:"status"`
	GroupName       *string                `db:"group_name" json:"group_name,omitempty"`
	OpeningHours    scheduling.WeeklyHours `db:"opening_hours" json:"opening_hours"`
	BreakHours      scheduling.WeeklyHours `db:"break_hours" json:"break_hours"`
	IntervalMinutes int                    `db:"interval_minutes" json:"interval_minutes"`
	TimeZone        string                 `db:"time_zone" json:"time_zone"`
	MaxAdvanceDays  int                    `db:"max_advance_days" json:"max_advance_days"`
	IsScheduled     bool                   `db:"is_scheduled" json:"is_scheduled"`
	CreatedAt       time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time              `db:"updated_at" json:"updated_at"`
}

func (c *Category) IsActive() bool { return c.Status == StatusActive }

// Interval is the length of one scheduled appointment.
func (c *Category) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

func (c *Category) Location() (*time.Location, error) {
	return scheduling.LoadLocation(c.TimeZone)
}

// SlotsFor returns the bookable slots of weekday ("Monday".."Sunday").
func (c *Category) SlotsFor(weekday string) ([]scheduling.Slot, error) {
	return scheduling.DaySlots(c.OpeningHours, c.BreakHours, weekday, c.IntervalMinutes)
}

// GroupNames lists the non-empty group names that grant access to the
// category, the category's own group first.
func (c *Category) GroupNames(org *Organization) []string {
	var names []string
	if c.GroupName != nil && *c.GroupName != "" {
		names = append(names, *c.GroupName)
	}
	if org != nil && org.GroupName != nil && *org.GroupName != "" {
		names = append(names, *org.GroupName)
	}
	return names
}

// DefaultIntervalMinutes is the slot length of a category created without one.
const DefaultIntervalMinutes = 30

func (c *Category) applyDefaults() {
	if c.Status == "" {
		c.Status = StatusActive
	}
	if c.IntervalMinutes == 0 {
		c.IntervalMinutes = DefaultIntervalMinutes
	}
	if c.TimeZone == "" {
		c.TimeZone = "UTC"
	}
	if c.OpeningHours == nil {
		c.OpeningHours = scheduling.WeeklyHours{}
	}
	if c.BreakHours == nil {
		c.BreakHours = scheduling.WeeklyHours{}
	}
}
