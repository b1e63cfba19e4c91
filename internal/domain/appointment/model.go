package appointment

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusCheckin  = "checkin"
	StatusCancel   = "cancel"
)

var validStatuses = map[string]bool{
	StatusActive: true, StatusInactive: true, StatusCheckin: true, StatusCancel: true,
}

// Appointment maps to the appointment table. Unscheduled appointments are
// ordered by Counter within their Partition; scheduled ones hold a
// [ScheduledTime, ScheduledEndTime) booking instead and keep Counter at 0.
type Appointment struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	OrganizationID   uuid.UUID  `db:"organization_id" json:"organization_id"`
	CategoryID       uuid.UUID  `db:"category_id" json:"category_id"`
	UserID           string     `db:"user_id" json:"user_id"`
	Status           string     `db:"status" json:"status"`
	IsScheduled      bool       `db:"is_scheduled" json:"is_scheduled"`
	Counter          int        `db:"counter" json:"counter"`
	ScheduledTime    *time.Time `db:"scheduled_time" json:"scheduled_time,omitempty"`
	ScheduledEndTime *time.Time `db:"scheduled_end_time" json:"scheduled_end_time,omitempty"`
	CreatedBy        *string    `db:"created_by" json:"created_by,omitempty"`
	UpdatedBy        *string    `db:"updated_by" json:"updated_by,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Partition identifies one counter queue.
type Partition struct {
	OrganizationID uuid.UUID
	CategoryID     uuid.UUID
}

func (a *Appointment) Partition() Partition {
	return Partition{OrganizationID: a.OrganizationID, CategoryID: a.CategoryID}
}

// InQueue reports whether a holds a counter in its partition.
func (a *Appointment) InQueue() bool {
	return a.Status == StatusActive && !a.IsScheduled
}

// CreatedByUser reports whether userID created a.
func (a *Appointment) CreatedByUser(userID string) bool {
	return a.CreatedBy != nil && *a.CreatedBy == userID
}

// transitions lists the statuses reachable from each status.
var transitions = map[string][]string{
	StatusActive:   {StatusCheckin, StatusCancel, StatusInactive},
	StatusInactive: {StatusActive, StatusCheckin, StatusCancel},
	StatusCheckin:  {StatusActive, StatusCancel},
	StatusCancel:   {StatusActive},
}

// CanTransition reports whether an appointment in status from may move to to.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
