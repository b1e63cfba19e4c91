package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/appq/appq/internal/domain/organization"
)

// Scope selects scheduled, unscheduled or all appointments in a listing.
type Scope string

const (
	ScopeAll         Scope = "all"
	ScopeScheduled   Scope = "scheduled"
	ScopeUnscheduled Scope = "unscheduled"
)

// ListFilter narrows appointment listings. Groups, when RestrictToGroups is
// set, limits results to categories whose own or organization group is one
// of them.
type ListFilter struct {
	UserID           string
	Scope            Scope
	Status           string
	CategoryIDs      []uuid.UUID
	RestrictToGroups bool
	Groups           []string
}

// QueueStore is the storage the Sequencer needs. Counter operations only
// ever touch active, unscheduled rows of the given partition.
type QueueStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// Save persists Status, Counter and UpdatedBy.
	Save(ctx context.Context, a *Appointment) error
	// MaxCounter returns the highest counter in p, or 0 when p is empty.
	MaxCounter(ctx context.Context, p Partition) (int, error)
	// MinCounter returns the lowest counter in p, or 0 when p is empty.
	MinCounter(ctx context.Context, p Partition) (int, error)
	// ShiftCounters adds delta to every counter c in p with after < c, and
	// c < before when before is not nil. It returns the number of rows moved.
	ShiftCounters(ctx context.Context, p Partition, after int, before *int, delta int) (int64, error)
}

type Repository interface {
	QueueStore
	Create(ctx context.Context, a *Appointment) error
	// ExistsActive reports whether userID already holds an active
	// appointment, scheduled or not, in the partition.
	ExistsActive(ctx context.Context, userID string, p Partition) (bool, error)
	// Overlaps reports whether an active scheduled appointment of the
	// category intersects [start, end).
	Overlaps(ctx context.Context, categoryID uuid.UUID, start, end time.Time) (bool, error)
	ActiveBookings(ctx context.Context, categoryID uuid.UUID, from, to time.Time) ([]organization.Booking, error)
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error)
}
