package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/appq/appq/internal/domain/organization"
	"github.com/appq/appq/pkg/apperrors"
)

// memRepo is an in-memory Repository. Its WithTx serializes transactions
// and restores the previous rows when fn fails, standing in for a
// transaction plus partition lock.
type memRepo struct {
	txMu sync.Mutex
	mu   sync.Mutex
	rows map[uuid.UUID]*Appointment
	// groups maps a category to the group names that grant access to it.
	groups map[uuid.UUID][]string
	seq    int
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[uuid.UUID]*Appointment), groups: make(map[uuid.UUID][]string)}
}

type txKey struct{}

func (m *memRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := make(map[uuid.UUID]Appointment, len(m.rows))
	for id, a := range m.rows {
		snapshot[id] = *a
	}
	m.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.mu.Lock()
		m.rows = make(map[uuid.UUID]*Appointment, len(snapshot))
		for id, a := range snapshot {
			cp := a
			m.rows[id] = &cp
		}
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memRepo) put(a *Appointment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	m.seq++
	a.CreatedAt = time.Unix(int64(m.seq), 0)
	cp := *a
	m.rows[a.ID] = &cp
}

func (m *memRepo) get(id uuid.UUID) *Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.rows[id]
	return &cp
}

// queue returns the active unscheduled appointments of p ordered by counter.
func (m *memRepo) queue(p Partition) []*Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Appointment
	for _, a := range m.rows {
		if a.InQueue() && a.Partition() == p {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Counter < out[j].Counter })
	return out
}

func (m *memRepo) counters(p Partition) []int {
	out := []int{}
	for _, a := range m.queue(p) {
		out = append(out, a.Counter)
	}
	return out
}

func (m *memRepo) Create(_ context.Context, a *Appointment) error {
	a.ID = uuid.New()
	m.put(a)
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("Appointment does not exist.")
	}
	cp := *a
	return &cp, nil
}

func (m *memRepo) Save(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[a.ID]
	if !ok {
		return apperrors.NewNotFoundError("Appointment does not exist.")
	}
	row.Status = a.Status
	row.Counter = a.Counter
	row.UpdatedBy = a.UpdatedBy
	return nil
}

func (m *memRepo) MaxCounter(_ context.Context, p Partition) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	maxCounter := 0
	for _, a := range m.rows {
		if a.InQueue() && a.Partition() == p && a.Counter > maxCounter {
			maxCounter = a.Counter
		}
	}
	return maxCounter, nil
}

func (m *memRepo) MinCounter(_ context.Context, p Partition) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	minCounter := 0
	for _, a := range m.rows {
		if a.InQueue() && a.Partition() == p && (minCounter == 0 || a.Counter < minCounter) {
			minCounter = a.Counter
		}
	}
	return minCounter, nil
}

func (m *memRepo) ShiftCounters(_ context.Context, p Partition, after int, before *int, delta int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, a := range m.rows {
		if !a.InQueue() || a.Partition() != p || a.Counter <= after {
			continue
		}
		if before != nil && a.Counter >= *before {
			continue
		}
		a.Counter += delta
		n++
	}
	return n, nil
}

func (m *memRepo) ExistsActive(_ context.Context, userID string, p Partition) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.Status == StatusActive && a.Partition() == p && a.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) Overlaps(_ context.Context, categoryID uuid.UUID, start, end time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.CategoryID != categoryID || a.Status != StatusActive || !a.IsScheduled {
			continue
		}
		if a.ScheduledTime.Before(end) && a.ScheduledEndTime.After(start) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) ActiveBookings(_ context.Context, categoryID uuid.UUID, from, to time.Time) ([]organization.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []organization.Booking
	for _, a := range m.rows {
		if a.CategoryID != categoryID || a.Status != StatusActive || !a.IsScheduled {
			continue
		}
		if a.ScheduledTime.Before(to) && a.ScheduledEndTime.After(from) {
			out = append(out, organization.Booking{Start: *a.ScheduledTime, End: *a.ScheduledEndTime})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (m *memRepo) List(_ context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cats := make(map[uuid.UUID]bool)
	for _, id := range f.CategoryIDs {
		cats[id] = true
	}
	var out []*Appointment
	for _, a := range m.rows {
		if f.UserID != "" && a.UserID != f.UserID {
			continue
		}
		if f.Scope == ScopeScheduled && !a.IsScheduled || f.Scope == ScopeUnscheduled && a.IsScheduled {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if len(cats) > 0 && !cats[a.CategoryID] {
			continue
		}
		if f.RestrictToGroups && !sharesGroup(m.groups[a.CategoryID], f.Groups) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		switch f.Scope {
		case ScopeUnscheduled:
			return out[i].Counter < out[j].Counter
		case ScopeScheduled:
			return out[i].ScheduledTime.Before(*out[j].ScheduledTime)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	total := len(out)
	if offset >= total {
		return []*Appointment{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

func sharesGroup(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// memDirectory serves organizations and categories from maps.
type memDirectory struct {
	orgs map[uuid.UUID]*organization.Organization
	cats map[uuid.UUID]*organization.Category
}

func newMemDirectory() *memDirectory {
	return &memDirectory{
		orgs: make(map[uuid.UUID]*organization.Organization),
		cats: make(map[uuid.UUID]*organization.Category),
	}
}

func (d *memDirectory) GetOrganization(_ context.Context, id uuid.UUID) (*organization.Organization, error) {
	o, ok := d.orgs[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("organization not found")
	}
	return o, nil
}

func (d *memDirectory) GetCategory(_ context.Context, id uuid.UUID) (*organization.Category, error) {
	c, ok := d.cats[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("category not found")
	}
	return c, nil
}
