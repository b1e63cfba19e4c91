package appointment

import (
	"context"
	"fmt"
)

// Sequencer keeps the counters of each partition contiguous and ordered,
// 1..N with no gaps. It does not open transactions or take locks itself;
// callers run it inside one transaction holding the partition lock.
type Sequencer struct {
	store QueueStore
}

func NewSequencer(store QueueStore) *Sequencer {
	return &Sequencer{store: store}
}

// Next returns the counter for an appointment joining the back of p.
func (s *Sequencer) Next(ctx context.Context, p Partition) (int, error) {
	last, err := s.store.MaxCounter(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("read last counter: %w", err)
	}
	return last + 1, nil
}

// CloseGap pulls forward every appointment queued behind a removed counter.
func (s *Sequencer) CloseGap(ctx context.Context, p Partition, removed int) error {
	_, err := s.ShiftRange(ctx, p, removed, nil, false)
	return err
}

// ShiftRange moves by one every counter c of p with reference < c < limit
// (no upper bound when limit is nil), up when increment is set and down
// otherwise.
func (s *Sequencer) ShiftRange(ctx context.Context, p Partition, reference int, limit *int, increment bool) (int64, error) {
	delta := -1
	if increment {
		delta = 1
	}
	n, err := s.store.ShiftCounters(ctx, p, reference, limit, delta)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Move places current directly behind previous, or at the front of the
// queue when previous is nil. Both must be queued in the same partition.
// current is parked as inactive while the others shift so that none of the
// range updates touch it, then re-activated with its new counter.
func (s *Sequencer) Move(ctx context.Context, current, previous *Appointment) error {
	p := current.Partition()

	first, err := s.store.MinCounter(ctx, p)
	if err != nil {
		return fmt.Errorf("read first counter: %w", err)
	}

	current.Status = StatusInactive
	if err := s.store.Save(ctx, current); err != nil {
		return err
	}

	switch {
	case previous == nil:
		// first was read with current still queued, so it is never above
		// current's counter.
		front := first - 1
		if front < 0 {
			front = 0
		}
		limit := current.Counter
		if _, err := s.ShiftRange(ctx, p, front, &limit, true); err != nil {
			return err
		}
		current.Counter = front + 1

	case current.Counter < previous.Counter:
		limit := previous.Counter + 1
		if _, err := s.ShiftRange(ctx, p, current.Counter, &limit, false); err != nil {
			return err
		}
		if current.Counter, err = s.counterAfter(ctx, previous); err != nil {
			return err
		}

	case current.Counter > previous.Counter:
		limit := current.Counter
		if _, err := s.ShiftRange(ctx, p, previous.Counter, &limit, true); err != nil {
			return err
		}
		if current.Counter, err = s.counterAfter(ctx, previous); err != nil {
			return err
		}
	}

	current.Status = StatusActive
	return s.store.Save(ctx, current)
}

// counterAfter re-reads previous, whose counter may have shifted, and
// returns the position right behind it.
func (s *Sequencer) counterAfter(ctx context.Context, previous *Appointment) (int, error) {
	fresh, err := s.store.GetByID(ctx, previous.ID)
	if err != nil {
		return 0, err
	}
	previous.Counter = fresh.Counter
	return fresh.Counter + 1, nil
}
