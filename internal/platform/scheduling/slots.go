package scheduling

import (
	"fmt"
	"sort"
)

// Slot is a bookable [start, end] pair rendered as HH:MM strings.
type Slot [2]string

func (s Slot) Start() string { return s[0] }
func (s Slot) End() string   { return s[1] }

type block struct{ start, end int }

// GenerateTimeSlots tiles the opening range minus the break ranges with
// fixed-length slots of intervalMinutes. Breaks are sorted before they are
// subtracted, so overlapping or unordered breaks are fine. Each usable block
// is tiled from its own start and any remainder shorter than the interval is
// dropped, so a slot never spans a break. An empty opening range yields no
// slots.
func GenerateTimeSlots(opening Range, breaks []Range, intervalMinutes int) ([]Slot, error) {
	if len(opening) == 0 {
		return []Slot{}, nil
	}
	if intervalMinutes <= 0 {
		return nil, ErrInvalidInterval
	}
	openAt, closeAt, err := opening.Bounds()
	if err != nil {
		return nil, fmt.Errorf("opening range: %w", err)
	}

	parsed := make([]block, 0, len(breaks))
	for _, br := range breaks {
		s, e, err := br.Bounds()
		if err != nil {
			return nil, fmt.Errorf("break range: %w", err)
		}
		parsed = append(parsed, block{s, e})
	}
	sort.Slice(parsed, func(i, j int) bool { return parsed[i].start < parsed[j].start })

	slots := []Slot{}
	for _, b := range usableBlocks(openAt, closeAt, parsed) {
		for t := b.start; t+intervalMinutes <= b.end; t += intervalMinutes {
			slots = append(slots, Slot{FormatClock(t), FormatClock(t + intervalMinutes)})
		}
	}
	return slots, nil
}

// usableBlocks subtracts sorted breaks from [openAt, closeAt).
func usableBlocks(openAt, closeAt int, breaks []block) []block {
	var blocks []block
	cursor := openAt
	for _, br := range breaks {
		end := br.start
		if end > closeAt {
			end = closeAt
		}
		if end > cursor {
			blocks = append(blocks, block{cursor, end})
		}
		if br.end > cursor {
			cursor = br.end
		}
	}
	if cursor < closeAt {
		blocks = append(blocks, block{cursor, closeAt})
	}
	return blocks
}

// DaySlots generates the slots for one weekday of a weekly configuration.
// Only the first opening range of the day is used.
func DaySlots(opening, breaks WeeklyHours, weekday string, intervalMinutes int) ([]Slot, error) {
	ranges := opening.Day(weekday)
	if len(ranges) == 0 {
		return []Slot{}, nil
	}
	return GenerateTimeSlots(ranges[0], breaks.Day(weekday), intervalMinutes)
}

// SlotStarts returns the start times of slots in order.
func SlotStarts(slots []Slot) []string {
	starts := make([]string, len(slots))
	for i, s := range slots {
		starts[i] = s.Start()
	}
	return starts
}
