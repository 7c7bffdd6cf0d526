package domain

import (
	"sort"
	"time"
)

// Overlaps reports whether the half-open windows [aStart,aEnd) and
// [bStart,bEnd) intersect. Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// FreeUnits returns the rentable units with no active booking overlapping
// [start,end), ordered by ascending id.
func FreeUnits(units []Unit, booked []UnitAssignment, start, end time.Time) []Unit {
	taken := make(map[int32]bool)
	for _, b := range booked {
		if b.Active && Overlaps(b.StartTime, b.EndTime, start, end) {
			taken[b.UnitID] = true
		}
	}

	var free []Unit
	for _, u := range units {
		if u.Rentable() && !taken[u.ID] {
			free = append(free, u)
		}
	}
	sort.Slice(free, func(i, j int) bool { return free[i].ID < free[j].ID })
	return free
}

// SelectFreeUnit picks the lowest-id free unit for [start,end).
func SelectFreeUnit(units []Unit, booked []UnitAssignment, start, end time.Time) (*Unit, bool) {
	free := FreeUnits(units, booked, start, end)
	if len(free) == 0 {
		return nil, false
	}
	u := free[0]
	return &u, true
}
