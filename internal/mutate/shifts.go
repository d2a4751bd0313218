package mutate

import (
	"sort"

	"github.com/vbonduro/washpos/internal/domain"
)

// PairShifts groups entries by employee and pairs each clock-in with the next
// clock-out in chronological order. A clock-in without a clock-out yields an
// open shift; a clock-out without a preceding clock-in is skipped. Shifts are
// ordered by employee, then date and time.
func PairShifts(entries []domain.TimeEntry) []domain.Shift {
	byEmployee := make(map[string][]domain.TimeEntry)
	var names []string
	for _, e := range sortedEntries(entries) {
		if _, ok := byEmployee[e.EmployeeName]; !ok {
			names = append(names, e.EmployeeName)
		}
		byEmployee[e.EmployeeName] = append(byEmployee[e.EmployeeName], e)
	}
	sort.Strings(names)

	var shifts []domain.Shift
	for _, name := range names {
		var current *domain.Shift
		for _, e := range byEmployee[name] {
			switch e.Action {
			case domain.ActionIn:
				if current != nil {
					shifts = append(shifts, *current)
				}
				current = &domain.Shift{EmployeeName: name, Date: e.Date, ClockIn: e}
			case domain.ActionOut:
				if current == nil {
					continue
				}
				out := e
				current.ClockOut = &out
				shifts = append(shifts, *current)
				current = nil
			}
		}
		if current != nil {
			shifts = append(shifts, *current)
		}
	}
	return shifts
}

// sortedEntries returns a chronologically ordered copy. Date and Time are
// fixed-width, so lexical order is chronological; the original order breaks ties.
func sortedEntries(entries []domain.TimeEntry) []domain.TimeEntry {
	out := make([]domain.TimeEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	return out
}
