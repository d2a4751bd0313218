package mutate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vbonduro/washpos/internal/domain"
)

// ClockIn appends an unsaved clock-in for employee at the given time.
func ClockIn(entries []domain.TimeEntry, employee string, at time.Time) ([]domain.TimeEntry, domain.TimeEntry, error) {
	return clock(entries, employee, domain.ActionIn, at)
}

// ClockOut appends an unsaved clock-out for employee. The employee must have
// an open clock-in on the same date.
func ClockOut(entries []domain.TimeEntry, employee string, at time.Time) ([]domain.TimeEntry, domain.TimeEntry, error) {
	return clock(entries, employee, domain.ActionOut, at)
}

func clock(entries []domain.TimeEntry, employee string, action domain.Action, at time.Time) ([]domain.TimeEntry, domain.TimeEntry, error) {
	employee = strings.TrimSpace(employee)
	if employee == "" {
		return nil, domain.TimeEntry{}, domain.Invalid("Please select an employee")
	}

	date := at.Format(domain.DateLayout)
	entry := domain.TimeEntry{
		ID:           entryID(entries, employee, date, action),
		Date:         date,
		Time:         at.Format(domain.TimeLayout),
		Action:       action,
		EmployeeName: employee,
	}

	open := OpenClockIn(entries, employee, entry.Date)
	switch {
	case action == domain.ActionIn && open != nil:
		return nil, domain.TimeEntry{}, domain.Invalid(fmt.Sprintf("%s is already clocked in", employee))
	case action == domain.ActionOut && open == nil:
		return nil, domain.TimeEntry{}, domain.Invalid(fmt.Sprintf("%s is not clocked in", employee))
	}

	return AppendTimeEntry(entries, entry), entry, nil
}

// entryNamespace scopes the name-based UUIDs of time entries.
var entryNamespace = uuid.MustParse("5b0c8a44-3f1e-4d6a-9f43-2a7d3c1e9b60")

// entryID names the next entry of action for employee on date. It depends
// only on the entries already stored, so an attempt that stored nothing
// (a live call whose answer was lost) gets the same ID when repeated.
func entryID(entries []domain.TimeEntry, employee, date string, action domain.Action) string {
	n := 0
	for _, e := range entries {
		if e.EmployeeName == employee && e.Date == date && e.Action == action {
			n++
		}
	}
	name := strings.Join([]string{employee, date, string(action), strconv.Itoa(n)}, "\x00")
	return uuid.NewSHA1(entryNamespace, []byte(name)).String()
}

// AppendTimeEntry returns a copy of entries with entry appended.
func AppendTimeEntry(entries []domain.TimeEntry, entry domain.TimeEntry) []domain.TimeEntry {
	out := make([]domain.TimeEntry, 0, len(entries)+1)
	out = append(out, entries...)
	return append(out, entry)
}

// OpenClockIn returns the latest clock-in for employee on date that has no
// clock-out after it, or nil.
func OpenClockIn(entries []domain.TimeEntry, employee, date string) *domain.TimeEntry {
	var open *domain.TimeEntry
	for _, e := range sortedEntries(entries) {
		if e.EmployeeName != employee || e.Date != date {
			continue
		}
		if e.Action == domain.ActionIn {
			e := e
			open = &e
		} else {
			open = nil
		}
	}
	return open
}

// SetServerID returns a copy of entries with serverID recorded on the
// entries whose IDs are listed.
func SetServerID(entries []domain.TimeEntry, ids []string, serverID int64) []domain.TimeEntry {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]domain.TimeEntry, len(entries))
	copy(out, entries)
	for i := range out {
		if want[out[i].ID] {
			sid := serverID
			out[i].ServerID = &sid
		}
	}
	return out
}
