package service

import (
	"context"

	"github.com/vbonduro/washpos/internal/domain"
	"github.com/vbonduro/washpos/internal/mutate"
	"github.com/vbonduro/washpos/internal/remote"
	"github.com/vbonduro/washpos/internal/store"
)

// ClockIn records a clock-in. Online, the server must accept it before the
// entry is stored, and a rejected or failed call stores nothing. Offline,
// the entry is stored unsaved for the next sync.
func (s *POSService) ClockIn(ctx context.Context, employee string) (*domain.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, _, err := store.LoadList[domain.TimeEntry](ctx, s.collections, store.KeyTimeEntries)
	if err != nil {
		return nil, err
	}
	_, entry, err := mutate.ClockIn(entries, trimmed(employee), s.now())
	if err != nil {
		return nil, err
	}

	if s.conn.Online() {
		key, err := s.attemptKey(ctx, entry)
		if err != nil {
			return nil, err
		}
		rec, err := s.remote.ClockIn(ctx, remote.ClockRequest{
			IdempotencyKey: key,
			EmployeeName:   entry.EmployeeName,
			Date:           entry.Date,
			Time:           entry.Time,
		})
		s.conn.Observe(err)
		if err != nil {
			s.attemptFailed(ctx, entry, err)
			return nil, err
		}
		entry.IsSaved = true
		entry.ServerID = &rec.ID
		// A repeated attempt is answered with the row the first one created.
		if rec.ClockIn != "" {
			entry.Time = rec.ClockIn
		}
	}

	return s.appendEntry(ctx, entry)
}

// ClockOut records a clock-out against the employee's open clock-in. When
// that clock-in is known to the server the clock-out is sent live;
// otherwise it waits for the next sync together with its clock-in.
func (s *POSService) ClockOut(ctx context.Context, employee string) (*domain.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, _, err := store.LoadList[domain.TimeEntry](ctx, s.collections, store.KeyTimeEntries)
	if err != nil {
		return nil, err
	}
	_, entry, err := mutate.ClockOut(entries, trimmed(employee), s.now())
	if err != nil {
		return nil, err
	}
	open := mutate.OpenClockIn(entries, entry.EmployeeName, entry.Date)

	if s.conn.Online() && open.IsSaved && open.ServerID != nil {
		key, err := s.attemptKey(ctx, entry)
		if err != nil {
			return nil, err
		}
		rec, err := s.remote.ClockOut(ctx, *open.ServerID, remote.ClockRequest{
			IdempotencyKey: key,
			Date:           entry.Date,
			Time:           entry.Time,
		})
		s.conn.Observe(err)
		if err != nil {
			s.attemptFailed(ctx, entry, err)
			return nil, err
		}
		entry.IsSaved = true
		entry.ServerID = open.ServerID
		if rec.ClockOut != "" {
			entry.Time = rec.ClockOut
		}
	}

	return s.appendEntry(ctx, entry)
}

func (s *POSService) appendEntry(ctx context.Context, entry domain.TimeEntry) (*domain.TimeEntry, error) {
	err := modify(ctx, s.collections, store.KeyTimeEntries, func(entries []domain.TimeEntry) ([]domain.TimeEntry, error) {
		return mutate.AppendTimeEntry(entries, entry), nil
	})
	if err != nil {
		return nil, err
	}
	if entry.IsSaved {
		if err := s.outbox.MarkDelivered(ctx, store.KindTimeEntry, []string{entry.ID}); err != nil {
			s.logger.Warn("failed to record delivery", "id", entry.ID, "error", err)
		}
	} else {
		s.enqueue(ctx, store.KindTimeEntry, &entry)
	}
	s.logger.Info("time entry recorded", "employee", entry.EmployeeName, "action", entry.Action, "saved", entry.IsSaved)
	return &entry, nil
}

// attemptKey returns the idempotency key for a live clock call. The entry
// is enqueued before the call, so a repeated attempt for the same entry, or
// the sync of it after falling back offline, carries the same key.
func (s *POSService) attemptKey(ctx context.Context, entry domain.TimeEntry) (string, error) {
	e, err := s.outbox.Enqueue(ctx, store.KindTimeEntry, entry.ID, entry.Version())
	if err != nil {
		return "", err
	}
	return e.IdempotencyKey, nil
}

func (s *POSService) attemptFailed(ctx context.Context, entry domain.TimeEntry, cause error) {
	s.logger.Warn("live clock call failed", "employee", entry.EmployeeName, "action", entry.Action, "error", cause)
	if err := s.outbox.MarkFailed(ctx, store.KindTimeEntry, []string{entry.ID}, cause.Error()); err != nil {
		s.logger.Warn("failed to record delivery failure", "id", entry.ID, "error", err)
	}
}

func (s *POSService) TimeEntries(ctx context.Context) ([]domain.TimeEntry, error) {
	entries, _, err := store.LoadList[domain.TimeEntry](ctx, s.collections, store.KeyTimeEntries)
	return entries, err
}

// Shifts pairs time entries into shifts, optionally for one employee.
func (s *POSService) Shifts(ctx context.Context, employee string) ([]domain.Shift, error) {
	entries, err := s.TimeEntries(ctx)
	if err != nil {
		return nil, err
	}
	shifts := mutate.PairShifts(entries)
	if employee == "" {
		return shifts, nil
	}
	out := []domain.Shift{}
	for _, sh := range shifts {
		if sh.EmployeeName == employee {
			out = append(out, sh)
		}
	}
	return out, nil
}

// ServerTimesheets lists the timesheets the server holds, optionally for one
// employee. It needs the server, so it fails offline.
func (s *POSService) ServerTimesheets(ctx context.Context, employee string) ([]remote.TimesheetRecord, error) {
	if !s.conn.Online() {
		return nil, domain.ErrOffline
	}
	recs, err := s.remote.Timesheets(ctx, trimmed(employee))
	s.conn.Observe(err)
	if err != nil {
		return nil, err
	}
	return recs, nil
}
