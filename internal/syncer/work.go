package syncer

import (
	"context"

	"github.com/vbonduro/washpos/internal/domain"
	"github.com/vbonduro/washpos/internal/mutate"
	"github.com/vbonduro/washpos/internal/remote"
	"github.com/vbonduro/washpos/internal/store"
)

// work is the unsaved subset of every collection at the start of a run.
type work struct {
	timesheets []remote.Timesheet
	sales      []domain.SalesRecord
	items      []domain.InventoryItem
	logs       []domain.InventoryUpdateLog
}

func (w *work) empty() bool {
	return len(w.timesheets) == 0 && len(w.sales) == 0 && len(w.items) == 0 && len(w.logs) == 0
}

func (s *Syncer) pending(ctx context.Context) (*work, error) {
	entries, _, err := store.LoadList[domain.TimeEntry](ctx, s.collections, store.KeyTimeEntries)
	if err != nil {
		return nil, err
	}
	sales, _, err := store.LoadList[domain.SalesRecord](ctx, s.collections, store.KeySales)
	if err != nil {
		return nil, err
	}
	items, _, err := store.LoadList[domain.InventoryItem](ctx, s.collections, store.KeyInventory)
	if err != nil {
		return nil, err
	}
	logs, _, err := store.LoadList[domain.InventoryUpdateLog](ctx, s.collections, store.KeyInventoryLogs)
	if err != nil {
		return nil, err
	}

	return &work{
		timesheets: Timesheets(entries),
		sales:      mutate.Unsaved(sales),
		items:      mutate.Unsaved(items),
		logs:       mutate.Unsaved(logs),
	}, nil
}

// Timesheets builds one timesheet per shift that has an unsaved entry.
// A shift whose clock-in the server already knows is sent as a clock-out
// against that server id. A saved clock-in without a server id cannot be
// targeted, so its shift is skipped and its clock-out stays unsaved.
// Unsaved clock-outs with no clock-in before them cannot form a timesheet
// and are left for the operator to correct.
func Timesheets(entries []domain.TimeEntry) []remote.Timesheet {
	var out []remote.Timesheet
	for _, shift := range mutate.PairShifts(entries) {
		in, clockOut := shift.ClockIn, shift.ClockOut
		outUnsaved := clockOut != nil && !clockOut.IsSaved
		if in.IsSaved && !outUnsaved {
			continue
		}
		if in.IsSaved && in.ServerID == nil {
			continue
		}

		ts := remote.Timesheet{
			EmployeeName: shift.EmployeeName,
			Date:         shift.Date,
			ClockIn:      in.Time,
		}
		if clockOut != nil {
			ts.ClockOut = clockOut.Time
		}
		if in.IsSaved {
			ts.ServerID = in.ServerID
			ts.EntryIDs = []string{clockOut.ID}
		} else {
			ts.EntryIDs = []string{in.ID}
			if outUnsaved {
				ts.EntryIDs = append(ts.EntryIDs, clockOut.ID)
			}
		}
		out = append(out, ts)
	}
	return out
}
