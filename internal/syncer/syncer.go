// Package syncer pushes unsaved local entities to the remote server.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/vbonduro/washpos/internal/domain"
	"github.com/vbonduro/washpos/internal/events"
	"github.com/vbonduro/washpos/internal/mutate"
	"github.com/vbonduro/washpos/internal/remote"
	"github.com/vbonduro/washpos/internal/store"
)

// ErrInProgress is returned when Sync is called while another sync runs.
var ErrInProgress = errors.New("sync already in progress")

const maxSaveAttempts = 5

type Collections interface {
	store.Loader
	SaveAll(ctx context.Context, writes ...store.Write) ([]int64, error)
}

type Outbox interface {
	Enqueue(ctx context.Context, kind store.Kind, entityID, version string) (*store.OutboxEntry, error)
	MarkDelivered(ctx context.Context, kind store.Kind, entityIDs []string) error
	MarkFailed(ctx context.Context, kind store.Kind, entityIDs []string, reason string) error
}

type Remote interface {
	Sync(ctx context.Context, req remote.SyncRequest) (*remote.SyncResponse, error)
	BulkSales(ctx context.Context, req remote.BulkSalesRequest) (*remote.BulkSalesResponse, error)
	Employees(ctx context.Context) ([]string, error)
}

type Connectivity interface {
	Online() bool
	Observe(err error)
}

// Result summarizes one sync run. Counts are entities flipped to saved.
type Result struct {
	NothingToSync      bool `json:"nothingToSync"`
	TimeEntries        int  `json:"timeEntries"`
	Sales              int  `json:"sales"`
	InventoryItems     int  `json:"inventoryItems"`
	InventoryLogs      int  `json:"inventoryLogs"`
	Duplicates         int  `json:"duplicates"`
	EmployeesRefreshed bool `json:"employeesRefreshed"`
}

// Total is the number of entities saved by the run.
func (r *Result) Total() int {
	return r.TimeEntries + r.Sales + r.InventoryItems + r.InventoryLogs
}

// StepError reports which step of a sync failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("sync %s: %v", e.Step, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }

type Syncer struct {
	collections Collections
	outbox      Outbox
	remote      Remote
	conn        Connectivity
	events      events.Publisher
	logger      *slog.Logger
	running     atomic.Bool
}

func New(collections Collections, outbox Outbox, rc Remote, conn Connectivity, pub events.Publisher, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		collections: collections,
		outbox:      outbox,
		remote:      rc,
		conn:        conn,
		events:      pub,
		logger:      logger,
	}
}

// Sync pushes time entries, then sales, then inventory. A failing step stops
// the run; steps that already succeeded stay saved.
func (s *Syncer) Sync(ctx context.Context) (*Result, error) {
	if !s.conn.Online() {
		return nil, domain.ErrOffline
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrInProgress
	}
	defer s.running.Store(false)

	pending, err := s.pending(ctx)
	if err != nil {
		return nil, err
	}
	res := &Result{}
	if pending.empty() {
		res.NothingToSync = true
		s.publish(events.SyncNothing, "Nothing to sync", res)
		return res, nil
	}

	s.logger.Info("sync started",
		"timesheets", len(pending.timesheets),
		"sales", len(pending.sales),
		"inventory_items", len(pending.items),
		"inventory_logs", len(pending.logs))

	steps := []struct {
		name string
		run  func(context.Context, *work, *Result) error
	}{
		{"timesheets", s.syncTimesheets},
		{"sales", s.syncSales},
		{"inventory", s.syncInventory},
	}
	for _, step := range steps {
		if err := step.run(ctx, pending, res); err != nil {
			err = &StepError{Step: step.name, Err: err}
			s.logger.Error("sync failed", "step", step.name, "error", err)
			s.publish(events.SyncFailed, err.Error(), res)
			return res, err
		}
	}

	if err := s.refreshEmployees(ctx); err != nil {
		s.logger.Warn("failed to refresh employee list", "error", err)
	} else {
		res.EmployeesRefreshed = true
	}

	s.logger.Info("sync completed", "saved", res.Total(), "duplicates", res.Duplicates)
	s.publish(events.SyncCompleted, fmt.Sprintf("Synced %d records", res.Total()), res)
	return res, nil
}

// Pending reports whether any collection holds an entity that Sync would send.
func (s *Syncer) Pending(ctx context.Context) (bool, error) {
	w, err := s.pending(ctx)
	if err != nil {
		return false, err
	}
	return !w.empty(), nil
}

func (s *Syncer) publish(typ, msg string, res *Result) {
	if s.events == nil {
		return
	}
	s.events.Publish(events.Event{Type: typ, Message: msg, Data: res})
}

func (s *Syncer) syncTimesheets(ctx context.Context, w *work, res *Result) error {
	if len(w.timesheets) == 0 {
		return nil
	}
	ids, versions, err := s.enqueueTimesheets(ctx, w.timesheets)
	if err != nil {
		return err
	}

	resp, err := s.remote.Sync(ctx, remote.SyncRequest{Timesheets: w.timesheets})
	s.conn.Observe(err)
	if err != nil {
		s.fail(ctx, store.KindTimeEntry, ids, err)
		return err
	}

	serverIDs := make(map[string]int64)
	for _, ack := range resp.Timesheets {
		serverIDs[ack.IdempotencyKey] = ack.ServerID
		if ack.Duplicate {
			res.Duplicates++
		}
	}

	n, err := updateList(ctx, s.collections, store.KeyTimeEntries, func(entries []domain.TimeEntry) []domain.TimeEntry {
		for _, ts := range w.timesheets {
			if sid, ok := serverIDs[ts.IdempotencyKey]; ok && sid != 0 {
				entries = mutate.SetServerID(entries, ts.EntryIDs, sid)
			}
		}
		return entries
	}, versions)
	if err != nil {
		return err
	}
	res.TimeEntries = n
	return s.delivered(ctx, store.KindTimeEntry, ids)
}

func (s *Syncer) syncSales(ctx context.Context, w *work, res *Result) error {
	if len(w.sales) == 0 {
		return nil
	}
	req := remote.BulkSalesRequest{}
	ids := make([]string, 0, len(w.sales))
	for _, sale := range w.sales {
		e, err := s.outbox.Enqueue(ctx, store.KindSale, sale.ID, (&sale).Version())
		if err != nil {
			return err
		}
		req.Sales = append(req.Sales, remote.Sale{IdempotencyKey: e.IdempotencyKey, SalesRecord: sale})
		ids = append(ids, sale.ID)
	}

	resp, err := s.remote.BulkSales(ctx, req)
	s.conn.Observe(err)
	if err != nil {
		s.fail(ctx, store.KindSale, ids, err)
		return err
	}
	res.Duplicates += countDuplicates(resp.Sales)

	n, err := updateList[domain.SalesRecord](ctx, s.collections, store.KeySales, nil, mutate.Versions(w.sales))
	if err != nil {
		return err
	}
	res.Sales = n
	return s.delivered(ctx, store.KindSale, ids)
}

func (s *Syncer) syncInventory(ctx context.Context, w *work, res *Result) error {
	if len(w.items) == 0 && len(w.logs) == 0 {
		return nil
	}
	req := remote.SyncRequest{}
	itemIDs := make([]string, 0, len(w.items))
	for _, it := range w.items {
		e, err := s.outbox.Enqueue(ctx, store.KindInventoryItem, it.ID, (&it).Version())
		if err != nil {
			return err
		}
		req.Inventory = append(req.Inventory, remote.InventoryItem{IdempotencyKey: e.IdempotencyKey, InventoryItem: it})
		itemIDs = append(itemIDs, it.ID)
	}
	logIDs := make([]string, 0, len(w.logs))
	for _, l := range w.logs {
		e, err := s.outbox.Enqueue(ctx, store.KindInventoryLog, l.ID, (&l).Version())
		if err != nil {
			return err
		}
		req.InventoryLogs = append(req.InventoryLogs, remote.InventoryLog{IdempotencyKey: e.IdempotencyKey, InventoryUpdateLog: l})
		logIDs = append(logIDs, l.ID)
	}

	resp, err := s.remote.Sync(ctx, req)
	s.conn.Observe(err)
	if err != nil {
		s.fail(ctx, store.KindInventoryItem, itemIDs, err)
		s.fail(ctx, store.KindInventoryLog, logIDs, err)
		return err
	}
	res.Duplicates += countDuplicates(resp.Inventory) + countDuplicates(resp.InventoryLogs)

	itemVersions := mutate.Versions(w.items)
	logVersions := mutate.Versions(w.logs)
	var items, logs int
	err = retryConflict(ctx, func() error {
		curItems, itemRev, err := store.LoadList[domain.InventoryItem](ctx, s.collections, store.KeyInventory)
		if err != nil {
			return err
		}
		curLogs, logRev, err := store.LoadList[domain.InventoryUpdateLog](ctx, s.collections, store.KeyInventoryLogs)
		if err != nil {
			return err
		}
		curItems, items = mutate.MarkSaved(curItems, itemVersions)
		curLogs, logs = mutate.MarkSaved(curLogs, logVersions)
		_, err = s.collections.SaveAll(ctx,
			store.Write{Key: store.KeyInventory, Value: curItems, Rev: itemRev},
			store.Write{Key: store.KeyInventoryLogs, Value: curLogs, Rev: logRev},
		)
		return err
	})
	if err != nil {
		return err
	}
	res.InventoryItems = items
	res.InventoryLogs = logs
	if err := s.delivered(ctx, store.KindInventoryItem, itemIDs); err != nil {
		return err
	}
	return s.delivered(ctx, store.KindInventoryLog, logIDs)
}

func (s *Syncer) refreshEmployees(ctx context.Context) error {
	names, err := s.remote.Employees(ctx)
	s.conn.Observe(err)
	if err != nil {
		return err
	}
	if names == nil {
		names = []string{}
	}
	return retryConflict(ctx, func() error {
		var current []string
		rev, err := s.collections.Load(ctx, store.KeyEmployees, &current)
		if err != nil {
			return err
		}
		_, err = s.collections.SaveAll(ctx, store.Write{Key: store.KeyEmployees, Value: names, Rev: rev})
		return err
	})
}

// enqueueTimesheets ensures every entry of every timesheet has an outbox row
// and stamps each timesheet with the key of its first entry.
func (s *Syncer) enqueueTimesheets(ctx context.Context, timesheets []remote.Timesheet) ([]string, map[string]string, error) {
	var ids []string
	versions := make(map[string]string)
	for i := range timesheets {
		ts := &timesheets[i]
		for j, id := range ts.EntryIDs {
			// A time entry's version is its ID.
			e, err := s.outbox.Enqueue(ctx, store.KindTimeEntry, id, id)
			if err != nil {
				return nil, nil, err
			}
			if j == 0 {
				ts.IdempotencyKey = e.IdempotencyKey
			}
			ids = append(ids, id)
			versions[id] = id
		}
	}
	return ids, versions, nil
}

func (s *Syncer) fail(ctx context.Context, kind store.Kind, ids []string, cause error) {
	if err := s.outbox.MarkFailed(ctx, kind, ids, cause.Error()); err != nil {
		s.logger.Error("failed to record delivery failure", "kind", kind, "error", err)
	}
}

func (s *Syncer) delivered(ctx context.Context, kind store.Kind, ids []string) error {
	if err := s.outbox.MarkDelivered(ctx, kind, ids); err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}

// updateList reloads the collection under key, applies fn, marks the sent
// versions saved and writes it back, retrying when another writer got there
// first. It returns how many entities were marked saved.
func updateList[T any, PT mutate.Savable[T]](ctx context.Context, c Collections, key string, fn func([]T) []T, sent map[string]string) (int, error) {
	var n int
	err := retryConflict(ctx, func() error {
		items, rev, err := store.LoadList[T](ctx, c, key)
		if err != nil {
			return err
		}
		if fn != nil {
			items = fn(items)
		}
		items, n = mutate.MarkSaved[T, PT](items, sent)
		_, err = c.SaveAll(ctx, store.Write{Key: key, Value: items, Rev: rev})
		return err
	})
	return n, err
}

func retryConflict(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		if err = fn(); !errors.Is(err, domain.ErrConflict) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

func countDuplicates(acks []remote.Ack) int {
	n := 0
	for _, a := range acks {
		if a.Duplicate {
			n++
		}
	}
	return n
}
