package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vbonduro/washpos/internal/domain"
	"github.com/vbonduro/washpos/internal/mutate"
	"github.com/vbonduro/washpos/internal/remote"
	"github.com/vbonduro/washpos/internal/store"
	"github.com/vbonduro/washpos/internal/syncer"
)

const maxSaveAttempts = 5

// collectionRepository is the subset of store.CollectionStore that POSService requires.
type collectionRepository interface {
	store.Loader
	SaveAll(ctx context.Context, writes ...store.Write) ([]int64, error)
	LoadSnapshot(ctx context.Context) (*store.Snapshot, error)
}

// outboxRepository is the subset of store.OutboxStore that POSService requires.
type outboxRepository interface {
	Enqueue(ctx context.Context, kind store.Kind, entityID, version string) (*store.OutboxEntry, error)
	MarkDelivered(ctx context.Context, kind store.Kind, entityIDs []string) error
	MarkFailed(ctx context.Context, kind store.Kind, entityIDs []string, reason string) error
	ListByStatus(ctx context.Context, kind store.Kind, status store.Status) ([]*store.OutboxEntry, error)
	Counts(ctx context.Context) (map[store.Status]int, error)
}

// remoteAPI is the subset of remote.Client used for live calls.
type remoteAPI interface {
	ClockIn(ctx context.Context, req remote.ClockRequest) (*remote.TimesheetRecord, error)
	ClockOut(ctx context.Context, id int64, req remote.ClockRequest) (*remote.TimesheetRecord, error)
	Timesheets(ctx context.Context, employee string) ([]remote.TimesheetRecord, error)
	Employees(ctx context.Context) ([]string, error)
	Login(ctx context.Context, username, password string) (string, error)
	CreateEmployee(ctx context.Context, token, name string) error
	RenameEmployee(ctx context.Context, token, oldName, newName string) error
	DeleteEmployee(ctx context.Context, token, name string) error
}

type connectivityMonitor interface {
	Online() bool
	Set(online bool)
	Observe(err error)
}

type syncDriver interface {
	Sync(ctx context.Context) (*syncer.Result, error)
}

// Credentials are the admin's username and password, exchanged for a
// server token on every admin action.
type Credentials struct {
	Username string
	Password string
}

// Status summarizes local state for the status endpoint and CLI.
type Status struct {
	Online   bool                 `json:"online"`
	Unsaved  map[string]int       `json:"unsaved"`
	Outbox   map[store.Status]int `json:"outbox"`
	Failures []Failure            `json:"failures"`
	Low      []string             `json:"lowStock"`
}

// Failure is an unsaved entity whose last delivery attempt failed.
type Failure struct {
	Kind      store.Kind `json:"kind"`
	EntityID  string     `json:"entityId"`
	Attempts  int        `json:"attempts"`
	LastError string     `json:"lastError"`
}

// POSService runs every point-of-sale operation against the local store
// and, where the operation is live, the remote server.
type POSService struct {
	collections collectionRepository
	outbox      outboxRepository
	remote      remoteAPI
	conn        connectivityMonitor
	syncer      syncDriver
	logger      *slog.Logger
	now         func() time.Time

	// mu serializes read-modify-write cycles within the process. Writers in
	// other processes are caught by the store's revision check.
	mu sync.Mutex
}

func NewPOSService(
	collections collectionRepository,
	outbox outboxRepository,
	rc remoteAPI,
	conn connectivityMonitor,
	sd syncDriver,
	logger *slog.Logger,
) *POSService {
	return &POSService{
		collections: collections,
		outbox:      outbox,
		remote:      rc,
		conn:        conn,
		syncer:      sd,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *POSService) Online() bool { return s.conn.Online() }

// SetOnline records an explicit connectivity signal.
func (s *POSService) SetOnline(online bool) { s.conn.Set(online) }

func (s *POSService) Sync(ctx context.Context) (*syncer.Result, error) {
	return s.syncer.Sync(ctx)
}

func (s *POSService) Status(ctx context.Context) (*Status, error) {
	snap, err := s.collections.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.outbox.Counts(ctx)
	if err != nil {
		return nil, err
	}
	st := &Status{
		Online: s.conn.Online(),
		Unsaved: map[string]int{
			store.KeyTimeEntries:   mutate.CountUnsaved(snap.TimeEntries),
			store.KeySales:         mutate.CountUnsaved(snap.Sales),
			store.KeyInventory:     mutate.CountUnsaved(snap.Inventory),
			store.KeyInventoryLogs: mutate.CountUnsaved(snap.InventoryLogs),
		},
		Outbox:   counts,
		Failures: []Failure{},
		Low:      []string{},
	}
	for _, it := range snap.Inventory {
		if !it.IsDeleted && it.Low() {
			st.Low = append(st.Low, it.Name)
		}
	}

	// Failed rows of entities that were never stored (a rejected live
	// clock call) or have since been saved are not reported.
	unsaved := map[store.Kind]map[string]string{
		store.KindTimeEntry:     mutate.Versions(mutate.Unsaved(snap.TimeEntries)),
		store.KindSale:          mutate.Versions(mutate.Unsaved(snap.Sales)),
		store.KindInventoryItem: mutate.Versions(mutate.Unsaved(snap.Inventory)),
		store.KindInventoryLog:  mutate.Versions(mutate.Unsaved(snap.InventoryLogs)),
	}
	for kind, versions := range unsaved {
		failed, err := s.outbox.ListByStatus(ctx, kind, store.StatusFailed)
		if err != nil {
			return nil, err
		}
		for _, e := range failed {
			if v, ok := versions[e.EntityID]; ok && v == e.Version {
				st.Failures = append(st.Failures, Failure{Kind: kind, EntityID: e.EntityID, Attempts: e.Attempts, LastError: e.LastError})
			}
		}
	}
	sort.Slice(st.Failures, func(i, j int) bool {
		if st.Failures[i].Kind != st.Failures[j].Kind {
			return st.Failures[i].Kind < st.Failures[j].Kind
		}
		return st.Failures[i].EntityID < st.Failures[j].EntityID
	})
	return st, nil
}

// enqueue records a new entity version in the outbox. A failure is not
// fatal: the entity is unsaved and the next sync enqueues it again.
func (s *POSService) enqueue(ctx context.Context, kind store.Kind, p interface {
	EntityID() string
	Version() string
}) {
	if _, err := s.outbox.Enqueue(ctx, kind, p.EntityID(), p.Version()); err != nil {
		s.logger.Warn("failed to enqueue", "kind", kind, "id", p.EntityID(), "error", err)
	}
}

// modify loads the collection under key, applies fn and saves the result,
// retrying from a fresh read when another writer saved first.
func modify[T any](ctx context.Context, c collectionRepository, key string, fn func([]T) ([]T, error)) error {
	return retryConflict(ctx, func() error {
		items, rev, err := store.LoadList[T](ctx, c, key)
		if err != nil {
			return err
		}
		out, err := fn(items)
		if err != nil {
			return err
		}
		_, err = c.SaveAll(ctx, store.Write{Key: key, Value: out, Rev: rev})
		return err
	})
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
	return fmt.Errorf("gave up after %d attempts: %w", maxSaveAttempts, err)
}

func trimmed(s string) string { return strings.TrimSpace(s) }
