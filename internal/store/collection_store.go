package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/vbonduro/washpos/internal/domain"
)

// Fixed collection keys. Each holds a JSON array.
const (
	KeyTimeEntries   = "employeeTimeData"
	KeySales         = "salesData"
	KeyEmployees     = "employeeList"
	KeyInventory     = "inventory"
	KeyInventoryLogs = "inventoryLogs"
)

// Keys lists every collection key.
var Keys = []string{KeyTimeEntries, KeySales, KeyEmployees, KeyInventory, KeyInventoryLogs}

// SchemaVersion is the layout version of the JSON stored under Keys. Bumping
// it wipes all collections on the next EnsureSchema.
const SchemaVersion = 3

const schemaVersionMeta = "schema_version"

// CollectionStore is a key/value store of JSON arrays with per-key revisions.
type CollectionStore struct {
	db *sql.DB
}

func NewCollectionStore(db *sql.DB) *CollectionStore {
	return &CollectionStore{db: db}
}

// Load decodes the collection under key into dst and returns its revision.
// A key that was never written leaves dst untouched and returns revision 0.
func (s *CollectionStore) Load(ctx context.Context, key string, dst any) (int64, error) {
	var data string
	var rev int64
	err := s.db.QueryRowContext(ctx, `
		SELECT data, revision FROM collections WHERE key = ?
	`, key).Scan(&data, &rev)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(data), dst); err != nil {
		return 0, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return rev, nil
}

// Save replaces the collection under key with v if its revision is still rev,
// returning the new revision. It returns domain.ErrConflict when another
// writer saved the key after it was loaded.
func (s *CollectionStore) Save(ctx context.Context, key string, v any, rev int64) (int64, error) {
	return save(ctx, s.db, key, v, rev)
}

// Write is one collection replacement in a SaveAll batch.
type Write struct {
	Key   string
	Value any
	Rev   int64
}

// SaveAll applies writes in one transaction. Either every key is saved or,
// on any conflict, none is. The new revisions are returned in order.
func (s *CollectionStore) SaveAll(ctx context.Context, writes ...Write) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	revs := make([]int64, len(writes))
	for i, w := range writes {
		if revs[i], err = save(ctx, tx, w.Key, w.Value, w.Rev); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit collections: %w", err)
	}
	return revs, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func save(ctx context.Context, db execer, key string, v any, rev int64) (int64, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("failed to encode %s: %w", key, err)
	}

	result, err := db.ExecContext(ctx, `
		UPDATE collections SET data = ?, revision = revision + 1, updated_at = datetime('now')
		WHERE key = ? AND revision = ?
	`, string(data), key, rev)
	if err != nil {
		return 0, fmt.Errorf("failed to save %s: %w", key, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 1 {
		return rev + 1, nil
	}

	if rev == 0 {
		result, err = db.ExecContext(ctx, `
			INSERT INTO collections (key, data, revision) VALUES (?, ?, 1)
			ON CONFLICT(key) DO NOTHING
		`, key, string(data))
		if err != nil {
			return 0, fmt.Errorf("failed to save %s: %w", key, err)
		}
		rowsAffected, err = result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 1 {
			return 1, nil
		}
	}

	return 0, fmt.Errorf("save %s at revision %d: %w", key, rev, domain.ErrConflict)
}

// EnsureSchema compares the stored data version with version. On mismatch
// every collection is reset to an empty array and true is returned.
func (s *CollectionStore) EnsureSchema(ctx context.Context, version int) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var stored string
	err = tx.QueryRowContext(ctx, `SELECT value FROM store_meta WHERE name = ?`, schemaVersionMeta).Scan(&stored)
	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("failed to read schema version: %w", err)
	}
	want := strconv.Itoa(version)
	if stored == want {
		return false, nil
	}

	for _, key := range Keys {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO collections (key, data, revision) VALUES (?, '[]', 1)
			ON CONFLICT(key) DO UPDATE SET data = '[]', revision = collections.revision + 1, updated_at = datetime('now')
		`, key); err != nil {
			return false, fmt.Errorf("failed to reset %s: %w", key, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO store_meta (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value
	`, schemaVersionMeta, want); err != nil {
		return false, fmt.Errorf("failed to record schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit schema reset: %w", err)
	}
	return true, nil
}

// Loader reads a collection and its revision.
type Loader interface {
	Load(ctx context.Context, key string, dst any) (int64, error)
}

// LoadList loads the JSON array under key as []T. A missing key yields an
// empty, non-nil slice.
func LoadList[T any](ctx context.Context, s Loader, key string) ([]T, int64, error) {
	var items []T
	rev, err := s.Load(ctx, key, &items)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []T{}
	}
	return items, rev, nil
}

// Snapshot is every collection read at once.
type Snapshot struct {
	TimeEntries   []domain.TimeEntry
	Sales         []domain.SalesRecord
	Employees     domain.EmployeeList
	Inventory     []domain.InventoryItem
	InventoryLogs []domain.InventoryUpdateLog
}

// LoadSnapshot reads all five collections.
func (s *CollectionStore) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	var (
		snap Snapshot
		err  error
	)
	if snap.TimeEntries, _, err = LoadList[domain.TimeEntry](ctx, s, KeyTimeEntries); err != nil {
		return nil, err
	}
	if snap.Sales, _, err = LoadList[domain.SalesRecord](ctx, s, KeySales); err != nil {
		return nil, err
	}
	if snap.Employees, _, err = LoadList[string](ctx, s, KeyEmployees); err != nil {
		return nil, err
	}
	if snap.Inventory, _, err = LoadList[domain.InventoryItem](ctx, s, KeyInventory); err != nil {
		return nil, err
	}
	if snap.InventoryLogs, _, err = LoadList[domain.InventoryUpdateLog](ctx, s, KeyInventoryLogs); err != nil {
		return nil, err
	}
	return &snap, nil
}
