package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindTimeEntry     Kind = "timeEntry"
	KindSale          Kind = "sale"
	KindInventoryItem Kind = "inventoryItem"
	KindInventoryLog  Kind = "inventoryLog"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// OutboxEntry is the delivery record of one entity version.
type OutboxEntry struct {
	Kind           Kind
	EntityID       string
	Version        string
	IdempotencyKey string
	Status         Status
	Attempts       int
	LastError      string
	EnqueuedAt     time.Time
	UpdatedAt      time.Time
}

// OutboxStore tracks per-entity delivery to the remote server. The
// idempotency key identifies an (entity, version) pair: it survives retries
// of the same version and is replaced when the entity changes.
type OutboxStore struct {
	db *sql.DB
}

func NewOutboxStore(db *sql.DB) *OutboxStore {
	return &OutboxStore{db: db}
}

// Enqueue marks the given entity version pending and returns its entry.
func (s *OutboxStore) Enqueue(ctx context.Context, kind Kind, entityID, version string) (*OutboxEntry, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outbox (kind, entity_id, version, idempotency_key, status)
		VALUES (?, ?, ?, ?, 'pending')
		ON CONFLICT(kind, entity_id) DO UPDATE SET
			idempotency_key = CASE WHEN outbox.version = excluded.version
				THEN outbox.idempotency_key ELSE excluded.idempotency_key END,
			attempts = CASE WHEN outbox.version = excluded.version
				THEN outbox.attempts ELSE 0 END,
			version    = excluded.version,
			status     = 'pending',
			updated_at = datetime('now')
	`, string(kind), entityID, version, uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue %s %s: %w", kind, entityID, err)
	}

	return s.Get(ctx, kind, entityID)
}

func (s *OutboxStore) Get(ctx context.Context, kind Kind, entityID string) (*OutboxEntry, error) {
	e := &OutboxEntry{}
	var k, st string
	err := s.db.QueryRowContext(ctx, `
		SELECT kind, entity_id, version, idempotency_key, status, attempts, last_error, enqueued_at, updated_at
		FROM outbox WHERE kind = ? AND entity_id = ?
	`, string(kind), entityID).Scan(&k, &e.EntityID, &e.Version, &e.IdempotencyKey, &st, &e.Attempts, &e.LastError, &e.EnqueuedAt, &e.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox entry: %w", err)
	}
	e.Kind, e.Status = Kind(k), Status(st)
	return e, nil
}

// ListByStatus returns entries of kind in status, oldest first.
func (s *OutboxStore) ListByStatus(ctx context.Context, kind Kind, status Status) ([]*OutboxEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, entity_id, version, idempotency_key, status, attempts, last_error, enqueued_at, updated_at
		FROM outbox WHERE kind = ? AND status = ? ORDER BY enqueued_at ASC, entity_id ASC
	`, string(kind), string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list outbox: %w", err)
	}
	defer rows.Close()

	var entries []*OutboxEntry
	for rows.Next() {
		e := &OutboxEntry{}
		var k, st string
		if err := rows.Scan(&k, &e.EntityID, &e.Version, &e.IdempotencyKey, &st, &e.Attempts, &e.LastError, &e.EnqueuedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox entry: %w", err)
		}
		e.Kind, e.Status = Kind(k), Status(st)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox: %w", err)
	}

	return entries, nil
}

// MarkDelivered flips the entries for entityIDs to delivered.
func (s *OutboxStore) MarkDelivered(ctx context.Context, kind Kind, entityIDs []string) error {
	return s.mark(ctx, kind, entityIDs, `
		UPDATE outbox SET status = 'delivered', last_error = '', attempts = attempts + 1, updated_at = datetime('now')
		WHERE kind = ? AND entity_id = ?
	`)
}

// MarkFailed records a failed delivery attempt with reason.
func (s *OutboxStore) MarkFailed(ctx context.Context, kind Kind, entityIDs []string, reason string) error {
	return s.mark(ctx, kind, entityIDs, `
		UPDATE outbox SET status = 'failed', last_error = ?, attempts = attempts + 1, updated_at = datetime('now')
		WHERE kind = ? AND entity_id = ?
	`, reason)
}

func (s *OutboxStore) mark(ctx context.Context, kind Kind, entityIDs []string, query string, leading ...any) error {
	if len(entityIDs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare outbox update: %w", err)
	}
	defer stmt.Close()

	for _, id := range entityIDs {
		args := append(append([]any{}, leading...), string(kind), id)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to update outbox entry %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit outbox update: %w", err)
	}
	return nil
}

// Counts returns the number of entries per status.
func (s *OutboxStore) Counts(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM outbox GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count outbox: %w", err)
	}
	defer rows.Close()

	counts := map[Status]int{StatusPending: 0, StatusDelivered: 0, StatusFailed: 0}
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("failed to scan outbox count: %w", err)
		}
		counts[Status(st)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox counts: %w", err)
	}
	return counts, nil
}
