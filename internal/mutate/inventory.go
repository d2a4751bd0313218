package mutate

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vbonduro/washpos/internal/domain"
)

// ItemInput is the editable part of an InventoryItem.
type ItemInput struct {
	Name         string `json:"name"`
	CurrentStock int    `json:"currentStock"`
	MaxStock     int    `json:"maxStock"`
	MinStock     int    `json:"minStock"`
	Unit         string `json:"unit"`
}

func (in ItemInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return domain.Invalid("Item name is required")
	case in.MaxStock <= 0:
		return domain.Invalid("Max stock must be greater than zero")
	case in.MinStock < 0 || in.MinStock > in.MaxStock:
		return domain.Invalid(fmt.Sprintf("Min stock must be between 0 and %d", in.MaxStock))
	case in.CurrentStock < 0 || in.CurrentStock > in.MaxStock:
		return domain.Invalid(fmt.Sprintf("Current stock must be between 0 and %d", in.MaxStock))
	}
	return nil
}

// StockUpdate is a requested stock mutation.
type StockUpdate struct {
	Type      domain.UpdateType `json:"updateType"`
	Amount    int               `json:"amount"`
	UpdatedBy string            `json:"updatedBy"`
	Notes     string            `json:"notes"`
}

// AddItem appends a new unsaved inventory item.
func AddItem(items []domain.InventoryItem, in ItemInput, now time.Time) ([]domain.InventoryItem, domain.InventoryItem, error) {
	if err := in.validate(); err != nil {
		return nil, domain.InventoryItem{}, err
	}
	name := strings.TrimSpace(in.Name)
	if err := nameFree(items, "", name); err != nil {
		return nil, domain.InventoryItem{}, err
	}
	item := domain.InventoryItem{
		ID:           uuid.NewString(),
		Name:         name,
		CurrentStock: in.CurrentStock,
		MaxStock:     in.MaxStock,
		MinStock:     in.MinStock,
		Unit:         strings.TrimSpace(in.Unit),
		LastUpdated:  now.UTC(),
	}
	out := make([]domain.InventoryItem, 0, len(items)+1)
	out = append(out, items...)
	return append(out, item), item, nil
}

// EditItem replaces the editable fields of an item. The new name may not be
// used by another live item.
func EditItem(items []domain.InventoryItem, id string, in ItemInput, now time.Time) ([]domain.InventoryItem, domain.InventoryItem, error) {
	if err := in.validate(); err != nil {
		return nil, domain.InventoryItem{}, err
	}
	name := strings.TrimSpace(in.Name)
	if err := nameFree(items, id, name); err != nil {
		return nil, domain.InventoryItem{}, err
	}
	out, item, err := withItem(items, id, func(it *domain.InventoryItem) error {
		it.Name = name
		it.CurrentStock = in.CurrentStock
		it.MaxStock = in.MaxStock
		it.MinStock = in.MinStock
		it.Unit = strings.TrimSpace(in.Unit)
		return nil
	}, now)
	return out, item, err
}

// nameFree reports a validation error when an item other than the one with
// id uses name. Deleted items and case are ignored.
func nameFree(items []domain.InventoryItem, id, name string) error {
	for _, it := range items {
		if it.ID != id && !it.IsDeleted && strings.EqualFold(it.Name, name) {
			return domain.Invalid(fmt.Sprintf("An item named %s already exists", name))
		}
	}
	return nil
}

// DeleteItem soft-deletes an item. The item stays in the collection so the
// deletion reaches the server on the next sync.
func DeleteItem(items []domain.InventoryItem, id string, now time.Time) ([]domain.InventoryItem, domain.InventoryItem, error) {
	return withItem(items, id, func(it *domain.InventoryItem) error {
		it.IsDeleted = true
		return nil
	}, now)
}

// UpdateStock applies u to the item with the given id and appends exactly one
// log entry describing the change.
func UpdateStock(items []domain.InventoryItem, logs []domain.InventoryUpdateLog, id string, u StockUpdate, now time.Time) ([]domain.InventoryItem, []domain.InventoryUpdateLog, domain.InventoryUpdateLog, error) {
	if !u.Type.Valid() {
		return nil, nil, domain.InventoryUpdateLog{}, domain.Invalid(fmt.Sprintf("Unknown update type %q", u.Type))
	}
	if u.Type != domain.UpdateAdjustment && u.Amount <= 0 {
		return nil, nil, domain.InventoryUpdateLog{}, domain.Invalid("Amount must be greater than zero")
	}

	var entry domain.InventoryUpdateLog
	out, _, err := withItem(items, id, func(it *domain.InventoryItem) error {
		next, err := nextStock(*it, u)
		if err != nil {
			return err
		}
		entry = domain.InventoryUpdateLog{
			ID:            uuid.NewString(),
			ItemID:        it.ID,
			PreviousStock: it.CurrentStock,
			NewStock:      next,
			UpdateType:    u.Type,
			Timestamp:     now.UTC(),
			UpdatedBy:     strings.TrimSpace(u.UpdatedBy),
			Notes:         u.Notes,
		}
		it.CurrentStock = next
		return nil
	}, now)
	if err != nil {
		return nil, nil, domain.InventoryUpdateLog{}, err
	}

	outLogs := make([]domain.InventoryUpdateLog, 0, len(logs)+1)
	outLogs = append(outLogs, logs...)
	return out, append(outLogs, entry), entry, nil
}

func nextStock(it domain.InventoryItem, u StockUpdate) (int, error) {
	switch u.Type {
	case domain.UpdateUsage:
		next := it.CurrentStock + u.Amount
		if next > it.MaxStock {
			return 0, domain.Invalid(fmt.Sprintf("Cannot use more than available. Only %d %s available", it.Available(), it.Unit))
		}
		return next, nil
	case domain.UpdateRestock:
		next := it.CurrentStock - u.Amount
		if next < 0 {
			return 0, domain.Invalid(fmt.Sprintf("Cannot restock more than was used. Only %d %s used", it.CurrentStock, it.Unit))
		}
		return next, nil
	default:
		if u.Amount < 0 || u.Amount > it.MaxStock {
			return 0, domain.Invalid(fmt.Sprintf("Stock must be between 0 and %d", it.MaxStock))
		}
		return u.Amount, nil
	}
}

func withItem(items []domain.InventoryItem, id string, fn func(*domain.InventoryItem) error, now time.Time) ([]domain.InventoryItem, domain.InventoryItem, error) {
	idx := -1
	for i := range items {
		if items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, domain.InventoryItem{}, fmt.Errorf("inventory item %s: %w", id, domain.ErrNotFound)
	}
	if items[idx].IsDeleted {
		return nil, domain.InventoryItem{}, domain.Invalid(fmt.Sprintf("%s has been deleted", items[idx].Name))
	}

	out := make([]domain.InventoryItem, len(items))
	copy(out, items)
	it := &out[idx]
	if err := fn(it); err != nil {
		return nil, domain.InventoryItem{}, err
	}
	it.IsSaved = false
	it.LastUpdated = bump(it.LastUpdated, now)
	return out, *it, nil
}
