package service

import (
	"context"
	"time"

	"github.com/vbonduro/washpos/internal/domain"
	"github.com/vbonduro/washpos/internal/mutate"
	"github.com/vbonduro/washpos/internal/store"
)

// Inventory lists items that have not been deleted.
func (s *POSService) Inventory(ctx context.Context) ([]domain.InventoryItem, error) {
	items, _, err := store.LoadList[domain.InventoryItem](ctx, s.collections, store.KeyInventory)
	if err != nil {
		return nil, err
	}
	out := make([]domain.InventoryItem, 0, len(items))
	for _, it := range items {
		if !it.IsDeleted {
			out = append(out, it)
		}
	}
	return out, nil
}

// InventoryLogs lists stock updates, optionally for one item, newest first.
func (s *POSService) InventoryLogs(ctx context.Context, itemID string) ([]domain.InventoryUpdateLog, error) {
	logs, _, err := store.LoadList[domain.InventoryUpdateLog](ctx, s.collections, store.KeyInventoryLogs)
	if err != nil {
		return nil, err
	}
	out := make([]domain.InventoryUpdateLog, 0, len(logs))
	for i := len(logs) - 1; i >= 0; i-- {
		if itemID == "" || logs[i].ItemID == itemID {
			out = append(out, logs[i])
		}
	}
	return out, nil
}

func (s *POSService) AddItem(ctx context.Context, in mutate.ItemInput) (*domain.InventoryItem, error) {
	return s.changeItem(ctx, func(items []domain.InventoryItem, now time.Time) ([]domain.InventoryItem, domain.InventoryItem, error) {
		return mutate.AddItem(items, in, now)
	})
}

func (s *POSService) EditItem(ctx context.Context, id string, in mutate.ItemInput) (*domain.InventoryItem, error) {
	return s.changeItem(ctx, func(items []domain.InventoryItem, now time.Time) ([]domain.InventoryItem, domain.InventoryItem, error) {
		return mutate.EditItem(items, id, in, now)
	})
}

func (s *POSService) DeleteItem(ctx context.Context, id string) (*domain.InventoryItem, error) {
	return s.changeItem(ctx, func(items []domain.InventoryItem, now time.Time) ([]domain.InventoryItem, domain.InventoryItem, error) {
		return mutate.DeleteItem(items, id, now)
	})
}

func (s *POSService) changeItem(ctx context.Context, fn func([]domain.InventoryItem, time.Time) ([]domain.InventoryItem, domain.InventoryItem, error)) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var item domain.InventoryItem
	err := modify(ctx, s.collections, store.KeyInventory, func(items []domain.InventoryItem) ([]domain.InventoryItem, error) {
		out, it, err := fn(items, s.now())
		item = it
		return out, err
	})
	if err != nil {
		return nil, err
	}
	s.enqueue(ctx, store.KindInventoryItem, &item)
	return &item, nil
}

// UpdateStock applies a stock change and its log entry in one write.
func (s *POSService) UpdateStock(ctx context.Context, id string, u mutate.StockUpdate) (*domain.InventoryItem, *domain.InventoryUpdateLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		item  domain.InventoryItem
		entry domain.InventoryUpdateLog
	)
	err := retryConflict(ctx, func() error {
		items, itemRev, err := store.LoadList[domain.InventoryItem](ctx, s.collections, store.KeyInventory)
		if err != nil {
			return err
		}
		logs, logRev, err := store.LoadList[domain.InventoryUpdateLog](ctx, s.collections, store.KeyInventoryLogs)
		if err != nil {
			return err
		}
		items, logs, entry, err = mutate.UpdateStock(items, logs, id, u, s.now())
		if err != nil {
			return err
		}
		for _, it := range items {
			if it.ID == id {
				item = it
			}
		}
		_, err = s.collections.SaveAll(ctx,
			store.Write{Key: store.KeyInventory, Value: items, Rev: itemRev},
			store.Write{Key: store.KeyInventoryLogs, Value: logs, Rev: logRev},
		)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.enqueue(ctx, store.KindInventoryItem, &item)
	s.enqueue(ctx, store.KindInventoryLog, &entry)
	s.logger.Info("stock updated", "item", item.Name, "type", entry.UpdateType, "previous", entry.PreviousStock, "new", entry.NewStock)
	if item.Low() {
		s.logger.Warn("stock low", "item", item.Name, "available", item.Available(), "min", item.MinStock)
	}
	return &item, &entry, nil
}
