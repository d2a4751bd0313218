package backend

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

const (
	kindTimesheet     = "timesheet"
	kindSale          = "sale"
	kindInventoryItem = "inventory_item"
	kindInventoryLog  = "inventory_log"
)

// received returns the server id recorded for key, or 0 if the key is new.
func received(tx *gorm.DB, key string) (uint, error) {
	if key == "" {
		return 0, nil
	}
	var rk ReceivedKey
	err := tx.Where("idempotency_key = ?", key).Take(&rk).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	return rk.ServerID, nil
}

func remember(tx *gorm.DB, key, kind string, serverID uint) error {
	if key == "" {
		return nil
	}
	if err := tx.Create(&ReceivedKey{Key: key, Kind: kind, ServerID: serverID}).Error; err != nil {
		return fmt.Errorf("failed to record idempotency key: %w", err)
	}
	return nil
}
