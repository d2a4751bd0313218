package mutate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/washpos/internal/domain"
)

func detergent() domain.InventoryItem {
	return domain.InventoryItem{
		ID:           "item-1",
		Name:         "Detergent",
		CurrentStock: 80,
		MaxStock:     100,
		MinStock:     10,
		Unit:         "bottles",
		IsSaved:      true,
		LastUpdated:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestUsageOverAvailableFails(t *testing.T) {
	items := []domain.InventoryItem{detergent()}

	_, _, _, err := UpdateStock(items, nil, "item-1", StockUpdate{Type: domain.UpdateUsage, Amount: 30}, time.Now())
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.EqualError(t, err, "Cannot use more than available. Only 20 bottles available")
	assert.Equal(t, 80, items[0].CurrentStock)
	assert.True(t, items[0].IsSaved)
}

func TestUsageAddsToUsedAmount(t *testing.T) {
	items := []domain.InventoryItem{detergent()}
	now := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	out, logs, entry, err := UpdateStock(items, nil, "item-1", StockUpdate{Type: domain.UpdateUsage, Amount: 20, UpdatedBy: "Maria"}, now)
	require.NoError(t, err)

	assert.Equal(t, 100, out[0].CurrentStock)
	assert.Equal(t, 0, out[0].Available())
	assert.False(t, out[0].IsSaved)
	assert.Equal(t, now, out[0].LastUpdated)

	require.Len(t, logs, 1)
	assert.Equal(t, entry, logs[0])
	assert.Equal(t, 80, entry.PreviousStock)
	assert.Equal(t, 100, entry.NewStock)
	assert.Equal(t, domain.UpdateUsage, entry.UpdateType)
	assert.Equal(t, "item-1", entry.ItemID)
	assert.Equal(t, "Maria", entry.UpdatedBy)
	assert.False(t, entry.IsSaved)
}

func TestRestock(t *testing.T) {
	items := []domain.InventoryItem{detergent()}

	out, _, entry, err := UpdateStock(items, nil, "item-1", StockUpdate{Type: domain.UpdateRestock, Amount: 50}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 30, out[0].CurrentStock)
	assert.Equal(t, 30, entry.NewStock)

	_, _, _, err = UpdateStock(items, nil, "item-1", StockUpdate{Type: domain.UpdateRestock, Amount: 81}, time.Now())
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAdjustment(t *testing.T) {
	items := []domain.InventoryItem{detergent()}

	out, _, _, err := UpdateStock(items, nil, "item-1", StockUpdate{Type: domain.UpdateAdjustment, Amount: 0}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, out[0].CurrentStock)

	_, _, _, err = UpdateStock(items, nil, "item-1", StockUpdate{Type: domain.UpdateAdjustment, Amount: 101}, time.Now())
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdateStockRejectsBadInput(t *testing.T) {
	items := []domain.InventoryItem{detergent()}

	_, _, _, err := UpdateStock(items, nil, "item-1", StockUpdate{Type: "refill", Amount: 1}, time.Now())
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, _, _, err = UpdateStock(items, nil, "item-1", StockUpdate{Type: domain.UpdateUsage, Amount: 0}, time.Now())
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, _, _, err = UpdateStock(items, nil, "nope", StockUpdate{Type: domain.UpdateUsage, Amount: 1}, time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddItem(t *testing.T) {
	items, item, err := AddItem(nil, ItemInput{Name: " Softener ", MaxStock: 40, MinStock: 5, Unit: "jugs"}, time.Now())
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, "Softener", item.Name)
	assert.NotEmpty(t, item.ID)
	assert.False(t, item.IsSaved)
	assert.Equal(t, 40, item.Available())

	_, _, err = AddItem(items, ItemInput{Name: "softener", MaxStock: 10}, time.Now())
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, _, err = AddItem(nil, ItemInput{Name: "Bleach", MaxStock: 0}, time.Now())
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestEditItem(t *testing.T) {
	items := []domain.InventoryItem{detergent()}

	out, item, err := EditItem(items, "item-1", ItemInput{Name: "Detergent XL", CurrentStock: 10, MaxStock: 200, MinStock: 20, Unit: "bottles"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Detergent XL", out[0].Name)
	assert.Equal(t, 190, item.Available())
	assert.False(t, item.IsSaved)
	assert.Equal(t, "Detergent", items[0].Name)
}

func TestEditItemRejectsNameOfAnotherItem(t *testing.T) {
	softener := detergent()
	softener.ID, softener.Name = "item-2", "Softener"
	gone := detergent()
	gone.ID, gone.Name, gone.IsDeleted = "item-3", "Bleach", true
	items := []domain.InventoryItem{detergent(), softener, gone}

	_, _, err := EditItem(items, "item-2", ItemInput{Name: " detergent ", MaxStock: 40}, time.Now())
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "An item named detergent already exists")

	// Keeping its own name, or taking a deleted item's, is allowed.
	_, item, err := EditItem(items, "item-2", ItemInput{Name: "SOFTENER", MaxStock: 40}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "SOFTENER", item.Name)
	_, _, err = EditItem(items, "item-2", ItemInput{Name: "Bleach", MaxStock: 40}, time.Now())
	assert.NoError(t, err)
}

func TestDeleteItemIsSoft(t *testing.T) {
	items := []domain.InventoryItem{detergent()}

	out, item, err := DeleteItem(items, "item-1", time.Now())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, item.IsDeleted)
	assert.False(t, item.IsSaved)

	_, _, _, err = UpdateStock(out, nil, "item-1", StockUpdate{Type: domain.UpdateUsage, Amount: 1}, time.Now())
	assert.ErrorIs(t, err, domain.ErrValidation)

	// The name is free again once the old item is deleted.
	_, _, err = AddItem(out, ItemInput{Name: "Detergent", MaxStock: 10}, time.Now())
	assert.NoError(t, err)
}

func TestEditsChangeVersionWithinSameInstant(t *testing.T) {
	items := []domain.InventoryItem{detergent()}
	now := items[0].LastUpdated

	out, _, _, err := UpdateStock(items, nil, "item-1", StockUpdate{Type: domain.UpdateUsage, Amount: 1}, now)
	require.NoError(t, err)
	assert.NotEqual(t, (&items[0]).Version(), (&out[0]).Version())
}
