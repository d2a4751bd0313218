package backend

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/vbonduro/washpos/internal/domain"
	"github.com/vbonduro/washpos/internal/remote"
)

// handleSync applies a batch of timesheets, inventory items and inventory
// logs in one transaction. Any invalid row rejects the whole batch.
func (s *Server) handleSync(c *fiber.Ctx) error {
	var req remote.SyncRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	resp := remote.SyncResponse{
		Timesheets:    make([]remote.Ack, 0, len(req.Timesheets)),
		Inventory:     make([]remote.Ack, 0, len(req.Inventory)),
		InventoryLogs: make([]remote.Ack, 0, len(req.InventoryLogs)),
	}
	err := s.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		for i, t := range req.Timesheets {
			ack, err := syncTimesheet(tx, t)
			if err != nil {
				return rowError("timesheet", i, err)
			}
			resp.Timesheets = append(resp.Timesheets, ack)
		}
		for i, it := range req.Inventory {
			ack, err := syncInventoryItem(tx, it)
			if err != nil {
				return rowError("inventory item", i, err)
			}
			resp.Inventory = append(resp.Inventory, ack)
		}
		for i, l := range req.InventoryLogs {
			ack, err := syncInventoryLog(tx, l)
			if err != nil {
				return rowError("inventory log", i, err)
			}
			resp.InventoryLogs = append(resp.InventoryLogs, ack)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("sync applied",
		"timesheets", len(resp.Timesheets),
		"inventory", len(resp.Inventory),
		"inventory_logs", len(resp.InventoryLogs),
	)
	return c.JSON(resp)
}

func (s *Server) handleBulkSales(c *fiber.Ctx) error {
	var req remote.BulkSalesRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	resp := remote.BulkSalesResponse{Sales: make([]remote.Ack, 0, len(req.Sales))}
	err := s.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		for i, sale := range req.Sales {
			ack, err := syncSale(tx, sale)
			if err != nil {
				return rowError("sale", i, err)
			}
			resp.Sales = append(resp.Sales, ack)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("sales applied", "sales", len(resp.Sales))
	return c.JSON(resp)
}

func rowError(what string, i int, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fiber.NewError(fe.Code, fmt.Sprintf("%s %d: %s", what, i, fe.Message))
	}
	return fmt.Errorf("failed to apply %s %d: %w", what, i, err)
}

func badRow(msg string) error {
	return fiber.NewError(fiber.StatusBadRequest, msg)
}

// syncTimesheet stores a shift. A resent shift that now carries a clock-out
// closes the row the first send created. A new shift that would open a
// second timesheet for the employee on that date, or that repeats the open
// one's clock-in, is merged into the open timesheet instead.
func syncTimesheet(tx *gorm.DB, t remote.Timesheet) (remote.Ack, error) {
	ack := remote.Ack{IdempotencyKey: t.IdempotencyKey}
	if t.IdempotencyKey == "" {
		return ack, badRow("idempotencyKey is required")
	}
	if t.EmployeeName == "" || t.Date == "" || t.ClockIn == "" {
		return ack, badRow("employeeName, date and clockIn are required")
	}

	id, err := received(tx, t.IdempotencyKey)
	if err != nil {
		return ack, err
	}
	if id != 0 {
		ack.ServerID, ack.Duplicate = int64(id), true
		return ack, fillClockOut(tx, id, t.ClockOut)
	}

	var ts Timesheet
	if t.ServerID != nil {
		err := tx.First(&ts, *t.ServerID).Error
		switch {
		case err == nil:
			if err := fillClockOut(tx, ts.ID, t.ClockOut); err != nil {
				return ack, err
			}
			ack.ServerID = int64(ts.ID)
			return ack, remember(tx, t.IdempotencyKey, kindTimesheet, ts.ID)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return ack, err
		}
	}

	open, err := openTimesheet(tx, t.EmployeeName, t.Date)
	if err != nil {
		return ack, err
	}
	if open != nil && (t.ClockOut == "" || t.ClockIn == open.ClockIn) {
		if err := fillClockOut(tx, open.ID, t.ClockOut); err != nil {
			return ack, err
		}
		ack.ServerID, ack.Duplicate = int64(open.ID), true
		return ack, remember(tx, t.IdempotencyKey, kindTimesheet, open.ID)
	}

	ts = Timesheet{
		EmployeeName: t.EmployeeName,
		Date:         t.Date,
		ClockIn:      t.ClockIn,
		ClockOut:     t.ClockOut,
	}
	if err := tx.Create(&ts).Error; err != nil {
		return ack, err
	}
	ack.ServerID = int64(ts.ID)
	return ack, remember(tx, t.IdempotencyKey, kindTimesheet, ts.ID)
}

func fillClockOut(tx *gorm.DB, id uint, clockOut string) error {
	if clockOut == "" {
		return nil
	}
	return tx.Model(&Timesheet{}).
		Where("id = ? AND clock_out = ?", id, "").
		Update("clock_out", clockOut).Error
}

// syncSale upserts a sale by client id; the newer UpdatedAt wins.
func syncSale(tx *gorm.DB, in remote.Sale) (remote.Ack, error) {
	ack := remote.Ack{IdempotencyKey: in.IdempotencyKey}
	if in.IdempotencyKey == "" || in.ID == "" || in.Date == "" {
		return ack, badRow("idempotencyKey, id and date are required")
	}

	id, err := received(tx, in.IdempotencyKey)
	if err != nil || id != 0 {
		ack.ServerID, ack.Duplicate = int64(id), id != 0
		return ack, err
	}

	var sale Sale
	err = tx.Where("client_id = ?", in.ID).Take(&sale).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		sale = Sale{ClientID: in.ID}
		applySale(&sale, in.SalesRecord)
		err = tx.Create(&sale).Error
	case err != nil:
	case in.UpdatedAt.After(sale.ClientUpdatedAt):
		applySale(&sale, in.SalesRecord)
		err = tx.Save(&sale).Error
	}
	if err != nil {
		return ack, err
	}

	ack.ServerID = int64(sale.ID)
	return ack, remember(tx, in.IdempotencyKey, kindSale, sale.ID)
}

func applySale(dst *Sale, r domain.SalesRecord) {
	dst.Date = r.Date
	dst.WasherSales = r.WasherSales
	dst.DryerSales = r.DryerSales
	dst.WashAndFold = r.WashAndFold
	dst.ProductSales = r.ProductSales
	dst.VendingSales = r.VendingSales
	dst.Expenses = r.Expenses
	dst.ClientUpdatedAt = r.UpdatedAt
}

// syncInventoryItem upserts an item by client id; the newer LastUpdated
// wins. Deleted items are soft deleted and may be restored by a newer edit.
func syncInventoryItem(tx *gorm.DB, in remote.InventoryItem) (remote.Ack, error) {
	ack := remote.Ack{IdempotencyKey: in.IdempotencyKey}
	if in.IdempotencyKey == "" || in.ID == "" || in.Name == "" {
		return ack, badRow("idempotencyKey, id and name are required")
	}

	id, err := received(tx, in.IdempotencyKey)
	if err != nil || id != 0 {
		ack.ServerID, ack.Duplicate = int64(id), id != 0
		return ack, err
	}

	var item InventoryItem
	err = tx.Unscoped().Where("client_id = ?", in.ID).Take(&item).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		item = InventoryItem{ClientID: in.ID}
		applyItem(&item, in.InventoryItem)
		err = tx.Unscoped().Save(&item).Error
	case err != nil:
	case in.LastUpdated.After(item.ClientUpdatedAt):
		applyItem(&item, in.InventoryItem)
		err = tx.Unscoped().Save(&item).Error
	}
	if err != nil {
		return ack, err
	}

	ack.ServerID = int64(item.ID)
	return ack, remember(tx, in.IdempotencyKey, kindInventoryItem, item.ID)
}

func applyItem(dst *InventoryItem, it domain.InventoryItem) {
	dst.Name = it.Name
	dst.CurrentStock = it.CurrentStock
	dst.MaxStock = it.MaxStock
	dst.MinStock = it.MinStock
	dst.Unit = it.Unit
	dst.ClientUpdatedAt = it.LastUpdated
	dst.DeletedAt = gorm.DeletedAt{}
	if it.IsDeleted {
		dst.DeletedAt = gorm.DeletedAt{Time: it.LastUpdated, Valid: true}
	}
}

// syncInventoryLog appends an audit record. Logs are immutable, so a log
// already stored under its client id is acknowledged as a duplicate.
func syncInventoryLog(tx *gorm.DB, in remote.InventoryLog) (remote.Ack, error) {
	ack := remote.Ack{IdempotencyKey: in.IdempotencyKey}
	if in.IdempotencyKey == "" || in.ID == "" || in.ItemID == "" {
		return ack, badRow("idempotencyKey, id and itemId are required")
	}
	if !in.UpdateType.Valid() {
		return ack, badRow("invalid updateType: " + string(in.UpdateType))
	}

	id, err := received(tx, in.IdempotencyKey)
	if err != nil || id != 0 {
		ack.ServerID, ack.Duplicate = int64(id), id != 0
		return ack, err
	}

	var log InventoryLog
	err = tx.Where("client_id = ?", in.ID).Take(&log).Error
	switch {
	case err == nil:
		ack.Duplicate = true
	case errors.Is(err, gorm.ErrRecordNotFound):
		log = InventoryLog{
			ClientID:      in.ID,
			ItemClientID:  in.ItemID,
			PreviousStock: in.PreviousStock,
			NewStock:      in.NewStock,
			UpdateType:    string(in.UpdateType),
			Timestamp:     in.Timestamp,
			UpdatedBy:     in.UpdatedBy,
			Notes:         in.Notes,
		}
		if err := tx.Create(&log).Error; err != nil {
			return ack, err
		}
	default:
		return ack, err
	}

	ack.ServerID = int64(log.ID)
	return ack, remember(tx, in.IdempotencyKey, kindInventoryLog, log.ID)
}
