package backend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/vbonduro/washpos/internal/remote"
)

func (s *Server) handleListTimesheets(c *fiber.Ctx) error {
	q := s.db.WithContext(c.UserContext()).Order("date").Order("id")
	if name := c.Query("employee"); name != "" {
		q = q.Where("employee_name = ?", name)
	}
	var sheets []Timesheet
	if err := q.Find(&sheets).Error; err != nil {
		return err
	}
	out := make([]remote.TimesheetRecord, 0, len(sheets))
	for _, ts := range sheets {
		out = append(out, timesheetRecord(ts))
	}
	return c.JSON(out)
}

// handleClockIn opens a timesheet for a known employee who has no open one
// on that date. A repeated idempotency key returns the timesheet the first
// call created.
func (s *Server) handleClockIn(c *fiber.Ctx) error {
	var req remote.ClockRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	name := strings.TrimSpace(req.EmployeeName)
	if name == "" || req.Date == "" || req.Time == "" {
		return fiber.NewError(fiber.StatusBadRequest, "employeeName, date and time are required")
	}

	var ts Timesheet
	status := fiber.StatusCreated
	err := s.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		id, err := received(tx, req.IdempotencyKey)
		if err != nil {
			return err
		}
		if id != 0 {
			status = fiber.StatusOK
			return tx.First(&ts, id).Error
		}

		var emp Employee
		if err := findEmployee(tx, name, &emp); err != nil {
			return err
		}
		open, err := openTimesheet(tx, name, req.Date)
		if err != nil {
			return err
		}
		if open != nil {
			return fiber.NewError(fiber.StatusConflict, name+" is already clocked in")
		}

		ts = Timesheet{EmployeeName: name, Date: req.Date, ClockIn: req.Time}
		if err := tx.Create(&ts).Error; err != nil {
			return err
		}
		return remember(tx, req.IdempotencyKey, kindTimesheet, ts.ID)
	})
	if err != nil {
		return err
	}
	return c.Status(status).JSON(timesheetRecord(ts))
}

// handleClockOut closes an open timesheet. A repeated idempotency key, or
// closing it again with the same time, returns the closed timesheet.
func (s *Server) handleClockOut(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid timesheet id")
	}
	var req remote.ClockRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Time == "" {
		return fiber.NewError(fiber.StatusBadRequest, "time is required")
	}

	var ts Timesheet
	err = s.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		seen, err := received(tx, req.IdempotencyKey)
		if err != nil {
			return err
		}
		if seen != 0 {
			return tx.First(&ts, seen).Error
		}

		err = tx.First(&ts, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "timesheet not found")
		}
		if err != nil {
			return err
		}
		switch ts.ClockOut {
		case "":
			ts.ClockOut = req.Time
			if err := tx.Model(&ts).Update("clock_out", req.Time).Error; err != nil {
				return err
			}
			return remember(tx, req.IdempotencyKey, kindTimesheet, ts.ID)
		case req.Time:
			return nil
		default:
			return fiber.NewError(fiber.StatusConflict, ts.EmployeeName+" is already clocked out")
		}
	})
	if err != nil {
		return err
	}
	return c.JSON(timesheetRecord(ts))
}

// openTimesheet returns the employee's timesheet on date that has no
// clock-out yet, or nil. There is at most one.
func openTimesheet(tx *gorm.DB, name, date string) (*Timesheet, error) {
	var ts Timesheet
	err := tx.Where("employee_name = ? AND date = ? AND clock_out = ?", name, date, "").Take(&ts).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up open timesheet: %w", err)
	}
	return &ts, nil
}

func timesheetRecord(ts Timesheet) remote.TimesheetRecord {
	return remote.TimesheetRecord{
		ID:           int64(ts.ID),
		EmployeeName: ts.EmployeeName,
		Date:         ts.Date,
		ClockIn:      ts.ClockIn,
		ClockOut:     ts.ClockOut,
	}
}
