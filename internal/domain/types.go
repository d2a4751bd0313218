package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Date and time layouts used in TimeEntry and SalesRecord.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

type Action string

const (
	ActionIn  Action = "in"
	ActionOut Action = "out"
)

// TimeEntry is a single clock-in or clock-out. Entries are only ever
// appended; a shift is an in/out pair computed on read.
type TimeEntry struct {
	ID           string `json:"id"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	Action       Action `json:"action"`
	EmployeeName string `json:"employeeName"`
	IsSaved      bool   `json:"isSaved"`
	ServerID     *int64 `json:"serverId,omitempty"`
}

// At parses Date and Time in loc.
func (e TimeEntry) At(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, e.Date+" "+e.Time, loc)
}

func (e *TimeEntry) EntityID() string { return e.ID }
func (e *TimeEntry) Version() string  { return e.ID }
func (e *TimeEntry) Saved() bool      { return e.IsSaved }
func (e *TimeEntry) SetSaved(v bool)  { e.IsSaved = v }

// SalesRecord is one day's (or one entry's) takings.
type SalesRecord struct {
	ID           string          `json:"id"`
	Date         string          `json:"date"`
	WasherSales  decimal.Decimal `json:"washerSales"`
	DryerSales   decimal.Decimal `json:"dryerSales"`
	WashAndFold  decimal.Decimal `json:"washAndFold"`
	ProductSales decimal.Decimal `json:"productSales"`
	VendingSales decimal.Decimal `json:"vendingSales"`
	Expenses     decimal.Decimal `json:"expenses"`
	IsSaved      bool            `json:"isSaved"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Total is income minus expenses.
func (r SalesRecord) Total() decimal.Decimal {
	return decimal.Sum(r.WasherSales, r.DryerSales, r.WashAndFold, r.ProductSales, r.VendingSales).Sub(r.Expenses)
}

func (r *SalesRecord) EntityID() string { return r.ID }
func (r *SalesRecord) Version() string  { return versionStamp(r.ID, r.UpdatedAt) }
func (r *SalesRecord) Saved() bool      { return r.IsSaved }
func (r *SalesRecord) SetSaved(v bool)  { r.IsSaved = v }

// InventoryItem tracks a consumable. CurrentStock is the amount used since
// the last refill, so the remaining amount is MaxStock - CurrentStock.
type InventoryItem struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CurrentStock int       `json:"currentStock"`
	MaxStock     int       `json:"maxStock"`
	MinStock     int       `json:"minStock"`
	Unit         string    `json:"unit"`
	IsDeleted    bool      `json:"isDeleted"`
	IsSaved      bool      `json:"isSaved"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

func (i InventoryItem) Available() int { return i.MaxStock - i.CurrentStock }

// Low reports whether the remaining amount is at or below MinStock.
func (i InventoryItem) Low() bool { return i.Available() <= i.MinStock }

func (i *InventoryItem) EntityID() string { return i.ID }
func (i *InventoryItem) Version() string  { return versionStamp(i.ID, i.LastUpdated) }
func (i *InventoryItem) Saved() bool      { return i.IsSaved }
func (i *InventoryItem) SetSaved(v bool)  { i.IsSaved = v }

type UpdateType string

const (
	UpdateRestock    UpdateType = "restock"
	UpdateUsage      UpdateType = "usage"
	UpdateAdjustment UpdateType = "adjustment"
)

func (t UpdateType) Valid() bool {
	switch t {
	case UpdateRestock, UpdateUsage, UpdateAdjustment:
		return true
	}
	return false
}

// InventoryUpdateLog is the append-only audit record of one stock mutation.
type InventoryUpdateLog struct {
	ID            string     `json:"id"`
	ItemID        string     `json:"itemId"`
	PreviousStock int        `json:"previousStock"`
	NewStock      int        `json:"newStock"`
	UpdateType    UpdateType `json:"updateType"`
	Timestamp     time.Time  `json:"timestamp"`
	UpdatedBy     string     `json:"updatedBy"`
	Notes         string     `json:"notes"`
	IsSaved       bool       `json:"isSaved"`
}

func (l *InventoryUpdateLog) EntityID() string { return l.ID }
func (l *InventoryUpdateLog) Version() string  { return l.ID }
func (l *InventoryUpdateLog) Saved() bool      { return l.IsSaved }
func (l *InventoryUpdateLog) SetSaved(v bool)  { l.IsSaved = v }

// EmployeeList is replaced wholesale from the server on every successful sync.
type EmployeeList []string

// Shift is a clock-in paired with the following clock-out, if any.
type Shift struct {
	EmployeeName string     `json:"employeeName"`
	Date         string     `json:"date"`
	ClockIn      TimeEntry  `json:"clockIn"`
	ClockOut     *TimeEntry `json:"clockOut,omitempty"`
}

// Open reports whether the shift has no clock-out yet.
func (s Shift) Open() bool { return s.ClockOut == nil }

// Hours returns the shift length in hours, or 0 for an open shift.
func (s Shift) Hours() float64 {
	if s.ClockOut == nil {
		return 0
	}
	in, err := s.ClockIn.At(time.UTC)
	if err != nil {
		return 0
	}
	out, err := s.ClockOut.At(time.UTC)
	if err != nil || out.Before(in) {
		return 0
	}
	return out.Sub(in).Hours()
}

func versionStamp(id string, t time.Time) string {
	return fmt.Sprintf("%s@%d", id, t.UnixNano())
}
