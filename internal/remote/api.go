package remote

import "github.com/vbonduro/washpos/internal/domain"

// Timesheet is one shift as sent to the server. A timesheet that closes a
// shift the server already knows carries its ServerID.
type Timesheet struct {
	IdempotencyKey string   `json:"idempotencyKey"`
	EntryIDs       []string `json:"entryIds"`
	ServerID       *int64   `json:"serverId,omitempty"`
	EmployeeName   string   `json:"employeeName"`
	Date           string   `json:"date"`
	ClockIn        string   `json:"clockIn,omitempty"`
	ClockOut       string   `json:"clockOut,omitempty"`
}

type Sale struct {
	IdempotencyKey string `json:"idempotencyKey"`
	domain.SalesRecord
}

type InventoryItem struct {
	IdempotencyKey string `json:"idempotencyKey"`
	domain.InventoryItem
}

type InventoryLog struct {
	IdempotencyKey string `json:"idempotencyKey"`
	domain.InventoryUpdateLog
}

// Ack acknowledges one row of a batch.
type Ack struct {
	IdempotencyKey string `json:"idempotencyKey"`
	ServerID       int64  `json:"serverId"`
	Duplicate      bool   `json:"duplicate"`
}

type SyncRequest struct {
	Timesheets    []Timesheet     `json:"timesheets,omitempty"`
	Inventory     []InventoryItem `json:"inventory,omitempty"`
	InventoryLogs []InventoryLog  `json:"inventoryLogs,omitempty"`
}

type SyncResponse struct {
	Timesheets    []Ack `json:"timesheets"`
	Inventory     []Ack `json:"inventory"`
	InventoryLogs []Ack `json:"inventoryLogs"`
}

type BulkSalesRequest struct {
	Sales []Sale `json:"sales"`
}

type BulkSalesResponse struct {
	Sales []Ack `json:"sales"`
}

// ClockRequest is the body of the live clock-in and clock-out calls.
type ClockRequest struct {
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
	EmployeeName   string `json:"employeeName,omitempty"`
	Date           string `json:"date"`
	Time           string `json:"time"`
}

// TimesheetRecord is a timesheet as stored by the server.
type TimesheetRecord struct {
	ID           int64  `json:"id"`
	EmployeeName string `json:"employeeName"`
	Date         string `json:"date"`
	ClockIn      string `json:"clockIn"`
	ClockOut     string `json:"clockOut,omitempty"`
}

type Employee struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
