package backend

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Employee struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;not null;uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Timesheet struct {
	ID           uint   `gorm:"primaryKey"`
	EmployeeName string `gorm:"size:100;not null;index"`
	Date         string `gorm:"size:10;not null;index"`
	ClockIn      string `gorm:"size:8;not null"`
	ClockOut     string `gorm:"size:8"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Sale is keyed by the client's record id; ClientUpdatedAt decides which
// of two versions wins.
type Sale struct {
	ID              uint            `gorm:"primaryKey"`
	ClientID        string          `gorm:"size:36;not null;uniqueIndex"`
	Date            string          `gorm:"size:10;not null;index"`
	WasherSales     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DryerSales      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	WashAndFold     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ProductSales    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	VendingSales    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Expenses        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ClientUpdatedAt time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type InventoryItem struct {
	ID              uint   `gorm:"primaryKey"`
	ClientID        string `gorm:"size:36;not null;uniqueIndex"`
	Name            string `gorm:"size:100;not null"`
	CurrentStock    int
	MaxStock        int
	MinStock        int
	Unit            string `gorm:"size:30"`
	ClientUpdatedAt time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

type InventoryLog struct {
	ID            uint   `gorm:"primaryKey"`
	ClientID      string `gorm:"size:36;not null;uniqueIndex"`
	ItemClientID  string `gorm:"size:36;not null;index"`
	PreviousStock int
	NewStock      int
	UpdateType    string `gorm:"size:20;not null"`
	Timestamp     time.Time
	UpdatedBy     string `gorm:"size:100"`
	Notes         string
	CreatedAt     time.Time
}

// ReceivedKey remembers every idempotency key the server has applied and
// the row it produced, so a resent row is acknowledged without reapplying.
type ReceivedKey struct {
	Key       string `gorm:"column:idempotency_key;primaryKey;size:36"`
	Kind      string `gorm:"size:20;not null"`
	ServerID  uint   `gorm:"not null"`
	CreatedAt time.Time
}

func models() []any {
	return []any{&Employee{}, &Timesheet{}, &Sale{}, &InventoryItem{}, &InventoryLog{}, &ReceivedKey{}}
}
