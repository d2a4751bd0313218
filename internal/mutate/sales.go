package mutate

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vbonduro/washpos/internal/domain"
)

// SaleInput is the editable part of a SalesRecord.
type SaleInput struct {
	Date         string          `json:"date"`
	WasherSales  decimal.Decimal `json:"washerSales"`
	DryerSales   decimal.Decimal `json:"dryerSales"`
	WashAndFold  decimal.Decimal `json:"washAndFold"`
	ProductSales decimal.Decimal `json:"productSales"`
	VendingSales decimal.Decimal `json:"vendingSales"`
	Expenses     decimal.Decimal `json:"expenses"`
}

func (in SaleInput) validate() error {
	if in.Date == "" {
		return domain.Invalid("Please select a date")
	}
	if _, err := time.Parse(domain.DateLayout, in.Date); err != nil {
		return domain.Invalid(fmt.Sprintf("Invalid date %q, expected YYYY-MM-DD", in.Date))
	}
	fields := []struct {
		name string
		v    decimal.Decimal
	}{
		{"Washer sales", in.WasherSales},
		{"Dryer sales", in.DryerSales},
		{"Wash and fold", in.WashAndFold},
		{"Product sales", in.ProductSales},
		{"Vending sales", in.VendingSales},
		{"Expenses", in.Expenses},
	}
	for _, f := range fields {
		if f.v.IsNegative() {
			return domain.Invalid(fmt.Sprintf("%s cannot be negative", f.name))
		}
	}
	return nil
}

func (in SaleInput) apply(r *domain.SalesRecord) {
	r.Date = in.Date
	r.WasherSales = in.WasherSales
	r.DryerSales = in.DryerSales
	r.WashAndFold = in.WashAndFold
	r.ProductSales = in.ProductSales
	r.VendingSales = in.VendingSales
	r.Expenses = in.Expenses
}

// AddSale appends a new unsaved sales record.
func AddSale(sales []domain.SalesRecord, in SaleInput, now time.Time) ([]domain.SalesRecord, domain.SalesRecord, error) {
	if err := in.validate(); err != nil {
		return nil, domain.SalesRecord{}, err
	}
	rec := domain.SalesRecord{ID: uuid.NewString(), UpdatedAt: now.UTC()}
	in.apply(&rec)

	out := make([]domain.SalesRecord, 0, len(sales)+1)
	out = append(out, sales...)
	return append(out, rec), rec, nil
}

// EditSale replaces the fields of the record with the given id and marks it
// unsaved. The record keeps its position and id.
func EditSale(sales []domain.SalesRecord, id string, in SaleInput, now time.Time) ([]domain.SalesRecord, domain.SalesRecord, error) {
	if err := in.validate(); err != nil {
		return nil, domain.SalesRecord{}, err
	}
	idx := -1
	for i := range sales {
		if sales[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, domain.SalesRecord{}, fmt.Errorf("sale %s: %w", id, domain.ErrNotFound)
	}

	out := make([]domain.SalesRecord, len(sales))
	copy(out, sales)
	rec := &out[idx]
	in.apply(rec)
	rec.IsSaved = false
	rec.UpdatedAt = bump(rec.UpdatedAt, now)
	return out, *rec, nil
}

// bump returns now, or one nanosecond past prev if the clock has not moved,
// so every edit yields a new version.
func bump(prev, now time.Time) time.Time {
	now = now.UTC()
	if !now.After(prev) {
		return prev.Add(time.Nanosecond)
	}
	return now
}
