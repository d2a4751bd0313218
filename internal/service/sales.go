package service

import (
	"context"

	"github.com/vbonduro/washpos/internal/domain"
	"github.com/vbonduro/washpos/internal/mutate"
	"github.com/vbonduro/washpos/internal/store"
)

func (s *POSService) Sales(ctx context.Context) ([]domain.SalesRecord, error) {
	sales, _, err := store.LoadList[domain.SalesRecord](ctx, s.collections, store.KeySales)
	return sales, err
}

func (s *POSService) AddSale(ctx context.Context, in mutate.SaleInput) (*domain.SalesRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec domain.SalesRecord
	err := modify(ctx, s.collections, store.KeySales, func(sales []domain.SalesRecord) ([]domain.SalesRecord, error) {
		out, r, err := mutate.AddSale(sales, in, s.now())
		rec = r
		return out, err
	})
	if err != nil {
		return nil, err
	}
	s.enqueue(ctx, store.KindSale, &rec)
	s.logger.Info("sale recorded", "id", rec.ID, "date", rec.Date, "total", rec.Total().StringFixed(2))
	return &rec, nil
}

func (s *POSService) EditSale(ctx context.Context, id string, in mutate.SaleInput) (*domain.SalesRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec domain.SalesRecord
	err := modify(ctx, s.collections, store.KeySales, func(sales []domain.SalesRecord) ([]domain.SalesRecord, error) {
		out, r, err := mutate.EditSale(sales, id, in, s.now())
		rec = r
		return out, err
	})
	if err != nil {
		return nil, err
	}
	s.enqueue(ctx, store.KindSale, &rec)
	return &rec, nil
}
