package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/rentbook/rentbook-api/internal/domain"
	"github.com/rentbook/rentbook-api/internal/port"
)

var reportsTracer = otel.Tracer("rentbook/service/reports")

// ReportsService computes derived figures from a scope's collection.
// Everything here is a pure reduction recomputed per read; nothing is
// persisted.
type ReportsService struct {
	store  port.LedgerStore
	logger *zap.Logger
}

func NewReportsService(store port.LedgerStore, logger *zap.Logger) *ReportsService {
	return &ReportsService{store: store, logger: logger}
}

// Stats returns the dashboard headline figures.
func (s *ReportsService) Stats(ctx context.Context, scope string) (*domain.DashboardStats, error) {
	ctx, span := reportsTracer.Start(ctx, "ReportsService.Stats")
	defer span.End()

	if err := requireScope(scope); err != nil {
		return nil, err
	}
	c, err := s.store.Load(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}

	// Arrears counts only tenants who owe. Advance balances never
	// offset another tenant's debt.
	arrears := decimal.Zero
	for _, t := range c.Tenants {
		if t.CurrentBalance.IsPositive() {
			arrears = arrears.Add(t.CurrentBalance)
		}
	}

	now := time.Now()
	collected := decimal.Zero
	for _, tx := range c.Transactions {
		if tx.Type != domain.TxRentPayment {
			continue
		}
		if tx.Date.Year() == now.Year() && tx.Date.Month() == now.Month() {
			collected = collected.Add(tx.TotalAmount)
		}
	}

	// Occupancy assumes two units per property. A capacity model per
	// property would replace this.
	occupancy := 0.0
	if len(c.Properties) > 0 {
		occupancy = float64(len(c.Tenants)) / float64(len(c.Properties)*2) * 100
	}

	return &domain.DashboardStats{
		TotalArrears:       arrears,
		CollectedThisMonth: collected,
		TotalProperties:    len(c.Properties),
		OccupancyRate:      occupancy,
	}, nil
}

// CashByReceiver totals split amounts per receiver name across every
// event that carries splits.
func (s *ReportsService) CashByReceiver(ctx context.Context, scope string) ([]domain.ReceiverTotal, error) {
	ctx, span := reportsTracer.Start(ctx, "ReportsService.CashByReceiver")
	defer span.End()

	if err := requireScope(scope); err != nil {
		return nil, err
	}
	c, err := s.store.Load(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}

	totals := make(map[string]decimal.Decimal)
	var order []string
	for _, tx := range c.Transactions {
		for _, split := range tx.Splits {
			if _, seen := totals[split.ReceiverName]; !seen {
				order = append(order, split.ReceiverName)
			}
			totals[split.ReceiverName] = totals[split.ReceiverName].Add(split.Amount)
		}
	}

	out := make([]domain.ReceiverTotal, 0, len(order))
	for _, name := range order {
		out = append(out, domain.ReceiverTotal{ReceiverName: name, Total: totals[name]})
	}
	return out, nil
}

// MonthlyCollections groups RENT_PAYMENT totals by short month label in
// order of first occurrence in the ledger.
func (s *ReportsService) MonthlyCollections(ctx context.Context, scope string) ([]domain.MonthlyPoint, error) {
	ctx, span := reportsTracer.Start(ctx, "ReportsService.MonthlyCollections")
	defer span.End()

	if err := requireScope(scope); err != nil {
		return nil, err
	}
	c, err := s.store.Load(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}

	totals := make(map[string]decimal.Decimal)
	var order []string
	for _, tx := range c.Transactions {
		if tx.Type != domain.TxRentPayment {
			continue
		}
		label := tx.Date.Month().String()[:3]
		if _, seen := totals[label]; !seen {
			order = append(order, label)
		}
		totals[label] = totals[label].Add(tx.TotalAmount)
	}

	out := make([]domain.MonthlyPoint, 0, len(order))
	for _, label := range order {
		out = append(out, domain.MonthlyPoint{Month: label, Amount: totals[label]})
	}
	return out, nil
}
