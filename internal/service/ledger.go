package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/rentbook/rentbook-api/internal/domain"
	"github.com/rentbook/rentbook-api/internal/infra/observability"
	"github.com/rentbook/rentbook-api/internal/port"
)

var ledgerTracer = otel.Tracer("rentbook/service/ledger")

const dateLayout = "2006-01-02"

// LedgerService owns all reads and writes of a scope's collection.
// Every mutation is load, validate, build events, apply, save once;
// batch operations land entirely or not at all.
type LedgerService struct {
	store   port.LedgerStore
	logger  *zap.Logger
	metrics *observability.Metrics

	// Per-scope locks serialize read-modify-write cycles. Handlers run
	// on separate goroutines even though the product model is a single
	// actor per scope.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewLedgerService(store port.LedgerStore, logger *zap.Logger, metrics *observability.Metrics) *LedgerService {
	return &LedgerService{
		store:   store,
		logger:  logger,
		metrics: metrics,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *LedgerService) scopeLock(scope string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	mu, ok := s.locks[scope]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[scope] = mu
	}
	return mu
}

func requireScope(scope string) error {
	if scope == "" {
		return &domain.ErrValidation{Field: "scope", Message: "must not be empty"}
	}
	return nil
}

// parseDate interprets an optional YYYY-MM-DD request field; empty
// means now.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, &domain.ErrValidation{Field: "date", Message: "must be YYYY-MM-DD"}
	}
	return t, nil
}

// ============================================================
// Properties
// ============================================================

func (s *LedgerService) ListProperties(ctx context.Context, scope string) ([]domain.Property, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListProperties")
	defer span.End()

	if err := requireScope(scope); err != nil {
		return nil, err
	}
	c, err := s.store.Load(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}
	return c.Properties, nil
}

func (s *LedgerService) AddProperty(ctx context.Context, scope string, req *domain.AddPropertyRequest) (*domain.Property, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.AddProperty")
	defer span.End()

	if err := requireScope(scope); err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "must not be empty"}
	}
	if req.Address == "" {
		return nil, &domain.ErrValidation{Field: "address", Message: "must not be empty"}
	}
	if !req.Type.IsValid() {
		return nil, &domain.ErrValidation{Field: "type", Message: "must be Apartment, House or Commercial"}
	}

	mu := s.scopeLock(scope)
	mu.Lock()
	defer mu.Unlock()

	c, err := s.store.Load(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}

	p := domain.Property{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Address:   req.Address,
		Type:      req.Type,
		OwnerName: req.OwnerName,
	}
	c.Properties = append(c.Properties, p)

	if err := s.store.Save(ctx, scope, c); err != nil {
		return nil, fmt.Errorf("save collection: %w", err)
	}
	s.logger.Info("property added", zap.String("property_id", p.ID))
	return &p, nil
}

// ============================================================
// Tenants
// ============================================================

func (s *LedgerService) ListTenants(ctx context.Context, scope string) ([]domain.Tenant, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListTenants")
	defer span.End()

	if err := requireScope(scope); err != nil {
		return nil, err
	}
	c, err := s.store.Load(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}
	return c.Tenants, nil
}

func (s *LedgerService) AddTenant(ctx context.Context, scope string, req *domain.AddTenantRequest) (*domain.Tenant, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.AddTenant")
	defer span.End()

	if err := requireScope(scope); err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "must not be empty"}
	}
	if req.MonthlyRent.LessThanOrEqual(decimal.Zero) {
		return nil, &domain.ErrValidation{Field: "monthlyRent", Message: "must be positive"}
	}
	if req.LeaseStart != "" {
		if _, err := time.Parse(dateLayout, req.LeaseStart); err != nil {
			return nil, &domain.ErrValidation{Field: "leaseStart", Message: "must be YYYY-MM-DD"}
		}
	}

	mu := s.scopeLock(scope)
	mu.Lock()
	defer mu.Unlock()

	c, err := s.store.Load(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}
	if c.FindProperty(req.PropertyID) == nil {
		return nil, &domain.ErrNotFound{Resource: "property", ID: req.PropertyID}
	}

	t := domain.Tenant{
		ID:             uuid.NewString(),
		PropertyID:     req.PropertyID,
		Name:           req.Name,
		Phone:          req.Phone,
		MonthlyRent:    req.MonthlyRent,
		LeaseStart:     req.LeaseStart,
		CurrentBalance: req.InitialBalance,
	}
	c.Tenants = append(c.Tenants, t)

	if err := s.store.Save(ctx, scope, c); err != nil {
		return nil, fmt.Errorf("save collection: %w", err)
	}
	s.logger.Info("tenant added", zap.String("tenant_id", t.ID))
	return &t, nil
}

func (s *LedgerService) GetTenantBalance(ctx context.Context, scope, tenantID string) (decimal.Decimal, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetTenantBalance")
	defer span.End()

	if err := requireScope(scope); err != nil {
		return decimal.Zero, err
	}
	c, err := s.store.Load(ctx, scope)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load collection: %w", err)
	}
	t := c.FindTenant(tenantID)
	if t == nil {
		return decimal.Zero, &domain.ErrNotFound{Resource: "tenant", ID: tenantID}
	}
	return t.CurrentBalance, nil
}

// GetTenantLedger returns a tenant's full history newest-first plus a
// trailing six-calendar-month payment series with explicit zero fill.
func (s *LedgerService) GetTenantLedger(ctx context.Context, scope, tenantID string) (*domain.TenantLedger, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetTenantLedger")
	defer span.End()

	if err := requireScope(scope); err != nil {
		return nil, err
	}
	c, err := s.store.Load(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}
	t := c.FindTenant(tenantID)
	if t == nil {
		return nil, &domain.ErrNotFound{Resource: "tenant", ID: tenantID}
	}

	events := domain.TenantEvents(c.Transactions, tenantID)
	return &domain.TenantLedger{
		Tenant:         *t,
		Transactions:   newestFirst(events),
		PaymentHistory: paymentHistory(events, time.Now()),
	}, nil
}

// paymentHistory buckets RENT_PAYMENT totals into the six calendar
// months ending at now, oldest first, zero for quiet months.
func paymentHistory(events []domain.Transaction, now time.Time) []domain.MonthlyPoint {
	type bucket struct{ year, month int }

	totals := make(map[bucket]decimal.Decimal)
	for _, tx := range events {
		if tx.Type != domain.TxRentPayment {
			continue
		}
		b := bucket{tx.Date.Year(), int(tx.Date.Month())}
		totals[b] = totals[b].Add(tx.TotalAmount)
	}

	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	out := make([]domain.MonthlyPoint, 0, 6)
	for i := 5; i >= 0; i-- {
		m := first.AddDate(0, -i, 0)
		b := bucket{m.Year(), int(m.Month())}
		out = append(out, domain.MonthlyPoint{
			Month:  m.Month().String()[:3],
			Amount: totals[b],
		})
	}
	return out
}

// ============================================================
// Transactions
// ============================================================

// ListTransactions returns the full event log newest-first. The stored
// order stays append order; only the view is reversed.
func (s *LedgerService) ListTransactions(ctx context.Context, scope string) ([]domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListTransactions")
	defer span.End()

	if err := requireScope(scope); err != nil {
		return nil, err
	}
	c, err := s.store.Load(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}
	return newestFirst(c.Transactions), nil
}

func newestFirst(events []domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}

// RecordPayment admits one RENT_PAYMENT event: construct (all
// validation), append, apply to the tenant balance, save.
func (s *LedgerService) RecordPayment(ctx context.Context, scope string, req *domain.RecordPaymentRequest) (*domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.RecordPayment")
	defer span.End()

	if err := requireScope(scope); err != nil {
		return nil, err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}

	mu := s.scopeLock(scope)
	mu.Lock()
	defer mu.Unlock()

	c, err := s.store.Load(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}
	t := c.FindTenant(req.TenantID)
	if t == nil {
		return nil, &domain.ErrNotFound{Resource: "tenant", ID: req.TenantID}
	}

	tx, err := domain.NewRentPayment(t.ID, t.PropertyID, date, req.CashAmount,
		req.DeductionAmount, req.DeductionReason, req.Description, req.Splits)
	if err != nil {
		return nil, err
	}

	c.Transactions = append(c.Transactions, tx)
	*t = domain.ApplyEvent(*t, tx)

	if err := s.store.Save(ctx, scope, c); err != nil {
		return nil, fmt.Errorf("save collection: %w", err)
	}
	s.metrics.IncrEventRecorded(tx.Type)
	s.logger.Info("payment recorded",
		zap.String("tenant_id", t.ID),
		zap.String("transaction_id", tx.ID),
	)
	return &tx, nil
}

// RecordExpense admits a REPAIR or OWNER_PAYOUT audit event. No tenant
// balance moves.
func (s *LedgerService) RecordExpense(ctx context.Context, scope string, req *domain.RecordExpenseRequest) (*domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.RecordExpense")
	defer span.End()

	if err := requireScope(scope); err != nil {
		return nil, err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}

	mu := s.scopeLock(scope)
	mu.Lock()
	defer mu.Unlock()

	c, err := s.store.Load(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}
	if req.PropertyID != "" && c.FindProperty(req.PropertyID) == nil {
		return nil, &domain.ErrNotFound{Resource: "property", ID: req.PropertyID}
	}
	if req.TenantID != "" && c.FindTenant(req.TenantID) == nil {
		return nil, &domain.ErrNotFound{Resource: "tenant", ID: req.TenantID}
	}

	tx, err := domain.NewExpense(req.Type, req.PropertyID, req.TenantID, date, req.Amount, req.Description)
	if err != nil {
		return nil, err
	}

	c.Transactions = append(c.Transactions, tx)
	if err := s.store.Save(ctx, scope, c); err != nil {
		return nil, fmt.Errorf("save collection: %w", err)
	}
	s.metrics.IncrEventRecorded(tx.Type)
	s.logger.Info("expense recorded", zap.String("transaction_id", tx.ID), zap.String("kind", string(tx.Type)))
	return &tx, nil
}

// ============================================================
// Batch operations
// ============================================================

// GenerateMonthlyRent appends one RENT_DUE per tenant, dated now, and
// saves once. A scope with no tenants charges nothing and is not an
// error.
func (s *LedgerService) GenerateMonthlyRent(ctx context.Context, scope string) (*domain.GenerateRentResponse, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GenerateMonthlyRent")
	defer span.End()

	if err := requireScope(scope); err != nil {
		return nil, err
	}

	mu := s.scopeLock(scope)
	mu.Lock()
	defer mu.Unlock()

	c, err := s.store.Load(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}

	now := time.Now()
	events := make([]domain.Transaction, 0, len(c.Tenants))
	for i := range c.Tenants {
		tx := domain.NewRentCharge(c.Tenants[i], now)
		events = append(events, tx)
		c.Tenants[i] = domain.ApplyEvent(c.Tenants[i], tx)
	}
	c.Transactions = append(c.Transactions, events...)

	if err := s.store.Save(ctx, scope, c); err != nil {
		return nil, fmt.Errorf("save collection: %w", err)
	}
	for range events {
		s.metrics.IncrEventRecorded(domain.TxRentDue)
	}
	s.logger.Info("monthly rent generated", zap.Int("charged", len(events)))
	return &domain.GenerateRentResponse{Charged: len(events), Events: events}, nil
}

// MarkTenantsPaid settles the full outstanding balance of each selected
// tenant with one RENT_PAYMENT per tenant. The whole request is
// validated before any event is built: an unknown tenant or one with no
// arrears rejects the entire batch.
func (s *LedgerService) MarkTenantsPaid(ctx context.Context, scope string, req *domain.MarkPaidRequest) ([]domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.MarkTenantsPaid")
	defer span.End()

	if err := requireScope(scope); err != nil {
		return nil, err
	}
	if len(req.TenantIDs) == 0 {
		return nil, &domain.ErrValidation{Field: "tenantIds", Message: "must not be empty"}
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}

	mu := s.scopeLock(scope)
	mu.Lock()
	defer mu.Unlock()

	c, err := s.store.Load(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}

	// Validation pass first so a bad id midway cannot leave a partial
	// batch behind.
	for _, id := range req.TenantIDs {
		t := c.FindTenant(id)
		if t == nil {
			return nil, &domain.ErrNotFound{Resource: "tenant", ID: id}
		}
		if !t.CurrentBalance.IsPositive() {
			return nil, &domain.ErrNoArrears{TenantID: id}
		}
	}

	events := make([]domain.Transaction, 0, len(req.TenantIDs))
	for _, id := range req.TenantIDs {
		t := c.FindTenant(id)
		tx, err := domain.NewRentPayment(t.ID, t.PropertyID, date,
			t.CurrentBalance, decimal.Zero, "", "Bulk settle", nil)
		if err != nil {
			return nil, err
		}
		events = append(events, tx)
		*t = domain.ApplyEvent(*t, tx)
	}
	c.Transactions = append(c.Transactions, events...)

	if err := s.store.Save(ctx, scope, c); err != nil {
		return nil, fmt.Errorf("save collection: %w", err)
	}
	for range events {
		s.metrics.IncrEventRecorded(domain.TxRentPayment)
	}
	s.logger.Info("tenants marked paid", zap.Int("count", len(events)))
	return events, nil
}
