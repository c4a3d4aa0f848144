// Package domain defines the core business entities for the rental ledger.
// These models are independent of transport and storage and represent the
// canonical data structures used throughout the API.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The web client and the persisted snapshots both use plain JSON
	// numbers for money.
	decimal.MarshalJSONWithoutQuotes = true
}

// ============================================================
// Properties
// ============================================================

// PropertyType is the closed set of property categories.
type PropertyType string

const (
	PropertyApartment  PropertyType = "Apartment"
	PropertyHouse      PropertyType = "House"
	PropertyCommercial PropertyType = "Commercial"
)

// IsValid reports whether t is one of the known property types.
func (t PropertyType) IsValid() bool {
	switch t {
	case PropertyApartment, PropertyHouse, PropertyCommercial:
		return true
	}
	return false
}

// Property represents a rental property.
type Property struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Address   string       `json:"address"`
	Type      PropertyType `json:"type"`
	OwnerName string       `json:"ownerName"`
}

// ============================================================
// Tenants
// ============================================================

// Tenant represents a tenant leasing a property.
//
// CurrentBalance is a materialized view of the tenant's transaction
// history: positive means arrears (the tenant owes), negative means the
// tenant paid in advance. It is only ever changed by ApplyEvent and can
// be recomputed from scratch with FoldBalance at any time.
type Tenant struct {
	ID             string          `json:"id"`
	PropertyID     string          `json:"propertyId"`
	Name           string          `json:"name"`
	Phone          string          `json:"phone"`
	MonthlyRent    decimal.Decimal `json:"monthlyRent"`
	LeaseStart     string          `json:"leaseStart"` // YYYY-MM-DD
	CurrentBalance decimal.Decimal `json:"currentBalance"`
}

// ============================================================
// Transactions (ledger events)
// ============================================================

// TransactionType is the closed set of ledger event kinds.
type TransactionType string

const (
	// TxRentPayment records cash received from a tenant.
	TxRentPayment TransactionType = "RENT_PAYMENT"
	// TxRentDue records rent becoming due (monthly accrual).
	TxRentDue TransactionType = "RENT_DUE"
	// TxRepair records a repair expense. Audit only, no balance effect.
	TxRepair TransactionType = "REPAIR"
	// TxOwnerPayout records cash paid out to an owner. Audit only.
	TxOwnerPayout TransactionType = "OWNER_PAYOUT"
)

// IsValid reports whether t is one of the known event kinds.
func (t TransactionType) IsValid() bool {
	switch t {
	case TxRentPayment, TxRentDue, TxRepair, TxOwnerPayout:
		return true
	}
	return false
}

// TransactionSplit records how a slice of a cash payment was distributed
// to a named receiver. The split amounts of a transaction always sum to
// its TotalAmount.
type TransactionSplit struct {
	ReceiverName string          `json:"receiverName"`
	Amount       decimal.Decimal `json:"amount"`
}

// Transaction is an immutable, append-only ledger event. Once admitted
// to a collection it is never edited or deleted; the append order is the
// ledger's canonical order.
type Transaction struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenantId,omitempty"`
	PropertyID  string          `json:"propertyId,omitempty"`
	Type        TransactionType `json:"type"`
	Date        time.Time       `json:"date"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Description string          `json:"description,omitempty"`

	// Rent payment only.
	Splits          []TransactionSplit `json:"splits,omitempty"`
	DeductionAmount decimal.Decimal    `json:"deductionAmount"`
	DeductionReason string             `json:"deductionReason,omitempty"`
}

// Collection is the full per-scope snapshot: every property, tenant and
// transaction owned by one identity. It is loaded and saved as a unit.
type Collection struct {
	Properties   []Property    `json:"properties"`
	Tenants      []Tenant      `json:"tenants"`
	Transactions []Transaction `json:"transactions"`
}

// FindTenant returns a pointer into the collection's tenant slice, or nil.
func (c *Collection) FindTenant(id string) *Tenant {
	for i := range c.Tenants {
		if c.Tenants[i].ID == id {
			return &c.Tenants[i]
		}
	}
	return nil
}

// FindProperty returns a pointer into the collection's property slice, or nil.
func (c *Collection) FindProperty(id string) *Property {
	for i := range c.Properties {
		if c.Properties[i].ID == id {
			return &c.Properties[i]
		}
	}
	return nil
}

// ============================================================
// Users / identity
// ============================================================

// User is the identity record exposed to the client after login.
type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture,omitempty"`
}

// UserRecord is a stored credential entry. PasswordHash is empty for
// accounts created through Google sign-in.
type UserRecord struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Picture      string    `json:"picture,omitempty"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ============================================================
// Derived views
// ============================================================

// DashboardStats is the headline figure set for the dashboard.
type DashboardStats struct {
	TotalArrears       decimal.Decimal `json:"totalArrears"`
	CollectedThisMonth decimal.Decimal `json:"collectedThisMonth"`
	TotalProperties    int             `json:"totalProperties"`
	OccupancyRate      float64         `json:"occupancyRate"`
}

// ReceiverTotal is a cash-in-hand total for one split receiver.
type ReceiverTotal struct {
	ReceiverName string          `json:"receiverName"`
	Total        decimal.Decimal `json:"total"`
}

// MonthlyPoint is one bar of a monthly collection series.
type MonthlyPoint struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// TenantLedger is the per-tenant ledger view: the tenant, its full event
// history newest-first, and a trailing six-month payment series with
// zero fill for quiet months.
type TenantLedger struct {
	Tenant         Tenant         `json:"tenant"`
	Transactions   []Transaction  `json:"transactions"`
	PaymentHistory []MonthlyPoint `json:"paymentHistory"`
}

// ============================================================
// API request / response types
// ============================================================

// AddPropertyRequest is the body for POST /v1/properties.
type AddPropertyRequest struct {
	Name      string       `json:"name"`
	Address   string       `json:"address"`
	Type      PropertyType `json:"type"`
	OwnerName string       `json:"ownerName"`
}

// AddTenantRequest is the body for POST /v1/tenants. InitialBalance
// carries an opening position over from outside the ledger: positive
// for arrears, negative for advance.
type AddTenantRequest struct {
	PropertyID     string          `json:"propertyId"`
	Name           string          `json:"name"`
	Phone          string          `json:"phone"`
	MonthlyRent    decimal.Decimal `json:"monthlyRent"`
	LeaseStart     string          `json:"leaseStart"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
}

// RecordPaymentRequest is the body for POST /v1/transactions/payments.
type RecordPaymentRequest struct {
	TenantID        string             `json:"tenantId"`
	Date            string             `json:"date"` // YYYY-MM-DD, empty = today
	CashAmount      decimal.Decimal    `json:"cashAmount"`
	DeductionAmount decimal.Decimal    `json:"deductionAmount"`
	DeductionReason string             `json:"deductionReason,omitempty"`
	Splits          []TransactionSplit `json:"splits,omitempty"`
	Description     string             `json:"description,omitempty"`
}

// RecordExpenseRequest is the body for POST /v1/transactions/expenses.
// Expense events (repairs, owner payouts) are recorded for audit and
// reporting; they never touch a tenant balance.
type RecordExpenseRequest struct {
	Type        TransactionType `json:"type"`
	PropertyID  string          `json:"propertyId,omitempty"`
	TenantID    string          `json:"tenantId,omitempty"`
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

// MarkPaidRequest is the body for POST /v1/tenants/mark-paid.
type MarkPaidRequest struct {
	TenantIDs []string `json:"tenantIds"`
	Date      string   `json:"date,omitempty"`
}

// GenerateRentResponse reports the outcome of a monthly rent roll.
type GenerateRentResponse struct {
	Charged int           `json:"charged"`
	Events  []Transaction `json:"events"`
}

// SignupRequest is the body for POST /v1/auth/signup.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body for POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GoogleLoginRequest is the body for POST /v1/auth/google.
type GoogleLoginRequest struct {
	Credential string `json:"credential"`
}

// AuthResponse is returned by all three login flows.
type AuthResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
	User        User   `json:"user"`
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

// ============================================================
// Metrics snapshot
// ============================================================

// LedgerMetrics is returned by GET /v1/metrics/ledger.
type LedgerMetrics struct {
	TotalRequests     int64            `json:"totalRequests"`
	ErrorRate         float64          `json:"errorRate"`
	EventsRecorded    map[string]int64 `json:"eventsRecorded"`
	StorageRecoveries int64            `json:"storageRecoveries"`
	CacheHitRate      float64          `json:"cacheHitRate"`
	Period            string           `json:"period"`
}
