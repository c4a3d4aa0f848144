package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultReceiver is the receiver name used when a payment arrives
// without an explicit split breakdown.
const DefaultReceiver = "Primary Receiver"

// rentChargeDescription is stamped on every auto-generated monthly charge.
const rentChargeDescription = "Monthly Rent Auto-Charge"

// NewRentPayment builds a RENT_PAYMENT event. Validation happens here,
// at construction time, so an invalid event can never enter a ledger:
// amounts must be non-negative and the total credit (cash plus
// deduction) must be positive. Cash alone may be zero, covering a
// credit settled entirely by deduction with no money changing hands.
// If splits are supplied their amounts must sum to cash exactly. When
// no splits are given and cash arrived, a single implicit split to
// DefaultReceiver is created so receiver aggregation always accounts
// for the full amount.
func NewRentPayment(tenantID, propertyID string, date time.Time, cash, deduction decimal.Decimal, reason, description string, splits []TransactionSplit) (Transaction, error) {
	if tenantID == "" {
		return Transaction{}, &ErrValidation{Field: "tenantId", Message: "must not be empty"}
	}
	if cash.IsNegative() {
		return Transaction{}, &ErrValidation{Field: "cashAmount", Message: "must not be negative"}
	}
	if deduction.IsNegative() {
		return Transaction{}, &ErrValidation{Field: "deductionAmount", Message: "must not be negative"}
	}
	if cash.Add(deduction).LessThanOrEqual(decimal.Zero) {
		return Transaction{}, &ErrValidation{Field: "cashAmount", Message: "cash plus deduction must be positive"}
	}
	if deduction.IsPositive() && reason == "" {
		return Transaction{}, &ErrValidation{Field: "deductionReason", Message: "required when a deduction is applied"}
	}

	if len(splits) == 0 {
		if cash.IsPositive() {
			splits = []TransactionSplit{{ReceiverName: DefaultReceiver, Amount: cash}}
		}
	} else {
		sum := decimal.Zero
		for _, s := range splits {
			if s.ReceiverName == "" {
				return Transaction{}, &ErrValidation{Field: "splits", Message: "receiver name must not be empty"}
			}
			if s.Amount.IsNegative() {
				return Transaction{}, &ErrValidation{Field: "splits", Message: "split amount must not be negative"}
			}
			sum = sum.Add(s.Amount)
		}
		if !sum.Equal(cash) {
			return Transaction{}, &ErrValidation{Field: "splits", Message: "split amounts must sum to the cash amount"}
		}
	}

	return Transaction{
		ID:              uuid.NewString(),
		TenantID:        tenantID,
		PropertyID:      propertyID,
		Type:            TxRentPayment,
		Date:            date,
		TotalAmount:     cash,
		Description:     description,
		Splits:          splits,
		DeductionAmount: deduction,
		DeductionReason: reason,
	}, nil
}

// NewRentCharge builds the RENT_DUE event for one tenant's monthly
// accrual, dated at the given time for the tenant's full monthly rent.
func NewRentCharge(t Tenant, date time.Time) Transaction {
	return Transaction{
		ID:          uuid.NewString(),
		TenantID:    t.ID,
		PropertyID:  t.PropertyID,
		Type:        TxRentDue,
		Date:        date,
		TotalAmount: t.MonthlyRent,
		Description: rentChargeDescription,
	}
}

// NewExpense builds a REPAIR or OWNER_PAYOUT event. These are audit
// records only and never move a tenant balance.
func NewExpense(kind TransactionType, propertyID, tenantID string, date time.Time, amount decimal.Decimal, description string) (Transaction, error) {
	if kind != TxRepair && kind != TxOwnerPayout {
		return Transaction{}, &ErrValidation{Field: "type", Message: "must be REPAIR or OWNER_PAYOUT"}
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return Transaction{}, &ErrValidation{Field: "amount", Message: "must be positive"}
	}

	return Transaction{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		PropertyID:  propertyID,
		Type:        kind,
		Date:        date,
		TotalAmount: amount,
		Description: description,
	}, nil
}
