package domain

import "github.com/shopspring/decimal"

// Balance rules. A tenant balance is the fold of the tenant's event
// history: positive means the tenant owes, negative means overpayment.
// Only two event kinds move a balance; everything else is audit data.

// ApplyEvent returns the tenant with tx applied to its balance.
// The tenant value is copied, never mutated in place.
func ApplyEvent(t Tenant, tx Transaction) Tenant {
	switch tx.Type {
	case TxRentDue:
		t.CurrentBalance = t.CurrentBalance.Add(tx.TotalAmount)
	case TxRentPayment:
		// Deductions (e.g. a repair settled out of the rent) reduce the
		// balance too: the tenant gets credit for cash plus deduction.
		t.CurrentBalance = t.CurrentBalance.Sub(tx.TotalAmount).Sub(tx.DeductionAmount)
	}
	return t
}

// FoldBalance recomputes a balance from zero over an ordered event
// history. For any sequence of events this equals applying them one by
// one with ApplyEvent, which makes stored balances auditable.
func FoldBalance(events []Transaction) decimal.Decimal {
	balance := decimal.Zero
	for _, tx := range events {
		switch tx.Type {
		case TxRentDue:
			balance = balance.Add(tx.TotalAmount)
		case TxRentPayment:
			balance = balance.Sub(tx.TotalAmount).Sub(tx.DeductionAmount)
		}
	}
	return balance
}

// TenantEvents filters an event history down to one tenant, preserving
// order.
func TenantEvents(events []Transaction, tenantID string) []Transaction {
	var out []Transaction
	for _, tx := range events {
		if tx.TenantID == tenantID {
			out = append(out, tx)
		}
	}
	return out
}
