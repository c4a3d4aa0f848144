package domain

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestApplyEventRentDue(t *testing.T) {
	tenant := Tenant{ID: "t1", CurrentBalance: dec("100")}
	tx := Transaction{Type: TxRentDue, TotalAmount: dec("1200")}

	got := ApplyEvent(tenant, tx)

	assert.True(t, got.CurrentBalance.Equal(dec("1300")))
	// input untouched
	assert.True(t, tenant.CurrentBalance.Equal(dec("100")))
}

func TestApplyEventRentPaymentWithDeduction(t *testing.T) {
	tenant := Tenant{ID: "t1", CurrentBalance: dec("1500")}
	tx := Transaction{Type: TxRentPayment, TotalAmount: dec("1000"), DeductionAmount: dec("200")}

	got := ApplyEvent(tenant, tx)

	assert.True(t, got.CurrentBalance.Equal(dec("300")))
}

func TestApplyEventAuditKindsDoNotMoveBalance(t *testing.T) {
	tenant := Tenant{ID: "t1", CurrentBalance: dec("500")}

	for _, kind := range []TransactionType{TxRepair, TxOwnerPayout} {
		got := ApplyEvent(tenant, Transaction{Type: kind, TotalAmount: dec("9999")})
		assert.True(t, got.CurrentBalance.Equal(dec("500")), "kind %s", kind)
	}
}

func TestApplyEventOverpaymentGoesNegative(t *testing.T) {
	tenant := Tenant{ID: "t1", CurrentBalance: dec("800")}
	tx := Transaction{Type: TxRentPayment, TotalAmount: dec("1000")}

	got := ApplyEvent(tenant, tx)

	assert.True(t, got.CurrentBalance.Equal(dec("-200")))
}

func TestFoldBalanceMatchesIncrementalApply(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	kinds := []TransactionType{TxRentDue, TxRentPayment, TxRepair, TxOwnerPayout}

	for run := 0; run < 50; run++ {
		n := rng.Intn(40)
		events := make([]Transaction, 0, n)
		for i := 0; i < n; i++ {
			tx := Transaction{
				TenantID:    "t1",
				Type:        kinds[rng.Intn(len(kinds))],
				Date:        time.Now(),
				TotalAmount: decimal.NewFromInt(int64(rng.Intn(5000))).Div(dec("100")),
			}
			if tx.Type == TxRentPayment && rng.Intn(3) == 0 {
				tx.DeductionAmount = decimal.NewFromInt(int64(rng.Intn(1000))).Div(dec("100"))
			}
			events = append(events, tx)
		}

		incremental := Tenant{ID: "t1", CurrentBalance: decimal.Zero}
		for _, tx := range events {
			incremental = ApplyEvent(incremental, tx)
		}

		folded := FoldBalance(events)
		require.True(t, folded.Equal(incremental.CurrentBalance),
			"run %d: fold=%s incremental=%s", run, folded, incremental.CurrentBalance)
	}
}

func TestFoldBalanceEmptyHistory(t *testing.T) {
	assert.True(t, FoldBalance(nil).IsZero())
}

func TestTenantEventsFiltersAndPreservesOrder(t *testing.T) {
	events := []Transaction{
		{ID: "a", TenantID: "t1", Type: TxRentDue},
		{ID: "b", TenantID: "t2", Type: TxRentDue},
		{ID: "c", TenantID: "t1", Type: TxRentPayment},
	}

	got := TenantEvents(events, "t1")

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
}
