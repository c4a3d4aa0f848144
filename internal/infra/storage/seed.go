package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rentbook/rentbook-api/internal/domain"
)

// SeedCollection returns the demo data set a fresh scope starts with:
// two properties, three tenants in different balance states and one
// recorded payment. Every scope gets its own copy.
func SeedCollection() *domain.Collection {
	return &domain.Collection{
		Properties: []domain.Property{
			{ID: "1", Name: "Sunrise Apts", Address: "123 Market St", Type: domain.PropertyApartment, OwnerName: "John Doe"},
			{ID: "2", Name: "Downtown Commercial", Address: "456 Main Blvd", Type: domain.PropertyCommercial, OwnerName: "Jane Smith"},
		},
		Tenants: []domain.Tenant{
			{ID: "t1", PropertyID: "1", Name: "Alice Johnson", Phone: "555-0101", MonthlyRent: decimal.NewFromInt(1200), LeaseStart: "2023-01-01", CurrentBalance: decimal.Zero},
			{ID: "t2", PropertyID: "1", Name: "Bob Williams", Phone: "555-0102", MonthlyRent: decimal.NewFromInt(1500), LeaseStart: "2023-02-15", CurrentBalance: decimal.NewFromInt(1500)},
			{ID: "t3", PropertyID: "2", Name: "Tech Solutions Inc", Phone: "555-0103", MonthlyRent: decimal.NewFromInt(5000), LeaseStart: "2022-06-01", CurrentBalance: decimal.NewFromInt(-200)},
		},
		Transactions: []domain.Transaction{
			{
				ID:          "tx1",
				TenantID:    "t1",
				PropertyID:  "1",
				Type:        domain.TxRentPayment,
				Date:        time.Now(),
				TotalAmount: decimal.NewFromInt(1200),
				Splits: []domain.TransactionSplit{
					{ReceiverName: "John", Amount: decimal.NewFromInt(1200)},
				},
				DeductionAmount: decimal.Zero,
			},
		},
	}
}
