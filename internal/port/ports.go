// Package port defines the interfaces between the service layer and the
// infrastructure adapters.
package port

import (
	"context"

	"github.com/rentbook/rentbook-api/internal/domain"
)

// LedgerStore persists one collection snapshot per identity scope.
// Load never fails on missing or unreadable data: implementations fall
// back to a seed collection and report the recovery out of band.
type LedgerStore interface {
	Load(ctx context.Context, scopeKey string) (*domain.Collection, error)
	Save(ctx context.Context, scopeKey string, c *domain.Collection) error
}

// UserStore persists the credential records backing the demo auth flows.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*domain.UserRecord, error)
	Upsert(ctx context.Context, rec *domain.UserRecord) error
}
