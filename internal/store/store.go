// Package store defines the external record store the reconciliation engine
// collaborates with: account resolution, date-range queries over stored
// records, and persistence of reviewer decisions. An in-memory
// implementation backs the CLI and the tests.
package store

import (
	"context"
	"time"

	"github.com/micromata/bankrecon/internal/models"
)

// Store is the persistence contract. FindRecordsByDateRange returns
// non-deleted records ordered by date ascending; both bounds are inclusive
// calendar days.
type Store interface {
	ResolveAccount(ctx context.Context, accountID string) (*models.Account, error)
	FindRecordsByDateRange(ctx context.Context, accountID string, from, until time.Time) ([]*models.StoredRecord, error)
	InsertRecord(ctx context.Context, rec *models.StoredRecord) error
	UpdateRecord(ctx context.Context, rec *models.StoredRecord) error
	SoftDeleteRecord(ctx context.Context, recordID string) error
}
