package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/micromata/bankrecon/internal/models"
	"github.com/micromata/bankrecon/pkg/errors"
)

// MemoryStore is an in-memory Store used by the CLI and the tests. It is
// safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account
	records  map[string]*models.StoredRecord
	nextID   int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*models.Account),
		records:  make(map[string]*models.StoredRecord),
	}
}

// AddAccount registers an account.
func (ms *MemoryStore) AddAccount(account *models.Account) error {
	if err := account.Validate(); err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.accounts[account.ID] = account
	return nil
}

// ResolveAccount looks up an account by identifier.
func (ms *MemoryStore) ResolveAccount(ctx context.Context, accountID string) (*models.Account, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	account, ok := ms.accounts[accountID]
	if !ok {
		return nil, errors.AccountNotFound(accountID)
	}
	return account, nil
}

// FindRecordsByDateRange returns the account's non-deleted records whose
// date falls within [from, until], ordered by date ascending. Records
// without a date are never returned.
func (ms *MemoryStore) FindRecordsByDateRange(ctx context.Context, accountID string, from, until time.Time) ([]*models.StoredRecord, error) {
	from = models.DayOf(from)
	until = models.DayOf(until)

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var result []*models.StoredRecord
	for _, rec := range ms.records {
		if rec.AccountID != accountID || rec.Deleted || rec.Date.IsZero() {
			continue
		}
		day := models.DayOf(rec.Date)
		if day.Before(from) || day.After(until) {
			continue
		}
		result = append(result, rec)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// InsertRecord stores a new record, assigning an identifier if needed.
func (ms *MemoryStore) InsertRecord(ctx context.Context, rec *models.StoredRecord) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if rec.ID == "" {
		ms.nextID++
		rec.ID = fmt.Sprintf("rec-%d", ms.nextID)
	}
	if _, exists := ms.records[rec.ID]; exists {
		return errors.Newf(errors.CategoryValidation, errors.CodeInvalidData,
			"record %q already exists", rec.ID)
	}
	ms.records[rec.ID] = rec
	return nil
}

// UpdateRecord replaces an existing record.
func (ms *MemoryStore) UpdateRecord(ctx context.Context, rec *models.StoredRecord) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, exists := ms.records[rec.ID]; !exists {
		return errors.Newf(errors.CategoryValidation, errors.CodeInvalidData,
			"record %q not found", rec.ID)
	}
	ms.records[rec.ID] = rec
	return nil
}

// SoftDeleteRecord marks a record as deleted without removing it.
func (ms *MemoryStore) SoftDeleteRecord(ctx context.Context, recordID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	rec, exists := ms.records[recordID]
	if !exists {
		return errors.Newf(errors.CategoryValidation, errors.CodeInvalidData,
			"record %q not found", recordID)
	}
	rec.Deleted = true
	return nil
}

// AllRecords returns every record of the account, deleted ones included,
// ordered by date then identifier.
func (ms *MemoryStore) AllRecords(accountID string) []*models.StoredRecord {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var result []*models.StoredRecord
	for _, rec := range ms.records {
		if rec.AccountID == accountID {
			result = append(result, rec)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].ID < result[j].ID
	})
	return result
}
