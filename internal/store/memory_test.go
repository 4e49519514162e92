package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/micromata/bankrecon/internal/models"
	"github.com/micromata/bankrecon/pkg/errors"
)

func amt(s string) *decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newStoreWithAccount(t *testing.T) *MemoryStore {
	t.Helper()
	ms := NewMemoryStore()
	if err := ms.AddAccount(&models.Account{ID: "acc-1", Iban: "DE02120300000000202051"}); err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	return ms
}

func TestMemoryStore_ResolveAccount(t *testing.T) {
	ms := newStoreWithAccount(t)

	account, err := ms.ResolveAccount(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("ResolveAccount: %v", err)
	}
	if account.ID != "acc-1" {
		t.Errorf("Resolved wrong account: %q", account.ID)
	}

	_, err = ms.ResolveAccount(context.Background(), "nope")
	if !errors.Is(err, errors.CodeAccountNotFound) {
		t.Errorf("Expected account_not_found, got %v", err)
	}
}

func TestMemoryStore_FindRecordsByDateRange(t *testing.T) {
	ms := newStoreWithAccount(t)
	ctx := context.Background()

	records := []*models.StoredRecord{
		{ID: "b", AccountID: "acc-1", Date: day(2024, 3, 2), Amount: amt("2.00")},
		{ID: "a", AccountID: "acc-1", Date: day(2024, 3, 2), Amount: amt("1.00")},
		{ID: "c", AccountID: "acc-1", Date: day(2024, 3, 5), Amount: amt("3.00")},
		{ID: "early", AccountID: "acc-1", Date: day(2024, 2, 1), Amount: amt("4.00")},
		{ID: "gone", AccountID: "acc-1", Date: day(2024, 3, 3), Deleted: true},
		{ID: "undated", AccountID: "acc-1"},
		{ID: "other", AccountID: "acc-2", Date: day(2024, 3, 2)},
	}
	for _, rec := range records {
		if err := ms.InsertRecord(ctx, rec); err != nil {
			t.Fatalf("InsertRecord %s: %v", rec.ID, err)
		}
	}

	result, err := ms.FindRecordsByDateRange(ctx, "acc-1", day(2024, 3, 1), day(2024, 3, 5))
	if err != nil {
		t.Fatalf("FindRecordsByDateRange: %v", err)
	}

	var ids []string
	for _, rec := range result {
		ids = append(ids, rec.ID)
	}
	want := []string{"a", "b", "c"}
	if len(ids) != len(want) {
		t.Fatalf("Got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("Position %d: got %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestMemoryStore_InsertAssignsID(t *testing.T) {
	ms := newStoreWithAccount(t)

	rec := &models.StoredRecord{AccountID: "acc-1", Date: day(2024, 3, 1)}
	if err := ms.InsertRecord(context.Background(), rec); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}
	if rec.ID == "" {
		t.Error("Expected an assigned identifier")
	}
}

func TestMemoryStore_InsertDuplicateID(t *testing.T) {
	ms := newStoreWithAccount(t)
	ctx := context.Background()

	if err := ms.InsertRecord(ctx, &models.StoredRecord{ID: "r1", AccountID: "acc-1"}); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}
	err := ms.InsertRecord(ctx, &models.StoredRecord{ID: "r1", AccountID: "acc-1"})
	if !errors.Is(err, errors.CodeInvalidData) {
		t.Errorf("Expected invalid_data for duplicate id, got %v", err)
	}
}

func TestMemoryStore_SoftDelete(t *testing.T) {
	ms := newStoreWithAccount(t)
	ctx := context.Background()

	rec := &models.StoredRecord{ID: "r1", AccountID: "acc-1", Date: day(2024, 3, 1)}
	if err := ms.InsertRecord(ctx, rec); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}
	if err := ms.SoftDeleteRecord(ctx, "r1"); err != nil {
		t.Fatalf("SoftDeleteRecord: %v", err)
	}

	result, err := ms.FindRecordsByDateRange(ctx, "acc-1", day(2024, 3, 1), day(2024, 3, 1))
	if err != nil {
		t.Fatalf("FindRecordsByDateRange: %v", err)
	}
	if len(result) != 0 {
		t.Error("Soft-deleted record still returned by the range query")
	}

	all := ms.AllRecords("acc-1")
	if len(all) != 1 || !all[0].Deleted {
		t.Error("Soft-deleted record must stay visible in AllRecords")
	}
}

func TestMemoryStore_UpdateUnknownRecord(t *testing.T) {
	ms := newStoreWithAccount(t)

	err := ms.UpdateRecord(context.Background(), &models.StoredRecord{ID: "ghost"})
	if !errors.Is(err, errors.CodeInvalidData) {
		t.Errorf("Expected invalid_data, got %v", err)
	}
}
