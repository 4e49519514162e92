package store

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/micromata/bankrecon/internal/checksum"
	"github.com/micromata/bankrecon/internal/models"
	"github.com/micromata/bankrecon/pkg/errors"
)

func writeTempLedger(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLedgerCSV_RoundTrip(t *testing.T) {
	ms := newStoreWithAccount(t)
	ctx := context.Background()

	records := []*models.StoredRecord{
		{
			ID:             "r1",
			AccountID:      "acc-1",
			Date:           day(2024, 3, 1),
			ValueDate:      day(2024, 3, 2),
			Amount:         amt("100.00"),
			Type:           "transfer",
			Subject:        "Invoice 42",
			Currency:       "EUR",
			ReceiverSender: "ACME GmbH",
			Iban:           "DE02120300000000202051",
			Bic:            "BYLADEM1001",
		},
		{
			ID:        "r2",
			AccountID: "acc-1",
			Date:      day(2024, 3, 3),
			Amount:    amt("-40.00"),
			Subject:   "Fees",
			Deleted:   true,
		},
	}
	for _, rec := range records {
		rec.Checksum = checksum.Compute(rec)
		if err := ms.InsertRecord(ctx, rec); err != nil {
			t.Fatalf("InsertRecord: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := WriteLedgerCSV(ms, "acc-1", &buf); err != nil {
		t.Fatalf("WriteLedgerCSV: %v", err)
	}

	path := writeTempLedger(t, buf.String())
	reread := NewMemoryStore()
	count, err := ReadLedgerCSV(reread, "acc-1", path)
	if err != nil {
		t.Fatalf("ReadLedgerCSV: %v", err)
	}
	if count != 2 {
		t.Fatalf("Expected 2 records, got %d", count)
	}

	all := reread.AllRecords("acc-1")
	if len(all) != 2 {
		t.Fatalf("Expected 2 stored records, got %d", len(all))
	}

	r1 := all[0]
	if r1.ID != "r1" || r1.Subject != "Invoice 42" || r1.ReceiverSender != "ACME GmbH" {
		t.Errorf("Round-trip lost fields: %+v", r1)
	}
	if r1.Amount == nil || r1.Amount.StringFixed(2) != "100.00" {
		t.Errorf("Round-trip changed the amount: %v", r1.Amount)
	}
	if !models.SameDay(r1.Date, day(2024, 3, 1)) || !models.SameDay(r1.ValueDate, day(2024, 3, 2)) {
		t.Error("Round-trip changed the dates")
	}
	if checksum.IsMismatch(r1) {
		t.Error("Checksum must survive the round trip intact")
	}
	if !all[1].Deleted {
		t.Error("Deleted flag must survive the round trip")
	}
}

func TestReadLedgerCSV_StampsMissingChecksum(t *testing.T) {
	header := strings.Join(ledgerHeader, ",")
	row := ledgerRow(map[string]string{"id": "r1", "date": "2024-03-01", "amount": "10.00"})
	path := writeTempLedger(t, header+"\n"+row+"\n")

	ms := NewMemoryStore()
	if _, err := ReadLedgerCSV(ms, "acc-1", path); err != nil {
		t.Fatalf("ReadLedgerCSV: %v", err)
	}

	rec := ms.AllRecords("acc-1")[0]
	if rec.Checksum == "" {
		t.Error("Expected a checksum to be stamped on load")
	}
	if checksum.IsMismatch(rec) {
		t.Error("Freshly stamped checksum must match the record")
	}
}

func TestReadLedgerCSV_MissingFile(t *testing.T) {
	ms := NewMemoryStore()

	_, err := ReadLedgerCSV(ms, "acc-1", filepath.Join(t.TempDir(), "nope.csv"))
	if !errors.Is(err, errors.CodeFileNotFound) {
		t.Errorf("Expected file_not_found, got %v", err)
	}
}

// ledgerRow builds a blank 17-column row with the given overrides.
func ledgerRow(overrides map[string]string) string {
	row := make([]string, len(ledgerHeader))
	for i, col := range ledgerHeader {
		row[i] = overrides[col]
	}
	return strings.Join(row, ",")
}

func TestReadLedgerCSV_RejectsBadAmount(t *testing.T) {
	header := strings.Join(ledgerHeader, ",")
	row := ledgerRow(map[string]string{"id": "r1", "date": "2024-03-01", "amount": "not-a-number"})
	path := writeTempLedger(t, header+"\n"+row+"\n")

	_, err := ReadLedgerCSV(NewMemoryStore(), "acc-1", path)
	if !errors.Is(err, errors.CodeInvalidAmount) {
		t.Errorf("Expected invalid_amount, got %v", err)
	}
}

func TestReadLedgerCSV_RejectsBadDate(t *testing.T) {
	header := strings.Join(ledgerHeader, ",")
	row := ledgerRow(map[string]string{"id": "r1", "date": "soon", "amount": "10.00"})
	path := writeTempLedger(t, header+"\n"+row+"\n")

	_, err := ReadLedgerCSV(NewMemoryStore(), "acc-1", path)
	if !errors.Is(err, errors.CodeInvalidDate) {
		t.Errorf("Expected invalid_date, got %v", err)
	}
}
