package store

import (
	"context"
	"encoding/csv"
	"io"
	"os"

	"github.com/micromata/bankrecon/internal/checksum"
	"github.com/micromata/bankrecon/internal/models"
	"github.com/micromata/bankrecon/pkg/errors"
	"github.com/micromata/bankrecon/pkg/logger"
)

// ledgerHeader is the fixed column layout of ledger CSV files read and
// written by the CLI.
var ledgerHeader = []string{
	"id", "date", "value_date", "amount", "type", "subject", "currency",
	"debtee_id", "mandate_reference", "customer_reference",
	"collection_reference", "info", "receiver_sender", "iban", "bic",
	"checksum", "deleted",
}

// ReadLedgerCSV loads stored records for the given account from a ledger CSV
// file into the store. Rows with an unparsable date or amount are rejected;
// the ledger is the system's own output, so it must be well-formed.
func ReadLedgerCSV(ms *MemoryStore, accountID, path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		return 0, errors.FileError(errors.CodeFilePermission, path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(ledgerHeader)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return 0, errors.ParseError(errors.CodeInvalidFormat, 1, "header", "", err)
	}
	if len(header) != len(ledgerHeader) {
		return 0, errors.ParseError(errors.CodeMissingColumn, 1, "header", "",
			nil).WithSuggestion("ledger files carry the fixed 17-column layout written by this tool")
	}

	count := 0
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return count, errors.ParseError(errors.CodeInvalidFormat, line, "row", "", err)
		}

		rec := &models.StoredRecord{
			ID:                  row[0],
			AccountID:           accountID,
			Type:                row[4],
			Subject:             row[5],
			Currency:            row[6],
			DebteeID:            row[7],
			MandateReference:    row[8],
			CustomerReference:   row[9],
			CollectionReference: row[10],
			Info:                row[11],
			ReceiverSender:      row[12],
			Iban:                row[13],
			Bic:                 row[14],
			Checksum:            row[15],
			Deleted:             row[16] == "true",
		}

		if row[1] != "" {
			day, err := models.ParseDay(row[1])
			if err != nil {
				return count, errors.ParseError(errors.CodeInvalidDate, line, "date", row[1], err)
			}
			rec.Date = day
		}
		if row[2] != "" {
			day, err := models.ParseDay(row[2])
			if err != nil {
				return count, errors.ParseError(errors.CodeInvalidDate, line, "value_date", row[2], err)
			}
			rec.ValueDate = day
		}
		if row[3] != "" {
			amount, err := models.ParseAmount(row[3])
			if err != nil {
				return count, errors.ParseError(errors.CodeInvalidAmount, line, "amount", row[3], err)
			}
			rec.Amount = &amount
		}

		// Older ledger files may predate checksums; stamp those once.
		checksum.Ensure(rec)

		if err := ms.InsertRecord(context.Background(), rec); err != nil {
			return count, err
		}
		count++
	}

	logger.WithComponent("ledger").WithFields(logger.Fields{
		"file":       path,
		"account_id": accountID,
		"records":    count,
	}).Debug("Loaded ledger file")

	return count, nil
}

// WriteLedgerCSV writes the account's records (deleted ones included) to w
// in the fixed ledger layout.
func WriteLedgerCSV(ms *MemoryStore, accountID string, w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(ledgerHeader); err != nil {
		return err
	}

	for _, rec := range ms.AllRecords(accountID) {
		amount := ""
		if rec.Amount != nil {
			amount = rec.Amount.StringFixed(2)
		}
		deleted := "false"
		if rec.Deleted {
			deleted = "true"
		}
		row := []string{
			rec.ID,
			models.FormatISODay(rec.Date),
			models.FormatISODay(rec.ValueDate),
			amount,
			rec.Type,
			rec.Subject,
			rec.Currency,
			rec.DebteeID,
			rec.MandateReference,
			rec.CustomerReference,
			rec.CollectionReference,
			rec.Info,
			rec.ReceiverSender,
			rec.Iban,
			rec.Bic,
			rec.Checksum,
			deleted,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
