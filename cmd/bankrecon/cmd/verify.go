package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/micromata/bankrecon/internal/checksum"
	"github.com/micromata/bankrecon/internal/models"
	"github.com/micromata/bankrecon/internal/store"
	"github.com/micromata/bankrecon/pkg/logger"
)

var (
	verifyLedger  string
	verifyAccount string
	verifyIban    string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check a ledger for tampered and duplicated records",
	Long: `Verify recomputes the content checksum of every record in the ledger and
reports two kinds of findings:

  - tamper: the stamped checksum no longer matches the record's fields,
    indicating an out-of-band edit
  - doublet: two distinct records hash to the same checksum, indicating a
    duplicated entry

Findings are advisory; nothing is corrected automatically.`,

	PreRunE: func(cmd *cobra.Command, args []string) error {
		verifyLedger = viper.GetString("verify-ledger")
		if verifyLedger == "" {
			return fmt.Errorf("ledger file is required")
		}
		return validateFileExists(verifyLedger, "ledger file")
	},
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVarP(&verifyLedger, "ledger", "l", "", "path to the account ledger CSV file (required)")
	verifyCmd.Flags().StringVar(&verifyAccount, "account-id", "main", "account identifier")
	verifyCmd.Flags().StringVar(&verifyIban, "account-iban", "DE00000000000000000000", "IBAN of the account")

	verifyCmd.MarkFlagRequired("ledger")

	viper.BindPFlag("verify-ledger", verifyCmd.Flags().Lookup("ledger"))
}

func runVerify(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("verify")

	ms := store.NewMemoryStore()
	if err := ms.AddAccount(&models.Account{ID: verifyAccount, Iban: verifyIban}); err != nil {
		return err
	}
	count, err := store.ReadLedgerCSV(ms, verifyAccount, verifyLedger)
	if err != nil {
		return fmt.Errorf("failed to load ledger: %w", err)
	}

	records := ms.AllRecords(verifyAccount)

	tampered := 0
	for _, rec := range records {
		if rec.Deleted {
			continue
		}
		if checksum.IsMismatch(rec) {
			tampered++
			fmt.Fprintf(os.Stdout, "TAMPER  %s %s %s %q\n",
				rec.ID, models.FormatISODay(rec.Date), amountString(rec), rec.Subject)
		}
	}

	doublets := checksum.FindDoublets(records)
	for _, group := range doublets {
		ids := make([]string, 0, len(group))
		for _, rec := range group {
			ids = append(ids, rec.ID)
		}
		fmt.Fprintf(os.Stdout, "DOUBLET %v %s %q\n",
			ids, models.FormatISODay(group[0].Date), group[0].Subject)
	}

	log.WithFields(logger.Fields{
		"records":  count,
		"tampered": tampered,
		"doublets": len(doublets),
	}).Info("Ledger verification finished")

	if tampered == 0 && len(doublets) == 0 {
		fmt.Fprintln(os.Stdout, "Ledger is clean.")
	}
	return nil
}

func amountString(rec *models.StoredRecord) string {
	if rec.Amount == nil {
		return "-"
	}
	return rec.Amount.StringFixed(2)
}
