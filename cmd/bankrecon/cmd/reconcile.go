package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/micromata/bankrecon/internal/mapper"
	"github.com/micromata/bankrecon/internal/models"
	"github.com/micromata/bankrecon/internal/reconciler"
	"github.com/micromata/bankrecon/internal/reporter"
	"github.com/micromata/bankrecon/internal/store"
	"github.com/micromata/bankrecon/pkg/logger"
)

// Flags for the reconcile command
var (
	statementFile string
	ledgerFile    string
	accountID     string
	accountIban   string
	mappingFile   string
	outputFormat  string
	outputFile    string
	commitChanges bool
	ledgerOut     string
	showProgress  bool
	jobTimeout    time.Duration
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a bank statement file against the account ledger",
	Long: `Reconcile imports a bank statement CSV, pairs each imported record with
the most similar stored ledger record of the same day, and reports the
proposed matches, insert candidates and deletion candidates.

With --commit, every proposed decision is applied to the ledger: new records
are inserted with a fresh checksum, changed matches are overwritten and
re-stamped, and deletion candidates are soft-deleted. Without --commit the
tool only reports; a human is expected to review the pairing first.

Examples:
  # Review only
  bankrecon reconcile --statement stmt.csv --ledger ledger.csv \
    --account-iban DE02120300000000202051

  # Apply all proposed decisions and write the updated ledger
  bankrecon reconcile --statement stmt.csv --ledger ledger.csv \
    --account-iban DE02120300000000202051 --commit --ledger-out updated.csv

  # JSON report with a custom header mapping
  bankrecon reconcile --statement stmt.csv --ledger ledger.csv \
    --account-iban DE02... --mapping mapping.txt --output-format json`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringVarP(&statementFile, "statement", "s", "", "path to the bank statement CSV file (required)")
	reconcileCmd.Flags().StringVarP(&ledgerFile, "ledger", "l", "", "path to the account ledger CSV file (optional: empty ledger when omitted)")
	reconcileCmd.Flags().StringVar(&accountID, "account-id", "main", "account identifier")
	reconcileCmd.Flags().StringVar(&accountIban, "account-iban", "", "IBAN of the target account (required)")
	reconcileCmd.Flags().StringVar(&mappingFile, "mapping", "", "file holding 'field = pattern|pattern' header mapping lines")
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")
	reconcileCmd.Flags().BoolVar(&commitChanges, "commit", false, "apply all proposed decisions to the ledger")
	reconcileCmd.Flags().StringVar(&ledgerOut, "ledger-out", "", "path to write the updated ledger after --commit")
	reconcileCmd.Flags().BoolVar(&showProgress, "progress", false, "show per-day progress")
	reconcileCmd.Flags().DurationVar(&jobTimeout, "timeout", 10*time.Minute, "wall-clock ceiling for the whole run")

	reconcileCmd.MarkFlagRequired("statement")
	reconcileCmd.MarkFlagRequired("account-iban")

	viper.BindPFlag("statement", reconcileCmd.Flags().Lookup("statement"))
	viper.BindPFlag("ledger", reconcileCmd.Flags().Lookup("ledger"))
	viper.BindPFlag("account-id", reconcileCmd.Flags().Lookup("account-id"))
	viper.BindPFlag("account-iban", reconcileCmd.Flags().Lookup("account-iban"))
	viper.BindPFlag("mapping", reconcileCmd.Flags().Lookup("mapping"))
	viper.BindPFlag("output-format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", reconcileCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("timeout", reconcileCmd.Flags().Lookup("timeout"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	statementFile = viper.GetString("statement")
	ledgerFile = viper.GetString("ledger")
	accountID = viper.GetString("account-id")
	accountIban = viper.GetString("account-iban")
	mappingFile = viper.GetString("mapping")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	if viper.IsSet("timeout") {
		jobTimeout = viper.GetDuration("timeout")
	}

	if statementFile == "" {
		return fmt.Errorf("statement file is required")
	}
	if accountIban == "" {
		return fmt.Errorf("account-iban is required")
	}
	if err := validateFileExists(statementFile, "statement file"); err != nil {
		return err
	}
	if ledgerFile != "" {
		if err := validateFileExists(ledgerFile, "ledger file"); err != nil {
			return err
		}
	}
	if mappingFile != "" {
		if err := validateFileExists(mappingFile, "mapping file"); err != nil {
			return err
		}
	}

	validFormats := map[string]bool{"console": true, "json": true, "csv": true}
	if !validFormats[outputFormat] {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", outputFormat)
	}

	if ledgerOut != "" && !commitChanges {
		return fmt.Errorf("--ledger-out requires --commit")
	}
	return nil
}

func validateFileExists(filePath, description string) error {
	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}
	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	log := logger.WithComponent("cli")

	account := &models.Account{
		ID:   accountID,
		Iban: accountIban,
	}

	ms := store.NewMemoryStore()
	if err := ms.AddAccount(account); err != nil {
		return err
	}
	if ledgerFile != "" {
		count, err := store.ReadLedgerCSV(ms, account.ID, ledgerFile)
		if err != nil {
			return fmt.Errorf("failed to load ledger: %w", err)
		}
		log.WithField("records", count).Debug("Ledger loaded")
	}

	imported, stats, err := parseStatement(account)
	if err != nil {
		return err
	}
	for _, finding := range stats.Findings {
		log.Warn(finding)
	}

	var opts []reconciler.Option
	if showProgress {
		opts = append(opts, reconciler.WithProgress(func(done, total int) {
			fmt.Fprintf(os.Stderr, "\r[%d/%d days]", done, total)
		}))
	}
	rec := reconciler.New(ms, opts...)

	runner := reconciler.NewJobRunner(jobTimeout)
	var entries []*models.PairEntry
	err = runner.Run(ctx, account.ID, func(ctx context.Context) error {
		var runErr error
		entries, runErr = rec.Reconcile(ctx, account.ID, imported)
		return runErr
	})
	if showProgress {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	if commitChanges {
		summary, err := store.Commit(ctx, ms, account, entries)
		if err != nil {
			return fmt.Errorf("commit failed: %w", err)
		}
		log.WithFields(logger.Fields{
			"inserted": summary.Inserted,
			"updated":  summary.Updated,
			"deleted":  summary.Deleted,
		}).Info("Ledger updated")

		if ledgerOut != "" {
			out, err := os.Create(ledgerOut)
			if err != nil {
				return fmt.Errorf("failed to create ledger output: %w", err)
			}
			defer out.Close()
			if err := store.WriteLedgerCSV(ms, account.ID, out); err != nil {
				return fmt.Errorf("failed to write ledger: %w", err)
			}
		}
	}

	return writeReport(account, entries, imported)
}

func parseStatement(account *models.Account) ([]*models.ImportedRecord, *mapper.ParseStats, error) {
	mapping := mapper.Mapping(nil)
	if mappingFile != "" {
		blob, err := os.ReadFile(mappingFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read mapping file: %w", err)
		}
		mapping, err = mapper.ParseSettings(string(blob))
		if err != nil {
			return nil, nil, err
		}
	} else if account.ImportSettings != "" {
		var err error
		mapping, err = mapper.ParseSettings(account.ImportSettings)
		if err != nil {
			return nil, nil, err
		}
	}

	m, err := mapper.New(mapping)
	if err != nil {
		return nil, nil, err
	}

	file, err := os.Open(statementFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open statement file: %w", err)
	}
	defer file.Close()

	return m.Parse(file)
}

func writeReport(account *models.Account, entries []*models.PairEntry, imported []*models.ImportedRecord) error {
	config := &reporter.Config{
		Format:       reporter.Format(outputFormat),
		IncludeStats: true,
	}
	generator, err := reporter.NewGenerator(config)
	if err != nil {
		return err
	}

	out := os.Stdout
	if outputFile != "" {
		out, err = os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer out.Close()
	}

	stats := reconciler.AggregateImported(imported)
	return generator.Write(out, account, entries, &stats)
}
