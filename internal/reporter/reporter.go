// Package reporter renders reconciliation results for human review on the
// console, or as JSON/CSV for further processing.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/micromata/bankrecon/internal/models"
	"github.com/micromata/bankrecon/internal/reconciler"
	"github.com/micromata/bankrecon/pkg/errors"
)

// Format selects the output rendering.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
)

// Config holds report options.
type Config struct {
	Format       Format
	IncludeStats bool
}

// DefaultConfig returns a console report with statistics.
func DefaultConfig() *Config {
	return &Config{Format: FormatConsole, IncludeStats: true}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Format {
	case FormatConsole, FormatJSON, FormatCSV:
		return nil
	default:
		return errors.Newf(errors.CategoryConfiguration, errors.CodeInvalidConfig,
			"invalid report format %q", c.Format)
	}
}

// Generator writes reconciliation reports.
type Generator struct {
	config *Config
}

// NewGenerator creates a Generator with the given configuration.
func NewGenerator(config *Config) (*Generator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Generator{config: config}, nil
}

// row is the flattened, serialization-friendly view of one pair entry.
type row struct {
	Status         string `json:"status"`
	Date           string `json:"date"`
	ImportedAmount string `json:"importedAmount,omitempty"`
	StoredAmount   string `json:"storedAmount,omitempty"`
	StoredID       string `json:"storedId,omitempty"`
	Subject        string `json:"subject,omitempty"`
	Note           string `json:"note,omitempty"`
}

func entryStatus(entry *models.PairEntry) string {
	switch {
	case entry.IsMatch():
		return "MATCH"
	case entry.IsInsertCandidate():
		return "NEW"
	default:
		return "DELETE"
	}
}

func buildRow(entry *models.PairEntry) row {
	r := row{
		Status: entryStatus(entry),
		Date:   models.FormatISODay(entry.Date()),
		Note:   entry.ErrorMessage,
	}
	if entry.Imported != nil {
		if entry.Imported.Amount != nil {
			r.ImportedAmount = entry.Imported.Amount.StringFixed(2)
		}
		r.Subject = entry.Imported.Subject
	}
	if entry.Stored != nil {
		if entry.Stored.Amount != nil {
			r.StoredAmount = entry.Stored.Amount.StringFixed(2)
		}
		r.StoredID = entry.Stored.ID
		if r.Subject == "" {
			r.Subject = entry.Stored.Subject
		}
	}
	return r
}

// report is the JSON output shape.
type report struct {
	Account string            `json:"account"`
	Entries []row             `json:"entries"`
	Stats   *reconciler.Stats `json:"stats,omitempty"`
}

// Write renders the entries for the given account to w. stats may be nil.
func (g *Generator) Write(w io.Writer, account *models.Account, entries []*models.PairEntry, stats *reconciler.Stats) error {
	rows := make([]row, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, buildRow(entry))
	}

	switch g.config.Format {
	case FormatJSON:
		return g.writeJSON(w, account, rows, stats)
	case FormatCSV:
		return g.writeCSV(w, rows)
	default:
		return g.writeConsole(w, account, rows, stats)
	}
}

func (g *Generator) writeJSON(w io.Writer, account *models.Account, rows []row, stats *reconciler.Stats) error {
	rep := report{Account: account.ID, Entries: rows}
	if g.config.IncludeStats {
		rep.Stats = stats
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(rep)
}

func (g *Generator) writeCSV(w io.Writer, rows []row) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"status", "date", "imported_amount", "stored_amount", "stored_id", "subject", "note"}); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{r.Status, r.Date, r.ImportedAmount, r.StoredAmount, r.StoredID, r.Subject, r.Note}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func (g *Generator) writeConsole(w io.Writer, account *models.Account, rows []row, stats *reconciler.Stats) error {
	fmt.Fprintf(w, "Reconciliation for account %s (%s)\n", account.ID, account.Iban)
	fmt.Fprintln(w, strings.Repeat("=", 72))

	if len(rows) == 0 {
		fmt.Fprintln(w, "No entries.")
		return nil
	}

	matches, inserts, deletions := 0, 0, 0
	for _, r := range rows {
		switch r.Status {
		case "MATCH":
			matches++
		case "NEW":
			inserts++
		default:
			deletions++
		}
		amount := r.ImportedAmount
		if amount == "" {
			amount = r.StoredAmount
		}
		fmt.Fprintf(w, "%-7s %-10s %12s  %s", r.Status, r.Date, amount, r.Subject)
		if r.Note != "" {
			fmt.Fprintf(w, "  [%s]", r.Note)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("-", 72))
	fmt.Fprintf(w, "%d matches, %d new, %d deletion candidates\n", matches, inserts, deletions)

	if g.config.IncludeStats && stats != nil {
		fmt.Fprintf(w, "Income: %s  Outgo: %s  Cashflow: %s\n",
			stats.Income.StringFixed(2), stats.Outgo.StringFixed(2), stats.Cashflow.StringFixed(2))
	}
	return nil
}
