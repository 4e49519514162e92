package reconciler

import (
	"github.com/shopspring/decimal"

	"github.com/micromata/bankrecon/internal/models"
)

// Stats aggregates the signed amounts of a record stream. Income is the sum
// of non-negative amounts, outgo the sum of negative amounts (naturally
// non-positive), cashflow their sum. Records without an amount are skipped.
type Stats struct {
	Income   decimal.Decimal `json:"income"`
	Outgo    decimal.Decimal `json:"outgo"`
	Cashflow decimal.Decimal `json:"cashflow"`
}

func aggregateAmounts(amounts []*decimal.Decimal) Stats {
	stats := Stats{
		Income: decimal.Zero,
		Outgo:  decimal.Zero,
	}
	for _, amount := range amounts {
		if amount == nil {
			continue
		}
		if amount.IsNegative() {
			stats.Outgo = stats.Outgo.Add(*amount)
		} else {
			stats.Income = stats.Income.Add(*amount)
		}
	}
	stats.Cashflow = stats.Income.Add(stats.Outgo)
	return stats
}

// AggregateImported sums the amounts of imported statement records.
func AggregateImported(records []*models.ImportedRecord) Stats {
	amounts := make([]*decimal.Decimal, 0, len(records))
	for _, rec := range records {
		amounts = append(amounts, rec.AmountValue())
	}
	return aggregateAmounts(amounts)
}

// AggregateStored sums the amounts of stored ledger records.
func AggregateStored(records []*models.StoredRecord) Stats {
	amounts := make([]*decimal.Decimal, 0, len(records))
	for _, rec := range records {
		amounts = append(amounts, rec.AmountValue())
	}
	return aggregateAmounts(amounts)
}
