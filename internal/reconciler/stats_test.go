package reconciler

import (
	"testing"

	"github.com/micromata/bankrecon/internal/models"
)

func TestAggregateImported(t *testing.T) {
	records := []*models.ImportedRecord{
		{Amount: amt("100.00")},
		{Amount: amt("-40.00")},
		{Amount: amt("-10.00")},
	}

	stats := AggregateImported(records)

	if got := stats.Income.String(); got != "100" {
		t.Errorf("Income = %s, want 100", got)
	}
	if got := stats.Outgo.String(); got != "-50" {
		t.Errorf("Outgo = %s, want -50", got)
	}
	if got := stats.Cashflow.String(); got != "50" {
		t.Errorf("Cashflow = %s, want 50", got)
	}
}

func TestAggregate_SkipsMissingAmounts(t *testing.T) {
	records := []*models.ImportedRecord{
		{Amount: amt("25.00")},
		{Subject: "no amount"},
	}

	stats := AggregateImported(records)

	if got := stats.Income.String(); got != "25" {
		t.Errorf("Income = %s, want 25", got)
	}
	if !stats.Outgo.IsZero() {
		t.Errorf("Outgo = %s, want 0", stats.Outgo)
	}
}

func TestAggregate_ZeroCountsAsIncome(t *testing.T) {
	stats := AggregateImported([]*models.ImportedRecord{{Amount: amt("0.00")}})

	if !stats.Income.IsZero() || !stats.Outgo.IsZero() || !stats.Cashflow.IsZero() {
		t.Errorf("Expected all-zero stats, got %+v", stats)
	}
}

func TestAggregateStored(t *testing.T) {
	records := []*models.StoredRecord{
		{Amount: amt("10.50")},
		{Amount: amt("-3.50")},
	}

	stats := AggregateStored(records)

	if got := stats.Cashflow.String(); got != "7" {
		t.Errorf("Cashflow = %s, want 7", got)
	}
}

func TestAggregate_Empty(t *testing.T) {
	stats := AggregateImported(nil)

	if !stats.Income.IsZero() || !stats.Outgo.IsZero() || !stats.Cashflow.IsZero() {
		t.Errorf("Expected zero stats for empty input, got %+v", stats)
	}
}
