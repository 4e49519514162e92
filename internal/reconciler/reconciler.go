// Package reconciler drives the day-by-day reconciliation of imported bank
// statement records against the stored ledger of an account, and hosts the
// per-account job admission control around it.
package reconciler

import (
	"context"
	"sort"
	"time"

	"github.com/micromata/bankrecon/internal/matcher"
	"github.com/micromata/bankrecon/internal/models"
	"github.com/micromata/bankrecon/pkg/errors"
	"github.com/micromata/bankrecon/pkg/logger"
)

// RecordSource is the slice of the store the driver needs: account
// resolution and a date-range query. FindRecordsByDateRange must return
// non-deleted records ordered by date ascending, both bounds inclusive.
type RecordSource interface {
	ResolveAccount(ctx context.Context, accountID string) (*models.Account, error)
	FindRecordsByDateRange(ctx context.Context, accountID string, from, until time.Time) ([]*models.StoredRecord, error)
}

// ProgressFunc is invoked after each processed day with the number of days
// done and the total day count.
type ProgressFunc func(done, total int)

// Reconciler computes the pairing between imported and stored records. It
// holds no state between invocations; every call recomputes the full pairing
// from scratch, so re-running with unchanged inputs yields identical output.
type Reconciler struct {
	source   RecordSource
	log      logger.Logger
	progress ProgressFunc
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithProgress registers a per-day progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(r *Reconciler) { r.progress = fn }
}

// WithLogger replaces the default logger.
func WithLogger(log logger.Logger) Option {
	return func(r *Reconciler) { r.log = log }
}

// New creates a Reconciler reading stored records from the given source.
func New(source RecordSource, opts ...Option) *Reconciler {
	r := &Reconciler{
		source: source,
		log:    logger.WithComponent("reconciler"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile pairs the imported records against the account's stored records.
//
// Imported records without a date are dropped up front; the remainder is
// sorted by date ascending and defines the inclusive date span to fetch and
// iterate. An empty cleaned input yields an empty result. The target account
// is resolved before anything is fetched; an unknown account fails fast with
// no partial result. Cancellation is checked between day iterations.
//
// The output is grouped by date ascending; within a day, matched pairs come
// first in selection order, then insert candidates, then deletion candidates.
func (r *Reconciler) Reconcile(ctx context.Context, accountID string, imported []*models.ImportedRecord) ([]*models.PairEntry, error) {
	account, err := r.source.ResolveAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	cleaned := cleanImported(imported)
	if len(cleaned) == 0 {
		r.log.WithField("account_id", accountID).Info("Nothing to reconcile")
		return nil, nil
	}

	from := models.DayOf(cleaned[0].Date)
	until := models.DayOf(cleaned[len(cleaned)-1].Date)

	stored, err := r.source.FindRecordsByDateRange(ctx, accountID, from, until)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryReconciliation, errors.CodeProcessingError,
			"failed to fetch stored records")
	}

	total := int(until.Sub(from).Hours()/24) + 1
	r.log.WithFields(logger.Fields{
		"account_id": accountID,
		"from":       models.FormatISODay(from),
		"until":      models.FormatISODay(until),
		"imported":   len(cleaned),
		"stored":     len(stored),
		"days":       total,
	}).Info("Starting reconciliation")

	var entries []*models.PairEntry
	done := 0
	for day := from; !day.After(until); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.CategoryReconciliation, errors.CodeJobCancelled,
				"reconciliation cancelled").WithContext("account_id", accountID)
		}

		impDay := importedForDay(cleaned, day)
		stDay := storedForDay(stored, day)
		if len(impDay) > 0 || len(stDay) > 0 {
			entries = append(entries, matcher.MatchDay(account, impDay, stDay)...)
		}

		done++
		if r.progress != nil {
			r.progress(done, total)
		}
	}

	r.log.WithFields(logger.Fields{
		"account_id": accountID,
		"entries":    len(entries),
	}).Info("Reconciliation finished")

	return entries, nil
}

// cleanImported drops records without a date and returns the rest sorted by
// date ascending. Dropping is a filtering rule, not an error. The input
// slice is left untouched.
func cleanImported(imported []*models.ImportedRecord) []*models.ImportedRecord {
	cleaned := make([]*models.ImportedRecord, 0, len(imported))
	for _, rec := range imported {
		if rec != nil && !rec.Date.IsZero() {
			cleaned = append(cleaned, rec)
		}
	}
	sort.SliceStable(cleaned, func(i, j int) bool {
		return cleaned[i].Date.Before(cleaned[j].Date)
	})
	return cleaned
}

func importedForDay(records []*models.ImportedRecord, day time.Time) []*models.ImportedRecord {
	var result []*models.ImportedRecord
	for _, rec := range records {
		if models.SameDay(rec.Date, day) {
			result = append(result, rec)
		}
	}
	return result
}

func storedForDay(records []*models.StoredRecord, day time.Time) []*models.StoredRecord {
	var result []*models.StoredRecord
	for _, rec := range records {
		if models.SameDay(rec.Date, day) {
			result = append(result, rec)
		}
	}
	return result
}
