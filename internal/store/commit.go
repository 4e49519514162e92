package store

import (
	"context"

	"github.com/micromata/bankrecon/internal/checksum"
	"github.com/micromata/bankrecon/internal/models"
	"github.com/micromata/bankrecon/pkg/logger"
)

// CommitSummary counts the persistence decisions applied by Commit.
type CommitSummary struct {
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`
}

// Commit persists the reviewer's accepted pairing decisions:
//
//   - both sides present and the imported side differs: the stored record is
//     overwritten, undeleted and its checksum re-stamped
//   - both sides present and identical: no-op
//   - imported side only: a new stored record is inserted with a freshly
//     computed checksum
//   - stored side only: the stored record is soft-deleted
//
// Entries are applied in order; the first store failure aborts the commit
// and is returned together with the counts applied so far.
func Commit(ctx context.Context, s Store, account *models.Account, entries []*models.PairEntry) (*CommitSummary, error) {
	log := logger.WithComponent("commit").WithField("account_id", account.ID)
	summary := &CommitSummary{}

	for _, entry := range entries {
		switch {
		case entry.IsMatch():
			if !entry.Stored.DiffersFrom(entry.Imported) {
				summary.Unchanged++
				continue
			}
			entry.Stored.ApplyImport(entry.Imported)
			entry.Stored.Checksum = checksum.Compute(entry.Stored)
			if err := s.UpdateRecord(ctx, entry.Stored); err != nil {
				return summary, err
			}
			summary.Updated++

		case entry.IsInsertCandidate():
			rec := models.NewStoredRecordFromImport(account.ID, entry.Imported)
			rec.Checksum = checksum.Compute(rec)
			if err := s.InsertRecord(ctx, rec); err != nil {
				return summary, err
			}
			summary.Inserted++

		case entry.IsDeletionCandidate():
			if err := s.SoftDeleteRecord(ctx, entry.Stored.ID); err != nil {
				return summary, err
			}
			summary.Deleted++
		}
	}

	log.WithFields(logger.Fields{
		"inserted":  summary.Inserted,
		"updated":   summary.Updated,
		"deleted":   summary.Deleted,
		"unchanged": summary.Unchanged,
	}).Info("Committed reconciliation decisions")

	return summary, nil
}
