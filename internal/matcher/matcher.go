package matcher

import (
	"github.com/micromata/bankrecon/internal/models"
	"github.com/micromata/bankrecon/pkg/logger"
)

// MessageForeignAccount is attached as a non-fatal note to entries whose
// counterparty IBAN is blank or does not belong to the target account.
const MessageForeignAccount = "record belongs to a different bank account"

// matchMatrix holds the similarity score for every (imported, stored)
// combination within a single day. It is built fresh per day and discarded
// after that day's pairing.
type matchMatrix struct {
	scores [][]int
	m, n   int
}

func buildMatrix(imported []*models.ImportedRecord, stored []*models.StoredRecord) *matchMatrix {
	mm := &matchMatrix{
		scores: make([][]int, len(imported)),
		m:      len(imported),
		n:      len(stored),
	}
	for i, imp := range imported {
		row := make([]int, len(stored))
		for j, rec := range stored {
			row[j] = Score(imp, rec)
		}
		mm.scores[i] = row
	}
	return mm
}

// bestUntaken scans all untaken cells in row-major order and returns the
// first cell carrying the maximum score. The strict comparison keeps the
// earliest cell on ties, which makes the pairing deterministic.
func (mm *matchMatrix) bestUntaken(rowTaken, colTaken []bool) (bestI, bestJ, bestScore int) {
	bestI, bestJ, bestScore = -1, -1, ScoreImpossible
	for i := 0; i < mm.m; i++ {
		if rowTaken[i] {
			continue
		}
		for j := 0; j < mm.n; j++ {
			if colTaken[j] {
				continue
			}
			if mm.scores[i][j] > bestScore {
				bestI, bestJ, bestScore = i, j, mm.scores[i][j]
			}
		}
	}
	return bestI, bestJ, bestScore
}

// MatchDay pairs the imported and stored records of a single calendar day.
//
// Pairs are selected greedily by descending score: each round takes the
// globally best untaken cell (row-major scan order on ties) until no cell
// scores at least 1, i.e. until no field agreement remains. Records left
// over become one-sided entries: imported-only entries are insert
// candidates, stored-only entries are deletion candidates.
//
// A post-pass attaches an advisory message to every entry with an imported
// side whose counterparty IBAN is blank or not contained in the target
// account's IBAN. The entry stays in the result; the reviewer decides.
func MatchDay(account *models.Account, imported []*models.ImportedRecord, stored []*models.StoredRecord) []*models.PairEntry {
	if len(imported) == 0 {
		entries := make([]*models.PairEntry, 0, len(stored))
		for _, rec := range stored {
			entries = append(entries, &models.PairEntry{Stored: rec})
		}
		return entries
	}

	mm := buildMatrix(imported, stored)
	rowTaken := make([]bool, mm.m)
	colTaken := make([]bool, mm.n)

	var entries []*models.PairEntry

	// The taken sets shrink every round, so m+n+1 rounds can never be
	// reached; the bound guards against logic errors only.
	for round := 0; round < mm.m+mm.n+1; round++ {
		i, j, score := mm.bestUntaken(rowTaken, colTaken)
		if score < 1 {
			break
		}
		rowTaken[i] = true
		colTaken[j] = true
		entries = append(entries, &models.PairEntry{
			Imported: imported[i],
			Stored:   stored[j],
		})
	}

	matched := len(entries)
	for i, imp := range imported {
		if !rowTaken[i] {
			entries = append(entries, &models.PairEntry{Imported: imp})
		}
	}
	for j, rec := range stored {
		if !colTaken[j] {
			entries = append(entries, &models.PairEntry{Stored: rec})
		}
	}

	for _, entry := range entries {
		if entry.Imported != nil && !account.HoldsIban(entry.Imported.Iban) {
			entry.ErrorMessage = MessageForeignAccount
		}
	}

	logger.WithComponent("matcher").WithFields(logger.Fields{
		"imported": len(imported),
		"stored":   len(stored),
		"matched":  matched,
	}).Debug("Matched records for day")

	return entries
}
