// Package matcher implements the similarity scoring and the per-day greedy
// pairing between imported statement records and stored ledger records.
package matcher

import (
	"github.com/micromata/bankrecon/internal/models"
)

// ScoreImpossible is returned for record pairs that must never be matched,
// i.e. pairs whose calendar days differ.
const ScoreImpossible = -1

// MaxScore is the highest possible similarity score: the amount plus the ten
// text fields all agreeing.
const MaxScore = 11

// Score computes the similarity between an imported and a stored record as
// the number of agreeing fields.
//
// The amount agrees iff both sides carry one and the decimals are equal.
// A text field agrees iff both sides are non-empty and equal after
// normalization (ASCII letters folded to lowercase plus digits, everything
// else stripped); two blank fields never agree, so empty records do not
// score artificially high. All fields weigh the same.
func Score(imp *models.ImportedRecord, stored *models.StoredRecord) int {
	if !models.SameDay(imp.Date, stored.Date) {
		return ScoreImpossible
	}

	score := 0
	if imp.Amount != nil && stored.Amount != nil && imp.Amount.Equal(*stored.Amount) {
		score++
	}

	left := imp.MatchFields()
	right := stored.MatchFields()
	for i := range left {
		a := models.NormalizeForMatch(left[i])
		b := models.NormalizeForMatch(right[i])
		if a != "" && a == b {
			score++
		}
	}
	return score
}
