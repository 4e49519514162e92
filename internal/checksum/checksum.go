// Package checksum computes and verifies the content hash stamped on stored
// bank records. The hash covers the fields a human could meaningfully edit,
// so a mismatch between the stamped value and a fresh computation flags an
// out-of-band modification. Two non-deleted records hashing to the same
// value are doublets.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/micromata/bankrecon/internal/models"
)

// Compute returns the SHA-256 hex digest of the record's canonical content
// string. The result depends only on the contributing field values, never on
// the record's identity or the previously stamped checksum.
func Compute(rec *models.StoredRecord) string {
	sum := sha256.Sum256([]byte(canonical(rec)))
	return hex.EncodeToString(sum[:])
}

// canonical builds the pipe-delimited string that is hashed. Field order is
// fixed; normalization keeps ASCII letters/digits only and is case-sensitive.
func canonical(rec *models.StoredRecord) string {
	amount := ""
	if rec.Amount != nil {
		amount = rec.Amount.StringFixed(2)
	}
	parts := []string{
		amount,
		models.NormalizeCompact(rec.Subject),
		models.NormalizeCompact(rec.ReceiverSender),
		models.NormalizeCompact(rec.Iban),
		models.NormalizeCompact(rec.Bic),
		rec.AccountID,
		models.FormatISODay(rec.Date),
		models.FormatISODay(rec.ValueDate),
	}
	return strings.Join(parts, "|")
}

// Ensure returns the record's checksum, computing and caching it if the
// record has none yet. An already stamped checksum is never recomputed here;
// re-stamping happens explicitly on commit.
func Ensure(rec *models.StoredRecord) string {
	if rec.Checksum == "" {
		rec.Checksum = Compute(rec)
	}
	return rec.Checksum
}

// IsMismatch reports whether the record's stamped checksum no longer matches
// a fresh computation over its current field values. Records without a
// stamped checksum cannot mismatch.
func IsMismatch(rec *models.StoredRecord) bool {
	return rec.Checksum != "" && rec.Checksum != Compute(rec)
}

// FindDoublets returns the groups of non-deleted records whose freshly
// computed checksums collide, i.e. content-identical duplicates. Each group
// preserves input order and has at least two members.
func FindDoublets(records []*models.StoredRecord) [][]*models.StoredRecord {
	byDigest := make(map[string][]*models.StoredRecord)
	var order []string

	for _, rec := range records {
		if rec == nil || rec.Deleted {
			continue
		}
		digest := Compute(rec)
		if _, seen := byDigest[digest]; !seen {
			order = append(order, digest)
		}
		byDigest[digest] = append(byDigest[digest], rec)
	}

	var doublets [][]*models.StoredRecord
	for _, digest := range order {
		if group := byDigest[digest]; len(group) > 1 {
			doublets = append(doublets, group)
		}
	}
	return doublets
}
