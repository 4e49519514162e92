// Package models defines the record types flowing through the bank-statement
// reconciliation engine and the normalization helpers shared by the scorer
// and the checksum module.
//
// Two record shapes exist:
//   - ImportedRecord: one line read from an external bank statement file,
//     ephemeral, never persisted as-is
//   - StoredRecord: a transaction previously committed to an account's
//     ledger, carrying identity, ownership and a content checksum
//
// Dates are calendar days: UTC-midnight time.Time values produced by DayOf.
// A zero time means "no date". Amounts are *decimal.Decimal; nil means
// "no amount".
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ISODateFormat is the layout used for day-precision dates everywhere in
// this module (checksums, reports, ledger files).
const ISODateFormat = "2006-01-02"

// DayOf truncates a timestamp to its calendar day in UTC.
// A zero input stays zero.
func DayOf(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar day.
// Two zero times are not the same day.
func SameDay(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	return DayOf(a).Equal(DayOf(b))
}

// FormatISODay renders a day as YYYY-MM-DD, or "" for a zero time.
func FormatISODay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(ISODateFormat)
}

// NormalizeCompact strips everything except ASCII letters and digits,
// preserving case. Used by the checksum module, which guards against
// manual edits rather than performing fuzzy matching.
func NormalizeCompact(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeForMatch strips everything except ASCII letters and digits and
// folds letters to lowercase. Used by the record scorer and the IBAN
// containment check.
func NormalizeForMatch(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	return b.String()
}

// ImportedRecord is one transaction line read from an external bank
// statement file after header mapping. It has no identity and is discarded
// after the reconciliation pass unless promoted into a StoredRecord on
// commit.
type ImportedRecord struct {
	Date      time.Time        `json:"date"`
	ValueDate time.Time        `json:"valueDate,omitempty"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`

	Type                string `json:"type,omitempty"`
	Subject             string `json:"subject,omitempty"`
	Currency            string `json:"currency,omitempty"`
	DebteeID            string `json:"debteeId,omitempty"`
	MandateReference    string `json:"mandateReference,omitempty"`
	CustomerReference   string `json:"customerReference,omitempty"`
	CollectionReference string `json:"collectionReference,omitempty"`
	Info                string `json:"info,omitempty"`
	ReceiverSender      string `json:"receiverSender,omitempty"`
	Iban                string `json:"iban,omitempty"`
	Bic                 string `json:"bic,omitempty"`
}

// AmountValue returns the signed amount, or nil when the record has none.
func (r *ImportedRecord) AmountValue() *decimal.Decimal {
	return r.Amount
}

// MatchFields returns the text fields contributing to the similarity score,
// in the fixed order shared with StoredRecord.MatchFields.
func (r *ImportedRecord) MatchFields() []string {
	return []string{
		r.Subject,
		r.Currency,
		r.DebteeID,
		r.MandateReference,
		r.CustomerReference,
		r.CollectionReference,
		r.Info,
		r.ReceiverSender,
		r.Iban,
		r.Bic,
	}
}

// String returns a compact representation for logs.
func (r *ImportedRecord) String() string {
	amount := "<nil>"
	if r.Amount != nil {
		amount = r.Amount.StringFixed(2)
	}
	return fmt.Sprintf("ImportedRecord{Date: %s, Amount: %s, Subject: %q}",
		FormatISODay(r.Date), amount, r.Subject)
}

// StoredRecord is a transaction committed to an account's ledger. It belongs
// to exactly one account, can be soft-deleted, and carries a checksum over
// its content so that out-of-band edits are detectable.
type StoredRecord struct {
	ID        string `json:"id"`
	AccountID string `json:"accountId"`
	Deleted   bool   `json:"deleted,omitempty"`
	Checksum  string `json:"checksum,omitempty"`

	Date      time.Time        `json:"date"`
	ValueDate time.Time        `json:"valueDate,omitempty"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`

	Type                string `json:"type,omitempty"`
	Subject             string `json:"subject,omitempty"`
	Currency            string `json:"currency,omitempty"`
	DebteeID            string `json:"debteeId,omitempty"`
	MandateReference    string `json:"mandateReference,omitempty"`
	CustomerReference   string `json:"customerReference,omitempty"`
	CollectionReference string `json:"collectionReference,omitempty"`
	Info                string `json:"info,omitempty"`
	ReceiverSender      string `json:"receiverSender,omitempty"`
	Iban                string `json:"iban,omitempty"`
	Bic                 string `json:"bic,omitempty"`
}

// AmountValue returns the signed amount, or nil when the record has none.
func (r *StoredRecord) AmountValue() *decimal.Decimal {
	return r.Amount
}

// MatchFields returns the text fields contributing to the similarity score,
// in the fixed order shared with ImportedRecord.MatchFields.
func (r *StoredRecord) MatchFields() []string {
	return []string{
		r.Subject,
		r.Currency,
		r.DebteeID,
		r.MandateReference,
		r.CustomerReference,
		r.CollectionReference,
		r.Info,
		r.ReceiverSender,
		r.Iban,
		r.Bic,
	}
}

// DiffersFrom reports whether committing imp onto this record would change
// any of its content fields. Used to distinguish update commits from no-ops.
func (r *StoredRecord) DiffersFrom(imp *ImportedRecord) bool {
	if !amountsEqual(r.Amount, imp.Amount) {
		return true
	}
	if !daysEqual(r.Date, imp.Date) || !daysEqual(r.ValueDate, imp.ValueDate) {
		return true
	}
	left := r.MatchFields()
	right := imp.MatchFields()
	for i := range left {
		if left[i] != right[i] {
			return true
		}
	}
	return r.Type != imp.Type
}

// ApplyImport overwrites the record's content fields with the imported
// record's values and clears the soft-delete flag. The checksum is NOT
// touched here; commit re-stamps it explicitly.
func (r *StoredRecord) ApplyImport(imp *ImportedRecord) {
	r.Date = DayOf(imp.Date)
	r.ValueDate = DayOf(imp.ValueDate)
	r.Amount = imp.Amount
	r.Type = imp.Type
	r.Subject = imp.Subject
	r.Currency = imp.Currency
	r.DebteeID = imp.DebteeID
	r.MandateReference = imp.MandateReference
	r.CustomerReference = imp.CustomerReference
	r.CollectionReference = imp.CollectionReference
	r.Info = imp.Info
	r.ReceiverSender = imp.ReceiverSender
	r.Iban = imp.Iban
	r.Bic = imp.Bic
	r.Deleted = false
}

// String returns a compact representation for logs.
func (r *StoredRecord) String() string {
	amount := "<nil>"
	if r.Amount != nil {
		amount = r.Amount.StringFixed(2)
	}
	return fmt.Sprintf("StoredRecord{ID: %s, Date: %s, Amount: %s, Subject: %q}",
		r.ID, FormatISODay(r.Date), amount, r.Subject)
}

// NewStoredRecordFromImport promotes an imported record into a stored record
// owned by the given account. The caller stamps the checksum.
func NewStoredRecordFromImport(accountID string, imp *ImportedRecord) *StoredRecord {
	rec := &StoredRecord{AccountID: accountID}
	rec.ApplyImport(imp)
	return rec
}

func amountsEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func daysEqual(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return a.IsZero() && b.IsZero()
	}
	return DayOf(a).Equal(DayOf(b))
}

// Account identifies the ledger a reconciliation pass is scoped to.
type Account struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Iban     string `json:"iban"`
	Bic      string `json:"bic,omitempty"`
	BankName string `json:"bankName,omitempty"`

	// ImportSettings holds the field-name -> accepted-header-pattern
	// mapping consumed by the statement mapper.
	ImportSettings string `json:"importSettings,omitempty"`
}

// Validate performs basic validation on the Account.
func (a *Account) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("account id cannot be empty")
	}
	if strings.TrimSpace(a.Iban) == "" {
		return fmt.Errorf("account %s has no IBAN", a.ID)
	}
	return nil
}

// HoldsIban reports whether the given counterparty IBAN plausibly belongs to
// this account: the record IBAN, normalized, must be non-empty and contained
// in the account's normalized IBAN (superset containment).
func (a *Account) HoldsIban(iban string) bool {
	norm := NormalizeForMatch(iban)
	if norm == "" {
		return false
	}
	return strings.Contains(NormalizeForMatch(a.Iban), norm)
}

// PairEntry is one line of reconciliation output: a proposed match when both
// sides are present, an insert candidate when only the imported side is, and
// a deletion candidate when only the stored side is. Both sides absent is
// never produced.
type PairEntry struct {
	Imported *ImportedRecord `json:"imported,omitempty"`
	Stored   *StoredRecord   `json:"stored,omitempty"`

	// ErrorMessage carries a non-fatal data-quality note, e.g. a
	// counterparty IBAN that does not belong to the target account.
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// IsMatch reports whether both sides are present.
func (p *PairEntry) IsMatch() bool {
	return p.Imported != nil && p.Stored != nil
}

// IsInsertCandidate reports whether only the imported side is present.
func (p *PairEntry) IsInsertCandidate() bool {
	return p.Imported != nil && p.Stored == nil
}

// IsDeletionCandidate reports whether only the stored side is present.
func (p *PairEntry) IsDeletionCandidate() bool {
	return p.Imported == nil && p.Stored != nil
}

// Date returns the calendar day this entry belongs to, preferring the
// imported side.
func (p *PairEntry) Date() time.Time {
	if p.Imported != nil {
		return DayOf(p.Imported.Date)
	}
	if p.Stored != nil {
		return DayOf(p.Stored.Date)
	}
	return time.Time{}
}
