// Package mapper turns bank statement CSV files into imported records.
//
// Banks name their columns freely, so the mapping from CSV headers to record
// fields is configured as glob-style patterns ('*' and '?') per field,
// matched case-insensitively. Compiled patterns are cached per mapper
// instance behind a mutex; there is no process-wide pattern cache.
package mapper

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/micromata/bankrecon/internal/models"
	"github.com/micromata/bankrecon/pkg/errors"
	"github.com/micromata/bankrecon/pkg/logger"
)

// Field names accepted in a Mapping.
const (
	FieldDate                = "date"
	FieldValueDate           = "valueDate"
	FieldAmount              = "amount"
	FieldType                = "type"
	FieldSubject             = "subject"
	FieldCurrency            = "currency"
	FieldDebteeID            = "debteeId"
	FieldMandateReference    = "mandateReference"
	FieldCustomerReference   = "customerReference"
	FieldCollectionReference = "collectionReference"
	FieldInfo                = "info"
	FieldReceiverSender      = "receiverSender"
	FieldIban                = "iban"
	FieldBic                 = "bic"
)

var knownFields = map[string]bool{
	FieldDate: true, FieldValueDate: true, FieldAmount: true, FieldType: true,
	FieldSubject: true, FieldCurrency: true, FieldDebteeID: true,
	FieldMandateReference: true, FieldCustomerReference: true,
	FieldCollectionReference: true, FieldInfo: true,
	FieldReceiverSender: true, FieldIban: true, FieldBic: true,
}

// fieldOrder fixes the order in which headers are matched against fields.
// A header whose name matches patterns of two different fields must always
// resolve to the same one, independent of map iteration order.
var fieldOrder = []string{
	FieldDate, FieldValueDate, FieldAmount, FieldType, FieldSubject,
	FieldCurrency, FieldDebteeID, FieldMandateReference,
	FieldCustomerReference, FieldCollectionReference, FieldInfo,
	FieldReceiverSender, FieldIban, FieldBic,
}

// Mapping assigns each record field the header patterns that select it.
type Mapping map[string][]string

// DefaultMapping covers the header names commonly found in German and
// English statement exports.
func DefaultMapping() Mapping {
	return Mapping{
		FieldDate:                {"date", "buchungstag", "booking*date"},
		FieldValueDate:           {"value*date", "valuta*", "wertstellung*"},
		FieldAmount:              {"amount", "betrag*"},
		FieldType:                {"type", "buchungstext", "transaction*type"},
		FieldSubject:             {"subject", "verwendungszweck", "description", "purpose"},
		FieldCurrency:            {"currency", "waehrung", "währung"},
		FieldDebteeID:            {"debtee*", "glaeubiger*", "gläubiger*", "creditor*id"},
		FieldMandateReference:    {"mandate*", "mandats*"},
		FieldCustomerReference:   {"customer*ref*", "kundenreferenz*"},
		FieldCollectionReference: {"collection*ref*", "sammler*"},
		FieldInfo:                {"info*", "notiz*"},
		FieldReceiverSender:      {"receiver*", "beguenstigter*", "begünstigter*", "payee", "auftraggeber*"},
		FieldIban:                {"iban", "*iban*"},
		FieldBic:                 {"bic", "*bic*", "swift*"},
	}
}

// Validate checks that the mapping only names known fields and that every
// pattern compiles.
func (m Mapping) Validate() error {
	for field, patterns := range m {
		if !knownFields[field] {
			return errors.Newf(errors.CategoryConfiguration, errors.CodeInvalidMapping,
				"unknown record field %q in header mapping", field)
		}
		for _, pattern := range patterns {
			if _, err := compileGlob(pattern); err != nil {
				return errors.MappingError(field, pattern, err)
			}
		}
	}
	return nil
}

// Mapper parses statement CSV files. Safe for concurrent use.
type Mapper struct {
	mapping Mapping
	log     logger.Logger

	mu    sync.Mutex
	cache map[string]*regexp.Regexp
}

// New creates a Mapper for the given header mapping; a nil mapping selects
// DefaultMapping.
func New(mapping Mapping) (*Mapper, error) {
	if mapping == nil {
		mapping = DefaultMapping()
	}
	if err := mapping.Validate(); err != nil {
		return nil, err
	}
	return &Mapper{
		mapping: mapping,
		log:     logger.WithComponent("mapper"),
		cache:   make(map[string]*regexp.Regexp),
	}, nil
}

// compileGlob translates a glob pattern ('*' any run, '?' any single
// character) into an anchored case-insensitive regexp.
func compileGlob(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?i)^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// pattern returns the compiled regexp for a glob, reading or inserting into
// the instance cache under the mutex.
func (m *Mapper) pattern(glob string) (*regexp.Regexp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if re, ok := m.cache[glob]; ok {
		return re, nil
	}
	re, err := compileGlob(glob)
	if err != nil {
		return nil, err
	}
	m.cache[glob] = re
	return re, nil
}

// FieldForHeader resolves a CSV header to the record field it feeds, or
// ok=false when no pattern of any field accepts it. Fields are tried in the
// fixed fieldOrder; the first field with a matching pattern wins.
func (m *Mapper) FieldForHeader(header string) (field string, ok bool) {
	header = strings.TrimSpace(header)
	for _, field := range fieldOrder {
		for _, glob := range m.mapping[field] {
			re, err := m.pattern(glob)
			if err != nil {
				continue // rejected by Validate already; defensive here
			}
			if re.MatchString(header) {
				return field, true
			}
		}
	}
	return "", false
}

// ParseStats summarizes a statement parse: how many rows were read, how many
// produced records, and the per-row findings for the rest.
type ParseStats struct {
	Rows     int
	Records  int
	Findings []string
}

// Parse reads a statement CSV with a header row and maps it into imported
// records. Unmappable headers are skipped with a Debug log; a file whose
// headers map neither a date nor an amount column is rejected. Rows whose
// amount or date does not parse are skipped and recorded as findings rather
// than failing the whole file.
func (m *Mapper) Parse(r io.Reader) ([]*models.ImportedRecord, *ParseStats, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, nil, errors.ParseError(errors.CodeInvalidFormat, 1, "header", "", err)
	}

	fieldByColumn := make(map[int]string, len(headers))
	for i, header := range headers {
		field, ok := m.FieldForHeader(header)
		if !ok {
			m.log.WithField("header", header).Debug("No mapping for statement column")
			continue
		}
		fieldByColumn[i] = field
	}

	hasDate, hasAmount := false, false
	for _, field := range fieldByColumn {
		if field == FieldDate {
			hasDate = true
		}
		if field == FieldAmount {
			hasAmount = true
		}
	}
	if !hasDate || !hasAmount {
		return nil, nil, errors.New(errors.CategoryParse, errors.CodeMissingColumn,
			"statement file maps no date or amount column").
			WithSuggestion("extend the account's import settings to cover this bank's header names")
	}

	stats := &ParseStats{}
	var records []*models.ImportedRecord
	line := 1

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return records, stats, errors.ParseError(errors.CodeInvalidFormat, line, "row", "", err)
		}
		stats.Rows++

		rec, finding := m.mapRow(row, fieldByColumn, line)
		if finding != "" {
			stats.Findings = append(stats.Findings, finding)
			continue
		}
		records = append(records, rec)
		stats.Records++
	}

	m.log.WithFields(logger.Fields{
		"rows":     stats.Rows,
		"records":  stats.Records,
		"findings": len(stats.Findings),
	}).Debug("Parsed statement file")

	return records, stats, nil
}

// mapRow builds one imported record from a CSV row, walking the columns by
// ascending index. When two columns feed the same field, the leftmost
// non-empty cell wins. It returns a non-empty finding instead of a record
// when a mapped amount or date value does not parse.
func (m *Mapper) mapRow(row []string, fieldByColumn map[int]string, line int) (*models.ImportedRecord, string) {
	rec := &models.ImportedRecord{}
	filled := make(map[string]bool, len(fieldByColumn))
	for i := 0; i < len(row); i++ {
		field, ok := fieldByColumn[i]
		if !ok || filled[field] {
			continue
		}
		value := strings.TrimSpace(row[i])
		if value == "" {
			continue
		}
		filled[field] = true
		switch field {
		case FieldDate:
			day, err := models.ParseDay(value)
			if err != nil {
				return nil, fmt.Sprintf("line %d: invalid date %q", line, value)
			}
			rec.Date = day
		case FieldValueDate:
			day, err := models.ParseDay(value)
			if err != nil {
				return nil, fmt.Sprintf("line %d: invalid value date %q", line, value)
			}
			rec.ValueDate = day
		case FieldAmount:
			amount, err := models.ParseAmount(value)
			if err != nil {
				return nil, fmt.Sprintf("line %d: invalid amount %q", line, value)
			}
			rec.Amount = &amount
		case FieldType:
			rec.Type = value
		case FieldSubject:
			rec.Subject = value
		case FieldCurrency:
			rec.Currency = value
		case FieldDebteeID:
			rec.DebteeID = value
		case FieldMandateReference:
			rec.MandateReference = value
		case FieldCustomerReference:
			rec.CustomerReference = value
		case FieldCollectionReference:
			rec.CollectionReference = value
		case FieldInfo:
			rec.Info = value
		case FieldReceiverSender:
			rec.ReceiverSender = value
		case FieldIban:
			rec.Iban = value
		case FieldBic:
			rec.Bic = value
		}
	}
	return rec, ""
}
