// Package errors defines the error taxonomy of the reconciliation engine.
//
// Only configuration problems (an unresolvable target account, a broken
// header mapping) are fatal for a reconciliation call. Data-quality findings
// such as foreign IBANs, checksum mismatches and doublets are never errors;
// they travel as data attached to result entries.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Category groups errors by the subsystem they originate from.
type Category string

const (
	CategoryFile           Category = "file"
	CategoryParse          Category = "parse"
	CategoryValidation     Category = "validation"
	CategoryConfiguration  Category = "configuration"
	CategoryReconciliation Category = "reconciliation"
	CategoryInternal       Category = "internal"
)

// Code identifies a specific failure within a category.
type Code string

const (
	// File errors
	CodeFileNotFound   Code = "file_not_found"
	CodeFilePermission Code = "file_permission"

	// Parse errors
	CodeInvalidFormat Code = "invalid_format"
	CodeMissingColumn Code = "missing_column"
	CodeInvalidData   Code = "invalid_data"

	// Validation errors
	CodeInvalidAmount Code = "invalid_amount"
	CodeInvalidDate   Code = "invalid_date"
	CodeMissingField  Code = "missing_field"

	// Configuration errors
	CodeAccountNotFound Code = "account_not_found"
	CodeInvalidMapping  Code = "invalid_mapping"
	CodeInvalidConfig   Code = "invalid_config"

	// Reconciliation errors
	CodeJobRejected     Code = "job_rejected"
	CodeJobCancelled    Code = "job_cancelled"
	CodeProcessingError Code = "processing_error"

	// Internal errors
	CodeUnexpectedError Code = "unexpected_error"
)

// Error is the module's error type, carrying a category, a machine-readable
// code, optional context and the cause chain.
type Error struct {
	Category   Category          `json:"category"`
	Code       Code              `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context holds additional key-value details about an error.
type Context map[string]interface{}

func (e *Error) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key-value detail to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion attaches a hint for resolving the error.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates a new Error with a captured stack trace.
func New(category Category, code Code, message string) *Error {
	return &Error{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Newf creates a new Error with a formatted message.
func Newf(category Category, code Code, format string, args ...interface{}) *Error {
	return New(category, code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error, preserving it as the cause.
func Wrap(err error, category Category, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// AccountNotFound is the fatal configuration error raised when the target
// account of a reconciliation pass cannot be resolved. It is raised before
// any store fetch happens.
func AccountNotFound(accountID string) *Error {
	return Newf(CategoryConfiguration, CodeAccountNotFound,
		"bank account %q not found", accountID).
		WithSuggestion("check the account identifier; nothing was fetched or computed").
		WithContext("account_id", accountID)
}

// MappingError reports a broken statement header mapping.
func MappingError(field, pattern string, err error) *Error {
	e := Wrap(err, CategoryConfiguration, CodeInvalidMapping,
		fmt.Sprintf("invalid header pattern %q for field %q", pattern, field))
	if e == nil {
		e = Newf(CategoryConfiguration, CodeInvalidMapping,
			"invalid header pattern %q for field %q", pattern, field)
	}
	return e.
		WithSuggestion("patterns support '*' and '?' wildcards only").
		WithContext("field", field).
		WithContext("pattern", pattern)
}

// FileError reports a problem accessing a statement or ledger file.
func FileError(code Code, path string, err error) *Error {
	var e *Error
	message := fmt.Sprintf("cannot access file %s", path)
	if code == CodeFileNotFound {
		message = fmt.Sprintf("file not found: %s", path)
	}
	if err != nil {
		e = Wrap(err, CategoryFile, code, message)
	} else {
		e = New(CategoryFile, code, message)
	}
	return e.WithContext("file_path", path)
}

// ParseError reports malformed data at a specific line of an input file.
func ParseError(code Code, line int, field, value string, err error) *Error {
	message := fmt.Sprintf("parse error at line %d, field %q: %q", line, field, value)
	var e *Error
	if err != nil {
		e = Wrap(err, CategoryParse, code, message)
	} else {
		e = New(CategoryParse, code, message)
	}
	return e.
		WithContext("line", line).
		WithContext("field", field).
		WithContext("value", value)
}

// JobRejected reports that a reconciliation job was refused because another
// job for the same account is already in flight.
func JobRejected(accountID string) *Error {
	return Newf(CategoryReconciliation, CodeJobRejected,
		"a reconciliation job for account %q is already running", accountID).
		WithSuggestion("wait for the running job to finish; jobs are not queued").
		WithContext("account_id", accountID)
}

// Is reports whether err is an *Error carrying the given code.
func Is(err error, code Code) bool {
	e, ok := As(err)
	return ok && e.Code == code
}

// As extracts an *Error from an error chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Join renders a short summary of multiple error messages.
func Join(errs []error) string {
	if len(errs) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}
