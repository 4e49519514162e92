package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CategoryParse, CodeInvalidFormat, "broken header")

	if err.Category != CategoryParse || err.Code != CodeInvalidFormat {
		t.Errorf("Unexpected taxonomy: %s/%s", err.Category, err.Code)
	}
	if err.Error() != "broken header" {
		t.Errorf("Error() = %q", err.Error())
	}
	if len(err.StackTrace) == 0 {
		t.Error("Expected a captured stack trace")
	}
}

func TestError_WithSuggestion(t *testing.T) {
	err := New(CategoryFile, CodeFileNotFound, "file not found: x.csv").
		WithSuggestion("check the path")

	if !strings.Contains(err.Error(), "suggestion: check the path") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := fmt.Errorf("disk on fire")
	err := Wrap(cause, CategoryInternal, CodeUnexpectedError, "store failed")

	if !stderrors.Is(err, cause) {
		t.Error("Wrapped error must keep its cause in the chain")
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap must return the cause")
	}
}

func TestWrap_NilYieldsNil(t *testing.T) {
	if err := Wrap(nil, CategoryInternal, CodeUnexpectedError, "nothing"); err != nil {
		t.Errorf("Expected nil, got %v", err)
	}
}

func TestIs_MatchesThroughChain(t *testing.T) {
	inner := AccountNotFound("acc-1")
	outer := fmt.Errorf("preparing job: %w", inner)

	if !Is(outer, CodeAccountNotFound) {
		t.Error("Is must match the code through a wrapping chain")
	}
	if Is(outer, CodeJobRejected) {
		t.Error("Is must not match a different code")
	}
	if Is(nil, CodeAccountNotFound) {
		t.Error("Is(nil, ...) must be false")
	}
}

func TestAs(t *testing.T) {
	e, ok := As(JobRejected("acc-1"))
	if !ok {
		t.Fatal("As must extract the typed error")
	}
	if e.Context["account_id"] != "acc-1" {
		t.Errorf("Context = %v", e.Context)
	}

	if _, ok := As(fmt.Errorf("plain")); ok {
		t.Error("As must reject foreign error types")
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		category Category
		code     Code
	}{
		{"account not found", AccountNotFound("x"), CategoryConfiguration, CodeAccountNotFound},
		{"job rejected", JobRejected("x"), CategoryReconciliation, CodeJobRejected},
		{"mapping", MappingError("amount", "[", fmt.Errorf("bad pattern")), CategoryConfiguration, CodeInvalidMapping},
		{"file", FileError(CodeFileNotFound, "x.csv", nil), CategoryFile, CodeFileNotFound},
		{"parse", ParseError(CodeInvalidAmount, 3, "amount", "lots", nil), CategoryParse, CodeInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Category != tt.category || tt.err.Code != tt.code {
				t.Errorf("Got %s/%s, want %s/%s",
					tt.err.Category, tt.err.Code, tt.category, tt.code)
			}
			if tt.err.Message == "" {
				t.Error("Constructor left the message empty")
			}
		})
	}
}

func TestParseError_Context(t *testing.T) {
	err := ParseError(CodeInvalidDate, 7, "date", "soon", fmt.Errorf("unparsable"))

	if err.Context["line"] != 7 || err.Context["field"] != "date" || err.Context["value"] != "soon" {
		t.Errorf("Context = %v", err.Context)
	}
}

func TestJoin(t *testing.T) {
	if got := Join(nil); got != "" {
		t.Errorf("Join(nil) = %q", got)
	}
	got := Join([]error{fmt.Errorf("one"), fmt.Errorf("two")})
	if got != "one; two" {
		t.Errorf("Join = %q", got)
	}
}
