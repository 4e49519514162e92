package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a signed decimal amount from a statement field with
// validation. Currency symbols and thousand separators are tolerated;
// a trailing-comma decimal (German convention "1.234,56") is recognized.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	for _, symbol := range []string{"$", "€", "EUR", "USD"} {
		s = strings.ReplaceAll(s, symbol, "")
	}
	s = strings.TrimSpace(s)

	// "1.234,56" -> "1234.56"; "1,234.56" -> "1234.56"
	if comma := strings.LastIndex(s, ","); comma > strings.LastIndex(s, ".") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}
	return d, nil
}

// dayFormats lists the date layouts accepted in bank statement files,
// most common first.
var dayFormats = []string{
	"2006-01-02",
	"02.01.2006",
	"01/02/2006",
	"2006/01/02",
	"02-01-2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// ParseDay attempts to parse a calendar day from a statement field using the
// accepted layouts. The result is truncated to UTC midnight.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	var lastErr error
	for _, format := range dayFormats {
		if t, err := time.Parse(format, s); err == nil {
			return DayOf(t), nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date '%s': %w", s, lastErr)
}
