// Package money handles Brazilian-format currency parsing and formatting.
// Statements use "." as the thousands separator and "," as the decimal
// separator, optionally prefixed with an "R$" marker. Everything downstream
// of this package works with canonical decimal values only.
package money

import (
	"errors"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount reports a token that does not normalize to a decimal.
var ErrInvalidAmount = errors.New("invalid amount format")

// Parse converts a locale-formatted amount token like "R$ 1.234,56" or
// "-50,00" into a decimal value. Tokens without a decimal separator parse
// as whole currency units. This is the strict policy: malformed tokens
// return ErrInvalidAmount and the caller decides what to do with the line.
func Parse(tok string) (decimal.Decimal, error) {
	cleaned := normalize(tok)
	if cleaned == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseOrZero is the lenient reload policy: a token that fails to parse is
// coerced to zero rather than rejecting the whole row. The second return
// reports whether the token parsed cleanly, so callers can count coercions.
func ParseOrZero(tok string) (decimal.Decimal, bool) {
	d, err := Parse(tok)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseStored reads a persisted valor cell. The store writes cells with
// Format as plain decimals, but legacy and hand-edited tables may carry
// locale formatting, so the locale parse is attempted before coercing to
// zero. Plain-decimal-first keeps save(load()) byte-stable.
func ParseStored(tok string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(tok)
	if s == "" {
		return decimal.Zero, false
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d, true
	}
	return ParseOrZero(s)
}

// Format renders a canonical decimal as plain text ("1234.56"), never
// locale-formatted. This is the persisted representation of valor.
func Format(d decimal.Decimal) string {
	return d.String()
}

// normalize strips a single leading currency marker and all whitespace,
// removes thousands separators and swaps the decimal comma for a period.
// A second R$ marker survives normalization and fails the decimal parse.
func normalize(tok string) string {
	s := strings.TrimSpace(tok)
	s = strings.TrimPrefix(s, "R$")
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	return s
}
