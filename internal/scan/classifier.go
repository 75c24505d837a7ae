package scan

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/caixaclara/statement-ledger/internal/models"
	"github.com/caixaclara/statement-ledger/internal/money"
)

// DateMatchMode selects how strictly date marker lines are recognized.
// Statement layouts disagree: some print the date alone on its own line,
// others pad it with page furniture. Both behaviors are selectable.
type DateMatchMode int

const (
	// MatchFullLine accepts a date marker only when the entire trimmed
	// line is a DD/MM/YYYY date. Default.
	MatchFullLine DateMatchMode = iota
	// MatchSubstring also accepts a DD/MM/YYYY substring, but only on
	// lines that carry no currency marker anywhere.
	MatchSubstring
)

// LineClass tags what the classifier made of a single line.
type LineClass int

const (
	// ClassNoise is a line with no date marker and no amount token.
	ClassNoise LineClass = iota
	// ClassDate is a date marker line.
	ClassDate
	// ClassAmount is a transaction line with a parsable amount token.
	ClassAmount
	// ClassMalformed is a line whose amount token failed the strict
	// parse. The scan path discards it but counts the occurrence.
	ClassMalformed
)

// Line is the classification of one input line.
type Line struct {
	Class       LineClass
	Date        string // ClassDate: DD/MM/YYYY
	Description string // ClassAmount
	Amount      decimal.Decimal
}

var (
	fullLineDatePattern = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	inlineDatePattern   = regexp.MustCompile(`\b(\d{2}/\d{2}/\d{4})\b`)
	// Currency-marker-prefixed numeric token. Sign, when present in the
	// text, precedes the digits ("R$ -40,00").
	amountTokenPattern = regexp.MustCompile(`R\$\s*(-?[\d.,]+)`)
)

// Classifier turns raw statement lines into tagged lines.
type Classifier struct {
	Mode DateMatchMode
}

// Classify inspects one text line and tags it as a date marker, a
// transaction line or noise. Pure date lines never contain "R$", so a line
// carrying a currency token is never a date marker.
func (c Classifier) Classify(raw string) Line {
	line := strings.TrimSpace(raw)
	if line == "" {
		return Line{Class: ClassNoise}
	}

	if fullLineDatePattern.MatchString(line) && models.ValidDate(line) {
		return Line{Class: ClassDate, Date: line}
	}

	if c.Mode == MatchSubstring && !strings.Contains(line, "R$") {
		if m := inlineDatePattern.FindStringSubmatch(line); m != nil && models.ValidDate(m[1]) {
			return Line{Class: ClassDate, Date: m[1]}
		}
	}

	loc := amountTokenPattern.FindStringSubmatchIndex(line)
	if loc == nil {
		return Line{Class: ClassNoise}
	}

	amount, err := money.Parse(line[loc[2]:loc[3]])
	if err != nil {
		return Line{Class: ClassMalformed}
	}

	return Line{
		Class:       ClassAmount,
		Description: cleanDescription(line[:loc[0]]),
		Amount:      amount,
	}
}

// cleanDescription trims the text preceding the amount token and strips
// leading non-alphanumeric symbols (bullets, dashes, table borders).
func cleanDescription(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeftFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.TrimSpace(s)
}
