// Package scan recovers transactions from unlabeled statement text. A
// classifier tags each line and a small state machine folds the tags into
// transaction records, carrying the most recent date marker forward as the
// date context for subsequent amount lines.
package scan

import (
	"strings"

	"github.com/caixaclara/statement-ledger/internal/models"
)

// state is the scanner's only piece of carried context.
type state int

const (
	// noActiveDate: no date marker seen yet. Amount lines are dropped.
	noActiveDate state = iota
	// hasActiveDate: a date marker is in effect for amount lines.
	hasActiveDate
)

// Result accumulates the output of one scan. DroppedNoDate counts amount
// lines seen before any date marker; Malformed counts amount tokens that
// failed to parse. Both are surfaced for logging rather than silently lost.
type Result struct {
	Transactions  []models.Transaction
	DroppedNoDate int
	Malformed     int
}

// Scanner walks statement lines in reading order. No lookahead, no
// backtracking; the date context survives page boundaries.
type Scanner struct {
	Classifier Classifier
}

// New returns a scanner with the default strict date matching.
func New() *Scanner {
	return &Scanner{}
}

// ScanPages processes extracted page texts in order. An empty page is an
// empty sequence, not an error; malformed lines never abort the scan.
func (s *Scanner) ScanPages(pages []string) Result {
	var res Result
	m := machine{}
	for _, page := range pages {
		for _, raw := range splitLines(page) {
			m.step(s.Classifier.Classify(raw), &res)
		}
	}
	return res
}

// ScanLines processes a flat sequence of lines (a single page, or CSV rows
// flattened to text).
func (s *Scanner) ScanLines(lines []string) Result {
	var res Result
	m := machine{}
	for _, raw := range lines {
		m.step(s.Classifier.Classify(raw), &res)
	}
	return res
}

// machine is the explicit transition function over {noActiveDate,
// hasActiveDate}. There is no terminal state: whatever was emitted by the
// end of input is the scan's output.
type machine struct {
	st   state
	date string
}

func (m *machine) step(ln Line, res *Result) {
	switch ln.Class {
	case ClassDate:
		// A new marker overwrites any prior date context. Emits nothing.
		m.st = hasActiveDate
		m.date = ln.Date
	case ClassAmount:
		if m.st == noActiveDate {
			res.DroppedNoDate++
			return
		}
		res.Transactions = append(res.Transactions, models.Transaction{
			Date:        m.date,
			Description: ln.Description,
			Amount:      ln.Amount,
			Kind:        models.KindFor(ln.Amount),
		})
	case ClassMalformed:
		res.Malformed++
	case ClassNoise:
		// no state change, no emission
	}
}

func splitLines(page string) []string {
	if page == "" {
		return nil
	}
	return strings.Split(page, "\n")
}
